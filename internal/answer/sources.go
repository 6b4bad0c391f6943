package answer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/medidoc/medidoc-server/internal/entity"
)

var sourceIndexPattern = regexp.MustCompile(`\d+`)

// resolveSources splits the model reply into answer text and citations.
// The primary path parses the SOURCES footer back to context-block numbers.
// When the model ignores the footer instruction, any filename mentioned
// verbatim in the reply is cited instead.
func resolveSources(reply string, records []*entity.Document) (string, []entity.DocumentRef) {
	reply = strings.TrimSpace(reply)

	lines := strings.Split(reply, "\n")
	footerLine := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), sourcesMarker) {
			footerLine = i
			break
		}
	}

	if footerLine < 0 {
		return reply, citeByFilename(reply, records)
	}

	footer := strings.TrimSpace(lines[footerLine])
	text := strings.TrimSpace(strings.Join(append(lines[:footerLine:footerLine], lines[footerLine+1:]...), "\n"))

	sources := []entity.DocumentRef{}
	seen := make(map[int]bool)
	for _, m := range sourceIndexPattern.FindAllString(footer, -1) {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > len(records) || seen[n] {
			continue
		}
		seen[n] = true
		sources = append(sources, records[n-1].Ref())
	}
	return text, sources
}

func citeByFilename(reply string, records []*entity.Document) []entity.DocumentRef {
	lower := strings.ToLower(reply)
	sources := []entity.DocumentRef{}
	seen := make(map[string]bool)
	for _, d := range records {
		name := strings.ToLower(d.Filename)
		if name == "" || seen[name] || !strings.Contains(lower, name) {
			continue
		}
		seen[name] = true
		sources = append(sources, d.Ref())
	}
	return sources
}
