package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/medidoc/medidoc-server/constants"
)

var reYMD = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NoteCategoryCanonicalized marks a category label that only resolved to the
// closed set through synonym or spelling normalization.
const NoteCategoryCanonicalized = "category(canonicalized)"

// StripCodeFences peels a ```json ... ``` wrapper off a model response.
// Models wrap JSON in fences despite instructions often enough to handle it.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// NormalizeAndSanitizeJSON
// - Drops null / "" / "N/A"-style placeholder values
// - Drops a document_date that is not a full YYYY-MM-DD
// - Truncates an overlong summary instead of failing it
// - Removes unknown keys (strict additionalProperties = false friendliness)
// Returns the cleaned JSON and the list of adjustments made.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 4)

	// 1) drop placeholders and trim strings for every optional field
	optional := []string{"document_date", "doctor_name", "hospital_name", "summary"}
	for _, k := range optional {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case string:
			s := strings.TrimSpace(t)
			if s == "" || isPlaceholder(s) {
				delete(m, k)
				dropped = append(dropped, k+"(placeholder)")
			} else {
				m[k] = s
			}
		default:
			// unexpected type -> drop
			delete(m, k)
			dropped = append(dropped, k+"(type)")
		}
	}

	// 2) an unparsable date is dropped to absent, never stored malformed
	if v, ok := m["document_date"].(string); ok && !reYMD.MatchString(v) {
		delete(m, "document_date")
		dropped = append(dropped, "document_date(shape)")
	}

	// 3) bound the summary
	if v, ok := m["summary"].(string); ok && len(v) > SummaryMaxLength {
		m["summary"] = strings.TrimSpace(TruncateBytes(v, SummaryMaxLength-1)) + "…"
		dropped = append(dropped, "summary(truncated)")
	}

	// 4) resolve the category label to the closed set before schema
	// validation, so near-miss spellings ("Lab Report", "lab-report") pass
	// the enum instead of degrading the whole record
	if v, ok := m["category"].(string); ok {
		label := strings.TrimSpace(v)
		if cat, known := constants.Canonicalize(label); known {
			if string(cat) != label {
				dropped = append(dropped, NoteCategoryCanonicalized)
			}
			m["category"] = string(cat)
		} else {
			m["category"] = label
		}
	}

	// 5) remove unknown keys
	allowed := map[string]struct{}{
		"category": {}, "document_date": {}, "doctor_name": {},
		"hospital_name": {}, "summary": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// TruncateBytes cuts s to at most max bytes without splitting a UTF-8 rune.
func TruncateBytes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "n/a", "na", "none", "null", "unknown", "not found", "not available":
		return true
	}
	return false
}
