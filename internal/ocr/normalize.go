package ocr

import (
	"regexp"
	"strings"
)

var reManyBlank = regexp.MustCompile(`\n{3,}`)

// Normalize tidies raw OCR output: unix line endings, trailing whitespace
// stripped per line, runs of blank lines collapsed.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	s = strings.Join(lines, "\n")
	s = reManyBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// hasInk reports whether the text contains any non-whitespace character.
// A form feed page marker alone does not count.
func hasInk(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\f', '\v', '\r':
		default:
			return true
		}
	}
	return false
}
