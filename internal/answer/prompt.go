package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/entity"
)

// sourcesMarker is the footer the model is asked to end its reply with.
// resolveSources parses it back into citations.
const sourcesMarker = "SOURCES:"

func buildAnswerSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a careful assistant answering questions about a patient's personal medical records.\n")
	b.WriteString("You will be given the full set of stored documents as numbered context blocks.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Answer using ONLY the provided documents. Never use outside knowledge and never guess.\n")
	b.WriteString("- If the documents do not contain the answer, say so plainly.\n")
	b.WriteString("- Do not give medical advice; only report what the documents state.\n")
	b.WriteString(fmt.Sprintf("- End your reply with a final line of the form %q listing the numbers of the documents you used, e.g. \"%s [1], [3]\".\n", sourcesMarker+" [n], [m]", sourcesMarker))
	b.WriteString(fmt.Sprintf("- If no document was relevant, end with \"%s none\".\n", sourcesMarker))
	return b.String()
}

func buildAnswerUserPrompt(query, corpus string) string {
	var b strings.Builder
	b.WriteString("Documents:\n\n")
	b.WriteString(corpus)
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	return b.String()
}

// buildCorpusContext renders every record as a numbered block. Metadata is
// always included; the raw OCR text is appended as a capped snippet until the
// overall budget is spent, so a large corpus degrades to metadata-only blocks
// instead of overflowing the model's window.
func buildCorpusContext(records []*entity.Document, cfg common.AnswerConfig) string {
	var b strings.Builder
	for i, d := range records {
		fmt.Fprintf(&b, "[%d] Filename: %s\n", i+1, d.Filename)
		fmt.Fprintf(&b, "Category: %s\n", d.Category)
		if d.DocumentDate != nil {
			fmt.Fprintf(&b, "Date: %s\n", *d.DocumentDate)
		}
		if d.DoctorName != nil {
			fmt.Fprintf(&b, "Doctor: %s\n", *d.DoctorName)
		}
		if d.HospitalName != nil {
			fmt.Fprintf(&b, "Hospital: %s\n", *d.HospitalName)
		}
		if d.Summary != nil {
			fmt.Fprintf(&b, "Summary: %s\n", *d.Summary)
		}
		if snippet := snippetOf(d.RawText, cfg.RawTextSnippet); snippet != "" && b.Len()+len(snippet) < cfg.ContextBudget {
			fmt.Fprintf(&b, "Text: %s\n", snippet)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func snippetOf(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	// cut on a rune boundary so a multi-byte character is never split
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}
