package llm

// SummaryMaxLength bounds the generated synopsis.
const SummaryMaxLength = 400

// BuildDocumentJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Category is REQUIRED and restricted to the closed enum so the
// model can neither omit it nor answer free text.
func BuildDocumentJSONSchema(allowedCategories []string) map[string]any {
	props := map[string]any{
		"category": map[string]any{
			"type": "string",
			"enum": allowedCategories,
		},
		"document_date": map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"doctor_name":   map[string]any{"type": "string", "minLength": 1},
		"hospital_name": map[string]any{"type": "string", "minLength": 1},
		"summary":       map[string]any{"type": "string", "minLength": 1, "maxLength": SummaryMaxLength},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"category"},
	}
}
