package llm

import (
	"strings"

	"github.com/medidoc/medidoc-server/constants"
)

// MaxPromptTextBytes caps how much document text is sent for field extraction.
const MaxPromptTextBytes = 2000

// BuildSystemPrompt composes the fixed extraction instruction: the closed
// category enum, the required output keys, and omit-over-fabricate rules.
func BuildSystemPrompt() string {
	cats := constants.AsStringSlice()

	parts := []string{
		"You are an expert medical data extraction assistant. Analyze the provided text from a medical document and respond ONLY with a valid JSON object.",
		"The object must contain exactly these keys: category, document_date, doctor_name, hospital_name, summary.",
		"'category' MUST be exactly one of the allowed enum. If uncertain, choose 'Other'. Allowed categories (enum): " + strings.Join(cats, ", ") + ".",
		"Category selection rubric: " + buildCategoryRubric(),
		"'document_date' is the date of the document in YYYY-MM-DD format.",
		"'doctor_name' is the full name of the doctor; 'hospital_name' is the name of the hospital or clinic.",
		"'summary' is a brief, clear summary in 1-2 sentences describing what this document is about.",
		"If a value is not present in the text, omit the key entirely. Never invent values, and never output null or placeholders like 'N/A'.",
		"Return only the JSON object, no other text.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the OCR text, truncated to keep token cost bounded.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if filename := strings.TrimSpace(req.FilenameHint); filename != "" {
		b.WriteString("Filename: ")
		b.WriteString(filename)
		b.WriteString("\n")
	}
	b.WriteString("\nMedical document text:\n\n")

	text := strings.TrimSpace(req.RawText)
	if len(text) > MaxPromptTextBytes {
		b.WriteString(TruncateBytes(text, MaxPromptTextBytes))
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}

// buildCategoryRubric emits short, high-precision rules with tie-breakers so
// the model does not oscillate between similar buckets.
func buildCategoryRubric() string {
	defs := []string{
		"Prescription: medication names with dosage/frequency instructions, signed by a prescriber.",
		"LabReport: test panels with measured values, units and reference ranges (blood, urine, imaging reports).",
		"MedicalBill: itemized charges from a hospital or clinic for procedures, consultations or stays.",
		"PharmacyBill: itemized charges from a pharmacy or chemist for dispensed medicines.",
		"DischargeSummary: admission/discharge dates with diagnosis, course in hospital and follow-up advice.",
		"ConsultationNotes: a clinician's narrative of complaints, examination findings and plan from a visit.",
		"Other: use only when nothing else applies unambiguously.",
	}
	ties := []string{
		"Tie-breaker: charges for medicines only → 'PharmacyBill'; charges including procedures or room fees → 'MedicalBill'.",
		"Tie-breaker: a note that prescribes medication but also records an examination → 'ConsultationNotes' unless it is a bare medication list.",
	}
	return strings.Join(defs, " | ") + " " + strings.Join(ties, " ")
}
