package llm

import "context"

// Message is one turn of a chat-style completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions carries the sampling parameters for a single completion call.
type ChatOptions struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// ChatClient is the narrow capability the pipeline needs from a hosted model.
// Tests substitute a deterministic stub returning canned JSON.
type ChatClient interface {
	Complete(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

// DocumentFields is the normalized shape we want from the LLM.
type DocumentFields struct {
	Category     string `json:"category"`
	DocumentDate string `json:"document_date,omitempty"` // YYYY-MM-DD
	DoctorName   string `json:"doctor_name,omitempty"`
	HospitalName string `json:"hospital_name,omitempty"`
	Summary      string `json:"summary,omitempty"`
}

type ExtractRequest struct {
	RawText      string
	FilenameHint string
}

// Extraction is the outcome of a structured extraction call. Raw holds the
// model output for diagnostics: the sanitized JSON on success, the unparsed
// response on format errors. Adjusted lists the lenient fixes the sanitizer
// applied on the way to a valid object.
type Extraction struct {
	Fields   DocumentFields
	Raw      []byte
	Adjusted []string
}

// LenientCategory reports whether the category label only resolved to the
// closed set through synonym or spelling normalization.
func (e Extraction) LenientCategory() bool {
	for _, a := range e.Adjusted {
		if a == NoteCategoryCanonicalized {
			return true
		}
	}
	return false
}

// FieldExtractor is the interface the ingestion pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (Extraction, error)
}
