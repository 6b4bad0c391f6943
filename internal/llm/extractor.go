package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/medidoc/medidoc-server/constants"
	"github.com/medidoc/medidoc-server/internal/common"
)

// Sampling parameters for field extraction: near-zero temperature and a
// bounded completion bias the model toward deterministic, concise JSON.
// Nucleus sampling stays at full mass since temperature already constrains
// variance.
var extractOptions = ChatOptions{
	Temperature: 0.1,
	MaxTokens:   300,
	TopP:        1,
}

// Extractor turns raw document text into validated DocumentFields via a chat
// completion. Malformed model output fails with EXTRACTION_FORMAT carrying
// the raw response; only transport-level failures from the chat client
// propagate as SERVICE_UNAVAILABLE.
type Extractor struct {
	chat   ChatClient
	logger *slog.Logger
}

func NewExtractor(chat ChatClient, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{chat: chat, logger: logger}
}

var _ FieldExtractor = (*Extractor)(nil)

func (e *Extractor) ExtractFields(ctx context.Context, req ExtractRequest) (Extraction, error) {
	start := time.Now()
	e.logger.Info("llm.extract.start",
		"filename", req.FilenameHint,
		"text_len", len(req.RawText),
	)

	messages := []Message{
		{Role: "system", Content: BuildSystemPrompt()},
		{Role: "user", Content: BuildUserPrompt(req)},
	}

	content, err := e.chat.Complete(ctx, messages, extractOptions)
	if err != nil {
		e.logger.Error("llm.extract.call_failed",
			"error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Extraction{}, err
	}
	raw := []byte(StripCodeFences(content))

	cleaned, adjusted, err := NormalizeAndSanitizeJSON(raw, e.logger)
	if err != nil {
		e.logger.Error("llm.extract.decode_error",
			"error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds())
		return Extraction{Raw: raw}, common.E(common.KindExtractionFormat, "model returned non-JSON", err)
	}

	schema := BuildDocumentJSONSchema(constants.AsStringSlice())
	if err := ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		e.logger.Error("llm.extract.schema_validation_failed",
			"error", err, "content", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds())
		return Extraction{Raw: raw}, common.E(common.KindExtractionFormat, "schema validation failed", err)
	}

	var out DocumentFields
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return Extraction{Raw: raw}, common.E(common.KindExtractionFormat, "unmarshal fields", err)
	}

	e.logger.Info("llm.extract.ok",
		"category", out.Category,
		"date", out.DocumentDate,
		"doctor", out.DoctorName,
		"hospital", out.HospitalName,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Extraction{Fields: out, Raw: cleaned, Adjusted: adjusted}, nil
}
