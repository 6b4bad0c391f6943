package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medidoc/medidoc-server/constants"
	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/entity"
	"github.com/medidoc/medidoc-server/internal/llm"
	"github.com/medidoc/medidoc-server/internal/ocr"
	"github.com/medidoc/medidoc-server/internal/repository"
)

// Upload is a received document blob before any processing.
type Upload struct {
	Filename string
	MIMEType string
	Data     []byte
}

// IngestResult is the outcome of a successful ingestion. Degraded marks a
// record that was persisted with category Other because the model output
// could not be parsed; the raw output lives on the extract job.
type IngestResult struct {
	Document *entity.Document
	JobID    uuid.UUID
	Degraded bool
	Warning  string
}

// TextExtractor converts upload bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (ocr.Result, error)
}

// Processor runs the upload pipeline: text extraction, structured field
// extraction, then a single atomic insert once every field is resolved.
type Processor struct {
	texts   TextExtractor
	fields  llm.FieldExtractor
	docs    repository.DocumentRepository
	jobs    repository.ExtractJobRepository
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

type ProcessorConfig struct {
	ModelName  string
	OCRTimeout time.Duration
}

func NewProcessor(
	texts TextExtractor,
	fields llm.FieldExtractor,
	docs repository.DocumentRepository,
	jobs repository.ExtractJobRepository,
	cfg ProcessorConfig,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		texts:   texts,
		fields:  fields,
		docs:    docs,
		jobs:    jobs,
		model:   cfg.ModelName,
		timeout: cfg.OCRTimeout,
		logger:  logger,
	}
}

// Ingest processes one upload end to end. Extraction failures surface as
// typed errors and nothing is persisted; a malformed model response is the
// one exception and degrades to a category-Other record so the document is
// never lost.
func (p *Processor) Ingest(ctx context.Context, up Upload) (*IngestResult, error) {
	if len(up.Data) == 0 {
		return nil, common.E(common.KindInvalidInput, "empty upload", nil)
	}
	if up.Filename == "" {
		up.Filename = "upload"
	}

	format := constants.MapMIMEToFormat(up.MIMEType)
	if format == "" {
		p.logger.Error("pipeline.ingest.unsupported", "filename", up.Filename, "mime_type", up.MIMEType)
		return nil, common.Errorf(common.KindUnsupportedFormat, "unsupported mime type: %q", up.MIMEType)
	}

	job, err := p.jobs.Start(ctx, up.Filename, format)
	if err != nil {
		return nil, err
	}
	p.logger.Info("pipeline.ingest.start", "job_id", job.ID, "filename", up.Filename, "format", format, "bytes", len(up.Data))

	res, err := p.runOCR(ctx, up)
	if err != nil {
		p.failJob(ctx, job.ID, err, nil)
		return nil, err
	}
	// Job rows are diagnostics; once a stage succeeded, a bookkeeping write
	// failure must not fail the ingestion.
	if err := p.jobs.FinishOCR(ctx, job.ID, res.Method, res.Pages); err != nil {
		p.logger.Error("pipeline.job_update_failed", "job_id", job.ID, "stage", "ocr", "error", err)
	}

	doc, raw, degraded, needsReview, err := p.parseFields(ctx, up.Filename, res.Text)
	if err != nil {
		p.failJob(ctx, job.ID, err, raw)
		return nil, err
	}

	id, err := p.docs.Insert(ctx, doc)
	if err != nil {
		p.failJob(ctx, job.ID, err, raw)
		return nil, err
	}

	// The document is stored at this point; failing the request now would
	// invite a retry that duplicates the record.
	if err := p.jobs.FinishParse(ctx, job.ID, repository.ParseOutcome{
		DocumentID:    id,
		NeedsReview:   needsReview,
		ModelName:     p.model,
		ExtractedJSON: raw,
	}); err != nil {
		p.logger.Error("pipeline.job_update_failed", "job_id", job.ID, "stage", "parse", "error", err)
	}

	out := &IngestResult{Document: doc, JobID: job.ID, Degraded: degraded}
	if degraded {
		out.Warning = "document stored without structured fields; model output was not valid JSON"
	}
	p.logger.Info("pipeline.ingest.ok", "job_id", job.ID, "document_id", id, "category", doc.Category, "degraded", degraded)
	return out, nil
}

func (p *Processor) runOCR(ctx context.Context, up Upload) (ocr.Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	res, err := p.texts.Extract(ctx, up.Data, up.MIMEType)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return res, common.E(common.KindServiceUnavailable, "text extraction timed out", err)
	}
	return res, err
}

func (p *Processor) failJob(ctx context.Context, id uuid.UUID, cause error, raw []byte) {
	if err := p.jobs.Fail(ctx, id, cause.Error(), raw); err != nil {
		p.logger.Error("pipeline.job_fail_write_failed", "job_id", id, "error", err)
	}
}
