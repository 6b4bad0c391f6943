package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medidoc/medidoc-server/constants"
	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/entity"
)

// ParseOutcome records the terminal state of the structured extraction stage.
type ParseOutcome struct {
	DocumentID    int64
	NeedsReview   bool
	ModelName     string
	ExtractedJSON []byte
}

// ExtractJobRepository tracks pipeline runs for diagnostics. The raw model
// output of a degraded extraction lands here, not on the document record.
type ExtractJobRepository interface {
	Start(ctx context.Context, filename, format string) (*entity.ExtractJob, error)
	FinishOCR(ctx context.Context, id uuid.UUID, method string, pages int) error
	FinishParse(ctx context.Context, id uuid.UUID, out ParseOutcome) error
	Fail(ctx context.Context, id uuid.UUID, errMsg string, raw []byte) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ExtractJob, error)
}

type extractJobRepository struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

func NewExtractJobRepository(db *sql.DB, dialect string, logger *slog.Logger) ExtractJobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &extractJobRepository{db: db, dialect: dialect, logger: logger}
}

func (r *extractJobRepository) Start(ctx context.Context, filename, format string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:        uuid.New(),
		Filename:  filename,
		Format:    format,
		StartedAt: time.Now().UTC(),
		Status:    string(constants.JobStatusRunning),
	}

	q := rebind(r.dialect, `
INSERT INTO extract_jobs (id, filename, format, started_at, status)
VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, job.ID.String(), job.Filename, job.Format, job.StartedAt, job.Status); err != nil {
		r.logger.Error("failed to start extract job", "filename", filename, "error", err)
		return nil, common.E(common.KindInternal, "start extract job", err)
	}
	return job, nil
}

func (r *extractJobRepository) FinishOCR(ctx context.Context, id uuid.UUID, method string, pages int) error {
	q := rebind(r.dialect, `
UPDATE extract_jobs SET status = ?, ocr_method = ?, pages = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, q, string(constants.JobStatusOCROK), method, pages, id.String()); err != nil {
		r.logger.Error("failed to record ocr outcome", "job_id", id, "error", err)
		return common.E(common.KindInternal, "finish ocr", err)
	}
	return nil
}

func (r *extractJobRepository) FinishParse(ctx context.Context, id uuid.UUID, out ParseOutcome) error {
	now := time.Now().UTC()
	q := rebind(r.dialect, `
UPDATE extract_jobs
SET status = ?, document_id = ?, needs_review = ?, model_name = ?, extracted_json = ?, finished_at = ?
WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, q,
		string(constants.JobStatusLLMOK),
		out.DocumentID,
		out.NeedsReview,
		out.ModelName,
		nullableString(out.ExtractedJSON),
		now,
		id.String(),
	)
	if err != nil {
		r.logger.Error("failed to record parse outcome", "job_id", id, "error", err)
		return common.E(common.KindInternal, "finish parse", err)
	}
	return nil
}

func (r *extractJobRepository) Fail(ctx context.Context, id uuid.UUID, errMsg string, raw []byte) error {
	now := time.Now().UTC()
	q := rebind(r.dialect, `
UPDATE extract_jobs SET status = ?, error_message = ?, extracted_json = ?, finished_at = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, q, string(constants.JobStatusFailed), errMsg, nullableString(raw), now, id.String()); err != nil {
		r.logger.Error("failed to mark job failed", "job_id", id, "error", err)
		return common.E(common.KindInternal, "fail extract job", err)
	}
	return nil
}

func (r *extractJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ExtractJob, error) {
	q := rebind(r.dialect, `
SELECT id, filename, format, document_id, started_at, finished_at, status, error_message, needs_review, ocr_method, pages, model_name, extracted_json
FROM extract_jobs WHERE id = ?`)

	var (
		job       entity.ExtractJob
		rawID     string
		extracted sql.NullString
		ocrMethod sql.NullString
		errMsg    sql.NullString
		modelName sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id.String()).Scan(
		&rawID, &job.Filename, &job.Format, &job.DocumentID,
		&job.StartedAt, &job.FinishedAt, &job.Status,
		&errMsg, &job.NeedsReview, &ocrMethod, &job.Pages, &modelName, &extracted,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.Errorf(common.KindNotFound, "extract job %s not found", id)
	}
	if err != nil {
		r.logger.Error("failed to get extract job", "job_id", id, "error", err)
		return nil, common.E(common.KindInternal, "get extract job", err)
	}

	job.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, common.E(common.KindInternal, "parse job id", err)
	}
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	if ocrMethod.Valid {
		job.OCRMethod = &ocrMethod.String
	}
	if modelName.Valid {
		job.ModelName = &modelName.String
	}
	if extracted.Valid {
		job.ExtractedJSON = []byte(extracted.String)
	}
	return &job, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
