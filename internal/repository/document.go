package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/medidoc/medidoc-server/constants"
	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/entity"
)

// DocumentRepository is the append-only document store. Records are written
// exactly once and never mutated; identifier allocation is the only
// serialization point and is delegated to the database.
type DocumentRepository interface {
	// Insert persists a record and returns the store-assigned id.
	Insert(ctx context.Context, doc *entity.Document) (int64, error)
	// GetByID returns a single record, raw text included.
	GetByID(ctx context.Context, id int64) (*entity.Document, error)
	// List returns metadata for browsing: documentDate descending, undated
	// records trailing in insertion order. Raw text is not loaded.
	List(ctx context.Context) ([]*entity.Document, error)
	// Scan returns the full corpus, raw text included, in List order.
	// It is the read path for retrieval grounding and never blocks writers.
	Scan(ctx context.Context) ([]*entity.Document, error)
}

type documentRepository struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

func NewDocumentRepository(db *sql.DB, dialect string, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, dialect: dialect, logger: logger}
}

// listOrder surfaces the most clinically recent information first; records
// without a date keep their insertion order at the tail.
const listOrder = `ORDER BY CASE WHEN document_date IS NULL THEN 1 ELSE 0 END, document_date DESC, id ASC`

func (r *documentRepository) Insert(ctx context.Context, doc *entity.Document) (int64, error) {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Category == "" {
		doc.Category = constants.Other
	}

	q := rebind(r.dialect, `
INSERT INTO documents (filename, category, document_date, doctor_name, hospital_name, summary, raw_text, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`)

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		doc.Filename,
		string(doc.Category),
		doc.DocumentDate,
		doc.DoctorName,
		doc.HospitalName,
		doc.Summary,
		doc.RawText,
		doc.CreatedAt,
	).Scan(&id)
	if err != nil {
		r.logger.Error("failed to insert document", "filename", doc.Filename, "error", err)
		return 0, common.E(common.KindInternal, "insert document", err)
	}
	doc.ID = id
	return id, nil
}

func (r *documentRepository) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	q := rebind(r.dialect, `
SELECT id, filename, category, document_date, doctor_name, hospital_name, summary, raw_text, created_at
FROM documents WHERE id = ?`)

	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, id), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.Errorf(common.KindNotFound, "document %d not found", id)
	}
	if err != nil {
		r.logger.Error("failed to get document", "id", id, "error", err)
		return nil, common.E(common.KindInternal, "get document", err)
	}
	return doc, nil
}

func (r *documentRepository) List(ctx context.Context) ([]*entity.Document, error) {
	q := `
SELECT id, filename, category, document_date, doctor_name, hospital_name, summary, created_at
FROM documents ` + listOrder

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		r.logger.Error("failed to list documents", "error", err)
		return nil, common.E(common.KindInternal, "list documents", err)
	}
	defer rows.Close()

	return collectDocuments(rows, false)
}

func (r *documentRepository) Scan(ctx context.Context) ([]*entity.Document, error) {
	q := `
SELECT id, filename, category, document_date, doctor_name, hospital_name, summary, raw_text, created_at
FROM documents ` + listOrder

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		r.logger.Error("failed to scan documents", "error", err)
		return nil, common.E(common.KindInternal, "scan documents", err)
	}
	defer rows.Close()

	return collectDocuments(rows, true)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, withRawText bool) (*entity.Document, error) {
	var (
		doc      entity.Document
		category string
	)
	dest := []any{&doc.ID, &doc.Filename, &category, &doc.DocumentDate, &doc.DoctorName, &doc.HospitalName, &doc.Summary}
	if withRawText {
		dest = append(dest, &doc.RawText)
	}
	dest = append(dest, &doc.CreatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	doc.Category = constants.Category(category)
	return &doc, nil
}

func collectDocuments(rows *sql.Rows, withRawText bool) ([]*entity.Document, error) {
	var out []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows, withRawText)
		if err != nil {
			return nil, common.E(common.KindInternal, "scan document row", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, common.E(common.KindInternal, "iterate documents", err)
	}
	return out, nil
}
