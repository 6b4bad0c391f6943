package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/medidoc/medidoc-server/internal/answer"
	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/entity"
	"github.com/medidoc/medidoc-server/internal/pipeline"
)

// Narrow views of the services the handlers consume; tests substitute stubs.
type (
	Ingestor interface {
		Ingest(ctx context.Context, up pipeline.Upload) (*pipeline.IngestResult, error)
	}
	Answerer interface {
		Answer(ctx context.Context, query string) (*answer.Result, error)
	}
	Exporter interface {
		DocumentHistoryXLSX(ctx context.Context) ([]byte, error)
	}
	DocumentReader interface {
		GetByID(ctx context.Context, id int64) (*entity.Document, error)
		List(ctx context.Context) ([]*entity.Document, error)
	}
	HealthChecker func(ctx context.Context) error
)

// Server carries the HTTP handlers for the document pipeline.
type Server struct {
	ingestor Ingestor
	answerer Answerer
	exporter Exporter
	docs     DocumentReader
	health   HealthChecker

	maxUploadBytes int64
	logger         *slog.Logger
}

func New(ingestor Ingestor, answerer Answerer, exporter Exporter, docs DocumentReader, health HealthChecker, maxUploadBytes int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &Server{
		ingestor:       ingestor,
		answerer:       answerer,
		exporter:       exporter,
		docs:           docs,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

type uploadResponse struct {
	Document *entity.Document `json:"document"`
	JobID    string           `json:"job_id"`
	Degraded bool             `json:"degraded"`
	Warning  string           `json:"warning,omitempty"`
}

// handleUpload accepts a multipart form with a single "file" field and runs
// the full ingestion pipeline synchronously.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
				"detail": fmt.Sprintf("upload exceeds the %d byte limit", maxErr.Limit),
				"code":   string(common.KindInvalidInput),
			})
			return
		}
		writeError(w, r, common.E(common.KindInvalidInput, `multipart field "file" is required`, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, common.E(common.KindInvalidInput, "failed to read upload", err))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	res, err := s.ingestor.Ingest(r.Context(), pipeline.Upload{
		Filename: filepath.Base(header.Filename),
		MIMEType: mimeType,
		Data:     data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Document: res.Document,
		JobID:    res.JobID.String(),
		Degraded: res.Degraded,
		Warning:  res.Warning,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*entity.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, r, common.E(common.KindInvalidInput, "document id must be an integer", err))
		return
	}

	doc, err := s.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	res, err := s.answerer.Answer(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.DocumentHistoryXLSX(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="medical-documents.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write export response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health(r.Context()); err != nil {
		writeError(w, r, common.E(common.KindServiceUnavailable, "database unreachable", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
