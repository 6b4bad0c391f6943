package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medidoc/medidoc-server/constants"
	"github.com/medidoc/medidoc-server/internal/answer"
	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/entity"
	"github.com/medidoc/medidoc-server/internal/pipeline"
)

type stubIngestor struct {
	res    *pipeline.IngestResult
	err    error
	lastUp pipeline.Upload
}

func (s *stubIngestor) Ingest(_ context.Context, up pipeline.Upload) (*pipeline.IngestResult, error) {
	s.lastUp = up
	return s.res, s.err
}

type stubAnswerer struct {
	res *answer.Result
	err error
}

func (s *stubAnswerer) Answer(_ context.Context, query string) (*answer.Result, error) {
	if query == "" {
		return nil, common.E(common.KindInvalidInput, "query must not be blank", nil)
	}
	return s.res, s.err
}

type stubExporter struct {
	data []byte
	err  error
}

func (s *stubExporter) DocumentHistoryXLSX(context.Context) ([]byte, error) { return s.data, s.err }

type stubDocs struct {
	docs []*entity.Document
	byID map[int64]*entity.Document
}

func (s *stubDocs) GetByID(_ context.Context, id int64) (*entity.Document, error) {
	if d, ok := s.byID[id]; ok {
		return d, nil
	}
	return nil, common.Errorf(common.KindNotFound, "document %d not found", id)
}

func (s *stubDocs) List(context.Context) ([]*entity.Document, error) { return s.docs, nil }

func newTestServer(ing Ingestor, ans Answerer, exp Exporter, docs DocumentReader, health HealthChecker) http.Handler {
	if ing == nil {
		ing = &stubIngestor{}
	}
	if ans == nil {
		ans = &stubAnswerer{}
	}
	if exp == nil {
		exp = &stubExporter{}
	}
	if docs == nil {
		docs = &stubDocs{}
	}
	if health == nil {
		health = func(context.Context) error { return nil }
	}
	return New(ing, ans, exp, docs, health, 0, nil).Router()
}

func multipartUpload(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUploadCreatesDocument(t *testing.T) {
	jobID := uuid.New()
	ing := &stubIngestor{res: &pipeline.IngestResult{
		Document: &entity.Document{ID: 1, Filename: "cbc.pdf", Category: constants.LabReport},
		JobID:    jobID,
	}}
	handler := newTestServer(ing, nil, nil, nil, nil)

	body, contentType := multipartUpload(t, "file", "cbc.pdf", "application/pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "cbc.pdf", ing.lastUp.Filename)
	assert.Equal(t, "application/pdf", ing.lastUp.MIMEType)
	assert.Equal(t, []byte("%PDF-1.4"), ing.lastUp.Data)

	var got uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, jobID.String(), got.JobID)
	assert.False(t, got.Degraded)
	assert.Equal(t, constants.LabReport, got.Document.Category)
}

func TestUploadMissingFileField(t *testing.T) {
	handler := newTestServer(nil, nil, nil, nil, nil)

	body, contentType := multipartUpload(t, "attachment", "cbc.pdf", "application/pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}

func TestUploadTooLargeReturns413(t *testing.T) {
	handler := New(&stubIngestor{}, &stubAnswerer{}, &stubExporter{}, &stubDocs{},
		func(context.Context) error { return nil }, 16, nil).Router()

	body, contentType := multipartUpload(t, "file", "big.pdf", "application/pdf", bytes.Repeat([]byte("x"), 2048))
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "limit")
}

func TestUploadErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unsupported format", common.Errorf(common.KindUnsupportedFormat, "unsupported mime type"), http.StatusBadRequest, "UNSUPPORTED_FORMAT"},
		{"empty extraction", common.Errorf(common.KindEmptyExtraction, "no text recognized"), http.StatusBadRequest, "EMPTY_EXTRACTION"},
		{"model outage", common.Errorf(common.KindServiceUnavailable, "groq: status 503"), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestServer(&stubIngestor{err: tc.err}, nil, nil, nil, nil)

			body, contentType := multipartUpload(t, "file", "f.pdf", "application/pdf", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/upload/", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp["code"])
		})
	}
}

func TestListDocuments(t *testing.T) {
	docs := &stubDocs{docs: []*entity.Document{
		{ID: 2, Filename: "new.pdf", Category: constants.LabReport},
		{ID: 1, Filename: "old.pdf", Category: constants.Prescription},
	}}
	handler := newTestServer(nil, nil, nil, docs, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Documents []*entity.Document `json:"documents"`
		Count     int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "new.pdf", resp.Documents[0].Filename)
}

func TestGetDocument(t *testing.T) {
	docs := &stubDocs{byID: map[int64]*entity.Document{
		7: {ID: 7, Filename: "cbc.pdf", Category: constants.LabReport},
	}}
	handler := newTestServer(nil, nil, nil, docs, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/7", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/documents/99", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/documents/abc", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch(t *testing.T) {
	ans := &stubAnswerer{res: &answer.Result{
		Answer:  "Your hemoglobin was 13.5.",
		Sources: []entity.DocumentRef{{Filename: "cbc.pdf", Category: constants.LabReport}},
	}}
	handler := newTestServer(nil, ans, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/search/?query=hemoglobin", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp answer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Your hemoglobin was 13.5.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "cbc.pdf", resp.Sources[0].Filename)
}

func TestSearchMissingQuery(t *testing.T) {
	handler := newTestServer(nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/search/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEmptyCorpus(t *testing.T) {
	ans := &stubAnswerer{err: common.E(common.KindEmptyCorpus, "no documents uploaded yet", nil)}
	handler := newTestServer(nil, ans, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/search/?query=anything", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMPTY_CORPUS")
}

func TestExport(t *testing.T) {
	handler := newTestServer(nil, nil, &stubExporter{data: []byte("PKxlsx")}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "medical-documents.xlsx")
	assert.Equal(t, []byte("PKxlsx"), rec.Body.Bytes())
}

func TestHealth(t *testing.T) {
	handler := newTestServer(nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := newTestServer(nil, nil, nil, nil, func(context.Context) error {
		return context.DeadlineExceeded
	})
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
