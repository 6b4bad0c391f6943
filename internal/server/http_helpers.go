package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/medidoc/medidoc-server/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps a classified error onto a status code and a {"detail": ...}
// body. Unclassified errors surface as an opaque 500 so internals never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := common.KindOf(err)
	status := common.HTTPStatus(kind)

	detail := "internal server error"
	var ae *common.Error
	if errors.As(err, &ae) {
		detail = ae.Message
	}

	logger := slog.Default()
	if id := common.RequestIDFromContext(r.Context()); id != "" {
		logger = logger.With("request_id", id)
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "kind", kind, "error", err)
	} else {
		logger.Warn("request rejected", "path", r.URL.Path, "kind", kind, "detail", detail)
	}

	writeJSON(w, status, map[string]any{"detail": detail, "code": string(kind)})
}
