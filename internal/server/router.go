package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Router wires the document pipeline endpoints. The trailing-slash routes
// mirror the paths the original web client calls.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/upload/", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/documents/", s.handleListDocuments).Methods(http.MethodGet)
	r.HandleFunc("/documents/{id}", s.handleGetDocument).Methods(http.MethodGet)
	r.HandleFunc("/search/", s.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	r.Use(requestLogging(s.logger))

	return cors.AllowAll().Handler(r)
}
