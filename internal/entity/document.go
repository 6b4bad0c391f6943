package entity

import (
	"time"

	"github.com/medidoc/medidoc-server/constants"
)

// Document is the persisted record for a processed upload. Records are
// immutable once stored; a correction is a new record.
type Document struct {
	ID           int64              `json:"id"`
	Filename     string             `json:"filename"`
	Category     constants.Category `json:"category"`
	DocumentDate *string            `json:"document_date,omitempty"` // YYYY-MM-DD
	DoctorName   *string            `json:"doctor_name,omitempty"`
	HospitalName *string            `json:"hospital_name,omitempty"`
	Summary      *string            `json:"summary,omitempty"`
	RawText      string             `json:"-"`
	CreatedAt    time.Time          `json:"created_at"`
}

// DocumentRef is the citation shape returned by the answer engine.
type DocumentRef struct {
	Filename string             `json:"filename"`
	Category constants.Category `json:"category"`
	Summary  string             `json:"summary"`
}

// Ref returns the citation view of a document.
func (d *Document) Ref() DocumentRef {
	summary := ""
	if d.Summary != nil {
		summary = *d.Summary
	}
	return DocumentRef{
		Filename: d.Filename,
		Category: d.Category,
		Summary:  summary,
	}
}
