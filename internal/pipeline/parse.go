package pipeline

import (
	"context"
	"time"

	"github.com/medidoc/medidoc-server/constants"
	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/entity"
	"github.com/medidoc/medidoc-server/internal/llm"
)

// parseFields runs structured extraction and maps the outcome onto a document
// record. A malformed model response is not fatal: the record is kept with
// category Other and no summary, flagged for review. Transport failures
// propagate unchanged.
func (p *Processor) parseFields(ctx context.Context, filename, text string) (doc *entity.Document, raw []byte, degraded, needsReview bool, err error) {
	ext, err := p.fields.ExtractFields(ctx, llm.ExtractRequest{RawText: text, FilenameHint: filename})
	raw = ext.Raw
	if err != nil {
		if common.KindOf(err) != common.KindExtractionFormat {
			return nil, raw, false, false, err
		}
		p.logger.Warn("pipeline.parse.degraded", "filename", filename, "error", err)
		doc = &entity.Document{
			Filename: filename,
			Category: constants.Other,
			RawText:  text,
		}
		return doc, raw, true, true, nil
	}
	fields := ext.Fields

	// The sanitizer already resolved near-miss labels before schema
	// validation; a label that only matched through a synonym is kept but
	// flagged for review.
	needsReview = ext.LenientCategory()
	category, known := constants.Canonicalize(fields.Category)
	if !known {
		p.logger.Warn("pipeline.parse.unknown_category", "filename", filename, "category", fields.Category)
		category = constants.Other
		needsReview = true
	}

	doc = &entity.Document{
		Filename:     filename,
		Category:     category,
		DoctorName:   optional(fields.DoctorName),
		HospitalName: optional(fields.HospitalName),
		Summary:      optional(fields.Summary),
		RawText:      text,
	}

	if fields.DocumentDate != "" {
		// The schema enforces the YYYY-MM-DD shape; this rejects dates that
		// match the pattern but do not exist on the calendar.
		if _, perr := time.Parse("2006-01-02", fields.DocumentDate); perr != nil {
			p.logger.Warn("pipeline.parse.bad_date", "filename", filename, "document_date", fields.DocumentDate)
			needsReview = true
		} else {
			doc.DocumentDate = optional(fields.DocumentDate)
		}
	}

	return doc, raw, false, needsReview, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
