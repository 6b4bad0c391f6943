package export

import (
	"context"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/repository"
)

const sheetName = "Documents"

var headers = []string{"ID", "Filename", "Category", "Document Date", "Doctor", "Hospital", "Summary", "Uploaded At"}

// Exporter renders the document history as a spreadsheet for sharing with a
// clinician. Raw OCR text is deliberately left out.
type Exporter struct {
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewExporter(docs repository.DocumentRepository, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{docs: docs, logger: logger}
}

// DocumentHistoryXLSX returns an xlsx workbook with one row per stored
// document, in the same order the list endpoint uses.
func (e *Exporter) DocumentHistoryXLSX(ctx context.Context) ([]byte, error) {
	records, err := e.docs.List(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, common.E(common.KindInternal, "create export sheet", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, common.E(common.KindInternal, "drop default sheet", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, common.E(common.KindInternal, "write export header", err)
		}
	}

	for i, d := range records {
		row := []any{
			d.ID,
			d.Filename,
			string(d.Category),
			deref(d.DocumentDate),
			deref(d.DoctorName),
			deref(d.HospitalName),
			deref(d.Summary),
			d.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, common.E(common.KindInternal, "write export row", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.E(common.KindInternal, "serialize export", err)
	}
	e.logger.Info("export.xlsx.ok", "rows", len(records), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
