package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/medidoc/medidoc-server/constants"
	"github.com/medidoc/medidoc-server/internal/common"
)

// extractPDF rasterizes each page to PNG and OCRs the pages in order.
// Page texts are joined with a form-feed so the boundary survives downstream.
func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "mdoc-pp-*")
	if err != nil {
		return Result{SourceType: constants.PDF}, common.E(common.KindInternal, "rasterize workspace", err)
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return Result{SourceType: constants.PDF, Warnings: []string{string(errb)}},
			common.E(common.KindInternal, "pdf rasterize", err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return Result{SourceType: constants.PDF},
			common.Errorf(common.KindEmptyExtraction, "pdftoppm rendered no pages")
	}

	var b strings.Builder
	var warns []string
	for i, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img)
		if err != nil {
			// A page that fails to OCR is a processing error, not a blank
			// document; propagating keeps the cause (e.g. a killed subprocess
			// on timeout) classifiable upstream.
			return Result{SourceType: constants.PDF, Pages: len(matches), Warnings: append(warns, w...)},
				common.E(common.KindInternal, fmt.Sprintf("ocr page %d of %d", i+1, len(matches)), err)
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
		warns = append(warns, w...)
	}

	return Result{
		Text:       b.String(),
		Pages:      len(matches),
		SourceType: constants.PDF,
		Method:     "pdf-ocr",
		Language:   e.cfg.TesseractLang,
		Warnings:   warns,
	}, nil
}
