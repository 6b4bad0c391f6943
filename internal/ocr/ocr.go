package ocr

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/medidoc/medidoc-server/constants"
	"github.com/medidoc/medidoc-server/internal/common"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir string
}

type Result struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract turns an uploaded blob into plain text, picking a strategy from the
// declared MIME type. Whitespace-only output fails with EMPTY_EXTRACTION so
// callers can reject degenerate uploads distinctly from processing errors.
// OCR failures are deterministic for the same bytes, so there is no retry here.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (Result, error) {
	start := time.Now()

	format := constants.MapMIMEToFormat(mimeType)
	if format == "" {
		e.logger.Error("unsupported upload mime type", "mime_type", mimeType)
		return Result{}, common.Errorf(common.KindUnsupportedFormat, "unsupported mime type: %q", mimeType)
	}
	e.logger.Debug("starting ocr extraction", "mime_type", mimeType, "format", format, "bytes", len(data))

	path, cleanup, err := writeTemp(data, format)
	if err != nil {
		return Result{}, common.E(common.KindInternal, "stage upload bytes", err)
	}
	defer cleanup()

	var res Result
	switch format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	default:
		res, err = e.extractImage(ctx, path)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	res.Text = Normalize(res.Text)
	if !hasInk(res.Text) {
		e.logger.Warn("ocr produced no text", "format", format, "pages", res.Pages)
		return res, common.Errorf(common.KindEmptyExtraction, "no text recognized in %d page(s)", res.Pages)
	}
	return res, nil
}

func writeTemp(data []byte, format string) (string, func(), error) {
	ext := ".png"
	if format == constants.PDF {
		ext = ".pdf"
	}
	f, err := os.CreateTemp("", "mdoc-up-*"+ext)
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return filepath.Clean(path), cleanup, nil
}
