package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medidoc/medidoc-server/internal/answer"
	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/export"
	"github.com/medidoc/medidoc-server/internal/llm"
	"github.com/medidoc/medidoc-server/internal/llm/groq"
	"github.com/medidoc/medidoc-server/internal/ocr"
	"github.com/medidoc/medidoc-server/internal/pipeline"
	"github.com/medidoc/medidoc-server/internal/repository"
	"github.com/medidoc/medidoc-server/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	db, dialect, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	docs := repository.NewDocumentRepository(db, dialect, logger)
	jobs := repository.NewExtractJobRepository(db, dialect, logger)

	texts := ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
		TessdataDir:   cfg.OCR.TessdataDir,
	}, logger)

	chat := groq.NewClient(groq.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	processor := pipeline.NewProcessor(texts, llm.NewExtractor(chat, logger), docs, jobs, pipeline.ProcessorConfig{
		ModelName:  cfg.LLM.Model,
		OCRTimeout: cfg.OCR.Timeout,
	}, logger)

	srv := server.New(
		processor,
		answer.NewService(docs, chat, cfg.Answer, logger),
		export.NewExporter(docs, logger),
		docs,
		func(ctx context.Context) error { return repository.HealthCheck(ctx, db, 2*time.Second) },
		cfg.Server.MaxUploadBytes,
		logger,
	)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr, "model", cfg.LLM.Model)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
