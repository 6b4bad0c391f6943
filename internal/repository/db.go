package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // sqlite driver (cgo-free)

	"github.com/medidoc/medidoc-server/internal/common"
)

// Dialects supported by the store. The DSN scheme picks the driver: a
// postgres:// URL opens through pgx, anything else is treated as a sqlite
// file path (the original deployment shape).
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Open connects to the document store and runs migrations.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*sql.DB, string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialect := DialectSQLite
	driver := "sqlite"
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		dialect = DialectPostgres
		driver = "pgx"
	}

	logger.Info("connecting to database", "dialect", dialect)
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return nil, "", err
	}
	if dialect == DialectSQLite {
		// sqlite allows one writer; a single pooled conn serializes id
		// allocation without SQLITE_BUSY churn.
		db.SetMaxOpenConns(1)
	}

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("database ping failed", "error", err)
		_ = db.Close()
		return nil, "", err
	}

	if err := Migrate(ctx, db, dialect); err != nil {
		logger.Error("database migration failed", "error", err)
		_ = db.Close()
		return nil, "", err
	}

	logger.Info("successfully connected to database")
	return db, dialect, nil
}

// Migrate creates the schema if missing. Records are append-only, so there is
// no destructive migration to guard against.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	documentsDDL := `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL,
	category TEXT NOT NULL,
	document_date TEXT,
	doctor_name TEXT,
	hospital_name TEXT,
	summary TEXT,
	raw_text TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`
	if dialect == DialectPostgres {
		documentsDDL = `
CREATE TABLE IF NOT EXISTS documents (
	id BIGSERIAL PRIMARY KEY,
	filename TEXT NOT NULL,
	category TEXT NOT NULL,
	document_date TEXT,
	doctor_name TEXT,
	hospital_name TEXT,
	summary TEXT,
	raw_text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`
	}

	jobsDDL := `
CREATE TABLE IF NOT EXISTS extract_jobs (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	format TEXT NOT NULL,
	document_id BIGINT,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	status TEXT NOT NULL,
	error_message TEXT,
	needs_review BOOLEAN NOT NULL DEFAULT FALSE,
	ocr_method TEXT,
	pages INTEGER NOT NULL DEFAULT 0,
	model_name TEXT,
	extracted_json TEXT
)`

	for _, ddl := range []string{documentsDDL, jobsDDL} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// HealthCheck pings the store with a bounded deadline.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}

// rebind converts ?-style placeholders to the $n form postgres expects.
// Queries in this package are written with ? and rebound per dialect.
func rebind(dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
