package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/notestore/internal/mcpserver"
	"github.com/starford/notestore/internal/notedb"
	"github.com/starford/notestore/internal/storage"
	"github.com/starford/notestore/internal/vault"
)

// withDB opens the store, runs fn and closes the store again.
func withDB(ctx context.Context, opts []Option, fn func(*application, *slog.Logger, *notedb.DB) error) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	logger := NewLogger(app.config.App, app.logOut)
	slog.SetDefault(logger)

	store, db, err := openDB(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(app, logger, db)
}

// RunRepair runs one repair pass and writes the report as JSON to out.
func RunRepair(ctx context.Context, out io.Writer, opts ...Option) error {
	return withDB(ctx, opts, func(_ *application, _ *slog.Logger, db *notedb.DB) error {
		report, err := db.Repair(ctx)
		if err != nil {
			return fmt.Errorf("repair: %w", err)
		}
		return writeReport(out, report)
	})
}

// RunImport loads every Markdown file under dir into the store.
func RunImport(ctx context.Context, dir string, out io.Writer, opts ...Option) error {
	return withDB(ctx, opts, func(_ *application, logger *slog.Logger, db *notedb.DB) error {
		src, err := storage.NewFS(dir)
		if err != nil {
			return fmt.Errorf("open vault: %w", err)
		}
		report, err := vault.Import(ctx, db, src, logger)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		return writeReport(out, report)
	})
}

// RunExport writes every live note to dir as Markdown, creating dir when missing.
func RunExport(ctx context.Context, dir string, prune bool, out io.Writer, opts ...Option) error {
	return withDB(ctx, opts, func(_ *application, logger *slog.Logger, db *notedb.DB) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create vault dir: %w", err)
		}
		dst, err := storage.NewFS(dir)
		if err != nil {
			return fmt.Errorf("open vault: %w", err)
		}
		report, err := vault.Export(ctx, db, dst, vault.ExportOptions{Prune: prune}, logger)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		return writeReport(out, report)
	})
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	return withDB(ctx, opts, func(app *application, logger *slog.Logger, db *notedb.DB) error {
		logger.Info("MCP server starting on stdio", slog.String("store_path", app.config.Store.Path))
		return mcpserver.New(db, app.version).ServeStdio()
	})
}

func writeReport(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
