package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/extract"
	"github.com/joseph-ayodele/rx-resolver/internal/llm"
	"github.com/joseph-ayodele/rx-resolver/internal/ocr"
	"github.com/joseph-ayodele/rx-resolver/internal/pipeline"
	"github.com/joseph-ayodele/rx-resolver/internal/repository"
)

// app holds what a command needs; the database is opened on demand.
type app struct {
	cfg    *common.Config
	logger *slog.Logger

	db            *repository.DB
	inventory     repository.InventoryRepository
	prescriptions repository.PrescriptionRepository

	closers []io.Closer
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger, err := newLogger(cmd.ErrOrStderr(), level)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

// newLogger writes text records without timestamps.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, common.InvalidArgumentErrorf("log level %q: %v", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})), nil
}

// openDB connects, migrates and builds the repositories.
func (a *app) openDB(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	db, err := repository.Open(ctx, repository.Config{
		DSN:             a.cfg.Database.DSN,
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime.Duration,
		MaxConnIdleTime: a.cfg.Database.MaxConnIdleTime.Duration,
		DialTimeout:     a.cfg.Database.DialTimeout.Duration,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return err
	}
	a.db = db
	a.inventory = repository.NewInventoryRepository(db, a.logger)
	a.prescriptions = repository.NewPrescriptionRepository(db, a.logger)
	return nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) newEngine() *ocr.Engine {
	c := a.cfg.OCR
	return ocr.NewEngine(ocr.Config{
		Pdftotext:     c.PdftotextCmd,
		Pdfinfo:       c.PdfinfoCmd,
		MaxPages:      c.MaxPages,
		TesseractCmd:  c.TesseractCmd,
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		PSM:           c.PSM,
		OEM:           c.OEM,
		VisionAPIKey:  c.VisionAPIKey,
		VisionURL:     c.VisionURL,
		VisionRPS:     c.VisionRPS,
		Timeout:       c.Timeout.Duration,
		LocalTimeout:  c.LocalTimeout.Duration,
	}, a.logger)
}

// newExtractor runs heuristic-only when the service has no credentials.
func (a *app) newExtractor(ctx context.Context) (*extract.Extractor, error) {
	c := a.cfg.LLM
	client, err := llm.NewClient(ctx, llm.Config{
		Provider:          c.Provider,
		APIKey:            c.APIKey,
		Model:             c.Model,
		BaseURL:           c.BaseURL,
		MaxTokens:         c.MaxTokens,
		Timeout:           c.Timeout.Duration,
		RequestsPerSecond: c.RequestsPerSecond,
	}, a.logger)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		a.logger.Info("llm.disabled", "reason", err)
		client = nil
	case err != nil:
		return nil, err
	}
	if cl, ok := client.(io.Closer); ok {
		a.closers = append(a.closers, cl)
	}
	temperature := c.Temperature
	return extract.NewExtractor(client, extract.Config{
		Temperature: &temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout.Duration,
	}, a.logger), nil
}

// newProcessor builds the pipeline. The database must be open; store=false
// leaves prescriptions unrecorded.
func (a *app) newProcessor(ctx context.Context, store bool) (*pipeline.Processor, error) {
	names, err := a.newExtractor(ctx)
	if err != nil {
		return nil, err
	}
	var ps pipeline.PrescriptionStore
	if store {
		ps = a.prescriptions
	}
	return pipeline.NewProcessor(a.logger, a.newEngine(), names, a.inventory, ps), nil
}

func writeFile(path string, b []byte) error {
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
