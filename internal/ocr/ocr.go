// Package ocr recovers raw text from prescription documents.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
	"github.com/joseph-ayodele/rx-resolver/internal/fallback"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdfinfo   string // binary name or absolute path; if empty -> "pdfinfo"
	MaxPages  int    // 0 = no limit

	// TesseractCmd enables the local engine; empty disables it.
	TesseractCmd  string
	TesseractLang string // default "eng"
	TessdataDir   string
	PSM           int
	OEM           int

	// VisionAPIKey enables the cloud backend; empty disables it.
	VisionAPIKey string
	VisionURL    string  // endpoint override
	VisionRPS    float64 // 0 = unlimited

	Timeout      time.Duration // per cloud attempt, default 5s
	LocalTimeout time.Duration // per local attempt, default 30s
}

// Backend recognizes text in an image.
type Backend interface {
	Name() string
	// Available returns nil when the backend can be attempted.
	Available() error
	// Remote backends get Config.Timeout per attempt, local ones Config.LocalTimeout.
	Remote() bool
	Recognize(ctx context.Context, doc entity.Document) (string, error)
}

type Result struct {
	Text     string
	Kind     constants.MediaKind
	Pages    int
	Method   string // backend that produced Text
	Duration time.Duration
	Warnings []string
}

type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
	pdf    pdfExtractor
	images []Backend
}

type Option func(*Engine)

// WithRunner replaces the exec runner used for external tools.
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithImageBackends replaces the default cloud-then-local chain.
func WithImageBackends(b ...Backend) Option {
	return func(e *Engine) { e.images = b }
}

func NewEngine(cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.LocalTimeout <= 0 {
		cfg.LocalTimeout = 30 * time.Second
	}

	e := &Engine{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.images == nil {
		e.images = []Backend{
			newVisionBackend(cfg, logger),
			newLocalBackend(cfg, e.runner, logger),
		}
	}
	e.pdf = pdfExtractor{pdfinfo: cfg.Pdfinfo, pdftotext: cfg.Pdftotext, maxPages: cfg.MaxPages, runner: e.runner}
	return e
}

// RecoverText extracts the text of doc according to its declared kind.
func (e *Engine) RecoverText(ctx context.Context, doc entity.Document) (Result, error) {
	start := time.Now()
	log := e.logger.With("path", doc.Name(), "kind", doc.Kind)

	if !doc.Kind.Valid() {
		log.Error("ocr.recover.unsupported")
		return Result{Kind: doc.Kind}, fmt.Errorf("%w: %q", ErrUnsupportedMediaKind, doc.Kind)
	}
	log.Debug("ocr.recover.start")

	var (
		res Result
		err error
	)
	if doc.Kind == constants.MediaKindPDF {
		res, err = e.recoverPDF(ctx, doc)
	} else {
		res, err = e.recoverImage(ctx, doc, log)
	}
	res.Kind = doc.Kind
	res.Duration = time.Since(start)
	if err != nil {
		log.Error("ocr.recover.failed", "elapsed_ms", res.Duration.Milliseconds(), "error", err)
		return res, err
	}
	log.Info("ocr.recover.ok", "method", res.Method, "pages", res.Pages, "chars", len(res.Text), "elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}

func (e *Engine) recoverPDF(ctx context.Context, doc entity.Document) (Result, error) {
	if err := e.pdf.available(); err != nil {
		return Result{Warnings: []string{"pdftotext: " + err.Error()}}, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	path, cleanup, err := localPath(doc)
	if err != nil {
		return Result{}, &DocumentExtractionError{Path: doc.Name(), Err: err}
	}
	defer cleanup()

	pages, err := e.pdf.pages(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:   strings.TrimSpace(strings.Join(pages, "\n")),
		Pages:  len(pages),
		Method: "pdftotext",
	}, nil
}

func (e *Engine) recoverImage(ctx context.Context, doc entity.Document, log *slog.Logger) (Result, error) {
	var (
		strategies []fallback.Strategy[string]
		warnings   []string
	)
	for _, b := range e.images {
		if err := b.Available(); err != nil {
			log.Debug("ocr.backend.skip", "backend", b.Name(), "reason", err)
			warnings = append(warnings, fmt.Sprintf("%s: %v", b.Name(), err))
			continue
		}
		strategies = append(strategies, fallback.Strategy[string]{
			Name:    b.Name(),
			Attempt: e.attempt(b, doc),
		})
	}
	if len(strategies) == 0 {
		return Result{Warnings: warnings}, fmt.Errorf("%w: %s", ErrBackendUnavailable, strings.Join(warnings, "; "))
	}

	out, err := fallback.Run(ctx, log, strategies, func(s string) bool { return s != "" })
	for _, name := range out.Skipped {
		warnings = append(warnings, name+": no usable text")
	}
	if err != nil {
		return Result{Warnings: warnings}, fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}
	return Result{Text: out.Value, Pages: 1, Method: out.Strategy, Warnings: warnings}, nil
}

func (e *Engine) attempt(b Backend, doc entity.Document) func(context.Context) (string, error) {
	timeout := e.cfg.LocalTimeout
	if b.Remote() {
		timeout = e.cfg.Timeout
	}
	return func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		txt, err := b.Recognize(ctx, doc)
		return strings.TrimSpace(txt), err
	}
}
