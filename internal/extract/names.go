// Package extract turns recovered prescription text into candidate medicine names.
package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/fallback"
	"github.com/joseph-ayodele/rx-resolver/internal/llm"
)

const (
	MethodNone      = "none"
	MethodHeuristic = "heuristic"
)

type Config struct {
	Temperature *float32      // nil means 0.3; zero is honoured
	MaxTokens   int           // default 500
	Timeout     time.Duration // per service call, default 10s
}

// Result holds the candidates in extraction order and the path that produced them.
type Result struct {
	Names  []string
	Method string
}

// Extractor asks the configured service first and falls back to Heuristic.
// A nil client means the service is not configured.
type Extractor struct {
	client llm.ChatClient
	cfg    Config
	logger *slog.Logger
}

func NewExtractor(client llm.ChatClient, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Temperature == nil {
		t := float32(0.3)
		cfg.Temperature = &t
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Extractor{client: client, cfg: cfg, logger: logger}
}

// ExtractNames never fails: service errors and empty replies degrade to the heuristic.
func (e *Extractor) ExtractNames(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Names: []string{}, Method: MethodNone}
	}
	log := e.logger.With("req_id", common.RequestIDFromContext(ctx), "text_len", len(text))

	var strategies []fallback.Strategy[[]string]
	if e.client != nil {
		strategies = append(strategies, fallback.Strategy[[]string]{
			Name:    "llm:" + e.client.Provider(),
			Attempt: func(ctx context.Context) ([]string, error) { return e.primary(ctx, text, log) },
		})
	}
	strategies = append(strategies, fallback.Strategy[[]string]{
		Name:    MethodHeuristic,
		Attempt: func(context.Context) ([]string, error) { return Heuristic(text), nil },
	})

	out, err := fallback.Run(ctx, log, strategies, func(n []string) bool { return len(n) > 0 })
	if err != nil {
		// only a cancelled ctx gets here; the heuristic needs no I/O
		log.Warn("extract.cancelled", "error", err)
		return Result{Names: Heuristic(text), Method: MethodHeuristic}
	}
	log.Info("extract.done", "method", out.Strategy, "count", len(out.Value))
	return Result{Names: out.Value, Method: out.Strategy}
}

func (e *Extractor) primary(ctx context.Context, text string, log *slog.Logger) ([]string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	log.Debug("extract.primary.start", "provider", e.client.Provider())
	reply, err := e.client.Complete(ctx, llm.Request{
		System:      llm.SystemPrompt,
		User:        llm.BuildUserPrompt(text),
		Temperature: *e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err != nil {
		log.Warn("extract.primary.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	names, err := llm.ParseNameList(reply)
	if err != nil {
		log.Warn("extract.primary.unparseable", "error", err, "reply_len", len(reply))
		return nil, err
	}
	log.Debug("extract.primary.ok", "count", len(names), "elapsed_ms", time.Since(start).Milliseconds())
	return names, nil
}
