// Package fallback runs an ordered list of strategies, moving to the next one
// whenever an attempt fails or produces nothing usable.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoStrategies is returned when Run is given nothing to try.
var ErrNoStrategies = errors.New("fallback: no strategies")

// Strategy is one named way of producing a value.
type Strategy[T any] struct {
	Name    string
	Attempt func(ctx context.Context) (T, error)
}

// Outcome describes which strategy produced the returned value.
type Outcome[T any] struct {
	Value    T
	Strategy string
	// Skipped lists the strategies that failed or returned nothing usable before Strategy.
	Skipped []string
}

// Run tries strategies in order. An attempt that errors, or whose value is
// rejected by usable, hands over to the next strategy. The final strategy's
// value is returned as-is even when not usable; if the final strategy errors,
// the errors of every attempt are joined into the returned error.
func Run[T any](ctx context.Context, logger *slog.Logger, strategies []Strategy[T], usable func(T) bool) (Outcome[T], error) {
	if logger == nil {
		logger = slog.Default()
	}
	var out Outcome[T]
	if len(strategies) == 0 {
		return out, ErrNoStrategies
	}

	var errs []error
	for i, s := range strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return out, errors.Join(errs...)
		}
		last := i == len(strategies)-1

		start := time.Now()
		v, err := s.Attempt(ctx)
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			if last {
				return out, errors.Join(errs...)
			}
			logger.Warn("fallback.attempt.failed", "strategy", s.Name, "next", strategies[i+1].Name, "elapsed_ms", elapsed, "err", err)
			out.Skipped = append(out.Skipped, s.Name)
			continue
		}
		if !last && usable != nil && !usable(v) {
			logger.Info("fallback.attempt.empty", "strategy", s.Name, "next", strategies[i+1].Name, "elapsed_ms", elapsed)
			out.Skipped = append(out.Skipped, s.Name)
			continue
		}

		out.Value = v
		out.Strategy = s.Name
		return out, nil
	}
	return out, errors.Join(errs...)
}
