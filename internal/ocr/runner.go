package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/rx-resolver/internal/common"
)

// Runner executes the external tools (poppler, tesseract). Tests swap it for a stub.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
	LookPath(name string) (string, error)
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	log := r.logger.With("req_id", common.RequestIDFromContext(ctx), "tool", filepath.Base(name), "argc", len(args))
	start := time.Now()

	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &out, &errb
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		log.Debug("ocr.exec.ok", "elapsed_ms", elapsed, "stdout_bytes", out.Len())
	case ctx.Err() != nil:
		// the tool was killed because the attempt ran out of time
		log.Warn("ocr.exec.cancelled", "elapsed_ms", elapsed, "error", ctx.Err())
		err = ctx.Err()
	case errors.As(err, &exitErr):
		log.Warn("ocr.exec.exit", "elapsed_ms", elapsed, "code", exitErr.ExitCode(), "stderr", truncate(errb.String(), 8<<10))
	default:
		log.Error("ocr.exec.failed", "elapsed_ms", elapsed, "error", err)
	}
	return out.Bytes(), errb.Bytes(), err
}

func (execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
