//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

func newLocalBackend(cfg Config, _ Runner, logger *slog.Logger) Backend {
	return &gosseractBackend{
		lang:     cfg.TesseractLang,
		tessdata: cfg.TessdataDir,
		psm:      cfg.PSM,
		logger:   logger,
	}
}

// gosseractBackend calls libtesseract in-process.
type gosseractBackend struct {
	lang     string
	tessdata string
	psm      int
	logger   *slog.Logger
}

func (g *gosseractBackend) Name() string { return "gosseract" }

func (g *gosseractBackend) Remote() bool { return false }

// Available is always nil: the engine is linked into the binary.
func (g *gosseractBackend) Available() error { return nil }

func (g *gosseractBackend) Recognize(ctx context.Context, doc entity.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := doc.Bytes()
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer func() {
		if cerr := client.Close(); cerr != nil {
			g.logger.Warn("gosseract close failed", "error", cerr)
		}
	}()

	if g.tessdata != "" {
		if err := client.SetTessdataPrefix(g.tessdata); err != nil {
			return "", fmt.Errorf("gosseract: tessdata: %w", err)
		}
	}
	if err := client.SetLanguage(g.lang); err != nil {
		return "", fmt.Errorf("gosseract: language: %w", err)
	}
	if g.psm > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(g.psm)); err != nil {
			return "", fmt.Errorf("gosseract: psm: %w", err)
		}
	}
	if err := client.SetImageFromBytes(b); err != nil {
		return "", fmt.Errorf("gosseract: image: %w", err)
	}
	txt, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	return Normalize(txt), nil
}
