package ocr

import (
	"context"
	"fmt"
	"strconv"

	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

// tesseractCLI runs the tesseract executable.
type tesseractCLI struct {
	bin      string
	lang     string
	tessdata string
	psm      int
	oem      int
	runner   Runner
}

func (t *tesseractCLI) Name() string { return "tesseract" }

func (t *tesseractCLI) Remote() bool { return false }

func (t *tesseractCLI) Available() error {
	if t.bin == "" {
		return ErrNotConfigured
	}
	if _, err := t.runner.LookPath(t.bin); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotInstalled, t.bin, err)
	}
	return nil
}

func (t *tesseractCLI) Recognize(ctx context.Context, doc entity.Document) (string, error) {
	path, cleanup, err := localPath(doc)
	if err != nil {
		return "", err
	}
	defer cleanup()

	// tesseract <file> stdout -l <lang>
	args := []string{path, "stdout", "-l", t.lang}
	if t.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(t.psm))
	}
	if t.oem > 0 {
		args = append(args, "--oem", strconv.Itoa(t.oem))
	}
	if t.tessdata != "" {
		args = append(args, "--tessdata-dir", t.tessdata)
	}

	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return Normalize(string(out)), nil
}
