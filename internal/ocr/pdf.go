package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
)

type pdfExtractor struct {
	pdfinfo   string
	pdftotext string
	maxPages  int
	runner    Runner
}

// available reports whether both poppler tools can be found.
func (p pdfExtractor) available() error {
	var missing []string
	for _, bin := range []string{p.pdfinfo, p.pdftotext} {
		if _, err := p.runner.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrNotInstalled, strings.Join(missing, ", "))
	}
	return nil
}

// pages returns the text of every page in order. Any failure aborts the
// document; partial text is never returned.
func (p pdfExtractor) pages(ctx context.Context, path string) ([]string, error) {
	n, err := p.pageCount(ctx, path)
	if err != nil {
		return nil, &DocumentExtractionError{Path: path, Err: err}
	}
	if p.maxPages > 0 && n > p.maxPages {
		return nil, &DocumentExtractionError{Path: path, Err: fmt.Errorf("document has %d pages, limit is %d", n, p.maxPages)}
	}

	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := strconv.Itoa(i)
		// pdftotext -enc UTF-8 -eol unix -f N -l N <path> -
		stdout, errb, err := p.runner.Run(ctx, p.pdftotext, "-enc", "UTF-8", "-eol", "unix", "-f", page, "-l", page, path, "-")
		if err != nil {
			return nil, &DocumentExtractionError{Path: path, Page: i, Err: fmt.Errorf("pdftotext: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))}
		}
		// a form feed closes every page
		out = append(out, strings.TrimRight(string(stdout), "\f"))
	}
	return out, nil
}

func (p pdfExtractor) pageCount(ctx context.Context, path string) (int, error) {
	stdout, errb, err := p.runner.Run(ctx, p.pdfinfo, path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	sc := bufio.NewScanner(bytes.NewReader(stdout))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0, fmt.Errorf("pdfinfo: bad page count %q", line)
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo: no page count in output")
}
