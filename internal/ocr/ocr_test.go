package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers commands through a handler and records every call.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	handle  func(name string, args []string) ([]byte, []byte, error)
	missing map[string]bool
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()
	return f.handle(name, args)
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

// stubBackend is a scripted image backend.
type stubBackend struct {
	name   string
	remote bool
	avail  error
	text  string
	err   error
	block bool
	calls int
}

func (s *stubBackend) Name() string     { return s.name }
func (s *stubBackend) Available() error { return s.avail }
func (s *stubBackend) Remote() bool     { return s.remote }
func (s *stubBackend) Recognize(ctx context.Context, _ entity.Document) (string, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func pdfRunner(pages []string, failPage int) *fakeRunner {
	return &fakeRunner{handle: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdfinfo":
			return []byte(fmt.Sprintf("Title: rx\nPages:          %d\nEncrypted: no\n", len(pages))), nil, nil
		case "pdftotext":
			var page int
			for i, a := range args {
				if a == "-f" {
					_, _ = fmt.Sscanf(args[i+1], "%d", &page)
				}
			}
			if page == failPage {
				return nil, []byte("Syntax Error: broken xref"), errors.New("exit status 1")
			}
			return []byte(pages[page-1] + "\f"), nil, nil
		}
		return nil, nil, fmt.Errorf("unexpected command %s", name)
	}}
}

func image() entity.Document {
	return entity.Document{Path: "rx.jpg", Kind: constants.MediaKindImageRaster}
}

func TestRecoverText_UnsupportedKind(t *testing.T) {
	cloud := &stubBackend{name: "cloud", text: "x"}
	runner := &fakeRunner{handle: func(string, []string) ([]byte, []byte, error) { return nil, nil, nil }}
	e := NewEngine(Config{}, nil, WithRunner(runner), WithImageBackends(cloud))

	_, err := e.RecoverText(t.Context(), entity.Document{Path: "rx.tiff", Kind: "TIFF"})
	require.ErrorIs(t, err, ErrUnsupportedMediaKind)
	assert.Zero(t, cloud.calls)
	assert.Empty(t, runner.calls)
}

func TestRecoverText_PDFJoinsPagesInOrder(t *testing.T) {
	pages := []string{"Dr. Rao Clinic\nParacetamol 500mg", "Ibuprofen 400mg", "Notes"}
	runner := pdfRunner(pages, 0)
	e := NewEngine(Config{}, nil, WithRunner(runner))

	res, err := e.RecoverText(t.Context(), entity.Document{Path: "rx.pdf", Kind: constants.MediaKindPDF})
	require.NoError(t, err)
	assert.Equal(t, strings.Join(pages, "\n"), res.Text)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, "pdftotext", res.Method)

	require.Len(t, runner.calls, 4)
	assert.Equal(t, []string{"-enc", "UTF-8", "-eol", "unix", "-f", "2", "-l", "2", "rx.pdf", "-"}, runner.calls[2].args)
}

func TestRecoverText_PDFPageFailureAbortsDocument(t *testing.T) {
	runner := pdfRunner([]string{"one", "two", "three"}, 2)
	e := NewEngine(Config{}, nil, WithRunner(runner))

	res, err := e.RecoverText(t.Context(), entity.Document{Path: "rx.pdf", Kind: constants.MediaKindPDF})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDocumentExtraction)
	assert.Empty(t, res.Text)

	var dee *DocumentExtractionError
	require.ErrorAs(t, err, &dee)
	assert.Equal(t, 2, dee.Page)
	assert.Len(t, runner.calls, 3, "page 3 is never read")
}

func TestRecoverText_PDFMaxPages(t *testing.T) {
	runner := pdfRunner([]string{"a", "b", "c"}, 0)
	e := NewEngine(Config{MaxPages: 2}, nil, WithRunner(runner))

	_, err := e.RecoverText(t.Context(), entity.Document{Path: "rx.pdf", Kind: constants.MediaKindPDF})
	assert.ErrorIs(t, err, ErrDocumentExtraction)
}

func TestRecoverText_PDFFromMemory(t *testing.T) {
	runner := pdfRunner([]string{"only page"}, 0)
	e := NewEngine(Config{}, nil, WithRunner(runner))

	res, err := e.RecoverText(t.Context(), entity.Document{Data: []byte("%PDF-1.4"), Kind: constants.MediaKindPDF})
	require.NoError(t, err)
	assert.Equal(t, "only page", res.Text)
	assert.True(t, strings.HasSuffix(runner.calls[0].args[0], ".pdf"))
}

func TestRecoverText_CloudFirst(t *testing.T) {
	cloud := &stubBackend{name: "cloud", text: "  Paracetamol\n"}
	local := &stubBackend{name: "local", text: "other"}
	e := NewEngine(Config{}, nil, WithImageBackends(cloud, local))

	res, err := e.RecoverText(t.Context(), image())
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", res.Text)
	assert.Equal(t, "cloud", res.Method)
	assert.Zero(t, local.calls)
}

func TestRecoverText_CloudFailureFallsThroughSilently(t *testing.T) {
	cases := map[string]*stubBackend{
		"error":          {name: "cloud", err: errors.New("503 from upstream")},
		"empty":          {name: "cloud", text: "   "},
		"not configured": {name: "cloud", avail: ErrNotConfigured},
	}
	for name, cloud := range cases {
		t.Run(name, func(t *testing.T) {
			local := &stubBackend{name: "local", text: "Ibuprofen"}
			e := NewEngine(Config{}, nil, WithImageBackends(cloud, local))

			res, err := e.RecoverText(t.Context(), image())
			require.NoError(t, err)
			assert.Equal(t, "Ibuprofen", res.Text)
			assert.Equal(t, "local", res.Method)
			assert.NotEmpty(t, res.Warnings)
		})
	}
}

func TestRecoverText_CloudTimeoutFallsThrough(t *testing.T) {
	cloud := &stubBackend{name: "cloud", remote: true, block: true}
	local := &stubBackend{name: "local", text: "Cetirizine"}
	e := NewEngine(Config{Timeout: 20 * time.Millisecond, LocalTimeout: time.Hour}, nil, WithImageBackends(cloud, local))

	res, err := e.RecoverText(t.Context(), image())
	require.NoError(t, err)
	assert.Equal(t, "Cetirizine", res.Text)
	assert.Equal(t, "local", res.Method)
	assert.Equal(t, 1, cloud.calls)
}

func TestRecoverText_LocalTimeout(t *testing.T) {
	local := &stubBackend{name: "local", block: true}
	e := NewEngine(Config{Timeout: time.Hour, LocalTimeout: 20 * time.Millisecond}, nil, WithImageBackends(local))

	_, err := e.RecoverText(t.Context(), image())
	require.ErrorIs(t, err, ErrRecognitionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecoverText_PDFToolsMissing(t *testing.T) {
	runner := pdfRunner([]string{"page"}, 0)
	runner.missing = map[string]bool{"pdfinfo": true, "pdftotext": true}
	e := NewEngine(Config{}, nil, WithRunner(runner))

	res, err := e.RecoverText(t.Context(), entity.Document{Path: "rx.pdf", Kind: constants.MediaKindPDF})
	require.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, ErrNotInstalled)
	assert.NotErrorIs(t, err, ErrDocumentExtraction)
	assert.Empty(t, res.Text)
	assert.Empty(t, runner.calls, "no tool is run when poppler is missing")
}

func TestRecoverText_EmptyLocalResultIsValid(t *testing.T) {
	local := &stubBackend{name: "local", text: "\n \n"}
	e := NewEngine(Config{}, nil, WithImageBackends(local))

	res, err := e.RecoverText(t.Context(), image())
	require.NoError(t, err)
	assert.Equal(t, "", res.Text)
}

func TestRecoverText_AllBackendsFail(t *testing.T) {
	cloudErr := errors.New("quota exceeded")
	localErr := errors.New("tesseract crashed")
	cloud := &stubBackend{name: "cloud", err: cloudErr}
	local := &stubBackend{name: "local", err: localErr}
	e := NewEngine(Config{}, nil, WithImageBackends(cloud, local))

	_, err := e.RecoverText(t.Context(), image())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecognitionFailed)
	assert.ErrorIs(t, err, cloudErr)
	assert.ErrorIs(t, err, localErr)
	assert.NotErrorIs(t, err, ErrBackendUnavailable)
}

func TestRecoverText_NoBackendAvailable(t *testing.T) {
	cloud := &stubBackend{name: "cloud", avail: ErrNotConfigured}
	local := &stubBackend{name: "local", avail: ErrNotInstalled}
	e := NewEngine(Config{}, nil, WithImageBackends(cloud, local))

	_, err := e.RecoverText(t.Context(), entity.Document{Path: "rx.png", Kind: constants.MediaKindImageRasterAlt})
	require.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Zero(t, cloud.calls)
	assert.Zero(t, local.calls)
}

func TestNormalize(t *testing.T) {
	in := "Paracetamol\t 500mg  \r\n-----\r\n\r\n\r\n\r\nIbuprofen 05mg   \n"
	assert.Equal(t, "Paracetamol 500mg\n\nIbuprofen 05mg", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}
