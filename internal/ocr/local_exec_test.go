//go:build !gosseract

package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

func TestDefaultChain_NothingConfigured(t *testing.T) {
	e := NewEngine(Config{}, nil)

	_, err := e.RecoverText(t.Context(), entity.Document{Path: "rx.jpg", Kind: constants.MediaKindImageRaster})
	require.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestDefaultChain_TesseractNotInstalled(t *testing.T) {
	runner := &fakeRunner{missing: map[string]bool{"tesseract": true}}
	e := NewEngine(Config{TesseractCmd: "tesseract"}, nil, WithRunner(runner))

	_, err := e.RecoverText(t.Context(), entity.Document{Path: "rx.jpg", Kind: constants.MediaKindImageRaster})
	require.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "not installed")
}

func TestDefaultChain_Tesseract(t *testing.T) {
	runner := &fakeRunner{handle: func(name string, args []string) ([]byte, []byte, error) {
		return []byte("  Amoxicillin 250mg\t\n\n\n\nTake after food  \n"), nil, nil
	}}
	e := NewEngine(Config{TesseractCmd: "tesseract", TessdataDir: "/td", PSM: 6}, nil, WithRunner(runner))

	res, err := e.RecoverText(t.Context(), entity.Document{Path: "rx.png", Kind: constants.MediaKindImageRasterAlt})
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin 250mg\n\nTake after food", res.Text)
	assert.Equal(t, "tesseract", res.Method)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "tesseract", runner.calls[0].name)
	assert.Equal(t, []string{"rx.png", "stdout", "-l", "eng", "--psm", "6", "--tessdata-dir", "/td"}, runner.calls[0].args)
}
