package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/ingest"
	"github.com/joseph-ayodele/rx-resolver/internal/ocr"
	"github.com/joseph-ayodele/rx-resolver/internal/pipeline"
)

// setupEnv points the CLI at a fresh SQLite database and disables every
// external service.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RX_CONFIG", "")
	t.Setenv("RX_DATABASE_DSN", "file:"+filepath.Join(dir, "rx.db"))
	t.Setenv("RX_LOG_LEVEL", "error")
	t.Setenv("RX_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("RX_LLM_API_KEY", "")
	t.Setenv("GOOGLE_VISION_API_KEY", "")
	return dir
}

func resetFlags() {
	configPath, logLevel = "", ""
	processJSON, processXLSX, processNoStore, ocrJSON = false, "", false, false
	inventoryJSON, seedSample = false, false
	searchLimit, lowStockThreshold = 20, constants.LowStockThreshold
	addComposition, addManufacturer, addStock = "", "", 0
	historyLimit, historyJSON = 20, false
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("x: %w", ocr.ErrUnsupportedMediaKind), 2},
		{fmt.Errorf("x: %w", ingest.ErrUnsupportedExtension), 2},
		{fmt.Errorf("x: %w", ocr.ErrBackendUnavailable), 3},
		{&ocr.DocumentExtractionError{Path: "a.pdf", Page: 2, Err: errors.New("boom")}, 4},
		{common.InvalidArgumentErrorf("bad"), 5},
		{common.DatabaseError("exec", errors.New("disk I/O error")), 6},
		{errors.New("other"), 1},
		{errors.Join(errors.New("a.png: boom"), fmt.Errorf("b.pdf: %w", ocr.ErrBackendUnavailable)), 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExitCode(tc.err), "%v", tc.err)
	}
}

func TestInventoryCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "inventory", "seed", "--sample")
	require.NoError(t, err)
	assert.Contains(t, out, "Created 8 medicines (0 already present), 1 alternative links.")

	out, err = run(t, "inventory", "search", "hydrochloride", "--json")
	require.NoError(t, err)
	var found []medicineView
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 2)
	assert.Equal(t, "Cetirizine 10mg", found[0].Name)
	assert.True(t, found[0].IsAvailable)

	out, err = run(t, "inventory", "low-stock")
	require.NoError(t, err)
	assert.Contains(t, out, "Ibuprofen 400mg")
	assert.Contains(t, out, "Amlodipine 5mg")
	assert.NotContains(t, out, "Paracetamol")

	_, err = run(t, "inventory", "set-stock", "Ibuprofen 400mg", "25")
	require.NoError(t, err)
	_, err = run(t, "inventory", "set-stock", "Ibuprofen 400mg", "many")
	assert.Equal(t, 5, ExitCode(err))

	_, err = run(t, "inventory", "add", "Aspirin 75mg", "--stock", "12", "--manufacturer", "ACME")
	require.NoError(t, err)
	_, err = run(t, "inventory", "add", "Aspirin 75mg")
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	out, err = run(t, "inventory", "list", "--json")
	require.NoError(t, err)
	var all []medicineView
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	assert.Len(t, all, 9)

	xlsx := filepath.Join(t.TempDir(), "inventory.xlsx")
	_, err = run(t, "inventory", "export", xlsx)
	require.NoError(t, err)
	assert.FileExists(t, xlsx)
}

func TestAlternativesCommands(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "inventory", "seed", "--sample")
	require.NoError(t, err)

	out, err := run(t, "alternatives", "add", "Paracetamol 500mg", "Ibuprofen 400mg")
	require.NoError(t, err)
	assert.Contains(t, out, "already linked")

	_, err = run(t, "alternatives", "add", "Ibuprofen 400mg", "Paracetamol 500mg")
	require.NoError(t, err)

	out, err = run(t, "alternatives", "list", "Ibuprofen 400mg")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] Paracetamol 500mg")

	_, err = run(t, "alternatives", "add", "Paracetamol 500mg", "Paracetamol 500mg")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = run(t, "alternatives", "remove", "Ibuprofen 400mg", "Paracetamol 500mg")
	require.NoError(t, err)
	_, err = run(t, "alternatives", "remove", "Ibuprofen 400mg", "Paracetamol 500mg")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

// fakePoppler installs shell scripts standing in for pdfinfo and pdftotext.
func fakePoppler(t *testing.T, dir, text string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-ins need a POSIX shell")
	}
	info := filepath.Join(dir, "pdfinfo")
	require.NoError(t, os.WriteFile(info, []byte("#!/bin/sh\necho 'Title:  scan'\necho 'Pages:          1'\n"), 0o755))
	totext := filepath.Join(dir, "pdftotext")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\f' '%s'\n", text)
	require.NoError(t, os.WriteFile(totext, []byte(script), 0o755))
	t.Setenv("RX_PDFINFO_CMD", info)
	t.Setenv("RX_PDFTOTEXT_CMD", totext)
}

func TestProcessHistoryExport(t *testing.T) {
	dir := setupEnv(t)
	fakePoppler(t, dir, "Dr. Rao Clinic\nParacetamol 500mg 1-0-1\nIbuprofen 400mg\nAspirin 75mg")
	_, err := run(t, "inventory", "seed", "--sample")
	require.NoError(t, err)

	rx := filepath.Join(dir, "rx.pdf")
	require.NoError(t, os.WriteFile(rx, []byte("%PDF-1.4 fake"), 0o600))

	out, err := run(t, "process", rx, "--json")
	require.NoError(t, err)
	var outcomes []pipeline.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 1)
	o := outcomes[0]
	assert.Equal(t, "pdftotext", o.OCRMethod)
	assert.Equal(t, "heuristic", o.NameMethod)
	assert.Equal(t, []string{"Paracetamol", "Ibuprofen", "Aspirin"}, o.Names)
	require.Len(t, o.Entries, 3)
	assert.Equal(t, "Paracetamol 500mg", o.Entries[0].MedicineName)
	assert.Equal(t, "Available", string(o.Entries[0].Status))
	assert.Equal(t, "Out of Stock", string(o.Entries[1].Status))
	assert.Equal(t, "Aspirin", o.Entries[2].MedicineName)
	assert.Nil(t, o.Entries[2].Stock)

	out, err = run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, o.PrescriptionID.String())
	assert.Contains(t, out, "DONE")

	xlsx := filepath.Join(dir, "results.xlsx")
	_, err = run(t, "export", xlsx, o.PrescriptionID.String())
	require.NoError(t, err)
	assert.FileExists(t, xlsx)

	_, err = run(t, "export", xlsx, "not-a-uuid")
	assert.Equal(t, 5, ExitCode(err))
}

func TestProcessNoStore(t *testing.T) {
	dir := setupEnv(t)
	fakePoppler(t, dir, "Metformin 500mg")
	_, err := run(t, "inventory", "seed", "--sample")
	require.NoError(t, err)

	rx := filepath.Join(dir, "rx.pdf")
	require.NoError(t, os.WriteFile(rx, []byte("%PDF-1.4 fake"), 0o600))
	out, err := run(t, "process", rx, "--no-store")
	require.NoError(t, err)
	assert.Contains(t, out, "Metformin 500mg")
	assert.Contains(t, out, "stock 200")

	out, err = run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No prescriptions yet.")
}

func TestProcess_UnsupportedFile(t *testing.T) {
	dir := setupEnv(t)
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("Paracetamol"), 0o600))

	_, err := run(t, "process", notes)
	assert.Equal(t, 2, ExitCode(err))
}

func TestOCR_PDFPageFailure(t *testing.T) {
	dir := setupEnv(t)
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-ins need a POSIX shell")
	}
	info := filepath.Join(dir, "pdfinfo")
	require.NoError(t, os.WriteFile(info, []byte("#!/bin/sh\necho 'Pages: 2'\n"), 0o755))
	totext := filepath.Join(dir, "pdftotext")
	require.NoError(t, os.WriteFile(totext, []byte("#!/bin/sh\necho 'syntax error' >&2\nexit 1\n"), 0o755))
	t.Setenv("RX_PDFINFO_CMD", info)
	t.Setenv("RX_PDFTOTEXT_CMD", totext)

	rx := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(rx, []byte("%PDF"), 0o600))
	_, err := run(t, "ocr", rx)
	assert.Equal(t, 4, ExitCode(err))
}

func TestOCR_PDFToolsMissing(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("RX_PDFINFO_CMD", filepath.Join(dir, "no-such-pdfinfo"))
	t.Setenv("RX_PDFTOTEXT_CMD", filepath.Join(dir, "no-such-pdftotext"))

	rx := filepath.Join(dir, "rx.pdf")
	require.NoError(t, os.WriteFile(rx, []byte("%PDF"), 0o600))
	_, err := run(t, "ocr", rx)
	assert.ErrorIs(t, err, ocr.ErrBackendUnavailable)
	assert.Equal(t, 3, ExitCode(err))
}
