// Package ingest turns files on disk into documents for the pipeline.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

var ErrUnsupportedExtension = errors.New("unsupported or missing extension")

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// LoadDocument resolves path, derives the media kind from its extension and
// hashes the content. The content itself stays on disk.
func LoadDocument(path string) (entity.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return entity.Document{}, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	kind := constants.MapExtToKind(ext)
	if kind == "" {
		return entity.Document{}, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return entity.Document{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return entity.Document{}, err
	}
	if st.IsDir() {
		return entity.Document{}, fmt.Errorf("%s is a directory", abs)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return entity.Document{}, fmt.Errorf("hash %s: %w", abs, err)
	}
	return entity.Document{
		Path:    abs,
		Kind:    kind,
		Size:    st.Size(),
		HashHex: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// AllowedExt checks if a file extension is one the pipeline can read.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
