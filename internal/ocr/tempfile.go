package ocr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

// localPath returns a filesystem path for tools that only read files.
// In-memory documents are written to a temp dir; call cleanup when done.
func localPath(doc entity.Document) (string, func(), error) {
	if doc.Path != "" {
		return doc.Path, func() {}, nil
	}
	if doc.Data == nil {
		return "", func() {}, fmt.Errorf("document has neither data nor path")
	}
	tmpDir, err := os.MkdirTemp("", "rx-doc-*")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	out := filepath.Join(tmpDir, "document"+extForKind(doc.Kind))
	if err := os.WriteFile(out, doc.Data, 0o600); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return out, cleanup, nil
}

func extForKind(k constants.MediaKind) string {
	switch k {
	case constants.MediaKindPDF:
		return ".pdf"
	case constants.MediaKindImageRasterAlt:
		return ".png"
	default:
		return ".jpg"
	}
}
