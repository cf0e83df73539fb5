package entity

import (
	"fmt"
	"os"

	"github.com/joseph-ayodele/rx-resolver/constants"
)

// Document is an immutable reference to prescription content plus its
// declared media kind. Either Path or Data is set.
type Document struct {
	Path    string              `json:"path,omitempty"`
	Data    []byte              `json:"-"`
	Kind    constants.MediaKind `json:"kind"`
	Size    int64               `json:"size"`
	HashHex string              `json:"hash_hex,omitempty"`
}

// Bytes returns the document content, reading it from disk when only a path is known.
func (d Document) Bytes() ([]byte, error) {
	if d.Data != nil {
		return d.Data, nil
	}
	if d.Path == "" {
		return nil, fmt.Errorf("document has neither data nor path")
	}
	return os.ReadFile(d.Path)
}

// Name is a short label for logs.
func (d Document) Name() string {
	if d.Path != "" {
		return d.Path
	}
	return fmt.Sprintf("<memory:%d bytes>", len(d.Data))
}
