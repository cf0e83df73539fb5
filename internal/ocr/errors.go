package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedMediaKind is returned before any backend runs.
	ErrUnsupportedMediaKind = errors.New("unsupported media kind")
	// ErrBackendUnavailable means no backend for the media kind is configured or installed.
	ErrBackendUnavailable = errors.New("no ocr backend available")
	// ErrRecognitionFailed means every eligible backend was tried and failed.
	ErrRecognitionFailed = errors.New("ocr recognition failed")
	// ErrDocumentExtraction matches any *DocumentExtractionError.
	ErrDocumentExtraction = errors.New("document extraction failed")

	ErrNotConfigured = errors.New("backend not configured")
	ErrNotInstalled  = errors.New("backend not installed")
)

// DocumentExtractionError aborts a whole portable document. Page is 1-based;
// 0 means the failure happened before any page was read.
type DocumentExtractionError struct {
	Path string
	Page int
	Err  error
}

func (e *DocumentExtractionError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("extract %s page %d: %v", e.Path, e.Page, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *DocumentExtractionError) Unwrap() error { return e.Err }

func (e *DocumentExtractionError) Is(target error) bool { return target == ErrDocumentExtraction }
