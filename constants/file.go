package constants

import "strings"

// MediaKind is the declared kind of a prescription document.
type MediaKind string

const (
	MediaKindImageRaster    MediaKind = "IMAGE_RASTER"     // jpg, jpeg
	MediaKindImageRasterAlt MediaKind = "IMAGE_RASTER_ALT" // png
	MediaKindPDF            MediaKind = "PORTABLE_DOCUMENT"
)

// AllowedExtensions holds the file extensions accepted for prescription ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToKind returns the media kind for an extension, or "" when the
// extension is not one we can read.
func MapExtToKind(ext string) MediaKind {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg":
		return MediaKindImageRaster
	case "png":
		return MediaKindImageRasterAlt
	case "pdf":
		return MediaKindPDF
	default:
		return ""
	}
}

func (k MediaKind) IsImage() bool {
	return k == MediaKindImageRaster || k == MediaKindImageRasterAlt
}

func (k MediaKind) Valid() bool {
	return k.IsImage() || k == MediaKindPDF
}
