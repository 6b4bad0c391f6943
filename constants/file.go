package constants

import "strings"

// Format is the coarse source type of an uploaded document.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// AllowedMIMETypes holds the MIME types accepted at the upload boundary.
var AllowedMIMETypes = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
	"image/jpg":       {},
}

// MapMIMEToFormat maps a declared MIME type to PDF or IMAGE.
// Returns "" for anything outside the allowed set.
func MapMIMEToFormat(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "application/pdf":
		return PDF
	case "image/png", "image/jpeg", "image/jpg":
		return IMAGE
	default:
		return ""
	}
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
