package constants

import (
	"mime"
	"strings"
)

// Format is the coarse family a file extension belongs to.
type Format string

const (
	PDF   Format = "PDF"
	IMAGE Format = "IMAGE"
	TEXT  Format = "TEXT"
	DOCX  Format = "DOCX"
)

// FileTypes holds the formats the ingestor understands.
var FileTypes = []Format{PDF, IMAGE, TEXT, DOCX}

// AllowedExtensions holds the upload extensions accepted for analysis.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
	"txt":  {},
	"csv":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

// MaxUploadMB caps a single upload.
const MaxUploadMB = 25

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// IsAllowedExt reports whether ext (with or without the dot) may be uploaded.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToFormat maps a normalized extension to its format. Unknown
// extensions map to the empty Format.
func MapExtToFormat(ext string) Format {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "png", "jpg", "jpeg":
		return IMAGE
	case "txt", "csv":
		return TEXT
	case "docx":
		return DOCX
	default:
		return ""
	}
}

// MimeTypeForExt returns the MIME type for an extension, with fallbacks for
// the image types we accept when the platform table is sparse.
func MimeTypeForExt(ext string) string {
	ext = NormalizeExt(ext)
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		return mt
	}
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "pdf":
		return "application/pdf"
	case "csv":
		return "text/csv"
	case "txt":
		return "text/plain"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
