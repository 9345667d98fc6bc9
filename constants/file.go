package constants

import (
	"path/filepath"
	"strings"
)

// Format is the extraction route chosen for a file extension.
type Format string

const (
	PDF     Format = "PDF"
	XML     Format = "XML"
	DOCX    Format = "DOCX"
	IMAGE   Format = "IMAGE"
	ZIP     Format = "ZIP"
	DOC     Format = "DOC" // recognized, not supported
	UNKNOWN Format = ""
)

// PageMarker separates page texts in multi-page extraction output.
const PageMarker = "\n\n--- END OF PAGE ---\n\n"

// AllowedExtensions holds the extensions accepted for ingestion (lowercase, without '.').
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"xml":  {},
	"docx": {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"zip":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ExtOf returns the normalized extension of a file name.
func ExtOf(name string) string {
	return NormalizeExt(filepath.Ext(name))
}

// MapExtToFormat maps a normalized extension to its Format.
func MapExtToFormat(ext string) Format {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "xml":
		return XML
	case "docx":
		return DOCX
	case "png", "jpg", "jpeg":
		return IMAGE
	case "zip":
		return ZIP
	case "doc":
		return DOC
	default:
		return UNKNOWN
	}
}

// IsAllowed reports whether a file name carries an ingestible extension.
func IsAllowed(name string) bool {
	_, ok := AllowedExtensions[ExtOf(name)]
	return ok
}

// ContentType returns the MIME type used when archiving the original bytes.
func ContentType(name string) string {
	switch ExtOf(name) {
	case "pdf":
		return "application/pdf"
	case "xml":
		return "application/xml"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
