package constants

import "strings"

// Document formats stored in uploaded_files.format.
const (
	PDF  = "PDF"
	XLSX = "XLSX"
	HTML = "HTML"
	TXT  = "TXT"
	CSV  = "CSV"
)

// FileTypes holds the allowed values for the format column.
var FileTypes = []string{PDF, XLSX, HTML, TXT, CSV}

// AllowedExtensions holds the extensions accepted by document ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"xlsx": {},
	"html": {},
	"htm":  {},
	"txt":  {},
	"csv":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "xlsx":
		return XLSX
	case "html", "htm":
		return HTML
	case "txt":
		return TXT
	case "csv":
		return CSV
	}
	return ""
}
