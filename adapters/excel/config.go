package excel

import (
	"path/filepath"
	"strings"
)

// FileType is a supported tabular file format
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
)

// ReaderConfig controls how local files are read
type ReaderConfig struct {
	// Sheet is the worksheet to read; empty means the first sheet
	Sheet string `json:"sheet"`
	// MaxRows caps the number of data rows read; 0 means no limit
	MaxRows int `json:"max_rows"`
	// SkipBlankRows drops rows whose cells are all empty
	SkipBlankRows bool `json:"skip_blank_rows"`
}

// DefaultReaderConfig returns sensible defaults for file reading
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		SkipBlankRows: true,
	}
}

// DetectFileType maps a file name to its format by extension. Anything that
// is not .xlsx is treated as CSV.
func DetectFileType(name string) FileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FileTypeXLSX
	default:
		return FileTypeCSV
	}
}

// ParseFileType validates a user supplied format name
func ParseFileType(s string) (FileType, bool) {
	switch FileType(strings.ToLower(strings.TrimSpace(s))) {
	case FileTypeCSV, "":
		return FileTypeCSV, true
	case FileTypeXLSX, "excel":
		return FileTypeXLSX, true
	}
	return "", false
}

// Extension returns the file extension including the dot
func (t FileType) Extension() string {
	return "." + string(t)
}

// ContentType returns the MIME type used when serving the format
func (t FileType) ContentType() string {
	if t == FileTypeXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
