package extraction

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDocx FileType = "docx"
	FileTypeXLSX FileType = "xlsx"
	FileTypeText FileType = "txt"
)

var (
	pdfMagic = []byte("%PDF")
	zipMagic = []byte("PK\x03\x04")
)

// Detect determines the document type from the file's magic bytes, falling
// back to the extension for container and plain-text formats. The extension
// alone is never trusted for binary formats.
func Detect(path string) (FileType, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, 8)
	n, _ := f.Read(header)
	header = header[:n]

	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case bytes.HasPrefix(header, pdfMagic):
		return FileTypePDF, nil
	case bytes.HasPrefix(header, zipMagic):
		// docx and xlsx are both zip containers, only the extension
		// distinguishes them.
		if ext == ".xlsx" {
			return FileTypeXLSX, nil
		}
		return FileTypeDocx, nil
	}

	switch ext {
	case ".txt", ".text", ".md":
		return FileTypeText, nil
	}
	return "", NewErrUnsupportedFormat(filepath.Base(path))
}
