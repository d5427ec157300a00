// Package docproc turns uploaded files into plain text and splits that text
// into overlapping chunks for embedding.
package docproc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

const (
	TypePDF      = "pdf"
	TypeDOCX     = "docx"
	TypeText     = "txt"
	TypeMarkdown = "md"
)

var supportedTypes = map[string]struct{}{
	TypePDF:      {},
	TypeDOCX:     {},
	TypeText:     {},
	TypeMarkdown: {},
}

// FileType returns the lower-cased extension of filename without the dot.
func FileType(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func SupportedFileType(fileType string) bool {
	_, ok := supportedTypes[strings.ToLower(fileType)]
	return ok
}

// ExtractText returns the plain text of a document of the given type.
func ExtractText(data []byte, fileType string) (string, error) {
	switch strings.ToLower(fileType) {
	case TypePDF:
		return extractPDF(data)
	case TypeDOCX:
		return extractDOCX(data)
	case TypeText, TypeMarkdown:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s file is not valid utf-8", fileType)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, fileType)
	}
}
