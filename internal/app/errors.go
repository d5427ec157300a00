package app

import (
	"errors"

	"knowledge-base/internal/docproc"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedFileType = docproc.ErrUnsupportedFileType
	ErrEmptyDocument       = errors.New("no text could be extracted from document")
	ErrDocumentExists      = errors.New("document already exists")
	ErrDocumentNotFound    = errors.New("document not found")
)
