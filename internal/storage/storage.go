// Package storage keeps the original bytes of uploaded documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"knowledge-base/internal/config"
)

var ErrInvalidName = errors.New("invalid file name")

// FileStore saves uploads under their base name and returns the location
// that must be handed back to Delete.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, location string) error
	Ping(ctx context.Context) error
}

func New(ctx context.Context, cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStore(cfg.UploadDir)
	case "minio":
		return NewMinIOStore(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// CleanName strips any directory part of a client supplied file name.
func CleanName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "" || base == "." || base == "/" || base == ".." {
		return "", ErrInvalidName
	}
	return base, nil
}
