// Package storage provides blob storage for uploaded files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	infraconfig "github.com/salesinsight/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var (
	// ErrBlobNotFound is returned when no blob exists at a path
	ErrBlobNotFound = errors.New("storage: blob not found")
	// ErrInvalidPath is returned for empty, absolute or escaping paths
	ErrInvalidPath = errors.New("storage: invalid path")
)

// BlobStorage is write-once byte storage addressed by a generated path
type BlobStorage interface {
	Write(ctx context.Context, path string, data []byte) error
	// Read opens the blob; the caller closes the reader
	Read(ctx context.Context, path string) (io.ReadCloser, error)
}

// New creates the blob storage selected by cfg.Driver
func New(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (BlobStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return NewLocalStorage(cfg.LocalPath, logger)
	case "s3":
		s3Storage, err := NewS3Storage(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s3Storage, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// validateKey rejects keys that could address something outside the store
func validateKey(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return ErrInvalidPath
	}
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}
