package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const defaultLocalPath = "./uploads"

// LocalStorage stores blobs as files under a base directory
type LocalStorage struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalStorage creates the base directory if needed
func NewLocalStorage(basePath string, logger *zap.Logger) (*LocalStorage, error) {
	if basePath == "" {
		basePath = defaultLocalPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	if err := os.MkdirAll(absBase, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", absBase, err)
	}

	return &LocalStorage{basePath: absBase, logger: logger}, nil
}

// Write stores data at path. Existing blobs are never overwritten.
func (s *LocalStorage) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create blob %s: %w", path, err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(fullPath)
		return fmt.Errorf("failed to write blob %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close blob %s: %w", path, err)
	}

	s.logger.Debug("blob stored", zap.String("path", path), zap.Int("size", len(data)))
	return nil
}

// Read opens the blob at path
func (s *LocalStorage) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, path)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", path, err)
	}
	return file, nil
}

// resolve maps path into the base directory and refuses anything that escapes it
func (s *LocalStorage) resolve(path string) (string, error) {
	if err := validateKey(path); err != nil {
		s.logger.Warn("blocked invalid blob path", zap.String("path", path))
		return "", err
	}

	fullPath := filepath.Join(s.basePath, filepath.Clean(path))
	if !strings.HasPrefix(fullPath, s.basePath+string(filepath.Separator)) {
		s.logger.Warn("path escape attempt blocked", zap.String("path", path))
		return "", ErrInvalidPath
	}
	return fullPath, nil
}

var _ BlobStorage = (*LocalStorage)(nil)
