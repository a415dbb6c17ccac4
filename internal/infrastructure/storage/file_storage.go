package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/garyjia/invoice-desk/internal/application/port"
	"go.uber.org/zap"
)

// LocalFileStorage keeps invoice documents on the local filesystem under baseDir.
// Keys are slash-separated paths such as "2024-03/<id>.pdf".
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage
func NewLocalFileStorage(baseDir string, logger *zap.Logger) port.FileStorage {
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content under key. The write goes through a temp file and a rename
// so readers never observe a partial document.
func (s *LocalFileStorage) Save(ctx context.Context, key string, content []byte) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(parentDir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.logger.Error("Failed to write file", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	s.logger.Debug("Document saved",
		zap.String("key", key),
		zap.Int("size", len(content)))

	return nil
}

// Read returns the content stored under key
func (s *LocalFileStorage) Read(ctx context.Context, key string) ([]byte, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		s.logger.Error("Failed to read file",
			zap.String("key", key),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return content, nil
}

// Exists reports whether a regular file is stored under key
func (s *LocalFileStorage) Exists(ctx context.Context, key string) bool {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes the file under key. Missing files are not an error.
func (s *LocalFileStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.logger.Error("Failed to delete file",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}

	// Drop the month directory once its last document is gone.
	parent := filepath.Dir(fullPath)
	if parent != filepath.Clean(s.baseDir) {
		if entries, err := os.ReadDir(parent); err == nil && len(entries) == 0 {
			_ = os.Remove(parent)
		}
	}

	s.logger.Debug("Document deleted", zap.String("key", key))
	return nil
}

// GetFullPath converts a key to a filesystem path
func (s *LocalFileStorage) GetFullPath(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

// resolve validates key and returns its path inside baseDir
func (s *LocalFileStorage) resolve(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("storage key is empty")
	}

	fullPath := s.GetFullPath(key)

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", key)
	}

	return fullPath, nil
}
