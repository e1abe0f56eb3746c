package filestorage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/carebridge/carebridge/internal/pkg/logger"
	"github.com/google/uuid"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage rooted at basePath.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{basePath: basePath}, nil
}

// Save writes data to subPath/filename. An empty filename gets a random one.
// Files are written to a temp name first and linked into place; an existing
// file is never replaced and yields ErrFileExists.
func (ls *LocalStorage) Save(subPath, filename string, data []byte) (string, error) {
	if filename == "" {
		filename = uuid.New().String()
	}
	if strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, filename)
	}

	relPath := filepath.ToSlash(filepath.Join(subPath, filename))
	dstPath, err := ls.GetFullPath(relPath)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(dstPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		logger.Error().Err(err).Str("path", tmp.Name()).Msg("Failed to write file")
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o640); err != nil {
		return "", fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Link(tmp.Name(), dstPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			logger.Warn().Str("path", relPath).Msg("Refusing to overwrite existing file")
			return "", fmt.Errorf("%w: %s", ErrFileExists, relPath)
		}
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	logger.Info().Str("path", relPath).Int("bytes", len(data)).Msg("File saved successfully")
	return relPath, nil
}

// Read returns the contents of a stored file.
func (ls *LocalStorage) Read(relPath string) ([]byte, error) {
	fullPath, err := ls.GetFullPath(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", relPath, err)
	}
	return data, nil
}

// Delete removes a file from the storage filesystem.
// Returns nil if deletion is successful or if the file doesn't exist.
func (ls *LocalStorage) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}

	physicalPath, err := ls.GetFullPath(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(physicalPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}

// GetFullPath maps a storage-relative path onto the filesystem, rejecting
// anything that would resolve outside the storage root.
func (ls *LocalStorage) GetFullPath(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == "." || filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, relPath)
	}
	return filepath.Join(ls.basePath, cleaned), nil
}
