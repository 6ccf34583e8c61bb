// Package images owns the application's private image storage area. Uploads
// are copies of user-chosen files; notes reference them by local file URL.
package images

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var errMissingDirectory = errors.New("images directory is required")

// Upload describes a stored image copy.
type Upload struct {
	// FilePath is the absolute file URL to embed in note content.
	FilePath string `json:"filePath"`
	FileName string `json:"fileName"`
}

// Store copies uploaded images into a private directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore returns a Store rooted at dir. The directory is created lazily on
// first upload.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errMissingDirectory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Save copies the file at sourcePath into the store and returns its file URL
// and base name. An existing image with the same name is overwritten.
func (s *Store) Save(sourcePath string) (Upload, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Error("image directory creation failed", zap.String("dir", s.dir), zap.Error(err))
		return Upload{}, err
	}

	fileName := filepath.Base(sourcePath)
	destPath := filepath.Join(s.dir, fileName)

	if err := copyFile(sourcePath, destPath); err != nil {
		s.logger.Error("image copy failed",
			zap.String("source", sourcePath),
			zap.String("destination", destPath),
			zap.Error(err))
		return Upload{}, err
	}

	absPath, err := filepath.Abs(destPath)
	if err != nil {
		return Upload{}, err
	}

	s.logger.Info("image uploaded", zap.String("file", fileName))
	return Upload{
		FilePath: fmt.Sprintf("file://%s", absPath),
		FileName: fileName,
	}, nil
}

func copyFile(sourcePath, destPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer source.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return err
	}
	return dest.Close()
}
