package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"mesaYaReviews/internal/modules/devapi/application/port"
	"mesaYaReviews/internal/modules/devapi/domain"
)

// FilePhotoStore writes each photo to its own file under dir.
type FilePhotoStore struct {
	dir string
}

func NewFilePhotoStore(dir string) (*FilePhotoStore, error) {
	abs, err := filepath.Abs(strings.TrimSpace(dir))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", domain.ErrStorage, dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", domain.ErrStorage, abs, err)
	}
	return &FilePhotoStore{dir: abs}, nil
}

func (s *FilePhotoStore) Dir() string { return s.dir }

func (s *FilePhotoStore) path(name string) (string, error) {
	clean := filepath.Base(strings.TrimSpace(name))
	if clean != name || clean == "." || clean == ".." || clean == string(filepath.Separator) {
		return "", fmt.Errorf("%w: name %q escapes the store", domain.ErrPhotoNotFound, name)
	}
	return filepath.Join(s.dir, clean), nil
}

// Save replaces the file atomically so readers never observe a partial image.
func (s *FilePhotoStore) Save(_ context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, name, err)
	}
	return nil
}

func (s *FilePhotoStore) Load(_ context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorage, name, err)
	}
	return data, nil
}

var _ port.PhotoStore = (*FilePhotoStore)(nil)
