package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"

	"mesaYaReviews/internal/modules/identity/domain"
	"mesaYaReviews/internal/shared/logging"
)

const (
	sessionDirName  = "mesa-reviews"
	sessionFileName = "session.json"
	watchDebounce   = 100 * time.Millisecond
)

// DefaultSessionPath is the per-user session file location.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, sessionDirName, sessionFileName), nil
}

// FileSessionStore persists credentials as JSON. Writes are atomic, so a reader never sees
// a partially written file.
type FileSessionStore struct {
	path   string
	logger *slog.Logger
}

func NewFileSessionStore(path string, logger *slog.Logger) *FileSessionStore {
	return &FileSessionStore{path: filepath.Clean(path), logger: logging.OrDefault(logger)}
}

func (s *FileSessionStore) Path() string { return s.path }

// Load returns the stored credentials, or nil when nothing is stored.
func (s *FileSessionStore) Load() (*domain.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var creds domain.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", s.path, err)
	}
	return &creds, nil
}

func (s *FileSessionStore) Save(creds *domain.Credentials) error {
	if creds == nil {
		return s.Clear()
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *FileSessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Watch calls onChange with the reloaded credentials (nil after removal) whenever the
// session file changes. It blocks until ctx is done.
func (s *FileSessionStore) Watch(ctx context.Context, onChange func(*domain.Credentials)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	// The directory is watched because atomic writes replace the file.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.logger.Debug("session watcher started", slog.String("path", s.path))

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				debounce = time.After(watchDebounce)
			}
		case <-debounce:
			debounce = nil
			creds, err := s.Load()
			if err != nil {
				s.logger.Warn("session reload failed", slog.String("path", s.path), slog.Any("error", err))
				continue
			}
			onChange(creds)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("session watcher error", slog.Any("error", err))
		}
	}
}
