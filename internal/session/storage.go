package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage persists the serialized session document under one well-known key.
// Absence or corruption of the stored data means "logged out", never an error
// the UI layer has to handle.
type Storage interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Clear() error
}

// FileStorage keeps the session snapshot in a single JSON file, the durable
// local-storage analog for a client process.
type FileStorage struct {
	path string
}

// NewFileStorage builds a file-backed storage rooted at path.
func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("session state path is required")
	}
	return &FileStorage{path: path}, nil
}

// Load reads the stored snapshot. A missing file yields (nil, nil).
func (s *FileStorage) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session state: %w", err)
	}
	return data, nil
}

// Save atomically replaces the stored snapshot. Whole-document writes only,
// so a crash can never leave a partial session on disk.
func (s *FileStorage) Save(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "session-*.tmp")
	if err != nil {
		return fmt.Errorf("create session temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close session temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace session state: %w", err)
	}
	return nil
}

// Clear removes the stored snapshot; clearing an absent snapshot is fine.
func (s *FileStorage) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}
