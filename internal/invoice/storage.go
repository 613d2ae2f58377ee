package invoice

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage defines the interface for keeping the original uploaded documents
type Storage interface {
	// Save stores a file and returns the name it was stored under
	Save(filename string, data []byte) (string, error)

	// Get retrieves a stored file
	Get(name string) ([]byte, error)

	// Delete removes a stored file
	Delete(name string) error
}

// LocalStorage implements the Storage interface on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a LocalStorage rooted at basePath
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save stores a file under the storage root
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filename, nil
}

// Get retrieves a stored file
func (l *LocalStorage) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, name))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a stored file
func (l *LocalStorage) Delete(name string) error {
	if err := os.Remove(filepath.Join(l.basePath, name)); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
