// Package document implements repository.DocumentStore on the local
// filesystem and on Redis.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/turtacn/statusservice/internal/domain/repository"
)

// FileStore keeps a document as <dir>/<name>.json. Saves go through a temp
// file and a rename so a crash never leaves a half written document.
type FileStore struct {
	path string
}

var _ repository.DocumentStore = (*FileStore)(nil)

// NewFileStore creates dir if needed and returns a store for name.
func NewFileStore(dir, name string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir %s: %w", dir, err)
	}
	return &FileStore{path: filepath.Join(dir, name+".json")}, nil
}

func (s *FileStore) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, repository.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return data, nil
}

func (s *FileStore) Save(_ context.Context, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", s.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Location() string {
	return s.path
}
