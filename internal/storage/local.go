package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// FileStorage persists uploaded files and hands back the public key
// (a slash-separated path relative to the storage root).
type FileStorage interface {
	Save(ctx context.Context, dir, filename string, reader io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	Root() string
}

// LocalStorage stores files on the local filesystem.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

func (s *LocalStorage) Root() string {
	return s.basePath
}

func (s *LocalStorage) Save(_ context.Context, dir, filename string, reader io.Reader) (string, error) {
	full := filepath.Join(s.basePath, filepath.FromSlash(dir))
	if err := os.MkdirAll(full, 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	f, err := os.Create(filepath.Join(full, filename))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path.Join(dir, filename), nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	if err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
