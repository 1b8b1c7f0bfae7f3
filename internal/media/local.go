package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps files on disk under BaseDir; they are served by the web
// server under /uploads/.
type LocalStore struct {
	BaseDir string
	BaseURL string
}

func NewLocalStore(baseDir, baseURL string) *LocalStore {
	return &LocalStore{BaseDir: baseDir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Save(_ context.Context, subDir, contentType string, r io.Reader) (string, error) {
	key := objectKey(subDir, contentType, time.Now())
	fullPath := filepath.Join(s.BaseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	return key, nil
}

// Delete is a no-op for keys that do not exist.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	fullPath := filepath.Join(s.BaseDir, filepath.FromSlash(key))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}
	return nil
}

func (s *LocalStore) URL(_ context.Context, key string) (string, error) {
	return fmt.Sprintf("%s/uploads/%s", s.BaseURL, key), nil
}
