package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore writes assets to local disk. Development fallback when no MinIO
// endpoint is configured; it cannot presign URLs.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Put writes the asset under basePath, preserving the key's directory layout.
func (f *FileStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	target := filepath.Join(f.basePath, filepath.FromSlash(safeKey(key)))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create asset file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("write asset: %w", err)
	}
	return nil
}

// Get reads the asset back from disk.
func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	target := filepath.Join(f.basePath, filepath.FromSlash(safeKey(key)))
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	return data, nil
}

// PresignGet returns "" — local files have no URL to hand out.
func (f *FileStore) PresignGet(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", nil
}

func safeKey(key string) string {
	parts := strings.Split(key, "/")
	clean := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		return "asset"
	}
	return strings.Join(clean, "/")
}
