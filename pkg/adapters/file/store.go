// Package file persists the session as one file per record in a directory.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/drip/pkg/adapters/kv"
)

// DefaultPath is used when no directory is configured.
var DefaultPath = filepath.Join(".drip", "session")

// Backend implements kv.Backend using the local filesystem.
type Backend struct {
	BasePath string
}

// NewBackend creates a Backend rooted at basePath.
// If basePath is empty, it defaults to ".drip/session".
func NewBackend(basePath string) *Backend {
	if basePath == "" {
		basePath = DefaultPath
	}
	return &Backend{BasePath: basePath}
}

// New creates a file-backed store.
func New(basePath string, opts ...kv.Option) *kv.Store {
	return kv.New(NewBackend(basePath), opts...)
}

func (b *Backend) path(key string) string {
	return filepath.Join(b.BasePath, key+".json")
}

// Get reads a record file.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	return data, nil
}

// Put writes a record atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := os.MkdirAll(b.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	destPath := b.path(key)

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(b.BasePath, "tmp-"+key+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(value); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing record file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to record: %w", err)
	}
	return nil
}

// Delete removes the record file. Missing files are not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	err := os.Remove(b.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record file: %w", err)
	}
	return nil
}
