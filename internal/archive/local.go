package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalArchiver writes payloads to a directory on the local filesystem.
type LocalArchiver struct {
	baseDir string
}

// NewLocalArchiver creates a new LocalArchiver rooted at baseDir
func NewLocalArchiver(baseDir string) (*LocalArchiver, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchiver{baseDir: baseDir}, nil
}

// Store saves a payload under baseDir, creating subdirectories as needed
func (a *LocalArchiver) Store(ctx context.Context, key string, payload []byte) (string, error) {
	path := filepath.Join(a.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive subdirectory: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}
	return path, nil
}
