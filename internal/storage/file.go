package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps transcripts as <dir>/<jobID>.txt.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(jobID string) string {
	return filepath.Join(s.dir, jobID+".txt")
}

func (s *FileStore) Save(ctx context.Context, jobID, text string) error {
	if err := os.WriteFile(s.path(jobID), []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, jobID string) (string, error) {
	data, err := os.ReadFile(s.path(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}

func (s *FileStore) Delete(ctx context.Context, jobID string) error {
	if err := os.Remove(s.path(jobID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}
