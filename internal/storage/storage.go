package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no transcript artifact exists for a job.
var ErrNotFound = errors.New("transcript not found")

// TranscriptStore persists one transcript artifact per completed job,
// keyed by job id.
type TranscriptStore interface {
	Save(ctx context.Context, jobID, text string) error
	Load(ctx context.Context, jobID string) (string, error)
	Delete(ctx context.Context, jobID string) error
}
