package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxscribe/api/internal/model"
)

// ErrNotFound is returned when a job id has no record.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition is returned when a mutation would move a job
// against the state machine (e.g. out of a terminal state).
var ErrInvalidTransition = errors.New("invalid status transition")

// Store is the durable job record store. Update applies the mutation
// under a per-key read-modify-write discipline: no two concurrent
// updates of the same job may interleave.
type Store interface {
	// Create allocates a fresh id and persists a queued job for input.
	Create(ctx context.Context, input string, whisperModel model.WhisperModel) (*model.Job, error)

	// Get returns the current record, or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Job, error)

	// Update loads the record, applies mutate, validates the status
	// transition, and persists the result atomically. Returns the
	// updated record. ErrNotFound if the job does not exist,
	// ErrInvalidTransition if mutate moves the status illegally.
	Update(ctx context.Context, id string, mutate func(*model.Job) error) (*model.Job, error)
}

// checkTransition validates the status change a mutation produced.
// Mutations that leave the status alone are always allowed.
func checkTransition(from, to model.JobStatus) error {
	if from == to {
		return nil
	}
	if !model.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
