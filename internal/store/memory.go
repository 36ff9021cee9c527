package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxscribe/api/internal/model"
)

// MemoryStore is a mutex-guarded in-process Store. It backs tests and
// redisless development; it does not survive restarts.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]model.Job)}
}

func (s *MemoryStore) Create(ctx context.Context, input string, whisperModel model.WhisperModel) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := model.Job{
		ID:        uuid.New().String(),
		Input:     input,
		Model:     whisperModel,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	s.jobs[job.ID] = job

	out := job
	return &out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := job
	return &out, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, mutate func(*model.Job) error) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	from := job.Status
	if err := mutate(&job); err != nil {
		return nil, err
	}
	if err := checkTransition(from, job.Status); err != nil {
		return nil, err
	}

	s.jobs[id] = job
	out := job
	return &out, nil
}
