package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/voxscribe/api/internal/model"
)

// maxTxRetries bounds optimistic-lock retries when concurrent updates
// race on the same job key.
const maxTxRetries = 10

// RedisStore persists job records as JSON under job:<id>. Records have
// no TTL: acknowledged state survives process restarts and is never
// reaped.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func jobKey(id string) string {
	return fmt.Sprintf("job:%s", id)
}

// Create persists a new queued job and returns it.
func (s *RedisStore) Create(ctx context.Context, input string, whisperModel model.WhisperModel) (*model.Job, error) {
	job := &model.Job{
		ID:        uuid.New().String(),
		Input:     input,
		Model:     whisperModel,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	// NX guards against the (practically impossible) uuid collision
	ok, err := s.client.SetNX(ctx, jobKey(job.ID), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("job id collision: %s", job.ID)
	}

	return job, nil
}

// Get returns the current job record.
func (s *RedisStore) Get(ctx context.Context, id string) (*model.Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}

	return &job, nil
}

// Update applies mutate under a WATCH transaction so concurrent
// updates of the same job serialize instead of losing writes.
func (s *RedisStore) Update(ctx context.Context, id string, mutate func(*model.Job) error) (*model.Job, error) {
	key := jobKey(id)
	var updated *model.Job

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load job: %w", err)
		}

		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to unmarshal job %s: %w", id, err)
		}

		from := job.Status
		if err := mutate(&job); err != nil {
			return err
		}
		if err := checkTransition(from, job.Status); err != nil {
			return err
		}

		out, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}

		updated = &job
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to update job %s: too many concurrent writers", id)
}
