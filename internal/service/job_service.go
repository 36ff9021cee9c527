package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/voxscribe/api/internal/model"
	"github.com/voxscribe/api/internal/storage"
	"github.com/voxscribe/api/internal/store"
)

// TaskTypeTranscribe is the asynq task type for youtube pipeline jobs.
const TaskTypeTranscribe = "transcribe:youtube"

// Enqueuer is the slice of asynq.Client the job service needs; tests
// substitute a capture fake.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TranscribeTaskPayload is the envelope stored in the asynq task.
type TranscribeTaskPayload struct {
	JobID   string                     `json:"jobId"`
	Payload model.TranscribeJobPayload `json:"payload"`
}

// JobService owns the asynchronous job lifecycle: creation, scheduling,
// and the polling views over store and transcript storage.
type JobService struct {
	store        store.Store
	enqueuer     Enqueuer
	transcripts  storage.TranscriptStore
	defaultModel model.WhisperModel
}

func NewJobService(jobStore store.Store, enqueuer Enqueuer, transcripts storage.TranscriptStore, defaultModel string) *JobService {
	if !model.IsValidModel(defaultModel) {
		defaultModel = string(model.ModelBase)
	}
	return &JobService{
		store:        jobStore,
		enqueuer:     enqueuer,
		transcripts:  transcripts,
		defaultModel: model.WhisperModel(defaultModel),
	}
}

// Submit records a queued job and schedules its pipeline. It returns as
// soon as the job is durably queued; it never waits on the pipeline.
func (s *JobService) Submit(ctx context.Context, req *model.SubmitYoutubeRequest) (*model.SubmitYoutubeResponse, error) {
	whisperModel := s.defaultModel
	if req.Model != "" {
		whisperModel = model.WhisperModel(req.Model)
	}

	job, err := s.store.Create(ctx, req.URL, whisperModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	task, err := newTranscribeTask(job.ID, req.URL, whisperModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// TaskID = job id: a duplicate enqueue is rejected by asynq, so a
	// job's work is started at most once. MaxRetry(0): failures are
	// recorded on the job record, not retried.
	_, err = s.enqueuer.Enqueue(task,
		asynq.Queue("transcribe"),
		asynq.TaskID(job.ID),
		asynq.MaxRetry(0),
	)
	if err != nil {
		s.failBeforeStart(ctx, job.ID, fmt.Sprintf("scheduling failure: %v", err))
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.SubmitYoutubeResponse{
		JobID:  job.ID,
		Status: string(model.JobStatusQueued),
	}, nil
}

// GetStatus returns the polling view of a job's current state.
func (s *JobService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.JobStatusResponse{
		JobID:  job.ID,
		Status: job.PublicStatus(),
	}, nil
}

// GetResult returns the transcript for done jobs and the current status
// otherwise. A missing artifact for a done job surfaces as
// storage.ErrNotFound.
func (s *JobService) GetResult(ctx context.Context, jobID string) (*model.JobResultResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusDone {
		return &model.JobResultResponse{
			JobID:  job.ID,
			Status: job.PublicStatus(),
		}, nil
	}

	transcript, err := s.transcripts.Load(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	return &model.JobResultResponse{
		JobID:      job.ID,
		Transcript: transcript,
	}, nil
}

// failBeforeStart marks a job that never reached a worker. Best effort:
// the submit error is already being returned to the caller.
func (s *JobService) failBeforeStart(ctx context.Context, jobID, msg string) {
	_, err := s.store.Update(ctx, jobID, func(j *model.Job) error {
		j.SetError(msg)
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrInvalidTransition) {
		log.Printf("Failed to mark job %s as failed: %v", jobID, err)
	}
}

func newTranscribeTask(jobID, url string, whisperModel model.WhisperModel) (*asynq.Task, error) {
	data, err := json.Marshal(TranscribeTaskPayload{
		JobID: jobID,
		Payload: model.TranscribeJobPayload{
			URL:   url,
			Model: whisperModel,
		},
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTranscribe, data), nil
}
