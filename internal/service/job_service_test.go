package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/voxscribe/api/internal/model"
	"github.com/voxscribe/api/internal/storage"
	"github.com/voxscribe/api/internal/store"
)

// fakeEnqueuer captures enqueued tasks.
type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: task.Type()}, nil
}

// fakeTranscripts is a map-backed TranscriptStore.
type fakeTranscripts struct {
	saved map[string]string
}

func newFakeTranscripts() *fakeTranscripts {
	return &fakeTranscripts{saved: make(map[string]string)}
}

func (f *fakeTranscripts) Save(ctx context.Context, jobID, text string) error {
	f.saved[jobID] = text
	return nil
}

func (f *fakeTranscripts) Load(ctx context.Context, jobID string) (string, error) {
	text, ok := f.saved[jobID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return text, nil
}

func (f *fakeTranscripts) Delete(ctx context.Context, jobID string) error {
	delete(f.saved, jobID)
	return nil
}

func newTestService() (*JobService, *store.MemoryStore, *fakeEnqueuer, *fakeTranscripts) {
	jobStore := store.NewMemoryStore()
	enqueuer := &fakeEnqueuer{}
	transcripts := newFakeTranscripts()
	svc := NewJobService(jobStore, enqueuer, transcripts, "base")
	return svc, jobStore, enqueuer, transcripts
}

func TestSubmitQueuesJob(t *testing.T) {
	svc, jobStore, enqueuer, _ := newTestService()
	ctx := context.Background()

	resp, err := svc.Submit(ctx, &model.SubmitYoutubeRequest{URL: "https://example.com/vid"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.Status != "queued" {
		t.Errorf("expected queued, got %s", resp.Status)
	}
	if resp.JobID == "" {
		t.Fatal("expected a job id")
	}

	job, err := jobStore.Get(ctx, resp.JobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if job.Model != model.ModelBase {
		t.Errorf("expected default model, got %s", job.Model)
	}

	if len(enqueuer.tasks) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(enqueuer.tasks))
	}
	task := enqueuer.tasks[0]
	if task.Type() != TaskTypeTranscribe {
		t.Errorf("unexpected task type %s", task.Type())
	}
	var payload TranscribeTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("bad task payload: %v", err)
	}
	if payload.JobID != resp.JobID || payload.Payload.URL != "https://example.com/vid" {
		t.Errorf("task payload mismatch: %+v", payload)
	}
}

func TestSubmitHonorsRequestedModel(t *testing.T) {
	svc, jobStore, _, _ := newTestService()
	ctx := context.Background()

	resp, err := svc.Submit(ctx, &model.SubmitYoutubeRequest{URL: "https://example.com/vid", Model: "large"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	job, _ := jobStore.Get(ctx, resp.JobID)
	if job.Model != model.ModelLarge {
		t.Errorf("expected large, got %s", job.Model)
	}
}

func TestSubmitEnqueueFailureMarksJobError(t *testing.T) {
	svc, jobStore, enqueuer, _ := newTestService()
	enqueuer.err = fmt.Errorf("redis down")
	ctx := context.Background()

	_, err := svc.Submit(ctx, &model.SubmitYoutubeRequest{URL: "https://example.com/vid"})
	if err == nil {
		t.Fatal("expected submit to fail")
	}

	if len(enqueuer.tasks) != 1 {
		t.Fatalf("expected 1 attempted task, got %d", len(enqueuer.tasks))
	}
	var payload TranscribeTaskPayload
	if err := json.Unmarshal(enqueuer.tasks[0].Payload(), &payload); err != nil {
		t.Fatalf("bad task payload: %v", err)
	}

	// The job must not be stuck queued after a scheduling failure.
	job, err := jobStore.Get(ctx, payload.JobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if job.Status != model.JobStatusError {
		t.Errorf("expected error status, got %s", job.Status)
	}
	if job.Error == nil || *job.Error == "" {
		t.Error("expected an error message on the job")
	}
}

func TestGetStatusUnknown(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GetStatus(context.Background(), "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}
}

func TestGetResultBeforeDone(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	resp, err := svc.Submit(ctx, &model.SubmitYoutubeRequest{URL: "https://example.com/vid"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	result, err := svc.GetResult(ctx, resp.JobID)
	if err != nil {
		t.Fatalf("result for queued job must not error: %v", err)
	}
	if result.Status != "queued" || result.Transcript != "" {
		t.Errorf("expected queued status and no transcript, got %+v", result)
	}
}

func TestGetResultDone(t *testing.T) {
	svc, jobStore, _, transcripts := newTestService()
	ctx := context.Background()

	resp, _ := svc.Submit(ctx, &model.SubmitYoutubeRequest{URL: "https://example.com/vid"})

	// Walk the job to done as the worker would.
	for _, status := range []model.JobStatus{model.JobStatusProcessing, model.JobStatusDone} {
		st := status
		if _, err := jobStore.Update(ctx, resp.JobID, func(j *model.Job) error {
			j.Status = st
			if st == model.JobStatusDone {
				j.HasResult = true
			}
			return nil
		}); err != nil {
			t.Fatalf("transition failed: %v", err)
		}
	}
	_ = transcripts.Save(ctx, resp.JobID, "the transcript")

	result, err := svc.GetResult(ctx, resp.JobID)
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	if result.Transcript != "the transcript" {
		t.Errorf("unexpected transcript %q", result.Transcript)
	}
	if result.Status != "" {
		t.Errorf("done result must not carry a status, got %q", result.Status)
	}
}

func TestGetResultArtifactMissing(t *testing.T) {
	svc, jobStore, _, _ := newTestService()
	ctx := context.Background()

	resp, _ := svc.Submit(ctx, &model.SubmitYoutubeRequest{URL: "https://example.com/vid"})
	for _, status := range []model.JobStatus{model.JobStatusProcessing, model.JobStatusDone} {
		st := status
		_, _ = jobStore.Update(ctx, resp.JobID, func(j *model.Job) error {
			j.Status = st
			j.HasResult = st == model.JobStatusDone
			return nil
		})
	}

	_, err := svc.GetResult(ctx, resp.JobID)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected storage.ErrNotFound, got %v", err)
	}
}
