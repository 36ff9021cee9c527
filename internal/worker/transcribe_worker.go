package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voxscribe/api/internal/client"
	"github.com/voxscribe/api/internal/fetcher"
	"github.com/voxscribe/api/internal/model"
	"github.com/voxscribe/api/internal/service"
	"github.com/voxscribe/api/internal/storage"
	"github.com/voxscribe/api/internal/store"
)

// Notifier pushes job updates to subscribed WebSocket clients. Polling
// remains the source of truth; notifications are best effort.
type Notifier interface {
	BroadcastStatus(jobID string, status model.JobStatus, stage string)
	BroadcastComplete(jobID string, transcript string)
	BroadcastError(jobID string, code, message string)
}

// TranscribeWorker runs the download+transcribe pipeline for one job:
// processing -> fetch -> transcribe -> persist transcript -> done.
type TranscribeWorker struct {
	store       store.Store
	fetcher     fetcher.Fetcher
	transcriber client.Transcriber
	transcripts storage.TranscriptStore
	notifier    Notifier
	workDir     string // parent for per-job temp dirs; "" = os.TempDir
}

func NewTranscribeWorker(jobStore store.Store, mediaFetcher fetcher.Fetcher, transcriber client.Transcriber, transcripts storage.TranscriptStore, notifier Notifier, workDir string) *TranscribeWorker {
	return &TranscribeWorker{
		store:       jobStore,
		fetcher:     mediaFetcher,
		transcriber: transcriber,
		transcripts: transcripts,
		notifier:    notifier,
		workDir:     workDir,
	}
}

// ProcessTask handles one transcribe:youtube task. Pipeline failures
// are recorded on the job record; the returned error only feeds asynq's
// own logging.
func (w *TranscribeWorker) ProcessTask(ctx context.Context, t *asynq.Task) (err error) {
	var taskPayload service.TranscribeTaskPayload
	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	payload := taskPayload.Payload
	log.Printf("Starting transcription job: %s", jobID)

	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("Job %s has no record, dropping task", jobID)
			return nil
		}
		return err
	}
	if job.Status != model.JobStatusQueued {
		// Work starts at most once per job.
		log.Printf("Job %s is %s, not starting again", jobID, job.Status)
		return nil
	}

	// A job must never be left processing by a finished invocation.
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("internal error: %v", r)
			w.failJob(ctx, jobID, msg)
			err = fmt.Errorf("panic in pipeline for job %s: %v", jobID, r)
		}
	}()

	if _, err := w.store.Update(ctx, jobID, func(j *model.Job) error {
		j.Status = model.JobStatusProcessing
		now := time.Now()
		j.StartedAt = &now
		return nil
	}); err != nil {
		return fmt.Errorf("failed to mark job %s processing: %w", jobID, err)
	}
	w.broadcastStatus(jobID, model.JobStatusProcessing, "downloading audio")

	tempDir, err := os.MkdirTemp(w.workDir, "transcribe-"+jobID+"-")
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("failed to create work dir: %v", err))
		return err
	}
	defer func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			log.Printf("Failed to clean up work dir for job %s: %v", jobID, rmErr)
		}
	}()

	media, err := w.fetcher.Fetch(ctx, payload.URL, tempDir)
	if err != nil {
		w.failJob(ctx, jobID, err.Error())
		return err
	}

	if _, err := w.store.Update(ctx, jobID, func(j *model.Job) error {
		j.Title = media.Title
		j.Duration = media.Duration
		return nil
	}); err != nil {
		log.Printf("Failed to record media metadata for job %s: %v", jobID, err)
	}
	w.broadcastStatus(jobID, model.JobStatusProcessing, "transcribing audio")

	result, err := w.transcriber.Transcribe(ctx, media.Path, payload.Model)
	if err != nil {
		w.failJob(ctx, jobID, err.Error())
		return err
	}

	text := result.Text
	if text == "" && len(result.Segments) > 0 {
		text = storage.JoinSegments(result.Segments)
	}

	if err := w.transcripts.Save(ctx, jobID, text); err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("failed to persist transcript: %v", err))
		return err
	}

	if _, err := w.store.Update(ctx, jobID, func(j *model.Job) error {
		j.Status = model.JobStatusDone
		j.HasResult = true
		j.Language = result.Language
		j.LanguageProbability = result.LanguageProbability
		now := time.Now()
		j.CompletedAt = &now
		return nil
	}); err != nil {
		// The artifact exists but the record could not be finalized;
		// callers keep polling a processing job, so record the failure.
		w.failJob(ctx, jobID, fmt.Sprintf("failed to finalize job: %v", err))
		return err
	}

	if w.notifier != nil {
		w.notifier.BroadcastComplete(jobID, text)
	}
	log.Printf("Transcription job %s completed", jobID)
	return nil
}

func (w *TranscribeWorker) failJob(ctx context.Context, jobID, msg string) {
	_, err := w.store.Update(ctx, jobID, func(j *model.Job) error {
		j.SetError(msg)
		return nil
	})
	if err != nil {
		log.Printf("Failed to mark job %s as failed: %v", jobID, err)
	}
	if w.notifier != nil {
		w.notifier.BroadcastError(jobID, "TRANSCRIBE_FAILED", msg)
	}
}

func (w *TranscribeWorker) broadcastStatus(jobID string, status model.JobStatus, stage string) {
	if w.notifier != nil {
		w.notifier.BroadcastStatus(jobID, status, stage)
	}
}
