package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/voxscribe/api/internal/client"
	"github.com/voxscribe/api/internal/config"
	"github.com/voxscribe/api/internal/fetcher"
	"github.com/voxscribe/api/internal/handler"
	"github.com/voxscribe/api/internal/middleware"
	"github.com/voxscribe/api/internal/model"
	"github.com/voxscribe/api/internal/service"
	"github.com/voxscribe/api/internal/storage"
	"github.com/voxscribe/api/internal/store"
	"github.com/voxscribe/api/internal/worker"
)

// fakeEnqueuer captures tasks instead of pushing them to Redis; tests
// drain them through the worker by hand.
type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: task.Type()}, nil
}

func (f *fakeEnqueuer) take() []*asynq.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := f.tasks
	f.tasks = nil
	return tasks
}

// fakeFetcher materializes a small audio file without touching yt-dlp.
type fakeFetcher struct {
	err error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, destDir string) (*fetcher.Media, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(destDir, "audio.mp3")
	if err := os.WriteFile(path, []byte("fake audio"), 0o644); err != nil {
		return nil, err
	}
	return &fetcher.Media{Path: path, Title: "Test Video", Duration: 42}, nil
}

// fakeTranscriber answers with a canned transcription.
type fakeTranscriber struct {
	err error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string, whisperModel model.WhisperModel) (*client.Transcription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &client.Transcription{
		Text:                "hello from the test transcriber",
		Language:            "en",
		LanguageProbability: 0.97,
	}, nil
}

// memTranscripts is a map-backed TranscriptStore.
type memTranscripts struct {
	mu    sync.Mutex
	saved map[string]string
}

func newMemTranscripts() *memTranscripts {
	return &memTranscripts{saved: make(map[string]string)}
}

func (m *memTranscripts) Save(ctx context.Context, jobID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[jobID] = text
	return nil
}

func (m *memTranscripts) Load(ctx context.Context, jobID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.saved[jobID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return text, nil
}

func (m *memTranscripts) Delete(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, jobID)
	return nil
}

type noopNotifier struct{}

func (noopNotifier) BroadcastStatus(jobID string, status model.JobStatus, stage string) {}
func (noopNotifier) BroadcastComplete(jobID string, transcript string)                 {}
func (noopNotifier) BroadcastError(jobID string, code, message string)                 {}

// testEnv holds the app plus the seams tests poke at.
type testEnv struct {
	app         *fiber.App
	store       *store.MemoryStore
	enqueuer    *fakeEnqueuer
	transcripts *memTranscripts
	fetcher     *fakeFetcher
	transcriber *fakeTranscriber
	worker      *worker.TranscribeWorker
}

// setupApp builds a Fiber app mirroring main.go's routes on in-memory
// collaborators, so no Redis or external service is needed.
func setupApp(t *testing.T, authCfg *config.AuthConfig) *testEnv {
	t.Helper()

	if authCfg == nil {
		authCfg = &config.AuthConfig{Mode: middleware.AuthModeNone}
	}

	env := &testEnv{
		store:       store.NewMemoryStore(),
		enqueuer:    &fakeEnqueuer{},
		transcripts: newMemTranscripts(),
		fetcher:     &fakeFetcher{},
		transcriber: &fakeTranscriber{},
	}

	validate := validator.New()

	jobService := service.NewJobService(env.store, env.enqueuer, env.transcripts, "base")
	transcribeService := service.NewTranscribeService(env.transcriber, "base")

	jobHandler := handler.NewJobHandler(jobService, validate)
	transcribeHandler := handler.NewTranscribeHandler(transcribeService, validate, 100)

	env.worker = worker.NewTranscribeWorker(env.store, env.fetcher, env.transcriber, env.transcripts, noopNotifier{}, t.TempDir())

	authMiddleware := middleware.NewAuthMiddleware(authCfg)
	auth := authMiddleware.Authenticate()

	app := fiber.New(fiber.Config{
		BodyLimit: 101 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Post("/transcribe-audio", auth, transcribeHandler.Audio)
	app.Post("/transcribe-youtube", auth, jobHandler.Submit)
	app.Get("/status/:jobId", jobHandler.Status)
	app.Get("/result/:jobId", jobHandler.Result)
	app.Get("/models", auth, transcribeHandler.Models)

	env.app = app
	return env
}

// drainTasks runs the worker over every captured task, the way the
// asynq server would deliver them.
func (env *testEnv) drainTasks(t *testing.T) {
	t.Helper()
	for _, task := range env.enqueuer.take() {
		// Pipeline failures are recorded on the job; the returned error
		// only matters to asynq's retry machinery.
		_ = env.worker.ProcessTask(context.Background(), task)
	}
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doUpload performs a multipart file upload against the test app.
func doUpload(t *testing.T, app *fiber.App, path, filename, modelName string, content []byte, headers map[string]string) (*http.Response, error) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if modelName != "" {
		if err := writer.WriteField("model", modelName); err != nil {
			t.Fatalf("failed to write model field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// submitJob posts a youtube submission and returns the accepted job id.
func submitJob(t *testing.T, env *testEnv, url string) string {
	t.Helper()
	resp, err := doRequest(env.app, http.MethodPost, "/transcribe-youtube",
		fmt.Sprintf(`{"url": %q}`, url), nil)
	if err != nil {
		t.Fatalf("submit request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	body := parseJSON(t, resp)
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatalf("submit response missing job_id: %v", body)
	}
	if body["status"] != "queued" {
		t.Errorf("expected queued on submit, got %v", body["status"])
	}
	return jobID
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses a response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
