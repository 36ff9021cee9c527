package client

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
	"time"

	"github.com/voxscribe/api/internal/config"
	"github.com/voxscribe/api/internal/model"
)

// Segment is one timed span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the provider's output for one audio file.
type Transcription struct {
	Text                string
	Language            string
	LanguageProbability float64
	Segments            []Segment
}

// Transcriber defines the speech-to-text collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, whisperModel model.WhisperModel) (*Transcription, error)
}

// WhisperClient implements Transcriber against the faster-whisper
// microservice (multipart upload to POST /transcribe).
type WhisperClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewWhisperClient creates a new transcription service client
func NewWhisperClient(cfg *config.WhisperConfig) *WhisperClient {
	return &WhisperClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
		apiKey:  cfg.APIKey,
	}
}

// transcribeResponse mirrors the service's wire format.
type transcribeResponse struct {
	Transcript          string    `json:"transcript"`
	DetectedLanguage    string    `json:"detected_language"`
	LanguageProbability float64   `json:"language_probability"`
	Segments            []Segment `json:"segments,omitempty"`
}

// Transcribe uploads the audio file and returns the recognized text.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string, whisperModel model.WhisperModel) (*Transcription, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	if err := writer.WriteField("model", string(whisperModel)); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transcription service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result transcribeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &Transcription{
		Text:                result.Transcript,
		Language:            result.DetectedLanguage,
		LanguageProbability: result.LanguageProbability,
		Segments:            result.Segments,
	}, nil
}

// HealthCheck checks if the transcription service is available
func (c *WhisperClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transcription service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *WhisperClient) IsConfigured() bool {
	return c.baseURL != ""
}
