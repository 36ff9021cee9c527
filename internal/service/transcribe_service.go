package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/voxscribe/api/internal/client"
	"github.com/voxscribe/api/internal/model"
)

// TranscribeService handles the synchronous upload path: the audio is
// already local, so there is no job indirection.
type TranscribeService struct {
	transcriber  client.Transcriber
	defaultModel model.WhisperModel
}

func NewTranscribeService(transcriber client.Transcriber, defaultModel string) *TranscribeService {
	if !model.IsValidModel(defaultModel) {
		defaultModel = string(model.ModelBase)
	}
	return &TranscribeService{
		transcriber:  transcriber,
		defaultModel: model.WhisperModel(defaultModel),
	}
}

// TranscribeUpload spools the uploaded audio to a temp file, runs the
// transcription provider on it, and removes the file on all paths.
func (s *TranscribeService) TranscribeUpload(ctx context.Context, filename string, file io.Reader, modelName string) (*model.TranscribeAudioResponse, error) {
	whisperModel := s.defaultModel
	if modelName != "" {
		whisperModel = model.WhisperModel(modelName)
	}

	ext := filepath.Ext(filename)
	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush upload: %w", err)
	}

	result, err := s.transcriber.Transcribe(ctx, tmp.Name(), whisperModel)
	if err != nil {
		return nil, err
	}

	return &model.TranscribeAudioResponse{
		Transcript:          result.Text,
		Language:            result.Language,
		LanguageProbability: result.LanguageProbability,
	}, nil
}
