package model

// TranscribeAudioResponse is returned by the synchronous upload endpoint
type TranscribeAudioResponse struct {
	Transcript          string  `json:"transcript"`
	Language            string  `json:"language,omitempty"`
	LanguageProbability float64 `json:"language_probability,omitempty"`
}

// SubmitYoutubeRequest is the body of POST /transcribe-youtube
type SubmitYoutubeRequest struct {
	URL   string `json:"url" validate:"required,url"`
	Model string `json:"model" validate:"omitempty,oneof=tiny base small medium large"`
}

// SubmitYoutubeResponse acknowledges an accepted job
type SubmitYoutubeResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatusResponse is returned by GET /status/:jobId
type JobStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResultResponse is returned by GET /result/:jobId. Transcript is
// set only for done jobs; otherwise Status carries the current state.
type JobResultResponse struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// ModelInfo describes one whisper model in the /models catalog
type ModelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModelsResponse is returned by GET /models
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelCatalog mirrors the catalog exposed by the transcription backend.
var ModelCatalog = []ModelInfo{
	{Name: "tiny", Description: "Fastest, least accurate"},
	{Name: "base", Description: "Good balance of speed and accuracy"},
	{Name: "small", Description: "Better accuracy, slower"},
	{Name: "medium", Description: "High accuracy, slower"},
	{Name: "large", Description: "Best accuracy, slowest"},
}

// TranscribeJobPayload is the asynq task payload for a youtube job
type TranscribeJobPayload struct {
	URL   string       `json:"url"`
	Model WhisperModel `json:"model"`
}
