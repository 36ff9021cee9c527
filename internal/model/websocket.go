package model

// WebSocket message types
const (
	WSMessageTypeStatus   = "status"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
)

// WSStatusMessage notifies subscribers of a job stage change
type WSStatusMessage struct {
	Type   string    `json:"type"`
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
	Stage  string    `json:"stage,omitempty"`
}

// WSCompleteMessage notifies subscribers of a finished transcript
type WSCompleteMessage struct {
	Type       string `json:"type"`
	JobID      string `json:"jobId"`
	Transcript string `json:"transcript"`
}

// WSError carries error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSErrorMessage notifies subscribers of a failed job
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}
