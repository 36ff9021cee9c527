package model

import "time"

// Job represents one tracked transcription job in the system
type Job struct {
	ID                  string     `json:"id"`
	Input               string     `json:"input"`
	Model               WhisperModel `json:"model"`
	Status              JobStatus  `json:"status"`
	Error               *string    `json:"error,omitempty"`
	Title               string     `json:"title,omitempty"`
	Duration            float64    `json:"duration,omitempty"`
	Language            string     `json:"language,omitempty"`
	LanguageProbability float64    `json:"languageProbability,omitempty"`
	HasResult           bool       `json:"hasResult"`
	CreatedAt           time.Time  `json:"createdAt"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
}

// PublicStatus renders the status string exposed on the polling
// endpoints. Failed jobs carry their message inline ("error: <msg>").
func (j *Job) PublicStatus() string {
	if j.Status == JobStatusError && j.Error != nil {
		return "error: " + *j.Error
	}
	return string(j.Status)
}

// SetError moves the job to its terminal error state.
func (j *Job) SetError(msg string) {
	j.Status = JobStatusError
	j.Error = &msg
	now := time.Now()
	j.CompletedAt = &now
}
