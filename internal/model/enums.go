package model

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusError      JobStatus = "error"
)

// StatusNotFound is the status string reported for unknown job ids.
// It is never stored on a job record.
const StatusNotFound = "not_found"

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// CanTransition enforces the allowed job state machine edges:
// queued -> processing, processing -> done|error, and queued -> error
// for jobs that fail before any work is recorded.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusQueued:
		return to == JobStatusProcessing || to == JobStatusError
	case JobStatusProcessing:
		return to == JobStatusDone || to == JobStatusError
	default:
		return false
	}
}

// Whisper models
type WhisperModel string

const (
	ModelTiny   WhisperModel = "tiny"
	ModelBase   WhisperModel = "base"
	ModelSmall  WhisperModel = "small"
	ModelMedium WhisperModel = "medium"
	ModelLarge  WhisperModel = "large"
)

var ValidModels = []WhisperModel{
	ModelTiny, ModelBase, ModelSmall, ModelMedium, ModelLarge,
}

// IsValidModel reports whether name is a known whisper model.
func IsValidModel(name string) bool {
	for _, m := range ValidModels {
		if string(m) == name {
			return true
		}
	}
	return false
}

// SupportedExtensions lists the audio file extensions accepted for
// synchronous transcription (lowercase, dot included).
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".wma":  true,
	".aac":  true,
}
