// Package assemblyai provides an HTTP client for the AssemblyAI speech-to-text
// API: media upload, transcript submission with speaker labels, polling and
// listing of previous transcripts.
package assemblyai

import "github.com/NicolasFive/VideoTingYi/internal/subtitle"

// Status represents the status of an AssemblyAI transcript.
type Status string

// Transcript statuses as reported by the API.
const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Transcript is a transcription result. Utterances are only present for
// completed transcripts submitted with speaker labels.
type Transcript struct {
	ID            string               `json:"id"`
	Status        Status               `json:"status"`
	AudioURL      string               `json:"audio_url"`
	Text          string               `json:"text"`
	LanguageCode  string               `json:"language_code,omitempty"`
	AudioDuration float64              `json:"audio_duration,omitempty"`
	Error         string               `json:"error,omitempty"`
	Words         []subtitle.Word      `json:"words,omitempty"`
	Utterances    []subtitle.Utterance `json:"utterances,omitempty"`
}

// ListParams filters ListTranscripts. Zero values are omitted.
type ListParams struct {
	Limit     int
	Status    Status
	CreatedOn string // YYYY-MM-DD
	BeforeID  string
	AfterID   string
}

// TranscriptSummary is one entry of a transcript listing.
type TranscriptSummary struct {
	ID        string `json:"id"`
	Status    Status `json:"status"`
	AudioURL  string `json:"audio_url"`
	Created   string `json:"created"`
	Completed string `json:"completed,omitempty"`
}

// uploadResponse represents the response from the /v2/upload endpoint.
type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// submitRequest represents the request body for the /v2/transcript endpoint.
type submitRequest struct {
	AudioURL      string   `json:"audio_url"`
	SpeakerLabels bool     `json:"speaker_labels"`
	SpeechModels  []string `json:"speech_models,omitempty"`
	LanguageCode  string   `json:"language_code,omitempty"`
}

// listResponse represents the response from GET /v2/transcript.
type listResponse struct {
	Transcripts []TranscriptSummary `json:"transcripts"`
}

// errorResponse is the body AssemblyAI returns with 4xx responses.
type errorResponse struct {
	Error string `json:"error"`
}
