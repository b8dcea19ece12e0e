// Package server provides the HTTP API for subtitle jobs.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// CreateJobRequest is the HTTP request body for creating a new job.
type CreateJobRequest struct {
	// VideoPath is a local file path or an http(s) URL of the source video.
	VideoPath string `json:"video_path" validate:"required"`
	// TranscriptID reuses an existing AssemblyAI transcript.
	TranscriptID string `json:"transcript_id,omitempty" validate:"omitempty,uuid"`
	// PushToS3 indicates whether to upload the results to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`

	// Video is the probed size of the source video, once known.
	Video    *VideoInfo     `json:"video,omitempty"`
	Subtitle *SubtitleStats `json:"subtitle,omitempty"`

	// OutputPath is the local muxed video while the work directory exists.
	OutputPath  string `json:"output_path,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
	SubtitleURL string `json:"subtitle_url,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// VideoInfo describes the source video and the derived subtitle size.
type VideoInfo struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	FontSize  int `json:"font_size"`
	ChunkSize int `json:"chunk_size"`
}

// SubtitleStats reports how the transcript turned into cues.
type SubtitleStats struct {
	Sentences        int `json:"sentences"`
	PartialSentences int `json:"partial_sentences"`
	FailedSentences  int `json:"failed_sentences"`
	EmptySentences   int `json:"empty_sentences"`
	Cues             int `json:"cues"`
}

// ListJobsResponse is the HTTP response for listing jobs.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
