// Package job provides the Job aggregate for subtitling videos and the
// service that drives a job through the transcribe, translate, render and
// mux pipeline. It also holds the repository port used to persist jobs.
package job

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/NicolasFive/VideoTingYi/internal/job/id"
	"github.com/NicolasFive/VideoTingYi/internal/subtitle"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting to be processed.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the pipeline is working on the job.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the subtitled video is ready.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates a pipeline stage returned an error.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was deleted, or the service shut down,
	// while it was running.
	StatusCancelled Status = "CANCELLED"
	// StatusTimedOut indicates the job ran past its deadline.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled, StatusTimedOut},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusTimedOut:  {},
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := validTransitions[st]
	return st, ok
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Stage is the pipeline step a running job is in.
type Stage string

// Pipeline stages in execution order.
const (
	StagePending    Stage = "pending"
	StagePrepare    Stage = "prepare"
	StageProbe      Stage = "probe"
	StageTranscribe Stage = "transcribe"
	StageAlign      Stage = "align"
	StageTranslate  Stage = "translate"
	StageRender     Stage = "render"
	StageMux        Stage = "mux"
	StageUpload     Stage = "upload"
	StageDone       Stage = "done"
)

// stageProgress is the progress reported once a stage has finished.
var stageProgress = map[Stage]int{
	StagePending:    0,
	StagePrepare:    5,
	StageProbe:      10,
	StageTranscribe: 40,
	StageAlign:      45,
	StageTranslate:  75,
	StageRender:     85,
	StageMux:        95,
	StageUpload:     100,
	StageDone:       100,
}

// Job represents one video subtitling request.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// Stage is the pipeline step currently running or last finished.
	Stage Stage
	// Progress is the percentage of completion (0-100).
	Progress int
	// Error contains any error message if the job failed.
	Error string

	// Source is the local path or http(s) URL of the input video.
	Source string
	// TranscriptID reuses an existing transcription when set.
	TranscriptID string
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool

	// WorkDir is the job's private working directory.
	WorkDir string
	// InputVideoPath is the local copy of Source.
	InputVideoPath string
	// SubtitlePath is the rendered SSA file inside WorkDir.
	SubtitlePath string
	// OutputVideoPath is the muxed video inside WorkDir.
	OutputVideoPath string
	// VideoURL is the S3 URL of the output video if PushToS3 was true.
	VideoURL string
	// SubtitleURL is the S3 URL of the subtitle file if PushToS3 was true.
	SubtitleURL string

	// Size is the probed video size and the derived font size.
	Size subtitle.SubtitleSize
	// Stats summarises how sentences turned into cues.
	Stats subtitle.BuildStats

	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusInQueue,
		Stage:     StagePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED and marks the pipeline done.
func (j *Job) Complete() error {
	if err := j.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	j.EnterStage(StageDone)
	return nil
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// Timeout transitions the job to TIMED_OUT state.
func (j *Job) Timeout(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusTimedOut)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// EnterStage records that stage has started. Entering StageDone sets
// Progress to 100.
func (j *Job) EnterStage(stage Stage) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Stage = stage
	if stage == StageDone {
		j.Progress = 100
	}
	j.UpdatedAt = time.Now()
}

// FinishStage records that stage has finished and advances Progress.
func (j *Job) FinishStage(stage Stage) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if p, ok := stageProgress[stage]; ok && p > j.Progress {
		j.Progress = p
	}
	j.UpdatedAt = time.Now()
}

// UpdateProgress sets the progress percentage (0-100).
func (j *Job) UpdateProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = min(max(progress, 0), 100)
	j.UpdatedAt = time.Now()
}

// SetWorkspace records the working directory and the local input video.
func (j *Job) SetWorkspace(workDir, inputPath string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.WorkDir = workDir
	j.InputVideoPath = inputPath
	j.UpdatedAt = time.Now()
}

// SetSize records the probed video size.
func (j *Job) SetSize(size subtitle.SubtitleSize) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Size = size
	j.UpdatedAt = time.Now()
}

// SetSubtitle records the rendered subtitle file and the build statistics.
func (j *Job) SetSubtitle(path string, stats subtitle.BuildStats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.SubtitlePath = path
	j.Stats = stats
	j.UpdatedAt = time.Now()
}

// SetOutput sets the output video path and optional S3 URL.
func (j *Job) SetOutput(videoPath, videoURL string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputVideoPath = videoPath
	j.VideoURL = videoURL
	j.UpdatedAt = time.Now()
}

// SetSubtitleURL records where the subtitle file was uploaded.
func (j *Job) SetSubtitleURL(u string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.SubtitleURL = u
	j.UpdatedAt = time.Now()
}

// ClearWorkspace forgets every path inside the working directory.
// This is used once the directory has been removed.
func (j *Job) ClearWorkspace() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.WorkDir = ""
	j.InputVideoPath = ""
	j.SubtitlePath = ""
	j.OutputVideoPath = ""
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(validTransitions[j.Status]) == 0
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:              j.ID,
		Status:          j.Status,
		Stage:           j.Stage,
		Progress:        j.Progress,
		Error:           j.Error,
		Source:          j.Source,
		TranscriptID:    j.TranscriptID,
		PushToS3:        j.PushToS3,
		WorkDir:         j.WorkDir,
		InputVideoPath:  j.InputVideoPath,
		SubtitlePath:    j.SubtitlePath,
		OutputVideoPath: j.OutputVideoPath,
		VideoURL:        j.VideoURL,
		SubtitleURL:     j.SubtitleURL,
		Size:            j.Size,
		Stats:           j.Stats,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
	}
}
