package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/NicolasFive/VideoTingYi/internal/job"
)

// SubtitleContentType is served for rendered subtitle files.
const SubtitleContentType = "text/x-ssa; charset=utf-8"

// MaxListLimit bounds the limit query parameter of GET /jobs.
const MaxListLimit = 500

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.SubtitleService
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateJob only creates the job and returns immediately
// without starting background processing.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.SubtitleService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateJob handles POST /jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	createdJob, err := h.service.CreateJob(r.Context(), job.CreateInput{
		Source:       req.VideoPath,
		TranscriptID: req.TranscriptID,
		PushToS3:     req.PushToS3,
	})
	switch {
	case errors.Is(err, job.ErrSourceRequired), errors.Is(err, job.ErrSourceNotFound):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_SOURCE")
		return
	case errors.Is(err, job.ErrS3Unavailable):
		writeError(w, http.StatusBadRequest, err.Error(), "S3_NOT_CONFIGURED")
		return
	case err != nil:
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	// The pipeline outlives the request, so it gets a context that is not
	// cancelled when the response is written.
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string) {
			if _, err := h.service.ProcessJob(ctx, jobID); err != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), createdJob.ID)
	}

	h.logger.Info("job created",
		slog.String("job_id", createdJob.ID),
		slog.String("source", createdJob.Source),
	)

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     createdJob.ID,
		Status: string(createdJob.Status),
	})
}

// ListJobs handles GET /jobs requests. Optional query parameters: status
// and limit.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	var filter job.ListFilter
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		st, ok := job.ParseStatus(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status: "+v, "INVALID_STATUS")
			return
		}
		filter.Status = st
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxListLimit {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", MaxListLimit), "INVALID_LIMIT")
			return
		}
		filter.Limit = n
	}

	jobs, err := h.service.ListJobs(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_LIST_FAILED")
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	foundJob, ok := h.findJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(foundJob))
}

// GetSubtitle handles GET /jobs/{id}/subtitle requests. The rendered file
// is streamed while the work directory exists; after S3 delivery the client
// is redirected to the uploaded copy.
func (h *Handlers) GetSubtitle(w http.ResponseWriter, r *http.Request) {
	foundJob, ok := h.findJob(w, r)
	if !ok {
		return
	}

	if foundJob.SubtitlePath != "" {
		f, err := os.Open(foundJob.SubtitlePath)
		if err == nil {
			defer func() { _ = f.Close() }()
			w.Header().Set("Content-Type", SubtitleContentType)
			w.Header().Set("Content-Disposition", `attachment; filename="`+foundJob.ID+`.ass"`)
			w.WriteHeader(http.StatusOK)
			if _, err := io.Copy(w, f); err != nil {
				h.logger.Warn("failed to stream subtitle file",
					slog.String("job_id", foundJob.ID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		h.logger.Warn("subtitle file unreadable",
			slog.String("job_id", foundJob.ID),
			slog.String("path", foundJob.SubtitlePath),
			slog.String("error", err.Error()),
		)
	}

	if foundJob.SubtitleURL != "" {
		http.Redirect(w, r, foundJob.SubtitleURL, http.StatusFound)
		return
	}

	writeError(w, http.StatusNotFound, "subtitle not available", "SUBTITLE_NOT_AVAILABLE")
}

// DeleteJob handles DELETE /jobs/{id} requests.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	if err := h.service.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to delete job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete job", "JOB_DELETE_FAILED")
		return
	}

	h.logger.Info("job deleted", slog.String("job_id", jobID))
	w.WriteHeader(http.StatusNoContent)
}

// RateLimited is the response for clients over their daily job budget.
func RateLimited(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusTooManyRequests, "daily job limit reached", "RATE_LIMITED")
}

func (h *Handlers) findJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return nil, false
	}

	foundJob, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return nil, false
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return nil, false
	}
	return foundJob, true
}

func toJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:          j.ID,
		Status:      string(j.Status),
		Stage:       string(j.Stage),
		Progress:    j.Progress,
		Error:       j.Error,
		OutputPath:  j.OutputVideoPath,
		VideoURL:    j.VideoURL,
		SubtitleURL: j.SubtitleURL,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.Size.Video.Width > 0 {
		resp.Video = &VideoInfo{
			Width:     j.Size.Video.Width,
			Height:    j.Size.Video.Height,
			FontSize:  j.Size.FontSize,
			ChunkSize: j.Size.ChunkSize(),
		}
	}
	if j.Stats.Sentences > 0 {
		resp.Subtitle = &SubtitleStats{
			Sentences:        j.Stats.Sentences,
			PartialSentences: j.Stats.Partial,
			FailedSentences:  j.Stats.Failed,
			EmptySentences:   j.Stats.Empty,
			Cues:             j.Stats.Cues,
		}
	}
	if !j.CompletedAt.IsZero() {
		t := j.CompletedAt
		resp.CompletedAt = &t
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
