package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/NicolasFive/VideoTingYi/internal/assemblyai"
	"github.com/NicolasFive/VideoTingYi/internal/audio"
	"github.com/NicolasFive/VideoTingYi/internal/media"
	"github.com/NicolasFive/VideoTingYi/internal/storage"
	"github.com/NicolasFive/VideoTingYi/internal/subtitle"
	"github.com/NicolasFive/VideoTingYi/internal/translate"
)

// File names inside a job's working directory.
const (
	AudioFileName    = "audio.mp3"
	SubtitleFileName = "subtitle.ass"
	OutputFileName   = "output.mp4"
)

// Static errors for the subtitle service.
var (
	// ErrSourceRequired is returned when a job has no video source.
	ErrSourceRequired = errors.New("job: video source is required")
	// ErrSourceNotFound is returned when a local source video does not exist.
	ErrSourceNotFound = errors.New("job: source video not found")
	// ErrS3Unavailable is returned when S3 delivery is requested but not configured.
	ErrS3Unavailable = errors.New("job: S3 delivery is not configured")
	// ErrNoUtterances is returned when the transcript has no speech.
	ErrNoUtterances = errors.New("job: transcript has no utterances")
	// ErrShuttingDown is returned by ProcessJob after Shutdown was called.
	ErrShuttingDown = errors.New("job: service is shutting down")
)

// Transcriber turns a media file into a speaker-labelled, word-timed
// transcript. assemblyai.Client satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (assemblyai.Transcript, error)
	Wait(ctx context.Context, id string) (assemblyai.Transcript, error)
}

// CreateInput contains the parameters of a new subtitle job.
type CreateInput struct {
	// Source is a local path or an http(s) URL of the input video.
	Source string
	// TranscriptID reuses an existing transcription instead of uploading.
	TranscriptID string
	// PushToS3 uploads the output video and subtitle file to S3.
	PushToS3 bool
}

// SubtitleService runs the video subtitling pipeline:
//
//  1. create a working directory and fetch the source video
//  2. probe the video size and derive the font size and line budget
//  3. transcribe (or fetch an existing transcript)
//  4. split utterances into sentences aligned to word timestamps
//  5. translate and split every sentence into fragments
//  6. allocate fragment timings, wrap and regroup cues
//  7. render the SSA file
//  8. burn the subtitles into the video
//  9. optionally upload the results to S3 and remove the working directory
type SubtitleService struct {
	repo        Repository
	store       storage.Storage
	media       media.Processor
	transcriber Transcriber
	translator  translate.Translator
	extractor   audio.Extractor
	logger      *slog.Logger

	fontName   string
	s3Enabled  bool
	jobTimeout time.Duration

	mu      sync.Mutex
	running map[string]*runState
	closed  bool
	wg      sync.WaitGroup
}

// runState tracks a job whose pipeline is in flight.
type runState struct {
	cancel  context.CancelFunc
	deleted bool
}

// ServiceOption configures a SubtitleService.
type ServiceOption func(*SubtitleService)

// WithFontName sets the font family written into rendered subtitles.
func WithFontName(name string) ServiceOption {
	return func(s *SubtitleService) {
		if name != "" {
			s.fontName = name
		}
	}
}

// WithS3 declares whether the storage backend can deliver to S3.
func WithS3(enabled bool) ServiceOption {
	return func(s *SubtitleService) {
		s.s3Enabled = enabled
	}
}

// WithJobTimeout bounds the duration of a single pipeline run.
// Zero means no limit.
func WithJobTimeout(d time.Duration) ServiceOption {
	return func(s *SubtitleService) {
		s.jobTimeout = d
	}
}

// WithAudioExtractor uploads an extracted audio track for transcription
// instead of the whole video.
func WithAudioExtractor(e audio.Extractor) ServiceOption {
	return func(s *SubtitleService) {
		s.extractor = e
	}
}

// NewSubtitleService creates a SubtitleService. A nil logger uses
// slog.Default().
func NewSubtitleService(
	repo Repository,
	store storage.Storage,
	processor media.Processor,
	transcriber Transcriber,
	translator translate.Translator,
	logger *slog.Logger,
	opts ...ServiceOption,
) *SubtitleService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SubtitleService{
		repo:        repo,
		store:       store,
		media:       processor,
		transcriber: transcriber,
		translator:  translator,
		logger:      logger,
		fontName:    subtitle.DefaultFontName,
		running:     make(map[string]*runState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob validates input and persists a new job in IN_QUEUE status.
func (s *SubtitleService) CreateJob(ctx context.Context, input CreateInput) (*Job, error) {
	source := strings.TrimSpace(input.Source)
	if source == "" {
		return nil, ErrSourceRequired
	}
	if input.PushToS3 && !s.s3Enabled {
		return nil, ErrS3Unavailable
	}
	if !isRemote(source) {
		if _, err := os.Stat(source); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
	}

	job := New()
	job.Source = source
	job.TranscriptID = strings.TrimSpace(input.TranscriptID)
	job.PushToS3 = input.PushToS3

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.String("source", source),
		slog.Bool("reuse_transcript", job.TranscriptID != ""),
		slog.Bool("push_to_s3", input.PushToS3),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return job, nil
}

// GetJob retrieves a job by ID.
func (s *SubtitleService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns the jobs matching filter, newest first.
func (s *SubtitleService) ListJobs(ctx context.Context, filter ListFilter) ([]*Job, error) {
	return s.repo.List(ctx, filter)
}

// DeleteJob cancels the job if it is running, removes its working directory
// and forgets it.
func (s *SubtitleService) DeleteJob(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	// A deleted job must not be saved again by its own pipeline. Deleting
	// under s.mu orders this against track.
	s.mu.Lock()
	run, running := s.running[id]
	if running {
		run.deleted = true
	}
	err = s.repo.Delete(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if running {
		s.logger.Info("cancelling running job", slog.String("job_id", id))
		run.cancel()
	}

	if job.WorkDir != "" {
		if err := s.store.CleanupDir(ctx, job.WorkDir); err != nil {
			s.logger.Warn("failed to remove work directory",
				slog.String("job_id", id),
				slog.String("work_dir", job.WorkDir),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// ProcessJob runs the pipeline for a job created by CreateJob. The job's
// final state is persisted; the returned error is the one that failed it.
func (s *SubtitleService) ProcessJob(ctx context.Context, jobID string) (*Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := job.Start(); err != nil {
		return nil, fmt.Errorf("start job %s: %w", jobID, err)
	}

	ctx, cancel := s.jobContext(ctx)
	defer cancel()
	if err := s.track(ctx, jobID, cancel); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			// Deleted since it was loaded; saving now would bring it back.
			return nil, fmt.Errorf("start job %s: %w", jobID, err)
		}
		err = fmt.Errorf("%w: %w", err, context.Canceled)
		s.finishWithError(ctx, job, err)
		return job.Clone(), err
	}
	defer s.untrack(jobID)
	s.save(ctx, job)

	if err := s.run(ctx, job); err != nil {
		s.finishWithError(ctx, job, err)
		return job.Clone(), err
	}

	if err := job.Complete(); err != nil {
		return nil, fmt.Errorf("complete job %s: %w", jobID, err)
	}
	s.save(ctx, job)

	s.logger.Info("job completed",
		slog.String("job_id", job.ID),
		slog.Int("cues", job.Stats.Cues),
		slog.String("output", job.OutputVideoPath),
		slog.String("video_url", job.VideoURL),
	)
	return job.Clone(), nil
}

// Process creates a job and runs it to completion.
func (s *SubtitleService) Process(ctx context.Context, input CreateInput) (*Job, error) {
	job, err := s.CreateJob(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.ProcessJob(ctx, job.ID)
}

func (s *SubtitleService) run(ctx context.Context, job *Job) error {
	log := s.logger.With(slog.String("job_id", job.ID))

	// 1. Working directory and source video.
	s.enter(ctx, job, StagePrepare)
	workDir, err := s.store.CreateWorkDir(ctx)
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	job.SetWorkspace(workDir, "")
	input := job.Source
	if isRemote(input) {
		input, err = s.store.Download(ctx, job.Source, workDir)
		if err != nil {
			return fmt.Errorf("download source video: %w", err)
		}
	}
	job.SetWorkspace(workDir, input)
	s.finish(ctx, job, StagePrepare)

	// 2. Probe.
	s.enter(ctx, job, StageProbe)
	dim, err := s.media.ProbeDimensions(ctx, input)
	if err != nil {
		return fmt.Errorf("probe video: %w", err)
	}
	size := subtitle.CalcSize(dim)
	job.SetSize(size)
	log.Info("video probed",
		slog.Int("width", dim.Width),
		slog.Int("height", dim.Height),
		slog.Int("font_size", size.FontSize),
		slog.Int("chunk_size", size.ChunkSize()),
	)
	s.finish(ctx, job, StageProbe)

	// 3. Transcribe.
	s.enter(ctx, job, StageTranscribe)
	var transcript assemblyai.Transcript
	if job.TranscriptID != "" {
		transcript, err = s.transcriber.Wait(ctx, job.TranscriptID)
	} else {
		var audioPath string
		audioPath, err = s.transcriptionInput(ctx, log, input, workDir)
		if err != nil {
			return err
		}
		transcript, err = s.transcriber.Transcribe(ctx, audioPath)
	}
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	if len(transcript.Utterances) == 0 {
		return ErrNoUtterances
	}
	log.Info("transcript ready",
		slog.String("transcript_id", transcript.ID),
		slog.Int("utterances", len(transcript.Utterances)),
	)
	s.finish(ctx, job, StageTranscribe)

	// 4. Sentences.
	s.enter(ctx, job, StageAlign)
	alignments := subtitle.SplitUtterances(transcript.Utterances)
	for i, a := range alignments {
		if a.Status == subtitle.AlignFull {
			continue
		}
		log.Warn("sentence alignment incomplete",
			slog.Int("sentence", i),
			slog.String("status", a.Status.String()),
			slog.Int("matched", a.Matched),
			slog.Int("tokens", a.Tokens),
			slog.String("text", a.Sentence.Text),
		)
	}
	texts := subtitle.Texts(alignments)
	s.finish(ctx, job, StageAlign)

	// 5. Translate.
	s.enter(ctx, job, StageTranslate)
	fragments, err := s.translator.Translate(ctx, texts, size.ChunkSize())
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}
	s.finish(ctx, job, StageTranslate)

	// 6-7. Cues and render.
	s.enter(ctx, job, StageRender)
	cues, stats := subtitle.Build(alignments, fragments, size)
	subPath := filepath.Join(workDir, SubtitleFileName)
	if err := subtitle.WriteFile(subPath, cues, subtitle.OptionsFor(size, s.fontName)); err != nil {
		return fmt.Errorf("render subtitles: %w", err)
	}
	job.SetSubtitle(subPath, stats)
	log.Info("subtitles rendered",
		slog.Int("sentences", stats.Sentences),
		slog.Int("partial", stats.Partial),
		slog.Int("failed", stats.Failed),
		slog.Int("empty", stats.Empty),
		slog.Int("cues", stats.Cues),
	)
	s.finish(ctx, job, StageRender)

	// 8. Mux.
	s.enter(ctx, job, StageMux)
	outPath := filepath.Join(workDir, OutputFileName)
	if err := s.media.BurnSubtitles(ctx, input, subPath, outPath); err != nil {
		return fmt.Errorf("burn subtitles: %w", err)
	}
	job.SetOutput(outPath, "")
	s.finish(ctx, job, StageMux)

	// 9. Deliver.
	if !job.PushToS3 {
		return nil
	}
	s.enter(ctx, job, StageUpload)
	videoURL, err := s.upload(ctx, outPath, "videos/"+job.ID+".mp4")
	if err != nil {
		return fmt.Errorf("upload video: %w", err)
	}
	subURL, err := s.upload(ctx, subPath, "subtitles/"+job.ID+".ass")
	if err != nil {
		return fmt.Errorf("upload subtitles: %w", err)
	}
	job.SetOutput(outPath, videoURL)
	job.SetSubtitleURL(subURL)

	if err := s.store.CleanupDir(ctx, workDir); err != nil {
		log.Warn("failed to remove work directory",
			slog.String("work_dir", workDir),
			slog.String("error", err.Error()),
		)
	} else {
		job.ClearWorkspace()
	}
	s.finish(ctx, job, StageUpload)

	return nil
}

// transcriptionInput returns the file to upload for transcription. Without
// an extractor, or when extraction fails for a reason other than a missing
// audio stream, that is the video itself.
func (s *SubtitleService) transcriptionInput(ctx context.Context, log *slog.Logger, video, workDir string) (string, error) {
	if s.extractor == nil {
		return video, nil
	}

	out := filepath.Join(workDir, AudioFileName)
	dur, err := s.extractor.Extract(ctx, video, out, audio.DefaultExtractOpts())
	switch {
	case err == nil:
		log.Info("audio extracted",
			slog.String("path", out),
			slog.Float64("duration_sec", dur),
		)
		return out, nil
	case errors.Is(err, audio.ErrNoAudio), ctx.Err() != nil:
		return "", fmt.Errorf("extract audio: %w", err)
	default:
		log.Warn("audio extraction failed, uploading video",
			slog.String("error", err.Error()),
		)
		return video, nil
	}
}

func (s *SubtitleService) upload(ctx context.Context, path, key string) (string, error) {
	f, err := s.store.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return s.store.UploadToS3(ctx, key, f)
}

// finishWithError records err on the job and removes its working directory,
// which holds nothing usable after a failure.
func (s *SubtitleService) finishWithError(ctx context.Context, job *Job, err error) {
	// The job context may be dead; persisting the outcome must still work.
	ctx = context.WithoutCancel(ctx)

	s.logger.Error("job failed",
		slog.String("job_id", job.ID),
		slog.String("stage", string(job.Stage)),
		slog.String("error", err.Error()),
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		_ = job.Timeout(err.Error())
	case errors.Is(err, context.Canceled):
		_ = job.Cancel()
	default:
		_ = job.Fail(err.Error())
	}

	if dir := job.WorkDir; dir != "" {
		if cerr := s.store.CleanupDir(ctx, dir); cerr != nil {
			s.logger.Warn("failed to remove work directory",
				slog.String("job_id", job.ID),
				slog.String("work_dir", dir),
				slog.String("error", cerr.Error()),
			)
		} else {
			job.ClearWorkspace()
		}
	}

	s.save(ctx, job)
}

func (s *SubtitleService) enter(ctx context.Context, job *Job, stage Stage) {
	job.EnterStage(stage)
	s.logger.Debug("stage started",
		slog.String("job_id", job.ID),
		slog.String("stage", string(stage)),
	)
	s.save(ctx, job)
}

func (s *SubtitleService) finish(ctx context.Context, job *Job, stage Stage) {
	job.FinishStage(stage)
	s.save(ctx, job)
}

// save persists job unless it was deleted meanwhile. A failed save is only
// logged.
func (s *SubtitleService) save(ctx context.Context, job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.running[job.ID]; ok && run.deleted {
		return
	}
	if err := s.repo.Save(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SubtitleService) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.jobTimeout > 0 {
		return context.WithTimeout(ctx, s.jobTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *SubtitleService) track(ctx context.Context, id string, cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrShuttingDown
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	s.running[id] = &runState{cancel: cancel}
	s.wg.Add(1)
	return nil
}

func (s *SubtitleService) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
	s.wg.Done()
}

// Shutdown cancels every running pipeline and waits for them to record
// their final state, or for ctx to end. Jobs started afterwards are
// cancelled immediately.
func (s *SubtitleService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	n := len(s.running)
	for _, run := range s.running {
		run.cancel()
	}
	s.mu.Unlock()

	if n > 0 {
		s.logger.Info("cancelling running jobs", slog.Int("count", n))
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
