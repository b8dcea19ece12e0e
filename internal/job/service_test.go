package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NicolasFive/VideoTingYi/internal/assemblyai"
	"github.com/NicolasFive/VideoTingYi/internal/audio"
	"github.com/NicolasFive/VideoTingYi/internal/subtitle"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) CreateWorkDir(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Download(ctx context.Context, url, dir string) (string, error) {
	args := m.Called(ctx, url, dir)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	if rc := args.Get(0); rc != nil {
		return rc.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) CleanupDir(ctx context.Context, dir string) error {
	return m.Called(ctx, dir).Error(0)
}

func (m *mockStorage) UploadToS3(ctx context.Context, key string, data io.Reader) (string, error) {
	args := m.Called(ctx, key, data)
	return args.String(0), args.Error(1)
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProbeDimensions(ctx context.Context, path string) (subtitle.VideoDimension, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(subtitle.VideoDimension), args.Error(1)
}

func (m *mockProcessor) BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	return m.Called(ctx, videoPath, subtitlePath, outputPath).Error(0)
}

type mockTranscriber struct {
	mock.Mock
}

func (m *mockTranscriber) Transcribe(ctx context.Context, path string) (assemblyai.Transcript, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(assemblyai.Transcript), args.Error(1)
}

func (m *mockTranscriber) Wait(ctx context.Context, id string) (assemblyai.Transcript, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(assemblyai.Transcript), args.Error(1)
}

type mockTranslator struct {
	mock.Mock
}

func (m *mockTranslator) Translate(ctx context.Context, texts []string, maxLen int) ([][]string, error) {
	args := m.Called(ctx, texts, maxLen)
	if r := args.Get(0); r != nil {
		return r.([][]string), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, videoPath, outputPath string, opts audio.ExtractOpts) (float64, error) {
	args := m.Called(ctx, videoPath, outputPath, opts)
	return args.Get(0).(float64), args.Error(1)
}

type fixture struct {
	svc         *SubtitleService
	repo        *MemoryRepository
	store       *mockStorage
	media       *mockProcessor
	transcriber *mockTranscriber
	translator  *mockTranslator
	workDir     string
	source      string
}

func newFixture(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()
	f := &fixture{
		repo:        NewMemoryRepository(),
		store:       new(mockStorage),
		media:       new(mockProcessor),
		transcriber: new(mockTranscriber),
		translator:  new(mockTranslator),
		workDir:     t.TempDir(),
	}
	f.source = filepath.Join(t.TempDir(), "talk.mp4")
	require.NoError(t, os.WriteFile(f.source, []byte("video"), 0o600))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewSubtitleService(f.repo, f.store, f.media, f.transcriber, f.translator, logger, opts...)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.store.AssertExpectations(t)
	f.media.AssertExpectations(t)
	f.transcriber.AssertExpectations(t)
	f.translator.AssertExpectations(t)
}

func sampleTranscript() assemblyai.Transcript {
	return assemblyai.Transcript{
		ID:     "tr-1",
		Status: assemblyai.StatusCompleted,
		Utterances: []subtitle.Utterance{{
			Speaker: "A",
			Text:    "Hello world. Goodbye now.",
			Start:   0,
			End:     6000,
			Words: []subtitle.Word{
				{Text: "Hello", Start: 0, End: 500, Confidence: 0.9},
				{Text: "world.", Start: 600, End: 1400, Confidence: 0.9},
				{Text: "Goodbye", Start: 3000, End: 3600, Confidence: 0.9},
				{Text: "now.", Start: 3700, End: 5200, Confidence: 0.9},
			},
		}},
	}
}

func TestNewSubtitleService_Defaults(t *testing.T) {
	svc := NewSubtitleService(NewMemoryRepository(), nil, nil, nil, nil, nil)
	assert.Equal(t, subtitle.DefaultFontName, svc.fontName)
	assert.NotNil(t, svc.logger)
	assert.False(t, svc.s3Enabled)
	assert.Zero(t, svc.jobTimeout)

	svc = NewSubtitleService(NewMemoryRepository(), nil, nil, nil, nil, nil,
		WithFontName("Noto Sans CJK SC"), WithS3(true), WithJobTimeout(time.Minute))
	assert.Equal(t, "Noto Sans CJK SC", svc.fontName)
	assert.True(t, svc.s3Enabled)
	assert.Equal(t, time.Minute, svc.jobTimeout)
}

func TestSubtitleService_CreateJob(t *testing.T) {
	f := newFixture(t)

	job, err := f.svc.CreateJob(t.Context(), CreateInput{Source: " " + f.source + " ", TranscriptID: "tr-1"})
	require.NoError(t, err)

	assert.Equal(t, StatusInQueue, job.Status)
	assert.Equal(t, f.source, job.Source)
	assert.Equal(t, "tr-1", job.TranscriptID)

	saved, err := f.svc.GetJob(t.Context(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, saved.ID)
}

func TestSubtitleService_CreateJob_Invalid(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input CreateInput
		want  error
	}{
		{name: "empty source", input: CreateInput{Source: "  "}, want: ErrSourceRequired},
		{name: "missing file", input: CreateInput{Source: filepath.Join(t.TempDir(), "nope.mp4")}, want: ErrSourceNotFound},
		{name: "s3 disabled", input: CreateInput{Source: f.source, PushToS3: true}, want: ErrS3Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateJob(t.Context(), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	jobs, err := f.svc.ListJobs(t.Context(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSubtitleService_Process_LocalSource(t *testing.T) {
	f := newFixture(t)
	subPath := filepath.Join(f.workDir, SubtitleFileName)
	outPath := filepath.Join(f.workDir, OutputFileName)

	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.media.On("ProbeDimensions", mock.Anything, f.source).
		Return(subtitle.VideoDimension{Width: 1920, Height: 1080}, nil)
	f.transcriber.On("Transcribe", mock.Anything, f.source).Return(sampleTranscript(), nil)
	f.translator.On("Translate", mock.Anything, []string{"Hello world.", "Goodbye now."}, 35).
		Return([][]string{{"你好世界。"}, {"再见。"}}, nil)
	f.media.On("BurnSubtitles", mock.Anything, f.source, subPath, outPath).Return(nil)

	job, err := f.svc.Process(t.Context(), CreateInput{Source: f.source})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, StageDone, job.Stage)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 54, job.Size.FontSize)
	assert.Equal(t, subtitle.BuildStats{Sentences: 2, Cues: 2}, job.Stats)
	assert.Equal(t, f.workDir, job.WorkDir)
	assert.Equal(t, subPath, job.SubtitlePath)
	assert.Equal(t, outPath, job.OutputVideoPath)
	assert.Empty(t, job.VideoURL)

	data, err := os.ReadFile(subPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PlayResX: 1920")
	assert.Contains(t, string(data), `Dialogue: 0,0:00:00.00,0:00:01.40,Default,,10,10,0,,{\c&HFFFFFF&\fs54}你好世界。`)
	assert.Contains(t, string(data), `Dialogue: 0,0:00:03.00,0:00:05.20,Default,,10,10,0,,{\c&HFFFFFF&\fs54}再见。`)

	saved, err := f.repo.FindByID(t.Context(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, saved.Status)

	f.assertExpectations(t)
	f.store.AssertNotCalled(t, "CleanupDir", mock.Anything, mock.Anything)
}

func TestSubtitleService_Process_RemoteSourceToS3(t *testing.T) {
	f := newFixture(t, WithS3(true))
	const src = "https://cdn.example.com/media/clip.mp4"
	input := filepath.Join(f.workDir, "clip.mp4")
	subPath := filepath.Join(f.workDir, SubtitleFileName)
	outPath := filepath.Join(f.workDir, OutputFileName)

	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.store.On("Download", mock.Anything, src, f.workDir).Return(input, nil)
	f.media.On("ProbeDimensions", mock.Anything, input).
		Return(subtitle.VideoDimension{Width: 1280, Height: 720}, nil)
	f.transcriber.On("Wait", mock.Anything, "tr-9").Return(sampleTranscript(), nil)
	f.translator.On("Translate", mock.Anything, mock.Anything, 35).
		Return([][]string{{"Bonjour"}, nil}, nil)
	f.media.On("BurnSubtitles", mock.Anything, input, subPath, outPath).Return(nil)
	f.store.On("Open", mock.Anything, outPath).Return(io.NopCloser(strings.NewReader("mp4")), nil)
	f.store.On("Open", mock.Anything, subPath).Return(io.NopCloser(strings.NewReader("ass")), nil)
	f.store.On("UploadToS3", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasPrefix(k, "videos/job-") && strings.HasSuffix(k, ".mp4")
	}), mock.Anything).Return("https://bucket.s3.amazonaws.com/videos/x.mp4", nil)
	f.store.On("UploadToS3", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasPrefix(k, "subtitles/job-") && strings.HasSuffix(k, ".ass")
	}), mock.Anything).Return("https://bucket.s3.amazonaws.com/subtitles/x.ass", nil)
	f.store.On("CleanupDir", mock.Anything, f.workDir).Return(nil)

	job, err := f.svc.Process(t.Context(), CreateInput{Source: src, TranscriptID: "tr-9", PushToS3: true})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/videos/x.mp4", job.VideoURL)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/subtitles/x.ass", job.SubtitleURL)
	assert.Empty(t, job.WorkDir)
	assert.Empty(t, job.SubtitlePath)
	// The second sentence got no fragments.
	assert.Equal(t, subtitle.BuildStats{Sentences: 2, Empty: 1, Cues: 1}, job.Stats)

	f.assertExpectations(t)
	f.transcriber.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
}

func TestSubtitleService_Process_TranscriptionFails(t *testing.T) {
	f := newFixture(t)

	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.media.On("ProbeDimensions", mock.Anything, f.source).
		Return(subtitle.VideoDimension{Width: 640, Height: 360}, nil)
	f.transcriber.On("Transcribe", mock.Anything, f.source).
		Return(assemblyai.Transcript{}, assemblyai.ErrTranscriptionFailed)
	f.store.On("CleanupDir", mock.Anything, f.workDir).Return(nil)

	job, err := f.svc.Process(t.Context(), CreateInput{Source: f.source})
	require.ErrorIs(t, err, assemblyai.ErrTranscriptionFailed)

	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, StageTranscribe, job.Stage)
	assert.Equal(t, 10, job.Progress)
	assert.Contains(t, job.Error, "transcribe")
	assert.Empty(t, job.WorkDir)

	saved, err := f.repo.FindByID(t.Context(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, saved.Status)

	f.assertExpectations(t)
	f.translator.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubtitleService_Process_ExtractsAudio(t *testing.T) {
	ex := new(mockExtractor)
	f := newFixture(t, WithAudioExtractor(ex))
	audioPath := filepath.Join(f.workDir, AudioFileName)

	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.media.On("ProbeDimensions", mock.Anything, f.source).
		Return(subtitle.VideoDimension{Width: 1920, Height: 1080}, nil)
	ex.On("Extract", mock.Anything, f.source, audioPath, audio.DefaultExtractOpts()).Return(6.0, nil)
	f.transcriber.On("Transcribe", mock.Anything, audioPath).Return(sampleTranscript(), nil)
	f.translator.On("Translate", mock.Anything, mock.Anything, 35).
		Return([][]string{{"a"}, {"b"}}, nil)
	f.media.On("BurnSubtitles", mock.Anything, f.source, mock.Anything, mock.Anything).Return(nil)

	job, err := f.svc.Process(t.Context(), CreateInput{Source: f.source})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)

	f.assertExpectations(t)
	ex.AssertExpectations(t)
}

func TestSubtitleService_Process_ExtractionFallsBackToVideo(t *testing.T) {
	ex := new(mockExtractor)
	f := newFixture(t, WithAudioExtractor(ex))

	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.media.On("ProbeDimensions", mock.Anything, f.source).
		Return(subtitle.VideoDimension{Width: 1920, Height: 1080}, nil)
	ex.On("Extract", mock.Anything, f.source, mock.Anything, mock.Anything).
		Return(0.0, errors.New("unknown encoder 'libmp3lame'"))
	f.transcriber.On("Transcribe", mock.Anything, f.source).Return(sampleTranscript(), nil)
	f.translator.On("Translate", mock.Anything, mock.Anything, 35).
		Return([][]string{{"a"}, {"b"}}, nil)
	f.media.On("BurnSubtitles", mock.Anything, f.source, mock.Anything, mock.Anything).Return(nil)

	job, err := f.svc.Process(t.Context(), CreateInput{Source: f.source})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	f.assertExpectations(t)
}

func TestSubtitleService_Process_NoAudioStream(t *testing.T) {
	ex := new(mockExtractor)
	f := newFixture(t, WithAudioExtractor(ex))

	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.media.On("ProbeDimensions", mock.Anything, f.source).
		Return(subtitle.VideoDimension{Width: 1920, Height: 1080}, nil)
	ex.On("Extract", mock.Anything, f.source, mock.Anything, mock.Anything).Return(0.0, audio.ErrNoAudio)
	f.store.On("CleanupDir", mock.Anything, f.workDir).Return(nil)

	job, err := f.svc.Process(t.Context(), CreateInput{Source: f.source})
	require.ErrorIs(t, err, audio.ErrNoAudio)
	assert.Equal(t, StatusFailed, job.Status)
	f.transcriber.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
}

func TestSubtitleService_Process_NoUtterances(t *testing.T) {
	f := newFixture(t)

	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.media.On("ProbeDimensions", mock.Anything, f.source).
		Return(subtitle.VideoDimension{Width: 640, Height: 360}, nil)
	f.transcriber.On("Transcribe", mock.Anything, f.source).
		Return(assemblyai.Transcript{ID: "tr-1", Status: assemblyai.StatusCompleted}, nil)
	f.store.On("CleanupDir", mock.Anything, f.workDir).Return(nil)

	job, err := f.svc.Process(t.Context(), CreateInput{Source: f.source})
	require.ErrorIs(t, err, ErrNoUtterances)
	assert.Equal(t, StatusFailed, job.Status)
}

func TestSubtitleService_Process_MuxFails(t *testing.T) {
	f := newFixture(t)
	muxErr := errors.New("ffmpeg exploded")

	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.media.On("ProbeDimensions", mock.Anything, f.source).
		Return(subtitle.VideoDimension{Width: 1920, Height: 1080}, nil)
	f.transcriber.On("Transcribe", mock.Anything, f.source).Return(sampleTranscript(), nil)
	f.translator.On("Translate", mock.Anything, mock.Anything, mock.Anything).
		Return([][]string{{"a"}, {"b"}}, nil)
	f.media.On("BurnSubtitles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(muxErr)
	f.store.On("CleanupDir", mock.Anything, f.workDir).Return(nil)

	job, err := f.svc.Process(t.Context(), CreateInput{Source: f.source})
	require.ErrorIs(t, err, muxErr)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, StageMux, job.Stage)
	assert.Equal(t, 2, job.Stats.Cues, "stats of the rendered file are kept")
}

func TestSubtitleService_Process_Timeout(t *testing.T) {
	f := newFixture(t, WithJobTimeout(50*time.Millisecond))

	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.media.On("ProbeDimensions", mock.Anything, f.source).
		Return(subtitle.VideoDimension{Width: 640, Height: 360}, nil)
	f.transcriber.On("Transcribe", mock.Anything, f.source).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(assemblyai.Transcript{}, context.DeadlineExceeded)
	f.store.On("CleanupDir", mock.Anything, f.workDir).Return(nil)

	job, err := f.svc.Process(t.Context(), CreateInput{Source: f.source})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusTimedOut, job.Status)
}

func TestSubtitleService_ProcessJob_NotQueued(t *testing.T) {
	f := newFixture(t)

	job := NewWithID("job-done")
	job.Status = StatusCompleted
	require.NoError(t, f.repo.Save(t.Context(), job))

	_, err := f.svc.ProcessJob(t.Context(), "job-done")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.ProcessJob(t.Context(), "job-missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSubtitleService_DeleteJob(t *testing.T) {
	f := newFixture(t)

	job := NewWithID("job-1")
	job.Status = StatusCompleted
	job.WorkDir = f.workDir
	require.NoError(t, f.repo.Save(t.Context(), job))
	f.store.On("CleanupDir", mock.Anything, f.workDir).Return(nil)

	require.NoError(t, f.svc.DeleteJob(t.Context(), "job-1"))

	_, err := f.repo.FindByID(t.Context(), "job-1")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, f.svc.DeleteJob(t.Context(), "job-1"), ErrJobNotFound)
	f.store.AssertExpectations(t)
}

func TestSubtitleService_DeleteJob_CancelsRunningJob(t *testing.T) {
	f := newFixture(t)

	transcribing := make(chan struct{})
	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.media.On("ProbeDimensions", mock.Anything, f.source).
		Return(subtitle.VideoDimension{Width: 640, Height: 360}, nil)
	f.transcriber.On("Transcribe", mock.Anything, f.source).
		Run(func(args mock.Arguments) {
			close(transcribing)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(assemblyai.Transcript{}, context.Canceled)
	f.store.On("CleanupDir", mock.Anything, f.workDir).Return(nil)

	job, err := f.svc.CreateJob(t.Context(), CreateInput{Source: f.source})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.ProcessJob(context.WithoutCancel(t.Context()), job.ID)
		done <- err
	}()

	select {
	case <-transcribing:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline never reached transcription")
	}

	require.NoError(t, f.svc.DeleteJob(t.Context(), job.ID))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after delete")
	}

	_, err = f.repo.FindByID(t.Context(), job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound, "a deleted job must stay deleted")
}

func TestSubtitleService_Shutdown_CancelsRunningJobs(t *testing.T) {
	f := newFixture(t)

	transcribing := make(chan struct{})
	f.store.On("CreateWorkDir", mock.Anything).Return(f.workDir, nil)
	f.media.On("ProbeDimensions", mock.Anything, f.source).
		Return(subtitle.VideoDimension{Width: 640, Height: 360}, nil)
	f.transcriber.On("Transcribe", mock.Anything, f.source).
		Run(func(args mock.Arguments) {
			close(transcribing)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(assemblyai.Transcript{}, context.Canceled)
	f.store.On("CleanupDir", mock.Anything, f.workDir).Return(nil)

	job, err := f.svc.CreateJob(t.Context(), CreateInput{Source: f.source})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.ProcessJob(context.WithoutCancel(t.Context()), job.ID)
		done <- err
	}()

	select {
	case <-transcribing:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline never reached transcription")
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(ctx))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after shutdown")
	}

	stored, err := f.repo.FindByID(t.Context(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
}

func TestSubtitleService_ProcessJob_AfterShutdown(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Shutdown(t.Context()))

	job, err := f.svc.CreateJob(t.Context(), CreateInput{Source: f.source})
	require.NoError(t, err)

	_, err = f.svc.ProcessJob(t.Context(), job.ID)
	require.ErrorIs(t, err, ErrShuttingDown)
	assert.ErrorIs(t, err, context.Canceled)

	stored, err := f.repo.FindByID(t.Context(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
	f.transcriber.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
}

// vanishingRepository drops a job right after handing it out once, the way
// a DELETE landing between ProcessJob's load and its start would.
type vanishingRepository struct {
	*MemoryRepository
	once sync.Once
}

func (r *vanishingRepository) FindByID(ctx context.Context, id string) (*Job, error) {
	job, err := r.MemoryRepository.FindByID(ctx, id)
	if err == nil {
		r.once.Do(func() { _ = r.MemoryRepository.Delete(ctx, id) })
	}
	return job, err
}

func TestSubtitleService_ProcessJob_DeletedBeforeStart(t *testing.T) {
	f := newFixture(t)
	repo := &vanishingRepository{MemoryRepository: NewMemoryRepository()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewSubtitleService(repo, f.store, f.media, f.transcriber, f.translator, logger)

	job := New()
	job.Source = f.source
	require.NoError(t, repo.MemoryRepository.Save(t.Context(), job))

	_, err := svc.ProcessJob(t.Context(), job.ID)
	require.ErrorIs(t, err, ErrJobNotFound)

	_, err = repo.MemoryRepository.FindByID(t.Context(), job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound, "a deleted job must stay deleted")
	f.store.AssertNotCalled(t, "CreateWorkDir", mock.Anything)
	f.transcriber.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, isRemote("https://example.com/a.mp4"))
	assert.True(t, isRemote("http://example.com/a.mp4"))
	assert.False(t, isRemote("/data/a.mp4"))
	assert.False(t, isRemote("ftp://example.com/a.mp4"))
	assert.False(t, isRemote("https:///a.mp4"))
}
