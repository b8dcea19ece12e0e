// Package bootstrap wires configuration into the services of the
// subtitling server.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/NicolasFive/VideoTingYi/internal/assemblyai"
	"github.com/NicolasFive/VideoTingYi/internal/audio"
	"github.com/NicolasFive/VideoTingYi/internal/config"
	"github.com/NicolasFive/VideoTingYi/internal/coze"
	"github.com/NicolasFive/VideoTingYi/internal/job"
	"github.com/NicolasFive/VideoTingYi/internal/media"
	"github.com/NicolasFive/VideoTingYi/internal/ratelimit"
	"github.com/NicolasFive/VideoTingYi/internal/storage"
	"github.com/NicolasFive/VideoTingYi/internal/translate"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	SubtitleService *job.SubtitleService
	Limiter         *ratelimit.Limiter
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	transcriber, err := NewTranscriber(cfg, logger)
	if err != nil {
		return nil, err
	}

	translator, err := NewTranslator(cfg, logger)
	if err != nil {
		return nil, err
	}

	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, media.WithFFprobePath(cfg.FFprobePath))
	repo := job.NewMemoryRepository()

	opts := []job.ServiceOption{
		job.WithFontName(cfg.SubtitleFont),
		job.WithS3(cfg.S3Enabled()),
		job.WithJobTimeout(cfg.JobTimeout()),
	}
	if cfg.ExtractAudio {
		opts = append(opts, job.WithAudioExtractor(audio.NewFFmpegExtractor(cfg.FFmpegPath)))
	}

	svc := job.NewSubtitleService(repo, store, processor, transcriber, translator, logger, opts...)

	proxies, err := ratelimit.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}

	return &Dependencies{
		SubtitleService: svc,
		Limiter:         ratelimit.New(cfg.RateLimitPerDay, ratelimit.WithTrustedProxies(proxies...)),
	}, nil
}

// NewTranscriber creates the AssemblyAI client described by cfg.
func NewTranscriber(cfg *config.Config, logger *slog.Logger) (*assemblyai.HTTPClient, error) {
	client, err := assemblyai.NewClient(
		assemblyai.WithAPIKey(cfg.AssemblyAIKey),
		assemblyai.WithBaseURL(cfg.AssemblyAIBaseURL),
		assemblyai.WithPollInterval(cfg.AssemblyAIPollInterval()),
		assemblyai.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create AssemblyAI client: %w", err)
	}
	return client, nil
}

// NewTranslator creates the translator selected by cfg.Translator.
func NewTranslator(cfg *config.Config, logger *slog.Logger) (translate.Translator, error) {
	switch cfg.Translator {
	case config.TranslatorCoze:
		client, err := coze.NewClient(cfg.CozeURL, coze.WithToken(cfg.CozeToken))
		if err != nil {
			return nil, fmt.Errorf("create Coze client: %w", err)
		}
		logger.Info("translator configured", slog.String("translator", "coze"))
		return translate.NewCozeTranslator(client, logger), nil

	case config.TranslatorOpenAI:
		tr, err := translate.NewOpenAITranslator(cfg.OpenAIKey,
			translate.WithBaseURL(cfg.OpenAIBaseURL),
			translate.WithModel(cfg.OpenAIModel),
			translate.WithTargetLanguage(cfg.TargetLanguage),
			translate.WithPromptDir(cfg.PromptDir),
			translate.WithMaxConcurrentSplits(cfg.MaxConcurrentSplits),
			translate.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("create OpenAI translator: %w", err)
		}
		logger.Info("translator configured",
			slog.String("translator", "openai"),
			slog.String("model", cfg.OpenAIModel),
			slog.String("target_language", cfg.TargetLanguage),
		)
		return tr, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownTranslator, cfg.Translator)
	}
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
