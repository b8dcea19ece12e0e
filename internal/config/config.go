// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/text/language"

	"github.com/NicolasFive/VideoTingYi/internal/ratelimit"
)

// Translator backends selectable with TRANSLATOR.
const (
	TranslatorOpenAI = "openai"
	TranslatorCoze   = "coze"
)

// Static errors for configuration validation.
var (
	// ErrAssemblyAIKeyRequired is returned when ASSEMBLYAI_KEY is not set.
	ErrAssemblyAIKeyRequired = errors.New("config: ASSEMBLYAI_KEY is required")
	// ErrOpenAIKeyRequired is returned when TRANSLATOR=openai and OPENAI_KEY is not set.
	ErrOpenAIKeyRequired = errors.New("config: OPENAI_KEY is required for the openai translator")
	// ErrCozeURLRequired is returned when TRANSLATOR=coze and COZE_URL is not set.
	ErrCozeURLRequired = errors.New("config: COZE_URL is required for the coze translator")
	// ErrUnknownTranslator is returned for a TRANSLATOR value other than openai or coze.
	ErrUnknownTranslator = errors.New("config: TRANSLATOR must be openai or coze")
	// ErrInvalidTargetLanguage is returned when TARGET_LANGUAGE is not a BCP 47 tag.
	ErrInvalidTargetLanguage = errors.New("config: TARGET_LANGUAGE is not a valid language tag")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port            int `env:"PORT, default=8000" json:"port"`
	RateLimitPerDay int `env:"RATE_LIMIT_PER_DAY, default=20" json:"rate_limit_per_day"` // 0 disables
	// TrustedProxies lists CIDRs or addresses whose X-Forwarded-For is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" json:"trusted_proxies,omitempty"`

	// Transcription settings
	AssemblyAIKey            string `env:"ASSEMBLYAI_KEY, required" json:"-"` // Masked in JSON
	AssemblyAIBaseURL        string `env:"ASSEMBLYAI_BASE_URL, default=https://api.assemblyai.com" json:"assemblyai_base_url"`
	AssemblyAIPollIntervalMs int    `env:"ASSEMBLYAI_POLL_INTERVAL_MS, default=3000" json:"assemblyai_poll_interval_ms"`

	// Translation settings
	Translator          string `env:"TRANSLATOR, default=openai" json:"translator"`
	OpenAIKey           string `env:"OPENAI_KEY" json:"-"` // Masked in JSON
	OpenAIBaseURL       string `env:"OPENAI_BASE_URL" json:"openai_base_url,omitempty"`
	OpenAIModel         string `env:"OPENAI_MODEL, default=qwen-plus" json:"openai_model"`
	TargetLanguage      string `env:"TARGET_LANGUAGE, default=zh-Hans" json:"target_language"`
	PromptDir           string `env:"PROMPT_DIR" json:"prompt_dir,omitempty"`
	CozeURL             string `env:"COZE_URL" json:"coze_url,omitempty"`
	CozeToken           string `env:"COZE_TOKEN" json:"-"` // Masked in JSON
	MaxConcurrentSplits int    `env:"MAX_CONCURRENT_SPLITS, default=3" json:"max_concurrent_splits"`

	// Media settings
	TempDir           string `env:"TEMP_DIR, default=./temp" json:"temp_dir"`
	FFmpegPath        string `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`
	FFprobePath       string `env:"FFPROBE_PATH" json:"ffprobe_path,omitempty"`
	SubtitleFont      string `env:"SUBTITLE_FONT, default=Arial" json:"subtitle_font"`
	ExtractAudio      bool   `env:"EXTRACT_AUDIO, default=true" json:"extract_audio"`
	JobTimeoutMinutes int    `env:"JOB_TIMEOUT_MINUTES, default=60" json:"job_timeout_minutes"` // 0 disables

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// JobTimeout returns the pipeline time limit, zero when disabled.
func (c *Config) JobTimeout() time.Duration {
	if c.JobTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(c.JobTimeoutMinutes) * time.Minute
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// RateLimitEnabled reports whether job submissions are rate limited.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitPerDay > 0
}

// AssemblyAIPollInterval returns the transcript polling interval.
func (c *Config) AssemblyAIPollInterval() time.Duration {
	return time.Duration(c.AssemblyAIPollIntervalMs) * time.Millisecond
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored. With no arguments it reads ".env".
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "ASSEMBLYAI_KEY") {
			return nil, ErrAssemblyAIKeyRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.Translator = strings.ToLower(strings.TrimSpace(cfg.Translator))

	return cfg, nil
}

// Validate checks that all required configuration is present and that the
// selected translator has what it needs.
func (c *Config) Validate() error {
	if c.AssemblyAIKey == "" {
		return ErrAssemblyAIKeyRequired
	}

	switch c.Translator {
	case TranslatorOpenAI:
		if c.OpenAIKey == "" {
			return ErrOpenAIKeyRequired
		}
	case TranslatorCoze:
		if c.CozeURL == "" {
			return ErrCozeURLRequired
		}
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownTranslator, c.Translator)
	}

	if _, err := language.Parse(c.TargetLanguage); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidTargetLanguage, c.TargetLanguage, err)
	}

	if _, err := ratelimit.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
	}

	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, Translator: %s, OpenAIModel: %s, TargetLanguage: %s, TempDir: %s, MaxConcurrentSplits: %d, RateLimitPerDay: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.Translator,
		c.OpenAIModel,
		c.TargetLanguage,
		c.TempDir,
		c.MaxConcurrentSplits,
		c.RateLimitPerDay,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
