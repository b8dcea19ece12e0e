package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrS3NotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrS3NotConfigured = errors.New("storage: S3 storage is not configured")
	// ErrOutsideTempDir is returned when a path to clean up is not inside
	// the storage root.
	ErrOutsideTempDir = errors.New("storage: path is outside the temp directory")
	// ErrDownloadFailed is returned for a non-200 download response.
	ErrDownloadFailed = errors.New("storage: download failed")
)

// Downloads are saved as DownloadBaseName plus the URL's extension, so they
// never collide with files the pipeline writes next to them.
const (
	DownloadBaseName = "source"
	// DefaultDownloadName is used when a URL has no usable extension.
	DefaultDownloadName = DownloadBaseName + ".mp4"
)

// workDirTimeFormat is the timestamp prefix of working directory names.
const workDirTimeFormat = "20060102_150405"

// LocalStorage implements the Storage interface using local disk.
// Working directories live under a configurable root. It does not
// support S3 operations unless wrapped with S3Storage.
type LocalStorage struct {
	tempDir    string
	httpClient *http.Client
	now        func() time.Time
}

// LocalOption configures a LocalStorage.
type LocalOption func(*LocalStorage)

// WithHTTPClient sets the client used by Download.
func WithHTTPClient(c *http.Client) LocalOption {
	return func(s *LocalStorage) {
		s.httpClient = c
	}
}

// NewLocalStorage creates a new LocalStorage instance.
// The tempDir parameter is the root for working directories.
// If tempDir is empty, ./temp is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(tempDir string, opts ...LocalOption) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = "temp"
	}

	abs, err := filepath.Abs(tempDir)
	if err != nil {
		return nil, fmt.Errorf("resolve temp directory: %w", err)
	}

	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	s := &LocalStorage{
		tempDir:    abs,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TempDir returns the absolute root of all working directories.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// CreateWorkDir creates <tempDir>/<yyyymmdd_hhmmss>_<8 hex>.
func (s *LocalStorage) CreateWorkDir(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	name := s.now().Format(workDirTimeFormat) + "_" + uuid.NewString()[:8]
	dir := filepath.Join(s.tempDir, name)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	return dir, nil
}

// downloadName keeps only the extension of the URL's last path segment.
func downloadName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultDownloadName
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) < 2 || len(ext) > 6 {
		return DefaultDownloadName
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return DefaultDownloadName
		}
	}
	return DownloadBaseName + ext
}

// Download fetches rawURL into dir. A partially written file is removed on
// failure.
func (s *LocalStorage) Download(ctx context.Context, rawURL, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	dest := filepath.Join(dir, downloadName(rawURL))
	out, err := os.Create(dest) // #nosec G304 - dest is inside a work directory we created
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("copy download data: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("close download file: %w", err)
	}

	return dest, nil
}

// Open reads a file and returns a reader.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return f, nil
}

// CleanupDir removes dir recursively. Only directories below the storage
// root may be removed. A missing directory is not an error.
func (s *LocalStorage) CleanupDir(ctx context.Context, dir string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve work directory: %w", err)
	}
	rel, err := filepath.Rel(s.tempDir, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideTempDir, dir)
	}

	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("remove work directory %s: %w", dir, err)
	}
	return nil
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
