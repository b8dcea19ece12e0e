// Package storage provides per-job working directories, source video
// download and optional S3 delivery of finished videos.
// It defines the Storage interface (port) for hexagonal architecture and
// implementations for local disk and S3 storage.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for job file storage.
// Every job gets its own working directory which holds the downloaded
// source, the rendered subtitle file and the muxed output until the job is
// cleaned up.
type Storage interface {
	// CreateWorkDir creates a fresh, uniquely named working directory and
	// returns its path.
	CreateWorkDir(ctx context.Context) (dir string, err error)

	// Download fetches url into dir and returns the local file path. The
	// file is named DownloadBaseName plus the URL's extension.
	Download(ctx context.Context, url, dir string) (path string, err error)

	// Open reads a file from a working directory.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupDir removes a working directory and everything in it.
	CleanupDir(ctx context.Context, dir string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
