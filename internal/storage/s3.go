package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for S3 delivery.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // S3-compatible endpoint (MinIO, R2, ...); path-style addressing
	// Prefix is prepended to every object key, e.g. "vtsub/".
	Prefix string

	// Static credentials. Both empty means the default AWS credential chain.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Storage keeps working directories on local disk and delivers finished
// files to an S3 bucket.
type S3Storage struct {
	*LocalStorage
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
	prefix   string
}

// NewS3Storage creates an S3Storage whose working directories live under
// tempDir.
func NewS3Storage(tempDir string, cfg S3Config, opts ...LocalOption) (*S3Storage, error) {
	local, err := NewLocalStorage(tempDir, opts...)
	if err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(cfg)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		LocalStorage: local,
		client:       client,
		bucket:       cfg.Bucket,
		region:       cfg.Region,
		endpoint:     endpoint,
		prefix:       normalizePrefix(cfg.Prefix),
	}, nil
}

func loadAWSConfig(cfg S3Config) (aws.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}

// UploadToS3 stores data under the prefixed key and returns its public URL.
// Subtitle files are sent with an attachment Content-Disposition so browsers
// download them.
func (s *S3Storage) UploadToS3(ctx context.Context, key string, data io.Reader) (string, error) {
	key = s.prefix + strings.TrimLeft(key, "/")

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType(key)),
	}
	if isSubtitle(key) {
		input.ContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload %s to S3: %w", key, err)
	}
	return s.objectURL(key), nil
}

// objectURL returns the public URL of key. Custom endpoints use path-style
// addressing, matching the client options.
func (s *S3Storage) objectURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func isSubtitle(key string) bool {
	ext := strings.ToLower(path.Ext(key))
	return ext == ".ass" || ext == ".ssa"
}

func contentType(key string) string {
	switch {
	case strings.EqualFold(path.Ext(key), ".mp4"):
		return "video/mp4"
	case isSubtitle(key):
		return "text/x-ssa; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
