// Package blob stores item images in S3-compatible object storage.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrDisabled is returned when no object storage is configured.
var ErrDisabled = errors.New("blob storage not configured")

// s3Client is the narrow S3 surface the manager needs, as an interface
// for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3-compatible storage configuration. A manager with an
// empty bucket or credentials is disabled rather than broken.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Manager uploads, serves, and deletes image blobs by key.
type Manager struct {
	cfg    Config
	client s3Client
	logger *slog.Logger
}

func NewManager(cfg Config, logger *slog.Logger) *Manager {
	m := &Manager{cfg: cfg, logger: logger}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		m.client = newS3Client(cfg)
	}
	return m
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether object storage is configured.
func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Upload stores an image and returns its retrievable key. Keys are
// namespaced per owner and timestamped so re-uploads of the same filename
// never collide.
func (m *Manager) Upload(ctx context.Context, ownerID, filename string, body io.Reader) (string, error) {
	if m.client == nil {
		return "", ErrDisabled
	}
	key := fmt.Sprintf("images/%s/%d_%s", ownerID, time.Now().UnixMilli(), path.Base(filename))
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
		Body:   toReadSeeker(body),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// Fetch returns the blob body for a key. The caller closes it.
func (m *Manager) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.client == nil {
		return nil, ErrDisabled
	}
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	return out.Body, nil
}

// Delete removes a blob best-effort. Failures are logged and swallowed:
// record deletion has already happened by the time this runs, and an
// orphaned blob is an accepted leak. Nothing retries.
func (m *Manager) Delete(ctx context.Context, key string) {
	if m.client == nil || key == "" {
		return
	}
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		m.logger.Warn("blob delete failed", "key", key, "error", err)
	}
}

// toReadSeeker materializes body when it is not already seekable; the SDK
// needs to rewind for signing.
func toReadSeeker(body io.Reader) io.Reader {
	if _, ok := body.(io.ReadSeeker); ok {
		return body
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return body
	}
	return bytes.NewReader(data)
}
