// Package storage holds reward memory photos in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Uploader stores and retrieves photo objects. With no S3 credentials it is
// disabled and uploads fail fast.
type Uploader struct {
	cfg    S3Config
	client s3Client
}

// NewUploader creates an Uploader. The client is nil when the config is
// incomplete.
func NewUploader(cfg S3Config) *Uploader {
	u := &Uploader{cfg: cfg}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		u.client = newS3Client(cfg)
	}
	return u
}

func newS3Client(cfg S3Config) *s3.Client {
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
func (u *Uploader) Enabled() bool {
	return u.client != nil
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// UploadPhoto stores a photo under a fresh key scoped to the family and
// returns the object key.
func (u *Uploader) UploadPhoto(ctx context.Context, familyID int64, contentType string, body io.Reader, size int64) (string, error) {
	if u.client == nil {
		return "", fmt.Errorf("photo storage not configured")
	}

	ext, ok := extensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	key := fmt.Sprintf("%d/photos/%s%s", familyID, uuid.NewString(), ext)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}

	return key, nil
}

// Open streams a stored photo.
func (u *Uploader) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if u.client == nil {
		return nil, fmt.Errorf("photo storage not configured")
	}

	result, err := u.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download photo: %w", err)
	}
	return result.Body, nil
}

// Delete removes a stored photo.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	if u.client == nil {
		return fmt.Errorf("photo storage not configured")
	}

	if _, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}
