package client

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

// S3ImageUploader stores template images in an S3 compatible bucket
// instead of sending them to the authoring API.
type S3ImageUploader struct {
	client *minio.Client
	opts   S3Options
}

func NewS3ImageUploader(opts S3Options) (*S3ImageUploader, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if opts.PublicBaseURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		opts.PublicBaseURL = scheme + "://" + opts.Endpoint
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &S3ImageUploader{client: client, opts: opts}, nil
}

func (u *S3ImageUploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.opts.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// UploadImage stores the image under a fresh object name and returns its
// public URL.
func (u *S3ImageUploader) UploadImage(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	object := ObjectName(filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if size <= 0 {
		size = -1
	}
	_, err := u.client.PutObject(ctx, u.opts.Bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return u.opts.PublicBaseURL + "/" + path.Join(u.opts.Bucket, object), nil
}

// ObjectName keeps the file extension and replaces the rest with a uuid.
func ObjectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return "templates/" + uuid.NewString() + ext
}
