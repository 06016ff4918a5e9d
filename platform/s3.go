package platform

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore moves files to and from s3:// locations.
type ObjectStore interface {
	Upload(ctx context.Context, uri string, body io.Reader) error
	Download(ctx context.Context, uri string, w io.WriterAt) (int64, error)
}

// S3Store implements ObjectStore with the S3 transfer manager.
type S3Store struct {
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

// NewS3Store wraps an S3 client.
func NewS3Store(client *s3.Client) *S3Store {
	return &S3Store{
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}
}

// Upload streams body to uri.
func (s *S3Store) Upload(ctx context.Context, uri string, body io.Reader) error {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return err
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return errors.NewRemoteError("PutObject", uri, err)
	}
	return nil
}

// Download writes the object at uri to w and returns the byte count.
func (s *S3Store) Download(ctx context.Context, uri string, w io.WriterAt) (int64, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return 0, err
	}
	n, err := s.downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return n, errors.NewRemoteError("GetObject", uri, err)
	}
	return n, nil
}

// ParseS3URI splits s3://bucket/key into its parts. The key may be empty.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", errors.NewValidationError("uri", "must start with s3://", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.NewValidationError("uri", "bucket must not be empty", uri)
	}
	return bucket, key, nil
}

// S3URI joins a bucket and key parts into s3://bucket/a/b. Empty parts are
// skipped.
func S3URI(bucket string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "s3://" + bucket
	}
	return "s3://" + bucket + "/" + path.Join(kept...)
}
