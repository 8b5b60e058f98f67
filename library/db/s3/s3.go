// Package s3 wraps an S3-compatible object store used as the blob backend.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/drive-gallery/gallery/library/log"
)

// Config carries the dial settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
	// PublicBaseURL overrides the URL prefix used to build durable
	// download links. Defaults to scheme://endpoint/bucket.
	PublicBaseURL string
}

// Store persists raw file bytes under object keys and hands out durable
// public download URLs.
type Store struct {
	cli    *minio.Client
	bucket string
	public string
}

// NewStore dials the object store and ensures the bucket exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create s3 client")
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket `%s`", cfg.Bucket)
	}
	if !exists {
		if err = cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "make bucket `%s`", cfg.Bucket)
		}
	}

	public := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if public == "" {
		scheme := "http"
		if cfg.Secure {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Store{
		cli:    cli,
		bucket: cfg.Bucket,
		public: public,
	}, nil
}

// Put writes content at path. Overwriting an existing object is fine,
// paths are derived from folder id + relative path, not randomized.
func (s *Store) Put(ctx context.Context, path string, content []byte, contentType string) (string, error) {
	path = strings.TrimPrefix(path, "/")
	_, err := s.cli.PutObject(ctx, s.bucket, path,
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", errors.Wrapf(err, "put object `%s`", path)
	}

	return path, nil
}

// PublicURL returns the durable download URL for an object path. The URL
// stays valid for as long as the object exists, it carries no expiring
// signature.
func (s *Store) PublicURL(path string) string {
	return s.public + "/" + strings.TrimPrefix(path, "/")
}

// Remove deletes an object. Removing an absent object is not an error.
func (s *Store) Remove(ctx context.Context, path string) error {
	path = strings.TrimPrefix(path, "/")
	err := s.cli.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil
		}

		return errors.Wrapf(err, "remove object `%s`", path)
	}

	return nil
}

// EnsurePublicRead grants anonymous download on the bucket so PublicURL
// links resolve. Best effort, a failure here degrades public links but
// must not fail ingestion.
func (s *Store) EnsurePublicRead(ctx context.Context) {
	policy := fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"AWS": ["*"]},
    "Action": ["s3:GetObject"],
    "Resource": ["arn:aws:s3:::%s/*"]
  }]
}`, s.bucket)

	if err := s.cli.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		log.Logger.Warn("set public-read bucket policy",
			zap.String("bucket", s.bucket),
			zap.Error(err))
	}
}
