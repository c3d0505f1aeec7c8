// Package s3 stores blobs in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/and161185/recipebook/internal/blobstore"
	"github.com/and161185/recipebook/internal/errs"
)

// Config selects the bucket and how download URLs are produced.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible services
	AccessKey string // static credentials; empty uses the default chain
	SecretKey string
	// PublicBaseURL, when set, is joined with the key instead of presigning.
	PublicBaseURL string
	PresignTTL    time.Duration
}

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store implements blobstore.Store on S3.
type Store struct {
	client  putter
	presign presigner
	cfg     Config
}

var _ blobstore.Store = (*Store)(nil)

// New loads AWS configuration and constructs the store.
func New(ctx context.Context, c Config) (*Store, error) {
	if c.Bucket == "" {
		return nil, errs.Validation("bucket")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newStore(client, s3.NewPresignClient(client), c), nil
}

func newStore(p putter, ps presigner, c Config) *Store {
	if c.PresignTTL <= 0 {
		c.PresignTTL = 24 * time.Hour
	}
	return &Store{client: p, presign: ps, cfg: c}
}

// Upload puts data under path.
func (s *Store) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := blobstore.ValidPath(path); err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

// DownloadURL returns the public URL of path, or a presigned GET URL.
func (s *Store) DownloadURL(ctx context.Context, path string) (string, error) {
	if err := blobstore.ValidPath(path); err != nil {
		return "", err
	}
	if s.cfg.PublicBaseURL != "" {
		return blobstore.JoinURL(s.cfg.PublicBaseURL, path), nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return req.URL, nil
}
