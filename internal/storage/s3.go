// Package storage presigns asset uploads and downloads against an
// S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	DefaultUploadExpiry   = 15 * time.Minute
	DefaultDownloadExpiry = time.Hour
)

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string

	// Defaults apply when zero.
	UploadExpiry   time.Duration
	DownloadExpiry time.Duration
}

// AssetStore hands out presigned URLs so asset bytes never pass through
// the API process.
type AssetStore struct {
	client         *s3.Client
	presign        *s3.PresignClient
	bucket         string
	uploadExpiry   time.Duration
	downloadExpiry time.Duration
}

func NewAssetStore(ctx context.Context, cfg Config) (*AssetStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Self-hosted stores (RustFS, MinIO) need path-style addressing.
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	store := &AssetStore{
		client:         client,
		presign:        s3.NewPresignClient(client),
		bucket:         cfg.Bucket,
		uploadExpiry:   cfg.UploadExpiry,
		downloadExpiry: cfg.DownloadExpiry,
	}
	if store.uploadExpiry <= 0 {
		store.uploadExpiry = DefaultUploadExpiry
	}
	if store.downloadExpiry <= 0 {
		store.downloadExpiry = DefaultDownloadExpiry
	}
	return store, nil
}

func (s *AssetStore) Bucket() string {
	return s.bucket
}

// GenerateUploadURL presigns a PUT for key. The uploader must send the same
// Content-Type header when contentType is non-empty.
func (s *AssetStore) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := s.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(s.uploadExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *AssetStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.downloadExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}
	return req.URL, nil
}

// EnsureBucket creates the bucket on first start.
func (s *AssetStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}
