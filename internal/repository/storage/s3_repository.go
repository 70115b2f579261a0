package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"electroCare/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Region        string
	Bucket        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Repository struct {
	client objectPutter
	cfg    S3Config
}

// NewS3Repository builds an S3 client. A custom endpoint switches to
// path-style addressing for MinIO and other S3-compatible stores.
func NewS3Repository(ctx context.Context, cfg S3Config) (*S3Repository, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Repository{client: client, cfg: cfg}, nil
}

func (r *S3Repository) PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store object: %v: %w", err, domain.ErrUpstream)
	}

	return r.PublicURL(key), nil
}

func (r *S3Repository) PublicURL(key string) string {
	if r.cfg.PublicBaseURL != "" {
		return strings.TrimRight(r.cfg.PublicBaseURL, "/") + "/" + key
	}
	if r.cfg.Endpoint != "" {
		return strings.TrimRight(r.cfg.Endpoint, "/") + "/" + r.cfg.Bucket + "/" + key
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", r.cfg.Bucket, r.cfg.Region, key)
}
