package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/voxscribe/api/internal/config"
)

// S3Store keeps transcripts in an S3-compatible bucket (AWS, R2, minio)
// under <prefix>/<jobID>.txt.
type S3Store struct {
	client     *s3.Client
	bucketName string
	keyPrefix  string
}

func NewS3Store(cfg *config.S3Config) (*S3Store, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("s3 storage configuration incomplete")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		client:     s3.NewFromConfig(awsCfg),
		bucketName: cfg.BucketName,
		keyPrefix:  strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

func (s *S3Store) key(jobID string) string {
	if s.keyPrefix == "" {
		return jobID + ".txt"
	}
	return s.keyPrefix + "/" + jobID + ".txt"
}

func (s *S3Store) Save(ctx context.Context, jobID, text string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(s.key(jobID)),
		Body:        strings.NewReader(text),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload transcript: %w", err)
	}
	return nil
}

func (s *S3Store) Load(ctx context.Context, jobID string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.key(jobID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to download transcript: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript body: %w", err)
	}
	return string(data), nil
}

func (s *S3Store) Delete(ctx context.Context, jobID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.key(jobID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}
