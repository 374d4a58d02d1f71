// Package storage provides the object store client used for diagram
// thumbnails.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds object storage configuration.
type Config struct {
	Bucket     string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	PathPrefix string
}

// S3Client handles thumbnail uploads and deletions.
type S3Client struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Client creates an S3 client. Static credentials are used when set,
// otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg Config) (*S3Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.PathPrefix, "/"),
	}, nil
}

// PutThumbnail uploads a diagram thumbnail and returns its object key.
func (c *S3Client) PutThumbnail(ctx context.Context, diagramID string, content []byte, contentType string) (string, error) {
	key := c.thumbnailKey(diagramID)

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload thumbnail: %w", err)
	}

	return key, nil
}

// DeleteThumbnail removes a diagram thumbnail. Missing objects are not an
// error.
func (c *S3Client) DeleteThumbnail(ctx context.Context, diagramID string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.thumbnailKey(diagramID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete thumbnail: %w", err)
	}
	return nil
}

// HealthCheck verifies bucket connectivity.
func (c *S3Client) HealthCheck(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

func (c *S3Client) thumbnailKey(diagramID string) string {
	if c.prefix == "" {
		return fmt.Sprintf("%s/thumbnail.png", diagramID)
	}
	return fmt.Sprintf("%s/%s/thumbnail.png", c.prefix, diagramID)
}
