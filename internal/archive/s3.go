package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/yourorg/market-insights/internal/config"
)

// S3Archiver uploads payloads to an Amazon S3 bucket.
type S3Archiver struct {
	bucket   string
	uploader *s3manager.Uploader
}

// NewS3Archiver creates a new S3Archiver
func NewS3Archiver(cfg config.ArchiveConfig) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Archiver{
		bucket:   cfg.Bucket,
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// Store uploads a payload to S3 under the given key
func (a *S3Archiver) Store(ctx context.Context, key string, payload []byte) (string, error) {
	_, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload payload to S3: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
