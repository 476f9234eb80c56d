package aws

import (
	"bytes"
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client creates a new S3 client from AWS config.
func NewS3Client(cfg sdkaws.Config) *s3.Client {
	return s3.NewFromConfig(cfg)
}

// UploadObject writes a document to the given bucket/key.
func UploadObject(ctx context.Context, client *s3.Client, bucket, key, contentType string, body []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// GeneratePresignedGetURL generates a presigned GET URL for the provided bucket/key.
func GeneratePresignedGetURL(ctx context.Context, client *s3.Client, bucket, key string, expirySeconds int64) (string, error) {
	presigner := s3.NewPresignClient(client)

	input := &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}

	opts := func(o *s3.PresignOptions) {
		o.Expires = time.Duration(expirySeconds) * time.Second
	}

	presigned, err := presigner.PresignGetObject(ctx, input, opts)
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}

	return presigned.URL, nil
}
