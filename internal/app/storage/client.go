package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"relaychat/internal/pkg/logx"
)

// s3Client implements StorageService against any S3-compatible endpoint.
type s3Client struct {
	cfg      ServiceConfig
	s3Client *s3.Client
}

// newS3Client initializes the S3 client with static credentials and a custom
// endpoint, which covers AWS itself as well as R2/MinIO style services.
func newS3Client(cfg ServiceConfig) (*s3Client, error) {
	sdkCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Client{
		cfg:      cfg,
		s3Client: client,
	}, nil
}

// PresignUpload generates a presigned PUT URL bound to the key, MIME type, and size.
func (c *s3Client) PresignUpload(
	ctx context.Context,
	key string,
	mimeType string,
	fileSize int64,
	duration time.Duration,
) (string, error) {
	presignClient := s3.NewPresignClient(c.s3Client)

	presignInput := &s3.PutObjectInput{
		Bucket:        &c.cfg.S3BucketName,
		Key:           &key,
		ContentType:   &mimeType,
		ContentLength: &fileSize,
	}

	resp, err := presignClient.PresignPutObject(
		ctx,
		presignInput,
		s3.WithPresignExpires(duration),
	)

	if err != nil {
		logx.Error(err, "Failed to generate presigned upload URL", "key", key)
		return "", errors.New("failed to generate presigned upload URL")
	}

	return resp.URL, nil
}

// PresignDownload generates a presigned GET URL for the given key.
func (c *s3Client) PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(c.s3Client)

	presignInput := &s3.GetObjectInput{
		Bucket: &c.cfg.S3BucketName,
		Key:    &key,
	}

	resp, err := presignClient.PresignGetObject(ctx, presignInput, s3.WithPresignExpires(duration))
	if err != nil {
		logx.Error(err, "Failed to generate presigned download URL", "key", key)
		return "", errors.New("failed to generate presigned download URL")
	}

	return resp.URL, nil
}

// Delete removes the object with the given key from the bucket.
func (c *s3Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &c.cfg.S3BucketName,
		Key:    &key,
	})

	if err != nil {
		logx.Error(err, "S3 delete failed", "key", key)
		return errors.New("failed to delete file from S3")
	}

	return nil
}
