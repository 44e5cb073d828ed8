package aws_s3

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/IliaW/reddit-news-feed/config"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	crd "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	feedObjectName  = "feed.xml"
	feedContentType = "application/atom+xml; charset=utf-8"
)

type S3BucketClient struct {
	client *s3.Client
	cfg    *config.S3Config
	log    *slog.Logger
}

func NewS3BucketClient(ctx context.Context, cfg *config.S3Config, log *slog.Logger) (*S3BucketClient, error) {
	log.Info("connecting to s3...")
	s3Config, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithCredentialsProvider(crd.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, "")),
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithBaseEndpoint(cfg.AwsBaseEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	// LocalStack does not support `virtual host addressing style` that uses s3 by default.
	// For test purposes use configuration with disabled 'virtual hosted bucket addressing'.
	var s3client *s3.Client
	if cfg.AwsAccessKey == "test" {
		log.Warn("test configuration for s3")
		s3client = s3.NewFromConfig(s3Config, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	} else {
		s3client = s3.NewFromConfig(s3Config)
	}
	log.Info("connected to s3")

	return &S3BucketClient{
		client: s3client,
		cfg:    cfg,
		log:    log,
	}, nil
}

// WriteFeed uploads the filtered feed and returns its public url.
func (bc *S3BucketClient) WriteFeed(ctx context.Context, feed []byte) (string, error) {
	s3Key := feedKey(bc.cfg.KeyPrefix)
	contentType := feedContentType
	_, err := bc.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bc.cfg.BucketName,
		Key:         &s3Key,
		Body:        bytes.NewReader(feed),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save feed to s3: %w", err)
	}
	bc.log.Debug("feed saved to s3.", slog.String("key", s3Key))

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bc.cfg.BucketName, bc.cfg.Region, s3Key), nil
}

func feedKey(prefix string) string {
	if prefix == "" {
		return feedObjectName
	}
	return fmt.Sprintf("%s/%s", prefix, feedObjectName)
}
