package s3

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mietevo/mietevo-backend/internal/config"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
)

// Service reads stored email blobs from S3-compatible object storage.
type Service interface {
	DownloadEmail(ctx context.Context, path string) ([]byte, error)
}

type s3ServiceImpl struct {
	client *s3.Client
	config *config.StorageConfig
}

// disabledService stands in when no email bucket is configured, so callers
// always hold a usable Service and see a real error at download time.
type disabledService struct{}

func (disabledService) DownloadEmail(context.Context, string) ([]byte, error) {
	return nil, ierr.NewError("email storage is not configured").
		WithHint("set storage.emailbucket to enable email download").
		Mark(ierr.ErrSystem)
}

func NewService(cfg *config.Configuration) (Service, error) {
	if cfg.Storage.EmailBucket == "" {
		return disabledService{}, nil
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background(),
		awsConfig.WithRegion(cfg.Storage.Region),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("failed to load aws config").
			Mark(ierr.ErrHTTPClient)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3ServiceImpl{
		config: &cfg.Storage,
		client: client,
	}, nil
}

// DownloadEmail implements Service.
func (s *s3ServiceImpl) DownloadEmail(ctx context.Context, path string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.EmailBucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, ierr.WithError(err).WithHint("failed to download email blob").
			WithMessagef("bucket:%s, key:%s", s.config.EmailBucket, path).
			Mark(ierr.ErrHTTPClient)
	}

	defer result.Body.Close()

	return io.ReadAll(result.Body)
}
