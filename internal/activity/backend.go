package activity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/temporal"

	"github.com/evald/controlplane/internal/provision"
)

// S3API is the slice of the S3 client used for backend preflight.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// BackendCheck contains the remote-state preflight activity. It revalidates
// the provisioning config and, for S3-backed state, verifies the bucket
// exists before any tofu process is started.
type BackendCheck struct {
	logger    zerolog.Logger
	endpoint  string
	accessKey string
	secretKey string
	// newS3 builds a region-scoped client; overridable in tests.
	newS3 func(region string) S3API
}

// NewBackendCheck creates a new BackendCheck activity struct. endpoint may be
// empty to use the default AWS endpoint.
func NewBackendCheck(logger zerolog.Logger, endpoint, accessKey, secretKey string) *BackendCheck {
	b := &BackendCheck{
		logger:    logger.With().Str("component", "backend-check").Logger(),
		endpoint:  endpoint,
		accessKey: accessKey,
		secretKey: secretKey,
	}
	b.newS3 = b.s3Client
	return b
}

func (b *BackendCheck) s3Client(region string) S3API {
	opts := s3.Options{Region: region}
	if b.endpoint != "" {
		opts.BaseEndpoint = aws.String(b.endpoint)
		opts.UsePathStyle = true
	}
	if b.accessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(b.accessKey, b.secretKey, "")
	}
	return s3.New(opts)
}

// ValidateBackend rejects a malformed config before a durable run does any
// work. Validation failures are deterministic and never retried.
func (b *BackendCheck) ValidateBackend(ctx context.Context, cfg provision.Config) error {
	if err := cfg.Validate(); err != nil {
		return temporal.NewNonRetryableApplicationError(err.Error(), "ValidationError", err)
	}

	if cfg.Backend.S3 != nil {
		client := b.newS3(cfg.Backend.S3.Region)
		_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(cfg.Backend.S3.Bucket),
		})
		if err != nil {
			return fmt.Errorf("state bucket %s not reachable: %w", cfg.Backend.S3.Bucket, err)
		}
	}

	return nil
}
