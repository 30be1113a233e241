package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/evald/controlplane/internal/provision"
)

type stubS3 struct {
	err     error
	buckets []string
}

func (s *stubS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	s.buckets = append(s.buckets, *params.Bucket)
	if s.err != nil {
		return nil, s.err
	}
	return &s3.HeadBucketOutput{}, nil
}

func s3TestConfig() provision.Config {
	return provision.Config{
		ClusterUID:   "c-test1",
		TemplateDir:  "/srv/templates",
		TemplatePath: "aws",
		Backend: provision.BackendConfig{
			Type: provision.BackendS3,
			S3:   &provision.S3Backend{Bucket: "state", Key: "k.tfstate", Region: "eu-west-1"},
		},
	}
}

func TestValidateBackend_S3_ChecksBucket(t *testing.T) {
	stub := &stubS3{}
	b := NewBackendCheck(zerolog.Nop(), "", "", "")
	b.newS3 = func(region string) S3API {
		assert.Equal(t, "eu-west-1", region)
		return stub
	}

	err := b.ValidateBackend(context.Background(), s3TestConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"state"}, stub.buckets)
}

func TestValidateBackend_S3_BucketUnreachable(t *testing.T) {
	stub := &stubS3{err: errors.New("403 forbidden")}
	b := NewBackendCheck(zerolog.Nop(), "", "", "")
	b.newS3 = func(region string) S3API { return stub }

	err := b.ValidateBackend(context.Background(), s3TestConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state bucket state not reachable")
}

func TestValidateBackend_InvalidConfig_NonRetryable(t *testing.T) {
	cfg := s3TestConfig()
	cfg.Backend = provision.BackendConfig{Type: "azurerm"}

	b := NewBackendCheck(zerolog.Nop(), "", "", "")
	err := b.ValidateBackend(context.Background(), cfg)
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "ValidationError", appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestValidateBackend_GCS_NoNetworkCheck(t *testing.T) {
	cfg := s3TestConfig()
	cfg.Backend = provision.BackendConfig{
		Type: provision.BackendGCS,
		GCS:  &provision.GCSBackend{Bucket: "state", Prefix: "clusters/"},
	}

	b := NewBackendCheck(zerolog.Nop(), "", "", "")
	b.newS3 = func(region string) S3API {
		t.Fatal("s3 client must not be built for gcs backends")
		return nil
	}
	require.NoError(t, b.ValidateBackend(context.Background(), cfg))
}
