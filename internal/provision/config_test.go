package provision

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validS3Config() Config {
	return Config{
		ClusterUID:   "c-test1",
		TemplateDir:  "/srv/templates",
		TemplatePath: "aws/cluster",
		Backend: BackendConfig{
			Type: BackendS3,
			S3:   &S3Backend{Bucket: "state", Key: "clusters/c-test1.tfstate", Region: "eu-west-1"},
		},
		Variables: map[string]any{"node_count": 3},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	cfg := validS3Config()
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate_UnknownBackendType(t *testing.T) {
	cfg := validS3Config()
	cfg.Backend = BackendConfig{Type: "azurerm"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend type")
}

func TestConfig_Validate_MissingVariant(t *testing.T) {
	cfg := validS3Config()
	cfg.Backend = BackendConfig{Type: BackendGCS}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires gcs fields")
}

func TestConfig_Validate_VariantTagMismatch(t *testing.T) {
	cfg := validS3Config()
	cfg.Backend.GCS = &GCSBackend{Bucket: "b", Prefix: "p"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one backend variant")
}

func TestConfig_Validate_MissingVariantField(t *testing.T) {
	cfg := validS3Config()
	cfg.Backend.S3.Region = ""
	require.Error(t, cfg.Validate())
}

func TestConfig_Validate_MissingClusterUID(t *testing.T) {
	cfg := validS3Config()
	cfg.ClusterUID = ""
	require.Error(t, cfg.Validate())
}

func TestBackendConfig_WireRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		backend BackendConfig
		wire    string
	}{
		{
			name: "s3",
			backend: BackendConfig{
				Type: BackendS3,
				S3:   &S3Backend{Bucket: "b", Key: "k", Region: "r"},
			},
			wire: `{"type":"s3","bucket":"b","key":"k","region":"r"}`,
		},
		{
			name: "gcs",
			backend: BackendConfig{
				Type: BackendGCS,
				GCS:  &GCSBackend{Bucket: "b", Prefix: "p"},
			},
			wire: `{"type":"gcs","bucket":"b","prefix":"p"}`,
		},
		{
			name: "oss",
			backend: BackendConfig{
				Type: BackendOSS,
				OSS:  &OSSBackend{Bucket: "b", Prefix: "p", Key: "k", Region: "r", TablestoreTable: "locks"},
			},
			wire: `{"type":"oss","bucket":"b","key":"k","region":"r","prefix":"p","tablestore_table":"locks"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.backend)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wire, string(out))

			var back BackendConfig
			require.NoError(t, json.Unmarshal(out, &back))
			assert.Equal(t, tt.backend, back)
			require.NoError(t, back.Validate())
		})
	}
}

func TestBackendConfig_UnmarshalUnknownTag_FailsValidation(t *testing.T) {
	var b BackendConfig
	require.NoError(t, json.Unmarshal([]byte(`{"type":"azurerm","bucket":"b"}`), &b))
	require.Error(t, b.Validate())
}

func TestBackendConfig_Args(t *testing.T) {
	b := BackendConfig{
		Type: BackendS3,
		S3:   &S3Backend{Bucket: "state", Key: "k.tfstate", Region: "eu-west-1"},
	}
	assert.Equal(t, []string{
		"-backend-config=bucket=state",
		"-backend-config=key=k.tfstate",
		"-backend-config=region=eu-west-1",
	}, b.Args())

	oss := BackendConfig{
		Type: BackendOSS,
		OSS:  &OSSBackend{Bucket: "b", Prefix: "p", Key: "k", Region: "r", TablestoreTable: "locks"},
	}
	assert.Len(t, oss.Args(), 5)
	assert.Contains(t, oss.Args(), "-backend-config=tablestore_table=locks")
}

func TestConfig_VarFileJSON(t *testing.T) {
	cfg := validS3Config()
	out, err := cfg.VarFileJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"node_count":3}`, string(out))

	cfg.Variables = nil
	out, err = cfg.VarFileJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

func TestOperation_Valid(t *testing.T) {
	assert.True(t, OperationCreate.Valid())
	assert.True(t, OperationUpdate.Valid())
	assert.True(t, OperationDestroy.Valid())
	assert.False(t, Operation("delete").Valid())
	assert.False(t, Operation("").Valid())
}
