// Package provision defines the typed description of an infrastructure
// provisioning run: which OpenTofu template to render, which remote-state
// backend to init against, and the input variables to pass. A Config is
// constructed by the caller, validated before a workflow is started, and
// never mutated afterwards.
package provision

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Operation selects what the cluster provisioning workflow does with the
// rendered template.
type Operation string

const (
	OperationCreate  Operation = "create"
	OperationUpdate  Operation = "update"
	OperationDestroy Operation = "destroy"
)

func (op Operation) Valid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDestroy:
		return true
	}
	return false
}

// Backend type tags. The tag determines which variant of BackendConfig is
// required.
const (
	BackendS3  = "s3"
	BackendGCS = "gcs"
	BackendOSS = "oss"
)

// S3Backend stores remote state in an S3 bucket.
type S3Backend struct {
	Bucket string `json:"bucket" validate:"required"`
	Key    string `json:"key" validate:"required"`
	Region string `json:"region" validate:"required"`
}

// GCSBackend stores remote state in a GCS bucket.
type GCSBackend struct {
	Bucket string `json:"bucket" validate:"required"`
	Prefix string `json:"prefix" validate:"required"`
}

// OSSBackend stores remote state in an Alibaba OSS bucket with a Tablestore
// lock table.
type OSSBackend struct {
	Bucket          string `json:"bucket" validate:"required"`
	Prefix          string `json:"prefix" validate:"required"`
	Key             string `json:"key" validate:"required"`
	Region          string `json:"region" validate:"required"`
	TablestoreTable string `json:"tablestore_table" validate:"required"`
}

// BackendConfig is a tagged union of remote-state backends. Exactly one
// variant is populated, selected by Type. On the wire the variant's fields
// are flattened next to the type tag:
//
//	{"type": "s3", "bucket": "...", "key": "...", "region": "..."}
type BackendConfig struct {
	Type string      `json:"type"`
	S3   *S3Backend  `json:"-"`
	GCS  *GCSBackend `json:"-"`
	OSS  *OSSBackend `json:"-"`
}

// backendWire is the flattened wire representation of BackendConfig.
type backendWire struct {
	Type            string `json:"type"`
	Bucket          string `json:"bucket,omitempty"`
	Key             string `json:"key,omitempty"`
	Region          string `json:"region,omitempty"`
	Prefix          string `json:"prefix,omitempty"`
	TablestoreTable string `json:"tablestore_table,omitempty"`
}

func (b BackendConfig) MarshalJSON() ([]byte, error) {
	w := backendWire{Type: b.Type}
	switch {
	case b.S3 != nil:
		w.Bucket, w.Key, w.Region = b.S3.Bucket, b.S3.Key, b.S3.Region
	case b.GCS != nil:
		w.Bucket, w.Prefix = b.GCS.Bucket, b.GCS.Prefix
	case b.OSS != nil:
		w.Bucket, w.Prefix, w.Key = b.OSS.Bucket, b.OSS.Prefix, b.OSS.Key
		w.Region, w.TablestoreTable = b.OSS.Region, b.OSS.TablestoreTable
	}
	return json.Marshal(w)
}

func (b *BackendConfig) UnmarshalJSON(data []byte) error {
	var w backendWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = BackendConfig{Type: w.Type}
	switch w.Type {
	case BackendS3:
		b.S3 = &S3Backend{Bucket: w.Bucket, Key: w.Key, Region: w.Region}
	case BackendGCS:
		b.GCS = &GCSBackend{Bucket: w.Bucket, Prefix: w.Prefix}
	case BackendOSS:
		b.OSS = &OSSBackend{
			Bucket:          w.Bucket,
			Prefix:          w.Prefix,
			Key:             w.Key,
			Region:          w.Region,
			TablestoreTable: w.TablestoreTable,
		}
	}
	// Unknown tags are rejected by Validate, not here, so that a decode
	// error message carries the full config context.
	return nil
}

// Validate checks that the type tag is known and that exactly the matching
// variant is populated with all its required fields.
func (b *BackendConfig) Validate() error {
	switch b.Type {
	case BackendS3:
		if b.S3 == nil {
			return fmt.Errorf("backend type %q requires s3 fields", b.Type)
		}
		if err := validate.Struct(b.S3); err != nil {
			return fmt.Errorf("s3 backend: %w", err)
		}
	case BackendGCS:
		if b.GCS == nil {
			return fmt.Errorf("backend type %q requires gcs fields", b.Type)
		}
		if err := validate.Struct(b.GCS); err != nil {
			return fmt.Errorf("gcs backend: %w", err)
		}
	case BackendOSS:
		if b.OSS == nil {
			return fmt.Errorf("backend type %q requires oss fields", b.Type)
		}
		if err := validate.Struct(b.OSS); err != nil {
			return fmt.Errorf("oss backend: %w", err)
		}
	default:
		return fmt.Errorf("unknown backend type %q", b.Type)
	}
	if n := b.variantCount(); n != 1 {
		return fmt.Errorf("exactly one backend variant must be set, got %d", n)
	}
	return nil
}

func (b *BackendConfig) variantCount() int {
	n := 0
	for _, set := range []bool{b.S3 != nil, b.GCS != nil, b.OSS != nil} {
		if set {
			n++
		}
	}
	return n
}

// Args renders the -backend-config flags passed to tofu init for the active
// variant.
func (b *BackendConfig) Args() []string {
	kv := func(k, v string) string { return fmt.Sprintf("-backend-config=%s=%s", k, v) }
	switch {
	case b.S3 != nil:
		return []string{kv("bucket", b.S3.Bucket), kv("key", b.S3.Key), kv("region", b.S3.Region)}
	case b.GCS != nil:
		return []string{kv("bucket", b.GCS.Bucket), kv("prefix", b.GCS.Prefix)}
	case b.OSS != nil:
		return []string{
			kv("bucket", b.OSS.Bucket),
			kv("prefix", b.OSS.Prefix),
			kv("key", b.OSS.Key),
			kv("region", b.OSS.Region),
			kv("tablestore_table", b.OSS.TablestoreTable),
		}
	}
	return nil
}

// Config describes one provisioning run against a cluster's infrastructure
// template.
type Config struct {
	ClusterUID   string         `json:"clusterUid" validate:"required"`
	TemplateDir  string         `json:"tofuTemplateDir" validate:"required"`
	TemplatePath string         `json:"tofuTemplatePath" validate:"required"`
	Backend      BackendConfig  `json:"tofuBackendConfig"`
	Variables    map[string]any `json:"tofuTfvars,omitempty"`
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return c.Backend.Validate()
}

// VarFileJSON renders Variables as a tfvars JSON document suitable for a
// -var-file argument.
func (c *Config) VarFileJSON() ([]byte, error) {
	if c.Variables == nil {
		return []byte("{}"), nil
	}
	out, err := json.Marshal(c.Variables)
	if err != nil {
		return nil, fmt.Errorf("marshal tfvars: %w", err)
	}
	return out, nil
}
