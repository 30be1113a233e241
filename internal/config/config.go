package config

import (
	"fmt"
	"os"
)

type Config struct {
	DatabaseURL     string
	TemporalAddress string
	MetricsAddr     string
	MigrationsDir   string
	LogLevel        string
	ServiceName     string
	ClusterID       string
	// TofuBinary is the OpenTofu executable invoked by provisioning
	// activities. Overridable for environments that still ship terraform.
	TofuBinary string
	// KeycloakBaseURL and KeycloakAdminToken configure the identity-provider
	// admin client used to provision per-account realms.
	KeycloakBaseURL    string
	KeycloakAdminToken string
	// StateS3* configure the preflight check against S3-backed remote state.
	// Endpoint may be empty to use the default AWS endpoint.
	StateS3Endpoint  string
	StateS3AccessKey string
	StateS3SecretKey string
	// PendingAccountMaxAgeHours is how old a pending account must be before
	// the reconciliation sweep retries its onboarding.
	PendingAccountMaxAgeHours int
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		TemporalAddress:           getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		MetricsAddr:               getEnv("METRICS_ADDR", ":9090"),
		MigrationsDir:             getEnv("MIGRATIONS_DIR", "migrations"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		ServiceName:               getEnv("SERVICE_NAME", "controlplane"),
		ClusterID:                 getEnv("CLUSTER_ID", ""),
		TofuBinary:                getEnv("TOFU_BINARY", "tofu"),
		KeycloakBaseURL:           getEnv("KEYCLOAK_BASE_URL", ""),
		KeycloakAdminToken:        getEnv("KEYCLOAK_ADMIN_TOKEN", ""),
		StateS3Endpoint:           getEnv("STATE_S3_ENDPOINT", ""),
		StateS3AccessKey:          getEnv("STATE_S3_ACCESS_KEY", ""),
		StateS3SecretKey:          getEnv("STATE_S3_SECRET_KEY", ""),
		PendingAccountMaxAgeHours: getEnvInt("PENDING_ACCOUNT_MAX_AGE_HOURS", 1),
	}

	return cfg, nil
}

// Validate checks the fields required for the given binary role.
func (c *Config) Validate(role string) error {
	switch role {
	case "worker":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.TemporalAddress == "" {
			return fmt.Errorf("TEMPORAL_ADDRESS is required")
		}
	case "migrate":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}
