package main

import (
	"fmt"
	"os"

	"github.com/evald/controlplane/internal/config"
	"github.com/evald/controlplane/internal/db"
	"github.com/evald/controlplane/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("migrate"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	logger.Info().Str("dir", cfg.MigrationsDir).Msg("migrations applied")
}
