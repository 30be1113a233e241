package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/evald/controlplane/internal/activity"
	"github.com/evald/controlplane/internal/config"
	"github.com/evald/controlplane/internal/db"
	"github.com/evald/controlplane/internal/dispatch"
	"github.com/evald/controlplane/internal/keycloak"
	"github.com/evald/controlplane/internal/logging"
	"github.com/evald/controlplane/internal/metrics"
	"github.com/evald/controlplane/internal/workflow"
)

// ownerRoleID is the role granted to the onboarding user's account membership.
const ownerRoleID = "owner"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, dispatch.TaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})

	// Register activities
	accountActivities := activity.NewAccountDB(pool, ownerRoleID)
	w.RegisterActivity(accountActivities)

	clusterActivities := activity.NewClusterDB(pool)
	w.RegisterActivity(clusterActivities)

	realmActivities := activity.NewRealm(logger, keycloak.NewClient(cfg.KeycloakBaseURL, cfg.KeycloakAdminToken))
	w.RegisterActivity(realmActivities)

	tofuActivities := activity.NewTofu(logger, cfg.TofuBinary)
	w.RegisterActivity(tofuActivities)

	backendActivities := activity.NewBackendCheck(logger, cfg.StateS3Endpoint, cfg.StateS3AccessKey, cfg.StateS3SecretKey)
	w.RegisterActivity(backendActivities)

	// Register workflows
	w.RegisterWorkflow(workflow.OnboardingWorkflow)
	w.RegisterWorkflow(workflow.ResumeOnboardingWorkflow)
	w.RegisterWorkflow(workflow.ClusterProvisionWorkflow)
	w.RegisterWorkflow(workflow.ReconcilePendingAccountsWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", dispatch.TaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Register cron schedules. Errors for already-existing schedules are
	// ignored so that re-deploys do not fail.
	registerCronSchedules(ctx, tc, cfg, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, cfg *config.Config, logger zerolog.Logger) {
	scheduleClient := tc.ScheduleClient()

	_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
		ID: "pending-account-reconcile-cron",
		Spec: temporalclient.ScheduleSpec{
			CronExpressions: []string{"*/15 * * * *"},
		},
		Action: &temporalclient.ScheduleWorkflowAction{
			ID:        "pending-account-reconcile-cron",
			Workflow:  workflow.ReconcilePendingAccountsWorkflow,
			Args:      []interface{}{cfg.PendingAccountMaxAgeHours},
			TaskQueue: dispatch.TaskQueue,
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
			logger.Info().Msg("reconcile cron schedule already exists, skipping")
		} else {
			logger.Fatal().Err(err).Msg("failed to create reconcile cron schedule")
		}
	} else {
		logger.Info().Msg("created reconcile cron schedule")
	}
}
