package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/evald/controlplane/internal/activity"
	"github.com/evald/controlplane/internal/model"
	"github.com/evald/controlplane/internal/provision"
)

// tofuActivityCtx returns a workflow context configured for long-running
// tofu process supervision. Infrastructure mutations are not safely
// blind-retryable, so init/plan/apply get exactly one attempt; a failure
// surfaces to an operator through the cluster's failed status instead of
// being silently re-attempted.
func tofuActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
}

// ClusterProvisionWorkflow renders and applies a cluster's infrastructure
// template against its remote-state backend. Cluster status is persisted
// after each step so a crashed worker never strands a cluster in an unknown
// state.
func ClusterProvisionWorkflow(ctx workflow.Context, cfg provision.Config, op provision.Operation) error {
	logger := workflow.GetLogger(ctx)
	dbCtx := dbActivityCtx(ctx)

	if !op.Valid() {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown operation %q", op), "ValidationError", nil)
	}

	// Preflight: config revalidation plus state-bucket reachability.
	preflightCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
	err := workflow.ExecuteActivity(preflightCtx, "ValidateBackend", cfg).Get(ctx, nil)
	if err != nil {
		_ = setClusterFailed(ctx, cfg.ClusterUID, err)
		return fmt.Errorf("validate backend: %w", err)
	}

	status := model.StatusProvisioning
	if op == provision.OperationDestroy {
		status = model.StatusDeleting
	}
	err = workflow.ExecuteActivity(dbCtx, "UpdateClusterStatus", activity.UpdateClusterStatusParams{
		ClusterUID: cfg.ClusterUID,
		Status:     status,
	}).Get(ctx, nil)
	if err != nil {
		return err
	}

	tofuCtx := tofuActivityCtx(ctx)

	err = workflow.ExecuteActivity(tofuCtx, "Init", cfg).Get(ctx, nil)
	if err != nil {
		_ = setClusterFailed(ctx, cfg.ClusterUID, err)
		return fmt.Errorf("tofu init: %w", err)
	}

	err = workflow.ExecuteActivity(tofuCtx, "Plan", cfg).Get(ctx, nil)
	if err != nil {
		_ = setClusterFailed(ctx, cfg.ClusterUID, err)
		return fmt.Errorf("tofu plan: %w", err)
	}

	switch op {
	case provision.OperationCreate, provision.OperationUpdate:
		err = workflow.ExecuteActivity(tofuCtx, "Apply", cfg).Get(ctx, nil)
		if err != nil {
			_ = setClusterFailed(ctx, cfg.ClusterUID, err)
			return fmt.Errorf("tofu apply: %w", err)
		}
	case provision.OperationDestroy:
		err = workflow.ExecuteActivity(tofuCtx, "Destroy", cfg).Get(ctx, nil)
		if err != nil {
			_ = setClusterFailed(ctx, cfg.ClusterUID, err)
			return fmt.Errorf("tofu destroy: %w", err)
		}
	}

	terminal := model.StatusActive
	if op == provision.OperationDestroy {
		terminal = model.StatusDeleted
	}
	logger.Info("cluster provisioning finished", "cluster", cfg.ClusterUID, "operation", op, "status", terminal)

	return workflow.ExecuteActivity(dbCtx, "UpdateClusterStatus", activity.UpdateClusterStatusParams{
		ClusterUID: cfg.ClusterUID,
		Status:     terminal,
	}).Get(ctx, nil)
}
