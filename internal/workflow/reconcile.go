package workflow

import (
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/evald/controlplane/internal/dispatch"
	"github.com/evald/controlplane/internal/model"
)

// ReconcilePendingAccountsWorkflow sweeps accounts whose realm provisioning
// stalled in pending and resumes their onboarding. It runs on a cron
// schedule. Resume workflows are keyed by account UID, so a sweep that
// overlaps an in-flight resume (or a caller-initiated one) is deduplicated
// by the execution backend rather than re-run.
func ReconcilePendingAccountsWorkflow(ctx workflow.Context, maxAgeHours int) error {
	logger := workflow.GetLogger(ctx)

	var pending []model.Account
	err := workflow.ExecuteActivity(dbActivityCtx(ctx), "ListPendingAccounts", maxAgeHours).Get(ctx, &pending)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	logger.Info("resuming stalled onboarding", "count", len(pending))

	for _, account := range pending {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: dispatch.ResumeWorkflowID(account.UID),
		})
		err := workflow.ExecuteChildWorkflow(childCtx, ResumeOnboardingWorkflow, account.UID).Get(ctx, nil)
		if err != nil {
			if temporal.IsWorkflowExecutionAlreadyStartedError(err) {
				continue
			}
			// One stuck account must not block the rest of the sweep; the
			// account stays pending and is retried on the next run.
			logger.Error("resume failed", "account", account.UID, "error", err)
		}
	}

	return nil
}
