package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/evald/controlplane/internal/activity"
	"github.com/evald/controlplane/internal/model"
)

// dbActivityCtx returns a workflow context with the retry policy used for
// short database activities.
func dbActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    5,
			InitialInterval:    time.Second,
			MaximumInterval:    30 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
}

// setClusterFailed records a failed cluster with the root cause as its status
// message. Callers typically ignore the returned error since the primary
// error is more important.
func setClusterFailed(ctx workflow.Context, clusterUID string, cause error) error {
	msg := cause.Error()
	return workflow.ExecuteActivity(dbActivityCtx(ctx), "UpdateClusterStatus", activity.UpdateClusterStatusParams{
		ClusterUID:    clusterUID,
		Status:        model.StatusFailed,
		StatusMessage: &msg,
	}).Get(ctx, nil)
}

// isValidationError reports whether an activity error is a deterministic
// validation failure, as opposed to a transient one that exhausted retries.
func isValidationError(err error) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == "ValidationError"
}
