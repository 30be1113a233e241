package workflow

import (
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"

	"github.com/evald/controlplane/internal/activity"
	"github.com/evald/controlplane/internal/model"
)

// registerActivities registers activity structs with the test workflow
// environment so that parameter and return types can be deserialized
// correctly by the Temporal test framework. All activities are mocked via
// OnActivity; the framework only needs the type information.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.AccountDB{})
	env.RegisterActivity(&activity.ClusterDB{})
	env.RegisterActivity(&activity.Realm{})
	env.RegisterActivity(&activity.Tofu{})
	env.RegisterActivity(&activity.BackendCheck{})
}

// matchFailedCluster returns a matcher for UpdateClusterStatusParams that
// checks the cluster UID, status=failed, and a non-nil status message. The
// exact message includes Temporal error wrapping that is not predictable in
// tests.
func matchFailedCluster(clusterUID string) interface{} {
	return mock.MatchedBy(func(params activity.UpdateClusterStatusParams) bool {
		return params.ClusterUID == clusterUID &&
			params.Status == model.StatusFailed &&
			params.StatusMessage != nil
	})
}
