package workflow

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/evald/controlplane/internal/model"
)

type ReconcilePendingAccountsTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *ReconcilePendingAccountsTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
	s.env.RegisterWorkflowWithOptions(ResumeOnboardingWorkflow, workflow.RegisterOptions{
		Name: "ResumeOnboardingWorkflow",
	})
}

func (s *ReconcilePendingAccountsTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *ReconcilePendingAccountsTestSuite) TestResumesEachPendingAccount() {
	pending := []model.Account{
		{ID: "account-1", UID: "a-one", RealmStatus: model.RealmStatusPending},
		{ID: "account-2", UID: "a-two", RealmStatus: model.RealmStatusPending},
	}

	s.env.OnActivity("ListPendingAccounts", mock.Anything, 24).Return(pending, nil)
	s.env.OnWorkflow(ResumeOnboardingWorkflow, mock.Anything, "a-one").
		Return(&model.OnboardingResult{}, nil)
	s.env.OnWorkflow(ResumeOnboardingWorkflow, mock.Anything, "a-two").
		Return(&model.OnboardingResult{}, nil)

	s.env.ExecuteWorkflow(ReconcilePendingAccountsWorkflow, 24)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ReconcilePendingAccountsTestSuite) TestNoPendingAccounts() {
	s.env.OnActivity("ListPendingAccounts", mock.Anything, 24).Return([]model.Account{}, nil)

	s.env.ExecuteWorkflow(ReconcilePendingAccountsWorkflow, 24)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ReconcilePendingAccountsTestSuite) TestInFlightResumeIsSkipped() {
	pending := []model.Account{
		{ID: "account-1", UID: "a-running", RealmStatus: model.RealmStatusPending},
		{ID: "account-2", UID: "a-idle", RealmStatus: model.RealmStatusPending},
	}

	s.env.OnActivity("ListPendingAccounts", mock.Anything, 24).Return(pending, nil)
	// A resume already running under the same workflow ID surfaces as an
	// already-started error; the sweep must skip it, not fail.
	s.env.OnWorkflow(ResumeOnboardingWorkflow, mock.Anything, "a-running").
		Return(nil, &temporal.ChildWorkflowExecutionAlreadyStartedError{})
	s.env.OnWorkflow(ResumeOnboardingWorkflow, mock.Anything, "a-idle").
		Return(&model.OnboardingResult{}, nil)

	s.env.ExecuteWorkflow(ReconcilePendingAccountsWorkflow, 24)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ReconcilePendingAccountsTestSuite) TestOneFailureDoesNotBlockSweep() {
	pending := []model.Account{
		{ID: "account-1", UID: "a-stuck", RealmStatus: model.RealmStatusPending},
		{ID: "account-2", UID: "a-ok", RealmStatus: model.RealmStatusPending},
	}

	s.env.OnActivity("ListPendingAccounts", mock.Anything, 24).Return(pending, nil)
	s.env.OnWorkflow(ResumeOnboardingWorkflow, mock.Anything, "a-stuck").
		Return(nil, temporal.NewNonRetryableApplicationError("realm name rejected", "ValidationError", nil))
	s.env.OnWorkflow(ResumeOnboardingWorkflow, mock.Anything, "a-ok").
		Return(&model.OnboardingResult{}, nil)

	s.env.ExecuteWorkflow(ReconcilePendingAccountsWorkflow, 24)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ReconcilePendingAccountsTestSuite) TestListFails() {
	s.env.OnActivity("ListPendingAccounts", mock.Anything, 24).
		Return(nil, temporal.NewNonRetryableApplicationError("db down", "DatabaseError", nil))

	s.env.ExecuteWorkflow(ReconcilePendingAccountsWorkflow, 24)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func TestReconcilePendingAccountsTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcilePendingAccountsTestSuite))
}
