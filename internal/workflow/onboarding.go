package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/evald/controlplane/internal/activity"
	"github.com/evald/controlplane/internal/model"
)

// OnboardingWorkflow runs new-tenant onboarding as a sequential state
// machine: create user + account + membership in one transaction, provision
// the identity realm named after the account UID, then finalize the account.
//
// Crash recovery relies on two properties: the transactional step resolves a
// kc_sub unique violation to the existing rows instead of failing, and realm
// provisioning is idempotent. A re-run of the workflow therefore resumes
// from wherever the previous attempt got to.
func OnboardingWorkflow(ctx workflow.Context, input model.OnboardingInput) (*model.OnboardingResult, error) {
	logger := workflow.GetLogger(ctx)

	var ensured activity.EnsureUserAccountResult
	err := workflow.ExecuteActivity(dbActivityCtx(ctx), "EnsureUserAccount", input).Get(ctx, &ensured)
	if err != nil {
		return nil, fmt.Errorf("create user account: %w", err)
	}
	if !ensured.Created {
		logger.Info("subject already onboarded, resuming",
			"kc_sub", input.KCSubject, "account", ensured.Account.UID,
			"realm_status", ensured.Account.RealmStatus)
	}

	// Short-circuit: a previous run already finished everything.
	if ensured.Account.RealmStatus == model.RealmStatusFinalized {
		return &model.OnboardingResult{User: ensured.User, Account: ensured.Account}, nil
	}

	account, err := provisionAndFinalize(ctx, ensured.Account.UID, ensured.User.Email)
	if err != nil {
		return nil, err
	}

	return &model.OnboardingResult{User: ensured.User, Account: *account}, nil
}

// ResumeOnboardingWorkflow re-runs realm provisioning and finalization for an
// account stuck in pending. It is keyed by account UID and safe to start
// repeatedly; a finalized account returns immediately.
func ResumeOnboardingWorkflow(ctx workflow.Context, accountUID string) (*model.OnboardingResult, error) {
	dbCtx := dbActivityCtx(ctx)

	var account model.Account
	err := workflow.ExecuteActivity(dbCtx, "GetAccountByUID", accountUID).Get(ctx, &account)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	var owner model.User
	err = workflow.ExecuteActivity(dbCtx, "GetAccountOwner", accountUID).Get(ctx, &owner)
	if err != nil {
		return nil, fmt.Errorf("load account owner: %w", err)
	}

	if account.RealmStatus == model.RealmStatusFinalized {
		return &model.OnboardingResult{User: owner, Account: account}, nil
	}

	finalized, err := provisionAndFinalize(ctx, accountUID, owner.Email)
	if err != nil {
		return nil, err
	}

	return &model.OnboardingResult{User: owner, Account: *finalized}, nil
}

// provisionAndFinalize runs the realm-provisioning and finalization steps
// shared by first-run and resumed onboarding.
func provisionAndFinalize(ctx workflow.Context, accountUID, adminEmail string) (*model.Account, error) {
	realmCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    5,
			InitialInterval:    5 * time.Second,
			MaximumInterval:    time.Minute,
			BackoffCoefficient: 2.0,
		},
	})
	err := workflow.ExecuteActivity(realmCtx, "ProvisionRealm", activity.ProvisionRealmParams{
		RealmUID:   accountUID,
		AdminEmail: adminEmail,
	}).Get(ctx, nil)
	if err != nil {
		// A deterministic validation failure will never succeed on resume,
		// so mark the account failed. Transient exhaustion leaves it
		// pending, which the reconciliation sweep treats as resumable.
		if isValidationError(err) {
			_ = workflow.ExecuteActivity(dbActivityCtx(ctx), "SetAccountRealmStatus", activity.SetAccountRealmStatusParams{
				AccountUID: accountUID,
				Status:     model.RealmStatusFailed,
			}).Get(ctx, nil)
		}
		return nil, fmt.Errorf("provision realm: %w", err)
	}

	var account model.Account
	err = workflow.ExecuteActivity(dbActivityCtx(ctx), "FinalizeAccount", accountUID).Get(ctx, &account)
	if err != nil {
		return nil, fmt.Errorf("finalize account: %w", err)
	}
	return &account, nil
}
