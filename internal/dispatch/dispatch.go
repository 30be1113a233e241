// Package dispatch is the boundary between request handlers and the durable
// execution backend. It derives deterministic workflow IDs from the business
// operation, starts (or attaches to) workflow executions, and hands back
// handles for status inspection and cancellation. It never touches the
// relational database.
package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/evald/controlplane/internal/model"
	"github.com/evald/controlplane/internal/provision"
)

// TaskQueue is the queue all control-plane workers poll.
const TaskQueue = "controlplane-tasks"

// State is the coarse terminal-or-running state of a workflow run.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// OnboardingWorkflowID derives the deduplication key for onboarding a
// subject. It is a pure function of the operation: the same subject always
// maps to the same ID, so a duplicate request attaches to the in-flight run
// instead of starting a second one.
func OnboardingWorkflowID(kcSubject string) string {
	return "onboarding/" + kcSubject
}

// ResumeWorkflowID derives the deduplication key for resuming a pending
// account's onboarding.
func ResumeWorkflowID(accountUID string) string {
	return "onboarding/resume/" + accountUID
}

// ClusterWorkflowID derives the deduplication key for a cluster provisioning
// operation.
func ClusterWorkflowID(op provision.Operation, clusterUID string) string {
	return fmt.Sprintf("cluster/%s/%s", op, clusterUID)
}

// Dispatcher starts workflows on the execution backend.
type Dispatcher struct {
	tc     temporalclient.Client
	logger zerolog.Logger
}

// New creates a Dispatcher.
func New(tc temporalclient.Client, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{tc: tc, logger: logger.With().Str("component", "dispatch").Logger()}
}

// startOptions returns StartWorkflowOptions with attach-if-running
// semantics: starting a workflow whose ID is already executing returns a
// handle to the existing run rather than an error or a duplicate execution.
func startOptions(id string) temporalclient.StartWorkflowOptions {
	return temporalclient.StartWorkflowOptions{
		ID:        id,
		TaskQueue: TaskQueue,
		// false means an already-running execution is returned as the run
		// handle instead of failing the start. This is the dedup guarantee.
		WorkflowExecutionErrorWhenAlreadyStarted: false,
	}
}

// StartOnboarding validates the input and starts (or attaches to) the
// onboarding workflow for the subject.
func (d *Dispatcher) StartOnboarding(ctx context.Context, input model.OnboardingInput) (*Handle, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	id := OnboardingWorkflowID(input.KCSubject)
	run, err := d.tc.ExecuteWorkflow(ctx, startOptions(id), "OnboardingWorkflow", input)
	if err != nil {
		return nil, fmt.Errorf("start onboarding workflow: %w", err)
	}

	d.logger.Info().Str("workflow_id", id).Str("run_id", run.GetRunID()).Msg("onboarding workflow started")
	return &Handle{tc: d.tc, run: run}, nil
}

// ResumeOnboarding starts (or attaches to) the resume workflow for a pending
// account.
func (d *Dispatcher) ResumeOnboarding(ctx context.Context, accountUID string) (*Handle, error) {
	if accountUID == "" {
		return nil, fmt.Errorf("account UID is required")
	}

	id := ResumeWorkflowID(accountUID)
	run, err := d.tc.ExecuteWorkflow(ctx, startOptions(id), "ResumeOnboardingWorkflow", accountUID)
	if err != nil {
		return nil, fmt.Errorf("start resume workflow: %w", err)
	}

	d.logger.Info().Str("workflow_id", id).Msg("resume workflow started")
	return &Handle{tc: d.tc, run: run}, nil
}

// StartClusterProvision validates the config and starts (or attaches to) the
// cluster provisioning workflow. Malformed configs are rejected here, before
// any durable run exists.
func (d *Dispatcher) StartClusterProvision(ctx context.Context, cfg provision.Config, op provision.Operation) (*Handle, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id := ClusterWorkflowID(op, cfg.ClusterUID)
	run, err := d.tc.ExecuteWorkflow(ctx, startOptions(id), "ClusterProvisionWorkflow", cfg, op)
	if err != nil {
		return nil, fmt.Errorf("start cluster provisioning workflow: %w", err)
	}

	d.logger.Info().Str("workflow_id", id).Str("operation", string(op)).Msg("cluster provisioning workflow started")
	return &Handle{tc: d.tc, run: run}, nil
}

// GetHandle returns a handle to an existing workflow by ID.
func (d *Dispatcher) GetHandle(ctx context.Context, workflowID string) *Handle {
	return &Handle{tc: d.tc, run: d.tc.GetWorkflow(ctx, workflowID, "")}
}

// Handle is a reference to one workflow execution.
type Handle struct {
	tc  temporalclient.Client
	run temporalclient.WorkflowRun
}

// ID returns the workflow ID.
func (h *Handle) ID() string {
	return h.run.GetID()
}

// Get blocks until the workflow reaches a terminal state and decodes its
// result into out (which may be nil).
func (h *Handle) Get(ctx context.Context, out any) error {
	return h.run.Get(ctx, out)
}

// State returns the current state of the execution without blocking.
func (h *Handle) State(ctx context.Context) (State, error) {
	resp, err := h.tc.DescribeWorkflowExecution(ctx, h.run.GetID(), h.run.GetRunID())
	if err != nil {
		return "", fmt.Errorf("describe workflow: %w", err)
	}

	switch resp.GetWorkflowExecutionInfo().GetStatus().String() {
	case "Completed":
		return StateCompleted, nil
	case "Failed", "Terminated", "Canceled":
		return StateFailed, nil
	case "TimedOut":
		return StateTimedOut, nil
	default:
		return StateRunning, nil
	}
}

// Cancel requests cooperative cancellation of the execution.
func (h *Handle) Cancel(ctx context.Context) error {
	return h.tc.CancelWorkflow(ctx, h.run.GetID(), h.run.GetRunID())
}
