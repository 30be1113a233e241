package activity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/evald/controlplane/internal/metrics"
	"github.com/evald/controlplane/internal/provision"
)

// heartbeatInterval is how often a running tofu process reports liveness to
// the orchestration runtime. Missing the activity's heartbeat timeout marks
// the worker stalled and triggers a retry elsewhere.
const heartbeatInterval = 10 * time.Second

// stderrTailBytes bounds how much captured stderr is attached to a failure.
const stderrTailBytes = 4096

// Tofu contains activities that supervise long-running OpenTofu processes.
// Each activity is a single external process invocation and never touches
// the relational store.
type Tofu struct {
	logger    zerolog.Logger
	binary    string
	heartbeat time.Duration
}

// NewTofu creates a new Tofu activity struct. binary is the OpenTofu
// executable, typically "tofu".
func NewTofu(logger zerolog.Logger, binary string) *Tofu {
	return &Tofu{
		logger:    logger.With().Str("component", "tofu-activity").Logger(),
		binary:    binary,
		heartbeat: heartbeatInterval,
	}
}

// Init runs tofu init against the config's remote-state backend.
func (a *Tofu) Init(ctx context.Context, cfg provision.Config) error {
	args := append([]string{"-reconfigure"}, cfg.Backend.Args()...)
	_, err := a.run(ctx, cfg, "init", args...)
	return err
}

// Plan runs tofu plan with the config's variables.
func (a *Tofu) Plan(ctx context.Context, cfg provision.Config) error {
	varFile, cleanup, err := a.writeVarFile(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	_, err = a.run(ctx, cfg, "plan", "-var-file", varFile)
	return err
}

// Apply runs tofu apply with the config's variables.
func (a *Tofu) Apply(ctx context.Context, cfg provision.Config) error {
	varFile, cleanup, err := a.writeVarFile(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	_, err = a.run(ctx, cfg, "apply", "-auto-approve", "-var-file", varFile)
	return err
}

// Destroy runs tofu destroy with the config's variables.
func (a *Tofu) Destroy(ctx context.Context, cfg provision.Config) error {
	varFile, cleanup, err := a.writeVarFile(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	_, err = a.run(ctx, cfg, "destroy", "-auto-approve", "-var-file", varFile)
	return err
}

// writeVarFile renders the config's variables to a temporary tfvars JSON
// file and returns its path with a cleanup func.
func (a *Tofu) writeVarFile(cfg provision.Config) (string, func(), error) {
	data, err := cfg.VarFileJSON()
	if err != nil {
		return "", nil, err
	}
	f, err := os.CreateTemp("", "tfvars-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("create tfvars file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("write tfvars file: %w", err)
	}
	f.Close()
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

// run executes one tofu command in the config's template directory. While
// the process runs, a heartbeat is recorded every heartbeatInterval; the
// heartbeat goroutine is stopped on every exit path. Context cancellation
// kills the child process via CommandContext.
func (a *Tofu) run(ctx context.Context, cfg provision.Config, command string, extraArgs ...string) (string, error) {
	workDir := filepath.Join(cfg.TemplateDir, cfg.TemplatePath)
	args := append([]string{command, "-input=false", "-no-color"}, extraArgs...)

	a.logger.Info().
		Str("cluster", cfg.ClusterUID).
		Str("command", command).
		Str("dir", workDir).
		Msg("running tofu")

	cmd := exec.CommandContext(ctx, a.binary, args...)
	cmd.Dir = workDir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		metrics.TofuRuns.WithLabelValues(command, "error").Inc()
		return "", temporal.NewApplicationError(
			fmt.Sprintf("start %s %s: %v", a.binary, command, err), "TofuExitError", err)
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(a.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx, command)
			}
		}
	}()

	err := cmd.Wait()
	close(done)

	if err != nil {
		metrics.TofuRuns.WithLabelValues(command, "error").Inc()
		tail := stderrTail(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", temporal.NewApplicationError(
				fmt.Sprintf("%s %s exited %d: %s", a.binary, command, exitErr.ExitCode(), tail),
				"TofuExitError", err)
		}
		return "", fmt.Errorf("%s %s: %w: %s", a.binary, command, err, tail)
	}

	metrics.TofuRuns.WithLabelValues(command, "ok").Inc()
	return stdout.String(), nil
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailBytes {
		s = s[len(s)-stderrTailBytes:]
	}
	return s
}
