// Package runner launches agent subprocesses for task iterations.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/runoshun/beanloop/internal/domain"
)

// PromptEnvVar carries the prompt content into the agent subprocess. The
// rendered command references it as "$BEANLOOP_PROMPT" so the command line
// never embeds the prompt text and no shell escaping is needed.
const PromptEnvVar = "BEANLOOP_PROMPT"

// CommandContext is the function used to create exec.Cmd instances.
// It can be replaced in tests to mock command execution.
var CommandContext = exec.CommandContext

// Ensure Runner implements domain.AgentRunner.
var _ domain.AgentRunner = (*Runner)(nil)

// Runner renders the configured agent command and runs it through the shell.
type Runner struct {
	cfg *domain.Config

	// Output returns the sink for agent stdout/stderr, typically the task
	// log file.
	Output func(taskID string) io.Writer
}

// New creates a Runner for the given configuration.
func New(cfg *domain.Config) *Runner {
	return &Runner{
		cfg:    cfg,
		Output: func(string) io.Writer { return io.Discard },
	}
}

// Run executes one agent iteration and returns the subprocess exit code.
// A non-zero exit is a result, not an error; the caller interprets it. Run
// returns an error when the agent is unknown, the command cannot be rendered
// or started, or the context was cancelled before the agent finished.
func (r *Runner) Run(ctx context.Context, inv domain.AgentInvocation) (int, error) {
	agent, err := r.cfg.ResolveAgent(inv.Agent)
	if err != nil {
		return 0, fmt.Errorf("agent %q: %w", inv.Agent, err)
	}

	command, err := agent.RenderCommand(domain.CommandData{
		Model:  inv.Model,
		Prompt: `"$` + PromptEnvVar + `"`,
		TaskID: inv.TaskID,
	})
	if err != nil {
		return 0, fmt.Errorf("render agent command: %w", err)
	}

	out := r.Output(inv.TaskID)

	cmd := CommandContext(ctx, "sh", "-c", command) // #nosec G204 - command comes from trusted agent configuration
	cmd.Dir = inv.Dir
	cmd.Env = append(os.Environ(), PromptEnvVar+"="+inv.Prompt)
	cmd.Stdout = out
	cmd.Stderr = out

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return exitErr.ExitCode(), ctx.Err()
		}
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("failed to run agent %q: %w", inv.Agent, err)
}
