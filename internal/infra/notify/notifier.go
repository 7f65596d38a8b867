// Package notify delivers user notifications by running a configured shell
// command per event.
package notify

import (
	"bytes"
	"context"
	"os/exec"
	"text/template"

	"github.com/runoshun/beanloop/internal/domain"
)

// CommandContext is the function used to create exec.Cmd instances.
// It can be replaced in tests to mock command execution.
var CommandContext = exec.CommandContext

// Ensure implementations satisfy domain.Notifier.
var (
	_ domain.Notifier = (*Command)(nil)
	_ domain.Notifier = Nop{}
)

// Command runs a user-configured command template per notification.
// Template fields: {{.TaskID}}, {{.Title}}, {{.Outcome}}, {{.Message}}.
type Command struct {
	template string
	logger   domain.Logger
}

// NewCommand creates a command notifier. Failures are logged, never returned;
// notifying must not break the loop.
func NewCommand(tmpl string, logger domain.Logger) *Command {
	return &Command{template: tmpl, logger: logger}
}

// Notify renders the template and runs it through the shell.
func (c *Command) Notify(ctx context.Context, n domain.Notification) {
	tmpl, err := template.New("notify").Parse(c.template)
	if err != nil {
		c.logger.Warn(n.TaskID, "notify", "parse notify command: "+err.Error())
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, n); err != nil {
		c.logger.Warn(n.TaskID, "notify", "render notify command: "+err.Error())
		return
	}

	// #nosec G204 - the command comes from the user's own notify config
	cmd := CommandContext(ctx, "sh", "-c", buf.String())
	if out, err := cmd.CombinedOutput(); err != nil {
		c.logger.Warn(n.TaskID, "notify", "run notify command: "+err.Error()+": "+string(out))
	}
}

// Nop discards all notifications. Used for --silent and when no command is
// configured.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, domain.Notification) {}

// FromConfig returns the notifier matching the configuration: the command
// notifier when a command is set, otherwise Nop. silent forces Nop.
func FromConfig(cfg *domain.Config, silent bool, logger domain.Logger) domain.Notifier {
	if silent || cfg.Notify.Command == "" {
		return Nop{}
	}
	return NewCommand(cfg.Notify.Command, logger)
}
