package builtin

import "github.com/runoshun/beanloop/internal/domain"

// claudeAgent is the built-in configuration for the Claude CLI. The agent
// runs non-interactively (-p) and reads the prompt from the environment
// variable the runner exports.
var claudeAgent = domain.Agent{
	Command:         "claude",
	CommandTemplate: `{{.Command}} --model {{.Model}} {{.Args}} -p {{.Prompt}}`,
	Args:            "--permission-mode acceptEdits",
	DefaultModel:    "opus",
	Description:     "Claude model via Anthropic CLI",
}
