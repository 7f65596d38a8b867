package builtin

import "github.com/runoshun/beanloop/internal/domain"

// opencodeAgent is the built-in configuration for the OpenCode CLI.
// "opencode run" is the non-interactive mode for synchronous execution.
var opencodeAgent = domain.Agent{
	Command:         "opencode",
	CommandTemplate: `{{.Command}} run -m {{.Model}} {{.Args}} {{.Prompt}}`,
	DefaultModel:    "anthropic/claude-sonnet-4-5",
	Description:     "General purpose coding agent via opencode CLI",
}
