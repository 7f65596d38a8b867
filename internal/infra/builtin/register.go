// Package builtin provides built-in agent configurations for known CLI
// tools. It owns the CLI-specific details that domain should not know about.
package builtin

import "github.com/runoshun/beanloop/internal/domain"

// builtinAgents contains preset configurations for known agent CLIs.
var builtinAgents = map[string]domain.Agent{
	"claude":   claudeAgent,
	"opencode": opencodeAgent,
}

// Register adds all built-in agents to the given config. This should be
// called after NewDefaultConfig() and before merging user config, so user
// files can override any preset field.
func Register(cfg *domain.Config) {
	for name, agent := range builtinAgents {
		cfg.Agents[name] = agent
	}
	if cfg.Agent == "" {
		cfg.Agent = "claude"
	}
}
