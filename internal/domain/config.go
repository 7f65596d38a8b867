package domain

import (
	"bytes"
	"path/filepath"
	"text/template"
)

// Config represents the application configuration. It is built once at
// startup (defaults, config files, environment) and passed explicitly; no
// component reads ambient global state.
type Config struct {
	Agents  map[string]Agent `toml:"agents"`  // Agent definitions from [agents.<name>]
	Tracker TrackerConfig    `toml:"tracker"` // [tracker] settings
	Daemon  DaemonConfig     `toml:"daemon"`  // [daemon] settings
	Notify  NotifyConfig     `toml:"notify"`  // [notify] settings
	Log     LogConfig        `toml:"log"`     // [log] settings

	Agent             string `toml:"agent,omitempty"`               // Agent backend to run
	Model             string `toml:"model,omitempty"`               // Model override ("" = agent default)
	Trunk             string `toml:"trunk,omitempty"`               // Default merge line
	MaxIterations     int    `toml:"max_iterations,omitempty"`      // Iteration budget per task
	CircuitBreaker    int    `toml:"circuit_breaker,omitempty"`     // Consecutive agent failures before abort
	RetryDelaySeconds int    `toml:"retry_delay_seconds,omitempty"` // Pause between failed agent runs
	BranchIsolation   bool   `toml:"branch_isolation"`              // Work in per-task branches
}

// TrackerConfig holds settings for the task tracker from [tracker] section.
type TrackerConfig struct {
	Command string `toml:"command,omitempty"`  // Tracker CLI executable
	DataDir string `toml:"data_dir,omitempty"` // Tracker data directory, relative to repo root
	Depth   int    `toml:"depth,omitempty"`    // Snapshot fetch depth
}

// DaemonConfig holds settings for continuous mode from [daemon] section.
type DaemonConfig struct {
	Concurrency         int `toml:"concurrency,omitempty"`           // Parallel controller slots
	PollIntervalSeconds int `toml:"poll_interval_seconds,omitempty"` // Fallback re-scan interval
}

// NotifyConfig holds notification settings from [notify] section.
type NotifyConfig struct {
	Command string `toml:"command,omitempty"` // Command template run per outcome ("" = disabled)
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // Log level: debug, info, warn, error
}

// Agent defines an agent backend configuration.
type Agent struct {
	Command         string `toml:"command,omitempty"`          // Executable name
	CommandTemplate string `toml:"command_template,omitempty"` // Full command template (e.g. `{{.Command}} -m {{.Model}} {{.Args}} {{.Prompt}}`)
	Args            string `toml:"args,omitempty"`             // Additional arguments
	DefaultModel    string `toml:"default_model,omitempty"`    // Model used when none is configured
	Description     string `toml:"description,omitempty"`
}

// CommandData holds data for rendering agent commands.
type CommandData struct {
	Command string // Agent executable
	Model   string // Resolved model name
	Args    string // Expanded extra arguments
	Prompt  string // Shell reference to the prompt (e.g. `"$BEANLOOP_PROMPT"`)
	TaskID  string
}

// RenderCommand renders the full shell command for this agent. The prompt is
// passed as a shell variable reference rather than inline text so the rendered
// command never needs prompt escaping; the runner exports the actual content
// in the environment.
func (a *Agent) RenderCommand(data CommandData) (string, error) {
	args, err := expandString(a.Args, data)
	if err != nil {
		return "", err
	}
	data.Args = args

	if data.Model == "" {
		data.Model = a.DefaultModel
	}
	if data.Command == "" {
		data.Command = a.Command
	}

	tmpl, err := template.New("cmd").Parse(a.CommandTemplate)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// expandString expands template variables in a string.
func expandString(s string, data CommandData) (string, error) {
	if s == "" {
		return "", nil
	}
	tmpl, err := template.New("expand").Parse(s)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Default configuration values.
const (
	DefaultMaxIterations  = 5
	DefaultCircuitBreaker = 3
	DefaultRetryDelay     = 5
	DefaultTrunk          = "main"
	DefaultTrackerCommand = "bean"
	DefaultTrackerDataDir = ".beans"
	DefaultFetchDepth     = 5
	DefaultConcurrency    = 1
	DefaultPollInterval   = 30
	DefaultLogLevel       = "info"
)

// Directory and file names for beanloop.
const (
	LoopDirName        = "beanloop"       // Directory name under .git for loop state
	ConfigFileName     = "config.toml"    // Global config file name
	RootConfigFileName = ".beanloop.toml" // Config file name in repository root
)

// RepoLoopDir returns the beanloop state directory for a repository.
func RepoLoopDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", LoopDirName)
}

// RepoConfigPath returns the repo config path.
func RepoConfigPath(repoRoot string) string {
	return filepath.Join(repoRoot, RootConfigFileName)
}

// GlobalConfigPath returns the global config path.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalConfigPath(configHome string) string {
	return filepath.Join(configHome, LoopDirName, ConfigFileName)
}

// NewDefaultConfig returns a Config with default values. Builtin agents are
// registered by the infra layer before user config is merged in.
func NewDefaultConfig() *Config {
	return &Config{
		Agents:            make(map[string]Agent),
		Trunk:             DefaultTrunk,
		MaxIterations:     DefaultMaxIterations,
		CircuitBreaker:    DefaultCircuitBreaker,
		RetryDelaySeconds: DefaultRetryDelay,
		BranchIsolation:   true,
		Tracker: TrackerConfig{
			Command: DefaultTrackerCommand,
			DataDir: DefaultTrackerDataDir,
			Depth:   DefaultFetchDepth,
		},
		Daemon: DaemonConfig{
			Concurrency:         DefaultConcurrency,
			PollIntervalSeconds: DefaultPollInterval,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ResolveAgent returns the named agent configuration, or ErrUnknownAgent when
// no such backend is configured.
func (c *Config) ResolveAgent(name string) (Agent, error) {
	agent, ok := c.Agents[name]
	if !ok {
		return Agent{}, ErrUnknownAgent
	}
	return agent, nil
}
