// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/beanloop/internal/domain"
	"github.com/runoshun/beanloop/internal/infra/builtin"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files and the environment.
// Precedence, lowest to highest: defaults and built-in agents, global config,
// repository config, BEANLOOP_* environment variables.
type Loader struct {
	repoRoot      string
	globalConfDir string
}

// NewLoader creates a new Loader for the repository.
func NewLoader(repoRoot string) *Loader {
	return &Loader{
		repoRoot:      repoRoot,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config
// directory. This is useful for testing.
func NewLoaderWithGlobalDir(repoRoot, globalConfDir string) *Loader {
	return &Loader{
		repoRoot:      repoRoot,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, domain.LoopDirName)
}

// Load returns the merged configuration.
func (l *Loader) Load() (*domain.Config, error) {
	cfg := domain.NewDefaultConfig()
	builtin.Register(cfg)

	if l.globalConfDir != "" {
		globalPath := filepath.Join(l.globalConfDir, domain.ConfigFileName)
		if err := mergeFile(cfg, globalPath); err != nil {
			return nil, err
		}
	}

	repoPath := domain.RepoConfigPath(l.repoRoot)
	if err := mergeFile(cfg, repoPath); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig mirrors domain.Config for decoding a single file.
// BranchIsolation is a pointer so an explicit false can override the default.
type fileConfig struct {
	Agents  map[string]domain.Agent `toml:"agents"`
	Tracker domain.TrackerConfig    `toml:"tracker"`
	Daemon  domain.DaemonConfig     `toml:"daemon"`
	Notify  domain.NotifyConfig     `toml:"notify"`
	Log     domain.LogConfig        `toml:"log"`

	Agent             string `toml:"agent"`
	Model             string `toml:"model"`
	Trunk             string `toml:"trunk"`
	MaxIterations     int    `toml:"max_iterations"`
	CircuitBreaker    int    `toml:"circuit_breaker"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	BranchIsolation   *bool  `toml:"branch_isolation"`
}

// mergeFile merges one config file into cfg. A missing file is not an error.
func mergeFile(cfg *domain.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var file fileConfig
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if file.Agent != "" {
		cfg.Agent = file.Agent
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.Trunk != "" {
		cfg.Trunk = file.Trunk
	}
	if file.MaxIterations > 0 {
		cfg.MaxIterations = file.MaxIterations
	}
	if file.CircuitBreaker > 0 {
		cfg.CircuitBreaker = file.CircuitBreaker
	}
	if file.RetryDelaySeconds > 0 {
		cfg.RetryDelaySeconds = file.RetryDelaySeconds
	}
	if file.BranchIsolation != nil {
		cfg.BranchIsolation = *file.BranchIsolation
	}

	if file.Tracker.Command != "" {
		cfg.Tracker.Command = file.Tracker.Command
	}
	if file.Tracker.DataDir != "" {
		cfg.Tracker.DataDir = file.Tracker.DataDir
	}
	if file.Tracker.Depth > 0 {
		cfg.Tracker.Depth = file.Tracker.Depth
	}
	if file.Daemon.Concurrency > 0 {
		cfg.Daemon.Concurrency = file.Daemon.Concurrency
	}
	if file.Daemon.PollIntervalSeconds > 0 {
		cfg.Daemon.PollIntervalSeconds = file.Daemon.PollIntervalSeconds
	}
	if file.Notify.Command != "" {
		cfg.Notify.Command = file.Notify.Command
	}
	if file.Log.Level != "" {
		cfg.Log.Level = file.Log.Level
	}

	// Merge agents field by field so a user file can tweak a single field of
	// a built-in preset without redefining the rest.
	for name, override := range file.Agents {
		agent := cfg.Agents[name]
		if override.Command != "" {
			agent.Command = override.Command
		}
		if override.CommandTemplate != "" {
			agent.CommandTemplate = override.CommandTemplate
		}
		if override.Args != "" {
			agent.Args = override.Args
		}
		if override.DefaultModel != "" {
			agent.DefaultModel = override.DefaultModel
		}
		if override.Description != "" {
			agent.Description = override.Description
		}
		cfg.Agents[name] = agent
	}
	return nil
}

// applyEnv applies BEANLOOP_* environment overrides on top of file config.
func applyEnv(cfg *domain.Config) error {
	if v := os.Getenv("BEANLOOP_AGENT"); v != "" {
		cfg.Agent = v
	}
	if v := os.Getenv("BEANLOOP_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("BEANLOOP_TRUNK"); v != "" {
		cfg.Trunk = v
	}
	if v := os.Getenv("BEANLOOP_TRACKER_CMD"); v != "" {
		cfg.Tracker.Command = v
	}
	if v := os.Getenv("BEANLOOP_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid BEANLOOP_MAX_ITERATIONS: %q", v)
		}
		cfg.MaxIterations = n
	}
	if v := os.Getenv("BEANLOOP_CIRCUIT_BREAKER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid BEANLOOP_CIRCUIT_BREAKER: %q", v)
		}
		cfg.CircuitBreaker = n
	}
	if v := os.Getenv("BEANLOOP_BRANCH_ISOLATION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BEANLOOP_BRANCH_ISOLATION: %q", v)
		}
		cfg.BranchIsolation = b
	}
	return nil
}
