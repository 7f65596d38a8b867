// Package tracker shells out to the bean CLI and maps its JSON output onto
// domain tasks. Every record crossing the boundary is validated against an
// embedded schema before it reaches the engine.
package tracker

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/runoshun/beanloop/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaText string

var taskSchema = compileSchema()

func compileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaText)); err != nil {
		panic(fmt.Sprintf("load embedded task schema: %v", err))
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		panic(fmt.Sprintf("compile embedded task schema: %v", err))
	}
	return schema
}

// Client talks to the bean tracker CLI. It implements domain.TaskStore.
type Client struct {
	command  string
	repoRoot string
	dataDir  string
	depth    int

	// Runner executes the tracker command and returns its stdout. Tests
	// replace it with a stub.
	Runner func(ctx context.Context, args ...string) ([]byte, error)
}

var _ domain.TaskStore = (*Client)(nil)

// NewClient creates a tracker client rooted at the repository.
func NewClient(repoRoot string, cfg domain.TrackerConfig) *Client {
	c := &Client{
		command:  cfg.Command,
		repoRoot: repoRoot,
		dataDir:  cfg.DataDir,
		depth:    cfg.Depth,
	}
	if c.command == "" {
		c.command = domain.DefaultTrackerCommand
	}
	if c.dataDir == "" {
		c.dataDir = domain.DefaultTrackerDataDir
	}
	if c.depth <= 0 {
		c.depth = domain.DefaultFetchDepth
	}
	c.Runner = c.run
	return c
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.command, args...) // #nosec G204 - tracker command comes from config
	cmd.Dir = c.repoRoot
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s %s: %w: %s", c.command, strings.Join(args, " "), err, bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%s %s: %w", c.command, strings.Join(args, " "), err)
	}
	return out, nil
}

// Show retrieves a task and its descendants as a bounded-depth tree.
// Returns nil if the task does not exist.
func (c *Client) Show(ctx context.Context, id string) (*domain.Task, error) {
	out, err := c.Runner(ctx, "show", id, "--json", "--depth", strconv.Itoa(c.depth))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to show task %s: %w", id, err)
	}
	task, err := decodeTask(out)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	return task, nil
}

// ListTopLevel retrieves parentless tasks matching any of the statuses.
func (c *Client) ListTopLevel(ctx context.Context, statuses []domain.Status) ([]*domain.Task, error) {
	args := []string{"list", "--top-level", "--json"}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		args = append(args, "--status", strings.Join(names, ","))
	}
	out, err := c.Runner(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	tasks := make([]*domain.Task, 0, len(raw))
	for i, r := range raw {
		task, err := decodeTask(r)
		if err != nil {
			return nil, fmt.Errorf("list entry %d: %w", i, err)
		}
		if task == nil {
			return nil, fmt.Errorf("list entry %d: %w: null record", i, domain.ErrInvalidRecord)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// SetStatus updates a task's status.
func (c *Client) SetStatus(ctx context.Context, id string, status domain.Status) error {
	if _, err := c.Runner(ctx, "update", id, "--status", string(status)); err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	return nil
}

// AddTag adds a tag to a task.
func (c *Client) AddTag(ctx context.Context, id string, tag string) error {
	if _, err := c.Runner(ctx, "update", id, "--add-tag", tag); err != nil {
		return fmt.Errorf("failed to tag task %s: %w", id, err)
	}
	return nil
}

// Create creates a new task and returns its id.
func (c *Client) Create(ctx context.Context, spec domain.TaskSpec) (string, error) {
	args := []string{"create", spec.Title, "--type", string(spec.Type), "--json"}
	if spec.Priority != "" {
		args = append(args, "--priority", string(spec.Priority))
	}
	if spec.ParentID != "" {
		args = append(args, "--parent", spec.ParentID)
	}
	if spec.Body != "" {
		args = append(args, "--body", spec.Body)
	}
	out, err := c.Runner(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(out, &created); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: create returned no id", domain.ErrInvalidRecord)
	}
	return created.ID, nil
}

// DataDir returns the tracker's data directory relative to the repo root.
func (c *Client) DataDir() string {
	return c.dataDir
}

// IsAvailable checks that the tracker data directory exists.
func (c *Client) IsAvailable() bool {
	info, err := os.Stat(filepath.Join(c.repoRoot, c.dataDir))
	return err == nil && info.IsDir()
}

// decodeTask validates a raw record against the task schema and unmarshals
// it. A JSON null decodes to nil without error.
func decodeTask(raw []byte) (*domain.Task, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	if doc == nil {
		return nil, nil
	}
	if err := taskSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	return &task, nil
}
