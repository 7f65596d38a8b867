// Package git provides the branch workspace operations via the git CLI.
package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/runoshun/beanloop/internal/domain"
)

// Client implements domain.VersionControl on top of the git CLI.
type Client struct {
	repoRoot string // Repository root (parent of .git)
	gitDir   string // Common .git directory
}

// NewClient creates a new git client by detecting the repository root from
// the given directory.
func NewClient(dir string) (*Client, error) {
	repoRoot, gitDir, err := findGitRoot(dir)
	if err != nil {
		return nil, err
	}
	return &Client{
		repoRoot: repoRoot,
		gitDir:   gitDir,
	}, nil
}

// Ensure Client implements domain.VersionControl interface.
var _ domain.VersionControl = (*Client)(nil)

// RepoRoot returns the repository root directory.
func (c *Client) RepoRoot() string {
	return c.repoRoot
}

// GitDir returns the .git directory path.
func (c *Client) GitDir() string {
	return c.gitDir
}

// git runs a git command in the repository root and returns combined output.
func (c *Client) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.repoRoot
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// CurrentBranch returns the name of the checked-out branch.
func (c *Client) CurrentBranch() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = c.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// BranchExists checks if a branch exists.
func (c *Client) BranchExists(branch string) (bool, error) {
	//nolint:gosec // branch name is used as argument, not shell command
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = c.repoRoot
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	// Exit code 1 means ref not found
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("failed to check branch existence: %w", err)
}

// CreateBranch creates a branch from the given base without switching to it.
func (c *Client) CreateBranch(name, base string) error {
	if out, err := c.git("branch", name, base); err != nil {
		return fmt.Errorf("failed to create branch %s from %s: %w: %s", name, base, err, out)
	}
	return nil
}

// Checkout switches the working tree to the branch.
func (c *Client) Checkout(name string) error {
	if out, err := c.git("checkout", name); err != nil {
		return fmt.Errorf("failed to checkout %s: %w: %s", name, err, out)
	}
	return nil
}

// HasDiff reports whether the branch introduces content changes over base.
// Three-dot diff, so only the branch's own changes count even after the base
// has moved on.
func (c *Client) HasDiff(name, base string) (bool, error) {
	cmd := exec.Command("git", "diff", "--quiet", base+"..."+name)
	cmd.Dir = c.repoRoot
	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("failed to diff %s against %s: %w", name, base, err)
}

// SquashMerge folds all of branch into a single staged change on the current
// branch and commits it with the message. Returns ErrMergeConflict when the
// squash cannot apply cleanly; the conflicted tree is left for AbortMerge.
func (c *Client) SquashMerge(branch, message string) error {
	if out, err := c.git("merge", "--squash", branch); err != nil {
		if c.hasUnmergedEntries() {
			return fmt.Errorf("squash merge %s: %w", branch, domain.ErrMergeConflict)
		}
		return fmt.Errorf("failed to squash merge %s: %w: %s", branch, err, out)
	}
	if out, err := c.git("commit", "-m", message); err != nil {
		return fmt.Errorf("failed to commit squash of %s: %w: %s", branch, err, out)
	}
	return nil
}

// MergeCommit merges branch into the current branch with an explicit merge
// commit. Returns ErrMergeConflict when the merge stops on conflicts.
func (c *Client) MergeCommit(branch, message string) error {
	if out, err := c.git("merge", "--no-ff", "-m", message, branch); err != nil {
		if c.hasUnmergedEntries() {
			return fmt.Errorf("merge %s: %w", branch, domain.ErrMergeConflict)
		}
		return fmt.Errorf("failed to merge branch %s: %w: %s", branch, err, out)
	}
	return nil
}

// DeleteBranch deletes a branch. Squash-merged branches are never ancestors
// of the target, so deletion is always forced.
func (c *Client) DeleteBranch(branch string) error {
	if out, err := c.git("branch", "-D", branch); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w: %s", branch, err, out)
	}
	return nil
}

// CommitStaged commits the staged changes.
func (c *Client) CommitStaged(message string) error {
	if out, err := c.git("commit", "-m", message); err != nil {
		return fmt.Errorf("failed to commit: %w: %s", err, out)
	}
	return nil
}

// AmendLast folds the staged changes into the previous commit, keeping its
// message.
func (c *Client) AmendLast() error {
	if out, err := c.git("commit", "--amend", "--no-edit"); err != nil {
		return fmt.Errorf("failed to amend commit: %w: %s", err, out)
	}
	return nil
}

// LastMessage returns the subject line of the latest commit.
func (c *Client) LastMessage() (string, error) {
	cmd := exec.Command("git", "log", "-1", "--pretty=%s")
	cmd.Dir = c.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to read last commit message: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// HasUncommittedChanges checks for any uncommitted changes.
func (c *Client) HasUncommittedChanges() (bool, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = c.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("failed to check uncommitted changes: %w", err)
	}
	return len(out) > 0, nil
}

// IsMergeInProgress reports whether a merge was left unfinished, either a
// regular merge (MERGE_HEAD present) or a conflicted squash (unmerged index
// entries without MERGE_HEAD).
func (c *Client) IsMergeInProgress() (bool, error) {
	if _, err := os.Stat(filepath.Join(c.gitDir, "MERGE_HEAD")); err == nil {
		return true, nil
	}
	return c.hasUnmergedEntries(), nil
}

// AbortMerge aborts an in-progress merge. A conflicted squash has no
// MERGE_HEAD, so it is rolled back with a merge-preserving reset instead.
func (c *Client) AbortMerge() error {
	if _, err := os.Stat(filepath.Join(c.gitDir, "MERGE_HEAD")); err == nil {
		if out, err := c.git("merge", "--abort"); err != nil {
			return fmt.Errorf("failed to abort merge: %w: %s", err, out)
		}
		return nil
	}
	if out, err := c.git("reset", "--merge"); err != nil {
		return fmt.Errorf("failed to reset conflicted tree: %w: %s", err, out)
	}
	return nil
}

// Status lists changed paths in the working tree.
func (c *Client) Status() ([]domain.FileChange, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = c.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	return parseStatus(string(out)), nil
}

// parseStatus parses `git status --porcelain` output.
func parseStatus(out string) []domain.FileChange {
	var changes []domain.FileChange
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		staged, unstaged := line[0], line[1]
		path := line[3:]
		// Renames list "old -> new"; the new path is the one that exists.
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		changes = append(changes, domain.FileChange{
			Path:      path,
			Untracked: staged == '?' && unstaged == '?',
			Added:     staged == 'A',
		})
	}
	return changes
}

// DiffText returns the unified diff against HEAD for the given paths.
func (c *Client) DiffText(paths []string) (string, error) {
	args := append([]string{"diff", "HEAD", "--"}, paths...)
	cmd := exec.Command("git", args...)
	cmd.Dir = c.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to diff paths: %w", err)
	}
	return string(out), nil
}

// Add stages the given paths.
func (c *Client) Add(paths []string) error {
	args := append([]string{"add", "--"}, paths...)
	if out, err := c.git(args...); err != nil {
		return fmt.Errorf("failed to stage paths: %w: %s", err, out)
	}
	return nil
}

// AddAll stages everything, including untracked files.
func (c *Client) AddAll() error {
	if out, err := c.git("add", "-A"); err != nil {
		return fmt.Errorf("failed to stage changes: %w: %s", err, out)
	}
	return nil
}

// Restore discards unstaged changes under the given paths.
func (c *Client) Restore(paths []string) error {
	args := append([]string{"checkout", "--"}, paths...)
	if out, err := c.git(args...); err != nil {
		return fmt.Errorf("failed to restore paths: %w: %s", err, out)
	}
	return nil
}

// hasUnmergedEntries reports whether the index holds conflicted entries.
func (c *Client) hasUnmergedEntries() bool {
	cmd := exec.Command("git", "ls-files", "-u")
	cmd.Dir = c.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(out))) > 0
}

// findGitRoot finds the repository root and common .git directory.
func findGitRoot(dir string) (repoRoot, gitDir string, err error) {
	cmd := exec.Command("git", "rev-parse", "--git-common-dir")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", "", domain.ErrNotGitRepository
	}
	gitDir = strings.TrimSpace(string(out))

	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}
	gitDir = filepath.Clean(gitDir)
	repoRoot = filepath.Dir(gitDir)

	return repoRoot, gitDir, nil
}
