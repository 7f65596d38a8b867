package usecase

import (
	"fmt"
	"strings"

	"github.com/runoshun/beanloop/internal/domain"
)

// commitIterationChanges persists what an agent iteration left in the
// working tree. Real work is committed wholesale under a wip message.
// Tracker-only churn is folded into the task's previous wip commit when one
// is on top, and discarded entirely when it touches nothing but record
// timestamps.
func commitIterationChanges(vc domain.VersionControl, dataDir, taskID string, iteration int, logger domain.Logger) error {
	changes, err := vc.Status()
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	tracker, other := domain.PartitionChanges(changes, dataDir)
	if len(tracker) == 0 && len(other) == 0 {
		return nil
	}

	if len(other) > 0 {
		if err := vc.AddAll(); err != nil {
			return fmt.Errorf("stage changes: %w", err)
		}
		if err := vc.CommitStaged(domain.WipMessage(taskID, iteration)); err != nil {
			return fmt.Errorf("commit iteration changes: %w", err)
		}
		return nil
	}

	paths := changePaths(tracker)
	if allModifications(tracker) {
		diff, err := vc.DiffText(paths)
		if err != nil {
			return fmt.Errorf("diff tracker records: %w", err)
		}
		if domain.IsTimestampNoise(diff) {
			logger.Debug(taskID, "classify", "discarding timestamp-only tracker churn")
			if err := vc.Restore(paths); err != nil {
				return fmt.Errorf("discard tracker churn: %w", err)
			}
			return nil
		}
	}

	if err := vc.Add(paths); err != nil {
		return fmt.Errorf("stage tracker records: %w", err)
	}
	last, err := vc.LastMessage()
	if err != nil {
		logger.Debug(taskID, "classify", fmt.Sprintf("last commit unavailable: %v", err))
		last = ""
	}
	if strings.HasPrefix(last, domain.WipPrefix(taskID)) {
		if err := vc.AmendLast(); err != nil {
			return fmt.Errorf("fold tracker records: %w", err)
		}
		return nil
	}
	if err := vc.CommitStaged(domain.WipMessage(taskID, iteration)); err != nil {
		return fmt.Errorf("commit tracker records: %w", err)
	}
	return nil
}

// guardedCheckout makes the tracker directory safe to carry across a branch
// switch: new records are committed where they are, modified records roll
// back to the branch's version, and any other dirty path refuses the switch.
func guardedCheckout(vc domain.VersionControl, dataDir, branch string) error {
	changes, err := vc.Status()
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	tracker, other := domain.PartitionChanges(changes, dataDir)
	if len(other) > 0 {
		return fmt.Errorf("cannot switch to %s with uncommitted work: %w", branch, domain.ErrUncommittedChanges)
	}

	var created, modified []string
	for _, c := range tracker {
		if c.Untracked || c.Added {
			created = append(created, c.Path)
		} else {
			modified = append(modified, c.Path)
		}
	}
	if len(created) > 0 {
		if err := vc.Add(created); err != nil {
			return fmt.Errorf("stage new tracker records: %w", err)
		}
		if err := vc.CommitStaged(domain.RecordsMessage()); err != nil {
			return fmt.Errorf("commit new tracker records: %w", err)
		}
	}
	if len(modified) > 0 {
		if err := vc.Restore(modified); err != nil {
			return fmt.Errorf("roll back tracker records: %w", err)
		}
	}

	if err := vc.Checkout(branch); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	return nil
}

func changePaths(changes []domain.FileChange) []string {
	paths := make([]string, len(changes))
	for i, c := range changes {
		paths[i] = c.Path
	}
	return paths
}

func allModifications(changes []domain.FileChange) bool {
	for _, c := range changes {
		if c.Untracked || c.Added {
			return false
		}
	}
	return true
}
