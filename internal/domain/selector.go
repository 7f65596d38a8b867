package domain

// SelectNext walks a task snapshot depth-first and returns the id of the
// next task to work on, or "" when nothing under the root is actionable.
//
// A node is skipped outright when it is finished (completed/scrapped), still
// a draft, carries a control tag, or waits on an unfinished blocker. When a
// node has unfinished children the walk descends into the best-ranked one
// and returns whatever that subtree yields; it does not retry the remaining
// siblings when the chosen subtree comes up empty. Only a node whose
// children are all finished (or absent) is selected itself.
func SelectNext(root *Task) string {
	if root == nil {
		return ""
	}
	if root.Status.IsTerminal() || root.Status == StatusDraft {
		return ""
	}
	if root.HasControlTag() {
		return ""
	}
	if root.Blocked() {
		return ""
	}

	incomplete := make([]*Task, 0, len(root.Children))
	for _, c := range root.Children {
		if c.Status.IsTerminal() || c.Status == StatusDraft {
			continue
		}
		incomplete = append(incomplete, c)
	}
	if len(incomplete) == 0 {
		return root.ID
	}

	SortWorkOrder(incomplete)
	return SelectNext(incomplete[0])
}

// SelectFlat picks the next task from a flat pool, ignoring tree position.
// Used when no traversal root is configured: every eligible task competes,
// ordered by in-progress first, then priority, then id.
func SelectFlat(tasks []*Task) string {
	eligible := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Eligible() {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) == 0 {
		return ""
	}
	SortWorkOrder(eligible)
	return eligible[0].ID
}
