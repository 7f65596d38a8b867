package domain

// Outcome is the terminal result of one task attempt.
type Outcome string

const (
	// OutcomeCompleted means the task reached completed and was reconciled.
	OutcomeCompleted Outcome = "completed"

	// OutcomeStuck means the agent set a control tag; the loop stops the
	// attempt gracefully and leaves the task for a human.
	OutcomeStuck Outcome = "stuck"

	// OutcomeCircuitBroken means consecutive agent failures reached the
	// breaker threshold; the workspace is left checked out for inspection.
	OutcomeCircuitBroken Outcome = "circuit-broken"

	// OutcomeExhausted means the iteration budget ran out with no terminal
	// status. The attempt is resumable, not failed.
	OutcomeExhausted Outcome = "exhausted"

	// OutcomeFetchFailed means the tracker could not produce the task
	// mid-attempt; the workspace is left for inspection.
	OutcomeFetchFailed Outcome = "fetch-failed"
)

// validOutcomes is the set of recognized outcomes.
var validOutcomes = map[Outcome]struct{}{
	OutcomeCompleted:     {},
	OutcomeStuck:         {},
	OutcomeCircuitBroken: {},
	OutcomeExhausted:     {},
	OutcomeFetchFailed:   {},
}

// IsValid returns true if the outcome is a known value.
func (o Outcome) IsValid() bool {
	_, ok := validOutcomes[o]
	return ok
}

// Failed returns true for outcomes that should make a run exit non-zero.
// Stuck and exhausted are deliberate pauses, not failures.
func (o Outcome) Failed() bool {
	return o == OutcomeCircuitBroken || o == OutcomeFetchFailed
}
