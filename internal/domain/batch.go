package domain

import "fmt"

// BatchOutcome summarizes a batch mutation for reporting.
type BatchOutcome string

const (
	OutcomeNone         BatchOutcome = "none"
	OutcomeAllSucceeded BatchOutcome = "all_succeeded"
	OutcomePartial      BatchOutcome = "partial"
	OutcomeAllFailed    BatchOutcome = "all_failed"
)

// BatchFailure records one failed item.
type BatchFailure struct {
	ID  int64
	Err error
}

// BatchReport aggregates per-item results of a batch mutation.
type BatchReport struct {
	Action    string
	Succeeded []int64
	Failed    []BatchFailure
	// Skipped items were never attempted because the batch was aborted.
	Skipped []int64
	// Ineligible items were in the snapshot but their status does not allow the action.
	// They are not part of the outcome.
	Ineligible []int64
}

// Attempted is the number of items that were issued.
func (r BatchReport) Attempted() int {
	return len(r.Succeeded) + len(r.Failed)
}

// Outcome classifies the report. Skipped items count as failures: the user asked for
// them and they did not happen.
func (r BatchReport) Outcome() BatchOutcome {
	ok := len(r.Succeeded)
	bad := len(r.Failed) + len(r.Skipped)
	switch {
	case ok == 0 && bad == 0:
		return OutcomeNone
	case bad == 0:
		return OutcomeAllSucceeded
	case ok == 0:
		return OutcomeAllFailed
	default:
		return OutcomePartial
	}
}

// Summary is the one-line user message for the report.
func (r BatchReport) Summary() string {
	total := r.Attempted() + len(r.Skipped)
	switch r.Outcome() {
	case OutcomeNone:
		return "No eligible documents"
	case OutcomeAllFailed:
		return fmt.Sprintf("Failed to %s all %d document(s)", r.Action, total)
	case OutcomePartial:
		return fmt.Sprintf("Failed to %s %d of %d document(s)", r.Action, total-len(r.Succeeded), total)
	default:
		return fmt.Sprintf("%s: %d document(s) done", r.Action, len(r.Succeeded))
	}
}
