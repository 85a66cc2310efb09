package result

import (
	"slices"

	"taur/internal/repo"
)

// Entry pairs an input handle with its outcome.
type Entry struct {
	Repo    repo.Handle
	Outcome Outcome
}

// RunResult holds one Entry per input handle, in input order.
type RunResult []Entry

// Successes returns the non-failed entries ordered by CompareSuccess, ties
// kept in input order.
func (r RunResult) Successes() []Entry {
	out := make([]Entry, 0, len(r))
	for _, e := range r {
		if !e.Outcome.IsFailed() {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		return CompareSuccess(a.Outcome, b.Outcome)
	})
	return out
}

// Failures returns the failed entries in input order.
func (r RunResult) Failures() []Entry {
	var out []Entry
	for _, e := range r {
		if e.Outcome.IsFailed() {
			out = append(out, e)
		}
	}
	return out
}

func (r RunResult) HasFailures() bool {
	return slices.ContainsFunc(r, func(e Entry) bool { return e.Outcome.IsFailed() })
}

// Counts returns how many entries ended in each status.
func (r RunResult) Counts() map[Status]int {
	counts := map[Status]int{StatusUpdated: 0, StatusUpToDate: 0, StatusFailed: 0}
	for _, e := range r {
		counts[e.Outcome.Status()]++
	}
	return counts
}
