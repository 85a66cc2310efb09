// Package result holds the per-repository Outcome produced by the executor
// and the ordered RunResult assembled by the coordinator.
package result

import (
	"taur/internal/failure"
)

type Status string

const (
	StatusUpToDate Status = "up-to-date"
	StatusUpdated  Status = "updated"
	StatusFailed   Status = "failed"
)

// Outcome is the immutable result of one operation on one repository. Build
// it with UpToDate, Updated or Failed; the zero value is UpToDate.
type Outcome struct {
	status  Status
	commits []string
	kind    failure.Kind
	err     error
}

func UpToDate() Outcome { return Outcome{status: StatusUpToDate} }

// Updated returns an UpdatedTo outcome for the given one-line commit
// summaries. An empty list yields UpToDate.
func Updated(commits []string) Outcome {
	if len(commits) == 0 {
		return UpToDate()
	}
	cp := make([]string, len(commits))
	copy(cp, commits)
	return Outcome{status: StatusUpdated, commits: cp}
}

// Failed classifies err with failure.KindOf. A nil error is reported as a
// tool failure rather than silently treated as success.
func Failed(err error) Outcome {
	if err == nil {
		err = failure.New(failure.ToolFailure, "", "", nil)
	}
	return Outcome{status: StatusFailed, kind: failure.KindOf(err), err: err}
}

func (o Outcome) Status() Status {
	if o.status == "" {
		return StatusUpToDate
	}
	return o.status
}

func (o Outcome) IsFailed() bool  { return o.status == StatusFailed }
func (o Outcome) IsUpdated() bool { return o.status == StatusUpdated }

// Commits returns a copy of the new commit summaries, oldest first.
func (o Outcome) Commits() []string {
	if len(o.commits) == 0 {
		return nil
	}
	cp := make([]string, len(o.commits))
	copy(cp, o.commits)
	return cp
}

func (o Outcome) Kind() failure.Kind { return o.kind }
func (o Outcome) Err() error         { return o.err }

// Message is the concise failure cause, empty for successful outcomes.
func (o Outcome) Message() string {
	if !o.IsFailed() {
		return ""
	}
	return failure.Cause(o.err)
}

// CompareSuccess orders successful outcomes so that ones with new commits
// come first. Outcomes of the same variant compare equal, which lets a
// stable sort keep input order among them. Failed outcomes are not part of
// this ordering and sort last.
func CompareSuccess(a, b Outcome) int {
	return rank(a) - rank(b)
}

func rank(o Outcome) int {
	switch o.Status() {
	case StatusUpdated:
		return 0
	case StatusUpToDate:
		return 1
	default:
		return 2
	}
}
