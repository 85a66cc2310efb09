package output

import (
	"taur/internal/failure"
	"taur/internal/repo"
	"taur/internal/result"
)

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line):
// - run.started
// - repo.unresolved
// - repo.started
// - repo.finished
// - run.finished
//
// JSON mode aggregates the Summary into a single Document instead.
type Event struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`
	Mode  string `json:"mode,omitempty"`
	*Record
	Repos    int            `json:"repos,omitempty"`
	Counts   map[string]int `json:"counts,omitempty"`
	ExitCode *int           `json:"exit_code,omitempty"`
}

const (
	EventRunStarted     = "run.started"
	EventRepoUnresolved = "repo.unresolved"
	EventRepoStarted    = "repo.started"
	EventRepoFinished   = "repo.finished"
	EventRunFinished    = "run.finished"
)

// Record is the structured form of one repository's outcome.
type Record struct {
	Repo    string   `json:"repo"`
	Path    string   `json:"path,omitempty"`
	Remote  string   `json:"remote,omitempty"`
	Status  string   `json:"status,omitempty"`
	Commits []string `json:"commits,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func RecordFromEntry(e result.Entry) Record {
	rec := Record{
		Repo:    e.Repo.Name,
		Path:    e.Repo.Path,
		Remote:  e.Repo.Remote,
		Status:  string(e.Outcome.Status()),
		Commits: e.Outcome.Commits(),
	}
	if e.Outcome.IsFailed() {
		rec.Kind = e.Outcome.Kind().String()
		rec.Error = e.Outcome.Message()
	}
	return rec
}

func RecordFromUnresolved(u repo.ResolveError) Record {
	return Record{
		Repo:   u.Name,
		Status: string(result.StatusFailed),
		Kind:   failure.KindOf(u.Err).String(),
		Error:  causeOf(u),
	}
}

func causeOf(u repo.ResolveError) string {
	return failure.Cause(u.Err)
}

// Summary is written once per run, after every repository has finished.
type Summary struct {
	RunID    string
	View     View
	Report   result.Report
	ExitCode int
}

// Document is the aggregate JSON form of a Summary.
type Document struct {
	RunID        string         `json:"run_id"`
	Mode         string         `json:"mode"`
	ExitCode     int            `json:"exit_code"`
	Counts       map[string]int `json:"counts"`
	Repositories []Record       `json:"repositories"`
	Unresolved   []Record       `json:"unresolved,omitempty"`
}

func DocumentFromSummary(s Summary) Document {
	doc := Document{
		RunID:        s.RunID,
		Mode:         s.View.String(),
		ExitCode:     s.ExitCode,
		Counts:       countsOf(s.Report.Entries),
		Repositories: make([]Record, 0, len(s.Report.Entries)),
	}
	for _, e := range s.Report.Entries {
		doc.Repositories = append(doc.Repositories, RecordFromEntry(e))
	}
	for _, u := range s.Report.Unresolved {
		doc.Unresolved = append(doc.Unresolved, RecordFromUnresolved(u))
	}
	return doc
}

// FinishedEvent builds the run.finished event for s.
func FinishedEvent(s Summary) Event {
	code := s.ExitCode
	return Event{
		Type:     EventRunFinished,
		RunID:    s.RunID,
		Mode:     s.View.String(),
		Repos:    len(s.Report.Entries),
		Counts:   countsOf(s.Report.Entries),
		ExitCode: &code,
	}
}

func countsOf(r result.RunResult) map[string]int {
	out := make(map[string]int)
	for st, n := range r.Counts() {
		out[string(st)] = n
	}
	return out
}
