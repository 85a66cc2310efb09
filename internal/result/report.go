package result

import "taur/internal/repo"

// Report is everything a run produced: the ordered RunResult and the
// explicitly named packages that never became handles.
type Report struct {
	Entries    RunResult
	Unresolved []repo.ResolveError
}

// Failed reports whether any repository failed or any name was unresolved.
func (r Report) Failed() bool {
	return len(r.Unresolved) > 0 || r.Entries.HasFailures()
}
