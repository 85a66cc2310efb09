package output

import (
	"errors"

	"taur/internal/failure"
	"taur/internal/repo"
	"taur/internal/result"
)

func entry(name string, o result.Outcome) result.Entry {
	return result.Entry{Repo: repo.Handle{Name: name, Path: "/build/" + name, Remote: "https://aur.archlinux.org/" + name + ".git"}, Outcome: o}
}

func failed(kind failure.Kind, name, msg string) result.Outcome {
	return result.Failed(failure.New(kind, "fetch", name, errors.New(msg)))
}

// abcReport is the canonical mixed run: A has two new commits, B is current,
// C cannot reach its remote.
func abcReport() result.Report {
	return result.Report{Entries: result.RunResult{
		entry("A", result.Updated([]string{"c1", "c2"})),
		entry("B", result.UpToDate()),
		entry("C", failed(failure.RemoteUnreachable, "C", "could not resolve host")),
	}}
}
