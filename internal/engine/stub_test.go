package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taur/internal/failure"
	"taur/internal/repo"
	"taur/internal/result"
	"taur/internal/vcs"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
)

// stubExecutor is an instrumented vcs.Executor. Outcomes and delays are keyed
// by repository name.
type stubExecutor struct {
	outcomes map[string]result.Outcome
	delays   map[string]time.Duration
	panicOn  string

	// started, when set, receives each repository name as its call begins.
	started chan string

	calls       atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu      sync.Mutex
	modes   map[string]vcs.Mode
	mutated map[string]bool
}

func (s *stubExecutor) Execute(ctx context.Context, h repo.Handle, mode vcs.Mode) result.Outcome {
	s.calls.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	s.mu.Lock()
	if s.modes == nil {
		s.modes = make(map[string]vcs.Mode)
		s.mutated = make(map[string]bool)
	}
	s.modes[h.Name] = mode
	s.mu.Unlock()

	if s.started != nil {
		s.started <- h.Name
	}
	if h.Name == s.panicOn {
		panic("stub exploded")
	}

	if d, ok := s.delays[h.Name]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return result.Failed(failure.New(failure.Interrupted, mode.String(), h.Name, ctx.Err()))
		}
	}

	out, ok := s.outcomes[h.Name]
	if !ok {
		out = result.UpToDate()
	}
	if mode == vcs.CheckAndMerge && out.IsUpdated() {
		s.mu.Lock()
		s.mutated[h.Name] = true
		s.mu.Unlock()
	}
	return out
}

func (s *stubExecutor) modeOf(name string) (vcs.Mode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modes[name]
	return m, ok
}

func (s *stubExecutor) wasMutated(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutated[name]
}

func unreachable(name string) result.Outcome {
	return result.Failed(failure.New(failure.RemoteUnreachable, "fetch", name, errors.New("could not resolve host")))
}

func makeHandles(names ...string) []repo.Handle {
	out := make([]repo.Handle, 0, len(names))
	for _, n := range names {
		out = append(out, repo.Handle{Name: n, Path: "/build/" + n})
	}
	return out
}

func entryNames(r result.RunResult) []string {
	out := make([]string, 0, len(r))
	for _, e := range r {
		out = append(out, e.Repo.Name)
	}
	return out
}

// newBuildRoot creates a build root holding one repository with an origin
// remote per name.
func newBuildRoot(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		r, err := git.PlainInit(filepath.Join(root, name), false)
		if err != nil {
			t.Fatalf("init %s: %v", name, err)
		}
		if _, err := r.CreateRemote(&ggitcfg.RemoteConfig{Name: repo.RemoteName, URLs: []string{"https://aur.archlinux.org/" + name + ".git"}}); err != nil {
			t.Fatalf("remote %s: %v", name, err)
		}
	}
	return root
}

func entryNamesOf(hs []repo.Handle) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.Name)
	}
	return out
}
