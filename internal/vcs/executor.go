// Package vcs runs a single fetch or pull against one repository and turns
// whatever the underlying version-control tool reports into a result.Outcome.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"taur/internal/failure"
	"taur/internal/logfields"
	"taur/internal/repo"
	"taur/internal/result"
)

type Mode int

const (
	// CheckOnly contacts the remote and lists pending commits without
	// touching the working tree.
	CheckOnly Mode = iota
	// CheckAndMerge does the same and then fast-forwards the local branch.
	CheckAndMerge
)

func (m Mode) String() string {
	switch m {
	case CheckOnly:
		return "check"
	case CheckAndMerge:
		return "merge"
	default:
		return "unknown"
	}
}

// Executor performs one operation on one repository. Implementations never
// return errors; every failure is captured in the Outcome.
type Executor interface {
	Execute(ctx context.Context, h repo.Handle, mode Mode) result.Outcome
}

// Backend is the narrow boundary to the version-control tool.
type Backend interface {
	// Fetch updates the remote-tracking refs of path from origin.
	Fetch(ctx context.Context, path string) error
	// Pending lists one-line summaries of commits on the upstream branch that
	// are not on the local branch, oldest first.
	Pending(ctx context.Context, path string) ([]string, error)
	// FastForward moves the local branch and working tree to the upstream tip.
	FastForward(ctx context.Context, path string) error
	Name() string
}

// Runner is the Executor used by the engine.
type Runner struct {
	backend Backend
	timeout time.Duration
}

// NewRunner returns a Runner that bounds each Execute call by timeout
// (0 disables the bound).
func NewRunner(b Backend, timeout time.Duration) (*Runner, error) {
	if b == nil {
		return nil, errors.New("backend is nil")
	}
	if timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0, got %s", timeout)
	}
	return &Runner{backend: b, timeout: timeout}, nil
}

func (r *Runner) Execute(ctx context.Context, h repo.Handle, mode Mode) result.Outcome {
	start := time.Now()
	out := r.execute(ctx, h, mode)

	attrs := []any{
		logfields.Repository(h.Name),
		logfields.Mode(mode.String()),
		logfields.Backend(r.backend.Name()),
		logfields.Duration(time.Since(start)),
	}
	if out.IsFailed() {
		slog.Debug("Repository operation failed", append(attrs, logfields.Kind(out.Kind().String()), logfields.Error(out.Err()))...)
	} else {
		slog.Debug("Repository operation finished", append(attrs, logfields.Commits(len(out.Commits())))...)
	}
	return out
}

func (r *Runner) execute(parent context.Context, h repo.Handle, mode Mode) result.Outcome {
	if err := parent.Err(); err != nil {
		return result.Failed(failure.New(failure.Interrupted, "start", h.Name, err))
	}
	if _, err := os.Stat(h.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result.Failed(failure.New(failure.NotFound, "open", h.Name, fmt.Errorf("no local repository at %s", h.Path)))
		}
		return result.Failed(failure.New(failure.InvalidRepository, "open", h.Name, err))
	}

	ctx := parent
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, r.timeout)
		defer cancel()
	}

	if err := r.backend.Fetch(ctx, h.Path); err != nil {
		return result.Failed(classified(ctx, parent, "fetch", h.Name, err))
	}
	pending, err := r.backend.Pending(ctx, h.Path)
	if err != nil {
		return result.Failed(classified(ctx, parent, "pending", h.Name, err))
	}
	if len(pending) == 0 {
		return result.UpToDate()
	}
	if mode == CheckAndMerge {
		if err := r.backend.FastForward(ctx, h.Path); err != nil {
			return result.Failed(classified(ctx, parent, "merge", h.Name, err))
		}
	}
	return result.Updated(pending)
}

func classified(ctx, parent context.Context, op, name string, err error) error {
	var fe *failure.Error
	if errors.As(err, &fe) && fe.Name != "" {
		return err
	}
	return failure.New(Classify(ctx, parent, err), op, name, err)
}
