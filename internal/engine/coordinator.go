package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taur/internal/failure"
	"taur/internal/logfields"
	"taur/internal/repo"
	"taur/internal/result"
	"taur/internal/vcs"

	"golang.org/x/sync/errgroup"
)

// Observer receives per-repository progress while a run is in flight.
// Callbacks may arrive concurrently from several goroutines.
type Observer interface {
	RepoStarted(index int, h repo.Handle)
	RepoFinished(index int, entry result.Entry)
}

// Coordinator fans an Executor out over a set of handles with a fixed upper
// bound on concurrent calls.
type Coordinator struct {
	exec        vcs.Executor
	maxParallel int
	observer    Observer
}

func NewCoordinator(exec vcs.Executor, maxParallel int) (*Coordinator, error) {
	if exec == nil {
		return nil, errors.New("executor is nil")
	}
	if maxParallel <= 0 {
		return nil, fmt.Errorf("maxParallel must be >= 1, got %d", maxParallel)
	}
	return &Coordinator{exec: exec, maxParallel: maxParallel}, nil
}

// WithObserver returns a copy of c that reports progress to o.
func (c *Coordinator) WithObserver(o Observer) *Coordinator {
	cp := *c
	cp.observer = o
	return &cp
}

// Run executes mode against every handle and returns one entry per handle in
// input order.
//
// Semantics:
//   - At most maxParallel Executor calls are in flight at any moment.
//   - A failing repository never affects another; its failure is its outcome.
//   - Once ctx is canceled, handles not yet dispatched are recorded as
//     Interrupted without calling the Executor.
//   - Run itself never fails.
func (c *Coordinator) Run(ctx context.Context, handles []repo.Handle, mode vcs.Mode) result.RunResult {
	out := make(result.RunResult, len(handles))
	done := make([]bool, len(handles))

	var g errgroup.Group
	g.SetLimit(c.maxParallel)

	for i, h := range handles {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out[i] = c.runOne(ctx, i, h, mode)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i, h := range handles {
		if done[i] {
			continue
		}
		out[i] = result.Entry{Repo: h, Outcome: result.Failed(failure.New(failure.Interrupted, "dispatch", h.Name, ctx.Err()))}
		c.finished(i, out[i])
	}
	return out
}

func (c *Coordinator) runOne(ctx context.Context, i int, h repo.Handle, mode vcs.Mode) (entry result.Entry) {
	entry.Repo = h
	if err := ctx.Err(); err != nil {
		// Dispatched but waited on the limit past cancellation.
		entry.Outcome = result.Failed(failure.New(failure.Interrupted, "dispatch", h.Name, err))
		c.finished(i, entry)
		return entry
	}

	if c.observer != nil {
		c.observer.RepoStarted(i, h)
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Executor panicked", logfields.Repository(h.Name), slog.Any("panic", r))
			entry.Outcome = result.Failed(failure.New(failure.ToolFailure, mode.String(), h.Name, fmt.Errorf("panic: %v", r)))
		}
		slog.Debug("Repository finished",
			logfields.Repository(h.Name),
			slog.String("status", string(entry.Outcome.Status())),
			logfields.Duration(time.Since(start)))
		c.finished(i, entry)
	}()

	entry.Outcome = c.exec.Execute(ctx, h, mode)
	return entry
}

func (c *Coordinator) finished(i int, e result.Entry) {
	if c.observer != nil {
		c.observer.RepoFinished(i, e)
	}
}
