// Package engine runs fetch and pull over every tracked package repository
// and reports the outcome.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"taur/internal/config"
	"taur/internal/logfields"
	"taur/internal/output"
	"taur/internal/repo"
	"taur/internal/result"
	"taur/internal/vcs"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Exit codes.
const (
	ExitClean   = 0
	ExitUsage   = 1
	ExitPartial = 2
	ExitFatal   = 3
)

func exitCodeForRun(fatal, partial bool) int {
	// 0 = every repository checked/pulled cleanly
	// 2 = at least one repository failed or a named package was not found
	// 3 = fatal error (no repository was attempted)
	if fatal {
		return ExitFatal
	}
	if partial {
		return ExitPartial
	}
	return ExitClean
}

// NewExecutor builds the git executor selected by cfg.
func NewExecutor(cfg *config.Config) (vcs.Executor, error) {
	backend, err := vcs.NewBackend(cfg.Runtime.Backend)
	if err != nil {
		return nil, err
	}
	return vcs.NewRunner(backend, cfg.Runtime.RepoTimeout)
}

type Engine struct {
	exec   vcs.Executor
	stdout io.Writer
	stderr io.Writer

	// newRunID is a test seam for deterministic run ids.
	newRunID func() string
}

func NewEngine(exec vcs.Executor) *Engine {
	return &Engine{
		exec:     exec,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		newRunID: uuid.NewString,
	}
}

// WithOutput redirects console output and fatal error messages.
func (e *Engine) WithOutput(stdout, stderr io.Writer) *Engine {
	cp := *e
	cp.stdout = stdout
	cp.stderr = stderr
	return &cp
}

// Fetch checks every repository under the build root for upstream changes
// without touching working trees.
func (e *Engine) Fetch(ctx context.Context, cfg *config.Config) int {
	return e.run(ctx, cfg, vcs.CheckOnly, nil)
}

// Pull fetches and fast-forwards the named repositories, or all of them when
// names is empty.
func (e *Engine) Pull(ctx context.Context, cfg *config.Config, names []string) int {
	return e.run(ctx, cfg, vcs.CheckAndMerge, names)
}

func (e *Engine) run(ctx context.Context, cfg *config.Config, mode vcs.Mode, names []string) int {
	handles, unresolved, ok := e.resolveHandles(cfg, names)
	if !ok {
		return exitCodeForRun(true, false)
	}

	coord, err := NewCoordinator(e.exec, cfg.Runtime.Concurrency)
	if err != nil {
		fmt.Fprintf(e.stderr, "error: %v\n", err)
		return exitCodeForRun(true, false)
	}

	view := output.FetchView
	if mode == vcs.CheckAndMerge {
		view = output.PullView
	}

	outMgr, err := e.setupOutputManager(cfg)
	if err != nil {
		fmt.Fprintf(e.stderr, "error: creating output sinks: %v\n", err)
		return exitCodeForRun(true, false)
	}
	defer func() {
		if err := outMgr.Close(); err != nil {
			slog.Warn("Closing output sinks failed", logfields.Error(err))
		}
	}()

	runID := e.newRunID()
	log := slog.With(logfields.RunID(runID), logfields.Mode(mode.String()))
	log.Debug("Run started", slog.Int("repositories", len(handles)), slog.Int("unresolved", len(unresolved)))

	write := func(v any) {
		if err := outMgr.Write(v); err != nil {
			log.Warn("Writing output failed", logfields.Error(err))
		}
	}

	write(output.Event{Type: output.EventRunStarted, RunID: runID, Mode: view.String(), Repos: len(handles)})
	for _, u := range unresolved {
		rec := output.RecordFromUnresolved(u)
		write(output.Event{Type: output.EventRepoUnresolved, RunID: runID, Record: &rec})
	}

	obs := &eventObserver{runID: runID, write: write}
	entries := coord.WithObserver(obs).Run(ctx, handles, mode)

	report := result.Report{Entries: entries, Unresolved: unresolved}
	code := exitCodeForRun(false, report.Failed())
	summary := output.Summary{RunID: runID, View: view, Report: report, ExitCode: code}

	write(summary)
	write(output.FinishedEvent(summary))

	counts := entries.Counts()
	log.Debug("Run finished",
		slog.Int("updated", counts[result.StatusUpdated]),
		slog.Int("up_to_date", counts[result.StatusUpToDate]),
		slog.Int("failed", counts[result.StatusFailed]),
		slog.Int("exit_code", code))
	return code
}

// resolveHandles builds the handle list. Discovered handles are filtered by
// the configured patterns; explicitly named ones are not.
func (e *Engine) resolveHandles(cfg *config.Config, names []string) ([]repo.Handle, []repo.ResolveError, bool) {
	root := cfg.Paths.BuildRoot
	if len(names) == 0 {
		handles, err := repo.Discover(root)
		if err != nil {
			fmt.Fprintf(e.stderr, "error: discovering repositories: %v\n", err)
			return nil, nil, false
		}
		filtered := FilterHandles(handles, cfg.Targeting.Include, cfg.Targeting.Exclude)
		slog.Debug("Discovered repositories",
			logfields.Path(root),
			slog.Int("found", len(handles)),
			slog.Int("selected", len(filtered)))
		return filtered, nil, true
	}

	handles, unresolved, err := repo.Resolve(root, names)
	if err != nil {
		fmt.Fprintf(e.stderr, "error: resolving repositories: %v\n", err)
		return nil, nil, false
	}
	for _, u := range unresolved {
		slog.Debug("Package not resolved", logfields.Repository(u.Name), logfields.Error(u.Err))
	}
	return handles, unresolved, true
}

func (e *Engine) setupOutputManager(cfg *config.Config) (*output.Manager, error) {
	outMgr := output.NewManager()

	colorize := !cfg.Output.NoColor && !color.NoColor && e.stdout == io.Writer(os.Stdout)
	console, err := output.NewConsoleSink(e.stdout, cfg.Output.Format, output.NewRenderer(colorize))
	if err != nil {
		return nil, err
	}
	if err := outMgr.AddSink(console); err != nil {
		return nil, err
	}

	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// eventObserver streams per-repository lifecycle events to the sinks.
type eventObserver struct {
	runID string
	write func(v any)
}

func (o *eventObserver) RepoStarted(_ int, h repo.Handle) {
	o.write(output.Event{Type: output.EventRepoStarted, RunID: o.runID, Record: &output.Record{Repo: h.Name, Path: h.Path}})
}

func (o *eventObserver) RepoFinished(_ int, entry result.Entry) {
	rec := output.RecordFromEntry(entry)
	o.write(output.Event{Type: output.EventRepoFinished, RunID: o.runID, Record: &rec})
}
