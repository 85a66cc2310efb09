package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ToolError is a non-zero exit (or start failure) of the git executable.
type ToolError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return fmt.Sprintf("git %s: exit %d: %s", strings.Join(e.Args, " "), e.ExitCode, msg)
}

func (e *ToolError) Unwrap() error { return e.Err }

// GitCLI runs the git executable once per operation.
type GitCLI struct {
	// Binary defaults to "git" from PATH.
	Binary string
}

func NewGitCLI() *GitCLI { return &GitCLI{Binary: "git"} }

func (g *GitCLI) Name() string { return "git" }

func (g *GitCLI) Fetch(ctx context.Context, path string) error {
	_, err := g.run(ctx, path, "fetch", "--quiet", "origin")
	return err
}

func (g *GitCLI) Pending(ctx context.Context, path string) ([]string, error) {
	out, err := g.run(ctx, path, "log", "--reverse", "--format=%s", "HEAD..@{upstream}")
	if err != nil {
		return nil, err
	}
	var commits []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		commits = append(commits, line)
	}
	return commits, nil
}

func (g *GitCLI) FastForward(ctx context.Context, path string) error {
	_, err := g.run(ctx, path, "merge", "--ff-only", "--quiet", "@{upstream}")
	return err
}

func (g *GitCLI) run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.WaitDelay = 5 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return "", &ToolError{Args: args, ExitCode: code, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// Clone clones url into path with the git executable. It is used by the
// clone command, outside the coordinator.
func (g *GitCLI) Clone(ctx context.Context, url, path string) error {
	_, err := g.run(ctx, "", "clone", "--quiet", url, path)
	return err
}
