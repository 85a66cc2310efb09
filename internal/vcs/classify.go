package vcs

import (
	"context"
	"errors"
	"net"
	"strings"

	"taur/internal/failure"
)

var (
	unreachablePatterns = []string{
		"could not resolve host",
		"could not resolve hostname",
		"connection refused",
		"connection reset",
		"connection timed out",
		"network is unreachable",
		"no route to host",
		"unable to access",
		"could not read from remote repository",
		"remote end hung up",
		"remote hung up",
		"failed to connect",
		"no such host",
		"temporary failure in name resolution",
	}
	timeoutPatterns = []string{
		"operation timed out",
		"i/o timeout",
	}
	invalidRepoPatterns = []string{
		"not a git repository",
		"no upstream configured",
		"no such remote",
		"does not appear to be a git repository",
		"does not have any commits yet",
		"repository does not exist",
	}
)

// Classify maps an error from a backend to a failure kind. ctx is the
// per-repository context, parent the run context; the distinction is what
// separates a per-repository Timeout from a run-wide Interrupted.
func Classify(ctx, parent context.Context, err error) failure.Kind {
	if parent != nil && parent.Err() != nil {
		return failure.Interrupted
	}
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure.Timeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failure.Timeout
	}
	if errors.Is(err, context.Canceled) {
		return failure.Interrupted
	}

	var fe *failure.Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return failure.Timeout
		}
		return failure.RemoteUnreachable
	}

	text := strings.ToLower(err.Error())
	var te *ToolError
	if errors.As(err, &te) {
		text = strings.ToLower(te.Stderr)
	}
	switch {
	case containsAny(text, timeoutPatterns):
		return failure.Timeout
	case containsAny(text, unreachablePatterns):
		return failure.RemoteUnreachable
	case containsAny(text, invalidRepoPatterns):
		return failure.InvalidRepository
	default:
		return failure.ToolFailure
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
