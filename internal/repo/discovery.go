// Package repo discovers the package repositories tracked under a build root.
package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"taur/internal/failure"
	"taur/internal/logfields"
)

// ResolveError records a name passed to Resolve that could not be turned into
// a handle. Err is always a *failure.Error. Index is the name's position among
// the distinct names Resolve was given.
type ResolveError struct {
	Name  string
	Index int
	Err   error
}

func (e ResolveError) Error() string { return e.Err.Error() }

// Discover returns a handle for every immediate subdirectory of buildRoot
// that is a repository with an origin remote. Symlinks are followed, so a
// clone kept elsewhere and linked into the build root is found the same way
// Resolve finds it. Entries come back sorted by name. Directories that fail
// validation are skipped.
//
// The only error is failing to read buildRoot itself.
func Discover(buildRoot string) ([]Handle, error) {
	entries, err := os.ReadDir(buildRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, failure.New(failure.NotFound, "discover", "", fmt.Errorf("build root %s does not exist", buildRoot))
		}
		return nil, fmt.Errorf("read build root %s: %w", buildRoot, err)
	}

	handles := make([]Handle, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !e.IsDir() && e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		h, err := Open(buildRoot, e.Name())
		if err != nil {
			slog.Debug("Skipping directory", logfields.Repository(e.Name()), logfields.Error(err))
			continue
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Resolve turns explicit package names into handles, preserving the order
// of first appearance. Each ResolveError carries the same position so callers
// can interleave failures with the handles. Names that do not resolve are returned as
// ResolveErrors and do not affect the others. No names means all of
// Discover; in that case a non-nil error is returned only when the build
// root cannot be read.
func Resolve(buildRoot string, names []string) ([]Handle, []ResolveError, error) {
	if len(names) == 0 {
		handles, err := Discover(buildRoot)
		return handles, nil, err
	}

	if _, err := os.Stat(buildRoot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, failure.New(failure.NotFound, "resolve", "", fmt.Errorf("build root %s does not exist", buildRoot))
		}
		return nil, nil, fmt.Errorf("stat build root %s: %w", buildRoot, err)
	}

	seen := make(map[string]struct{}, len(names))
	var handles []Handle
	var failed []ResolveError
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		index := len(seen) - 1

		h, err := Open(buildRoot, name)
		if err != nil {
			failed = append(failed, ResolveError{Name: name, Index: index, Err: err})
			continue
		}
		handles = append(handles, h)
	}
	return handles, failed, nil
}
