package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"taur/internal/failure"

	"github.com/go-git/go-git/v5"
)

// RemoteName is the remote every tracked repository must have.
const RemoteName = "origin"

// Handle identifies one local repository clone and its expected remote.
//
// Handles are built by Open, Discover and Resolve only, after the path has
// been confirmed to hold a repository with an origin remote. They are plain
// values and are never mutated after construction.
type Handle struct {
	Name   string
	Path   string
	Remote string
}

// Open validates buildRoot/name and returns a handle for it.
func Open(buildRoot, name string) (Handle, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return Handle{}, failure.New(failure.InvalidRepository, "open", name, fmt.Errorf("invalid package name %q", name))
	}
	path := filepath.Join(buildRoot, name)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Handle{}, failure.New(failure.NotFound, "open", name, fmt.Errorf("no local repository at %s", path))
		}
		return Handle{}, failure.New(failure.InvalidRepository, "open", name, err)
	}
	if !info.IsDir() {
		return Handle{}, failure.New(failure.InvalidRepository, "open", name, fmt.Errorf("%s is not a directory", path))
	}

	r, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Handle{}, failure.New(failure.InvalidRepository, "open", name, fmt.Errorf("%s is not a git repository", path))
		}
		return Handle{}, failure.New(failure.InvalidRepository, "open", name, err)
	}

	remote, err := r.Remote(RemoteName)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return Handle{}, failure.New(failure.InvalidRepository, "open", name, fmt.Errorf("no %q remote configured", RemoteName))
		}
		return Handle{}, failure.New(failure.InvalidRepository, "open", name, err)
	}

	var url string
	if urls := remote.Config().URLs; len(urls) > 0 {
		url = urls[0]
	}
	return Handle{Name: name, Path: path, Remote: url}, nil
}

func (h Handle) String() string { return h.Name }
