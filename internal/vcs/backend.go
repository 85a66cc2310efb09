package vcs

import (
	"context"
	"fmt"
)

const (
	BackendGit   = "git"
	BackendGoGit = "go-git"
)

// Cloner creates a new local clone. Both backends implement it.
type Cloner interface {
	Clone(ctx context.Context, url, path string) error
}

// NewBackend returns the backend registered under name.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "", BackendGit:
		return NewGitCLI(), nil
	case BackendGoGit:
		return NewGoGit(), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q (must be one of: %s, %s)", name, BackendGit, BackendGoGit)
	}
}
