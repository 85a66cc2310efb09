package vcs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"taur/internal/failure"
	"taur/internal/repo"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// GoGit implements Backend in process with go-git.
type GoGit struct{}

func NewGoGit() *GoGit { return &GoGit{} }

func (g *GoGit) Name() string { return "go-git" }

func (g *GoGit) Fetch(ctx context.Context, path string) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	err = r.FetchContext(ctx, &git.FetchOptions{RemoteName: repo.RemoteName, Tags: git.NoTags})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return failure.New(failure.InvalidRepository, "", "", err)
		}
		if errors.Is(err, transport.ErrRepositoryNotFound) {
			return failure.New(failure.RemoteUnreachable, "", "", err)
		}
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

func (g *GoGit) Pending(ctx context.Context, path string) ([]string, error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}
	local, upstream, err := branchTips(r)
	if err != nil {
		return nil, err
	}
	if local == upstream {
		return nil, nil
	}
	commits, err := newCommits(ctx, r, local, upstream)
	if err != nil {
		return nil, err
	}
	summaries := make([]string, 0, len(commits))
	for _, c := range commits {
		summaries = append(summaries, summary(c.Message))
	}
	return summaries, nil
}

func (g *GoGit) FastForward(ctx context.Context, path string) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	local, upstream, err := branchTips(r)
	if err != nil {
		return err
	}
	if local == upstream {
		return nil
	}

	ok, err := isAncestor(ctx, r, local, upstream)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("not possible to fast-forward: local branch has diverged from upstream")
	}

	wt, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	changed, err := changedPaths(r, local, upstream)
	if err != nil {
		return err
	}
	st, err := wt.Status()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if err := checkWorktree(st, changed); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// HEAD is a symbolic ref to the branch, so resetting moves the branch too.
	// The reset is limited to the paths the fast-forward touches: an
	// unrestricted hard reset would delete untracked files such as makepkg's
	// src/, pkg/ and built packages.
	opts := &git.ResetOptions{Commit: upstream, Mode: git.HardReset, Files: changed}
	if len(changed) == 0 {
		opts = &git.ResetOptions{Commit: upstream, Mode: git.SoftReset}
	}
	if err := wt.Reset(opts); err != nil {
		return fmt.Errorf("fast-forward reset: %w", err)
	}
	return nil
}

// changedPaths lists the files that differ between the trees of two commits.
func changedPaths(r *git.Repository, from, to plumbing.Hash) ([]string, error) {
	trees := make([]*object.Tree, 0, 2)
	for _, h := range []plumbing.Hash{from, to} {
		c, err := r.CommitObject(h)
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", h, err)
		}
		t, err := c.Tree()
		if err != nil {
			return nil, fmt.Errorf("tree of %s: %w", h, err)
		}
		trees = append(trees, t)
	}
	changes, err := trees[0].Diff(trees[1])
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	var paths []string
	for _, ch := range changes {
		for _, name := range []string{ch.From.Name, ch.To.Name} {
			if name != "" && !slices.Contains(paths, name) {
				paths = append(paths, name)
			}
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// checkWorktree refuses a fast-forward when a tracked file has local
// changes or when an untracked file sits on a path the fast-forward writes.
// Other untracked files are left alone, as git does.
func checkWorktree(st git.Status, changed []string) error {
	for path, fs := range st {
		untracked := fs.Worktree == git.Untracked && fs.Staging == git.Untracked
		if !untracked {
			if fs.Worktree == git.Unmodified && fs.Staging == git.Unmodified {
				continue
			}
			return errors.New("working tree has local changes; refusing to fast-forward")
		}
		if _, hit := slices.BinarySearch(changed, path); hit {
			return fmt.Errorf("untracked working tree file %s would be overwritten by fast-forward", path)
		}
	}
	return nil
}

func open(path string) (*git.Repository, error) {
	r, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, failure.New(failure.InvalidRepository, "", "", fmt.Errorf("%s is not a git repository", path))
		}
		return nil, err
	}
	return r, nil
}

// branchTips resolves the checked-out branch and its configured upstream.
func branchTips(r *git.Repository) (local, upstream plumbing.Hash, err error) {
	head, err := r.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return local, upstream, failure.New(failure.InvalidRepository, "", "", errors.New("repository does not have any commits yet"))
		}
		return local, upstream, fmt.Errorf("head: %w", err)
	}
	if !head.Name().IsBranch() {
		return local, upstream, errors.New("HEAD is detached; no branch to compare")
	}
	branch := head.Name().Short()

	cfg, err := r.Config()
	if err != nil {
		return local, upstream, fmt.Errorf("config: %w", err)
	}
	bc, ok := cfg.Branches[branch]
	if !ok || bc.Merge == "" {
		return local, upstream, failure.New(failure.InvalidRepository, "", "", fmt.Errorf("no upstream configured for branch %s", branch))
	}
	remote := bc.Remote
	if remote == "" {
		remote = repo.RemoteName
	}

	ref, err := r.Reference(plumbing.NewRemoteReferenceName(remote, bc.Merge.Short()), true)
	if err != nil {
		return local, upstream, failure.New(failure.InvalidRepository, "", "", fmt.Errorf("upstream %s/%s not found: %w", remote, bc.Merge.Short(), err))
	}
	return head.Hash(), ref.Hash(), nil
}

// newCommits returns commits reachable from upstream but not from local,
// oldest first.
func newCommits(ctx context.Context, r *git.Repository, local, upstream plumbing.Hash) ([]*object.Commit, error) {
	known, err := ancestors(ctx, r, local)
	if err != nil {
		return nil, err
	}

	var out []*object.Commit
	seen := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{upstream}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := queue[0]
		queue = queue[1:]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		if _, ok := known[h]; ok {
			continue
		}
		c, err := r.CommitObject(h)
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", h, err)
		}
		out = append(out, c)
		queue = append(queue, c.ParentHashes...)
	}

	// The walk visits newest first; reverse before ordering by time so that
	// commits sharing a timestamp stay parent-before-child.
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b *object.Commit) int {
		return a.Committer.When.Compare(b.Committer.When)
	})
	return out, nil
}

func ancestors(ctx context.Context, r *git.Repository, from plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	set := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{from}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := queue[0]
		queue = queue[1:]
		if _, ok := set[h]; ok {
			continue
		}
		set[h] = struct{}{}
		c, err := r.CommitObject(h)
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", h, err)
		}
		queue = append(queue, c.ParentHashes...)
	}
	return set, nil
}

func isAncestor(ctx context.Context, r *git.Repository, a, b plumbing.Hash) (bool, error) {
	set, err := ancestors(ctx, r, b)
	if err != nil {
		return false, err
	}
	_, ok := set[a]
	return ok, nil
}

func summary(msg string) string {
	msg = strings.TrimSpace(msg)
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}

// Clone clones url into path in process. The destination must not exist.
func (g *GoGit) Clone(ctx context.Context, url, path string) error {
	_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:        url,
		RemoteName: repo.RemoteName,
		Tags:       git.NoTags,
	})
	if err != nil {
		if errors.Is(err, transport.ErrRepositoryNotFound) {
			return failure.New(failure.RemoteUnreachable, "clone", "", err)
		}
		return fmt.Errorf("clone: %w", err)
	}
	return nil
}
