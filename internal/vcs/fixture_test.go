package vcs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"taur/internal/repo"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// fixture is a bare "AUR" remote, a seed clone that publishes to it and a
// local clone under a build root, all on branch master.
type fixture struct {
	t         *testing.T
	remote    string
	seed      *git.Repository
	seedPath  string
	buildRoot string
	local     string
	handle    repo.Handle
	clock     time.Time
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	tmp := t.TempDir()
	f := &fixture{
		t:         t,
		remote:    filepath.Join(tmp, "remote.git"),
		seedPath:  filepath.Join(tmp, "seed"),
		buildRoot: filepath.Join(tmp, "repos"),
		clock:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	_, err := git.PlainInit(f.remote, true)
	require.NoError(t, err)

	f.seed, err = git.PlainInit(f.seedPath, false)
	require.NoError(t, err)
	_, err = f.seed.CreateRemote(&ggitcfg.RemoteConfig{Name: repo.RemoteName, URLs: []string{f.remote}})
	require.NoError(t, err)

	f.publish("PKGBUILD", "pkgver=1", "Initial import")

	f.local = filepath.Join(f.buildRoot, name)
	_, err = git.PlainClone(f.local, false, &git.CloneOptions{
		URL:           f.remote,
		ReferenceName: plumbing.NewBranchReferenceName("master"),
		SingleBranch:  true,
	})
	require.NoError(t, err)

	f.handle, err = repo.Open(f.buildRoot, name)
	require.NoError(t, err)
	return f
}

// publish commits a file change in the seed clone and pushes it.
func (f *fixture) publish(file, content, msg string) plumbing.Hash {
	f.t.Helper()
	f.clock = f.clock.Add(time.Minute)
	h := commitFile(f.t, f.seed, f.seedPath, file, content, msg, f.clock)
	err := f.seed.Push(&git.PushOptions{RemoteName: repo.RemoteName})
	require.NoError(f.t, err)
	return h
}

func (f *fixture) localHead() plumbing.Hash {
	f.t.Helper()
	r, err := git.PlainOpen(f.local)
	require.NoError(f.t, err)
	head, err := r.Head()
	require.NoError(f.t, err)
	return head.Hash()
}

func (f *fixture) remoteHead() plumbing.Hash {
	f.t.Helper()
	head, err := f.seed.Head()
	require.NoError(f.t, err)
	return head.Hash()
}

func commitFile(t *testing.T, r *git.Repository, dir, file, content, msg string, when time.Time) plumbing.Hash {
	t.Helper()
	wt, err := r.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o600))
	_, err = wt.Add(file)
	require.NoError(t, err)
	sig := &object.Signature{Name: "packager", Email: "packager@example.com", When: when}
	h, err := wt.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return h
}
