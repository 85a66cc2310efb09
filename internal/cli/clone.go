package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"taur/internal/aur"
	"taur/internal/logfields"
	"taur/internal/vcs"

	"github.com/spf13/cobra"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <package>",
	Short: "Clone a package repository from the AUR",
	Long: `Clone <aur-url>/<package>.git into the build root, creating the build root
if needed. The clone becomes visible to fetch and pull right away.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
			return fmt.Errorf("invalid package name %q", name)
		}

		backend, err := vcs.NewBackend(cfg.Runtime.Backend)
		if err != nil {
			return fatalf("%w", err)
		}
		cloner, ok := backend.(vcs.Cloner)
		if !ok {
			return fatalf("backend %s cannot clone", backend.Name())
		}

		url := aur.NewClient(aur.WithBaseURL(cfg.AUR.BaseURL)).CloneURL(name)
		dest, err := clonePackage(cmd.Context(), cloner, cfg.Paths.BuildRoot, name, url, cfg.Runtime.RepoTimeout)
		if err != nil {
			return fatalf("cloning repo '%s': %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cloned repo '%s' to '%s'\n", name, dest)
		return nil
	},
}

// clonePackage clones url into buildRoot/name and returns the destination.
func clonePackage(ctx context.Context, c vcs.Cloner, buildRoot, name, url string, timeout time.Duration) (string, error) {
	if err := os.MkdirAll(buildRoot, 0o755); err != nil {
		return "", fmt.Errorf("create build root: %w", err)
	}
	dest := filepath.Join(buildRoot, name)
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%s already exists", dest)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.Debug("Cloning", logfields.Repository(name), logfields.Path(dest), slog.String("url", url))
	if err := c.Clone(ctx, url, dest); err != nil {
		// Do not leave a half-written clone behind for fetch to trip over.
		_ = os.RemoveAll(dest)
		return "", err
	}
	return dest, nil
}

func init() {
	rootCmd.AddCommand(cloneCmd)
}
