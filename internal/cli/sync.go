package cli

import (
	"taur/internal/engine"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and print new commits for all repositories",
	Long: `Fetch every repository in the build root and list the upstream commits that
are not yet in the local branch. Nothing is merged; working trees are never
touched.

Packages without news are omitted; failures are listed after the updates.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd)
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull [package...]",
	Short: "Pull the given package repositories (all when none are given)",
	Long: `Fetch and fast-forward package repositories. With no arguments every
repository in the build root is pulled (subject to --include/--exclude);
otherwise only the named packages are, and unknown names are reported as
errors.

Each package gets one status line, in argument order: updated (with its new
commits), up to date, or error. Local branches that have diverged or have uncommitted changes
are never force-updated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		exitCode = eng.Pull(cmd.Context(), cfg, args)
		return nil
	},
}

func runFetch(cmd *cobra.Command) error {
	eng, err := newEngine(cmd)
	if err != nil {
		return err
	}
	exitCode = eng.Fetch(cmd.Context(), cfg)
	return nil
}

func newEngine(cmd *cobra.Command) (*engine.Engine, error) {
	exec, err := engine.NewExecutor(cfg)
	if err != nil {
		return nil, fatalf("creating executor: %w", err)
	}
	return engine.NewEngine(exec).WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()), nil
}

func init() {
	rootCmd.AddCommand(fetchCmd, pullCmd)
}
