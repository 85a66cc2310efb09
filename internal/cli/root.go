package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"taur/internal/config"
	"taur/internal/engine"
	"taur/internal/flags"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var cfg = config.New()

// exitCode is set by commands that finish without a Go error but still
// need a non-zero status (partial failures).
var exitCode = engine.ExitClean

// exitError carries a specific exit status up to Execute.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fatalf(format string, args ...any) error {
	return &exitError{code: engine.ExitFatal, err: fmt.Errorf(format, args...)}
}

const rootLong = `taur keeps local clones of AUR package repositories up to date.

Every subdirectory of the build root (--repos) is one package clone with an
"origin" remote. Running taur with no command is the same as "taur fetch".

Output:
	Console output is controlled by --format (default: text).
	--out writes an aggregate JSON document or an NDJSON event stream to a file,
	--report writes a Markdown summary.

	NDJSON mode emits one JSON object per line with a "type" field
	(run.started, repo.unresolved, repo.started, repo.finished, run.finished).

Configuration (highest precedence first):
	1) command-line flags
	2) TAUR_REPOS_DIR and TAUR_AUR_URL environment variables
	3) $XDG_CONFIG_HOME/taur/config.yaml (or --config)
	4) built-in defaults

Exit codes:
	0 = every repository checked or pulled cleanly
	1 = usage error
	2 = partial failure (some repositories failed or were not found)
	3 = fatal error (no repository was attempted)`

var rootCmd = &cobra.Command{
	Use:           "taur",
	Short:         "Tiny AUR helper: fetch, pull, clone and search AUR package repositories",
	Long:          rootLong,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Load(cmd.Flags().Changed, os.Getenv); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		setupLogging(cmd.ErrOrStderr(), cfg.Runtime.Verbose)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()

	// Paths
	pf.StringVar(&cfg.Paths.BuildRoot, flags.FlagRepos, cfg.Paths.BuildRoot, "Local repository storage path (env "+config.EnvReposDir+")")
	pf.StringVar(&cfg.Paths.ConfigFile, flags.FlagConfig, "", "YAML config file (default: $XDG_CONFIG_HOME/taur/config.yaml if it exists)")

	// Targeting
	pf.StringSliceVar(&cfg.Targeting.Include, flags.FlagInclude, nil, "Only process packages matching these path.Match patterns (repeatable; comma-separated accepted)")
	pf.StringSliceVar(&cfg.Targeting.Exclude, flags.FlagExclude, nil, "Skip packages matching these patterns (repeatable; comma-separated accepted)")

	// Output
	pf.StringVar(&cfg.Output.Format, flags.FlagFormat, cfg.Output.Format, "Console output format: text|json|ndjson")
	pf.BoolVar(&cfg.Output.NoColor, flags.FlagNoColor, false, "Disable coloured output")
	pf.StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	pf.StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	pf.StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")

	// Runtime
	pf.IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Repositories processed at once")
	pf.DurationVar(&cfg.Runtime.RepoTimeout, flags.FlagRepoTimeout, cfg.Runtime.RepoTimeout, "Time limit for each repository")
	pf.StringVar(&cfg.Runtime.Backend, flags.FlagBackend, cfg.Runtime.Backend, "Git implementation: git|go-git")
	pf.BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (every git operation with timing)")

	// AUR
	pf.StringVar(&cfg.AUR.BaseURL, flags.FlagAURURL, cfg.AUR.BaseURL, "AUR base URL used by search and clone (env "+config.EnvAURURL+")")
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Execute runs the root command and exits the process with its status.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, rootCmd)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitCode
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return engine.ExitUsage
}
