package flags

// Package flags defines canonical CLI flag names shared by the CLI and the
// config layer. The config file loader uses them to tell which values were
// set on the command line and must not be overridden.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.PersistentFlags().StringVar(&cfg.Paths.BuildRoot, flags.FlagRepos, "", "...")
//	arg := "--" + flags.FlagRepos
const (
	// Paths
	FlagRepos  = "repos"
	FlagConfig = "config"

	// Targeting
	FlagInclude = "include"
	FlagExclude = "exclude"

	// Output
	FlagFormat    = "format"
	FlagNoColor   = "no-color"
	FlagOut       = "out"
	FlagOutFormat = "out-format"
	FlagReport    = "report"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagRepoTimeout = "repo-timeout"
	FlagBackend     = "backend"
	FlagVerbose     = "verbose"

	// AUR
	FlagAURURL = "aur-url"
)
