package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"taur/internal/flags"
	"taur/internal/output"

	"github.com/adrg/xdg"
)

const (
	// EnvReposDir overrides the build root when --repos is not given.
	EnvReposDir = "TAUR_REPOS_DIR"
	// EnvAURURL overrides the AUR base URL when --aur-url is not given.
	EnvAURURL = "TAUR_AUR_URL"

	DefaultAURURL = "https://aur.archlinux.org"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - CLI flags in internal/cli (flag names live in internal/flags)
	// - the YAML file schema in file.go
	Paths     Paths
	Targeting Targeting
	Output    Output
	Runtime   Runtime
	AUR       AUR
}

type Paths struct {
	// BuildRoot is the directory whose subdirectories are package clones
	// (see --repos). Defaults to $XDG_DATA_HOME/taur/repos.
	BuildRoot string

	// ConfigFile is an explicit YAML config path (see --config). When empty,
	// $XDG_CONFIG_HOME/taur/config.yaml is used if it exists.
	ConfigFile string
}

type Targeting struct {
	// Include keeps only discovered packages whose name matches one of these
	// path.Match patterns (see --include). Explicit pull names are never filtered.
	Include []string

	// Exclude drops discovered packages whose name matches one of these
	// patterns (see --exclude).
	Exclude []string
}

type Output struct {
	// Format controls the console sink (see --format).
	// Allowed values: text, json, ndjson.
	Format string

	// NoColor disables ANSI colours in text output (see --no-color).
	NoColor bool

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Report writes a Markdown summary to this path (see --report).
	Report string
}

type Runtime struct {
	// Concurrency bounds how many repositories are processed at once (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// RepoTimeout limits each repository's fetch/pull (see --repo-timeout).
	// Must be > 0.
	RepoTimeout time.Duration

	// Backend selects the git implementation (see --backend).
	// Allowed values: git, go-git.
	Backend string

	// Verbose enables debug logging on stderr (see --verbose).
	Verbose bool
}

type AUR struct {
	// BaseURL is the AUR instance used by search and clone (see --aur-url).
	// Clone URLs are BaseURL/<package>.git.
	BaseURL string
}

// DefaultBuildRoot is where package clones live when nothing else is configured.
func DefaultBuildRoot() string {
	return filepath.Join(xdg.DataHome, "taur", "repos")
}

func New() *Config {
	return &Config{
		Paths: Paths{
			BuildRoot: DefaultBuildRoot(),
		},
		Output: Output{
			Format: "text",
		},
		Runtime: Runtime{
			Concurrency: 5,
			RepoTimeout: 2 * time.Minute,
			Backend:     "git",
		},
		AUR: AUR{
			BaseURL: DefaultAURURL,
		},
	}
}

// Load layers the config file and the environment under values already set
// from flags. changed reports whether a flag was given on the command line;
// those fields are left alone.
func (c *Config) Load(changed func(flag string) bool, getenv func(string) string) error {
	if changed == nil {
		changed = func(string) bool { return false }
	}
	if getenv == nil {
		getenv = os.Getenv
	}

	file := c.Paths.ConfigFile
	explicit := file != ""
	if !explicit {
		file = DefaultConfigFile()
	}
	if file != "" {
		f, err := LoadFile(file)
		switch {
		case err == nil:
			f.apply(c, changed)
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return err
		}
	}

	if !changed(flags.FlagRepos) {
		if dir := strings.TrimSpace(getenv(EnvReposDir)); dir != "" {
			c.Paths.BuildRoot = dir
		}
	}
	if !changed(flags.FlagAURURL) {
		if u := strings.TrimSpace(getenv(EnvAURURL)); u != "" {
			c.AUR.BaseURL = u
		}
	}
	return nil
}

func (c *Config) Validate() error {
	c.Targeting.Include = splitCommaList(c.Targeting.Include)
	c.Targeting.Exclude = splitCommaList(c.Targeting.Exclude)
	for _, p := range append(append([]string{}, c.Targeting.Include...), c.Targeting.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid name pattern %q: %w", p, err)
		}
	}

	c.Paths.BuildRoot = strings.TrimSpace(c.Paths.BuildRoot)
	if c.Paths.BuildRoot == "" {
		return fmt.Errorf("--%s must not be empty", flags.FlagRepos)
	}
	c.Paths.BuildRoot = expandHome(c.Paths.BuildRoot)

	c.Output.Format = normalizeEnumValue(c.Output.Format)
	if c.Output.Format == "" {
		return errors.New("--format must be one of: text, json, ndjson")
	}
	if c.Output.Format != "text" && c.Output.Format != "json" && c.Output.Format != "ndjson" {
		return fmt.Errorf("unsupported --format: %s (must be one of: text, json, ndjson)", c.Output.Format)
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			f, err := output.InferFormat(c.Output.Out)
			if err != nil {
				return fmt.Errorf("%w; use --%s", err, flags.FlagOutFormat)
			}
			c.Output.OutFormat = f
		} else if c.Output.OutFormat != output.FormatJSON && c.Output.OutFormat != output.FormatNDJSON {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	c.Runtime.Backend = normalizeEnumValue(c.Runtime.Backend)
	if c.Runtime.Backend == "" {
		c.Runtime.Backend = "git"
	}
	if c.Runtime.Backend != "git" && c.Runtime.Backend != "go-git" {
		return fmt.Errorf("unsupported --backend: %s (must be one of: git, go-git)", c.Runtime.Backend)
	}

	c.AUR.BaseURL = strings.TrimRight(strings.TrimSpace(c.AUR.BaseURL), "/")
	if c.AUR.BaseURL == "" {
		c.AUR.BaseURL = DefaultAURURL
	}

	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.RepoTimeout <= 0 {
		return errors.New("--repo-timeout must be > 0")
	}
	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
