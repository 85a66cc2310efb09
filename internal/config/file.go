package config

import (
	"fmt"
	"os"
	"time"

	"taur/internal/flags"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const configRelPath = "taur/config.yaml"

// File is the on-disk YAML configuration. Every field is optional; unset
// fields keep the defaults.
type File struct {
	Repos       *string  `yaml:"repos"`
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	Concurrency *int     `yaml:"concurrency"`
	RepoTimeout *string  `yaml:"repo_timeout"`
	Backend     *string  `yaml:"backend"`
	Format      *string  `yaml:"format"`
	NoColor     *bool    `yaml:"no_color"`
	AURURL      *string  `yaml:"aur_url"`

	repoTimeout time.Duration
}

// DefaultConfigFile returns the config file found in the XDG config
// directories, or "" when there is none.
func DefaultConfigFile() string {
	p, err := xdg.SearchConfigFile(configRelPath)
	if err != nil {
		return ""
	}
	return p
}

// LoadFile reads and parses a YAML config file. Environment variables in the
// file are expanded.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if f.RepoTimeout != nil {
		d, err := time.ParseDuration(*f.RepoTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse config file %s: repo_timeout: %w", path, err)
		}
		f.repoTimeout = d
	}
	return &f, nil
}

func (f *File) apply(c *Config, changed func(string) bool) {
	if f.Repos != nil && !changed(flags.FlagRepos) {
		c.Paths.BuildRoot = *f.Repos
	}
	if f.Include != nil && !changed(flags.FlagInclude) {
		c.Targeting.Include = f.Include
	}
	if f.Exclude != nil && !changed(flags.FlagExclude) {
		c.Targeting.Exclude = f.Exclude
	}
	if f.Concurrency != nil && !changed(flags.FlagConcurrency) {
		c.Runtime.Concurrency = *f.Concurrency
	}
	if f.RepoTimeout != nil && !changed(flags.FlagRepoTimeout) {
		c.Runtime.RepoTimeout = f.repoTimeout
	}
	if f.Backend != nil && !changed(flags.FlagBackend) {
		c.Runtime.Backend = *f.Backend
	}
	if f.Format != nil && !changed(flags.FlagFormat) {
		c.Output.Format = *f.Format
	}
	if f.NoColor != nil && !changed(flags.FlagNoColor) {
		c.Output.NoColor = *f.NoColor
	}
	if f.AURURL != nil && !changed(flags.FlagAURURL) {
		c.AUR.BaseURL = *f.AURURL
	}
}
