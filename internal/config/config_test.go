package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"taur/internal/flags"
)

func noEnv(string) string { return "" }

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	if cfg.Runtime.Concurrency != 5 {
		t.Fatalf("Concurrency = %d, want 5", cfg.Runtime.Concurrency)
	}
	if cfg.Runtime.RepoTimeout != 2*time.Minute {
		t.Fatalf("RepoTimeout = %s, want 2m", cfg.Runtime.RepoTimeout)
	}
	if !strings.HasSuffix(cfg.Paths.BuildRoot, filepath.Join("taur", "repos")) {
		t.Fatalf("BuildRoot = %q, want .../taur/repos", cfg.Paths.BuildRoot)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_NormalizesCommaDelimitedPatterns(t *testing.T) {
	cfg := New()
	cfg.Targeting.Include = []string{"yay*, paru", "python-*", ",,"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}

	want := []string{"yay*", "paru", "python-*"}
	if !reflect.DeepEqual(cfg.Targeting.Include, want) {
		t.Fatalf("Include normalized mismatch: got %v want %v", cfg.Targeting.Include, want)
	}
}

func TestValidate_RejectsBadPattern(t *testing.T) {
	cfg := New()
	cfg.Targeting.Exclude = []string{"[unterminated"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for malformed pattern")
	}
}

func TestValidate_Formats(t *testing.T) {
	for _, f := range []string{"text", "JSON", " ndjson "} {
		cfg := New()
		cfg.Output.Format = f
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate(%q) returned error: %v", f, err)
		}
	}
	for _, f := range []string{"", "yaml"} {
		cfg := New()
		cfg.Output.Format = f
		if err := cfg.Validate(); err == nil {
			t.Fatalf("Validate(%q) expected error", f)
		}
	}
}

func TestValidate_OutFormatInference(t *testing.T) {
	tests := []struct {
		out, format, want string
		wantErr           string
	}{
		{out: "run.json", want: "json"},
		{out: "run.ndjson", want: "ndjson"},
		{out: "run.jsonl", want: "ndjson"},
		{out: "RUN.JSONL", want: "ndjson"},
		{out: "run", wantErr: "(missing extension); use --out-format"},
		{out: "run.txt", wantErr: `extension ".txt"; use --out-format`},
		{out: "run.txt", format: "NDJSON", want: "ndjson"},
		{out: "run.json", format: "xml", wantErr: "unsupported output format"},
	}
	for _, tt := range tests {
		t.Run(tt.out+"/"+tt.format, func(t *testing.T) {
			cfg := New()
			cfg.Output.Out = tt.out
			cfg.Output.OutFormat = tt.format
			err := cfg.Validate()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Output.OutFormat != tt.want {
				t.Fatalf("OutFormat = %q, want %q", cfg.Output.OutFormat, tt.want)
			}
		})
	}
}

func TestValidate_RejectsInvalidRuntime(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Runtime.Concurrency = 0 }},
		{"negative concurrency", func(c *Config) { c.Runtime.Concurrency = -1 }},
		{"zero timeout", func(c *Config) { c.Runtime.RepoTimeout = 0 }},
		{"unknown backend", func(c *Config) { c.Runtime.Backend = "hg" }},
		{"empty build root", func(c *Config) { c.Paths.BuildRoot = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mut(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidate_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg := New()
	cfg.Paths.BuildRoot = "~/aur"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "aur"); cfg.Paths.BuildRoot != want {
		t.Fatalf("BuildRoot = %q, want %q", cfg.Paths.BuildRoot, want)
	}
}

func TestLoad_FileEnvAndFlagPrecedence(t *testing.T) {
	path := writeConfigFile(t, `
repos: /from/file
concurrency: 9
repo_timeout: 45s
backend: go-git
format: json
no_color: true
include: ["yay*"]
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg := New()
		cfg.Paths.ConfigFile = path
		if err := cfg.Load(nil, noEnv); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Paths.BuildRoot != "/from/file" || cfg.Runtime.Concurrency != 9 ||
			cfg.Runtime.RepoTimeout != 45*time.Second || cfg.Runtime.Backend != "go-git" ||
			cfg.Output.Format != "json" || !cfg.Output.NoColor ||
			!reflect.DeepEqual(cfg.Targeting.Include, []string{"yay*"}) {
			t.Fatalf("file values not applied: %+v", cfg)
		}
	})

	t.Run("env over file", func(t *testing.T) {
		cfg := New()
		cfg.Paths.ConfigFile = path
		env := func(k string) string {
			if k == EnvReposDir {
				return "/from/env"
			}
			return ""
		}
		if err := cfg.Load(nil, env); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Paths.BuildRoot != "/from/env" {
			t.Fatalf("BuildRoot = %q, want /from/env", cfg.Paths.BuildRoot)
		}
	})

	t.Run("flags over everything", func(t *testing.T) {
		cfg := New()
		cfg.Paths.ConfigFile = path
		cfg.Paths.BuildRoot = "/from/flag"
		cfg.Runtime.Concurrency = 2
		changed := func(name string) bool {
			return name == flags.FlagRepos || name == flags.FlagConcurrency
		}
		env := func(string) string { return "/from/env" }
		if err := cfg.Load(changed, env); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Paths.BuildRoot != "/from/flag" || cfg.Runtime.Concurrency != 2 {
			t.Fatalf("flag values overridden: root=%q concurrency=%d", cfg.Paths.BuildRoot, cfg.Runtime.Concurrency)
		}
		if cfg.Runtime.Backend != "go-git" {
			t.Fatalf("unflagged field should come from file, got %q", cfg.Runtime.Backend)
		}
	})
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	cfg := New()
	cfg.Paths.ConfigFile = filepath.Join(t.TempDir(), "nope.yaml")
	if err := cfg.Load(nil, noEnv); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(writeConfigFile(t, "concurrency: [1, 2")); err == nil {
		t.Fatalf("expected YAML parse error")
	}
	if _, err := LoadFile(writeConfigFile(t, "repo_timeout: soon")); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TAUR_TEST_ROOT", "/srv/aur")
	f, err := LoadFile(writeConfigFile(t, "repos: ${TAUR_TEST_ROOT}/pkgs\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if f.Repos == nil || *f.Repos != "/srv/aur/pkgs" {
		t.Fatalf("Repos = %v, want /srv/aur/pkgs", f.Repos)
	}
}

func TestLoad_AURURL(t *testing.T) {
	path := writeConfigFile(t, "aur_url: https://aur.example.org/\n")

	cfg := New()
	cfg.Paths.ConfigFile = path
	if err := cfg.Load(nil, noEnv); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.AUR.BaseURL != "https://aur.example.org" {
		t.Fatalf("BaseURL = %q, want trailing slash trimmed", cfg.AUR.BaseURL)
	}

	cfg = New()
	cfg.Paths.ConfigFile = path
	env := func(k string) string {
		if k == EnvAURURL {
			return "http://127.0.0.1:8080"
		}
		return ""
	}
	if err := cfg.Load(nil, env); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AUR.BaseURL != "http://127.0.0.1:8080" {
		t.Fatalf("BaseURL = %q, want env value", cfg.AUR.BaseURL)
	}
}
