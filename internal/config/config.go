// Package config loads the optional project configuration from
// .tlc/config.yaml and defines the tool-owned paths under .tlc/.
//
// A missing config file is not an error: the defaults reproduce the
// classic layout (Python modules in tlc/, pyproject.toml manifest,
// claude as the agent, uv as the runner) so a project needs no
// configuration at all to compile.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const (
	// ToolDir is the tool-owned directory created in each project root.
	ToolDir = ".tlc"

	// ConfigFile is the config file name inside ToolDir.
	ConfigFile = "config.yaml"

	// LedgerFile is the compile ledger database inside ToolDir.
	LedgerFile = "tlc.db"

	// LogbookFile is the append-only event log inside ToolDir.
	LogbookFile = "logbook.log"
)

const defaultConfigYAML = `# tlc project configuration
# Every field is optional; the values below are the defaults.

# Where generated modules live and how they are named.
package: tlc
extension: py
manifest: pyproject.toml
entry_function: main

# The external code-generation agent.
agent:
  command: [claude]
  # 0 disables the deadline; the agent may run for minutes.
  timeout_seconds: 0

# How compiled commands and their tests are executed.
run_command: [uv, run]
test_command: [uv, run, pytest]

# Where status and watch look for specifications.
spec_globs:
  - "*.md"
  - "specs/**/*.md"
spec_ignore:
  - "README.md"
  - "AGENTS.md"
  - "CLAUDE.md"
`

// AgentConfig describes the external code-generation agent.
type AgentConfig struct {
	Command        []string `yaml:"command"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Timeout returns the configured agent deadline; zero means none.
func (a AgentConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Config models .tlc/config.yaml.
type Config struct {
	Package       string      `yaml:"package"`
	Extension     string      `yaml:"extension"`
	Manifest      string      `yaml:"manifest"`
	EntryFunction string      `yaml:"entry_function"`
	Agent         AgentConfig `yaml:"agent"`
	RunCommand    []string    `yaml:"run_command"`
	TestCommand   []string    `yaml:"test_command"`
	SpecGlobs     []string    `yaml:"spec_globs"`
	SpecIgnore    []string    `yaml:"spec_ignore"`
}

// --- Tool-owned paths ---

// ToolPath returns the .tlc directory for a project root.
func ToolPath(root string) string {
	return filepath.Join(root, ToolDir)
}

// ConfigPath returns the config file location for a project root.
func ConfigPath(root string) string {
	return filepath.Join(root, ToolDir, ConfigFile)
}

// LedgerPath returns the compile ledger location for a project root.
func LedgerPath(root string) string {
	return filepath.Join(root, ToolDir, LedgerFile)
}

// LogbookPath returns the logbook location for a project root.
func LogbookPath(root string) string {
	return filepath.Join(root, ToolDir, LogbookFile)
}

// --- Loading ---

// Default returns the zero-configuration defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the project config from root. A missing file yields the
// defaults; a present file is parsed, defaulted, normalized, and validated.
func Load(root string) (*Config, error) {
	path := ConfigPath(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// EnsureDefault creates the .tlc directory and writes the default config
// file if none exists yet, so the available settings are discoverable.
// Called on first use; an existing config is never touched.
func EnsureDefault(root string) error {
	if err := os.MkdirAll(ToolPath(root), 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", ToolPath(root), err)
	}
	path := ConfigPath(root)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Package == "" {
		c.Package = "tlc"
	}
	if c.Extension == "" {
		c.Extension = "py"
	}
	if c.Manifest == "" {
		c.Manifest = "pyproject.toml"
	}
	if c.EntryFunction == "" {
		c.EntryFunction = "main"
	}
	if len(c.Agent.Command) == 0 {
		c.Agent.Command = []string{"claude"}
	}
	if len(c.RunCommand) == 0 {
		c.RunCommand = []string{"uv", "run"}
	}
	if len(c.TestCommand) == 0 {
		c.TestCommand = []string{"uv", "run", "pytest"}
	}
	if len(c.SpecGlobs) == 0 {
		c.SpecGlobs = []string{"*.md", "specs/**/*.md"}
	}
	if c.SpecIgnore == nil {
		c.SpecIgnore = []string{"README.md", "AGENTS.md", "CLAUDE.md"}
	}
}

func (c *Config) normalize() {
	c.Package = strings.TrimSpace(c.Package)
	c.Extension = strings.TrimPrefix(strings.TrimSpace(c.Extension), ".")
	c.Manifest = strings.TrimSpace(c.Manifest)
	c.EntryFunction = strings.TrimSpace(c.EntryFunction)
	c.Agent.Command = trimList(c.Agent.Command)
	c.RunCommand = trimList(c.RunCommand)
	c.TestCommand = trimList(c.TestCommand)
	c.SpecGlobs = trimList(c.SpecGlobs)
	c.SpecIgnore = trimList(c.SpecIgnore)
}

func (c *Config) validate() error {
	if c.Package == "" || strings.ContainsAny(c.Package, `/\`) {
		return fmt.Errorf("package must be a plain directory name, got %q", c.Package)
	}
	if c.Extension == "" {
		return fmt.Errorf("extension is required")
	}
	if c.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}
	if c.EntryFunction == "" {
		return fmt.Errorf("entry_function is required")
	}
	if len(c.Agent.Command) == 0 {
		return fmt.Errorf("agent.command is required")
	}
	if c.Agent.TimeoutSeconds < 0 {
		return fmt.Errorf("agent.timeout_seconds must be >= 0, got %d", c.Agent.TimeoutSeconds)
	}
	if len(c.RunCommand) == 0 {
		return fmt.Errorf("run_command is required")
	}
	if len(c.TestCommand) == 0 {
		return fmt.Errorf("test_command is required")
	}
	for _, pattern := range c.SpecGlobs {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("spec_globs: invalid pattern %q", pattern)
		}
	}
	for _, pattern := range c.SpecIgnore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("spec_ignore: invalid pattern %q", pattern)
		}
	}
	return nil
}

// trimList trims every element and drops empties.
func trimList(values []string) []string {
	out := values[:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
