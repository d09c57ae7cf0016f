package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// --- Default ---

func TestDefault_MatchesClassicLayout(t *testing.T) {
	cfg := Default()

	if cfg.Package != "tlc" {
		t.Errorf("Package = %q, want tlc", cfg.Package)
	}
	if cfg.Extension != "py" {
		t.Errorf("Extension = %q, want py", cfg.Extension)
	}
	if cfg.Manifest != "pyproject.toml" {
		t.Errorf("Manifest = %q, want pyproject.toml", cfg.Manifest)
	}
	if cfg.EntryFunction != "main" {
		t.Errorf("EntryFunction = %q, want main", cfg.EntryFunction)
	}
	if len(cfg.Agent.Command) != 1 || cfg.Agent.Command[0] != "claude" {
		t.Errorf("Agent.Command = %v, want [claude]", cfg.Agent.Command)
	}
	if cfg.Agent.Timeout() != 0 {
		t.Errorf("Agent.Timeout = %v, want 0 (disabled)", cfg.Agent.Timeout())
	}
	if got := strings.Join(cfg.RunCommand, " "); got != "uv run" {
		t.Errorf("RunCommand = %q, want \"uv run\"", got)
	}
	if got := strings.Join(cfg.TestCommand, " "); got != "uv run pytest" {
		t.Errorf("TestCommand = %q, want \"uv run pytest\"", got)
	}
	if len(cfg.SpecGlobs) == 0 {
		t.Error("SpecGlobs should have defaults")
	}
}

func TestDefaultYAML_ParsesToDefaults(t *testing.T) {
	// The documented template and the in-code defaults must agree.
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &cfg); err != nil {
		t.Fatalf("defaultConfigYAML does not parse: %v", err)
	}
	cfg.applyDefaults()
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaultConfigYAML does not validate: %v", err)
	}

	want := Default()
	if cfg.Package != want.Package || cfg.Extension != want.Extension ||
		cfg.Manifest != want.Manifest || cfg.EntryFunction != want.EntryFunction {
		t.Errorf("defaultConfigYAML layout = %+v, want %+v", cfg, want)
	}
	if strings.Join(cfg.Agent.Command, " ") != strings.Join(want.Agent.Command, " ") {
		t.Errorf("defaultConfigYAML agent = %v, want %v", cfg.Agent.Command, want.Agent.Command)
	}
}

// --- Load ---

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Package != "tlc" || cfg.Manifest != "pyproject.toml" {
		t.Errorf("missing config should yield defaults, got %+v", cfg)
	}
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `
package: generated
extension: .rb
agent:
  command: [codex, exec]
  timeout_seconds: 120
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Package != "generated" {
		t.Errorf("Package = %q, want generated", cfg.Package)
	}
	// Leading dot is normalized away.
	if cfg.Extension != "rb" {
		t.Errorf("Extension = %q, want rb", cfg.Extension)
	}
	if got := strings.Join(cfg.Agent.Command, " "); got != "codex exec" {
		t.Errorf("Agent.Command = %q, want \"codex exec\"", got)
	}
	if cfg.Agent.TimeoutSeconds != 120 {
		t.Errorf("TimeoutSeconds = %d, want 120", cfg.Agent.TimeoutSeconds)
	}
	// Untouched fields keep their defaults.
	if cfg.Manifest != "pyproject.toml" {
		t.Errorf("Manifest = %q, want default pyproject.toml", cfg.Manifest)
	}
	if got := strings.Join(cfg.RunCommand, " "); got != "uv run" {
		t.Errorf("RunCommand = %q, want default \"uv run\"", got)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "package: [unclosed")

	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Load should fail on malformed YAML")
	}
	if !strings.Contains(err.Error(), "parse") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"package with separator", "package: a/b"},
		{"negative timeout", "agent:\n  timeout_seconds: -1"},
		{"bad glob", "spec_globs: [\"[\"]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeConfig(t, tmpDir, tt.yaml)

			if _, err := Load(tmpDir); err == nil {
				t.Fatalf("Load accepted invalid config %q", tt.yaml)
			}
		})
	}
}

// --- EnsureDefault ---

func TestEnsureDefault_WritesTemplate(t *testing.T) {
	tmpDir := t.TempDir()

	if err := EnsureDefault(tmpDir); err != nil {
		t.Fatalf("EnsureDefault failed: %v", err)
	}

	data, err := os.ReadFile(ConfigPath(tmpDir))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if string(data) != defaultConfigYAML {
		t.Error("written template does not match defaultConfigYAML")
	}
}

func TestEnsureDefault_KeepsExisting(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "package: custom\n")

	if err := EnsureDefault(tmpDir); err != nil {
		t.Fatalf("EnsureDefault failed: %v", err)
	}

	data, err := os.ReadFile(ConfigPath(tmpDir))
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if string(data) != "package: custom\n" {
		t.Errorf("existing config was overwritten: %q", data)
	}
}

// --- Path helpers ---

func TestPaths(t *testing.T) {
	root := filepath.Join("home", "proj")

	if got, want := ToolPath(root), filepath.Join(root, ".tlc"); got != want {
		t.Errorf("ToolPath = %q, want %q", got, want)
	}
	if got, want := ConfigPath(root), filepath.Join(root, ".tlc", "config.yaml"); got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
	if got, want := LedgerPath(root), filepath.Join(root, ".tlc", "tlc.db"); got != want {
		t.Errorf("LedgerPath = %q, want %q", got, want)
	}
	if got, want := LogbookPath(root), filepath.Join(root, ".tlc", "logbook.log"); got != want {
		t.Errorf("LogbookPath = %q, want %q", got, want)
	}
}

// --- helpers ---

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	if err := os.MkdirAll(ToolPath(root), 0o755); err != nil {
		t.Fatalf("creating .tlc: %v", err)
	}
	if err := os.WriteFile(ConfigPath(root), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}
