package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testParams(hasTests bool) Params {
	return Params{
		ModuleID:      "foo_bar",
		SpecPath:      "foo-bar.md",
		SpecContent:   "# foo-bar\n\n## Implementation\n\nPrint hello.",
		HasTests:      hasTests,
		PackageDir:    "tlc",
		Extension:     "py",
		ManifestPath:  "pyproject.toml",
		EntryFunction: "main",
	}
}

// --- path helpers ---

func TestParams_Paths(t *testing.T) {
	p := testParams(false)

	if got, want := p.ModulePath(), "tlc/foo_bar.py"; got != want {
		t.Errorf("ModulePath = %q, want %q", got, want)
	}
	if got, want := p.TestPath(), "tlc/tests/test_foo_bar.py"; got != want {
		t.Errorf("TestPath = %q, want %q", got, want)
	}
	if got, want := p.EntryRef(), "tlc.foo_bar:main"; got != want {
		t.Errorf("EntryRef = %q, want %q", got, want)
	}
}

// --- Build ---

func TestBuild_ContainsProtocol(t *testing.T) {
	result, err := Build(testParams(false))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	checks := []string{
		"well defined enough",
		"stop, and summarise why",
		"Write no files",
		"The module is always tlc/foo_bar.py",
		"Update pyproject.toml",
		"foo_bar = \"tlc.foo_bar:main\"",
		"Touch nothing else",
		"Here is the specification (foo-bar.md):",
		"Print hello.",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("prompt missing %q", check)
		}
	}
}

func TestBuild_WithoutTestStrategy(t *testing.T) {
	result, err := Build(testParams(false))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Contains(result, "tlc/tests/test_foo_bar.py") {
		t.Error("prompt mentions the test path although no test strategy is declared")
	}
}

func TestBuild_WithTestStrategy(t *testing.T) {
	result, err := Build(testParams(true))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	checks := []string{
		"A test strategy is specified",
		"tlc/tests/test_foo_bar.py",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("prompt missing %q", check)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := Build(testParams(true))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	b, err := Build(testParams(true))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if a != b {
		t.Error("Build is not deterministic for identical params")
	}
}

// --- Stage ---

func TestStage_WritesPrompt(t *testing.T) {
	tmpDir := t.TempDir()
	stagingDir := filepath.Join(tmpDir, ".tlc")

	path, err := Stage(stagingDir, "instructions")
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if path != filepath.Join(stagingDir, StagingFile) {
		t.Errorf("staged path = %q, want %q", path, filepath.Join(stagingDir, StagingFile))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading staged prompt: %v", err)
	}
	if string(data) != "instructions" {
		t.Errorf("staged content = %q, want %q", data, "instructions")
	}
}

func TestStage_OverwritesPrevious(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := Stage(tmpDir, "first compile"); err != nil {
		t.Fatalf("first Stage failed: %v", err)
	}
	path, err := Stage(tmpDir, "second compile")
	if err != nil {
		t.Fatalf("second Stage failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading staged prompt: %v", err)
	}
	if string(data) != "second compile" {
		t.Errorf("staged content = %q, want the second compile's text", data)
	}
}
