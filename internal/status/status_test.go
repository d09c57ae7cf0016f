package status

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tlc-tools/tlc/internal/config"
	"github.com/tlc-tools/tlc/internal/ledger"
	"github.com/tlc-tools/tlc/internal/pipeline"
)

func newTestProject(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	root := t.TempDir()

	led, err := ledger.Open(config.LedgerPath(root))
	if err != nil {
		t.Fatalf("opening ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })

	return &pipeline.Pipeline{Root: root, Config: *config.Default(), Ledger: led}
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
}

func record(t *testing.T, p *pipeline.Pipeline, spec, module, outcome string) {
	t.Helper()
	_, err := p.Ledger.Record(ledger.Record{SpecPath: spec, ModuleID: module, Outcome: outcome})
	if err != nil {
		t.Fatalf("recording run: %v", err)
	}
}

func rowFor(t *testing.T, r *Report, spec string) Row {
	t.Helper()
	for _, row := range r.Rows {
		if row.SpecPath == spec {
			return row
		}
	}
	t.Fatalf("no row for %s in %+v", spec, r.Rows)
	return Row{}
}

// --- Build ---

func TestBuild_ClassifiesFreshness(t *testing.T) {
	p := newTestProject(t)

	// fresh: spec, artifact newer, compiled run recorded
	write(t, p.Root, "fresh-one.md", "# fresh-one\n")
	write(t, p.Root, "tlc/fresh_one.py", "def main(): pass\n")
	record(t, p, "fresh-one.md", "fresh_one", ledger.OutcomeCompiled)

	// stale: spec touched after the artifact
	write(t, p.Root, "tlc/stale_one.py", "def main(): pass\n")
	write(t, p.Root, "stale-one.md", "# stale-one\n")
	record(t, p, "stale-one.md", "stale_one", ledger.OutcomeCompiled)
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(p.Root, "stale-one.md"), later, later); err != nil {
		t.Fatalf("touching spec: %v", err)
	}

	// not compiled: spec only
	write(t, p.Root, "pending-one.md", "# pending-one\n")

	rep, err := Build(p, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := rowFor(t, rep, "fresh-one.md").Freshness; got != Fresh {
		t.Errorf("fresh-one.md = %s, want fresh", got)
	}
	if got := rowFor(t, rep, "stale-one.md").Freshness; got != Stale {
		t.Errorf("stale-one.md = %s, want stale", got)
	}
	if got := rowFor(t, rep, "pending-one.md").Freshness; got != NotCompiled {
		t.Errorf("pending-one.md = %s, want not compiled", got)
	}
}

func TestBuild_UnionsLedgerWithDiscovery(t *testing.T) {
	p := newTestProject(t)
	write(t, p.Root, "here.md", "# here\n")
	record(t, p, "gone.md", "gone", ledger.OutcomeDeclined)

	rep, err := Build(p, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(rep.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (discovered plus ledger-only)", len(rep.Rows))
	}

	gone := rowFor(t, rep, "gone.md")
	if gone.Freshness != SpecMissing {
		t.Errorf("gone.md freshness = %s, want spec missing", gone.Freshness)
	}
	if gone.LastOutcome != ledger.OutcomeDeclined {
		t.Errorf("gone.md outcome = %q, want declined", gone.LastOutcome)
	}
}

func TestBuild_ReadsManifestRegistrations(t *testing.T) {
	p := newTestProject(t)
	write(t, p.Root, "foo-bar.md", "# foo-bar\n")
	write(t, p.Root, "solo.md", "# solo\n")
	write(t, p.Root, "pyproject.toml", "[project.scripts]\nfoo_bar = \"tlc.foo_bar:main\"\n")

	rep, err := Build(p, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !rowFor(t, rep, "foo-bar.md").Registered {
		t.Error("foo-bar.md should be registered")
	}
	if rowFor(t, rep, "solo.md").Registered {
		t.Error("solo.md should not be registered")
	}
}

func TestBuild_NoManifestNoLedger(t *testing.T) {
	p := newTestProject(t)
	p.Ledger = nil
	write(t, p.Root, "foo-bar.md", "# foo-bar\n")

	rep, err := Build(p, nil)
	if err != nil {
		t.Fatalf("Build must tolerate a project without manifest or ledger: %v", err)
	}
	if len(rep.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(rep.Rows))
	}
}

func TestBuild_SkipsIgnoredAndInvalidNames(t *testing.T) {
	p := newTestProject(t)
	write(t, p.Root, "README.md", "# readme\n")
	write(t, p.Root, "not a spec.md", "# nope\n")
	write(t, p.Root, "real-spec.md", "# real-spec\n")

	rep, err := Build(p, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(rep.Rows) != 1 || rep.Rows[0].SpecPath != "real-spec.md" {
		t.Errorf("rows = %+v, want only real-spec.md", rep.Rows)
	}
}

func TestBuild_GlobOverride(t *testing.T) {
	p := newTestProject(t)
	write(t, p.Root, "top.md", "# top\n")
	write(t, p.Root, "specs/deep-one.md", "# deep-one\n")

	rep, err := Build(p, []string{"specs/**/*.md"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(rep.Rows) != 1 || rep.Rows[0].SpecPath != "specs/deep-one.md" {
		t.Errorf("rows = %+v, want only specs/deep-one.md", rep.Rows)
	}
}

// --- Render ---

func TestRender_Table(t *testing.T) {
	p := newTestProject(t)
	write(t, p.Root, "foo-bar.md", "# foo-bar\n")

	rep, err := Build(p, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out := Render(rep)
	for _, want := range []string{"SPEC", "MODULE", "STATE", "foo-bar.md", "foo_bar", "not compiled", "1 spec"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Empty(t *testing.T) {
	out := Render(&Report{Root: "/tmp/p"})
	if !strings.Contains(out, "No specifications found") {
		t.Errorf("empty report rendering = %q", out)
	}
}

func TestMarkdown_Table(t *testing.T) {
	p := newTestProject(t)
	write(t, p.Root, "foo-bar.md", "# foo-bar\n")
	record(t, p, "foo-bar.md", "foo_bar", ledger.OutcomeDeclined)

	rep, err := Build(p, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out := Markdown(rep)
	for _, want := range []string{"| Spec |", "| foo-bar.md |", "declined"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}
