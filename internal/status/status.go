// Package status assembles the project overview: every known
// specification, its module's freshness, the last recorded run, and
// whether the module is registered in the build manifest.
//
// Specs are known either by matching the discovery globs or by having
// a ledger entry, so a spec compiled once and then moved out of the
// glob set still shows up instead of silently vanishing.
package status

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tlc-tools/tlc/internal/ledger"
	"github.com/tlc-tools/tlc/internal/manifest"
	"github.com/tlc-tools/tlc/internal/naming"
	"github.com/tlc-tools/tlc/internal/pipeline"
	"github.com/tlc-tools/tlc/internal/specset"
)

// Freshness classifies a spec's module artifact.
type Freshness int

const (
	Fresh Freshness = iota
	Stale
	NotCompiled
	SpecMissing
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case NotCompiled:
		return "not compiled"
	case SpecMissing:
		return "spec missing"
	}
	return "unknown"
}

// Row is one spec's line in the report.
type Row struct {
	SpecPath    string
	ModuleID    string
	Freshness   Freshness
	LastOutcome string // empty when the ledger has no run
	LastRun     string // display form, empty when never run
	Registered  bool
}

// Report is the assembled project overview.
type Report struct {
	Root string
	Rows []Row
}

// Build gathers the report for one project. globs overrides the
// configured discovery patterns when non-empty. A missing manifest or
// ledger thins the report instead of failing it.
func Build(p *pipeline.Pipeline, globs []string) (*Report, error) {
	cfg := p.Config
	if len(globs) == 0 {
		globs = cfg.SpecGlobs
	}

	specs, err := specset.Discover(p.Root, globs, cfg.SpecIgnore)
	if err != nil {
		return nil, err
	}

	known := map[string]bool{}
	for _, s := range specs {
		known[s] = true
	}

	latest := map[string]ledger.Record{}
	if p.Ledger != nil {
		records, err := p.Ledger.LatestAll()
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			latest[rec.SpecPath] = rec
			known[rec.SpecPath] = true
		}
	}

	registered := map[string]bool{}
	entries, err := manifest.Entries(filepath.Join(p.Root, cfg.Manifest))
	if err != nil && !errors.Is(err, manifest.ErrNotFound) {
		return nil, err
	}
	for _, e := range entries {
		registered[e.Name] = true
	}

	paths := make([]string, 0, len(known))
	for s := range known {
		paths = append(paths, s)
	}
	sort.Strings(paths)

	report := &Report{Root: p.Root}
	for _, spec := range paths {
		moduleID, err := naming.ToModuleID(path.Base(spec))
		if err != nil {
			// Markdown files outside the identifier alphabet cannot be
			// compiled, so they have no place in the report.
			continue
		}

		row := Row{
			SpecPath:  spec,
			ModuleID:  moduleID,
			Freshness: classify(p, cfg.Package, cfg.Extension, spec, moduleID),
		}
		if rec, ok := latest[spec]; ok {
			row.LastOutcome = rec.Outcome
			row.LastRun = displayTime(rec.CreatedAt)
		}
		row.Registered = registered[moduleID]
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

func classify(p *pipeline.Pipeline, pkg, ext, spec, moduleID string) Freshness {
	if _, err := os.Stat(filepath.Join(p.Root, filepath.FromSlash(spec))); err != nil {
		return SpecMissing
	}
	artifact := filepath.Join(p.Root, pkg, moduleID+"."+ext)
	if _, err := os.Stat(artifact); err != nil {
		return NotCompiled
	}
	if p.Fresh(spec) {
		return Fresh
	}
	return Stale
}

// displayTime shortens a ledger RFC3339 timestamp for the table.
func displayTime(created string) string {
	ts, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return created
	}
	return ts.Local().Format("2006-01-02 15:04")
}

// --- Rendering ---

// Lattice-style palette; lipgloss drops the color codes on dumb
// terminals and under NO_COLOR.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	freshStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6BCB77"))
	staleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD93D"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

func stateStyle(f Freshness) lipgloss.Style {
	switch f {
	case Fresh:
		return freshStyle
	case Stale:
		return staleStyle
	case SpecMissing:
		return missingStyle
	}
	return dimStyle
}

var columns = []string{"SPEC", "MODULE", "STATE", "LAST RUN", "MANIFEST"}

// Render formats the report for a terminal.
func Render(r *Report) string {
	if len(r.Rows) == 0 {
		return "No specifications found. Create one with: tlc new <spec-id>.md\n"
	}

	cells := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		cells[i] = []string{
			row.SpecPath,
			row.ModuleID,
			row.Freshness.String(),
			lastRunCell(row),
			manifestCell(row),
		}
	}

	widths := make([]int, len(columns))
	for i, h := range columns {
		widths[i] = len(h)
	}
	for _, row := range cells {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("tlc · "+r.Root) + "\n\n")

	head := make([]string, len(columns))
	for i, h := range columns {
		head[i] = pad(h, widths[i])
	}
	b.WriteString(headerStyle.Render(strings.Join(head, "  ")) + "\n")

	for i, row := range cells {
		line := []string{
			pad(row[0], widths[0]),
			pad(row[1], widths[1]),
			stateStyle(r.Rows[i].Freshness).Render(pad(row[2], widths[2])),
			dimStyle.Render(pad(row[3], widths[3])),
			pad(row[4], widths[4]),
		}
		b.WriteString(strings.Join(line, "  ") + "\n")
	}

	b.WriteString("\n" + dimStyle.Render(summary(r)) + "\n")
	return b.String()
}

// Markdown formats the report as a markdown table for callers without
// a terminal, such as the MCP status tool.
func Markdown(r *Report) string {
	var b strings.Builder
	b.WriteString("# tlc status\n\n")
	if len(r.Rows) == 0 {
		b.WriteString("No specifications found. Create one with `tlc_new`.\n")
		return b.String()
	}

	b.WriteString("| Spec | Module | State | Last run | Manifest |\n")
	b.WriteString("|------|--------|-------|----------|----------|\n")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			row.SpecPath, row.ModuleID, row.Freshness, lastRunCell(row), manifestCell(row))
	}
	b.WriteString("\n" + summary(r) + "\n")
	return b.String()
}

func lastRunCell(row Row) string {
	if row.LastOutcome == "" {
		return "never"
	}
	return row.LastOutcome + " " + row.LastRun
}

func manifestCell(row Row) string {
	if row.Registered {
		return "registered"
	}
	return "-"
}

func summary(r *Report) string {
	counts := map[Freshness]int{}
	for _, row := range r.Rows {
		counts[row.Freshness]++
	}
	parts := []string{plural(len(r.Rows), "spec")}
	if n := counts[Fresh]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d fresh", n))
	}
	if n := counts[Stale]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d stale", n))
	}
	if n := counts[NotCompiled]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d not compiled", n))
	}
	if n := counts[SpecMissing]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d missing", n))
	}
	return strings.Join(parts, " · ")
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
