// Package pipeline drives a specification through compilation: decide
// whether the generated module is stale, render and stage the agent
// prompt, invoke the agent, classify the result, and verify the
// manifest registration afterwards.
//
// Partial writes are handled through the run ledger rather than file
// inspection: a recorded run that did not end in a clean compile keeps
// its artifact stale, so an agent killed mid-write is compiled again
// next time. An artifact with no recorded run at all (a fresh clone, a
// wiped ledger) is judged by modification times alone, the same
// degradation that applies when the ledger cannot be opened.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tlc-tools/tlc/internal/agent"
	"github.com/tlc-tools/tlc/internal/config"
	"github.com/tlc-tools/tlc/internal/ledger"
	"github.com/tlc-tools/tlc/internal/logbook"
	"github.com/tlc-tools/tlc/internal/manifest"
	"github.com/tlc-tools/tlc/internal/naming"
	"github.com/tlc-tools/tlc/internal/prompt"
	"github.com/tlc-tools/tlc/internal/runner"
)

var (
	// ErrSpecNotFound reports a compile of a specification that does
	// not exist on disk.
	ErrSpecNotFound = errors.New("pipeline: spec not found")

	// ErrNoTestsDefined reports a test run against a module whose spec
	// produced no test artifact.
	ErrNoTestsDefined = errors.New("pipeline: no tests defined")
)

// State names a position in the compilation state machine.
type State int

const (
	Uncompiled State = iota
	PromptRendered
	AgentInvoked
	Compiled
	Declined
	Failed
)

func (s State) String() string {
	switch s {
	case Uncompiled:
		return "uncompiled"
	case PromptRendered:
		return "prompt rendered"
	case AgentInvoked:
		return "agent invoked"
	case Compiled:
		return "compiled"
	case Declined:
		return "declined"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Invoker is the opaque judge-and-implement collaborator. The real one
// launches the external agent; tests substitute a stub.
type Invoker interface {
	Invoke(ctx context.Context, promptPath string) (runner.Outcome, error)
}

// Result reports one drive of the state machine.
type Result struct {
	State      State
	UpToDate   bool // artifact was already fresh; no agent ran
	ModuleID   string
	ModulePath string
	TestPath   string // empty when the spec declares no test strategy
	AgentExit  int
	AgentOut   []byte // captured mode only
	Duration   time.Duration
}

// Pipeline orchestrates compilation for one project.
type Pipeline struct {
	Root    string
	Config  config.Config
	Invoker Invoker
	Ledger  *ledger.Ledger   // nil degrades staleness to mtime only
	Log     *logbook.Logbook // nil disables the journal
	Mode    runner.Mode      // output mode for test and run children
}

// Compile drives specPath to a terminal state. A Declined or Failed
// agent verdict is a classified Result, not an error; errors are
// reserved for the machinery around the agent.
func (p *Pipeline) Compile(ctx context.Context, specPath string) (Result, error) {
	specKey := filepath.ToSlash(filepath.Clean(specPath))

	moduleID, err := naming.ToModuleID(filepath.Base(specKey))
	if err != nil {
		return Result{}, err
	}

	res := Result{
		State:      Uncompiled,
		ModuleID:   moduleID,
		ModulePath: p.modulePath(moduleID),
	}

	content, err := os.ReadFile(p.abs(specPath))
	if errors.Is(err, os.ErrNotExist) {
		return res, fmt.Errorf("%w: %s", ErrSpecNotFound, specKey)
	}
	if err != nil {
		return res, fmt.Errorf("pipeline: read spec: %w", err)
	}

	hasTests := strings.Contains(strings.ToLower(string(content)), "test")
	if hasTests {
		res.TestPath = p.testPath(moduleID)
	}

	if p.fresh(specPath, res.ModulePath) {
		res.State = Compiled
		res.UpToDate = true
		return res, nil
	}

	params := prompt.Params{
		ModuleID:      moduleID,
		SpecPath:      specKey,
		SpecContent:   string(content),
		HasTests:      hasTests,
		PackageDir:    p.Config.Package,
		Extension:     p.Config.Extension,
		ManifestPath:  p.Config.Manifest,
		EntryFunction: p.Config.EntryFunction,
	}
	text, err := prompt.Build(params)
	if err != nil {
		return res, err
	}
	stagePath, err := prompt.Stage(config.ToolPath(p.Root), text)
	if err != nil {
		return res, err
	}
	res.State = PromptRendered

	start := time.Now()
	out, err := p.Invoker.Invoke(ctx, stagePath)
	res.Duration = time.Since(start)
	res.AgentExit = out.ExitCode
	res.AgentOut = out.Output
	if err != nil {
		// The agent may have written a partial artifact before a
		// timeout killed it; a failed row keeps it from looking fresh.
		// A missing executable means no child ever ran, so no row is owed.
		if !errors.Is(err, agent.ErrNotFound) {
			p.record(specKey, moduleID, content, ledger.OutcomeFailed, out.ExitCode, res.Duration)
		}
		res.State = Failed
		return res, err
	}
	res.State = AgentInvoked

	if out.ExitCode != 0 {
		res.State = Failed
		p.record(specKey, moduleID, content, ledger.OutcomeFailed, out.ExitCode, res.Duration)
		p.Log.Error("compile %s: agent exited with code %d", specKey, out.ExitCode)
		return res, nil
	}

	if _, err := os.Stat(filepath.Join(p.Root, res.ModulePath)); err != nil {
		res.State = Declined
		p.record(specKey, moduleID, content, ledger.OutcomeDeclined, 0, res.Duration)
		p.Log.Info("compile %s: declined as underspecified", specKey)
		return res, nil
	}

	res.State = Compiled
	p.record(specKey, moduleID, content, ledger.OutcomeCompiled, 0, res.Duration)

	// The prompt instructs the agent to register the entry point; this
	// repairs the manifest when it forgot, and bootstraps the section
	// in a project that never had one.
	if _, err := manifest.EnsureEntryCreateSection(
		filepath.Join(p.Root, p.Config.Manifest), moduleID, params.EntryRef(),
	); err != nil {
		return res, err
	}

	p.Log.Info("compiled %s -> %s in %s", specKey, res.ModulePath, res.Duration.Round(time.Millisecond))
	return res, nil
}

// Test drives Compile first, then executes the module's test artifact.
// The child's exit code comes back in the Outcome for the caller to
// mirror.
func (p *Pipeline) Test(ctx context.Context, specPath string, args []string) (Result, runner.Outcome, error) {
	res, err := p.Compile(ctx, specPath)
	if err != nil || res.State != Compiled {
		return res, runner.Outcome{}, err
	}

	testPath := p.testPath(res.ModuleID)
	if _, err := os.Stat(filepath.Join(p.Root, testPath)); err != nil {
		return res, runner.Outcome{}, fmt.Errorf("%w: %s", ErrNoTestsDefined, testPath)
	}

	argv := append(append(cloneArgv(p.Config.TestCommand), testPath), args...)
	out, err := runner.Run(ctx, runner.Spec{Argv: argv, Dir: p.Root, Mode: p.Mode})
	return res, out, err
}

// Run drives Compile first, then executes the registered command,
// forwarding args verbatim. The child's exit code comes back in the
// Outcome for the caller to mirror.
func (p *Pipeline) Run(ctx context.Context, specPath string, args []string) (Result, runner.Outcome, error) {
	res, err := p.Compile(ctx, specPath)
	if err != nil || res.State != Compiled {
		return res, runner.Outcome{}, err
	}

	argv := append(append(cloneArgv(p.Config.RunCommand), res.ModuleID), args...)
	out, err := runner.Run(ctx, runner.Spec{Argv: argv, Dir: p.Root, Mode: p.Mode})
	return res, out, err
}

// Fresh reports whether the module generated from specPath is current,
// without compiling anything. Status uses it.
func (p *Pipeline) Fresh(specPath string) bool {
	moduleID, err := naming.ToModuleID(filepath.Base(specPath))
	if err != nil {
		return false
	}
	return p.fresh(specPath, p.modulePath(moduleID))
}

// fresh applies the staleness rule: the artifact exists, is at least
// as new as the spec, and the latest recorded run, if any, ended
// compiled.
func (p *Pipeline) fresh(specPath, modulePath string) bool {
	specInfo, err := os.Stat(p.abs(specPath))
	if err != nil {
		return false
	}
	artInfo, err := os.Stat(filepath.Join(p.Root, modulePath))
	if err != nil {
		return false
	}
	if artInfo.ModTime().Before(specInfo.ModTime()) {
		return false
	}

	if p.Ledger == nil {
		p.Log.Warn("staleness check for %s degraded to mtime only (no ledger)", specPath)
		return true
	}
	rec, err := p.Ledger.Latest(filepath.ToSlash(filepath.Clean(specPath)))
	if err != nil {
		p.Log.Warn("staleness check for %s degraded to mtime only: %v", specPath, err)
		return true
	}
	if rec == nil {
		// No run recorded: committed artifacts from a fresh clone, or
		// a wiped .tlc/. The mtime comparison decides alone; any run
		// this tool performed left a row, so crashes still recompile.
		return true
	}
	return rec.Outcome == ledger.OutcomeCompiled
}

func (p *Pipeline) record(specKey, moduleID string, content []byte, outcome string, exit int, d time.Duration) {
	if p.Ledger == nil {
		return
	}
	_, err := p.Ledger.Record(ledger.Record{
		SpecPath:  specKey,
		ModuleID:  moduleID,
		SpecHash:  ledger.HashContent(content),
		Outcome:   outcome,
		AgentExit: exit,
		Duration:  d,
	})
	if err != nil {
		p.Log.Warn("ledger write failed for %s: %v", specKey, err)
	}
}

func (p *Pipeline) abs(specPath string) string {
	if filepath.IsAbs(specPath) {
		return specPath
	}
	return filepath.Join(p.Root, specPath)
}

func (p *Pipeline) modulePath(moduleID string) string {
	return filepath.ToSlash(filepath.Join(p.Config.Package, moduleID+"."+p.Config.Extension))
}

func (p *Pipeline) testPath(moduleID string) string {
	return filepath.ToSlash(filepath.Join(p.Config.Package, "tests", "test_"+moduleID+"."+p.Config.Extension))
}

func cloneArgv(argv []string) []string {
	out := make([]string, 0, len(argv)+2)
	return append(out, argv...)
}
