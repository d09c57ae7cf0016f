// Package server wires serve mode and creates the MCP server instance.
//
// This is the composition root: it loads the project configuration,
// opens the ledger and logbook, builds the compilation pipeline, and
// injects it into the tools/prompts/resources. No business logic lives
// here — only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/tlc-tools/tlc/internal/agent"
	"github.com/tlc-tools/tlc/internal/config"
	"github.com/tlc-tools/tlc/internal/ledger"
	"github.com/tlc-tools/tlc/internal/logbook"
	"github.com/tlc-tools/tlc/internal/pipeline"
	"github.com/tlc-tools/tlc/internal/prompts"
	"github.com/tlc-tools/tlc/internal/resources"
	"github.com/tlc-tools/tlc/internal/runner"
	"github.com/tlc-tools/tlc/internal/tools"
	"github.com/tlc-tools/tlc/internal/version"
)

// New creates and configures the MCP server for the project at root,
// with all tools, prompts, and resources registered. This is the single
// place where all dependencies are resolved.
//
// The returned cleanup function closes the run ledger and must be
// called on shutdown (typically via defer). It is always non-nil and
// safe to call even if the ledger failed to open.
func New(root string) (*server.MCPServer, func(), error) {
	if err := config.EnsureDefault(root); err != nil {
		return nil, noop, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, noop, fmt.Errorf("loading config: %w", err)
	}

	book, err := logbook.New(config.LogbookPath(root))
	if err != nil {
		log.Printf("WARNING: logbook disabled: %v", err)
		book = nil
	}

	// The ledger is an independent subsystem: if it fails to open, the
	// tools keep working with staleness degraded to modification times.
	cleanup := noop
	led, ledErr := ledger.Open(config.LedgerPath(root))
	if ledErr != nil {
		log.Printf("WARNING: run ledger disabled: %v", ledErr)
		led = nil
	} else {
		cleanup = func() {
			if err := led.Close(); err != nil {
				log.Printf("WARNING: ledger close: %v", err)
			}
		}
	}

	// Serve mode captures agent output: the MCP host has no terminal to
	// stream into, so tools return the output tail instead.
	pip := &pipeline.Pipeline{
		Root:   root,
		Config: *cfg,
		Invoker: agent.Invoker{
			Command: cfg.Agent.Command,
			Dir:     root,
			Mode:    runner.Captured,
			Timeout: cfg.Agent.Timeout(),
		},
		Ledger: led,
		Log:    book,
		Mode:   runner.Captured,
	}

	s := server.NewMCPServer(
		"tlc",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	scaffoldTool := tools.NewScaffoldTool(root, cfg)
	s.AddTool(scaffoldTool.Definition(), scaffoldTool.Handle)

	compileTool := tools.NewCompileTool(pip)
	s.AddTool(compileTool.Definition(), compileTool.Handle)

	statusTool := tools.NewStatusTool(pip)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	// --- Register prompts ---

	compilePrompt := prompts.NewCompilePrompt()
	s.AddPrompt(compilePrompt.Definition(), compilePrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(pip)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s, cleanup, nil
}

// noop is the default cleanup when the ledger isn't open.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to drive tlc.
func serverInstructions() string {
	return `You have access to tlc, The Last Compiler — an MCP server that compiles
markdown specifications into runnable program modules.

## What tlc Does

In this project the specification IS the source. Each module is described
by one markdown spec (e.g. resize-images.md). Compiling hands the spec to
an external code-generation agent, which either implements the module or
declines because the spec is underspecified. Humans edit specs; the
compiler produces the code.

## CRITICAL: Edit Specs, Not Modules

Generated module files are build artifacts. NEVER edit them directly —
the next compile overwrites your change. When the user wants different
behavior:
1. Edit the specification
2. Call tlc_compile to regenerate the module

## Tools

- tlc_new: scaffold a fresh spec (Inputs / Outputs / Implementation)
- tlc_compile: compile one spec into its runnable module
- tlc_status: list every spec with its compilation state

## Workflow

1. Call tlc_status to see what exists and what went stale
2. For a new module, call tlc_new, then help the user fill in the three
   sections with real content — concrete inputs, outputs, and steps.
   NEVER leave the scaffold placeholders in a spec you intend to compile.
3. Call tlc_compile with the spec path
4. Act on the verdict:
   - Compiled: report the module path; the user runs it with tlc run
   - Up to date: nothing changed since the last compile; no work done
   - Declined: the agent judged the spec underspecified and wrote
     nothing. Its notes name the open questions. Propose spec edits that
     answer them, apply the ones the user approves, and compile again.
     A decline is feedback, not a failure — do not retry without
     changing the spec.
   - Failed: the agent crashed; show the output tail and investigate

## Spec Naming

Spec names are hyphen-case (resize-images.md); the compiled module is
the underscore twin (resize_images). The two alphabets never mix, so
every spec maps to exactly one module and back.

## Important Rules

- One spec compiles to exactly one module
- Mention tests in a spec and the agent also writes the test file
- Compilation can take minutes — the agent is doing real work
- The .tlc/ directory belongs to the tool; never edit it by hand`
}
