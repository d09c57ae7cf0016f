// tlc: The Last Compiler
//
// A compiler whose source language is English. Markdown specifications
// go in, runnable modules come out; the translation step is delegated
// to a coding agent invoked as a subprocess. The spec is the source of
// truth — generated modules are build artifacts, edited only by
// recompiling.
//
// Usage:
//
//	tlc new greet-user        # Scaffold a new specification
//	tlc compile greet-user.md # Compile it into a module
//	tlc serve                 # Start the MCP server (stdio transport)
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/tlc-tools/tlc/internal/agent"
	"github.com/tlc-tools/tlc/internal/config"
	"github.com/tlc-tools/tlc/internal/ledger"
	"github.com/tlc-tools/tlc/internal/logbook"
	"github.com/tlc-tools/tlc/internal/naming"
	"github.com/tlc-tools/tlc/internal/pipeline"
	"github.com/tlc-tools/tlc/internal/runner"
	"github.com/tlc-tools/tlc/internal/scaffold"
	tlcserver "github.com/tlc-tools/tlc/internal/server"
	"github.com/tlc-tools/tlc/internal/status"
	"github.com/tlc-tools/tlc/internal/updater"
	"github.com/tlc-tools/tlc/internal/version"
	"github.com/tlc-tools/tlc/internal/watch"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "new":
		os.Exit(runNew(os.Args[2:]))
	case "compile":
		os.Exit(runCompile(os.Args[2:]))
	case "test":
		os.Exit(runTest(os.Args[2:]))
	case "run":
		os.Exit(runRun(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "watch":
		os.Exit(runWatch(os.Args[2:]))
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("tlc v%s\n", version.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

// project bundles what a CLI command needs: the resolved root and a
// pipeline wired for terminal use. close releases the ledger.
type project struct {
	root  string
	pip   *pipeline.Pipeline
	book  *logbook.Logbook
	close func()
}

// openProject locates the project root, bootstraps .tlc/ on first use,
// and wires the compile pipeline in passthrough mode so agent and
// child-process output streams straight to the terminal. A ledger or
// logbook that cannot open degrades that subsystem instead of blocking
// the command.
func openProject() (*project, error) {
	root, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDefault(root); err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	book, err := logbook.New(config.LogbookPath(root))
	if err != nil {
		log.Printf("WARNING: logbook disabled: %v", err)
		book = nil
	}

	led, err := ledger.Open(config.LedgerPath(root))
	cleanup := func() {}
	if err != nil {
		log.Printf("WARNING: compilation ledger disabled: %v", err)
		led = nil
	} else {
		cleanup = func() {
			if err := led.Close(); err != nil {
				log.Printf("WARNING: closing ledger: %v", err)
			}
		}
	}

	pip := &pipeline.Pipeline{
		Root:   root,
		Config: *cfg,
		Invoker: agent.Invoker{
			Command: cfg.Agent.Command,
			Dir:     root,
			Mode:    runner.Passthrough,
			Timeout: cfg.Agent.Timeout(),
		},
		Ledger: led,
		Log:    book,
		Mode:   runner.Passthrough,
	}
	return &project{root: root, pip: pip, book: book, close: cleanup}, nil
}

// findProjectRoot walks up from the working directory to the nearest
// ancestor carrying a .tlc/ tool dir or a project manifest. When
// neither exists yet the working directory itself is the root, which
// lets any command bootstrap a fresh project in place.
func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	manifest := config.Default().Manifest
	for dir := cwd; ; {
		if fi, err := os.Stat(filepath.Join(dir, config.ToolDir)); err == nil && fi.IsDir() {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, manifest)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// exitCode maps an error to the process exit code: 2 for mistakes the
// author can correct, 1 for everything else.
func exitCode(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrSpecNotFound),
		errors.Is(err, pipeline.ErrNoTestsDefined),
		errors.Is(err, naming.ErrInvalidIdentifier),
		errors.Is(err, scaffold.ErrSpecExists):
		return 2
	}
	return 1
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitCode(err)
}

// interruptContext returns a context cancelled by Ctrl-C or SIGTERM,
// so a long agent invocation dies with the command that started it.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runNew(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: tlc new <spec-id>")
		return 2
	}

	proj, err := openProject()
	if err != nil {
		return fail(err)
	}
	defer proj.close()

	specID := strings.TrimSuffix(args[0], ".md")
	if _, err := naming.ToModuleID(specID); err != nil {
		return fail(err)
	}

	specFile := specID + ".md"
	if err := scaffold.Create(filepath.Join(proj.root, specFile), specID); err != nil {
		if errors.Is(err, scaffold.ErrSpecExists) {
			fmt.Fprintf(os.Stderr, "Error: %s already exists — edit it instead\n", specFile)
			return 2
		}
		return fail(err)
	}

	fmt.Printf("Created %s\n", specFile)
	fmt.Printf("Fill in the sections, then: tlc compile %s\n", specFile)
	return 0
}

func runCompile(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: tlc compile <spec.md>")
		return 2
	}

	proj, err := openProject()
	if err != nil {
		return fail(err)
	}
	defer proj.close()

	ctx, stop := interruptContext()
	defer stop()

	res, err := proj.pip.Compile(ctx, args[0])
	if err != nil {
		return fail(err)
	}
	return reportCompile(res)
}

// reportCompile prints the verdict of a compile and returns the exit
// code the process should end with. A decline is a valid outcome, not
// a failure: the agent's reasoning already streamed to the terminal,
// so exit 0 with a pointer back at the spec.
func reportCompile(res pipeline.Result) int {
	switch res.State {
	case pipeline.Compiled:
		if res.UpToDate {
			fmt.Printf("%s is up to date\n", res.ModulePath)
			return 0
		}
		fmt.Printf("Compiled %s in %s\n", res.ModulePath, res.Duration.Round(time.Millisecond))
		if res.TestPath != "" {
			fmt.Printf("Tests: %s\n", res.TestPath)
		}
		return 0
	case pipeline.Declined:
		fmt.Printf("Declined: the agent judged the spec not yet implementable.\n")
		fmt.Printf("Work its questions back into the spec, then compile again.\n")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Compile failed: agent exited with code %d\n", res.AgentExit)
		if res.AgentExit > 0 {
			return res.AgentExit
		}
		return 1
	}
}

func runTest(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tlc test <spec.md> [pytest args]")
		return 2
	}

	proj, err := openProject()
	if err != nil {
		return fail(err)
	}
	defer proj.close()

	ctx, stop := interruptContext()
	defer stop()

	res, out, err := proj.pip.Test(ctx, args[0], forwarded(args[1:]))
	if err != nil {
		return fail(err)
	}
	if res.State != pipeline.Compiled {
		return reportCompile(res)
	}
	return out.ExitCode
}

func runRun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tlc run <spec.md> [-- args]")
		return 2
	}

	proj, err := openProject()
	if err != nil {
		return fail(err)
	}
	defer proj.close()

	ctx, stop := interruptContext()
	defer stop()

	res, out, err := proj.pip.Run(ctx, args[0], forwarded(args[1:]))
	if err != nil {
		return fail(err)
	}
	if res.State != pipeline.Compiled {
		return reportCompile(res)
	}
	return out.ExitCode
}

// forwarded returns the arguments to hand to the child process, minus
// one leading "--" separator if the caller used one.
func forwarded(args []string) []string {
	if len(args) > 0 && args[0] == "--" {
		return args[1:]
	}
	return args
}

func runStatus(args []string) int {
	proj, err := openProject()
	if err != nil {
		return fail(err)
	}
	defer proj.close()

	var globs []string
	if len(args) > 0 {
		globs = args
	}

	rep, err := status.Build(proj.pip, globs)
	if err != nil {
		return fail(err)
	}
	fmt.Print(status.Render(rep))
	return 0
}

func runWatch(args []string) int {
	proj, err := openProject()
	if err != nil {
		return fail(err)
	}
	defer proj.close()

	ctx, stop := interruptContext()
	defer stop()

	globs := proj.pip.Config.SpecGlobs
	if len(args) > 0 {
		globs = args
	}

	fmt.Fprintf(os.Stderr, "Watching %s for spec changes (Ctrl-C to stop)\n", proj.root)

	err = watch.Run(ctx, watch.Options{
		Root:   proj.root,
		Globs:  globs,
		Ignore: proj.pip.Config.SpecIgnore,
		Log:    proj.book,
	}, func(ctx context.Context, spec string) {
		fmt.Fprintf(os.Stderr, "\n-- %s --\n", spec)
		res, err := proj.pip.Compile(ctx, spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		reportCompile(res)
	})
	if err != nil {
		return fail(err)
	}
	return 0
}

func runServe() error {
	root, err := findProjectRoot()
	if err != nil {
		return err
	}

	s, cleanup, err := tlcserver.New(root)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check — prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. This runs in a goroutine during
// "serve" and is best-effort — network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(version.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: tlc update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	result := updater.CheckVersion(version.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(version.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart tlc to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `tlc v%s — The Last Compiler

English in, software out. Markdown specifications compile into runnable
modules; a coding agent performs the translation.

Usage:
  tlc new <spec-id>            Scaffold a new specification
  tlc compile <spec.md>        Compile a specification into a module
  tlc test <spec.md> [args]    Compile if stale, then run the module's tests
  tlc run <spec.md> [-- args]  Compile if stale, then execute the module
  tlc status [glob]            Show every spec and its compile state
  tlc watch [glob]             Recompile specs as they change on disk
  tlc serve                    Start the MCP server (stdio transport)
  tlc update                   Update to the latest version
  tlc version                  Print the version

Configuration lives in .tlc/config.yaml, created on first use.

MCP setup — add to your AI tool's config:

  {
    "mcpServers": {
      "tlc": {
        "command": "tlc",
        "args": ["serve"]
      }
    }
  }

Learn more: https://github.com/tlc-tools/tlc
`, version.Version)
}
