package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tlc-tools/tlc/internal/runner"
)

// --- Invoke ---

func TestInvoke_AppendsInstruction(t *testing.T) {
	fake := writeFakeAgent(t, `printf '%s\n' "$@"`)

	inv := Invoker{Command: []string{fake}, Mode: runner.Captured}
	out, err := inv.Invoke(context.Background(), ".tlc/prompt.md")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	want := "Follow the instructions in .tlc/prompt.md"
	if got := strings.TrimSpace(string(out.Output)); got != want {
		t.Errorf("agent argv = %q, want %q", got, want)
	}
}

func TestInvoke_KeepsExtraCommandWords(t *testing.T) {
	fake := writeFakeAgent(t, `printf '%s\n' "$@"`)

	inv := Invoker{Command: []string{fake, "--model", "fast"}, Mode: runner.Captured}
	out, err := inv.Invoke(context.Background(), "p.md")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out.Output)), "\n")
	if len(lines) != 3 {
		t.Fatalf("agent saw %d args, want 3: %q", len(lines), lines)
	}
	if lines[0] != "--model" || lines[1] != "fast" {
		t.Errorf("configured words not preserved: %q", lines)
	}
	if lines[2] != "Follow the instructions in p.md" {
		t.Errorf("instruction not last: %q", lines[2])
	}
}

func TestInvoke_ReportsExitCode(t *testing.T) {
	fake := writeFakeAgent(t, "exit 7")

	inv := Invoker{Command: []string{fake}, Mode: runner.Captured}
	out, err := inv.Invoke(context.Background(), "p.md")
	if err != nil {
		t.Fatalf("a non-zero agent exit should not be an error: %v", err)
	}
	if out.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", out.ExitCode)
	}
}

// --- Failure modes ---

func TestInvoke_MissingExecutable(t *testing.T) {
	inv := Invoker{Command: []string{"tlc-agent-that-does-not-exist"}, Mode: runner.Captured}

	_, err := inv.Invoke(context.Background(), "p.md")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestInvoke_NoCommandConfigured(t *testing.T) {
	inv := Invoker{Mode: runner.Captured}

	if _, err := inv.Invoke(context.Background(), "p.md"); err == nil {
		t.Error("empty agent command should be rejected")
	}
}

func TestInvoke_Timeout(t *testing.T) {
	fake := writeFakeAgent(t, "sleep 5")

	inv := Invoker{Command: []string{fake}, Mode: runner.Captured, Timeout: 50 * time.Millisecond}
	_, err := inv.Invoke(context.Background(), "p.md")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

// --- helpers ---

func writeFakeAgent(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-agent")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("writing fake agent: %v", err)
	}
	return path
}
