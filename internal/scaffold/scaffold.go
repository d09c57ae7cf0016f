// Package scaffold produces the skeleton text for brand-new specification
// documents and writes them to disk for the `new` command.
package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrSpecExists is returned when the target path already holds a file.
// A scaffold never overwrites an author's prior work.
var ErrSpecExists = errors.New("spec file already exists")

// specTemplate is the fixed scaffold. The three section headers are the
// contract: compile-worthy specs keep all three, filled in by the author.
// The placeholders deliberately avoid the word "test" so a fresh scaffold
// does not read as declaring a test strategy.
const specTemplate = `# %s

## Inputs

_Describe the inputs this module consumes._

## Outputs

_Describe the outputs this module produces._

## Implementation

_Describe how the module should work, step by step._
`

// Render returns the scaffold text for specID. Pure function; the same
// identifier always yields the same document.
func Render(specID string) string {
	title := strings.TrimSuffix(specID, ".md")
	return fmt.Sprintf(specTemplate, title)
}

// Create writes the scaffold for specID to path, creating parent
// directories as needed. Fails with ErrSpecExists if path already
// exists; the exclusive create closes the check-then-write race.
func Create(path, specID string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("scaffold: create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %s", ErrSpecExists, path)
	}
	if err != nil {
		return fmt.Errorf("scaffold: create %s: %w", path, err)
	}

	if _, err := f.Write([]byte(Render(specID))); err != nil {
		f.Close()
		return fmt.Errorf("scaffold: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("scaffold: write %s: %w", path, err)
	}
	return nil
}
