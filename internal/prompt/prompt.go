// Package prompt renders the instruction document handed to the external
// code-generation agent before each compilation.
//
// The rendered text is the entire contract between this tool and the agent:
// judge whether the spec is implementable, decline with no file writes if it
// is not, otherwise implement exactly one module, optionally its test file,
// and register the entry point in the build manifest. Nothing else about the
// agent is assumed.
package prompt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// StagingFile is the name of the prompt document inside the tool-owned
// staging directory. One fixed path, overwritten on every compile.
const StagingFile = "prompt.md"

// Params carries everything the template needs. Rendering is deterministic
// given these inputs.
type Params struct {
	ModuleID      string // underscore-case artifact identifier
	SpecPath      string // path of the source specification
	SpecContent   string // raw specification text, embedded in the prompt
	HasTests      bool   // the spec declares a test strategy
	PackageDir    string // target package directory, e.g. "tlc"
	Extension     string // artifact extension without dot, e.g. "py"
	ManifestPath  string // build manifest location, e.g. "pyproject.toml"
	EntryFunction string // entry function name, e.g. "main"
}

// ModulePath returns the artifact path the agent must write.
func (p Params) ModulePath() string {
	return fmt.Sprintf("%s/%s.%s", p.PackageDir, p.ModuleID, p.Extension)
}

// TestPath returns the fixed test artifact path.
func (p Params) TestPath() string {
	return fmt.Sprintf("%s/tests/test_%s.%s", p.PackageDir, p.ModuleID, p.Extension)
}

// EntryRef returns the manifest target in package.module:function form.
func (p Params) EntryRef() string {
	return fmt.Sprintf("%s.%s:%s", p.PackageDir, p.ModuleID, p.EntryFunction)
}

const promptTemplate = `Read the spec below and consider its weaknesses: is it well defined enough to implement as a single self-contained module? Are there any important unanswered questions? Are there any things you don't know how to do? Are any of these blockers to proceeding?

If no: stop, and summarise why you cannot yet implement this spec. Write no files.

If yes: describe what we need to do to implement this module, then implement it.

The module is always {{.ModulePath}}.
{{- if .HasTests}}

A test strategy is specified; implement it in {{.TestPath}}.
{{- end}}

Update {{.ManifestPath}} to register the new entry point: add {{.ModuleID}} = "{{.EntryRef}}" to the entry-point section.

This prompt is sufficient to implement the module. You must only add {{.ModulePath}}{{if .HasTests}} and {{.TestPath}}{{end}}, and edit {{.ManifestPath}}. Touch nothing else.

Here is the specification ({{.SpecPath}}):

{{.SpecContent}}`

var tmpl = template.Must(template.New("prompt").Parse(promptTemplate))

// Build renders the prompt document for one compilation.
func Build(p Params) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("prompt: render: %w", err)
	}
	return buf.String(), nil
}

// Stage writes the rendered prompt to the fixed staging path inside dir,
// creating the directory as needed and overwriting whatever a previous
// compile left there. Returns the staged path.
func Stage(dir, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prompt: create staging dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, StagingFile)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("prompt: stage %s: %w", path, err)
	}
	return path, nil
}
