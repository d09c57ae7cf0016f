// Package manifest edits the project's entry point registry, the
// [project.scripts] section of pyproject.toml. Edits are line
// structured so every unrelated line, comment, and blank survives a
// registration byte for byte; the file is never regenerated wholesale.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ScriptsSection is the entry point section this tool manages.
const ScriptsSection = "project.scripts"

var (
	// ErrNotFound reports a missing manifest file.
	ErrNotFound = errors.New("manifest: file not found")

	// ErrMalformed reports a manifest this editor cannot safely change.
	ErrMalformed = errors.New("manifest: malformed document")

	// ErrSectionMissing reports that the entry point section is absent.
	ErrSectionMissing = errors.New("manifest: section missing")
)

// Entry is one command registration in document order.
type Entry struct {
	Name   string
	Target string
}

// Document is a manifest held as lines. Only the section being edited
// is interpreted; everything else is carried through untouched.
type Document struct {
	lines        []string
	finalNewline bool
}

// Parse splits data into lines and rejects section headers it could
// not locate reliably later. Entry lines are validated lazily, when a
// section is actually edited, so unrelated multi-line values elsewhere
// in the file never trip the editor.
func Parse(data []byte) (*Document, error) {
	text := string(data)
	finalNewline := strings.HasSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(t, "[") {
			continue
		}
		close := strings.Index(t, "]")
		if close < 0 {
			return nil, fmt.Errorf("%w: unterminated section header on line %d", ErrMalformed, i+1)
		}
		if strings.TrimSpace(t[1:close]) == "" {
			return nil, fmt.Errorf("%w: empty section name on line %d", ErrMalformed, i+1)
		}
	}
	return &Document{lines: lines, finalNewline: finalNewline}, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return Parse(data)
}

// Bytes serializes the document, byte-identical to its source when
// nothing was changed.
func (d *Document) Bytes() []byte {
	text := strings.Join(d.lines, "\n")
	if d.finalNewline {
		text += "\n"
	}
	return []byte(text)
}

// Save writes the document back to path.
func (d *Document) Save(path string) error {
	if err := os.WriteFile(path, d.Bytes(), 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// EnsureEntry registers name = "target" in the given section. An
// identical entry is left alone, a differing one is overwritten on its
// own line, a new one is appended at the end of the section. Reports
// whether the document changed.
func (d *Document) EnsureEntry(section, name, target string) (bool, error) {
	start, end, err := d.sectionBounds(section)
	if err != nil {
		return false, err
	}

	for i := start + 1; i < end; i++ {
		key, value, ok, err := parseEntryLine(d.lines[i], i)
		if err != nil {
			return false, err
		}
		if !ok || key != name {
			continue
		}
		if value == target {
			return false, nil
		}
		indent := d.lines[i][:len(d.lines[i])-len(strings.TrimLeft(d.lines[i], " \t"))]
		d.lines[i] = indent + formatEntry(name, target)
		return true, nil
	}

	// Append after the last entry, keeping any blank separator lines
	// between this section and the next header where they were.
	at := end
	for at > start+1 && strings.TrimSpace(d.lines[at-1]) == "" {
		at--
	}
	d.lines = append(d.lines[:at], append([]string{formatEntry(name, target)}, d.lines[at:]...)...)
	return true, nil
}

// EnsureSection appends an empty section at the end of the document if
// it is not already present. Reports whether it was added.
func (d *Document) EnsureSection(section string) bool {
	if _, _, err := d.sectionBounds(section); err == nil {
		return false
	}
	if len(d.lines) > 0 && strings.TrimSpace(d.lines[len(d.lines)-1]) != "" {
		d.lines = append(d.lines, "")
	}
	d.lines = append(d.lines, "["+section+"]")
	d.finalNewline = true
	return true
}

// Lookup returns the target registered under name in the section.
func (d *Document) Lookup(section, name string) (string, bool, error) {
	entries, err := d.Entries(section)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e.Target, true, nil
		}
	}
	return "", false, nil
}

// Entries lists the section's registrations in document order.
func (d *Document) Entries(section string) ([]Entry, error) {
	start, end, err := d.sectionBounds(section)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for i := start + 1; i < end; i++ {
		key, value, ok, err := parseEntryLine(d.lines[i], i)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, Entry{Name: key, Target: value})
		}
	}
	return entries, nil
}

// sectionBounds returns the header line index and the index of the
// line after the section's last line.
func (d *Document) sectionBounds(section string) (int, int, error) {
	header := "[" + section + "]"
	start := -1
	for i, line := range d.lines {
		if strings.TrimSpace(line) == header {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, 0, fmt.Errorf("%w: [%s]", ErrSectionMissing, section)
	}
	end := len(d.lines)
	for i := start + 1; i < len(d.lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(d.lines[i]), "[") {
			end = i
			break
		}
	}
	return start, end, nil
}

// parseEntryLine reads one key = "value" line. Blank lines and
// comments report ok=false; anything else without an equals sign is
// malformed, since the entry section is a flat string map.
func parseEntryLine(line string, index int) (key, value string, ok bool, err error) {
	t := strings.TrimSpace(line)
	if t == "" || strings.HasPrefix(t, "#") {
		return "", "", false, nil
	}
	eq := strings.Index(t, "=")
	if eq <= 0 {
		return "", "", false, fmt.Errorf("%w: expected key = value on line %d", ErrMalformed, index+1)
	}
	key = trimQuotes(strings.TrimSpace(t[:eq]))
	value = trimQuotes(strings.TrimSpace(t[eq+1:]))
	if key == "" {
		return "", "", false, fmt.Errorf("%w: empty key on line %d", ErrMalformed, index+1)
	}
	return key, value, true, nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func formatEntry(name, target string) string {
	return fmt.Sprintf("%s = %q", name, target)
}

// EnsureEntry edits the manifest file at path, registering name under
// [project.scripts]. The file is rewritten only when its content
// actually changes.
func EnsureEntry(path, name, target string) (bool, error) {
	doc, err := Load(path)
	if err != nil {
		return false, err
	}
	changed, err := doc.EnsureEntry(ScriptsSection, name, target)
	if err != nil || !changed {
		return false, err
	}
	return true, doc.Save(path)
}

// EnsureEntryCreateSection is EnsureEntry for the bootstrap case: when
// the project has never declared an entry point section, one is
// synthesized at the end of the file.
func EnsureEntryCreateSection(path, name, target string) (bool, error) {
	doc, err := Load(path)
	if err != nil {
		return false, err
	}
	created := doc.EnsureSection(ScriptsSection)
	changed, err := doc.EnsureEntry(ScriptsSection, name, target)
	if err != nil {
		return false, err
	}
	if !created && !changed {
		return false, nil
	}
	return true, doc.Save(path)
}

// Lookup reads the target registered for name, if any. A manifest
// without the section simply has no registrations.
func Lookup(path, name string) (string, bool, error) {
	doc, err := Load(path)
	if err != nil {
		return "", false, err
	}
	target, ok, err := doc.Lookup(ScriptsSection, name)
	if errors.Is(err, ErrSectionMissing) {
		return "", false, nil
	}
	return target, ok, err
}

// Entries lists every registration, empty when the section is absent.
func Entries(path string) ([]Entry, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	entries, err := doc.Entries(ScriptsSection)
	if errors.Is(err, ErrSectionMissing) {
		return nil, nil
	}
	return entries, err
}
