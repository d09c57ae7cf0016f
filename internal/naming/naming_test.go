package naming

import (
	"errors"
	"strings"
	"testing"
)

// --- ToModuleID ---

func TestToModuleID(t *testing.T) {
	tests := []struct {
		specID string
		want   string
	}{
		{"foo-bar.md", "foo_bar"},
		{"foo-bar", "foo_bar"},
		{"simple.md", "simple"},
		{"a-b-c.md", "a_b_c"},
		{"Mixed-Case-99.md", "Mixed_Case_99"},
		{"trailing-.md", "trailing_"},
	}

	for _, tt := range tests {
		got, err := ToModuleID(tt.specID)
		if err != nil {
			t.Errorf("ToModuleID(%q) returned error: %v", tt.specID, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToModuleID(%q) = %q, want %q", tt.specID, got, tt.want)
		}
	}
}

func TestToModuleID_NeverContainsHyphen(t *testing.T) {
	inputs := []string{"a.md", "a-b.md", "one-two-three.md", "x-1-y-2.md", "many-many-many-parts.md"}
	for _, in := range inputs {
		got, err := ToModuleID(in)
		if err != nil {
			t.Fatalf("ToModuleID(%q): %v", in, err)
		}
		if strings.Contains(got, "-") {
			t.Errorf("ToModuleID(%q) = %q still contains a hyphen", in, got)
		}
	}
}

func TestToModuleID_Injective(t *testing.T) {
	// Distinct valid spec identifiers must map to distinct module identifiers.
	inputs := []string{
		"foo.md", "foo-bar.md", "foo-bar-baz.md", "foobar.md",
		"a.md", "a-a.md", "aa.md", "a-1.md", "a1.md", "x-y.md", "xy.md",
	}
	seen := map[string]string{}
	for _, in := range inputs {
		got, err := ToModuleID(in)
		if err != nil {
			t.Fatalf("ToModuleID(%q): %v", in, err)
		}
		if prev, dup := seen[got]; dup {
			t.Errorf("collision: ToModuleID(%q) and ToModuleID(%q) both map to %q", in, prev, got)
		}
		seen[got] = in
	}
}

func TestToModuleID_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		specID string
	}{
		{"empty", ""},
		{"only suffix", ".md"},
		{"space", "foo bar.md"},
		{"underscore in spec id", "foo_bar.md"},
		{"dot", "foo.bar.md"},
		{"slash", "specs/foo.md"},
		{"unicode", "café.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToModuleID(tt.specID)
			if err == nil {
				t.Fatalf("ToModuleID(%q) succeeded, want error", tt.specID)
			}
			if !errors.Is(err, ErrInvalidIdentifier) {
				t.Errorf("error = %v, want ErrInvalidIdentifier", err)
			}
		})
	}
}

// --- ToSpecID ---

func TestToSpecID(t *testing.T) {
	tests := []struct {
		moduleID string
		want     string
	}{
		{"foo_bar", "foo-bar"},
		{"simple", "simple"},
		{"a_b_c", "a-b-c"},
	}

	for _, tt := range tests {
		got, err := ToSpecID(tt.moduleID)
		if err != nil {
			t.Errorf("ToSpecID(%q) returned error: %v", tt.moduleID, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToSpecID(%q) = %q, want %q", tt.moduleID, got, tt.want)
		}
	}
}

func TestToSpecID_RejectsHyphen(t *testing.T) {
	_, err := ToSpecID("foo-bar")
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("ToSpecID(\"foo-bar\") error = %v, want ErrInvalidIdentifier", err)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{"foo-bar", "a-b-c", "plain", "v2-handler"}
	for _, in := range inputs {
		mod, err := ToModuleID(in + ".md")
		if err != nil {
			t.Fatalf("ToModuleID(%q): %v", in, err)
		}
		back, err := ToSpecID(mod)
		if err != nil {
			t.Fatalf("ToSpecID(%q): %v", mod, err)
		}
		if back != in {
			t.Errorf("round trip %q -> %q -> %q", in, mod, back)
		}
	}
}
