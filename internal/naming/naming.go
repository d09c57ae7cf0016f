// Package naming converts between the two identifier namespaces the
// compiler works with: spec identifiers (hyphen-delimited, the document
// name without its .md suffix) and module identifiers (underscore-delimited,
// the generated artifact name).
//
// Each namespace owns its delimiter: spec identifiers never contain
// underscores and module identifiers never contain hyphens. That restriction
// is what makes the mapping a collision-free bijection — "foo-bar" and
// "foo_bar" can never name two different specs that land on the same module.
package naming

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIdentifier is returned for identifiers that are empty or
// contain characters outside the restricted alphabet (ASCII letters,
// digits, and the namespace's own delimiter).
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ToModuleID maps a spec identifier to its module identifier. A trailing
// ".md" suffix is stripped first; every hyphen becomes an underscore.
func ToModuleID(specID string) (string, error) {
	id := strings.TrimSuffix(specID, ".md")
	if err := validate(id, '-'); err != nil {
		return "", err
	}
	return strings.ReplaceAll(id, "-", "_"), nil
}

// ToSpecID is the inverse mapping, used only for diagnostics: every
// underscore becomes a hyphen.
func ToSpecID(moduleID string) (string, error) {
	if err := validate(moduleID, '_'); err != nil {
		return "", err
	}
	return strings.ReplaceAll(moduleID, "_", "-"), nil
}

// validate checks id against the restricted alphabet. delimiter is the
// one separator character the namespace allows.
func validate(id string, delimiter rune) error {
	if id == "" {
		return fmt.Errorf("%w: identifier is empty", ErrInvalidIdentifier)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == delimiter:
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidIdentifier, id, r)
		}
	}
	return nil
}
