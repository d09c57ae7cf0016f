// Package specset discovers specification documents in a project by
// glob patterns, used by the status and watch commands.
package specset

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover returns the spec files under root matching any of globs,
// minus those matching an ignore pattern. Paths come back relative to
// root, slash separated, sorted, without duplicates. Hidden path
// segments are never descended into, which keeps .tlc/ and .git/ out
// of every listing.
func Discover(root string, globs, ignore []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := map[string]bool{}
	var specs []string

	for _, g := range globs {
		matches, err := doublestar.Glob(fsys, g)
		if err != nil {
			return nil, fmt.Errorf("specset: glob %q: %w", g, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			if hasHiddenSegment(m) || Ignored(m, ignore) {
				continue
			}
			info, err := fs.Stat(fsys, m)
			if err != nil || info.IsDir() {
				continue
			}
			specs = append(specs, m)
		}
	}

	sort.Strings(specs)
	return specs, nil
}

// Matches reports whether a slash-separated relative path belongs to
// the spec set described by globs and ignore. The watch loop uses it
// to filter filesystem events.
func Matches(rel string, globs, ignore []string) bool {
	if hasHiddenSegment(rel) || Ignored(rel, ignore) {
		return false
	}
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// Ignored reports whether the path matches an ignore pattern, either
// as a full relative path or by bare file name, so "README.md" covers
// a README anywhere in the tree.
func Ignored(rel string, ignore []string) bool {
	base := path.Base(rel)
	for _, p := range ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}

func hasHiddenSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}
