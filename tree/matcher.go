package tree

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher selects files by slash-separated path relative
// to the input root. A pattern without "/" also matches
// the base name, so "*.md" excludes README.md at any
// depth.
type Matcher struct {
	// Include, when non-empty, keeps only matching
	// files.
	Include []string

	// Exclude drops matching files. It wins over
	// Include.
	Exclude []string
}

// Validate checks every pattern's syntax.
func (ma Matcher) Validate() error {
	const errCtx = "validating patterns"

	for _, pat := range append(
		append([]string(nil), ma.Include...),
		ma.Exclude...,
	) {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf(
				"%s: bad pattern %q", errCtx, pat,
			)
		}
	}

	return nil
}

// Match reports whether rel is selected.
func (ma Matcher) Match(rel string) bool {
	if anyMatch(ma.Exclude, rel) {
		return false
	}

	if len(ma.Include) == 0 {
		return true
	}

	return anyMatch(ma.Include, rel)
}

func anyMatch(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matchOne(pat, rel) {
			return true
		}
	}

	return false
}

// matchOne ignores pattern errors; patterns are checked
// up front by Validate.
func matchOne(pat string, rel string) bool {
	if ok, _ := doublestar.Match(pat, rel); ok { //nolint:errcheck // validated
		return true
	}

	if strings.Contains(pat, "/") {
		return false
	}

	ok, _ := doublestar.Match(pat, path.Base(rel)) //nolint:errcheck // validated

	return ok
}
