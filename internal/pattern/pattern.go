// Package pattern implements the glob-style matching used for agent names
// and file paths, plus regex compilation for text search.
package pattern

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Wildcard matches every candidate.
const Wildcard = "*"

// Match checks an agent-name pattern against a candidate. Agent patterns are
// flat strings: "*" matches everything, a trailing "*" matches by literal
// prefix, anything else is an exact case-sensitive comparison.
func Match(pattern, candidate string) bool {
	if pattern == Wildcard {
		return true
	}
	if strings.HasSuffix(pattern, "*") && !strings.ContainsAny(strings.TrimSuffix(pattern, "*"), "*?[{") {
		return strings.HasPrefix(candidate, strings.TrimSuffix(pattern, "*"))
	}
	if !strings.ContainsAny(pattern, "*?[{") {
		return pattern == candidate
	}
	// General glob for patterns with embedded wildcards.
	ok, err := doublestar.Match(pattern, candidate)
	return err == nil && ok
}

// MatchPath checks a file glob against a path. Patterns support the usual
// single-segment globs plus ** for arbitrary-depth directory matching.
// A bare-filename pattern (no separator) also matches against the path's
// base name, so "tasks.jsonc" protects the file regardless of directory.
func MatchPath(pattern, path string) bool {
	p := filepath.ToSlash(path)
	if pattern == Wildcard || pattern == "**" {
		return true
	}
	if ok, err := doublestar.Match(pattern, p); err == nil && ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if ok, err := doublestar.Match(pattern, filepath.Base(p)); err == nil && ok {
			return true
		}
	}
	return false
}

// Validate rejects malformed glob syntax. Called at configuration load so
// that pattern errors surface before any rule runs.
func Validate(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty pattern")
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid glob pattern %q", pattern)
	}
	return nil
}
