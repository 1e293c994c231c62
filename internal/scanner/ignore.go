package scanner

import (
	"strings"

	"github.com/bmatcuk/doublestar"
)

// IgnorePattern is a single gitignore-style pattern read from an ignore
// file. Patterns are relative to the directory holding that file.
type IgnorePattern struct {
	pattern  string // original text
	glob     string // doublestar pattern relative to base
	base     string // slash-separated directory of the ignore file, "" for root
	negation bool   // "!pattern"
	dirOnly  bool   // "pattern/"
}

// ParseIgnorePattern parses a pattern declared in the root ignore file.
func ParseIgnorePattern(pattern string) IgnorePattern {
	return parseIgnorePattern(pattern, "")
}

func parseIgnorePattern(pattern, base string) IgnorePattern {
	p := IgnorePattern{pattern: pattern, base: base}

	if strings.HasPrefix(pattern, "!") {
		p.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		p.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	// A pattern without an inner slash matches at any depth; otherwise it is
	// anchored to the ignore file's directory.
	if strings.HasPrefix(pattern, "/") {
		pattern = pattern[1:]
	} else if !strings.Contains(pattern, "/") {
		pattern = "**/" + pattern
	}
	p.glob = pattern

	return p
}

// IsNegation reports whether the pattern re-includes what it matches.
func (p IgnorePattern) IsNegation() bool {
	return p.negation
}

// String returns the pattern as written.
func (p IgnorePattern) String() string {
	return p.pattern
}

// Match reports whether the slash-separated path, relative to the scan
// root, or one of its parent directories matches the pattern.
func (p IgnorePattern) Match(path string, isDir bool) bool {
	if p.base != "" {
		if !strings.HasPrefix(path, p.base+"/") {
			return false
		}
		path = strings.TrimPrefix(path, p.base+"/")
	}

	segments := strings.Split(path, "/")
	for n := len(segments); n > 0; n-- {
		candidate := strings.Join(segments[:n], "/")
		candidateIsDir := isDir || n < len(segments)
		if p.dirOnly && !candidateIsDir {
			continue
		}
		if ok, err := doublestar.Match(p.glob, candidate); err == nil && ok {
			return true
		}
	}
	return false
}

// ignored applies patterns in order; later negations override earlier
// matches.
func ignored(path string, isDir bool, patterns []IgnorePattern) bool {
	result := false
	for _, p := range patterns {
		if p.Match(path, isDir) {
			result = !p.negation
		}
	}
	return result
}
