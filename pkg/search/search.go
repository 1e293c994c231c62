// Package search finds instructions matching a regular expression and
// reports the basic block each match belongs to.
package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/l3aro/asmcfg/pkg/cfg"
)

// Options configures a Searcher.
type Options struct {
	// CaseSensitive disables the default case-insensitive matching.
	CaseSensitive bool
	// MaxResults limits the matches returned per graph. 0 means no limit.
	MaxResults int
}

// Match is one matching block line.
type Match struct {
	// Block is the ID of the block holding the line.
	Block string `json:"block"`
	// Line is the 0-based source line, or -1 when the source is unknown.
	Line int `json:"line"`
	// Text is the trimmed line.
	Text string `json:"text"`
	// Column is the byte offset of the match within Text.
	Column int `json:"column"`
	// Successors of Block, for locating the match in the graph.
	Successors []string `json:"successors,omitempty"`
}

// Searcher matches a compiled pattern against graph blocks.
type Searcher struct {
	re   *regexp.Regexp
	opts Options
}

// New compiles pattern.
func New(pattern string, opts Options) (*Searcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}
	flags := ""
	if !opts.CaseSensitive {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling regex: %w", err)
	}
	return &Searcher{re: re, opts: opts}, nil
}

// Graph returns the matches in g ordered by block position, then line.
// When lines holds the text g was built from, the content lines in a
// block's span are searched and Line is exact. Blank and comment lines are
// skipped. Otherwise the lines stored in the
// blocks are searched and Line is -1.
func (s *Searcher) Graph(g *cfg.Graph, lines []string) []Match {
	var matches []Match
	add := func(b cfg.Block, line int, text string) bool {
		loc := s.re.FindStringIndex(text)
		if loc == nil {
			return false
		}
		matches = append(matches, Match{
			Block:      b.ID,
			Line:       line,
			Text:       text,
			Column:     loc[0],
			Successors: g.Successors(b.ID),
		})
		return s.opts.MaxResults > 0 && len(matches) >= s.opts.MaxResults
	}

	for _, b := range g.Nodes() {
		if lines != nil && b.StartLine >= 0 && b.EndLine < len(lines) {
			for i := b.StartLine; i <= b.EndLine; i++ {
				text := strings.TrimSpace(lines[i])
				if !cfg.IsContent(text) {
					continue
				}
				if add(b, i, text) {
					return matches
				}
			}
			continue
		}
		for _, text := range b.Lines {
			if add(b, -1, text) {
				return matches
			}
		}
	}
	return matches
}
