package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/cfg"
)

const src = `main:
  ; call setup first
  CALL setup
  jmp done
setup:
  call init
  ret
done:
  ret
`

func TestSearcher_GraphWithSource(t *testing.T) {
	g := cfg.Build(src, arch.VocabularyFor(arch.X86_64))
	s, err := New(`\bcall\b`, Options{})
	require.NoError(t, err)

	matches := s.Graph(g, strings.Split(src, "\n"))
	require.Len(t, matches, 2)

	assert.Equal(t, Match{Block: "main", Line: 2, Text: "CALL setup", Column: 0, Successors: []string{"done"}}, matches[0])
	assert.Equal(t, "setup", matches[1].Block)
	assert.Equal(t, 5, matches[1].Line)
	assert.Equal(t, "call init", matches[1].Text)
}

func TestSearcher_SkipsComments(t *testing.T) {
	text := "A:\n  ; old: jmp B\n  // jmp B\n  nop\n  ret\nB:\n  ret"
	g := cfg.Build(text, arch.VocabularyFor(arch.X86_64))
	s, err := New(`jmp`, Options{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		lines []string
	}{
		{"with source", strings.Split(text, "\n")},
		{"without source", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, s.Graph(g, tt.lines))
		})
	}
}

func TestSearcher_GraphWithoutSource(t *testing.T) {
	g := cfg.Build(src, arch.VocabularyFor(arch.X86_64))
	s, err := New(`call`, Options{CaseSensitive: true})
	require.NoError(t, err)

	matches := s.Graph(g, nil)
	require.Len(t, matches, 1)
	assert.Equal(t, "setup", matches[0].Block)
	assert.Equal(t, -1, matches[0].Line)
	assert.Equal(t, "call init", matches[0].Text)
}

func TestSearcher_MaxResults(t *testing.T) {
	g := cfg.Build(src, arch.VocabularyFor(arch.X86_64))
	s, err := New(`ret`, Options{MaxResults: 1})
	require.NoError(t, err)

	matches := s.Graph(g, strings.Split(src, "\n"))
	require.Len(t, matches, 1)
	assert.Equal(t, "setup", matches[0].Block)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("", Options{})
	assert.Error(t, err)
	_, err = New("(", Options{})
	assert.Error(t, err)
}
