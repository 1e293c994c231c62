package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/cfg"
)

var x86 = arch.VocabularyFor(arch.X86_64)

// a: A -> B (jump), B sink, C sink
// b: A -> C (jump), C sink, D sink
const (
	srcA = "A:\n  jmp B\nB:\n  ret\nC:\n  ret\n"
	srcB = "A:\n  jmp C\nC:\n  ret\nD:\n  ret\n"
)

func TestGraphs(t *testing.T) {
	a, b := cfg.Build(srcA, x86), cfg.Build(srcB, x86)
	r := Graphs(a, b)

	assert.Equal(t, []string{"A", "C"}, r.SharedNodes)
	assert.Equal(t, []string{"B"}, r.FirstOnlyNodes)
	assert.Equal(t, []string{"D"}, r.SecondOnlyNodes)
	assert.Empty(t, r.SharedEdges)
	assert.Equal(t, []EdgeKey{{"A", "B"}}, r.FirstOnlyEdges)
	assert.Equal(t, []EdgeKey{{"A", "C"}}, r.SecondOnlyEdges)

	m, ok := r.NodeMembership("D")
	require.True(t, ok)
	assert.Equal(t, Second, m)
	m, _ = r.EdgeMembership("A", "B")
	assert.Equal(t, First, m)
	_, ok = r.NodeMembership("Z")
	assert.False(t, ok)

	assert.InDelta(t, 2.0/6.0, r.Similarity(), 1e-9)
}

func TestGraphs_Symmetric(t *testing.T) {
	a, b := cfg.Build(srcA, x86), cfg.Build(srcB, x86)
	ab, ba := Graphs(a, b), Graphs(b, a)

	assert.Equal(t, ab.SharedNodes, ba.SharedNodes)
	assert.Equal(t, ab.SharedEdges, ba.SharedEdges)
	assert.Equal(t, ab.FirstOnlyNodes, ba.SecondOnlyNodes)
	assert.Equal(t, ab.SecondOnlyEdges, ba.FirstOnlyEdges)
	assert.Equal(t, ab.Similarity(), ba.Similarity())
}

func TestGraphs_Identical(t *testing.T) {
	g := cfg.Build(srcA, x86)
	r := Graphs(g, g)

	assert.Equal(t, []string{"A", "B", "C"}, r.SharedNodes)
	assert.Equal(t, []EdgeKey{{"A", "B"}}, r.SharedEdges)
	assert.Empty(t, r.FirstOnlyNodes)
	assert.Empty(t, r.SecondOnlyNodes)
	assert.Equal(t, 1.0, r.Similarity())

	empty := cfg.Build("", x86)
	assert.Equal(t, 1.0, Graphs(empty, empty).Similarity())
}

func TestCombine(t *testing.T) {
	a, b := cfg.Build(srcA, x86), cfg.Build(srcB, x86)
	g, err := Combine(a, b, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, g.NodeIDs())

	want := map[string]string{"A": "shared", "B": "first", "C": "shared", "D": "second"}
	for id, m := range want {
		blk, ok := g.Node(id)
		require.True(t, ok, id)
		assert.Equal(t, m, blk.Attrs[MembershipAttr], id)
	}

	// C starts on line 4 in a and line 2 in b; b wins.
	c, _ := g.Node("C")
	assert.Equal(t, 2, c.StartLine)

	ab, ok := g.Edge("A", "B")
	require.True(t, ok)
	assert.Equal(t, "first", ab.Attrs[MembershipAttr])
	ac, ok := g.Edge("A", "C")
	require.True(t, ok)
	assert.Equal(t, "second", ac.Attrs[MembershipAttr])
	assert.Equal(t, cfg.EdgeTypeJump, ac.Type)
}

func TestCombine_AttributesOverride(t *testing.T) {
	a, err := cfg.NewGraph(
		[]cfg.Block{{ID: "x", Attrs: map[string]interface{}{"color": "blue", "keep": 1}}, {ID: "y"}},
		[]cfg.Edge{{Source: "x", Target: "y", Type: cfg.EdgeTypeFallthrough}},
	)
	require.NoError(t, err)
	b, err := cfg.NewGraph(
		[]cfg.Block{{ID: "x", Attrs: map[string]interface{}{"color": "green"}}, {ID: "y"}},
		[]cfg.Edge{{Source: "x", Target: "y", Type: cfg.EdgeTypeJump}},
	)
	require.NoError(t, err)

	g, err := Combine(a, b, Options{})
	require.NoError(t, err)

	x, _ := g.Node("x")
	assert.Equal(t, map[string]interface{}{"color": "green", "keep": 1, MembershipAttr: "shared"}, x.Attrs)
	e, _ := g.Edge("x", "y")
	assert.Equal(t, cfg.EdgeTypeJump, e.Type)
	assert.Equal(t, "shared", e.Attrs[MembershipAttr])
}

func TestCombine_MaxNodes(t *testing.T) {
	a, b := cfg.Build(srcA, x86), cfg.Build(srcB, x86)
	g, err := Combine(a, b, Options{MaxNodes: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, g.NodeIDs())
	assert.True(t, g.HasEdge("A", "B"))
	assert.False(t, g.HasEdge("A", "C"))
	assert.Equal(t, 1, g.NumEdges())
}
