package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/cfg"
)

const sample = "mov rax, 1\nA:\n  cmp rax, 0\n  je C\nB:\n  call f\nC:\n  ret\nf:\n  ret\n"

func buildSample() *cfg.Graph {
	return cfg.Build(sample, arch.VocabularyFor(arch.X86_64))
}

func assertSameGraph(t *testing.T, want, got *cfg.Graph) {
	t.Helper()
	require.Equal(t, want.NodeIDs(), got.NodeIDs())
	for _, wb := range want.Nodes() {
		gb, ok := got.Node(wb.ID)
		require.True(t, ok, wb.ID)
		assert.Equal(t, wb.StartLine, gb.StartLine, wb.ID)
		assert.Equal(t, wb.EndLine, gb.EndLine, wb.ID)
		assert.Equal(t, wb.Lines, gb.Lines, wb.ID)
	}
	require.Equal(t, want.NumEdges(), got.NumEdges())
	for _, we := range want.Edges() {
		ge, ok := got.Edge(we.Source, we.Target)
		require.True(t, ok, "%s -> %s", we.Source, we.Target)
		assert.Equal(t, we.Type, ge.Type)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	g := buildSample()

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, g))

	got, err := DecodeJSON(&buf)
	require.NoError(t, err)
	assertSameGraph(t, g, got)
}

func TestMsgpackRoundTrip(t *testing.T) {
	g := buildSample()

	var buf bytes.Buffer
	require.NoError(t, EncodeMsgpack(&buf, g))

	got, err := DecodeMsgpack(&buf)
	require.NoError(t, err)
	assertSameGraph(t, g, got)
}

func TestEncodeJSON_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, buildSample()))

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))

	assert.Equal(t, true, raw["directed"])
	assert.Equal(t, false, raw["multigraph"])
	assert.Equal(t, map[string]interface{}{}, raw["graph"])

	nodes := raw["nodes"].([]interface{})
	first := nodes[0].(map[string]interface{})
	assert.Equal(t, "entry", first["id"])
	assert.Equal(t, float64(0), first["start_line"])
	assert.Equal(t, float64(0), first["end_line"])
	assert.Equal(t, []interface{}{"mov rax, 1"}, first["lines"])

	links := raw["links"].([]interface{})
	link := links[0].(map[string]interface{})
	assert.Equal(t, "entry", link["source"])
	assert.Equal(t, "A", link["target"])
	assert.Equal(t, "fallthrough", link["type"])
}

func TestDecodeJSON_NetworkxVariants(t *testing.T) {
	doc := `{
		"directed": true,
		"multigraph": false,
		"graph": {},
		"nodes": [
			{"id": 1, "label": "first"},
			{"id": "two", "start_line": 4, "end_line": 6, "lines": ["a:", "nop", 7]}
		],
		"edges": [
			{"source": 1, "target": "two", "weight": 2},
			{"source": "two", "target": 3, "type": "jump"}
		]
	}`

	g, err := DecodeJSON(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "two", "3"}, g.NodeIDs())

	one, _ := g.Node("1")
	assert.Equal(t, MissingLine, one.StartLine)
	assert.Equal(t, MissingLine, one.EndLine)
	assert.Equal(t, map[string]interface{}{"label": "first"}, one.Attrs)

	two, _ := g.Node("two")
	assert.Equal(t, 4, two.StartLine)
	assert.Equal(t, 6, two.EndLine)
	assert.Equal(t, []string{"a:", "nop", "7"}, two.Lines)

	e, ok := g.Edge("1", "two")
	require.True(t, ok)
	assert.Equal(t, cfg.EdgeType(""), e.Type)
	assert.Equal(t, map[string]interface{}{"weight": float64(2)}, e.Attrs)

	e, ok = g.Edge("two", "3")
	require.True(t, ok)
	assert.Equal(t, cfg.EdgeTypeJump, e.Type)
}

func TestDecodeJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", "{"},
		{"node without id", `{"nodes": [{"label": "x"}], "links": []}`},
		{"link without target", `{"nodes": [{"id": "a"}], "links": [{"source": "a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := DecodeJSON(strings.NewReader(`{"nodes": [{}]}`))
	assert.True(t, errors.Is(err, ErrInvalidDocument))
}

func TestFromGraph_Attributes(t *testing.T) {
	g, err := cfg.NewGraph(
		[]cfg.Block{
			{ID: "a", Attrs: map[string]interface{}{"membership": "shared", "id": "ignored", "ch": make(chan int)}},
			{ID: "b"},
		},
		[]cfg.Edge{{Source: "a", Target: "b", Attrs: map[string]interface{}{"membership": "first"}}},
	)
	require.NoError(t, err)

	doc := FromGraph(g)
	node := doc.Nodes[0]
	assert.Equal(t, "a", node["id"])
	assert.Equal(t, "shared", node["membership"])
	assert.IsType(t, "", node["ch"])
	assert.Equal(t, []string{}, doc.Nodes[1]["lines"])

	link := doc.Links[0]
	assert.Equal(t, "first", link["membership"])
	assert.NotContains(t, link, "type")

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, g))
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		err  bool
	}{
		{"g.json", FormatJSON, false},
		{"G.JSON", FormatJSON, false},
		{"g.msgpack", FormatMsgpack, false},
		{"g.mpk", FormatMsgpack, false},
		{"g.pkl", "", true},
		{"g", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatForPath(tt.path)
			if tt.err {
				assert.True(t, errors.Is(err, ErrUnknownFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("MsgPack")
	require.NoError(t, err)
	assert.Equal(t, FormatMsgpack, f)

	_, err = ParseFormat("yaml")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	g := buildSample()

	for _, name := range []string{"out/graph.json", "out/graph.msgpack"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, g))

			got, err := ReadFile(path)
			require.NoError(t, err)
			assertSameGraph(t, g, got)
		})
	}

	err := WriteFile(filepath.Join(dir, "graph.txt"), g)
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
