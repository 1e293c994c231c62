// Package cfg builds control flow graphs from assembly source text by
// splitting it into basic blocks at labels and classifying each block's
// final instruction.
package cfg

import (
	"errors"
	"fmt"
)

// EntryBlockID names the block holding code that precedes the first label.
const EntryBlockID = "entry"

// ErrUnknownNode is returned by NewGraph when an edge refers to a block
// that is not part of the graph.
var ErrUnknownNode = errors.New("unknown node")

// EdgeType records why an edge was added.
type EdgeType string

const (
	EdgeTypeJump        EdgeType = "jump"        // Unconditional jump to a label
	EdgeTypeBranch      EdgeType = "branch"      // Taken side of a conditional jump
	EdgeTypeFallthrough EdgeType = "fallthrough" // Sequential flow into the next block
	EdgeTypeCall        EdgeType = "call"        // Return from a call into the next block
)

// Block is a basic block. Line numbers are 0-based indices into the
// (include-expanded) source and EndLine is inclusive.
type Block struct {
	ID        string                 `json:"id"`
	StartLine int                    `json:"start_line"`
	EndLine   int                    `json:"end_line"`
	Lines     []string               `json:"lines"`
	Attrs     map[string]interface{} `json:"attrs,omitempty"`
}

// Edge is a directed control transfer between two blocks.
type Edge struct {
	Source string                 `json:"source"`
	Target string                 `json:"target"`
	Type   EdgeType               `json:"type,omitempty"`
	Attrs  map[string]interface{} `json:"attrs,omitempty"`
}

// Graph is a control flow graph. It is immutable once returned by Build or
// NewGraph; accessors hand out copies.
type Graph struct {
	blocks []Block
	index  map[string]int
	succ   map[string][]string
	pred   map[string][]string
	edges  map[[2]string]Edge
	order  [][2]string
}

func newGraph(blocks []Block) *Graph {
	g := &Graph{
		blocks: blocks,
		index:  make(map[string]int, len(blocks)),
		succ:   make(map[string][]string),
		pred:   make(map[string][]string),
		edges:  make(map[[2]string]Edge),
	}
	for i, b := range blocks {
		g.index[b.ID] = i
	}
	return g
}

// addEdge adds e unless an edge between the same pair exists. Both
// endpoints must already be nodes.
func (g *Graph) addEdge(e Edge) bool {
	key := [2]string{e.Source, e.Target}
	if _, ok := g.edges[key]; ok {
		return false
	}
	g.edges[key] = e
	g.order = append(g.order, key)
	g.succ[e.Source] = append(g.succ[e.Source], e.Target)
	g.pred[e.Target] = append(g.pred[e.Target], e.Source)
	return true
}

// NewGraph assembles a graph from explicit blocks and edges, as decoders
// and graph combinators need. Block IDs must be unique and every edge
// endpoint must name a block. Duplicate edges are ignored.
func NewGraph(blocks []Block, edges []Edge) (*Graph, error) {
	owned := make([]Block, len(blocks))
	for i, b := range blocks {
		owned[i] = cloneBlock(b)
	}

	g := newGraph(owned)
	if len(g.index) != len(owned) {
		seen := make(map[string]bool, len(owned))
		for _, b := range owned {
			if seen[b.ID] {
				return nil, fmt.Errorf("duplicate node %q", b.ID)
			}
			seen[b.ID] = true
		}
	}

	for _, e := range edges {
		if _, ok := g.index[e.Source]; !ok {
			return nil, fmt.Errorf("edge %s -> %s: %w %q", e.Source, e.Target, ErrUnknownNode, e.Source)
		}
		if _, ok := g.index[e.Target]; !ok {
			return nil, fmt.Errorf("edge %s -> %s: %w %q", e.Source, e.Target, ErrUnknownNode, e.Target)
		}
		e.Attrs = cloneAttrs(e.Attrs)
		g.addEdge(e)
	}
	return g, nil
}

// NumNodes returns the number of blocks.
func (g *Graph) NumNodes() int { return len(g.blocks) }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return len(g.order) }

// Nodes returns the blocks in block order.
func (g *Graph) Nodes() []Block {
	out := make([]Block, len(g.blocks))
	for i, b := range g.blocks {
		out[i] = cloneBlock(b)
	}
	return out
}

// NodeIDs returns the block identities in block order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.blocks))
	for i, b := range g.blocks {
		out[i] = b.ID
	}
	return out
}

// Node returns the block with the given identity.
func (g *Graph) Node(id string) (Block, bool) {
	i, ok := g.index[id]
	if !ok {
		return Block{}, false
	}
	return cloneBlock(g.blocks[i]), true
}

// HasNode reports whether id is a block identity.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.order))
	for i, key := range g.order {
		e := g.edges[key]
		e.Attrs = cloneAttrs(e.Attrs)
		out[i] = e
	}
	return out
}

// Edge returns the edge from source to target.
func (g *Graph) Edge(source, target string) (Edge, bool) {
	e, ok := g.edges[[2]string{source, target}]
	if !ok {
		return Edge{}, false
	}
	e.Attrs = cloneAttrs(e.Attrs)
	return e, true
}

// HasEdge reports whether an edge from source to target exists.
func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.edges[[2]string{source, target}]
	return ok
}

// Successors returns the targets of id's outgoing edges in insertion order.
func (g *Graph) Successors(id string) []string {
	return append([]string(nil), g.succ[id]...)
}

// Predecessors returns the sources of id's incoming edges in insertion order.
func (g *Graph) Predecessors(id string) []string {
	return append([]string(nil), g.pred[id]...)
}

func cloneBlock(b Block) Block {
	b.Lines = append([]string(nil), b.Lines...)
	b.Attrs = cloneAttrs(b.Attrs)
	return b
}

func cloneAttrs(attrs map[string]interface{}) map[string]interface{} {
	if attrs == nil {
		return nil
	}
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
