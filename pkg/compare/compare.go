// Package compare reports which blocks and edges two control flow graphs
// have in common and merges them into one annotated graph.
package compare

import (
	"sort"

	"github.com/l3aro/asmcfg/pkg/cfg"
)

// Membership says which input graphs contain a node or edge.
type Membership string

const (
	Shared Membership = "shared"
	First  Membership = "first"
	Second Membership = "second"
)

// MembershipAttr is the attribute Combine sets on every node and edge.
const MembershipAttr = "membership"

// EdgeKey identifies an edge by its endpoints.
type EdgeKey struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Result is the outcome of comparing two graphs. Every list is sorted.
type Result struct {
	SharedNodes     []string  `json:"shared_nodes"`
	FirstOnlyNodes  []string  `json:"first_only_nodes"`
	SecondOnlyNodes []string  `json:"second_only_nodes"`
	SharedEdges     []EdgeKey `json:"shared_edges"`
	FirstOnlyEdges  []EdgeKey `json:"first_only_edges"`
	SecondOnlyEdges []EdgeKey `json:"second_only_edges"`

	nodes map[string]Membership
	edges map[EdgeKey]Membership
}

// Graphs compares a and b by block identity and by edge endpoints.
func Graphs(a, b *cfg.Graph) *Result {
	r := &Result{
		SharedNodes:     []string{},
		FirstOnlyNodes:  []string{},
		SecondOnlyNodes: []string{},
		SharedEdges:     []EdgeKey{},
		FirstOnlyEdges:  []EdgeKey{},
		SecondOnlyEdges: []EdgeKey{},
		nodes:           make(map[string]Membership),
		edges:           make(map[EdgeKey]Membership),
	}

	for _, id := range a.NodeIDs() {
		if b.HasNode(id) {
			r.nodes[id] = Shared
			r.SharedNodes = append(r.SharedNodes, id)
		} else {
			r.nodes[id] = First
			r.FirstOnlyNodes = append(r.FirstOnlyNodes, id)
		}
	}
	for _, id := range b.NodeIDs() {
		if !a.HasNode(id) {
			r.nodes[id] = Second
			r.SecondOnlyNodes = append(r.SecondOnlyNodes, id)
		}
	}

	for _, e := range a.Edges() {
		k := EdgeKey{e.Source, e.Target}
		if b.HasEdge(e.Source, e.Target) {
			r.edges[k] = Shared
			r.SharedEdges = append(r.SharedEdges, k)
		} else {
			r.edges[k] = First
			r.FirstOnlyEdges = append(r.FirstOnlyEdges, k)
		}
	}
	for _, e := range b.Edges() {
		if !a.HasEdge(e.Source, e.Target) {
			k := EdgeKey{e.Source, e.Target}
			r.edges[k] = Second
			r.SecondOnlyEdges = append(r.SecondOnlyEdges, k)
		}
	}

	sort.Strings(r.SharedNodes)
	sort.Strings(r.FirstOnlyNodes)
	sort.Strings(r.SecondOnlyNodes)
	sortEdges(r.SharedEdges)
	sortEdges(r.FirstOnlyEdges)
	sortEdges(r.SecondOnlyEdges)
	return r
}

func sortEdges(keys []EdgeKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Source != keys[j].Source {
			return keys[i].Source < keys[j].Source
		}
		return keys[i].Target < keys[j].Target
	})
}

// NodeMembership returns where the block id occurs.
func (r *Result) NodeMembership(id string) (Membership, bool) {
	m, ok := r.nodes[id]
	return m, ok
}

// EdgeMembership returns where the edge source -> target occurs.
func (r *Result) EdgeMembership(source, target string) (Membership, bool) {
	m, ok := r.edges[EdgeKey{source, target}]
	return m, ok
}

// Similarity is the Jaccard index over nodes and edges together. Two empty
// graphs are identical.
func (r *Result) Similarity() float64 {
	shared := len(r.SharedNodes) + len(r.SharedEdges)
	total := len(r.nodes) + len(r.edges)
	if total == 0 {
		return 1
	}
	return float64(shared) / float64(total)
}

// Options controls Combine.
type Options struct {
	// MaxNodes keeps only the first MaxNodes nodes of the union, and the
	// edges between them. Zero keeps everything.
	MaxNodes int
}

// Combine returns the union of a and b. Nodes of a come first in a's
// order, followed by the nodes only b has. Where both graphs hold a node
// or edge, b's data wins. Every node and edge carries MembershipAttr.
func Combine(a, b *cfg.Graph, opts Options) (*cfg.Graph, error) {
	r := Graphs(a, b)

	var blocks []cfg.Block
	pos := make(map[string]int)
	merge := func(blk cfg.Block) {
		if i, ok := pos[blk.ID]; ok {
			blk.Attrs = mergeAttrs(blocks[i].Attrs, blk.Attrs)
			blocks[i] = blk
			return
		}
		pos[blk.ID] = len(blocks)
		blocks = append(blocks, blk)
	}
	for _, blk := range a.Nodes() {
		merge(blk)
	}
	for _, blk := range b.Nodes() {
		merge(blk)
	}

	if opts.MaxNodes > 0 && len(blocks) > opts.MaxNodes {
		for _, blk := range blocks[opts.MaxNodes:] {
			delete(pos, blk.ID)
		}
		blocks = blocks[:opts.MaxNodes]
	}
	for i := range blocks {
		m, _ := r.NodeMembership(blocks[i].ID)
		blocks[i].Attrs = mergeAttrs(blocks[i].Attrs, map[string]interface{}{MembershipAttr: string(m)})
	}

	var edges []cfg.Edge
	epos := make(map[EdgeKey]int)
	mergeEdge := func(e cfg.Edge) {
		if _, ok := pos[e.Source]; !ok {
			return
		}
		if _, ok := pos[e.Target]; !ok {
			return
		}
		k := EdgeKey{e.Source, e.Target}
		if i, ok := epos[k]; ok {
			e.Attrs = mergeAttrs(edges[i].Attrs, e.Attrs)
			edges[i] = e
			return
		}
		epos[k] = len(edges)
		edges = append(edges, e)
	}
	for _, e := range a.Edges() {
		mergeEdge(e)
	}
	for _, e := range b.Edges() {
		mergeEdge(e)
	}
	for i := range edges {
		m, _ := r.EdgeMembership(edges[i].Source, edges[i].Target)
		edges[i].Attrs = mergeAttrs(edges[i].Attrs, map[string]interface{}{MembershipAttr: string(m)})
	}

	return cfg.NewGraph(blocks, edges)
}

func mergeAttrs(base, over map[string]interface{}) map[string]interface{} {
	if base == nil && over == nil {
		return nil
	}
	out := make(map[string]interface{}, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
