// Package codec converts control flow graphs to and from node-link
// documents, the layout networkx uses for node_link_data, in JSON or
// msgpack form.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/l3aro/asmcfg/pkg/cfg"
)

// Reserved node and link keys. Any other key is carried as an attribute.
const (
	keyID        = "id"
	keyStartLine = "start_line"
	keyEndLine   = "end_line"
	keyLines     = "lines"
	keySource    = "source"
	keyTarget    = "target"
	keyType      = "type"
)

// MissingLine is stored for line attributes absent from a decoded node.
const MissingLine = -1

// ErrInvalidDocument is returned when a document cannot describe a graph.
var ErrInvalidDocument = errors.New("invalid node-link document")

// Document is a node-link graph document.
type Document struct {
	Directed   bool                     `json:"directed" msgpack:"directed"`
	Multigraph bool                     `json:"multigraph" msgpack:"multigraph"`
	Graph      map[string]interface{}   `json:"graph" msgpack:"graph"`
	Nodes      []map[string]interface{} `json:"nodes" msgpack:"nodes"`
	Links      []map[string]interface{} `json:"links" msgpack:"links"`
}

// wireDocument also accepts the "edges" spelling used by newer networkx
// releases.
type wireDocument struct {
	Directed   bool                     `json:"directed" msgpack:"directed"`
	Multigraph bool                     `json:"multigraph" msgpack:"multigraph"`
	Graph      map[string]interface{}   `json:"graph" msgpack:"graph"`
	Nodes      []map[string]interface{} `json:"nodes" msgpack:"nodes"`
	Links      []map[string]interface{} `json:"links" msgpack:"links"`
	Edges      []map[string]interface{} `json:"edges" msgpack:"edges"`
}

func (w wireDocument) document() *Document {
	links := w.Links
	if links == nil {
		links = w.Edges
	}
	return &Document{
		Directed:   w.Directed,
		Multigraph: w.Multigraph,
		Graph:      w.Graph,
		Nodes:      w.Nodes,
		Links:      links,
	}
}

// FromGraph converts g to a directed node-link document. Attribute values
// that cannot be serialized are replaced by their fmt.Sprint form.
func FromGraph(g *cfg.Graph) *Document {
	doc := &Document{
		Directed: true,
		Graph:    map[string]interface{}{},
		Nodes:    make([]map[string]interface{}, 0, g.NumNodes()),
		Links:    make([]map[string]interface{}, 0, g.NumEdges()),
	}

	for _, b := range g.Nodes() {
		node := attrMap(b.Attrs, keyID, keyStartLine, keyEndLine, keyLines)
		node[keyID] = b.ID
		node[keyStartLine] = b.StartLine
		node[keyEndLine] = b.EndLine
		lines := b.Lines
		if lines == nil {
			lines = []string{}
		}
		node[keyLines] = lines
		doc.Nodes = append(doc.Nodes, node)
	}

	for _, e := range g.Edges() {
		link := attrMap(e.Attrs, keySource, keyTarget, keyType)
		link[keySource] = e.Source
		link[keyTarget] = e.Target
		if e.Type != "" {
			link[keyType] = string(e.Type)
		}
		doc.Links = append(doc.Links, link)
	}

	return doc
}

func attrMap(attrs map[string]interface{}, reserved ...string) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs)+len(reserved))
outer:
	for k, v := range attrs {
		for _, r := range reserved {
			if k == r {
				continue outer
			}
		}
		out[k] = serializable(v)
	}
	return out
}

func serializable(v interface{}) interface{} {
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}

// ToGraph builds a graph from doc. Node identities are coerced to strings.
// Link endpoints without a node entry become bare nodes, and a repeated
// node entry updates the attributes of the first.
func ToGraph(doc *Document) (*cfg.Graph, error) {
	var (
		blocks []cfg.Block
		pos    = make(map[string]int)
	)

	addNode := func(id string) int {
		if i, ok := pos[id]; ok {
			return i
		}
		pos[id] = len(blocks)
		blocks = append(blocks, cfg.Block{ID: id, StartLine: MissingLine, EndLine: MissingLine})
		return pos[id]
	}

	for i, node := range doc.Nodes {
		raw, ok := node[keyID]
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: node %d has no id", ErrInvalidDocument, i)
		}
		at := addNode(idString(raw))
		b := &blocks[at]
		if v, ok := node[keyStartLine]; ok {
			b.StartLine = toInt(v)
		}
		if v, ok := node[keyEndLine]; ok {
			b.EndLine = toInt(v)
		}
		if v, ok := node[keyLines]; ok {
			b.Lines = toLines(v)
		}
		for k, v := range node {
			switch k {
			case keyID, keyStartLine, keyEndLine, keyLines:
				continue
			}
			if b.Attrs == nil {
				b.Attrs = make(map[string]interface{})
			}
			b.Attrs[k] = v
		}
	}

	edges := make([]cfg.Edge, 0, len(doc.Links))
	for i, link := range doc.Links {
		src, ok1 := link[keySource]
		dst, ok2 := link[keyTarget]
		if !ok1 || !ok2 || src == nil || dst == nil {
			return nil, fmt.Errorf("%w: link %d needs source and target", ErrInvalidDocument, i)
		}
		e := cfg.Edge{Source: idString(src), Target: idString(dst)}
		addNode(e.Source)
		addNode(e.Target)
		for k, v := range link {
			switch k {
			case keySource, keyTarget:
				continue
			case keyType:
				if s, ok := v.(string); ok {
					e.Type = cfg.EdgeType(s)
					continue
				}
			}
			if e.Attrs == nil {
				e.Attrs = make(map[string]interface{})
			}
			e.Attrs[k] = v
		}
		edges = append(edges, e)
	}

	return cfg.NewGraph(blocks, edges)
}

func idString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toInt(v interface{}) int {
	switch x := v.(type) {
	case int:
		return x
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	case float32:
		return int(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return MissingLine
		}
		return int(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(x); err == nil {
			return n
		}
	}
	return MissingLine
}

func toLines(v interface{}) []string {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []interface{}:
		out := make([]string, len(x))
		for i, item := range x {
			if s, ok := item.(string); ok {
				out[i] = s
			} else {
				out[i] = fmt.Sprint(item)
			}
		}
		return out
	case string:
		return []string{x}
	}
	return nil
}
