package cfg

import (
	"strings"

	"github.com/l3aro/asmcfg/pkg/arch"
)

// Terminal describes a block's final instruction.
type Terminal struct {
	Mnemonic string   // lower-case mnemonic, empty when the line has none
	Operands []string // cleaned operand tokens in source order
	Kind     arch.Kind
}

// ParseTerminal splits the last line of a block into mnemonic and operand
// tokens. A leading label declaration and instruction prefixes are skipped.
func ParseTerminal(line string, vocab arch.Vocabulary) Terminal {
	text := strings.TrimSpace(line)
	if loc := labelPattern.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
	}

	fields := strings.Fields(text)
	for len(fields) > 0 && vocab.IsPrefix(strings.ToLower(fields[0])) {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return Terminal{Kind: arch.KindNone}
	}

	mnemonic := strings.ToLower(fields[0])
	operandText := strings.Join(fields[1:], " ")
	if i := strings.Index(operandText, ";"); i >= 0 {
		operandText = operandText[:i]
	}
	if i := strings.Index(operandText, "//"); i >= 0 {
		operandText = operandText[:i]
	}

	var operands []string
	for _, tok := range strings.FieldsFunc(operandText, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		if tok = cleanTarget(tok); tok != "" {
			operands = append(operands, tok)
		}
	}

	return Terminal{
		Mnemonic: mnemonic,
		Operands: operands,
		Kind:     vocab.Classify(mnemonic),
	}
}

// cleanTarget strips trailing separators and an "@PLT"-style linkage suffix.
func cleanTarget(tok string) string {
	tok = strings.TrimRight(strings.TrimSpace(tok), ",:;")
	if i := strings.Index(tok, "@"); i > 0 {
		tok = tok[:i]
	}
	return tok
}

// resolveTarget returns the first operand naming a block.
func resolveTarget(t Terminal, g *Graph) (string, bool) {
	for _, op := range t.Operands {
		if g.HasNode(op) {
			return op, true
		}
	}
	return "", false
}

// resolveEdges adds control flow edges for every block of g in block order.
func resolveEdges(g *Graph, vocab arch.Vocabulary) {
	for i, b := range g.blocks {
		next := ""
		if i+1 < len(g.blocks) {
			next = g.blocks[i+1].ID
		}
		fallthroughTo := func(typ EdgeType) {
			if next != "" {
				g.addEdge(Edge{Source: b.ID, Target: next, Type: typ})
			}
		}

		var last string
		if len(b.Lines) > 0 {
			last = b.Lines[len(b.Lines)-1]
		}
		t := ParseTerminal(last, vocab)

		switch t.Kind {
		case arch.KindCall:
			fallthroughTo(EdgeTypeCall)
		case arch.KindReturn:
			// sink
		case arch.KindJump:
			if target, ok := resolveTarget(t, g); ok {
				g.addEdge(Edge{Source: b.ID, Target: target, Type: EdgeTypeJump})
			}
		case arch.KindBranch:
			if target, ok := resolveTarget(t, g); ok {
				g.addEdge(Edge{Source: b.ID, Target: target, Type: EdgeTypeBranch})
			}
			fallthroughTo(EdgeTypeFallthrough)
		default:
			fallthroughTo(EdgeTypeFallthrough)
		}
	}
}
