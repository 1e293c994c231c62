package cfg

import (
	"fmt"
	"strings"
)

// Partition splits lines into basic blocks at the label lines recorded in
// index. Blank and comment lines belong to no block. Code before the first
// label forms the entry block.
func Partition(lines []string, index *LabelIndex) []Block {
	var (
		blocks  []Block
		current *Block
	)

	closeBlock := func() {
		if current != nil && len(current.Lines) > 0 {
			blocks = append(blocks, *current)
		}
		current = nil
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !IsContent(trimmed) {
			continue
		}

		if name, ok := index.LabelAt(i); ok {
			closeBlock()
			current = &Block{ID: name, StartLine: i}
		} else if current == nil {
			current = &Block{ID: entryID(index, i), StartLine: i}
		}

		current.Lines = append(current.Lines, trimmed)
		current.EndLine = i
	}
	closeBlock()

	return blocks
}

// entryID names the leading unlabeled block. A label called "entry" would
// collide, so a line-based identity is used instead.
func entryID(index *LabelIndex, line int) string {
	if !index.Has(EntryBlockID) {
		return EntryBlockID
	}
	id := fmt.Sprintf("block_%d", line)
	for n := 1; index.Has(id); n++ {
		id = fmt.Sprintf("block_%d_%d", line, n)
	}
	return id
}
