package cfg

import (
	"regexp"
	"strings"
)

// labelPattern matches a label declaration at the start of a trimmed line:
// ".LBB0_1:", "main:", "@@loop:", "$done:".
var labelPattern = regexp.MustCompile(`^([.\w$@?]+):`)

// commentPrefixes mark whole-line comments across GAS, MASM and C-style
// assembler dialects.
var commentPrefixes = []string{"#", ";", "//"}

func isComment(trimmed string) bool {
	for _, p := range commentPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// IsContent reports whether a trimmed line belongs to a block. Blank
// lines and comments do not.
func IsContent(trimmed string) bool {
	return trimmed != "" && !isComment(trimmed)
}

// labelName returns the label declared at the start of a trimmed line.
func labelName(trimmed string) (string, bool) {
	if !IsContent(trimmed) {
		return "", false
	}
	m := labelPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// LabelIndex maps label names to the line declaring them. When a name is
// declared more than once the last declaration wins and the earlier line
// no longer counts as a label line.
type LabelIndex struct {
	lines  map[string]int
	byLine map[int]string
}

// BuildLabelIndex scans lines for label declarations.
func BuildLabelIndex(lines []string) *LabelIndex {
	idx := &LabelIndex{
		lines:  make(map[string]int),
		byLine: make(map[int]string),
	}
	for i, line := range lines {
		if name, ok := labelName(strings.TrimSpace(line)); ok {
			idx.set(name, i)
		}
	}
	return idx
}

func (x *LabelIndex) set(name string, line int) {
	if prev, ok := x.lines[name]; ok {
		delete(x.byLine, prev)
	}
	x.lines[name] = line
	x.byLine[line] = name
}

// Line returns the line on which name is (last) declared.
func (x *LabelIndex) Line(name string) (int, bool) {
	line, ok := x.lines[name]
	return line, ok
}

// LabelAt returns the label whose effective declaration is on line.
func (x *LabelIndex) LabelAt(line int) (string, bool) {
	name, ok := x.byLine[line]
	return name, ok
}

// Has reports whether name is a declared label.
func (x *LabelIndex) Has(name string) bool {
	_, ok := x.lines[name]
	return ok
}
