package scanner

import (
	"path/filepath"
	"sort"
	"strings"
)

// Kind classifies a file by the role it plays for asmcfg.
type Kind string

const (
	KindUnknown  Kind = ""
	KindAssembly Kind = "assembly"
	KindInclude  Kind = "include"
	KindGraph    Kind = "graph"
)

// kindMap maps lower-case file extensions to kinds.
var kindMap = map[string]Kind{
	// GAS, clang and MASM sources. ".S" lower-cases to ".s".
	".s":   KindAssembly,
	".asm": KindAssembly,

	// MASM companion files
	".inc": KindInclude,

	// Encoded graphs
	".json":    KindGraph,
	".msgpack": KindGraph,
	".mpk":     KindGraph,
}

// DetectKind returns the kind for a file extension (with leading dot).
func DetectKind(ext string) Kind {
	return kindMap[strings.ToLower(ext)]
}

// KindOf returns the kind of the file at path.
func KindOf(path string) Kind {
	return DetectKind(filepath.Ext(path))
}

// IsAssembly reports whether path names an assembly source file.
func IsAssembly(path string) bool {
	return KindOf(path) == KindAssembly
}

// IsGraph reports whether path names an encoded graph file.
func IsGraph(path string) bool {
	return KindOf(path) == KindGraph
}

// Extensions returns the sorted extensions registered for k.
func Extensions(k Kind) []string {
	var exts []string
	for ext, kind := range kindMap {
		if kind == k {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}
