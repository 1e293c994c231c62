package cfg

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/l3aro/asmcfg/internal/log"
	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/include"
	"github.com/l3aro/asmcfg/pkg/source"
)

// IncludeMode selects when include directives are expanded.
type IncludeMode string

const (
	// IncludeAuto expands includes only for files whose extension is listed
	// in Options.IncludeExtensions.
	IncludeAuto   IncludeMode = "auto"
	IncludeAlways IncludeMode = "always"
	IncludeNever  IncludeMode = "never"
)

// ParseIncludeMode validates a mode name. The empty string means auto.
func ParseIncludeMode(s string) (IncludeMode, error) {
	switch m := IncludeMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return IncludeAuto, nil
	case IncludeAuto, IncludeAlways, IncludeNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid include mode %q (must be auto, always or never)", s)
	}
}

// DefaultIncludeExtensions are the file types that get MASM-style include
// expansion in IncludeAuto mode.
var DefaultIncludeExtensions = []string{".asm"}

// Options controls ParseFile and ParseText.
type Options struct {
	// Arch is the architecture to assume when AutoDetect is false. Empty
	// means arch.Default.
	Arch arch.Arch
	// AutoDetect classifies the (expanded) source and overrides Arch.
	AutoDetect bool

	IncludeMode       IncludeMode
	IncludeExtensions []string
	// IncludeDir is the base directory for include names. ParseFile
	// defaults it to the directory of the file.
	IncludeDir      string
	MaxIncludeDepth int

	Encodings []source.Encoding
	Logger    log.Logger
}

func (o Options) logger() log.Logger {
	if o.Logger == nil {
		return log.Nop()
	}
	return o.Logger
}

func (o Options) expandsFile(path string) bool {
	switch o.IncludeMode {
	case IncludeAlways:
		return true
	case IncludeNever:
		return false
	}
	exts := o.IncludeExtensions
	if len(exts) == 0 {
		exts = DefaultIncludeExtensions
	}
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Source is assembly text ready for graph construction.
type Source struct {
	Path        string
	Text        string
	Encoding    source.Encoding
	Lossy       bool
	Expanded    bool
	Arch        arch.Arch
	Diagnostics []include.Diagnostic
}

// Result is a built graph together with the source it came from.
type Result struct {
	Graph  *Graph
	Source *Source
}

// Build constructs the graph for text using vocab.
func Build(text string, vocab arch.Vocabulary) *Graph {
	return BuildLines(strings.Split(text, "\n"), vocab)
}

// BuildLines constructs the graph for pre-split lines using vocab.
func BuildLines(lines []string, vocab arch.Vocabulary) *Graph {
	index := BuildLabelIndex(lines)
	g := newGraph(Partition(lines, index))
	resolveEdges(g, vocab)
	return g
}

// Prepare loads path, expands includes according to opts and selects the
// architecture. It fails only when path itself cannot be read.
func Prepare(path string, opts Options) (*Source, error) {
	logger := opts.logger()

	f, err := source.NewLoader(opts.Encodings...).Load(path)
	if err != nil {
		return nil, err
	}
	if f.Lossy {
		logger.Warn("no encoding matched, decoded with replacement characters", "file", path)
	}

	src := &Source{
		Path:     path,
		Text:     f.Text,
		Encoding: f.Encoding,
		Lossy:    f.Lossy,
	}

	if opts.expandsFile(path) {
		dir := opts.IncludeDir
		if dir == "" {
			dir = filepath.Dir(path)
		}
		src.Text, src.Diagnostics = expander(dir, opts).Expand(src.Text, path)
		src.Expanded = true
		logger.Debug("preprocessed includes", "file", path, "diagnostics", len(src.Diagnostics))
	}

	src.Arch = selectArch(src.Text, opts)
	return src, nil
}

// ParseFile builds the control flow graph of the assembly file at path.
func ParseFile(path string, opts Options) (*Result, error) {
	src, err := Prepare(path, opts)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	g := Build(src.Text, arch.VocabularyFor(src.Arch))
	opts.logger().Debug("built control flow graph", "file", path, "arch", src.Arch,
		"blocks", g.NumNodes(), "edges", g.NumEdges())
	return &Result{Graph: g, Source: src}, nil
}

// ParseText builds the graph of in-memory source. Includes are expanded
// only in IncludeAlways mode, relative to opts.IncludeDir.
func ParseText(text string, opts Options) *Result {
	src := &Source{Text: text, Encoding: source.UTF8}
	if opts.IncludeMode == IncludeAlways {
		src.Text, src.Diagnostics = expander(opts.IncludeDir, opts).Expand(text, "")
		src.Expanded = true
	}
	src.Arch = selectArch(src.Text, opts)
	return &Result{Graph: Build(src.Text, arch.VocabularyFor(src.Arch)), Source: src}
}

func expander(dir string, opts Options) *include.Expander {
	return include.New(include.Options{
		BaseDir:  dir,
		Loader:   source.NewLoader(opts.Encodings...),
		MaxDepth: opts.MaxIncludeDepth,
		Logger:   opts.logger(),
	})
}

func selectArch(text string, opts Options) arch.Arch {
	if opts.AutoDetect {
		return arch.Detect(text)
	}
	if opts.Arch == "" {
		return arch.Default
	}
	return opts.Arch
}
