// Package include splices textual include directives into a single flat
// source, the way an assembler's preprocessor would.
package include

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/asmcfg/internal/log"
	"github.com/l3aro/asmcfg/pkg/source"
)

var (
	// ErrIncludeCycle is reported when a file includes itself, directly or
	// through other files.
	ErrIncludeCycle = errors.New("include cycle")
	// ErrIncludeDepth is reported when nesting exceeds the configured depth.
	ErrIncludeDepth = errors.New("include nesting too deep")
)

// DefaultMaxDepth bounds include nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 32

// keywords are the directive names recognised, compared case-insensitively.
var keywords = []string{"include", ".include"}

// Diagnostic records a directive that could not be expanded. The directive
// line is left in the output unchanged.
type Diagnostic struct {
	Line      int    // 0-based line of the directive within the file containing it
	Source    string // file containing the directive, empty for in-memory text
	Directive string // the directive line, untrimmed
	File      string // referenced file name as written
	Err       error
}

func (d Diagnostic) String() string {
	where := d.Source
	if where == "" {
		where = "<input>"
	}
	return fmt.Sprintf("%s:%d: include %q: %v", where, d.Line+1, d.File, d.Err)
}

// Options configures an Expander.
type Options struct {
	// BaseDir is the directory every include name is resolved against.
	BaseDir string
	// Loader decodes included files. Defaults to source.NewLoader().
	Loader *source.Loader
	// MaxDepth bounds how many files may be open at once, the file passed
	// to Expand included. Zero means DefaultMaxDepth.
	MaxDepth int
	// Logger receives expansion diagnostics. Defaults to log.Nop().
	Logger log.Logger
}

// Expander inlines include directives. An Expander holds no state between
// calls and may be shared.
type Expander struct {
	baseDir  string
	loader   *source.Loader
	maxDepth int
	logger   log.Logger
}

// New creates an Expander.
func New(opts Options) *Expander {
	e := &Expander{
		baseDir:  opts.BaseDir,
		loader:   opts.Loader,
		maxDepth: opts.MaxDepth,
		logger:   opts.Logger,
	}
	if e.baseDir == "" {
		e.baseDir = "."
	}
	if e.loader == nil {
		e.loader = source.NewLoader()
	}
	if e.maxDepth <= 0 {
		e.maxDepth = DefaultMaxDepth
	}
	if e.logger == nil {
		e.logger = log.Nop()
	}
	return e
}

// ParseDirective reports whether line is an include directive and returns
// the referenced file name.
func ParseDirective(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return "", false
	}

	matched := false
	for _, kw := range keywords {
		if strings.EqualFold(fields[0], kw) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}

	name := strings.TrimSpace(trimmed[len(fields[0]):])
	if i := strings.Index(name, ";"); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	name = strings.Trim(name, `"'`)
	name = strings.TrimPrefix(name, "<")
	name = strings.TrimSuffix(name, ">")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	return name, true
}

// Expand inlines every directive in text. origin is the path text was read
// from, used for cycle detection and diagnostics; it may be empty.
func (e *Expander) Expand(text, origin string) (string, []Diagnostic) {
	var stack []string
	if origin != "" {
		stack = append(stack, canonical(origin))
	}
	var diags []Diagnostic
	out := e.expand(text, origin, stack, 1, &diags)
	return out, diags
}

// depth counts the files open at this level, the root text included even
// when it has no origin path.
func (e *Expander) expand(text, origin string, stack []string, depth int, diags *[]Diagnostic) string {
	lines := strings.Split(text, "\n")
	expanded := make([]string, 0, len(lines))

	for i, line := range lines {
		name, ok := ParseDirective(line)
		if !ok {
			expanded = append(expanded, line)
			continue
		}

		body, err := e.include(name, stack, depth, diags)
		if err != nil {
			d := Diagnostic{Line: i, Source: origin, Directive: line, File: name, Err: err}
			*diags = append(*diags, d)
			e.logger.Warn("could not expand include", "file", name, "source", origin, "line", i+1, "error", err)
			expanded = append(expanded, line)
			continue
		}

		e.logger.Debug("expanded include", "file", name)
		expanded = append(expanded, body)
	}

	return strings.Join(expanded, "\n")
}

func (e *Expander) include(name string, stack []string, depth int, diags *[]Diagnostic) (string, error) {
	if depth >= e.maxDepth {
		return "", fmt.Errorf("%w (limit %d)", ErrIncludeDepth, e.maxDepth)
	}

	path, err := e.resolve(name)
	if err != nil {
		return "", err
	}

	key := canonical(path)
	for _, open := range stack {
		if open == key {
			return "", fmt.Errorf("%w: %s", ErrIncludeCycle, path)
		}
	}

	f, err := e.loader.Load(path)
	if err != nil {
		return "", err
	}
	if f.Lossy {
		e.logger.Warn("include decoded with replacement characters", "file", path)
	}

	next := make([]string, len(stack), len(stack)+1)
	copy(next, stack)
	next = append(next, key)
	return e.expand(f.Text, path, next, depth+1, diags), nil
}

// resolve maps a directive name to a path under the base directory. When
// the exact name is missing, a case-insensitive match in the same directory
// is accepted.
func (e *Expander) resolve(name string) (string, error) {
	name = filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.baseDir, name)
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("include %s: %w", path, os.ErrNotExist)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(entry.Name(), base) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("include %s: %w", path, os.ErrNotExist)
}

func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	return path
}
