// Package scanner walks a directory tree for assembly sources and encoded
// graphs. It honours .asmcfgignore files with gitignore-style patterns and
// classifies files by extension.
package scanner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultIgnoreFileName is read in every scanned directory.
const DefaultIgnoreFileName = ".asmcfgignore"

// FileInfo represents information about a discovered file.
type FileInfo struct {
	Path     string // Relative slash-separated path from root
	FullPath string // Absolute path
	Kind     Kind
	Size     int64
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	FollowSymlinks  bool     // Follow file symlinks that stay within root
	DefaultExcludes []string // Directory names never entered
	IgnoreFileName  string   // Name of the ignore file (default: .asmcfgignore)
	// Kinds restricts results to these kinds. Empty means every known kind;
	// files of unknown kind are never reported.
	Kinds []Kind
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		IgnoreFileName: DefaultIgnoreFileName,
		DefaultExcludes: []string{
			".git",
			".hg",
			".svn",
			"node_modules",
			"vendor",
			"__pycache__",
			".venv",
			"venv",
			".asmcfg",
		},
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = DefaultIgnoreFileName
	}
	return &Scanner{opts: opts}
}

// Scan walks root and returns matching files in lexical path order.
// Unreadable entries are skipped.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scanning %s: not a directory", root)
	}

	patterns, err := s.loadIgnorePatterns(absRoot, "")
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != absRoot {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(absRoot, p)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if s.isDefaultExcluded(d.Name()) || ignored(rel, true, patterns) {
				return filepath.SkipDir
			}
			nested, err := s.loadIgnorePatterns(p, rel)
			if err == nil {
				patterns = append(patterns, nested...)
			}
			return nil
		}

		if ignored(rel, false, patterns) {
			return nil
		}

		kind := KindOf(p)
		if !s.wants(kind) {
			return nil
		}

		fi, err := s.fileInfo(absRoot, p, d)
		if err != nil {
			return nil
		}

		files = append(files, FileInfo{
			Path:     rel,
			FullPath: p,
			Kind:     kind,
			Size:     fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return files, nil
}

// fileInfo stats a regular file, resolving symlinks that stay within root
// when FollowSymlinks is set.
func (s *Scanner) fileInfo(root, p string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Info()
	}
	if !s.opts.FollowSymlinks {
		return nil, fmt.Errorf("symlink %s not followed", p)
	}

	real, err := filepath.EvalSymlinks(p)
	if err != nil {
		return nil, err
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		realRoot = root
	}
	if real != realRoot && !strings.HasPrefix(real, realRoot+string(filepath.Separator)) {
		return nil, fmt.Errorf("symlink %s leaves root", p)
	}

	fi, err := os.Stat(real)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("symlink %s is a directory", p)
	}
	return fi, nil
}

func (s *Scanner) wants(k Kind) bool {
	if k == KindUnknown {
		return false
	}
	if len(s.opts.Kinds) == 0 {
		return true
	}
	for _, want := range s.opts.Kinds {
		if want == k {
			return true
		}
	}
	return false
}

func (s *Scanner) isDefaultExcluded(name string) bool {
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// loadIgnorePatterns reads the ignore file in dir. rel is the slash path of
// dir relative to the scan root, empty for the root itself.
func (s *Scanner) loadIgnorePatterns(dir, rel string) ([]IgnorePattern, error) {
	file, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []IgnorePattern
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, parseIgnorePattern(line, rel))
	}

	return patterns, scanner.Err()
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}

// ScanAssembly returns the assembly sources under root.
func ScanAssembly(root string) ([]FileInfo, error) {
	opts := DefaultOptions()
	opts.Kinds = []Kind{KindAssembly}
	return New(opts).Scan(root)
}
