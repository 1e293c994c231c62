// Package dirty tracks content hashes of batch inputs so that files whose
// content has not changed since their graph was last written can be
// skipped.
package dirty

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DefaultManifestName is the manifest file written inside a batch output
// directory.
const DefaultManifestName = ".asmcfg-manifest.json"

// fileState is the recorded state of one input file.
type fileState struct {
	Path      string `json:"path"`
	Hash      string `json:"hash"`
	Output    string `json:"output"`
	UpdatedAt int64  `json:"updated_at"` // Unix timestamp
}

// manifest is the on-disk JSON structure.
type manifest struct {
	Version int         `json:"version"`
	Files   []fileState `json:"files"`
}

// Tracker records, per input path, the content hash its output was built
// from. Tracker is safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	files map[string]fileState
	path  string
}

// New returns an empty Tracker persisted at path.
func New(path string) *Tracker {
	return &Tracker{files: make(map[string]fileState), path: path}
}

// Open loads the Tracker persisted at path. A missing file yields an empty
// Tracker.
func Open(path string) (*Tracker, error) {
	t := New(path)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil // No manifest yet
		}
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	if err := t.LoadFrom(f); err != nil {
		return nil, err
	}
	return t, nil
}

// HashFile computes the SHA-256 of the file contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash file %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Check hashes the file at fullPath and reports whether it differs from
// what was recorded under path, or whether output is not the recorded
// output or is missing. The returned hash is passed to Record once the
// output is written.
func (t *Tracker) Check(path, fullPath, output string) (changed bool, hash string, err error) {
	hash, err = HashFile(fullPath)
	if err != nil {
		return false, "", err
	}

	t.mu.RLock()
	state, ok := t.files[path]
	t.mu.RUnlock()

	if !ok || state.Hash != hash || state.Output != output {
		return true, hash, nil
	}
	if _, err := os.Stat(state.Output); err != nil {
		return true, hash, nil
	}
	return false, hash, nil
}

// Record stores hash as the content that output was built from.
func (t *Tracker) Record(path, hash, output string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[path] = fileState{
		Path:      path,
		Hash:      hash,
		Output:    output,
		UpdatedAt: time.Now().Unix(),
	}
}

// Forget removes path from the manifest.
func (t *Tracker) Forget(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, path)
}

// Prune forgets every path not in keep and returns the forgotten paths in
// sorted order.
func (t *Tracker) Prune(keep []string) []string {
	want := make(map[string]bool, len(keep))
	for _, p := range keep {
		want[p] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []string
	for p := range t.files {
		if !want[p] {
			removed = append(removed, p)
			delete(t.files, p)
		}
	}
	sort.Strings(removed)
	return removed
}

// Len returns the number of recorded files.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.files)
}

// Save persists the manifest, creating parent directories.
func (t *Tracker) Save() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	if err := t.SaveTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveTo writes the manifest to w, ordered by path.
func (t *Tracker) SaveTo(w io.Writer) error {
	t.mu.RLock()
	files := make([]fileState, 0, len(t.files))
	for _, state := range t.files {
		files = append(files, state)
	}
	t.mu.RUnlock()

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest{Version: 1, Files: files}); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}

// LoadFrom replaces the recorded state with the manifest read from r.
func (t *Tracker) LoadFrom(r io.Reader) error {
	var data manifest
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode manifest: %w", err)
	}

	files := make(map[string]fileState, len(data.Files))
	for _, state := range data.Files {
		files[state.Path] = state
	}

	t.mu.Lock()
	t.files = files
	t.mu.Unlock()
	return nil
}
