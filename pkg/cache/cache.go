// Package cache keeps recently built control flow graphs keyed by the hash
// of the text they were built from, with msgpack persistence.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/cfg"
	"github.com/l3aro/asmcfg/pkg/codec"
)

// DefaultSize is the number of graphs kept when Options.MaxSize is zero.
const DefaultSize = 256

// keyVersion changes whenever graph construction changes in a way that
// invalidates persisted entries.
const keyVersion = "asmcfg/1"

// Key returns the cache key of text built with the vocabulary of a.
func Key(text string, a arch.Arch) string {
	h := sha256.New()
	h.Write([]byte(keyVersion))
	h.Write([]byte{0})
	h.Write([]byte(a))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is a persisted cache entry. Data holds a msgpack node-link document.
type Entry struct {
	Key       string `msgpack:"key"`
	Data      []byte `msgpack:"data"`
	CreatedAt int64  `msgpack:"created_at"`
}

// Options configures a GraphCache.
type Options struct {
	// MaxSize is the maximum number of graphs. Zero means DefaultSize.
	MaxSize int
}

// Stats reports cache usage.
type Stats struct {
	Length    int   `json:"length"`
	HitCount  int64 `json:"hit_count"`
	MissCount int64 `json:"miss_count"`
}

// GraphCache is an LRU cache of graphs. It is safe for concurrent use.
// Graphs are stored encoded, so every Get returns an independent copy.
type GraphCache struct {
	lru    *lru.Cache[string, Entry]
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a GraphCache.
func New(opts Options) (*GraphCache, error) {
	size := opts.MaxSize
	if size <= 0 {
		size = DefaultSize
	}
	l, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &GraphCache{lru: l}, nil
}

// Get returns the graph stored under key.
func (c *GraphCache) Get(key string) (*cfg.Graph, bool) {
	entry, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	g, err := codec.DecodeMsgpack(bytes.NewReader(entry.Data))
	if err != nil {
		c.lru.Remove(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return g, true
}

// Put stores g under key, evicting the least recently used graph if the
// cache is full.
func (c *GraphCache) Put(key string, g *cfg.Graph) error {
	var buf bytes.Buffer
	if err := codec.EncodeMsgpack(&buf, g); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	c.lru.Add(key, Entry{Key: key, Data: buf.Bytes(), CreatedAt: time.Now().Unix()})
	return nil
}

// Clear removes all entries.
func (c *GraphCache) Clear() {
	c.lru.Purge()
}

// Len returns the number of cached graphs.
func (c *GraphCache) Len() int {
	return c.lru.Len()
}

// Stats returns usage counters.
func (c *GraphCache) Stats() Stats {
	return Stats{
		Length:    c.lru.Len(),
		HitCount:  c.hits.Load(),
		MissCount: c.misses.Load(),
	}
}

// HitRate returns the fraction of Get calls that found a graph.
func (c *GraphCache) HitRate() float64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Save writes every entry to w, least recently used first, without
// changing recency.
func (c *GraphCache) Save(w io.Writer) error {
	keys := c.lru.Keys()
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := c.lru.Peek(k); ok {
			entries = append(entries, e)
		}
	}
	return msgpack.NewEncoder(w).Encode(entries)
}

// Load replaces the cache contents with entries read from r. When r holds
// more entries than fit, the most recently used ones are kept.
func (c *GraphCache) Load(r io.Reader) error {
	var entries []Entry
	if err := msgpack.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}

	c.lru.Purge()
	for _, e := range entries {
		c.lru.Add(e.Key, e)
	}
	return nil
}

// SaveFile persists the cache to path, creating parent directories.
func (c *GraphCache) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if err := c.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile restores the cache from path. A missing file is not an error.
func (c *GraphCache) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No cache file is not an error
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	return c.Load(f)
}
