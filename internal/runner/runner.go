// Package runner loads graphs for the CLI: it parses assembly through the
// graph cache, decodes encoded graph files and parses whole trees
// concurrently.
package runner

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/asmcfg/internal/log"
	"github.com/l3aro/asmcfg/internal/scanner"
	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/cache"
	"github.com/l3aro/asmcfg/pkg/cfg"
	"github.com/l3aro/asmcfg/pkg/codec"
)

// Parser builds graphs from files. A nil Cache disables caching. Parser is
// safe for concurrent use.
type Parser struct {
	Options cfg.Options
	Cache   *cache.GraphCache

	stored atomic.Bool
}

// Result is a loaded graph. Source is nil for decoded graph files.
type Result struct {
	Path   string
	Graph  *cfg.Graph
	Source *cfg.Source
	Cached bool
}

// Parse builds the graph of the assembly file at path, reusing a cached
// graph built from identical text for the same architecture.
func (p *Parser) Parse(path string) (*Result, error) {
	src, err := cfg.Prepare(path, p.Options)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var key string
	if p.Cache != nil {
		key = cache.Key(src.Text, src.Arch)
		if g, ok := p.Cache.Get(key); ok {
			p.logger().Debug("graph cache hit", "file", path)
			return &Result{Path: path, Graph: g, Source: src, Cached: true}, nil
		}
	}

	g := cfg.Build(src.Text, arch.VocabularyFor(src.Arch))
	p.logger().Debug("built control flow graph", "file", path, "arch", src.Arch,
		"blocks", g.NumNodes(), "edges", g.NumEdges())

	if p.Cache != nil {
		if err := p.Cache.Put(key, g); err != nil {
			p.logger().Warn("could not cache graph", "file", path, "error", err)
		} else {
			p.stored.Store(true)
		}
	}
	return &Result{Path: path, Graph: g, Source: src}, nil
}

// Load returns the graph at path: encoded graph files are decoded, any
// other file is parsed as assembly.
func (p *Parser) Load(path string) (*Result, error) {
	if scanner.IsGraph(path) {
		g, err := codec.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return &Result{Path: path, Graph: g}, nil
	}
	return p.Parse(path)
}

// Dirty reports whether graphs were added to the cache since the Parser
// was created.
func (p *Parser) Dirty() bool {
	return p.stored.Load()
}

func (p *Parser) logger() log.Logger {
	if p.Options.Logger == nil {
		return log.Nop()
	}
	return p.Options.Logger
}

// Item is the outcome of parsing one file of a batch. Exactly one of
// Result and Err is set.
type Item struct {
	File   scanner.FileInfo
	Result *Result
	Err    error
}

// BatchOptions configures Batch.
type BatchOptions struct {
	Workers int
	// OnDone is called after each file finishes, from the worker goroutine.
	OnDone func(Item)
}

// Batch parses files concurrently. Items are returned in the order of
// files. A file that fails to parse is reported in its Item and does not
// stop the batch; only cancellation of ctx does.
func (p *Parser) Batch(ctx context.Context, files []scanner.FileInfo, opts BatchOptions) ([]Item, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	items := make([]Item, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := p.Parse(f.FullPath)
			if res != nil {
				res.Path = f.Path
			}
			items[i] = Item{File: f, Result: res, Err: err}
			if opts.OnDone != nil {
				opts.OnDone(items[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
