package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/asmcfg/internal/scanner"
	"github.com/l3aro/asmcfg/pkg/cache"
	"github.com/l3aro/asmcfg/pkg/cfg"
	"github.com/l3aro/asmcfg/pkg/codec"
)

const loopSrc = "main:\n  mov rax, 3\nloop:\n  dec rax\n  jnz loop\ndone:\n  ret\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParser_ParseUsesCache(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.s", loopSrc)
	b := writeFile(t, dir, "b.s", loopSrc)

	gc, err := cache.New(cache.Options{})
	require.NoError(t, err)
	p := &Parser{Options: cfg.Options{AutoDetect: true}, Cache: gc}

	first, err := p.Parse(a)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, p.Dirty())
	assert.Equal(t, []string{"main", "loop", "done"}, first.Graph.NodeIDs())

	second, err := p.Parse(b)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Graph.NodeIDs(), second.Graph.NodeIDs())
	assert.True(t, second.Graph.HasEdge("loop", "loop"))
	assert.Equal(t, b, second.Source.Path)
	assert.Equal(t, 1, gc.Len())
}

func TestParser_NoCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.s", loopSrc)

	p := &Parser{}
	res, err := p.Parse(path)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.False(t, p.Dirty())

	_, err = p.Parse(filepath.Join(dir, "missing.s"))
	assert.Error(t, err)
}

func TestParser_LoadGraphFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "a.s", loopSrc)

	p := &Parser{}
	built, err := p.Load(src)
	require.NoError(t, err)
	require.NotNil(t, built.Source)

	out := filepath.Join(dir, "a.msgpack")
	require.NoError(t, codec.WriteFile(out, built.Graph))

	loaded, err := p.Load(out)
	require.NoError(t, err)
	assert.Nil(t, loaded.Source)
	assert.Equal(t, built.Graph.NodeIDs(), loaded.Graph.NodeIDs())
	assert.Equal(t, built.Graph.NumEdges(), loaded.Graph.NumEdges())
}

func TestParser_Batch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.s", loopSrc)
	writeFile(t, dir, "sub/two.asm", "start:\n  jmp start\n")
	writeFile(t, dir, "sub/three.s", "x:\n  ret\n")

	files, err := scanner.ScanAssembly(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	// Remove one file after scanning so its parse fails.
	require.NoError(t, os.Remove(filepath.Join(dir, "sub", "three.s")))

	var done atomic.Int32
	p := &Parser{}
	items, err := p.Batch(context.Background(), files, BatchOptions{
		Workers: 2,
		OnDone:  func(Item) { done.Add(1) },
	})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, int32(3), done.Load())

	for i, it := range items {
		assert.Equal(t, files[i].Path, it.File.Path)
		if it.File.Path == "sub/three.s" {
			assert.Error(t, it.Err)
			assert.Nil(t, it.Result)
			continue
		}
		require.NoError(t, it.Err, it.File.Path)
		assert.Equal(t, it.File.Path, it.Result.Path)
	}
}

func TestParser_BatchCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.s", loopSrc)
	files, err := scanner.ScanAssembly(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Parser{}
	_, err = p.Batch(ctx, files, BatchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
