package dirty

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestTracker_Check(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.s")
	out := filepath.Join(dir, "main.s.json")
	writeFile(t, src, "main:\n  ret\n")

	tracker := New(filepath.Join(dir, DefaultManifestName))

	changed, hash, err := tracker.Check("main.s", src, out)
	require.NoError(t, err)
	assert.True(t, changed, "unknown files are changed")
	assert.Len(t, hash, 64)

	// Recorded but the output was never written.
	tracker.Record("main.s", hash, out)
	changed, _, err = tracker.Check("main.s", src, out)
	require.NoError(t, err)
	assert.True(t, changed)

	writeFile(t, out, "{}")
	changed, again, err := tracker.Check("main.s", src, out)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, hash, again)

	changed, _, err = tracker.Check("main.s", src, filepath.Join(dir, "main.s.msgpack"))
	require.NoError(t, err)
	assert.True(t, changed, "a different output format is a change")

	writeFile(t, src, "main:\n  nop\n  ret\n")
	changed, _, err = tracker.Check("main.s", src, out)
	require.NoError(t, err)
	assert.True(t, changed)

	_, _, err = tracker.Check("gone.s", filepath.Join(dir, "gone.s"), out)
	assert.Error(t, err)
}

func TestTracker_Prune(t *testing.T) {
	tracker := New("unused")
	tracker.Record("a.s", "1", "a.json")
	tracker.Record("b.s", "2", "b.json")
	tracker.Record("c.s", "3", "c.json")

	removed := tracker.Prune([]string{"b.s"})
	assert.Equal(t, []string{"a.s", "c.s"}, removed)
	assert.Equal(t, 1, tracker.Len())

	tracker.Forget("b.s")
	assert.Equal(t, 0, tracker.Len())
}

func TestTracker_SaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", DefaultManifestName)

	tracker := New(path)
	tracker.Record("b.s", "bb", "b.json")
	tracker.Record("a.s", "aa", "a.json")
	require.NoError(t, tracker.Save())

	loaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	var buf bytes.Buffer
	require.NoError(t, loaded.SaveTo(&buf))
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(`"a.s"`)), bytes.Index(buf.Bytes(), []byte(`"b.s"`)))

	empty, err := Open(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, "{")
	_, err = Open(bad)
	assert.Error(t, err)
}
