package healthcheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/asmcfg/internal/config"
	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/cache"
	"github.com/l3aro/asmcfg/pkg/cfg"
)

func TestCheckWithNilConfig(t *testing.T) {
	_, err := Check(nil, "", "")
	assert.Error(t, err)
}

func TestCheckDefaults(t *testing.T) {
	c := config.DefaultConfig()
	c.CacheFile = filepath.Join(t.TempDir(), "cache.msgpack")

	result, err := Check(c, "", "")
	require.NoError(t, err)

	assert.Equal(t, StatusReady, result.Parser.Status)
	assert.Contains(t, result.Parser.Detail, "auto-detect")
	assert.Equal(t, StatusEmpty, result.Cache.Status)
	assert.False(t, result.HasError())
}

func TestCheckInvalidParser(t *testing.T) {
	c := config.DefaultConfig()
	c.CacheEnabled = false
	c.Arch = "z80"

	result, err := Check(c, "", "")
	require.NoError(t, err)

	assert.Equal(t, StatusError, result.Parser.Status)
	assert.NotEmpty(t, result.Parser.Error)
	assert.Equal(t, StatusDisabled, result.Cache.Status)
	assert.True(t, result.HasError())
}

func TestCheckCacheFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.msgpack")

	gc, err := cache.New(cache.Options{})
	require.NoError(t, err)
	text := "main:\n  ret\n"
	require.NoError(t, gc.Put(cache.Key(text, arch.X86_64), cfg.Build(text, arch.VocabularyFor(arch.X86_64))))
	require.NoError(t, gc.SaveFile(path))

	c := config.DefaultConfig()
	c.CacheFile = path
	result, err := Check(c, "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, result.Cache.Status)
	assert.Contains(t, result.Cache.Detail, "(1 graphs)")

	bad := filepath.Join(dir, "bad.msgpack")
	require.NoError(t, writeFile(bad, "not msgpack"))
	c.CacheFile = bad
	result, err = Check(c, "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Cache.Status)
	assert.True(t, result.HasError())
}

func TestScopeFromPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"empty path", "", ""},
		{"global path", config.GlobalConfigPath(), "global"},
		{"project path", "/project/.asmcfg/config.yaml", "project"},
		{"relative project path", config.ProjectConfigPath(), "project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scopeFromPath(tt.path))
		})
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
