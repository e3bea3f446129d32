package wasmrt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/moodang/internal/shellenv"
)

// minimalWasmModule is the smallest legal WebAssembly binary: just the
// magic number and version, no sections, no exports.
var minimalWasmModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func newTestLoader(t *testing.T) (*Loader, context.Context) {
	t.Helper()
	ctx := context.Background()
	l, err := NewLoader(ctx, 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close(ctx) })
	return l, ctx
}

func TestLoadCachesByKey(t *testing.T) {
	l, ctx := newTestLoader(t)
	mod1, err := l.Load(ctx, "a", minimalWasmModule, Config{ModuleName: "a"})
	require.NoError(t, err)
	mod2, err := l.Load(ctx, "a", minimalWasmModule, Config{ModuleName: "a"})
	require.NoError(t, err)
	assert.Same(t, mod1, mod2)
}

func TestLoadInvalidBytesIsLoadError(t *testing.T) {
	l, ctx := newTestLoader(t)
	_, err := l.Load(ctx, "bad", []byte("not wasm"), Config{ModuleName: "bad"})
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "bad", loadErr.ModuleName)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	l, ctx := newTestLoader(t)
	_, err := l.Load(ctx, "a", minimalWasmModule, Config{ModuleName: "a"})
	require.NoError(t, err)
	_, err = l.Load(ctx, "b", minimalWasmModule, Config{ModuleName: "b"})
	require.NoError(t, err)
	// touch "a" so "b" becomes the least-recently-used entry
	_, err = l.Load(ctx, "a", minimalWasmModule, Config{ModuleName: "a"})
	require.NoError(t, err)
	_, err = l.Load(ctx, "c", minimalWasmModule, Config{ModuleName: "c"})
	require.NoError(t, err)

	_, stillCached := l.cache.get("a")
	assert.True(t, stillCached)
	_, evicted := l.cache.get("b")
	assert.False(t, evicted)
}

func TestUnloadRemovesEntry(t *testing.T) {
	l, ctx := newTestLoader(t)
	_, err := l.Load(ctx, "a", minimalWasmModule, Config{ModuleName: "a"})
	require.NoError(t, err)
	assert.True(t, l.Unload(ctx, "a"))
	assert.False(t, l.Unload(ctx, "a"))
}

func TestExecuteWithoutLoadFails(t *testing.T) {
	l, ctx := newTestLoader(t)
	execCtx := shellenv.ExecutionContext{Args: []string{"main"}}
	_, err := l.Execute(ctx, "missing", "", execCtx, Config{ModuleName: "missing"})
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestExecuteMissingExportFails(t *testing.T) {
	l, ctx := newTestLoader(t)
	_, err := l.Load(ctx, "a", minimalWasmModule, Config{ModuleName: "a"})
	require.NoError(t, err)
	execCtx := shellenv.ExecutionContext{Args: []string{"main"}}
	_, err = l.Execute(ctx, "a", "", execCtx, Config{ModuleName: "a"})
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	assert.EqualValues(t, DefaultMaxMemoryBytes, cfg.MaxMemoryBytes)
	assert.Equal(t, DefaultTimeoutMillis, cfg.TimeoutMillis)
}
