package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codebraid/internal/config"
)

// Test plan for the cache command group:
// 1. dirStats sums file sizes and counts across a nested directory
// 2. dirStats on an empty directory returns zero counts
// 3. runCacheClean removes the whole cache root by default
// 4. runCacheClean with --key only removes that key's subdirectory

func TestDirStats_CountsNestedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("1234"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("56789"), 0644))

	size, count, err := dirStats(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.EqualValues(t, 9, size)
}

func TestDirStats_EmptyDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	size, count, err := dirStats(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.EqualValues(t, 0, size)
}

func TestRunCacheClean_RemovesWholeRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "keyA"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keyA", "index.zip"), []byte("x"), 0644))

	cfg = &config.Config{Cache: config.CacheConfig{Root: root}}
	cacheCleanKey = ""

	cmd := cacheCleanCmd
	require.NoError(t, runCacheClean(cmd, nil))

	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}

func TestRunCacheClean_RemovesOnlyNamedKey(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "keyA"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "keyB"), 0755))

	cfg = &config.Config{Cache: config.CacheConfig{Root: root}}
	cacheCleanKey = "keyA"
	defer func() { cacheCleanKey = "" }()

	require.NoError(t, runCacheClean(cacheCleanCmd, nil))

	_, err := os.Stat(filepath.Join(root, "keyA"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "keyB"))
	assert.NoError(t, err)
}
