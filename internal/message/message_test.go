package message

// Test Plan for message:
// - trait lookup matches the invariant "prevent_caching implies
//   !is_cacheable" for every declared (severity, category) pair
// - Collector rollup counts errors/warnings and sets PreventCaching /
//   PreventExec correctly as messages are added
// - Cacheable() filters out non-cacheable messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraitInvariant(t *testing.T) {
	t.Parallel()

	for sev, cats := range traitTable {
		for cat, tr := range cats {
			if tr.preventCaching {
				assert.Falsef(t, tr.isCacheable, "%v/%v: prevent_caching must imply !is_cacheable", sev, cat)
			}
		}
	}
}

func TestCollectorRollup(t *testing.T) {
	t.Parallel()

	c := &Collector{}
	c.Add(New(Error, CategoryRun, "boom"))
	c.Add(New(Warning, CategoryStderrRun, "careful"))
	c.Add(New(Error, CategoryCanExecSource, "cannot run"))

	require.Equal(t, 2, c.ErrorCount)
	require.Equal(t, 1, c.WarningCount)
	assert.True(t, c.PreventExec)
	assert.True(t, c.PreventCaching)
	assert.True(t, c.HasStderr)
	assert.True(t, c.HasNonStderr)
}

func TestCollectorCacheable(t *testing.T) {
	t.Parallel()

	c := &Collector{}
	c.Add(New(Error, CategorySource, "static problem"))
	c.Add(New(Error, CategoryRun, "runtime problem"))

	cacheable := c.Cacheable()
	require.Len(t, cacheable, 1)
	assert.Equal(t, CategoryRun, cacheable[0].Category)
}

func TestDecodeErrorCap(t *testing.T) {
	t.Parallel()

	c := &Collector{}
	for i := 0; i < 12; i++ {
		if c.DecodeErrorCount() >= 10 {
			break
		}
		c.Add(New(Error, CategoryDecode, "bad byte"))
	}
	assert.Equal(t, 10, c.DecodeErrorCount())
}
