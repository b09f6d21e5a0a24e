package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test Plan for cache key computation:
//   - Key returns the literal stdin constant regardless of paths when
//     stdin is true.
//   - Key is deterministic and order-sensitive over origin paths.
//   - Key is always 16 hex characters for a non-stdin build.

func TestKeyStdinReturnsConstant(t *testing.T) {
	t.Parallel()
	assert.Equal(t, StdinCacheKey, Key([]string{"doc.md"}, true))
	assert.Equal(t, StdinCacheKey, Key(nil, true))
}

func TestKeyDeterministic(t *testing.T) {
	t.Parallel()
	a := Key([]string{"/home/user/doc.md", "/home/user/other.md"}, false)
	b := Key([]string{"/home/user/doc.md", "/home/user/other.md"}, false)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestKeyOrderSensitive(t *testing.T) {
	t.Parallel()
	a := Key([]string{"a.md", "b.md"}, false)
	b := Key([]string{"b.md", "a.md"}, false)
	assert.NotEqual(t, a, b)
}

func TestTildifyPathReplacesHomePrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "~/docs/a.md", tildifyPath("/home/user/docs/a.md", "/home/user"))
	assert.Equal(t, "~", tildifyPath("/home/user", "/home/user"))
	assert.Equal(t, "/other/a.md", tildifyPath("/other/a.md", "/home/user"))
}
