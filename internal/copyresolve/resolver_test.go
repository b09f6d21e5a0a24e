package copyresolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codebraid/internal/chunk"
)

// Test Plan for copyresolve:
//   - AttachTargets resolves named copy targets and reports unknown names.
//   - Resolve concatenates code through a simple copy chain.
//   - Resolve detects a 3-chunk cycle (scenario S4) and attaches a
//     SourceError to every member without resolving any of their code.

func namedChunk(t *testing.T, name, copyExpr string, code []string) *chunk.Chunk {
	t.Helper()
	raw := map[string]any{"complete": true}
	if name != "" {
		raw["name"] = name
	}
	if copyExpr != "" {
		raw["copy"] = copyExpr
	}
	opts, err := chunk.Parse(raw, chunk.CommandCode, false, true, false)
	require.NoError(t, err)
	return chunk.New(chunk.CommandCode, false, "doc.md", 1, opts, code)
}

func TestAttachTargetsUnknownName(t *testing.T) {
	t.Parallel()
	c := namedChunk(t, "x", "missing", nil)
	r := New(map[string]*chunk.Chunk{})
	err := r.AttachTargets([]*chunk.Chunk{c})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestResolveSimpleChain(t *testing.T) {
	t.Parallel()
	a := namedChunk(t, "a", "", []string{"x = 1"})
	b := namedChunk(t, "b", "a", nil)

	r := New(map[string]*chunk.Chunk{"a": a, "b": b})
	require.NoError(t, r.AttachTargets([]*chunk.Chunk{a, b}))
	require.NoError(t, r.Resolve([]*chunk.Chunk{a, b}))

	assert.Equal(t, []string{"x = 1"}, b.CodeLines)
	assert.False(t, b.Messages.HasErrors())
}

func TestResolveDetectsThreeChunkCycle(t *testing.T) {
	t.Parallel()
	a := namedChunk(t, "a", "b", nil)
	bb := namedChunk(t, "b", "c", nil)
	c := namedChunk(t, "c", "a", nil)
	chunks := []*chunk.Chunk{a, bb, c}

	r := New(map[string]*chunk.Chunk{"a": a, "b": bb, "c": c})
	require.NoError(t, r.AttachTargets(chunks))
	require.NoError(t, r.Resolve(chunks))

	for _, ch := range chunks {
		assert.True(t, ch.Messages.HasErrors(), "chunk %s should carry a cycle error", ch.Options.Name)
		assert.Empty(t, ch.CodeLines)
	}
}
