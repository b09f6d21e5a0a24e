package subexec

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/collection"
	"github.com/mvp-joe/codebraid/internal/language"
	"github.com/mvp-joe/codebraid/internal/message"
)

// Test Plan for the stderr/compile rewriter:
//   - rewriteStderrLines translates a generated-program line number back
//     to the chunk that produced it and reports that chunk as synced.
//   - An unresolvable line number is rendered as "[N]" instead.
//   - scanPatterns, given c == nil and a resolved synced chunk, attaches
//     StderrRunErrorRef to the synced chunk in addition to StderrRunError
//     on the session.
//   - scanPatterns never attaches a ref when synced is nil (the
//     no-line-number early-return path).

func genLineForChunk(origins map[int]collection.Origin, c *chunk.Chunk) int {
	for ln, o := range origins {
		if o.Chunk == c {
			return ln
		}
	}
	return -1
}

func TestRewriteStderrLinesResolvesLineNumberToSyncedChunk(t *testing.T) {
	t.Parallel()
	sess := collection.NewSession(collection.Key{Lang: "python", Name: "s1"})
	sess.Language = language.DefaultCatalogue()["python"]
	c1 := testChunk(t, "x = 1")
	c2 := testChunk(t, "raise ValueError('boom')")
	sess.Append(c1)
	sess.Append(c2)
	require.NoError(t, sess.Finalize())
	_, err := sess.RunCode()
	require.NoError(t, err)

	origins := sess.RunCodeToOrigins()
	genLine := genLineForChunk(origins, c2)
	require.Greater(t, genLine, 0)

	text := fmt.Sprintf("Traceback (most recent call last):\n  File \"source.py\", line %d, in <module>\nValueError: boom", genLine)
	out, synced := rewriteStderrLines([]string{text}, sess, nil, 0)

	require.NotNil(t, synced)
	assert.Same(t, c2, synced)
	assert.Contains(t, out[1], fmt.Sprintf("line %d", c2.OriginStartLineNumber))

	require.True(t, sess.Status.HasErrors())
	require.Len(t, c2.Messages.Messages(), 1)
	assert.Equal(t, message.CategoryStderrRunRef, c2.Messages.Messages()[0].Category)
	assert.Equal(t, sess.Key.Name, c2.Messages.Messages()[0].Ref.Owner)
}

func TestRewriteStderrLinesUnresolvableLineNumberIsBracketed(t *testing.T) {
	t.Parallel()
	sess := collection.NewSession(collection.Key{Lang: "python", Name: "s1"})
	sess.Language = language.DefaultCatalogue()["python"]
	c1 := testChunk(t, "x = 1")
	sess.Append(c1)
	require.NoError(t, sess.Finalize())
	_, err := sess.RunCode()
	require.NoError(t, err)

	text := "  File \"source.py\", line 999999, in <module>"
	out, synced := rewriteStderrLines([]string{text}, sess, nil, 0)

	assert.Nil(t, synced)
	assert.Contains(t, out[0], "line [999999]")
}

func TestScanPatternsNoRefWithoutSyncedChunk(t *testing.T) {
	t.Parallel()
	sess := collection.NewSession(collection.Key{Lang: "python", Name: "s1"})
	sess.Language = language.DefaultCatalogue()["python"]
	c1 := testChunk(t, "x = 1")
	sess.Append(c1)
	require.NoError(t, sess.Finalize())

	scanPatterns(sess, nil, nil, 0, []string{"Error: boom"})

	require.True(t, sess.Status.HasErrors())
	assert.Empty(t, c1.Messages.Messages())
}

func TestScanPatternsChunkLevelAttachesOnceToChunk(t *testing.T) {
	t.Parallel()
	sess := collection.NewSession(collection.Key{Lang: "python", Name: "s1"})
	sess.Language = language.DefaultCatalogue()["python"]
	c1 := testChunk(t, "x = 1")

	scanPatterns(sess, c1, nil, 0, []string{"Warning: deprecated"})
	scanPatterns(sess, c1, nil, 0, []string{"Warning: deprecated again"})

	require.Len(t, c1.Messages.Messages(), 1)
	assert.Equal(t, message.CategoryStderrRun, c1.Messages.Messages()[0].Category)
	assert.Equal(t, message.Warning, c1.Messages.Messages()[0].Severity)
}
