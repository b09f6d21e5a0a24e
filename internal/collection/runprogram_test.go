package collection

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/language"
)

// Test Plan for run program synthesis:
//   - RunCode frames an outside_main region with its own start/end
//     delimiters instead of dropping it from the expected-delimiter
//     tallies (a chunk entering outside_main always opens a new unit,
//     per code_collections.py's begins/closes-unit conditions).
//   - RunCode closes the preceding unit before opening the outside_main
//     chunk's own, rather than leaving it open.

func outsideChunk(t *testing.T, code string, outsideMain bool) *chunk.Chunk {
	t.Helper()
	raw := map[string]any{"complete": true}
	if outsideMain {
		raw["outside_main"] = true
	}
	opts, err := chunk.Parse(raw, chunk.CommandNB, false, true, false)
	require.NoError(t, err)
	return chunk.New(chunk.CommandNB, false, "doc.md", 1, opts, []string{code})
}

func TestRunCodeFramesOutsideMainRegion(t *testing.T) {
	t.Parallel()
	cat := language.DefaultCatalogue()
	s := NewSession(Key{Lang: "python", Name: "s1"})
	s.Language = cat["python"]

	c1 := outsideChunk(t, "x = 1", false)
	c2 := outsideChunk(t, "import os", true)
	s.Append(c1)
	s.Append(c2)
	require.NoError(t, s.Finalize())

	// The whole outside_main region shares the last such chunk's
	// output_index, per assignOutputIndexes.
	require.Equal(t, c2.Index, c2.OutputIndex)

	program, err := s.RunCode()
	require.NoError(t, err)

	stdoutStart, stdoutEnd, stderrStart, stderrEnd := s.ExpectedDelimChunks()
	assert.Equal(t, 1, stdoutStart[c2.OutputIndex], "outside_main chunk must open its own stdout unit")
	assert.Equal(t, 1, stdoutEnd[c2.OutputIndex], "outside_main chunk must close its own stdout unit")
	assert.Equal(t, 1, stderrStart[c2.OutputIndex])
	assert.Equal(t, 1, stderrEnd[c2.OutputIndex])

	assert.Contains(t, program, s.delim("stdout", "start", c2))
	assert.Contains(t, program, s.delim("stdout", "end", c2))

	// The preceding (non-outside) chunk must have been closed before the
	// outside chunk's unit opens, not left open underneath it.
	closeIdx := strings.Index(program, s.delim("stdout", "end", c1))
	openIdx := strings.Index(program, s.delim("stdout", "start", c2))
	require.GreaterOrEqual(t, closeIdx, 0)
	require.GreaterOrEqual(t, openIdx, 0)
	assert.Less(t, closeIdx, openIdx)
}
