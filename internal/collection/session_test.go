package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/language"
)

// Test Plan for collection:
//   - Finalize assigns output_index across complete boundaries and
//     rejects a session whose final chunk is not complete.
//   - Finalize assigns sequential code_start_line_number.
//   - computeHash is stable under an unrelated option change and changes
//     when code changes (testable property 6).
//   - RunCode synthesizes a run program and builds a non-empty
//     run_code_to_origins mapping for a simple two-chunk session.

func newCodeChunk(t *testing.T, name, code string, complete bool) *chunk.Chunk {
	t.Helper()
	raw := map[string]any{"complete": complete}
	if name != "" {
		raw["name"] = name
	}
	opts, err := chunk.Parse(raw, chunk.CommandNB, false, true, false)
	require.NoError(t, err)
	return chunk.New(chunk.CommandNB, false, "doc.md", 1, opts, []string{code})
}

func TestSessionFinalizeRejectsIncompleteFinalChunk(t *testing.T) {
	t.Parallel()
	s := NewSession(Key{Lang: "python", Name: "s1"})
	s.Append(newCodeChunk(t, "", "x = 1", false))
	err := s.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "complete")
}

func TestSessionFinalizeOutputIndexSharing(t *testing.T) {
	t.Parallel()
	cat := language.DefaultCatalogue()
	s := NewSession(Key{Lang: "python", Name: "s1"})
	s.Language = cat["python"]
	c1 := newCodeChunk(t, "", "x = 1", false)
	c2 := newCodeChunk(t, "", "print(x + 1)", true)
	s.Append(c1)
	s.Append(c2)

	require.NoError(t, s.Finalize())
	assert.Equal(t, c2.Index, c1.OutputIndex)
	assert.Equal(t, c2.Index, c2.OutputIndex)
	assert.Equal(t, 1, c1.CodeStartLineNumber)
	assert.Equal(t, 2, c2.CodeStartLineNumber)
	assert.NotEmpty(t, s.Hash)
	assert.Len(t, s.HashRoot, 16)
	assert.Len(t, s.RunDelimHash, 64)
}

func TestSessionHashStableAcrossUnrelatedOption(t *testing.T) {
	t.Parallel()
	cat := language.DefaultCatalogue()
	build := func(hide string) string {
		s := NewSession(Key{Lang: "python", Name: "s1"})
		s.Language = cat["python"]
		raw := map[string]any{"complete": true}
		if hide != "" {
			raw["hide"] = hide
		}
		opts, err := chunk.Parse(raw, chunk.CommandNB, false, true, true)
		require.NoError(t, err)
		c := chunk.New(chunk.CommandNB, false, "doc.md", 1, opts, []string{"print(1)"})
		s.Append(c)
		require.NoError(t, s.Finalize())
		return s.Hash
	}
	assert.Equal(t, build(""), build("stderr"))
}

func TestSessionHashChangesWithCode(t *testing.T) {
	t.Parallel()
	cat := language.DefaultCatalogue()
	build := func(code string) string {
		s := NewSession(Key{Lang: "python", Name: "s1"})
		s.Language = cat["python"]
		s.Append(newCodeChunk(t, "", code, true))
		require.NoError(t, s.Finalize())
		return s.Hash
	}
	assert.NotEqual(t, build("print(1)"), build("print(2)"))
}

func TestRunCodeBuildsOriginsMapping(t *testing.T) {
	t.Parallel()
	cat := language.DefaultCatalogue()
	s := NewSession(Key{Lang: "python", Name: "s1"})
	s.Language = cat["python"]
	c1 := newCodeChunk(t, "", "x = 1", true)
	c2 := newCodeChunk(t, "", "print(x + 1)", true)
	s.Append(c1)
	s.Append(c2)
	require.NoError(t, s.Finalize())

	program, err := s.RunCode()
	require.NoError(t, err)
	assert.Contains(t, program, "x = 1")
	assert.Contains(t, program, "print(x + 1)")
	assert.Contains(t, program, "#Codebraid(output=stdout, delim=start")

	origins := s.RunCodeToOrigins()
	assert.NotEmpty(t, origins)
}
