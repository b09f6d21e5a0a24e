package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for chunk:
//   - Parse rejects unknown keys, applies (inline, execute) defaults, and
//     enforces the data model's mutual-exclusion rules.
//   - Layout keys route by scope prefix.
//   - show/hide parse and filter correctly, including per-output format
//     constraints.
//   - Include enforces its selection-group exclusivity and Resolve slices
//     content the way each selection describes.
//   - Chunk.CopyCode enforces expression-ness agreement and the inline
//     multi-line-after-copy rule.

func TestParseRejectsUnknownKey(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{"bogus": true}, CommandCode, false, true, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keywords")
}

func TestParseDefaultsCompleteByInline(t *testing.T) {
	t.Parallel()
	block, err := Parse(map[string]any{}, CommandCode, false, true, true)
	require.NoError(t, err)
	assert.True(t, *block.Complete)

	inline, err := Parse(map[string]any{}, CommandCode, true, true, true)
	require.NoError(t, err)
	assert.False(t, *inline.Complete)
}

func TestParseRejectsCopyAndInclude(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{
		"copy":    "other",
		"include": map[string]any{"file": "x.py", "lines": "1-2"},
	}, CommandCode, false, true, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestParseRejectsOutsideMainWithoutComplete(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{
		"outside_main": true,
		"complete":     false,
	}, CommandCode, false, true, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside_main")
}

func TestParseRejectsIncompleteExpr(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{"complete": false}, CommandExpr, true, true, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "complete=false")
}

func TestParseRejectsSessionAndSource(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{
		"session": "a",
		"source":  "b",
	}, CommandCode, false, true, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session and source")
}

func TestParseRejectsSelfCopy(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{
		"name": "x",
		"copy": "x",
	}, CommandCode, false, true, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "itself")
}

func TestParseRejectsFirstChunkOnlyKeyElsewhere(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{"executable": "python3"}, CommandCode, false, true, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first chunk")
}

func TestParseLayoutKeyScoped(t *testing.T) {
	t.Parallel()
	o, err := Parse(map[string]any{
		"stdout_line_numbers": true,
		"first_number":        3,
	}, CommandCode, false, true, true)
	require.NoError(t, err)
	assert.True(t, o.Layout[layoutScopeStdout].LineNumbers)
	assert.Equal(t, 3, o.Layout[""].FirstNumber)
}

func TestShowDefaultForExecutingBlock(t *testing.T) {
	t.Parallel()
	show, err := ParseShow("", CommandCode, false)
	require.NoError(t, err)
	assert.Len(t, show, 3)
}

func TestShowParsesFormats(t *testing.T) {
	t.Parallel()
	show, err := ParseShow("code+stdout:verbatim_or_empty", CommandCode, false)
	require.NoError(t, err)
	require.Len(t, show, 2)
	assert.Equal(t, ShowEntry{Output: ShowCode}, show[0])
	assert.Equal(t, ShowEntry{Output: ShowStdout, Format: "verbatim_or_empty"}, show[1])
}

func TestShowRejectsBadFormat(t *testing.T) {
	t.Parallel()
	_, err := ParseShow("code:raw", CommandCode, false)
	require.Error(t, err)
}

func TestShowRichOutputAcceptsMimeList(t *testing.T) {
	t.Parallel()
	show, err := ParseShow("rich_output:image/png|text/plain", CommandCode, false)
	require.NoError(t, err)
	assert.Equal(t, "image/png|text/plain", show[0].Format)
}

func TestApplyHideRemovesEntries(t *testing.T) {
	t.Parallel()
	show := []ShowEntry{{Output: ShowCode}, {Output: ShowStdout}, {Output: ShowStderr}}
	kept := ApplyHide(show, "stderr")
	assert.Equal(t, []ShowEntry{{Output: ShowCode}, {Output: ShowStdout}}, kept)
}

func TestIncludeRejectsCombinedGroups(t *testing.T) {
	t.Parallel()
	_, err := ParseInclude(map[string]any{
		"file":         "x.py",
		"lines":        "1-2",
		"start_string": "def f",
	})
	require.Error(t, err)
}

func TestIncludeResolveByLines(t *testing.T) {
	t.Parallel()
	inc, err := ParseInclude(map[string]any{"file": "x.py", "lines": "1,3-4"})
	require.NoError(t, err)
	out, err := inc.Resolve("a\nb\nc\nd\ne\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, out)
}

func TestIncludeResolveByOpenEndedRange(t *testing.T) {
	t.Parallel()
	inc, err := ParseInclude(map[string]any{"file": "x.py", "lines": "3-"})
	require.NoError(t, err)
	out, err := inc.Resolve("a\nb\nc\nd\ne")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "e"}, out)
}

func TestIncludeResolveByMarkers(t *testing.T) {
	t.Parallel()
	inc, err := ParseInclude(map[string]any{
		"file":         "x.py",
		"after_string": "START",
		"before_string": "END",
	})
	require.NoError(t, err)
	out, err := inc.Resolve("junk\nSTART\nkeep1\nkeep2\nEND\ntrailer")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep1", "keep2"}, out)
}

func TestIncludeResolveByRegexRange(t *testing.T) {
	t.Parallel()
	inc, err := ParseInclude(map[string]any{"file": "x.py", "regex": `(?s)BEGIN.*?END`})
	require.NoError(t, err)
	out, err := inc.Resolve("pre\nBEGIN\nmid\nEND\npost")
	require.NoError(t, err)
	assert.Equal(t, []string{"BEGIN", "mid", "END"}, out)
}

func TestChunkCopyCodeConcatenates(t *testing.T) {
	t.Parallel()
	optsA, err := Parse(map[string]any{"name": "a"}, CommandCode, false, true, true)
	require.NoError(t, err)
	optsB, err := Parse(map[string]any{"name": "b"}, CommandCode, false, true, true)
	require.NoError(t, err)
	a := New(CommandCode, false, "doc.md", 1, optsA, []string{"x = 1"})
	b := New(CommandCode, false, "doc.md", 2, optsB, []string{"y = 2"})

	optsC, err := Parse(map[string]any{"copy": "a+b"}, CommandCode, false, true, true)
	require.NoError(t, err)
	c := New(CommandCode, false, "doc.md", 3, optsC, nil)
	c.CopyTargets = []*Chunk{a, b}

	require.NoError(t, c.CopyCode())
	assert.Equal(t, []string{"x = 1", "y = 2"}, c.CodeLines)
}

func TestChunkCopyCodeRejectsMixedExpressionness(t *testing.T) {
	t.Parallel()
	exprOpts, err := Parse(map[string]any{"name": "e"}, CommandExpr, true, true, true)
	require.NoError(t, err)
	codeOpts, err := Parse(map[string]any{"name": "c"}, CommandCode, false, true, true)
	require.NoError(t, err)
	e := New(CommandExpr, true, "doc.md", 1, exprOpts, []string{"1 + 1"})
	cd := New(CommandCode, false, "doc.md", 2, codeOpts, []string{"y = 2"})

	pasteOpts, err := Parse(map[string]any{"copy": "e+c"}, CommandPaste, false, true, true)
	require.NoError(t, err)
	p := New(CommandPaste, false, "doc.md", 3, pasteOpts, nil)
	p.CopyTargets = []*Chunk{e, cd}

	err = p.CopyCode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disagree")
}

func TestChunkCopyCodeRejectsMultilineInline(t *testing.T) {
	t.Parallel()
	srcOpts, err := Parse(map[string]any{"name": "src"}, CommandCode, false, true, true)
	require.NoError(t, err)
	src := New(CommandCode, false, "doc.md", 1, srcOpts, []string{"x = 1", "y = 2"})

	pasteOpts, err := Parse(map[string]any{"copy": "src"}, CommandPaste, true, true, true)
	require.NoError(t, err)
	p := New(CommandPaste, true, "doc.md", 2, pasteOpts, nil)
	p.CopyTargets = []*Chunk{src}

	err = p.CopyCode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multi-line")
}
