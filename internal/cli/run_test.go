package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codebraid/internal/chunk"
)

// Test plan for the run command's document boundary:
// 1. parseCommand accepts every known command kind and rejects unknown ones
// 2. decodeRawChunks converts the wire document into pipeline.RawChunk
// 3. decodeRawChunks resolves an `include` option against the origin's directory
// 4. decodeRawChunks reports a clear error for an unknown command
// 5. loadCatalogue returns the built-in catalogue when no user directory is configured
// 6. loadCatalogue overrides a built-in language with a same-named user definition
// 7. documentCacheKey is "-" for stdin and an absolute path for a file argument

func TestParseCommand_AcceptsKnownKinds(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"code", "expr", "nb", "paste", "repl", "run"} {
		cmd, err := parseCommand(s)
		require.NoError(t, err)
		assert.Equal(t, chunk.Command(s), cmd)
	}
}

func TestParseCommand_RejectsUnknown(t *testing.T) {
	t.Parallel()

	_, err := parseCommand("bogus")
	assert.Error(t, err)
}

func TestDecodeRawChunks_Basic(t *testing.T) {
	t.Parallel()

	doc := `{"chunks":[
		{"command":"code","code":["x = 1"],"options":{"lang":"python"},"origin":"doc.md","start_line":3}
	]}`

	raws, err := decodeRawChunks(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, raws, 1)

	assert.Equal(t, chunk.CommandCode, raws[0].Command)
	assert.Equal(t, []string{"x = 1"}, raws[0].Code)
	assert.Equal(t, "doc.md", raws[0].OriginName)
	assert.Equal(t, 3, raws[0].OriginStartLineNumber)
	assert.Equal(t, "python", raws[0].Options["lang"])
}

func TestDecodeRawChunks_ResolvesInclude(t *testing.T) {
	dir := t.TempDir()
	origin := filepath.Join(dir, "doc.md")
	included := filepath.Join(dir, "snippet.py")
	require.NoError(t, os.WriteFile(included, []byte("y = 2\n"), 0644))

	wire := map[string]any{
		"chunks": []map[string]any{
			{
				"command": "code",
				"options": map[string]any{"include": "snippet.py"},
				"origin":  origin,
			},
		},
	}
	data, err := json.Marshal(wire)
	require.NoError(t, err)

	raws, err := decodeRawChunks(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "y = 2\n", raws[0].IncludeContent)
}

func TestDecodeRawChunks_UnknownCommand(t *testing.T) {
	t.Parallel()

	doc := `{"chunks":[{"command":"frobnicate"}]}`
	_, err := decodeRawChunks(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestLoadCatalogue_NoUserDir(t *testing.T) {
	t.Parallel()

	cat, err := loadCatalogue("")
	require.NoError(t, err)
	_, ok := cat["python"]
	assert.True(t, ok, "built-in python definition should be present")
}

func TestLoadCatalogue_UserDirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	content := `
extension: py
language: python
runtemplate: "{code}\n"
executable: python3.12
linenumberpatterns: ["line {number}"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "python.yaml"), []byte(content), 0644))

	cat, err := loadCatalogue(dir)
	require.NoError(t, err)

	def, ok := cat["python"]
	require.True(t, ok)
	assert.Equal(t, "python3.12", def.Executable)
}

func TestLoadCatalogue_MissingDirIsNotAnError(t *testing.T) {
	t.Parallel()

	cat, err := loadCatalogue(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.NotEmpty(t, cat)
}

func TestDocumentCacheKey_Stdin(t *testing.T) {
	t.Parallel()

	key, err := documentCacheKey(nil)
	require.NoError(t, err)
	assert.Equal(t, "-", key)
}

func TestDocumentCacheKey_File(t *testing.T) {
	t.Parallel()

	key, err := documentCacheKey([]string{"doc.md"})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(key))
	assert.True(t, strings.HasSuffix(key, "doc.md"))
}
