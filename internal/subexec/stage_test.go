package subexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codebraid/internal/collection"
	"github.com/mvp-joe/codebraid/internal/language"
)

// Test Plan for stage command synthesis:
//   - NewSourcePaths names the temp source file source_<hash_root>.<ext>
//     and derives the without-extension path correctly.
//   - BuildStagePlans expands an interpreter-script run_command's
//     {run_delim_start}/{run_delim_hash}/{buffering} fields.
//   - BuildStagePlans expands a compile_commands template's
//     {source_without_extension}/{source} fields.
//   - fillStageTemplate splits {executable_opts} and {args} into one
//     argv word per shlex token rather than a single combined string.

func TestNewSourcePaths(t *testing.T) {
	t.Parallel()
	paths := NewSourcePaths("/tmp/work", language.DefaultCatalogue()["rust"], "deadbeef")

	assert.Equal(t, "/tmp/work/source_deadbeef.rs", paths.Path)
	assert.Equal(t, "/tmp/work/source_deadbeef", paths.PathWithoutExtension)
	assert.Equal(t, "/tmp/work", paths.Dir)
}

func TestBuildStagePlansRunCommandForInterpreterScript(t *testing.T) {
	t.Parallel()
	def := language.DefaultCatalogue()["python"]
	sess := collection.NewSession(collection.Key{Lang: "python", Name: "s1"})
	paths := NewSourcePaths("/tmp/work", def, "deadbeef")

	plans, encoding, err := BuildStagePlans(def, StageRun, sess, paths, testHash)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "utf-8", encoding)

	argv := plans[0].Argv
	require.Len(t, argv, 5)
	assert.Contains(t, argv[0], "python")
	assert.Contains(t, argv[1], ".tmp")
	assert.Equal(t, delimStartPattern, argv[2])
	assert.Equal(t, testHash, argv[3])
	assert.Equal(t, "0", argv[4])
}

func TestBuildStagePlansCompileCommandForRust(t *testing.T) {
	t.Parallel()
	def := language.DefaultCatalogue()["rust"]
	sess := collection.NewSession(collection.Key{Lang: "rust", Name: "s1"})
	paths := NewSourcePaths("/tmp/work", def, "deadbeef")

	plans, _, err := BuildStagePlans(def, StageCompile, sess, paths, testHash)
	require.NoError(t, err)
	require.Len(t, plans, 1)

	argv := plans[0].Argv
	require.Len(t, argv, 4)
	assert.Equal(t, "-o", argv[1])
	assert.Equal(t, paths.PathWithoutExtension, argv[2])
	assert.Equal(t, paths.Path, argv[3])
}

func TestBuildStagePlansExpandsExecutableOptsAndArgs(t *testing.T) {
	t.Parallel()
	def := language.DefaultCatalogue()["python"]
	sess := collection.NewSession(collection.Key{Lang: "python", Name: "s1"})
	sess.Executable = "python3"
	sess.ExecutableOpts = "-O -W ignore"
	sess.Args = "--flag value"
	paths := NewSourcePaths("/tmp/work", def, "deadbeef")

	noPlans, _, err := BuildStagePlans(def, StagePostRun, sess, paths, testHash)
	require.NoError(t, err)
	assert.Empty(t, noPlans, "python has no post_run_commands configured")

	plans, _, err := BuildStagePlans(def, StageRun, sess, paths, testHash)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Contains(t, plans[0].Argv[0], "python3")
}

func TestFillStageTemplateSplitsOptsAndArgsIntoSeparateWords(t *testing.T) {
	t.Parallel()
	f := fields{
		Executable:     "myexe",
		ExecutableOpts: []string{"-O", "-W", "ignore"},
		Args:           []string{"--flag", "value"},
	}
	argv, err := fillStageTemplate("{executable} {executable_opts} run.src {args}", f)
	require.NoError(t, err)

	require.Len(t, argv, 7)
	assert.Equal(t, []string{"-O", "-W", "ignore"}, argv[1:4])
	assert.Equal(t, "run.src", argv[4])
	assert.Equal(t, []string{"--flag", "value"}, argv[5:7])
}
