package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/codebraid/internal/cache"
	"github.com/mvp-joe/codebraid/internal/collection"
	"github.com/mvp-joe/codebraid/internal/message"
	"github.com/mvp-joe/codebraid/internal/progress"
	"github.com/mvp-joe/codebraid/internal/subexec"
)

// Options configures one Run invocation.
type Options struct {
	TempDir   string
	CacheRoot string
	CacheKey  string
	NoCache   bool
	Version   string
	Reporter  progress.Reporter
}

// Run executes §5's single-threaded scheduler over doc: at most one
// session's subprocess lifecycle runs at a time (max_concurrent_jobs=1),
// in document order, each preceded by a cache lookup and followed by a
// cache update. Returns the specification's exit-code bits (§6, item 7).
func Run(ctx context.Context, doc *Document, opts Options) (int, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.NoopReporter{}
	}

	reporter.SetTask(progress.TaskProcess)

	originPaths := originPathsOf(doc)
	c := cache.New(opts.CacheRoot, opts.CacheKey, opts.Version)
	if err := c.Prepare(originPaths); err != nil {
		return 0, fmt.Errorf("pipeline: preparing cache: %w", err)
	}
	defer c.Cleanup(opts.NoCache)

	reporter.SetTask(progress.TaskExec)
	reporter.SetTotalChunks(totalChunks(doc))

	for _, sess := range doc.Sessions {
		if sess.Status.PreventExec {
			continue
		}

		reporter.SetSubtask(sess.Key.Name)

		hit, err := c.Load(sess)
		if err != nil {
			return 0, fmt.Errorf("pipeline: loading cache for session %q: %w", sess.Key.Name, err)
		}
		if hit {
			for range sess.Chunks {
				reporter.ChunkCompleted()
			}
			continue
		}

		if err := execSession(ctx, sess, opts, reporter); err != nil {
			return 0, fmt.Errorf("pipeline: executing session %q: %w", sess.Key.Name, err)
		}
		for range sess.Chunks {
			reporter.ChunkCompleted()
		}

		if err := c.Update(sess); err != nil {
			return 0, fmt.Errorf("pipeline: updating cache for session %q: %w", sess.Key.Name, err)
		}
	}

	if err := c.FinalizeIndex(originPaths); err != nil {
		return 0, fmt.Errorf("pipeline: finalizing cache index: %w", err)
	}

	reporter.SetTask(progress.TaskComplete)
	return ExitCode(doc), nil
}

func originPathsOf(doc *Document) []string {
	seen := map[string]bool{}
	var out []string
	add := func(origin string) {
		if origin != "" && !seen[origin] {
			seen[origin] = true
			out = append(out, origin)
		}
	}
	for _, s := range doc.Sessions {
		add(s.Key.Origin)
	}
	for _, s := range doc.Sources {
		add(s.Key.Origin)
	}
	return out
}

func totalChunks(doc *Document) int {
	n := 0
	for _, s := range doc.Sessions {
		n += len(s.Chunks)
	}
	for _, s := range doc.Sources {
		n += len(s.Chunks)
	}
	return n
}

// execSession runs one session's subprocess lifecycle: compile, pre_run,
// run, post_run, in that order, stopping early if a support stage fails.
// A Jupyter-kernel session has no wired transport (internal/jupyter is
// sketch-only per the specification) and is reported as a RunConfig
// error rather than silently skipped.
func execSession(ctx context.Context, sess *collection.Session, opts Options, reporter progress.Reporter) error {
	if sess.JupyterKernel != "" {
		sess.Status.Add(message.New(message.Error, message.CategoryRunConfig,
			fmt.Sprintf("jupyter kernel %q: no kernel transport is wired in this build", sess.JupyterKernel)))
		return nil
	}
	if sess.Language == nil {
		return nil // resolveLanguage already attached a SysConfig error
	}

	paths := subexec.NewSourcePaths(opts.TempDir, sess.Language, sess.HashRoot)
	defer subexec.Cleanup(paths)
	subexec.SetSourcePath(paths.Path)

	if err := runSupportStages(ctx, sess, paths, subexec.StageCompile, message.CategoryCompile); err != nil {
		return err
	}
	if sess.Status.PreventExec {
		return nil
	}
	if err := runSupportStages(ctx, sess, paths, subexec.StagePreRun, message.CategoryPreRun); err != nil {
		return err
	}
	if sess.Status.PreventExec {
		return nil
	}

	program, err := sess.RunCode()
	if err != nil {
		return fmt.Errorf("synthesizing run program: %w", err)
	}
	if !sess.Language.InterpreterScript {
		if err := subexec.WriteSource(paths, program); err != nil {
			return err
		}
	}

	plans, _, err := subexec.BuildStagePlans(sess.Language, subexec.StageRun, sess, paths, sess.RunDelimHash)
	if err != nil {
		return fmt.Errorf("building run command: %w", err)
	}
	if len(plans) != 1 {
		return fmt.Errorf("run stage produced %d commands, expected exactly 1", len(plans))
	}

	reporter.SessionStart(sess.Key.Name)
	var onLiveOutput func(stream string, data []byte)
	if sess.LiveOutput {
		name := sess.Key.Name
		onLiveOutput = func(stream string, data []byte) {
			reporter.LiveOutput(name, stream, data)
		}
	}
	_, runErr := subexec.RunSession(ctx, sess, paths, plans[0], program, onLiveOutput)
	reporter.SessionEnd(sess.Key.Name)
	if runErr != nil {
		return runErr
	}

	return runSupportStages(ctx, sess, paths, subexec.StagePostRun, message.CategoryPostRun)
}

// runSupportStages runs every command configured for a compile/pre_run/
// post_run stage, appending combined output to the session's matching
// buffer and attaching cat as an error on a non-zero exit (the one
// exception: run itself, handled separately by RunSession, which also
// needs the stream-framed output parser support stages never use).
func runSupportStages(ctx context.Context, sess *collection.Session, paths subexec.SourcePaths, stage subexec.Stage, cat message.Category) error {
	plans, _, err := subexec.BuildStagePlans(sess.Language, stage, sess, paths, sess.RunDelimHash)
	if err != nil {
		return fmt.Errorf("building %s command: %w", stage, err)
	}
	for _, plan := range plans {
		output, runErr := subexec.RunSupportStage(ctx, plan)
		appendStageOutput(sess, stage, output)
		if runErr != nil {
			sess.Status.Add(message.New(message.Error, cat, output))
			return nil
		}
	}
	return nil
}

func appendStageOutput(sess *collection.Session, stage subexec.Stage, output string) {
	lines := splitLines(output)
	switch stage {
	case subexec.StageCompile:
		sess.CompileLines = append(sess.CompileLines, lines...)
	case subexec.StagePreRun:
		sess.PreRunOutputLines = append(sess.PreRunOutputLines, lines...)
	case subexec.StagePostRun:
		sess.PostRunOutputLines = append(sess.PostRunOutputLines, lines...)
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// EnsureTempDir creates opts.TempDir if it does not already exist, the
// same MkdirAll subexec.WriteSource performs for the source file itself,
// exposed here so a caller can fail fast before starting any session.
func EnsureTempDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
