package subexec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/codebraid/internal/collection"
	"github.com/mvp-joe/codebraid/internal/message"
)

// RunResult summarizes one completed run-stage subprocess lifecycle.
type RunResult struct {
	ExitCode int
}

// RunSession executes the run stage: it spawns the session's run command,
// streams stdin (for interpreter-script languages) and the two output
// pipes concurrently via an errgroup, and feeds every read through the
// matching StreamReader. Compile/pre_run/post_run stages are run
// separately via RunSupportStage before/after this. onLiveOutput, when
// non-nil, is called with every span of raw output bytes as they are
// produced (wired only when the session opted into `live_output`).
func RunSession(ctx context.Context, sess *collection.Session, paths SourcePaths, plan Plan, program string, onLiveOutput func(stream string, data []byte)) (*RunResult, error) {
	cmd := exec.CommandContext(ctx, plan.Argv[0], plan.Argv[1:]...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	var stdinPipe io.WriteCloser
	interpreterScript := sess.Language != nil && sess.Language.InterpreterScript
	if interpreterScript {
		stdinPipe, err = cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting run stage: %w", err)
	}

	stdoutStart, stdoutEnd, stderrStart, stderrEnd := sess.ExpectedDelimChunks()
	rendezvous := NewRendezvous()

	var templateStdout, templateStderr []string
	sessionMessages := sess.Status
	// Shared so the "at most 10 tracked decode errors" cap applies once
	// per session rather than once per stream.
	decodeBudget := newDecodeErrorBudget()

	stdoutReader := &StreamReader{
		StreamName:      "stdout",
		Session:         sess,
		Rendezvous:      rendezvous,
		expectedStart:   cloneCounts(stdoutStart),
		expectedEnd:     cloneCounts(stdoutEnd),
		outputType:      outputTypeStream,
		templateBuf:     &templateStdout,
		decodeErr:       decodeBudget,
		sessionMessages: sessionMessages,
	}
	stderrReader := &StreamReader{
		StreamName:      "stderr",
		Session:         sess,
		Rendezvous:      rendezvous,
		expectedStart:   cloneCounts(stderrStart),
		expectedEnd:     cloneCounts(stderrEnd),
		outputType:      outputTypeStream,
		templateBuf:     &templateStderr,
		decodeErr:       decodeBudget,
		sessionMessages: sessionMessages,
	}
	if sess.LiveOutput && onLiveOutput != nil {
		stdoutReader.OnLiveOutput = onLiveOutput
		stderrReader.OnLiveOutput = onLiveOutput
	}

	g, gctx := errgroup.WithContext(ctx)

	if interpreterScript {
		g.Go(func() error {
			defer stdinPipe.Close()
			return writeStdin(gctx, stdinPipe, program)
		})
	}
	g.Go(func() error { return pumpStream(stdoutPipe, stdoutReader) })
	g.Go(func() error { return pumpStream(stderrPipe, stderrReader) })

	runErr := g.Wait()
	waitErr := cmd.Wait()

	sess.TemplateStartStdoutLines = append(sess.TemplateStartStdoutLines, templateStdout...)
	sess.TemplateStartStderrLines = append(sess.TemplateStartStderrLines, templateStderr...)

	exitCode := 0
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if waitErr != nil && runErr == nil {
		return nil, fmt.Errorf("run stage: %w", waitErr)
	}

	attachExitCodeToRunErrors(sess, exitCode)
	reportResidualDelimChunks(sess, stdoutReader.expectedStart, stdoutReader.expectedEnd, "stdout")
	reportResidualDelimChunks(sess, stderrReader.expectedStart, stderrReader.expectedEnd, "stderr")

	if runErr != nil {
		return &RunResult{ExitCode: exitCode}, fmt.Errorf("run stage streaming: %w", runErr)
	}
	return &RunResult{ExitCode: exitCode}, nil
}

func cloneCounts(m map[int]int) map[int]int {
	out := make(map[int]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func writeStdin(ctx context.Context, w io.Writer, program string) error {
	for _, line := range strings.SplitAfter(program, "\n") {
		if line == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("writing to child stdin: %w", err)
		}
	}
	return nil
}

func pumpStream(r io.Reader, sr *StreamReader) error {
	buf := make([]byte, 4096)
	reader := bufio.NewReaderSize(r, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if ferr := sr.Feed(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", sr.StreamName, err)
		}
	}
}

// attachExitCodeToRunErrors attaches exitCode to every Run-category error
// already on the session's chunks, per the termination rule.
func attachExitCodeToRunErrors(sess *collection.Session, exitCode int) {
	if exitCode == 0 {
		return
	}
	for _, c := range sess.Chunks {
		for _, m := range c.Messages.Messages() {
			if m.Category == message.CategoryRun && m.Severity == message.Error {
				ec := exitCode
				m.ExitCode = &ec
			}
		}
	}
}

// reportResidualDelimChunks attaches a RuntimeSourceError to the first
// chunk (per stream) whose expected start/end delimiter tally did not
// return to exactly zero after the run completed.
func reportResidualDelimChunks(sess *collection.Session, start, end map[int]int, stream string) {
	reportFirstNonZero(sess, start, stream, "start")
	reportFirstNonZero(sess, end, stream, "end")
}

func reportFirstNonZero(sess *collection.Session, counts map[int]int, stream, kind string) {
	for _, c := range sess.Chunks {
		if n, ok := counts[c.OutputIndex]; ok && n != 0 {
			c.Messages.Add(message.New(message.Error, message.CategoryRuntimeSource,
				fmt.Sprintf("chunk is not a complete unit of code (%s %s delimiter count off by %d)", stream, kind, n)))
			return
		}
	}
}

// RunSupportStage runs a non-run stage (compile/pre_run/post_run):
// spawn with stderr merged into stdout, collect all output, and return it
// for the caller to route into the session's stage buffer and attach as
// an ExecError on failure.
func RunSupportStage(ctx context.Context, plan Plan) (output string, exitErr error) {
	cmd := exec.CommandContext(ctx, plan.Argv[0], plan.Argv[1:]...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Cleanup removes the generated temp source file. Interpreter-script
// languages never created one, so a missing file is not an error.
func Cleanup(paths SourcePaths) {
	_ = os.Remove(paths.Path)
}
