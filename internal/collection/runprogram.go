package collection

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/language"
)

// RunCode synthesizes the run program on first access, per the
// specification's §4.E' algorithm: templates and chunk code are
// interleaved while run_code_to_origins and the expected delimiter
// tallies are built up in lockstep. Later calls return the cached result.
func (s *Session) RunCode() (string, error) {
	if s.runCode != "" {
		return s.runCode, nil
	}
	if s.Language == nil {
		return "", fmt.Errorf("session %q: run program synthesis requires a resolved language definition", s.Key.Name)
	}
	if len(s.Chunks) == 0 {
		return "", fmt.Errorf("session %q: cannot synthesize a run program with no chunks", s.Key.Name)
	}

	runBefore, runAfter, _, err := language.SplitAtCode(s.Language.RunTemplate)
	if err != nil {
		return "", fmt.Errorf("run_template: %w", err)
	}
	wrapBefore, wrapAfter, wrapIndent, err := language.SplitAtCode(s.Language.ChunkWrapper)
	if err != nil {
		return "", fmt.Errorf("chunk_wrapper: %w", err)
	}

	s.runCodeToOrigins = map[int]Origin{}
	s.expectedStdoutStart = map[int]int{}
	s.expectedStdoutEnd = map[int]int{}
	s.expectedStderrStart = map[int]int{}
	s.expectedStderrEnd = map[int]int{}

	var out strings.Builder
	line := 1
	emit := func(text string) {
		out.WriteString(text)
		line += strings.Count(text, "\n")
	}

	first := s.Chunks[0]
	if !first.Options.OutsideMain {
		emit(runBefore)
	}

	openUnit := func(c *chunk.Chunk) {
		vals := map[string]string{
			"stdout_start_delim": s.delim("stdout", "start", c),
			"stderr_start_delim": s.delim("stderr", "start", c),
		}
		if s.Language.Repl {
			vals["repl_start_delim"] = s.delim("repl", "start", c)
		}
		emit(language.FillTemplate(wrapBefore, vals))
		s.expectedStdoutStart[c.OutputIndex]++
		s.expectedStderrStart[c.OutputIndex]++
	}
	closeUnit := func(c *chunk.Chunk) {
		vals := map[string]string{
			"stdout_end_delim": s.delim("stdout", "end", c),
			"stderr_end_delim": s.delim("stderr", "end", c),
		}
		if s.Language.Repl {
			vals["repl_end_delim"] = s.delim("repl", "end", c)
		}
		emit(language.FillTemplate(wrapAfter, vals))
		s.expectedStdoutEnd[c.OutputIndex]++
		s.expectedStderrEnd[c.OutputIndex]++
	}

	var lastCC *chunk.Chunk

	for _, c := range s.Chunks {
		closesUnit := lastCC != nil && (lastCC.Complete() || (lastCC.Options.OutsideMain && !c.Options.OutsideMain))
		if closesUnit {
			closeUnit(lastCC)
		}

		opensUnit := (lastCC == nil && !c.Options.OutsideMain) ||
			(lastCC != nil && lastCC.Complete()) ||
			(lastCC != nil && lastCC.Options.OutsideMain != c.Options.OutsideMain)
		if opensUnit {
			openUnit(c)
		}

		switch {
		case c.Inline && c.IsExpr:
			exprVals := map[string]string{
				"code":        strings.TrimSpace(strings.Join(c.CodeLines, " ")),
				"temp_suffix": s.TempSuffix,
			}
			filled := language.FillTemplate(s.Language.InlineExpressionFormatter, exprVals)
			s.runCodeToOrigins[line] = Origin{Chunk: c, UserLine: 1}
			emit(filled)
		case c.Inline:
			codeLine := ""
			if len(c.CodeLines) > 0 {
				codeLine = c.CodeLines[0]
			}
			s.runCodeToOrigins[line] = Origin{Chunk: c, UserLine: 1}
			emit(wrapIndent + codeLine + "\n")
		default:
			for j, codeLine := range c.CodeLines {
				s.runCodeToOrigins[line] = Origin{Chunk: c, UserLine: j + 1}
				emit(wrapIndent + codeLine + "\n")
			}
		}

		lastCC = c
	}

	if lastCC.Complete() {
		closeUnit(lastCC)
	}
	if !lastCC.Options.OutsideMain {
		emit(runAfter)
	}

	s.runCode = out.String()
	return s.runCode, nil
}

func (s *Session) delim(stream, kind string, owner *chunk.Chunk) string {
	return fmt.Sprintf("#Codebraid(output=%s, delim=%s, chunk=%d, output_chunk=%d, hash=%s)",
		stream, kind, owner.OutputIndex, owner.OutputIndex, s.RunDelimHash)
}

// RunCodeToOrigins returns the generated-line → (chunk, user-line) mapping
// built by the most recent RunCode call.
func (s *Session) RunCodeToOrigins() map[int]Origin { return s.runCodeToOrigins }

// ExpectedDelimChunks returns the four expected-delimiter tally maps
// (stdout/stderr × start/end), keyed by chunk index, built by the most
// recent RunCode call. The subprocess executor decrements these as it
// observes each delimiter and flags any chunk left non-zero after EOF.
func (s *Session) ExpectedDelimChunks() (stdoutStart, stdoutEnd, stderrStart, stderrEnd map[int]int) {
	return s.expectedStdoutStart, s.expectedStdoutEnd, s.expectedStderrStart, s.expectedStderrEnd
}
