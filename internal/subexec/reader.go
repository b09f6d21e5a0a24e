package subexec

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/collection"
	"github.com/mvp-joe/codebraid/internal/message"
)

// outputType tracks which logical output a stream's bytes currently
// belong to. "stream" means "this reader's own stream" (stdout bytes on
// the stdout reader, stderr bytes on the stderr reader); any other value
// means the bytes crossed streams (e.g. an `expr` start delimiter seen on
// stdout) and this reader's bytes are dropped until the matching end.
type outputType string

const outputTypeStream outputType = "stream"

// StreamReader implements the delimiter-synchronised byte-stream parser
// for one of the run stage's two pipes. It operates on raw bytes so a
// `\r` split across a read boundary is handled correctly.
type StreamReader struct {
	StreamName string // "stdout" or "stderr"
	Session    *collection.Session
	Rendezvous *Rendezvous

	expectedStart map[int]int
	expectedEnd   map[int]int

	buf         []byte
	activeChunk *chunk.Chunk
	outputType  outputType

	templateBuf *[]string
	decodeErr   *decodeErrorBudget

	sessionMessages *message.Collector

	// OnLiveOutput, when set, is invoked with every span of raw bytes
	// this reader emits into a session or chunk buffer -- the hook a
	// session that set `live_output` uses to mirror output to the
	// progress reporter as it is produced, rather than only after the
	// run stage completes.
	OnLiveOutput func(stream string, data []byte)
}

// decodeErrorBudget is shared between both stream readers of one run so
// the specification's "up to 10 tracked errors per session" cap applies
// session-wide, not per stream.
type decodeErrorBudget struct {
	count int
	max   int
}

func newDecodeErrorBudget() *decodeErrorBudget { return &decodeErrorBudget{max: 10} }

func (d *decodeErrorBudget) record() (track bool) {
	if d.count >= d.max {
		return false
	}
	d.count++
	return true
}

// decode validates b as UTF-8 and returns its text, per the run stage's
// decoding step. Invalid bytes are replaced \xNN-style, and the first ten
// such errors per session (shared across both stream readers via
// decodeErr) are attached as a Decode error to the active chunk, or the
// session when no chunk is active.
func (r *StreamReader) decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	if r.decodeErr.record() {
		m := message.New(message.Error, message.CategoryDecode,
			fmt.Sprintf("invalid bytes in %s output (invalid bytes shown in \\xNN format)", r.StreamName))
		if r.activeChunk != nil {
			r.activeChunk.Messages.Add(m)
		} else {
			r.sessionMessages.Add(m)
		}
	}
	return backslashReplace(b)
}

// backslashReplace mirrors Python's `errors="backslashreplace"` decoding
// fallback: every byte that cannot start a valid rune is rendered as
// \xNN, valid runes pass through unchanged.
func backslashReplace(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteString(fmt.Sprintf("\\x%02x", b[0]))
			b = b[1:]
			continue
		}
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}

// Feed appends newly-read bytes to the internal buffer and processes as
// much of it as can be unambiguously resolved, per the specification's
// five-step algorithm. It may be called repeatedly as more bytes arrive.
func (r *StreamReader) Feed(data []byte) error {
	r.buf = append(r.buf, data...)

	for {
		idx := bytes.Index(r.buf, []byte(delimStartPattern))
		if idx < 0 {
			return r.flushCompleteLines()
		}

		lineEnd := bytes.IndexByte(r.buf[idx:], '\n')
		if lineEnd < 0 {
			// Delimiter candidate not yet fully buffered; emit everything
			// before it and wait for more bytes.
			r.emit(r.buf[:idx])
			r.buf = r.buf[idx:]
			return nil
		}
		lineEnd += idx

		before := r.buf[:idx]
		before = stripTrailingDelimNewline(before)
		r.emit(before)

		line := string(bytes.TrimRight(r.buf[idx:lineEnd], "\r"))
		rest := r.buf[lineEnd+1:]
		r.buf = nil

		d, ok := parseDelim(line)
		if !ok || d.Hash != r.Session.RunDelimHash {
			// Unparseable or hash-mismatched: treat as ordinary output.
			r.emit([]byte(line + "\n"))
		} else if err := r.applyDelim(d); err != nil {
			return err
		}

		r.buf = append(r.buf, rest...)
	}
}

// stripTrailingDelimNewline removes exactly one preceding `\n` or `\r\n`
// pair, the artefact of the template's line break before the delimiter.
func stripTrailingDelimNewline(b []byte) []byte {
	if bytes.HasSuffix(b, []byte("\r\n")) {
		return b[:len(b)-2]
	}
	if bytes.HasSuffix(b, []byte("\n")) {
		return b[:len(b)-1]
	}
	return b
}

// flushCompleteLines emits bytes up to and including the last complete
// line ending, retaining a possibly-partial tail (including a lone
// trailing `\r` that might be the start of a `\r\n` pair split across a
// read boundary).
func (r *StreamReader) flushCompleteLines() error {
	last := lastLineEnding(r.buf)
	if last < 0 {
		return nil
	}
	r.emit(r.buf[:last+1])
	r.buf = r.buf[last+1:]
	return nil
}

func lastLineEnding(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == '\n' {
			return i
		}
		if b[i] == '\r' && i != len(b)-1 {
			return i
		}
	}
	return -1
}

// applyDelim validates and applies one parsed delimiter, per §4.G.
func (r *StreamReader) applyDelim(d Delim) error {
	switch {
	case d.IsStart && d.Output == r.StreamName:
		r.expectedStart[d.Chunk]--
		if r.expectedStart[d.Chunk] != 0 || r.outputType != outputTypeStream || r.activeChunk != nil {
			r.attachRuntimeSourceError(d.Chunk, "unexpected start delimiter")
		}
		target := r.chunkByOutputIndex(d.OutputChunk)
		r.activeChunk = target
		return r.Rendezvous.ArriveChunkBoundary(d.Chunk, true)

	case d.IsStart:
		r.outputType = outputType(d.Output)
		return nil

	case !d.IsStart && d.Output == r.StreamName:
		r.expectedEnd[d.Chunk]--
		if r.expectedEnd[d.Chunk] != 0 {
			r.attachRuntimeSourceError(d.Chunk, "unexpected end delimiter")
		}
		r.activeChunk = nil
		return r.Rendezvous.ArriveChunkBoundary(d.Chunk, false)

	default: // end, other stream
		r.outputType = outputTypeStream
		return nil
	}
}

func (r *StreamReader) chunkByOutputIndex(idx int) *chunk.Chunk {
	for _, c := range r.Session.Chunks {
		if c.OutputIndex == idx {
			return c
		}
	}
	return nil
}

func (r *StreamReader) attachRuntimeSourceError(chunkIdx int, reason string) {
	target := r.chunkByOutputIndex(chunkIdx)
	m := message.New(message.Error, message.CategoryRuntimeSource, fmt.Sprintf("delimiter synchronisation error: %s", reason))
	if target != nil {
		target.Messages.Add(m)
	} else {
		r.sessionMessages.Add(m)
	}
}

// emit routes bytes to the active chunk's stream buffer, or the session's
// template buffer when no chunk is active -- template-level stderr still
// goes through rewriteStderrLines so error/warning patterns found outside
// any chunk still attach a message, per §4.G. Bytes are dropped entirely
// when output_type has been switched away from this reader's own stream
// by a cross-stream delimiter.
func (r *StreamReader) emit(b []byte) {
	if len(b) == 0 {
		return
	}
	if r.outputType != outputTypeStream {
		return
	}
	if r.OnLiveOutput != nil {
		r.OnLiveOutput(r.StreamName, b)
	}
	lines := splitLinesKeepEmpty(r.decode(b))
	if r.StreamName == "stderr" {
		lines, _ = rewriteStderrLines(lines, r.Session, r.activeChunk, len(*r.templateBuf))
	}

	if r.activeChunk == nil {
		*r.templateBuf = append(*r.templateBuf, lines...)
		return
	}
	switch r.StreamName {
	case "stdout":
		r.activeChunk.StdoutLines = append(r.activeChunk.StdoutLines, lines...)
	case "stderr":
		r.activeChunk.StderrLines = append(r.activeChunk.StderrLines, lines...)
	}
}

func splitLinesKeepEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
