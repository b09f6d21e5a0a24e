package progress

import (
	"fmt"
	"io"
	"strings"
)

// liveOutputMux interleaves a session's stdout/stderr fragments onto one
// writer under the framing blocks the specification names, applying its
// buffering rule: if the last line written does not end with `\n` and
// the new fragment belongs to the other stream, the fragment is queued
// until the current line is flushed, so the two streams never interleave
// mid-line. A stderr fragment starting with `\r` forces the current line
// to close first, matching a carriage-return's usual "start this line
// over" intent.
type liveOutputMux struct {
	out io.Writer

	lastStream      string // "stdout" or "stderr", empty before first write
	lastEndedInLine bool   // true once the last byte written was '\n'
	pending         map[string][]byte
}

func newLiveOutputMux(out io.Writer) *liveOutputMux {
	return &liveOutputMux{out: out, lastEndedInLine: true, pending: map[string][]byte{}}
}

func (m *liveOutputMux) sessionStart(name string) {
	fmt.Fprintf(m.out, "SESSION: START %s\n", name)
	m.lastStream = ""
	m.lastEndedInLine = true
}

func (m *liveOutputMux) sessionEnd(name string) {
	m.drainPending()
	fmt.Fprintf(m.out, "SESSION: END %s\n", name)
}

// write feeds one fragment from stream ("stdout"/"stderr"). It is called
// once per chunk of bytes read off the child process's pipes. write never
// emits the "CODE CHUNK: LIVE OUTPUT" framing line; only chunkBoundary
// writes it, and nothing in this package calls chunkBoundary.
func (m *liveOutputMux) write(stream string, data []byte) {
	if len(data) == 0 {
		return
	}

	if stream == "stderr" && data[0] == '\r' && !m.lastEndedInLine {
		io.WriteString(m.out, "\n")
		m.lastEndedInLine = true
	}

	if !m.lastEndedInLine && m.lastStream != "" && m.lastStream != stream {
		m.pending[stream] = append(m.pending[stream], data...)
		return
	}

	m.emit(stream, data)
}

// emit writes data as the active stream and, once it closes out a line,
// drains any fragment the other stream had queued while it waited.
func (m *liveOutputMux) emit(stream string, data []byte) {
	m.out.Write(data)
	m.lastStream = stream
	m.lastEndedInLine = strings.HasSuffix(string(data), "\n")
	if m.lastEndedInLine {
		m.drainPending()
	}
}

// drainPending flushes a fragment queued for whichever stream is not the
// one that just finished a line. Recurses through emit so a chain of
// queued fragments (rare, but possible if both streams raced) drains in
// the order they were queued.
func (m *liveOutputMux) drainPending() {
	for stream, buf := range m.pending {
		if len(buf) == 0 {
			continue
		}
		delete(m.pending, stream)
		m.emit(stream, buf)
		return
	}
}

func (m *liveOutputMux) chunkBoundary() {
	io.WriteString(m.out, "CODE CHUNK: LIVE OUTPUT\n")
}
