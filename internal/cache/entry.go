package cache

import (
	"github.com/mvp-joe/codebraid/internal/collection"
	"github.com/mvp-joe/codebraid/internal/message"
)

// cachedMessage is message.Message reduced to the kind->class map the
// specification calls for: Severity and Category are carried as their
// stable string forms so the JSON survives a library rename, and Ref
// stays nil unless the message is itself a reference.
type cachedMessage struct {
	Severity string       `json:"severity"`
	Category string       `json:"category"`
	Lines    []string     `json:"lines,omitempty"`
	Ref      *cachedRef   `json:"ref,omitempty"`
	ExitCode *int         `json:"exit_code,omitempty"`
}

type cachedRef struct {
	Owner string `json:"owner"`
	Index int    `json:"index"`
}

func encodeMessages(msgs []*message.Message) []cachedMessage {
	out := make([]cachedMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := cachedMessage{Severity: m.Severity.String(), Category: string(m.Category), Lines: m.Lines, ExitCode: m.ExitCode}
		if m.Ref != nil {
			cm.Ref = &cachedRef{Owner: m.Ref.Owner, Index: m.Ref.Index}
		}
		out = append(out, cm)
	}
	return out
}

func decodeMessages(cms []cachedMessage) []*message.Message {
	out := make([]*message.Message, 0, len(cms))
	for _, cm := range cms {
		sev := message.Warning
		if cm.Severity == "error" {
			sev = message.Error
		}
		m := &message.Message{Severity: sev, Category: message.Category(cm.Category), Lines: cm.Lines, ExitCode: cm.ExitCode}
		if cm.Ref != nil {
			m.Ref = &message.Ref{Owner: cm.Ref.Owner, Index: cm.Ref.Index}
		}
		out = append(out, m)
	}
	return out
}

// cachedChunk carries exactly the output a chunk accumulates during
// execution; everything identifying the chunk (command, code, options)
// lives in the session hash instead, so a cache hit never needs to
// re-derive it.
type cachedChunk struct {
	StdoutLines []string        `json:"stdout_lines,omitempty"`
	StderrLines []string        `json:"stderr_lines,omitempty"`
	ReplLines   []string        `json:"repl_lines,omitempty"`
	ExprLines   []string        `json:"expr_lines,omitempty"`
	RichOutput  []string        `json:"rich_output,omitempty"`
	Messages    []cachedMessage `json:"messages,omitempty"`
}

// sessionCache is the persisted form of one fully-executed session,
// keyed by its full hash inside a hash_root.zip archive.
type sessionCache struct {
	Chunks []cachedChunk `json:"chunks"`

	CompileLines             []string `json:"compile_lines,omitempty"`
	PreRunOutputLines        []string `json:"pre_run_output_lines,omitempty"`
	TemplateStartStdoutLines []string `json:"template_start_stdout_lines,omitempty"`
	TemplateStartStderrLines []string `json:"template_start_stderr_lines,omitempty"`
	TemplateEndStdoutLines   []string `json:"template_end_stdout_lines,omitempty"`
	TemplateEndStderrLines   []string `json:"template_end_stderr_lines,omitempty"`
	OtherStdoutLines         []string `json:"other_stdout_lines,omitempty"`
	OtherStderrLines         []string `json:"other_stderr_lines,omitempty"`
	PostRunOutputLines       []string `json:"post_run_output_lines,omitempty"`

	SessionMessages []cachedMessage `json:"session_messages,omitempty"`
}

// entryFromSession captures everything a completed session produced, for
// writing into its hash_root archive.
func entryFromSession(sess *collection.Session) sessionCache {
	sc := sessionCache{
		Chunks:                   make([]cachedChunk, len(sess.Chunks)),
		CompileLines:             sess.CompileLines,
		PreRunOutputLines:        sess.PreRunOutputLines,
		TemplateStartStdoutLines: sess.TemplateStartStdoutLines,
		TemplateStartStderrLines: sess.TemplateStartStderrLines,
		TemplateEndStdoutLines:   sess.TemplateEndStdoutLines,
		TemplateEndStderrLines:   sess.TemplateEndStderrLines,
		OtherStdoutLines:         sess.OtherStdoutLines,
		OtherStderrLines:         sess.OtherStderrLines,
		PostRunOutputLines:       sess.PostRunOutputLines,
		SessionMessages:          encodeMessages(sess.Status.Cacheable()),
	}
	for i, c := range sess.Chunks {
		sc.Chunks[i] = cachedChunk{
			StdoutLines: c.StdoutLines,
			StderrLines: c.StderrLines,
			ReplLines:   c.ReplLines,
			ExprLines:   c.ExprLines,
			RichOutput:  c.RichOutput,
			Messages:    encodeMessages(c.Messages.Cacheable()),
		}
	}
	return sc
}

// applyToSession rehydrates a cached entry onto sess: output buffers are
// restored verbatim and cacheable messages are replayed through the
// normal Collector.Add path so rollup bits (PreventCaching, error counts,
// ...) come back exactly as they were the first time.
func applyToSession(sc sessionCache, sess *collection.Session) {
	sess.CompileLines = sc.CompileLines
	sess.PreRunOutputLines = sc.PreRunOutputLines
	sess.TemplateStartStdoutLines = sc.TemplateStartStdoutLines
	sess.TemplateStartStderrLines = sc.TemplateStartStderrLines
	sess.TemplateEndStdoutLines = sc.TemplateEndStdoutLines
	sess.TemplateEndStderrLines = sc.TemplateEndStderrLines
	sess.OtherStdoutLines = sc.OtherStdoutLines
	sess.OtherStderrLines = sc.OtherStderrLines
	sess.PostRunOutputLines = sc.PostRunOutputLines

	for _, m := range decodeMessages(sc.SessionMessages) {
		sess.Status.Add(m)
	}

	for i, cc := range sc.Chunks {
		if i >= len(sess.Chunks) {
			break
		}
		c := sess.Chunks[i]
		c.StdoutLines = cc.StdoutLines
		c.StderrLines = cc.StderrLines
		c.ReplLines = cc.ReplLines
		c.ExprLines = cc.ExprLines
		c.RichOutput = cc.RichOutput
		for _, m := range decodeMessages(cc.Messages) {
			c.Messages.Add(m)
		}
	}
	sess.NeedsExec = false
}

// richOutputFiles collects every rich-output path a session's chunks
// reference, used to populate the index's file set and, in no_cache
// mode, to know what to delete on cleanup.
func richOutputFiles(sess *collection.Session) []string {
	var out []string
	for _, c := range sess.Chunks {
		out = append(out, c.RichOutput...)
	}
	return out
}
