package subexec

import (
	"os"
	"strconv"
	"strings"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/collection"
	"github.com/mvp-joe/codebraid/internal/message"
)

// sourcePathForRewrite is set once per run by the orchestrator so the
// rewriter can recognise the generated program's absolute path in stderr
// text. A package-level var keeps rewriteStderrLines's signature simple;
// it is only ever touched before a run starts and read during it, never
// concurrently written.
var sourcePathForRewrite string

// SetSourcePath records the generated program's on-disk path for the
// duration of one run, used by the stderr rewriter to recognise and
// replace it.
func SetSourcePath(path string) { sourcePathForRewrite = path }

// rewriteStderrLines implements the specification's stderr/compile
// rewriter: traceback line numbers are translated from generated-program
// lines back to user-visible ones, the temp source path is replaced with
// a stable display name, $HOME is sanitised, and error/warning patterns
// are scanned to attach a message the first time each is seen for this
// chunk. c is nil for template-level output (no chunk is currently
// active); bufIndex is the session template buffer's length before this
// text is appended, used to identify the StderrRunRef this call may
// attach. synced reports the chunk whose code a translated line number
// resolved to, the "most-recently-synced chunk" a c == nil pattern match
// is attributed to.
func rewriteStderrLines(lines []string, sess *collection.Session, c *chunk.Chunk, bufIndex int) (out []string, synced *chunk.Chunk) {
	if sess.Language == nil {
		return lines, nil
	}
	text := strings.Join(lines, "\n")

	mentionsSource := sourcePathForRewrite != "" && strings.Contains(text, sourcePathForRewrite)
	lineNumRE := sess.Language.CompiledLineNumberRegex()

	if !mentionsSource && !referencesAnyLineNumber(lineNumRE, text) {
		text = sanitizeHome(text)
		out = strings.Split(text, "\n")
		scanPatterns(sess, c, nil, bufIndex, out)
		return out, nil
	}

	displayName := "source." + sess.Language.Extension
	if c != nil && c.Inline {
		displayName = "<string>"
	}
	if sourcePathForRewrite != "" {
		text = strings.ReplaceAll(text, sourcePathForRewrite, displayName)
	}

	if lineNumRE != nil {
		origins := sess.RunCodeToOrigins()
		text = lineNumRE.RewriteLine(text, func(generatedLine int) string {
			if origin, ok := origins[generatedLine]; ok {
				if synced == nil || synced.Index > origin.Chunk.Index {
					synced = origin.Chunk
				}
				return strconv.Itoa(origin.Chunk.OriginStartLineNumber + origin.UserLine - 1)
			}
			return "[" + strconv.Itoa(generatedLine) + "]"
		})
	}

	text = sanitizeHome(text)
	out = strings.Split(text, "\n")
	scanPatterns(sess, c, synced, bufIndex, out)
	return out, synced
}

func referencesAnyLineNumber(re interface{ RewriteLine(string, func(int) string) string }, text string) bool {
	if re == nil {
		return false
	}
	found := false
	re.RewriteLine(text, func(int) string {
		found = true
		return ""
	})
	return found
}

func sanitizeHome(s string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return s
	}
	return strings.ReplaceAll(s, home, "~")
}

// scanPatterns attaches at most one StderrRunError or StderrRunWarning
// per chunk (or, for template-level output, per session) the first time
// an error_pattern/warning_pattern substring is seen in its stderr text.
// When c is nil (no chunk active), the message is attached to the
// session and, if synced names a chunk, a StderrRunErrorRef/WarningRef is
// also attached to that chunk so the rendered document can surface the
// traceback near the responsible chunk.
func scanPatterns(sess *collection.Session, c *chunk.Chunk, synced *chunk.Chunk, bufIndex int, lines []string) {
	text := strings.Join(lines, "\n")

	if c != nil {
		if c.Messages == nil || hasStderrRunMessage(c.Messages) {
			return
		}
		for _, pat := range sess.Language.ErrorPatterns {
			if strings.Contains(text, pat) {
				c.Messages.Add(message.New(message.Error, message.CategoryStderrRun, text))
				return
			}
		}
		for _, pat := range sess.Language.WarningPatterns {
			if strings.Contains(text, pat) {
				c.Messages.Add(message.New(message.Warning, message.CategoryStderrRun, text))
				return
			}
		}
		return
	}

	if hasStderrRunMessage(sess.Status) {
		return
	}
	ref := message.Ref{Owner: sess.Key.Name, Index: bufIndex}
	for _, pat := range sess.Language.ErrorPatterns {
		if strings.Contains(text, pat) {
			sess.Status.Add(message.New(message.Error, message.CategoryStderrRun, text))
			attachStderrRunRef(synced, message.Error, ref)
			return
		}
	}
	for _, pat := range sess.Language.WarningPatterns {
		if strings.Contains(text, pat) {
			sess.Status.Add(message.New(message.Warning, message.CategoryStderrRun, text))
			attachStderrRunRef(synced, message.Warning, ref)
			return
		}
	}
}

func attachStderrRunRef(synced *chunk.Chunk, sev message.Severity, ref message.Ref) {
	if synced == nil || synced.Messages == nil || hasStderrRunRefMessage(synced.Messages) {
		return
	}
	synced.Messages.Add(message.NewRef(sev, message.CategoryStderrRunRef, ref))
}

func hasStderrRunMessage(mc *message.Collector) bool {
	for _, m := range mc.Messages() {
		if m.Category == message.CategoryStderrRun {
			return true
		}
	}
	return false
}

func hasStderrRunRefMessage(mc *message.Collector) bool {
	for _, m := range mc.Messages() {
		if m.Category == message.CategoryStderrRunRef {
			return true
		}
	}
	return false
}
