package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mvp-joe/codebraid/internal/collection"
	"github.com/mvp-joe/codebraid/internal/message"
)

// Test plan for the process-coordinator exit code:
// 1. A clean document exits 0
// 2. A session with prevent_exec sets 0x04, never cancels back to 0 with two such sessions
// 3. A session error without prevent_exec sets 0x08
// 4. A source error sets 0x08
// 5. A session warning sets 0x10
// 6. All three conditions XOR together to 0x1c

func sessionWith(t *testing.T, msgs ...*message.Message) *collection.Session {
	t.Helper()
	sess := collection.NewSession(collection.Key{Lang: "python", Kind: collection.KindSession})
	for _, m := range msgs {
		sess.Status.Add(m)
	}
	return sess
}

func sourceWith(t *testing.T, msgs ...*message.Message) *collection.Source {
	t.Helper()
	src := collection.NewSource(collection.Key{Lang: "python", Kind: collection.KindSource})
	for _, m := range msgs {
		src.Status.Add(m)
	}
	return src
}

func TestExitCode_CleanDocument(t *testing.T) {
	t.Parallel()

	doc := &Document{Sessions: []*collection.Session{sessionWith(t)}}
	assert.Equal(t, 0, ExitCode(doc))
}

func TestExitCode_PreventExecDoesNotCancelAcrossSessions(t *testing.T) {
	t.Parallel()

	doc := &Document{Sessions: []*collection.Session{
		sessionWith(t, message.New(message.Error, message.CategorySysConfig, "bad")),
		sessionWith(t, message.New(message.Error, message.CategorySysConfig, "bad too")),
	}}
	assert.Equal(t, 0x04, ExitCode(doc))
}

func TestExitCode_SessionErrorWithoutPreventExec(t *testing.T) {
	t.Parallel()

	doc := &Document{Sessions: []*collection.Session{
		sessionWith(t, message.New(message.Error, message.CategoryRuntimeSource, "boom")),
	}}
	assert.Equal(t, 0x08, ExitCode(doc))
}

func TestExitCode_SourceError(t *testing.T) {
	t.Parallel()

	doc := &Document{Sources: []*collection.Source{
		sourceWith(t, message.New(message.Error, message.CategorySource, "bad source")),
	}}
	assert.Equal(t, 0x08, ExitCode(doc))
}

func TestExitCode_SessionWarning(t *testing.T) {
	t.Parallel()

	doc := &Document{Sessions: []*collection.Session{
		sessionWith(t, message.New(message.Warning, message.CategoryRun, "heads up")),
	}}
	assert.Equal(t, 0x10, ExitCode(doc))
}

func TestExitCode_AllThreeBitsCombine(t *testing.T) {
	t.Parallel()

	doc := &Document{Sessions: []*collection.Session{
		sessionWith(t,
			message.New(message.Error, message.CategorySysConfig, "prevents exec"),
		),
		sessionWith(t,
			message.New(message.Error, message.CategoryRuntimeSource, "runtime error"),
			message.New(message.Warning, message.CategoryRun, "warning"),
		),
	}}
	assert.Equal(t, 0x1c, ExitCode(doc))
}
