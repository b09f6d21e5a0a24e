// Package progress implements the specification's §4.J progress reporter:
// a rolling task/subtask/error/warning status line emitted to stderr at
// most once per second or on change, plus the live-output interleaving
// rule used when a session opts into `live_output`.
package progress

// Task is the document-level phase the reporter's status line names.
type Task string

const (
	TaskParse       Task = "Parse"
	TaskProcess     Task = "Process"
	TaskExec        Task = "Exec"
	TaskPostprocess Task = "Postprocess"
	TaskConvert     Task = "Convert"
	TaskComplete    Task = "Complete"
)

// Reporter is the interface the execution core reports progress through.
// A no-op implementation is used when the caller asked for quiet output.
type Reporter interface {
	SetTask(t Task)
	SetSubtask(name string)
	SetTotalChunks(n int)
	ChunkCompleted()
	AddError()
	AddWarning()
	// LiveOutput streams one fragment of a session's live output. stream
	// is "stdout" or "stderr".
	LiveOutput(sessionName, stream string, data []byte)
	// SessionStart/SessionEnd bracket a live_output session with the
	// framing blocks the specification names.
	SessionStart(sessionName string)
	SessionEnd(sessionName string)
	Close()
}

// NoopReporter discards everything; used for `--quiet` builds.
type NoopReporter struct{}

func (NoopReporter) SetTask(Task)                        {}
func (NoopReporter) SetSubtask(string)                    {}
func (NoopReporter) SetTotalChunks(int)                   {}
func (NoopReporter) ChunkCompleted()                      {}
func (NoopReporter) AddError()                            {}
func (NoopReporter) AddWarning()                           {}
func (NoopReporter) LiveOutput(string, string, []byte)    {}
func (NoopReporter) SessionStart(string)                  {}
func (NoopReporter) SessionEnd(string)                    {}
func (NoopReporter) Close()                               {}
