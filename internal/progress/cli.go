package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// statusThrottle caps the status line to at most once a second, per the
// specification, except when task or subtask itself changes.
const statusThrottle = time.Second

// CLIReporter is the default Reporter: a single rolling status line on
// stderr, plus live-output interleaving for sessions that asked for it.
// On a terminal the status line is rendered with schollz/progressbar/v3
// (carriage-return overwritten in place); otherwise it falls back to
// discrete `PROGRESS: ...` lines, matching the specification's explicit
// split between the two modes.
type CLIReporter struct {
	mu sync.Mutex

	out   io.Writer
	isTTY bool
	bar   *progressbar.ProgressBar

	task    Task
	subtask string

	totalChunks     int
	completedChunks int
	errors          int
	warnings        int

	lastEmit        time.Time
	lastTask        Task
	lastSubtask     string

	live *liveOutputMux
}

// NewCLIReporter builds a reporter writing to out (typically os.Stderr).
func NewCLIReporter(out io.Writer) *CLIReporter {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return &CLIReporter{out: out, isTTY: isTTY, task: TaskParse, live: newLiveOutputMux(out)}
}

func (r *CLIReporter) SetTask(t Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.task = t
	r.subtask = ""
	r.maybeEmit(true)
}

func (r *CLIReporter) SetSubtask(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subtask = name
	r.maybeEmit(true)
}

func (r *CLIReporter) SetTotalChunks(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalChunks = n
	if r.isTTY {
		r.ensureBar()
		r.bar.ChangeMax(n)
	}
	r.maybeEmit(false)
}

func (r *CLIReporter) ChunkCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completedChunks++
	if r.isTTY && r.bar != nil {
		r.bar.Add(1)
	}
	r.maybeEmit(false)
}

func (r *CLIReporter) AddError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors++
	r.maybeEmit(false)
}

func (r *CLIReporter) AddWarning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings++
	r.maybeEmit(false)
}

func (r *CLIReporter) LiveOutput(sessionName, stream string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live.write(stream, data)
}

func (r *CLIReporter) SessionStart(sessionName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live.sessionStart(sessionName)
}

func (r *CLIReporter) SessionEnd(sessionName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live.sessionEnd(sessionName)
}

func (r *CLIReporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		r.bar.Finish()
	}
}

func (r *CLIReporter) ensureBar() {
	if r.bar != nil {
		return
	}
	r.bar = progressbar.NewOptions(r.totalChunks,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(r.statusText()),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(statusThrottle),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(r.out) }),
	)
}

// maybeEmit writes the status line if forced (task/subtask changed) or
// if statusThrottle has elapsed since the last emission.
func (r *CLIReporter) maybeEmit(force bool) {
	changed := r.task != r.lastTask || r.subtask != r.lastSubtask
	if !force && !changed && time.Since(r.lastEmit) < statusThrottle {
		return
	}
	r.lastEmit = time.Now()
	r.lastTask, r.lastSubtask = r.task, r.subtask

	if r.isTTY {
		if r.bar != nil {
			r.bar.Describe(r.statusText())
		}
		return
	}
	fmt.Fprintf(r.out, "PROGRESS: %s\n", r.statusText())
}

func (r *CLIReporter) statusText() string {
	text := string(r.task)
	if r.subtask != "" {
		text += " > " + r.subtask
	}
	if r.totalChunks > 0 {
		text += fmt.Sprintf(" (%d/%d chunks)", r.completedChunks, r.totalChunks)
	}
	if r.errors > 0 || r.warnings > 0 {
		text += fmt.Sprintf(" [%d err, %d warn]", r.errors, r.warnings)
	}
	return text
}
