package collection

import (
	"fmt"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/language"
)

// Session extends Base with everything needed to assemble, hash, and
// (lazily) synthesize the run program for one executing chunk group.
type Session struct {
	Base

	Language *language.Definition

	JupyterKernel  string
	JupyterTimeout int

	Executable     string
	ExecutableOpts string
	Args           string
	LiveOutput     bool

	NeedsExec bool

	CompileLines           []string
	PreRunOutputLines      []string
	TemplateStartStdoutLines []string
	TemplateStartStderrLines []string
	TemplateEndStdoutLines   []string
	TemplateEndStderrLines   []string
	OtherStdoutLines         []string
	OtherStderrLines         []string
	PostRunOutputLines       []string

	Hash         string
	HashRoot     string
	RunDelimHash string
	TempSuffix   string

	runCode              string
	runCodeToOrigins     map[int]Origin
	expectedStdoutStart  map[int]int
	expectedStdoutEnd    map[int]int
	expectedStderrStart  map[int]int
	expectedStderrEnd    map[int]int
}

// Origin maps one generated-program line back to the chunk and 1-based
// user-code line it came from.
type Origin struct {
	Chunk    *chunk.Chunk
	UserLine int
}

// NewSession constructs an empty Session collection for key.
func NewSession(key Key) *Session {
	key.Kind = KindSession
	return &Session{Base: newBase(key), NeedsExec: true}
}

// AppendFirstChunkOptions routes a session's first-chunk-only options
// (executable, executable_opts, args, jupyter_kernel, jupyter_timeout,
// live_output) into the session's own fields; save and save_as are not
// routed here. It is called once, when the session's first chunk is
// appended.
func (s *Session) AppendFirstChunkOptions(o *chunk.Options) {
	s.Executable = o.Executable
	s.ExecutableOpts = o.ExecutableOpts
	s.Args = o.Args
	s.JupyterKernel = o.JupyterKernel
	s.JupyterTimeout = o.JupyterTimeout
	s.LiveOutput = o.LiveOutput
}

// Finalize performs the six finalisation passes from the specification:
// output-index assignment, the final-chunk-complete rule, code-start-line
// assignment, the prevent_exec early-return, and session hashing.
func (s *Session) Finalize() error {
	if err := s.assignOutputIndexes(); err != nil {
		return err
	}
	s.assignCodeStartLines()

	if s.Status.PreventExec {
		return nil
	}

	h, hashRoot, runDelimHash, err := s.computeHash()
	if err != nil {
		return fmt.Errorf("session %q: %w", s.Key.Name, err)
	}
	s.Hash = h
	s.HashRoot = hashRoot
	s.RunDelimHash = runDelimHash
	return nil
}
