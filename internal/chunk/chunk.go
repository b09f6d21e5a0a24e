package chunk

import (
	"fmt"

	"github.com/mvp-joe/codebraid/internal/message"
)

// Chunk is one embedded block or inline snippet, matching the
// specification's CodeChunk. Structurally immutable after construction;
// CodeLines and the output buffers are filled in later by copy resolution
// and execution respectively.
type Chunk struct {
	Command Command
	Inline  bool
	IsExpr  bool

	CodeLines            []string
	PlaceholderCodeLines []string

	OriginName             string
	OriginStartLineNumber  int
	CodeStartLineNumber    int

	Options *Options

	// Index is this chunk's position within its collection, assigned by
	// the collection on append. Used as the map key for run-program
	// delimiter bookkeeping and copy-cycle reporting.
	Index int

	// CopyTargets holds the chunks named by Options.Copy, attached by the
	// copy resolver once every name in the document is known.
	CopyTargets []*Chunk

	// OutputIndex is set during session finalisation: all incomplete
	// chunks between two complete boundaries share the output_index of the
	// chunk that finalises them.
	OutputIndex int

	StdoutLines []string
	StderrLines []string
	ReplLines   []string
	ExprLines   []string
	RichOutput  []string

	Messages *message.Collector
}

// New constructs a chunk in its pre-copy-resolution state: code_lines is
// left empty unless the chunk already carries literal code (the common
// case for anything that isn't `copy` or `include`).
func New(cmd Command, inline bool, origin string, originLine int, opts *Options, literalCode []string) *Chunk {
	c := &Chunk{
		Command:               cmd,
		Inline:                inline,
		IsExpr:                opts.IsExpr,
		OriginName:            origin,
		OriginStartLineNumber: originLine,
		Options:               opts,
		CodeLines:             literalCode,
		Messages:              &message.Collector{},
	}
	return c
}

// Complete reports the chunk's resolved complete option (never nil once
// Options.applyDefaults has run).
func (c *Chunk) Complete() bool {
	if c.Options.Complete == nil {
		return true
	}
	return *c.Options.Complete
}

// NeedsCopy reports whether this chunk must wait on the copy resolver
// before it has code of its own.
func (c *Chunk) NeedsCopy() bool {
	return c.Options.Copy != ""
}

// ResolvedTargets reports whether every copy target this chunk depends on has
// already resolved its own code (including any targets that are
// themselves awaiting copy).
func (c *Chunk) ResolvedTargets() bool {
	for _, t := range c.CopyTargets {
		if t.NeedsCopy() && len(t.CodeLines) == 0 {
			return false
		}
	}
	return true
}

// CopyCode implements the specification's copy_code finalisation: it
// validates that every target agrees on expression-ness (with the
// documented paste/code exception), concatenates their code lines, and
// forbids a multi-line inline display after copy.
func (c *Chunk) CopyCode() error {
	if len(c.CopyTargets) == 0 {
		return fmt.Errorf("chunk %q: copy target list is empty", c.Options.Copy)
	}

	exprTargets := 0
	for _, t := range c.CopyTargets {
		if t.IsExpr {
			exprTargets++
		}
	}
	switch {
	case exprTargets == len(c.CopyTargets) && exprTargets > 0:
		switch c.Command {
		case CommandPaste, CommandCode:
			if len(c.CopyTargets) == 1 {
				c.IsExpr = true
			} else {
				return fmt.Errorf("chunk cannot copy multiple expression targets")
			}
		default:
			return fmt.Errorf("command %q cannot copy an expression", c.Command)
		}
	case exprTargets > 0 && exprTargets < len(c.CopyTargets):
		return fmt.Errorf("copy targets disagree on expression-ness")
	}

	var lines []string
	for _, t := range c.CopyTargets {
		lines = append(lines, t.CodeLines...)
	}
	c.CodeLines = lines

	if c.Inline && len(c.CodeLines) > 1 {
		return fmt.Errorf("inline chunk cannot display multi-line code after copy")
	}
	return nil
}

// ResolveInclude reads raw (the file content named by Options.Include) and
// installs the selected lines as this chunk's code.
func (c *Chunk) ResolveInclude(raw string) error {
	lines, err := c.Options.Include.Resolve(raw)
	if err != nil {
		return err
	}
	c.CodeLines = lines
	return nil
}
