// Package language implements the language-definition schema that
// parameterises execution: the fields a definition may declare, the
// defaults applied when it does not, and the pure-string template
// validation the run template, chunk wrapper, and inline expression
// formatter are held to.
package language

import "fmt"

// Definition is a language definition as loaded from an external record
// (YAML loading itself is out of scope; Load accepts an already-decoded
// RawDefinition). Only Extension is required; everything else either defaults from
// the language name or is computed.
type Definition struct {
	Extension string
	Language  string

	Executable     string
	ExecutableOpts []string
	Args           []string

	CompileCommands []string
	PreRunCommands  []string
	RunCommand      string
	PostRunCommands []string

	CompileEncoding string
	PreRunEncoding  string
	RunEncoding     string
	PostRunEncoding string

	RunTemplate               string
	ChunkWrapper              string
	InlineExpressionFormatter string

	ErrorPatterns      []string
	WarningPatterns    []string
	LineNumberPatterns []string
	LineNumberRegex    string

	// Repl indicates the chunk_wrapper must also carry
	// {repl_start_delim}/{repl_end_delim}.
	Repl bool

	// InterpreterScript marks languages (like the default python/ruby)
	// whose run_command feeds the generated program over stdin rather
	// than via a source file argument.
	InterpreterScript bool

	// compiledLineNumberRegex is the compiled form of LineNumberPatterns plus
	// LineNumberRegex, built once by Validate.
	compiledLineNumberRegex *lineNumberRegex
}

const defaultEncoding = "utf-8"

// RawDefinition is the external-record shape a document's metadata loader
// hands to Load; it mirrors Definition field-for-field but leaves slices
// and strings in their "either a string or a list" source form.
type RawDefinition struct {
	Extension string

	Language       string
	Executable     string
	ExecutableOpts any // string or []string
	Args           any // string or []string

	CompileCommands any // string or []string
	PreRunCommands  any
	RunCommand      any
	PostRunCommands any

	CompileEncoding string
	PreRunEncoding  string
	RunEncoding     string
	PostRunEncoding string

	RunTemplate               string
	ChunkWrapper              string
	InlineExpressionFormatter string

	ErrorPatterns      []string
	WarningPatterns    []string
	LineNumberPatterns []string
	LineNumberRegex    string

	Repl              bool
	InterpreterScript bool
}

// Load builds a Definition from a RawDefinition, applying defaults and
// shell-splitting the string forms of ExecutableOpts/Args via the same
// library the teacher's pack reaches for shell-like argument splitting.
func Load(raw RawDefinition) (*Definition, error) {
	if raw.Extension == "" {
		return nil, fmt.Errorf("language definition missing required field: extension")
	}

	d := &Definition{
		Extension:                 raw.Extension,
		Language:                  raw.Language,
		Executable:                raw.Executable,
		CompileEncoding:           stringDefault(raw.CompileEncoding, defaultEncoding),
		PreRunEncoding:            stringDefault(raw.PreRunEncoding, defaultEncoding),
		RunEncoding:               stringDefault(raw.RunEncoding, defaultEncoding),
		PostRunEncoding:           stringDefault(raw.PostRunEncoding, defaultEncoding),
		RunTemplate:               raw.RunTemplate,
		ChunkWrapper:              raw.ChunkWrapper,
		InlineExpressionFormatter: raw.InlineExpressionFormatter,
		ErrorPatterns:             raw.ErrorPatterns,
		WarningPatterns:           raw.WarningPatterns,
		LineNumberPatterns:        raw.LineNumberPatterns,
		LineNumberRegex:           raw.LineNumberRegex,
		Repl:                      raw.Repl,
		InterpreterScript:         raw.InterpreterScript,
	}
	if d.Language == "" {
		d.Language = d.Extension
	}
	if d.Executable == "" {
		d.Executable = d.Language
	}

	var err error
	if d.ExecutableOpts, err = splitStringList(raw.ExecutableOpts); err != nil {
		return nil, fmt.Errorf("executable_opts: %w", err)
	}
	if d.Args, err = splitStringList(raw.Args); err != nil {
		return nil, fmt.Errorf("args: %w", err)
	}
	if d.CompileCommands, err = toStringList(raw.CompileCommands); err != nil {
		return nil, fmt.Errorf("compile_commands: %w", err)
	}
	if d.PreRunCommands, err = toStringList(raw.PreRunCommands); err != nil {
		return nil, fmt.Errorf("pre_run_commands: %w", err)
	}
	if d.PostRunCommands, err = toStringList(raw.PostRunCommands); err != nil {
		return nil, fmt.Errorf("post_run_commands: %w", err)
	}
	if runCmds, err := toStringList(raw.RunCommand); err != nil {
		return nil, fmt.Errorf("run_command: %w", err)
	} else if len(runCmds) > 0 {
		d.RunCommand = runCmds[0]
	}

	if d.RunCommand == "" {
		if d.InterpreterScript {
			d.RunCommand = "{executable} {run_script} {run_delim_start} {run_delim_hash} {buffering}"
		} else {
			d.RunCommand = "{executable} {executable_opts} {source} {args}"
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func stringDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Validate performs the pure-string template validation specified for
// run_template, chunk_wrapper, and inline_expression_formatter, and
// compiles the line-number traceback regex. It is called once by Load.
func (d *Definition) Validate() error {
	if d.RunTemplate != "" {
		if err := validateRunTemplate(d.RunTemplate); err != nil {
			return fmt.Errorf("run_template: %w", err)
		}
	}
	if d.ChunkWrapper != "" {
		if err := validateChunkWrapper(d.ChunkWrapper, d.Repl); err != nil {
			return fmt.Errorf("chunk_wrapper: %w", err)
		}
	}
	if d.InlineExpressionFormatter != "" {
		if err := validateInlineExpressionFormatter(d.InlineExpressionFormatter); err != nil {
			return fmt.Errorf("inline_expression_formatter: %w", err)
		}
	}

	if len(d.LineNumberPatterns) == 0 && d.LineNumberRegex == "" {
		return fmt.Errorf("at least one of line_number_patterns or line_number_regex must be set")
	}
	re, err := compileLineNumberRegex(d.LineNumberPatterns, d.LineNumberRegex)
	if err != nil {
		return fmt.Errorf("line number patterns: %w", err)
	}
	d.compiledLineNumberRegex = re
	return nil
}

// CompiledLineNumberRegex returns the traceback-rewriting regex built from
// LineNumberPatterns and LineNumberRegex during Validate.
func (d *Definition) CompiledLineNumberRegex() *lineNumberRegex {
	return d.compiledLineNumberRegex
}
