package chunk

import (
	"fmt"
	"strings"
)

// ShowOutput is one of the display targets a `show` entry names.
type ShowOutput string

const (
	ShowMarkup       ShowOutput = "markup"
	ShowCopiedMarkup ShowOutput = "copied_markup"
	ShowCode         ShowOutput = "code"
	ShowRepl         ShowOutput = "repl"
	ShowStdout       ShowOutput = "stdout"
	ShowStderr       ShowOutput = "stderr"
	ShowExpr         ShowOutput = "expr"
	ShowRichOutput   ShowOutput = "rich_output"
)

// formatsByOutput constrains the `:format` suffix permitted after each
// output name. rich_output alone accepts an arbitrary `|`-joined MIME-ish
// list rather than one of a fixed set.
var formatsByOutput = map[ShowOutput][]string{
	ShowMarkup:       {"verbatim", "raw"},
	ShowCopiedMarkup: {"verbatim", "raw"},
	ShowCode:         {"verbatim"},
	ShowRepl:         {"verbatim", "verbatim_or_empty"},
	ShowStdout:       {"verbatim", "verbatim_or_empty"},
	ShowStderr:       {"verbatim", "verbatim_or_empty"},
	ShowExpr:         {"verbatim", "verbatim_or_empty", "raw"},
	ShowRichOutput:   nil, // arbitrary `|`-joined MIME list
}

// ShowEntry is one parsed `output[:format]` term of a `show` value.
type ShowEntry struct {
	Output ShowOutput
	Format string
}

func validShowOutput(s string) (ShowOutput, bool) {
	switch ShowOutput(s) {
	case ShowMarkup, ShowCopiedMarkup, ShowCode, ShowRepl, ShowStdout, ShowStderr, ShowExpr, ShowRichOutput:
		return ShowOutput(s), true
	}
	return "", false
}

// ParseShow parses a `+`-joined show value such as "code+stdout:verbatim".
// An empty raw value yields the command/inline-appropriate default.
func ParseShow(raw string, cmd Command, inline bool) ([]ShowEntry, error) {
	if raw == "" {
		return defaultShow(cmd, inline), nil
	}
	var entries []ShowEntry
	for _, term := range strings.Split(raw, "+") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		name, format, hasFormat := strings.Cut(term, ":")
		out, ok := validShowOutput(name)
		if !ok {
			return nil, fmt.Errorf("show: unrecognized output %q", name)
		}
		if hasFormat {
			if err := validateShowFormat(out, format); err != nil {
				return nil, err
			}
		}
		entries = append(entries, ShowEntry{Output: out, Format: format})
	}
	return entries, nil
}

func validateShowFormat(out ShowOutput, format string) error {
	allowed, explicit := formatsByOutput[out]
	if out == ShowRichOutput {
		for _, mime := range strings.Split(format, "|") {
			if strings.TrimSpace(mime) == "" {
				return fmt.Errorf("show: empty MIME type in rich_output format %q", format)
			}
		}
		return nil
	}
	if !explicit {
		return fmt.Errorf("show: output %q does not accept a format suffix", out)
	}
	for _, a := range allowed {
		if a == format {
			return nil
		}
	}
	return fmt.Errorf("show: format %q is not valid for output %q", format, out)
}

// defaultShow returns the show list used when a chunk sets none, chosen by
// command and inline flag: expr shows its code and expression result; run
// shows stdout and stderr; any other inline chunk shows its code; any other
// block shows code, stdout, and stderr. No default includes markup.
func defaultShow(cmd Command, inline bool) []ShowEntry {
	switch cmd {
	case CommandExpr:
		return []ShowEntry{{Output: ShowCode}, {Output: ShowExpr}}
	case CommandRun:
		return []ShowEntry{{Output: ShowStdout}, {Output: ShowStderr}}
	default:
		if inline {
			return []ShowEntry{{Output: ShowCode}}
		}
		return []ShowEntry{{Output: ShowCode}, {Output: ShowStdout}, {Output: ShowStderr}}
	}
}

// ApplyHide removes entries named by a `+`-joined hide value from show.
func ApplyHide(show []ShowEntry, hide string) []ShowEntry {
	hidden := map[ShowOutput]bool{}
	for _, name := range strings.Split(hide, "+") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if out, ok := validShowOutput(name); ok {
			hidden[out] = true
		}
	}
	var kept []ShowEntry
	for _, e := range show {
		if !hidden[e.Output] {
			kept = append(kept, e)
		}
	}
	return kept
}
