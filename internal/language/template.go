package language

import (
	"fmt"
	"regexp"
	"strings"
)

// fieldRE matches a `{name}` field. Anything else inside braces --- a
// format spec (`{name:spec}`), a conversion (`{name!r}`), a non-identifier
// field, or an empty `{}` --- is rejected by scanFields so that templates
// stay restricted to simple named substitution.
var fieldRE = regexp.MustCompile(`\{[^{}]*\}`)
var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// scanFields extracts every `{...}` field from tmpl, validating that each
// one is a bare ASCII identifier. It is pure string work: no formatting is
// ever actually performed at this stage, only validated.
func scanFields(tmpl string) ([]string, error) {
	matches := fieldRE.FindAllString(tmpl, -1)
	fields := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1 : len(m)-1]
		if !identRE.MatchString(name) {
			return nil, fmt.Errorf("field %q is not a bare identifier: format specs and conversions are not permitted", m)
		}
		fields = append(fields, name)
	}
	return fields, nil
}

func hasField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

// codeFieldIndent locates the line in tmpl containing exactly `{code}`
// (optionally surrounded by horizontal whitespace) and returns the leading
// whitespace on that line. That whitespace is later prepended to every
// generated code line so block code lands properly indented inside the
// template. It is an error for {code} to appear anywhere else, more than
// once, or not at all.
func codeFieldIndent(tmpl string) (string, error) {
	lines := strings.SplitAfter(tmpl, "\n")
	found := -1
	var indent string
	for i, line := range lines {
		trimmedEnd := strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(trimmedEnd)
		if trimmed != "{code}" {
			if strings.Contains(trimmedEnd, "{code}") {
				return "", fmt.Errorf("{code} must appear alone on its own line")
			}
			continue
		}
		if found != -1 {
			return "", fmt.Errorf("{code} may only appear once")
		}
		found = i
		indent = trimmedEnd[:strings.Index(trimmedEnd, "{code}")]
	}
	if found == -1 {
		return "", fmt.Errorf("missing required {code} field")
	}
	return indent, nil
}

func validateRunTemplate(tmpl string) error {
	if !strings.HasSuffix(tmpl, "\n") {
		return fmt.Errorf("must end with a newline")
	}
	fields, err := scanFields(tmpl)
	if err != nil {
		return err
	}
	if !hasField(fields, "code") {
		return fmt.Errorf("missing required {code} field")
	}
	if _, err := codeFieldIndent(tmpl); err != nil {
		return err
	}
	return nil
}

func validateChunkWrapper(tmpl string, repl bool) error {
	fields, err := scanFields(tmpl)
	if err != nil {
		return err
	}
	required := []string{"code", "stdout_start_delim", "stdout_end_delim", "stderr_start_delim", "stderr_end_delim"}
	if repl {
		required = append(required, "repl_start_delim", "repl_end_delim")
	}
	for _, r := range required {
		if !hasField(fields, r) {
			return fmt.Errorf("missing required field {%s}", r)
		}
	}
	if _, err := codeFieldIndent(tmpl); err != nil {
		return err
	}
	return nil
}

func validateInlineExpressionFormatter(tmpl string) error {
	fields, err := scanFields(tmpl)
	if err != nil {
		return err
	}
	for _, r := range []string{"code", "expr_start_delim", "expr_end_delim", "temp_suffix"} {
		if !hasField(fields, r) {
			return fmt.Errorf("missing required field {%s}", r)
		}
	}
	return nil
}

// FillTemplate performs the actual (trusted, already-validated)
// substitution: every `{name}` is replaced by values[name]. Missing keys
// are left as empty strings, matching how a chunk without, say, repl
// output simply contributes nothing for {repl_start_delim}.
func FillTemplate(tmpl string, values map[string]string) string {
	return fieldRE.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := values[name]; ok {
			return v
		}
		return ""
	})
}

// CodeIndent returns the indentation captured for the {code} field of
// tmpl, or an error if the field is absent or malformed. Exported for
// run-program synthesis, which needs the same indent for both the
// run_template and the chunk_wrapper.
func CodeIndent(tmpl string) (string, error) {
	return codeFieldIndent(tmpl)
}

// SplitAtCode splits tmpl into the text before and after the line holding
// {code}, discarding that line itself, and returns the indentation it
// carried. Run-program synthesis uses this to interleave
// run_template_before_code/run_template_after_code (and the equivalent
// chunk_wrapper halves) around each chunk's own code.
func SplitAtCode(tmpl string) (before, after, indent string, err error) {
	indent, err = codeFieldIndent(tmpl)
	if err != nil {
		return "", "", "", err
	}
	lines := strings.SplitAfter(tmpl, "\n")
	for i, line := range lines {
		if strings.TrimSpace(strings.TrimRight(line, "\r\n")) == "{code}" {
			before = strings.Join(lines[:i], "")
			after = strings.Join(lines[i+1:], "")
			return before, after, indent, nil
		}
	}
	return "", "", "", fmt.Errorf("missing required {code} field")
}
