package chunk

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Include is a parametric file slice: read File and cut out the lines
// selected by exactly one of the three selection groups the specification
// defines (a numeric/regex range, a start marker, or an end marker --- the
// latter two may be combined to bound a slice on both sides).
type Include struct {
	File     string
	Encoding string

	Lines string
	Regex string

	StartString string
	StartRegex  string
	AfterString string
	AfterRegex  string

	BeforeString string
	BeforeRegex  string
	EndString    string
	EndRegex     string
}

const defaultIncludeEncoding = "utf-8"

// ParseInclude builds an Include from a raw `include` option map, enforcing
// that at most one key from each selection group is present and that the
// range group is not combined with the start/end groups.
func ParseInclude(raw map[string]any) (*Include, error) {
	inc := &Include{Encoding: defaultIncludeEncoding}
	for key, v := range raw {
		s, err := asString(v)
		if err != nil {
			return nil, fmt.Errorf("include.%s: %w", key, err)
		}
		switch key {
		case "file":
			inc.File = s
		case "encoding":
			inc.Encoding = s
		case "lines":
			inc.Lines = s
		case "regex":
			inc.Regex = s
		case "start_string":
			inc.StartString = s
		case "start_regex":
			inc.StartRegex = s
		case "after_string":
			inc.AfterString = s
		case "after_regex":
			inc.AfterRegex = s
		case "before_string":
			inc.BeforeString = s
		case "before_regex":
			inc.BeforeRegex = s
		case "end_string":
			inc.EndString = s
		case "end_regex":
			inc.EndRegex = s
		default:
			return nil, fmt.Errorf("include: unrecognized key %q", key)
		}
	}
	if inc.File == "" {
		return nil, fmt.Errorf("include: file is required")
	}

	rangeGroup := countNonEmpty(inc.Lines, inc.Regex)
	startGroup := countNonEmpty(inc.StartString, inc.StartRegex, inc.AfterString, inc.AfterRegex)
	endGroup := countNonEmpty(inc.BeforeString, inc.BeforeRegex, inc.EndString, inc.EndRegex)

	if rangeGroup > 1 {
		return nil, fmt.Errorf("include: lines and regex are mutually exclusive")
	}
	if startGroup > 1 {
		return nil, fmt.Errorf("include: only one of start_string/start_regex/after_string/after_regex may be set")
	}
	if endGroup > 1 {
		return nil, fmt.Errorf("include: only one of before_string/before_regex/end_string/end_regex may be set")
	}
	if rangeGroup > 0 && (startGroup > 0 || endGroup > 0) {
		return nil, fmt.Errorf("include: lines/regex cannot be combined with start/end markers")
	}
	if rangeGroup == 0 && startGroup == 0 && endGroup == 0 {
		return nil, fmt.Errorf("include: no selection specified")
	}
	return inc, nil
}

func countNonEmpty(vs ...string) int {
	n := 0
	for _, v := range vs {
		if v != "" {
			n++
		}
	}
	return n
}

// Resolve slices content (the already-read, already-decoded file text)
// according to the Include's selection and returns the selected lines.
func (inc *Include) Resolve(content string) ([]string, error) {
	lines := splitKeepNone(content)

	switch {
	case inc.Lines != "":
		return selectByLineSpec(lines, inc.Lines)
	case inc.Regex != "":
		return selectByRegex(content, inc.Regex)
	default:
		return inc.selectByMarkers(lines, content)
	}
}

func splitKeepNone(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

// selectByLineSpec parses a comma-separated `a`, `a-`, `a-b` list with
// 1-based inclusive bounds and returns the union of the referenced lines,
// in file order, without duplicates.
func selectByLineSpec(lines []string, spec string) ([]string, error) {
	n := len(lines)
	selected := map[int]bool{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.Index(part, "-"); i >= 0 {
			startS := part[:i]
			endS := part[i+1:]
			start, err := strconv.Atoi(startS)
			if err != nil {
				return nil, fmt.Errorf("include.lines: invalid range %q", part)
			}
			end := n
			if endS != "" {
				end, err = strconv.Atoi(endS)
				if err != nil {
					return nil, fmt.Errorf("include.lines: invalid range %q", part)
				}
			}
			for i := start; i <= end; i++ {
				selected[i] = true
			}
		} else {
			num, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("include.lines: invalid line number %q", part)
			}
			selected[num] = true
		}
	}
	var out []string
	for i := 1; i <= n; i++ {
		if selected[i] {
			out = append(out, lines[i-1])
		}
	}
	return out, nil
}

func selectByRegex(content, pattern string) ([]string, error) {
	re, err := regexp.Compile(dotallMultiline(pattern))
	if err != nil {
		return nil, fmt.Errorf("include.regex: %w", err)
	}
	m := re.FindString(content)
	if m == "" {
		return nil, fmt.Errorf("include.regex: pattern %q matched nothing", pattern)
	}
	return strings.Split(strings.TrimSuffix(m, "\n"), "\n"), nil
}

// dotallMultiline matches the specification's "regexes match with
// dotall+multiline" rule: Go's RE2 flags are (?s) for dotall and (?m) for
// multiline, combined as a leading inline flag group.
func dotallMultiline(pattern string) string {
	return "(?sm)" + pattern
}

func (inc *Include) selectByMarkers(lines []string, content string) ([]string, error) {
	start := 0
	switch {
	case inc.StartString != "":
		idx, err := findLineContaining(lines, inc.StartString, false)
		if err != nil {
			return nil, err
		}
		start = idx
	case inc.StartRegex != "":
		idx, err := findLineMatching(lines, inc.StartRegex, false)
		if err != nil {
			return nil, err
		}
		start = idx
	case inc.AfterString != "":
		idx, err := findLineContaining(lines, inc.AfterString, true)
		if err != nil {
			return nil, err
		}
		start = idx
	case inc.AfterRegex != "":
		idx, err := findLineMatching(lines, inc.AfterRegex, true)
		if err != nil {
			return nil, err
		}
		start = idx
	}

	end := len(lines) - 1
	switch {
	case inc.BeforeString != "":
		idx, err := findLineContainingFrom(lines, inc.BeforeString, start, true)
		if err != nil {
			return nil, err
		}
		end = idx
	case inc.BeforeRegex != "":
		idx, err := findLineMatchingFrom(lines, inc.BeforeRegex, start, true)
		if err != nil {
			return nil, err
		}
		end = idx
	case inc.EndString != "":
		idx, err := findLineContainingFrom(lines, inc.EndString, start, false)
		if err != nil {
			return nil, err
		}
		end = idx
	case inc.EndRegex != "":
		idx, err := findLineMatchingFrom(lines, inc.EndRegex, start, false)
		if err != nil {
			return nil, err
		}
		end = idx
	}

	if start > end {
		return nil, fmt.Errorf("include: start marker found after end marker")
	}
	return lines[start : end+1], nil
}

func findLineContaining(lines []string, needle string, skipMatch bool) (int, error) {
	for i, l := range lines {
		if strings.Contains(l, needle) {
			if skipMatch {
				return i + 1, nil
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("include: start marker %q not found", needle)
}

func findLineMatching(lines []string, pattern string, skipMatch bool) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("include: invalid regex %q: %w", pattern, err)
	}
	for i, l := range lines {
		if re.MatchString(l) {
			if skipMatch {
				return i + 1, nil
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("include: start regex %q matched nothing", pattern)
}

func findLineContainingFrom(lines []string, needle string, from int, skipMatch bool) (int, error) {
	for i := from; i < len(lines); i++ {
		if strings.Contains(lines[i], needle) {
			if skipMatch {
				return i - 1, nil
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("include: end marker %q not found", needle)
}

func findLineMatchingFrom(lines []string, pattern string, from int, skipMatch bool) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("include: invalid regex %q: %w", pattern, err)
	}
	for i := from; i < len(lines); i++ {
		if re.MatchString(lines[i]) {
			if skipMatch {
				return i - 1, nil
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("include: end regex %q matched nothing", pattern)
}
