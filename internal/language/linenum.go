package language

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// lineNumberRegex is the compiled traceback rewriter: one alternation
// regex with a capturing group per {number} slot across every declared
// pattern, plus an optional raw line_number_regex alternative.
type lineNumberRegex struct {
	re *regexp.Regexp
}

// numberFieldRE matches the literal `{number}` placeholder inside a small
// line-number pattern template such as ":{number}" or "line {number}".
var numberFieldRE = regexp.MustCompile(`\{number\}`)

// compileLineNumberRegex concatenates patterns into one alternation regex
// with a capturing group per {number} slot, optionally appending extraRegex
// as one more alternative whose own capture groups are assumed to report
// the line number in group 1.
func compileLineNumberRegex(patterns []string, extraRegex string) (*lineNumberRegex, error) {
	var alts []string
	for _, p := range patterns {
		if !strings.Contains(p, "{number}") {
			return nil, fmt.Errorf("pattern %q has no {number} placeholder", p)
		}
		segments := numberFieldRE.Split(p, -1)
		var b strings.Builder
		for i, seg := range segments {
			if i > 0 {
				b.WriteString(`(\d+)`)
			}
			b.WriteString(regexp.QuoteMeta(seg))
		}
		alts = append(alts, b.String())
	}
	if extraRegex != "" {
		alts = append(alts, extraRegex)
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("no line number patterns or regex supplied")
	}
	re, err := regexp.Compile(strings.Join(alts, "|"))
	if err != nil {
		return nil, fmt.Errorf("compiling combined line number regex: %w", err)
	}
	return &lineNumberRegex{re: re}, nil
}

// RewriteLine replaces every line number reference in s using translate, which maps a generated-program line number to its
// origin-relative display string (or "[N]" when the line cannot be
// resolved, per the specification).
func (l *lineNumberRegex) RewriteLine(s string, translate func(generatedLine int) string) string {
	if l == nil {
		return s
	}
	return l.re.ReplaceAllStringFunc(s, func(m string) string {
		sub := l.re.FindStringSubmatch(m)
		for _, g := range sub[1:] {
			if g == "" {
				continue
			}
			n, err := strconv.Atoi(g)
			if err != nil {
				continue
			}
			return strings.Replace(m, g, translate(n), 1)
		}
		return m
	})
}
