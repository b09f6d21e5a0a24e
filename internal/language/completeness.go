package language

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tsc "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tsjava "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tsphp "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tspython "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tsruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	tsrust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tstypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// CompletenessChecker is a supplemented, best-effort diagnostic not named
// by the specification's data model: for the languages this module ships
// a grammar for, it parses a chunk's accumulated code and reports whether
// tree-sitter found a syntax error, so the pipeline can attach a
// SourceWarning to a chunk declared complete=true whose code is not
// actually parseable on its own. It never overrides the author's explicit
// `complete` option; it only warns.
type CompletenessChecker struct {
	languages map[string]*sitter.Language
}

// NewCompletenessChecker builds a checker covering every tree-sitter
// grammar this module links against.
func NewCompletenessChecker() *CompletenessChecker {
	return &CompletenessChecker{
		languages: map[string]*sitter.Language{
			"c":          sitter.NewLanguage(tsc.Language()),
			"java":       sitter.NewLanguage(tsjava.Language()),
			"php":        sitter.NewLanguage(tsphp.LanguagePHP()),
			"python":     sitter.NewLanguage(tspython.Language()),
			"ruby":       sitter.NewLanguage(tsruby.Language()),
			"rust":       sitter.NewLanguage(tsrust.Language()),
			"typescript": sitter.NewLanguage(tstypescript.LanguageTypescript()),
		},
	}
}

// Supports reports whether lang has a registered grammar.
func (c *CompletenessChecker) Supports(lang string) bool {
	_, ok := c.languages[lang]
	return ok
}

// HasSyntaxError parses code as lang and reports whether the resulting
// tree contains an ERROR node. ok is false when lang has no registered
// grammar, in which case hasError is meaningless.
func (c *CompletenessChecker) HasSyntaxError(lang, code string) (hasError bool, ok bool) {
	l, found := c.languages[lang]
	if !found {
		return false, false
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(l)

	tree := parser.Parse([]byte(code), nil)
	if tree == nil {
		return false, false
	}
	defer tree.Close()

	return tree.RootNode().HasError(), true
}
