// Package collection implements CodeCollection, Session, and Source: the
// ordered chunk groups chunks are assembled into, session hashing, and
// lazy run-program synthesis.
package collection

// Kind distinguishes a Session (executed) from a Source (displayed only).
type Kind string

const (
	KindSession Kind = "session"
	KindSource  Kind = "source"
)

// Key identifies a collection. Name is empty for the anonymous collection
// of a given (Lang, Kind, Origin).
type Key struct {
	Lang   string
	Name   string
	Kind   Kind
	Origin string
}
