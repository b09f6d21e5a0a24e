package collection

// Source is an ordered group of non-executed chunks displayed or exported
// together. It never runs, so finalisation is limited to the output-index
// and code-start-line passes that also apply to a Session.
type Source struct {
	Base
}

// NewSource constructs an empty Source collection for key.
func NewSource(key Key) *Source {
	key.Kind = KindSource
	return &Source{Base: newBase(key)}
}

// Finalize runs the output-index and code-start-line passes. A Source has
// no hash and is never executed, so passes 5 and 6 (the exec gate and
// session hashing) do not apply.
func (s *Source) Finalize() error {
	if err := s.assignOutputIndexes(); err != nil {
		return err
	}
	s.assignCodeStartLines()
	return nil
}
