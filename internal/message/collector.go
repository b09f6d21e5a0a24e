package message

// Collector accumulates messages for one chunk, session, or source and
// maintains the rollup bits everything downstream reads: whether the
// owning collection may be cached, whether it may still be executed, and
// the error/warning counts that feed the process exit code.
type Collector struct {
	messages []*Message

	PreventCaching bool
	PreventExec    bool
	HasStderr      bool
	HasNonStderr   bool
	ErrorCount     int
	WarningCount   int

	// decodeErrorCount is tracked separately so the run stage can cap
	// decode errors at 10 per session without callers re-deriving the
	// count from Messages() on every decode.
	decodeErrorCount int
}

// Add appends m and folds its trait bits into the rollup.
func (c *Collector) Add(m *Message) {
	c.messages = append(c.messages, m)

	if m.PreventCaching() {
		c.PreventCaching = true
	}
	if m.PreventExec() {
		c.PreventExec = true
	}
	if m.IsStderr() {
		c.HasStderr = true
	} else {
		c.HasNonStderr = true
	}

	switch m.Severity {
	case Error:
		c.ErrorCount++
	case Warning:
		c.WarningCount++
	}

	if m.Category == CategoryDecode {
		c.decodeErrorCount++
	}
}

// DecodeErrorCount returns how many Decode errors have been recorded so
// far, so callers can enforce the "at most 10 tracked decode errors per
// session" cap from the specification.
func (c *Collector) DecodeErrorCount() int { return c.decodeErrorCount }

// Messages returns all recorded messages in insertion order.
func (c *Collector) Messages() []*Message { return c.messages }

// Cacheable returns only the messages eligible for persistence in a
// session cache entry.
func (c *Collector) Cacheable() []*Message {
	var out []*Message
	for _, m := range c.messages {
		if m.IsCacheable() {
			out = append(out, m)
		}
	}
	return out
}

// HasErrors reports whether any error-severity message was recorded.
func (c *Collector) HasErrors() bool { return c.ErrorCount > 0 }

// HasWarnings reports whether any warning-severity message was recorded.
func (c *Collector) HasWarnings() bool { return c.WarningCount > 0 }

// Merge folds another Collector's state into c, used when a session's
// rollup takes in the messages of a chunk appended to it.
func (c *Collector) Merge(other *Collector) {
	if other == nil {
		return
	}
	for _, m := range other.messages {
		c.Add(m)
	}
}
