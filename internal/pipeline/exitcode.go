package pipeline

// Exit-code bits, per the specification's process-coordinator contract
// (§6, item 7): 0x04 if any session has prevent_exec; 0x08 if any session
// has errors without prevent_exec, or any source has errors; 0x10 if any
// session has warnings. The three bits are independent and XORed, not
// added -- a build that trips all three reports 0x1c, not some other sum.
const (
	exitBitPreventExec = 0x04
	exitBitErrors      = 0x08
	exitBitWarnings    = 0x10
)

// ExitCode computes the process-coordinator exit code for a fully
// executed document. Each bit reflects whether ANY collection in the
// document meets its condition -- two sessions that both trip prevent_exec
// still leave 0x04 set, not cancel it back out, so each condition is
// resolved to a single bool across the whole document before the three
// bits are XORed together.
func ExitCode(doc *Document) int {
	var anyPreventExec, anyErrors, anyWarnings bool

	for _, sess := range doc.Sessions {
		if sess.Status.PreventExec {
			anyPreventExec = true
		}
		if sess.Status.HasErrors() && !sess.Status.PreventExec {
			anyErrors = true
		}
		if sess.Status.HasWarnings() {
			anyWarnings = true
		}
	}
	for _, src := range doc.Sources {
		if src.Status.HasErrors() {
			anyErrors = true
		}
	}

	code := 0
	if anyPreventExec {
		code ^= exitBitPreventExec
	}
	if anyErrors {
		code ^= exitBitErrors
	}
	if anyWarnings {
		code ^= exitBitWarnings
	}
	return code
}
