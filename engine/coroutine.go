package engine

// coroutine is the stackful-fiber substitute for an activity-style module:
// one goroutine, parked on an unbuffered channel, resumed exactly once per
// dispatch directed at its module. The resume/yield handoff is a strict
// rendezvous, so at any instant exactly one of {the dispatch loop, this
// goroutine} is running — the single-active-executor invariant the spec
// asks for (§5), achieved without locks.
//
// No stackful-coroutine library appears anywhere in the example pack (see
// DESIGN.md); this is the idiomatic Go substitute the spec itself names as
// acceptable (§9 Design notes).
type coroutine struct {
	resume  chan *Message
	yield   chan yieldInfo
	started bool
}

// yieldInfo is what a coroutine reports back to the dispatch loop when it
// gives up control. panicValue is non-nil only when the goroutine unwound
// via a panic other than endSignal — kernel-fatal coroutine corruption or a
// *Error raised by Context.Error/a failed send.
type yieldInfo struct {
	ended      bool
	panicValue any
}

// endSignal unwinds the coroutine's goroutine stack via panic/recover: the
// only way to implement "end() transfers control back to main and never
// returns to user code" without the dispatch loop owning a real stack to
// longjmp out of.
type endSignal struct{}

func newCoroutine() *coroutine {
	return &coroutine{
		resume: make(chan *Message),
		yield:  make(chan yieldInfo),
	}
}

// start launches the coroutine's goroutine. It blocks on the initial
// activation message (discarded — it only exists to trigger Run), then
// invokes run. Any value other than endSignal that reaches the deferred
// recover is reported back as yieldInfo.panicValue; the dispatch loop keeps
// an *Error's own Kind and treats any other value as Fatal.
func (c *coroutine) start(run func()) {
	go func() {
		info := yieldInfo{ended: true}
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(endSignal); !ok {
					info.panicValue = r
				}
			}
			c.yield <- info
		}()
		<-c.resume
		run()
	}()
}

// transferTo resumes the coroutine with msg and blocks until it yields
// control back, returning what it yielded.
func (c *coroutine) transferTo(msg *Message) yieldInfo {
	c.resume <- msg
	return <-c.yield
}
