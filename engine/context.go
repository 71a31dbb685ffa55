package engine

import (
	"fmt"
	"math/rand"
)

// Context is the only handle user code gets onto the engine: the "current
// module" cursor the spec's design notes ask for, established before each
// dispatch and passed explicitly rather than reached through a process-wide
// singleton (spec §9).
type Context struct {
	eng *Engine
	mod *Module
}

// Now returns the current simulation time.
func (ctx *Context) Now() Time { return ctx.eng.now }

// Module returns the module this context belongs to.
func (ctx *Context) Module() *Module { return ctx.mod }

// Engine returns the owning engine, for callers that need tree-wide
// operations (lookups, dynamic create/delete).
func (ctx *Context) Engine() *Engine { return ctx.eng }

// RNG returns the deterministic RNG stream for the named subsystem.
func (ctx *Context) RNG(subsystem string) *rand.Rand { return ctx.eng.rng.ForSubsystem(subsystem) }

// Error reports a model-level failure (UserError). It unwinds the current
// dispatch the same way a kernel error does: the simulation is marked
// failed, finish() is skipped, and the run ends with exit code 1.
func (ctx *Context) Error(format string, args ...any) {
	panic(newErr(UserError, ctx.mod.FullPath(), fmt.Errorf(format, args...)))
}

// ---- message send pipeline (spec §4.3) ----

// Send transmits msg over gate, an output gate owned by ctx's module. The
// arrival time is simulationTime + gate.Channel.Delay + transmissionTime,
// where transmissionTime = msg.BitLength/gate.Channel.DataRate when
// DataRate > 0, else 0.
func (ctx *Context) Send(msg *Message, gate *Gate) error {
	return ctx.sendVia(msg, gate, 0)
}

// SendDelayed is Send with an additional extraDelay folded into the
// arrival-time computation.
func (ctx *Context) SendDelayed(msg *Message, extraDelay Duration, gate *Gate) error {
	return ctx.sendVia(msg, gate, extraDelay)
}

func (ctx *Context) sendVia(msg *Message, gate *Gate, extraDelay Duration) error {
	if ctx.eng.inFinish {
		return newErr(StateError, "Send", ErrSendDuringFinish)
	}
	if msg.state != OwnedByUser {
		return newErr(OwnershipError, "Send", ErrNotOwned)
	}
	if gate.Owner != ctx.mod.ID || gate.Direction != Output {
		return newErr(BuildError, "Send", ErrGateNotOutput)
	}
	if extraDelay < 0 {
		return newErr(SchedulingError, "Send", ErrTimeInPast)
	}
	if !gate.Connected() {
		return newErr(BuildError, "Send", ErrNoPeer)
	}
	if gate.Channel.DataRate > 0 && msg.BitLength < 0 {
		return newErr(SchedulingError, "Send", ErrDisabledDataRate)
	}

	destMod, destGate, err := ctx.eng.resolveDestination(gate)
	if err != nil {
		return err
	}

	var transmission Duration
	if gate.Channel.DataRate > 0 {
		seconds := float64(msg.BitLength) / gate.Channel.DataRate
		transmission = Duration(seconds * 1e9)
	}
	arrival := ctx.eng.now.Add(gate.Channel.Delay).Add(transmission).Add(extraDelay)

	applyBitError(msg, gate.Channel.BitErrorRate, ctx.eng.rng.ForSubsystem(SubsystemBitError))

	msg.SendingTime = ctx.eng.now
	msg.SenderModuleID = ctx.mod.ID
	msg.SenderGateID = gate.ID
	msg.ArrivalModuleID = destMod
	msg.ArrivalGateID = destGate

	if err := ctx.eng.fes.Schedule(msg, arrival, ctx.eng.now); err != nil {
		return err
	}
	ctx.eng.notifyScheduled(msg)
	return nil
}

// applyBitError flips msg.HasBitError with the per-bit-length probability
// 1-(1-ber)^bitLength. A zero-length message (BitLength == 0) and a message
// of unknown length (BitLength < 0, the "unknown length" sentinel) always
// yield no error: this is the documented resolution of the spec's open
// question on bitErrorRate with dataRate=0 and unknown length (DESIGN.md).
func applyBitError(msg *Message, ber float64, rng *rand.Rand) {
	if ber <= 0 || msg.BitLength <= 0 {
		msg.HasBitError = false
		return
	}
	if ber >= 1 {
		msg.HasBitError = true
		return
	}
	pError := 1 - pow1m(ber, msg.BitLength)
	msg.HasBitError = rng.Float64() < pError
}

func pow1m(ber float64, bits int64) float64 {
	base := 1 - ber
	result := 1.0
	// exponentiation by squaring; bit lengths are small enough in practice
	// that this never needs to be fancier.
	b := base
	n := bits
	for n > 0 {
		if n&1 == 1 {
			result *= b
		}
		b *= b
		n >>= 1
	}
	return result
}

// SendDirect targets an input gate of another module directly, bypassing
// the sending module's own gates (the one send variant that is allowed to
// address an input gate of a different module).
func (ctx *Context) SendDirect(msg *Message, delay Duration, targetInputGate *Gate) error {
	if ctx.eng.inFinish {
		return newErr(StateError, "SendDirect", ErrSendDuringFinish)
	}
	if msg.state != OwnedByUser {
		return newErr(OwnershipError, "SendDirect", ErrNotOwned)
	}
	if targetInputGate.Direction != Input {
		return newErr(BuildError, "SendDirect", ErrGateNotInput)
	}
	if delay < 0 {
		return newErr(SchedulingError, "SendDirect", ErrTimeInPast)
	}

	msg.SendingTime = ctx.eng.now
	msg.SenderModuleID = ctx.mod.ID
	msg.SenderGateID = -1
	msg.ArrivalModuleID = targetInputGate.Owner
	msg.ArrivalGateID = targetInputGate.ID

	arrival := ctx.eng.now.Add(delay)
	if err := ctx.eng.fes.Schedule(msg, arrival, ctx.eng.now); err != nil {
		return err
	}
	ctx.eng.notifyScheduled(msg)
	return nil
}

// ScheduleAt schedules msg as a self-message: sender and arrival module are
// both ctx's module, with no gate involved. Used for timers and to kick off
// activity-style modules.
func (ctx *Context) ScheduleAt(when Time, msg *Message) error {
	if ctx.eng.inFinish {
		return newErr(StateError, "ScheduleAt", ErrSendDuringFinish)
	}
	if msg.state != OwnedByUser {
		return newErr(OwnershipError, "ScheduleAt", ErrNotOwned)
	}
	if when < ctx.eng.now {
		return newErr(SchedulingError, "ScheduleAt", ErrTimeInPast)
	}
	msg.SendingTime = ctx.eng.now
	msg.SenderModuleID = ctx.mod.ID
	msg.SenderGateID = -1
	msg.ArrivalModuleID = ctx.mod.ID
	msg.ArrivalGateID = -1
	if err := ctx.eng.fes.Schedule(msg, when, ctx.eng.now); err != nil {
		return err
	}
	ctx.eng.notifyScheduled(msg)
	return nil
}

// CancelEvent removes msg from the FES, returning it to the caller's
// ownership, or nil if it was not scheduled.
func (ctx *Context) CancelEvent(msg *Message) *Message {
	if err := ctx.eng.fes.Cancel(msg); err != nil {
		return nil
	}
	ctx.eng.notifyCancelled(msg)
	return msg
}

// ---- activity-style blocking primitives (spec §4.5) ----

// Receive blocks until the next message destined for this module arrives,
// first draining the put-aside queue FIFO.
func (ctx *Context) Receive() *Message {
	return ctx.receive(MaxTime, false, nil)
}

// ReceiveTimeout is Receive bounded by timeout; it returns nil if the
// timeout elapses first.
func (ctx *Context) ReceiveTimeout(timeout Duration) *Message {
	return ctx.receive(timeout, false, nil)
}

// ReceiveOn blocks for a message specifically on gate, first checking the
// put-aside queue; messages that arrive meanwhile on other gates are
// pushed to the put-aside queue in arrival order.
func (ctx *Context) ReceiveOn(gate *Gate, timeout Duration) *Message {
	return ctx.receive(timeout, false, func(m *Message) bool { return m.ArrivalGateID == gate.ID })
}

// ReceiveNew blocks for the next message to genuinely arrive, skipping the
// put-aside queue's head entirely: unlike Receive, an already-waiting
// put-aside message does not satisfy this call, it only ever returns a
// message delivered after the call is made. Anything skipped this way, and
// anything that arrives and doesn't match, stays in (or is pushed onto)
// the put-aside queue for a later Receive/ReceiveOn to pick up.
func (ctx *Context) ReceiveNew() *Message {
	return ctx.receive(MaxTime, true, nil)
}

// ReceiveNewTimeout is ReceiveNew bounded by timeout; it returns nil if the
// timeout elapses first.
func (ctx *Context) ReceiveNewTimeout(timeout Duration) *Message {
	return ctx.receive(timeout, true, nil)
}

func (ctx *Context) receive(timeout Duration, skipPutAside bool, pred func(*Message) bool) *Message {
	ctx.requireActivity("receive")
	mod := ctx.mod

	if !skipPutAside {
		for i, m := range mod.PutAside {
			if pred == nil || pred(m) {
				mod.PutAside = append(mod.PutAside[:i:i], mod.PutAside[i+1:]...)
				return m
			}
		}
	}

	var timer *Message
	if timeout < MaxTime {
		timer = ctx.eng.newInternalMessage("timeout")
		if err := ctx.scheduleSelfInternal(timer, timeout); err != nil {
			panic(newErr(Fatal, "receive", err))
		}
	}

	co := mod.coroutine
	for {
		co.yield <- yieldInfo{}
		msg := <-co.resume
		if timer != nil && msg == timer {
			return nil
		}
		if pred == nil || pred(msg) {
			if timer != nil {
				_ = ctx.eng.fes.Cancel(timer)
			}
			return msg
		}
		mod.PutAside = append(mod.PutAside, msg)
	}
}

// Wait suspends for exactly d, unconditionally putting aside any message
// that arrives for this module in the meantime.
func (ctx *Context) Wait(d Duration) {
	ctx.requireActivity("wait")
	mod := ctx.mod

	timer := ctx.eng.newInternalMessage("wait")
	if err := ctx.scheduleSelfInternal(timer, d); err != nil {
		panic(newErr(Fatal, "wait", err))
	}

	co := mod.coroutine
	for {
		co.yield <- yieldInfo{}
		msg := <-co.resume
		if msg == timer {
			return
		}
		mod.PutAside = append(mod.PutAside, msg)
	}
}

// End marks the module ENDED and transfers control back to the dispatch
// loop; exiting Run() normally has the same effect.
func (ctx *Context) End() {
	ctx.requireActivity("end")
	ctx.mod.RunState = Ended
	panic(endSignal{})
}

// EndSimulation requests that the whole run stop after the current
// dispatch boundary.
func (ctx *Context) EndSimulation() {
	ctx.eng.terminated = true
	if ctx.mod.ExecStyle == ActivityStyle {
		ctx.mod.RunState = Ended
		panic(endSignal{})
	}
}

func (ctx *Context) requireActivity(op string) {
	if ctx.mod.ExecStyle != ActivityStyle {
		panic(newErr(StateError, op, ErrWrongExecStyle))
	}
}

func (ctx *Context) scheduleSelfInternal(msg *Message, d Duration) error {
	msg.SenderModuleID = ctx.mod.ID
	msg.ArrivalModuleID = ctx.mod.ID
	msg.SenderGateID = -1
	msg.ArrivalGateID = -1
	msg.SendingTime = ctx.eng.now
	return ctx.eng.fes.Schedule(msg, ctx.eng.now.Add(d), ctx.eng.now)
}
