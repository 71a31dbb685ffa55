package engine

import (
	"fmt"
	"time"
)

// StopReason explains why Run returned.
type StopReason int

const (
	Running StopReason = iota
	FesExhausted
	Requested
	SimTimeLimitReached
	CPUTimeLimitReached
	EventLimitReached
	ErrorStop
)

func (s StopReason) String() string {
	switch s {
	case FesExhausted:
		return "fesExhausted"
	case Requested:
		return "requested"
	case SimTimeLimitReached:
		return "sim-time-limit"
	case CPUTimeLimitReached:
		return "cpu-time-limit"
	case EventLimitReached:
		return "event-limit"
	case ErrorStop:
		return "error"
	default:
		return "running"
	}
}

// Engine is the process-wide simulation context: the FES, the clock, the
// module table (an id-indexed arena, breaking the module/gate/peer cyclic
// graph per spec §9), the current-module cursor, and the RNG bank.
type Engine struct {
	fes *FES
	now Time

	modules      map[ModuleID]*Module
	nextModuleID ModuleID
	root         *Module

	nextMessageID uint64

	rng *RNGBank

	observers []Observer

	terminated bool
	failed     bool
	lastErr    *Error
	inFinish   bool

	currentModule *Module

	simTimeLimit Time
	cpuTimeLimit time.Duration
	eventLimit   int64
	eventCount   int64

	pendingSelfDelete *Module
}

// NewEngine creates an empty engine. masterSeed drives every RNG subsystem
// stream deterministically (spec §6 "seed-N").
func NewEngine(masterSeed int64) *Engine {
	return &Engine{
		fes:          NewFES(),
		modules:      make(map[ModuleID]*Module),
		rng:          NewRNGBank(masterSeed),
		simTimeLimit: MaxTime,
	}
}

// AddObserver registers o to receive kernel notifications.
func (eng *Engine) AddObserver(o Observer) { eng.observers = append(eng.observers, o) }

// SetSimTimeLimit stops the loop once the next event's arrival time would
// exceed limit.
func (eng *Engine) SetSimTimeLimit(limit Time) { eng.simTimeLimit = limit }

// SetCPUTimeLimit bounds wall-clock run time; checked at dispatch
// boundaries, not preemptively.
func (eng *Engine) SetCPUTimeLimit(d time.Duration) { eng.cpuTimeLimit = d }

// SetEventLimit stops the loop after n events have been dispatched.
func (eng *Engine) SetEventLimit(n int64) { eng.eventLimit = n }

// Now returns the current simulation time.
func (eng *Engine) Now() Time { return eng.now }

// Root returns the top-level module, or nil before NewRootModule is called.
func (eng *Engine) Root() *Module { return eng.root }

// LookupModule returns the module with the given id, or nil.
func (eng *Engine) LookupModule(id ModuleID) *Module { return eng.modules[id] }

// Failed reports whether the run ended in error (finish() was skipped).
func (eng *Engine) Failed() bool { return eng.failed }

// LastError returns the error that stopped the run, if any.
func (eng *Engine) LastError() *Error { return eng.lastErr }

// NewMessage allocates an engine-unique message id and returns a
// caller-owned Message.
func (eng *Engine) NewMessage(kind string, payload any) *Message {
	eng.nextMessageID++
	return NewMessage(eng.nextMessageID, kind, payload, eng.now)
}

func (eng *Engine) newInternalMessage(kind string) *Message {
	eng.nextMessageID++
	return NewMessage(eng.nextMessageID, "__"+kind+"__", nil, eng.now)
}

// ---- module tree construction (spec §4.2, §4.7) ----

// NewRootModule creates the top-level compound module. It may be called
// only once per engine.
func (eng *Engine) NewRootModule(name string) *Module {
	m := newModule(eng.nextModuleID, name, Compound)
	eng.nextModuleID++
	eng.modules[m.ID] = m
	eng.root = m
	eng.notifyModuleCreated(m)
	return m
}

// CreateModule builds a new module under parent, which must be non-nil (the
// root itself is created by NewRootModule). For activity-style simple
// modules, a coroutine is allocated here; its goroutine is launched on the
// first dispatch to the module (the initial activation message).
func (eng *Engine) CreateModule(parent *Module, name string, kind ModuleKind, execStyle ExecutionStyle) (*Module, error) {
	return eng.createModule(parent, name, -1, 0, kind, execStyle)
}

// CreateVectorMember is CreateModule for one element of a named module
// vector of the given total size.
func (eng *Engine) CreateVectorMember(parent *Module, name string, index, vectorSize int, kind ModuleKind, execStyle ExecutionStyle) (*Module, error) {
	return eng.createModule(parent, name, index, vectorSize, kind, execStyle)
}

func (eng *Engine) createModule(parent *Module, name string, index, vectorSize int, kind ModuleKind, execStyle ExecutionStyle) (*Module, error) {
	if parent == nil {
		return nil, newErr(BuildError, "CreateModule", fmt.Errorf("module %q needs a parent (use NewRootModule for the root)", name))
	}
	m := newModule(eng.nextModuleID, name, kind)
	eng.nextModuleID++
	m.Parent = parent
	m.VectorIndex = index
	m.VectorSize = vectorSize
	m.ExecStyle = execStyle

	parent.Submodules = append(parent.Submodules, m)
	eng.modules[m.ID] = m
	eng.notifyModuleCreated(m)

	if kind == Simple && execStyle == ActivityStyle {
		m.coroutine = newCoroutine()
	}
	return m, nil
}

// ScheduleActivityStart schedules the self-message that begins an
// activity-style module's coroutine at time t (spec §4.5); it is typically
// called once per activity module while building the network, before Run.
func (eng *Engine) ScheduleActivityStart(mod *Module, t Time) error {
	if mod.ExecStyle != ActivityStyle {
		return newErr(BuildError, "ScheduleActivityStart", ErrWrongExecStyle)
	}
	msg := eng.newInternalMessage("start")
	msg.SenderModuleID = mod.ID
	msg.ArrivalModuleID = mod.ID
	msg.SenderGateID = -1
	msg.ArrivalGateID = -1
	return eng.fes.Schedule(msg, t, eng.now)
}

// ScheduleSelf schedules msg as a self-message for mod at time t, the same
// way Context.ScheduleAt does from inside a dispatch. It exists for network
// builders that need to seed the FES (e.g. a handleMessage-style module's
// opening event) before Run, when there is no Context to call through yet.
func (eng *Engine) ScheduleSelf(mod *Module, t Time, msg *Message) error {
	if msg.state != OwnedByUser {
		return newErr(OwnershipError, "ScheduleSelf", ErrNotOwned)
	}
	msg.SenderModuleID = mod.ID
	msg.ArrivalModuleID = mod.ID
	msg.SenderGateID = -1
	msg.ArrivalGateID = -1
	if err := eng.fes.Schedule(msg, t, eng.now); err != nil {
		return err
	}
	eng.notifyScheduled(msg)
	return nil
}

// Connect wires an output gate to an input gate with the given channel
// parameters, recorded on the output gate (the gate that "originates" the
// connection, per the data model in spec §3).
func (eng *Engine) Connect(out, in *Gate, params ChannelParams) error {
	if out.Direction != Output {
		return newErr(BuildError, "Connect", ErrGateNotOutput)
	}
	if in.Direction != Input {
		return newErr(BuildError, "Connect", ErrGateNotInput)
	}
	if out.Connected() || in.Connected() {
		return newErr(BuildError, "Connect", ErrGateInUse)
	}
	out.Peer = &PeerRef{Module: in.Owner, Gate: in.ID}
	in.Peer = &PeerRef{Module: out.Owner, Gate: out.ID}
	out.Channel = params
	return nil
}

// resolveDestination walks the peer chain starting at gate until it
// reaches a terminal input gate — one owned by a Simple module, per the
// spec's "walking the peer chain through intermediate gates of compound
// modules" rule (§4.3 step 5).
func (eng *Engine) resolveDestination(gate *Gate) (ModuleID, GateID, error) {
	cur := gate
	for hops := 0; ; hops++ {
		if hops > 10000 {
			return 0, 0, newErr(Fatal, "resolveDestination", fmt.Errorf("peer chain cycle starting at gate %d", gate.ID))
		}
		if cur.Peer == nil {
			return 0, 0, newErr(BuildError, "resolveDestination", ErrNoPeer)
		}
		mod := eng.modules[cur.Peer.Module]
		if mod == nil {
			return 0, 0, newErr(Fatal, "resolveDestination", ErrNoSuchModule)
		}
		next := eng.findGateByID(mod, cur.Peer.Gate)
		if next == nil {
			return 0, 0, newErr(Fatal, "resolveDestination", ErrNoSuchGate)
		}
		if next.Direction == Input && mod.Kind == Simple {
			return mod.ID, next.ID, nil
		}
		cur = next
	}
}

func (eng *Engine) findGateByID(m *Module, id GateID) *Gate {
	for _, g := range m.Gates {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// DeleteModule removes m and, if it is compound, recursively all of its
// submodules first. Deleting the currently-executing activity module from
// within itself is deferred: the coroutine finishes its current call (via
// Context.End's panic/unwind), and the dispatch loop performs the actual
// teardown once control returns to it.
func (eng *Engine) DeleteModule(m *Module) error {
	if m == eng.currentModule {
		eng.pendingSelfDelete = m
		return nil
	}
	eng.deleteModuleNow(m)
	return nil
}

func (eng *Engine) deleteModuleNow(m *Module) {
	for _, child := range append([]*Module(nil), m.Submodules...) {
		eng.deleteModuleNow(child)
	}
	eng.cancelAllFor(m.ID)
	if m.Parent != nil {
		siblings := m.Parent.Submodules
		for i, s := range siblings {
			if s == m {
				m.Parent.Submodules = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	delete(eng.modules, m.ID)
	eng.notifyModuleDeleted(m)
}

func (eng *Engine) cancelAllFor(id ModuleID) {
	// Cancellation here is a linear scan, not the O(log n) single-message
	// Cancel: deleting a module must sweep every FES entry addressed to it,
	// which Cancel's heapIndex shortcut cannot do in one call.
	var stale []*Message
	for _, msg := range eng.fes.items {
		if msg.ArrivalModuleID == id {
			stale = append(stale, msg)
		}
	}
	for _, msg := range stale {
		_ = eng.fes.Cancel(msg)
	}
}

// ---- staged initialization and finalization (spec §4.6) ----

// Initialize runs the staged top-down initialization pass: stage 0..N-1
// where N = max(numInitStages()) over the tree, pre-order, parent before
// child at every stage.
func (eng *Engine) Initialize() error {
	n := eng.maxInitStages(eng.root)
	for stage := 0; stage < n; stage++ {
		if err := eng.initStage(eng.root, stage); err != nil {
			return err
		}
		eng.notifyStageBoundary(stage)
	}
	return nil
}

func (eng *Engine) maxInitStages(m *Module) int {
	if m == nil {
		return 0
	}
	max := numInitStages(m)
	for _, c := range m.Submodules {
		if s := eng.maxInitStages(c); s > max {
			max = s
		}
	}
	return max
}

func numInitStages(m *Module) int {
	switch {
	case m.Handler != nil:
		return m.Handler.NumInitStages()
	case m.Activity != nil:
		return m.Activity.NumInitStages()
	default:
		return 0
	}
}

func (eng *Engine) initStage(m *Module, stage int) (err error) {
	if numInitStages(m) > stage {
		ctx := &Context{eng: eng, mod: m}
		eng.currentModule = m
		defer func() {
			eng.currentModule = nil
			if r := recover(); r != nil {
				err = eng.toErr(r)
			}
		}()
		switch {
		case m.Handler != nil:
			err = m.Handler.Initialize(ctx, stage)
		case m.Activity != nil:
			err = m.Activity.Initialize(ctx, stage)
		}
		if err != nil {
			return err
		}
	}
	for _, c := range m.Submodules {
		if err := eng.initStage(c, stage); err != nil {
			return err
		}
	}
	return nil
}

func (eng *Engine) toErr(r any) error {
	if kerr, ok := r.(*Error); ok {
		return kerr
	}
	return newErr(Fatal, "initialize", fmt.Errorf("%v", r))
}

// Finalize runs the bottom-up finish() pass. It is a no-op if the
// simulation ended in error.
func (eng *Engine) Finalize() {
	if eng.failed {
		eng.notifyFinish(true)
		return
	}
	eng.inFinish = true
	eng.finishModule(eng.root)
	eng.inFinish = false
	eng.notifyFinish(false)
}

func (eng *Engine) finishModule(m *Module) {
	for _, c := range m.Submodules {
		eng.finishModule(c)
	}
	var h interface{ Finish(*Context) error }
	switch {
	case m.Handler != nil:
		h = m.Handler
	case m.Activity != nil:
		h = m.Activity
	default:
		return
	}
	ctx := &Context{eng: eng, mod: m}
	if err := h.Finish(ctx); err != nil {
		eng.lastErr = eng.toErr(err).(*Error)
	}
}

// ---- main dispatch loop (spec §4.4) ----

// Run executes the dispatch loop until the FES empties, a stop is
// requested, or a configured limit is reached.
func (eng *Engine) Run() StopReason {
	start := time.Now()
	for !eng.terminated && !eng.fes.Empty() {
		next := eng.fes.Peek()
		if next.ArrivalTime > eng.simTimeLimit {
			return SimTimeLimitReached
		}
		if eng.cpuTimeLimit > 0 && time.Since(start) >= eng.cpuTimeLimit {
			return CPUTimeLimitReached
		}

		msg := eng.fes.Pop()
		eng.now = msg.ArrivalTime
		eng.notifyTimeAdvance(eng.now)

		mod := eng.modules[msg.ArrivalModuleID]
		if mod == nil || mod.RunState == Ended {
			continue
		}

		eng.currentModule = mod
		msg.state = Delivered
		eng.notifyDelivered(msg)
		// Delivery transfers ownership to the recipient (spec §3, §5): the
		// handler or activity body is free to forward this exact message on
		// a Send, or re-arm it as a timer via ScheduleAt, without allocating
		// a new one.
		msg.state = OwnedByUser
		eng.eventCount++

		if mod.IsActivity() {
			eng.dispatchActivity(mod, msg)
		} else {
			eng.dispatchHandleMessage(mod, msg)
		}
		eng.currentModule = nil

		if eng.failed {
			return ErrorStop
		}
		if eng.pendingSelfDelete != nil {
			del := eng.pendingSelfDelete
			eng.pendingSelfDelete = nil
			eng.deleteModuleNow(del)
		}
		if eng.eventLimit > 0 && eng.eventCount >= eng.eventLimit {
			return EventLimitReached
		}
	}
	if eng.terminated {
		return Requested
	}
	return FesExhausted
}

func (eng *Engine) dispatchHandleMessage(mod *Module, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			eng.fail(r)
		}
	}()
	ctx := &Context{eng: eng, mod: mod}
	mod.Handler.HandleMessage(ctx, msg)
}

func (eng *Engine) dispatchActivity(mod *Module, msg *Message) {
	if !mod.coroutine.started {
		mod.coroutine.started = true
		ctx := &Context{eng: eng, mod: mod}
		mod.coroutine.start(func() { mod.Activity.Run(ctx) })
	}
	yi := mod.coroutine.transferTo(msg)
	if yi.ended {
		mod.RunState = Ended
		if yi.panicValue != nil {
			eng.fail(yi.panicValue)
		}
	}
}

func (eng *Engine) fail(r any) {
	eng.lastErr = eng.toErr(r).(*Error)
	eng.failed = true
	eng.terminated = true
}

// ---- observer fan-out ----

func (eng *Engine) notifyModuleCreated(m *Module) {
	for _, o := range eng.observers {
		o.OnModuleCreated(m.FullPath(), m.ID)
	}
}
func (eng *Engine) notifyModuleDeleted(m *Module) {
	for _, o := range eng.observers {
		o.OnModuleDeleted(m.FullPath(), m.ID)
	}
}
func (eng *Engine) notifyScheduled(msg *Message) {
	for _, o := range eng.observers {
		o.OnMessageScheduled(msg)
	}
}
func (eng *Engine) notifyCancelled(msg *Message) {
	for _, o := range eng.observers {
		o.OnMessageCancelled(msg)
	}
}
func (eng *Engine) notifyDelivered(msg *Message) {
	for _, o := range eng.observers {
		o.OnMessageDelivered(msg)
	}
}
func (eng *Engine) notifyTimeAdvance(t Time) {
	for _, o := range eng.observers {
		o.OnTimeAdvance(t)
	}
}
func (eng *Engine) notifyStageBoundary(stage int) {
	for _, o := range eng.observers {
		o.OnStageBoundary(stage)
	}
}
func (eng *Engine) notifyFinish(failed bool) {
	for _, o := range eng.observers {
		o.OnFinish(failed)
	}
}
