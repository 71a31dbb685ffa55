package engine

import (
	"fmt"
	"testing"
)

// ---- shared test scaffolding ----

type traceEntry struct {
	t        Time
	srcName  string
	dstName  string
	kind     string
}

// pingPongHandler is a handleMessage-style module: on any incoming message
// (including its own self-activation message) it immediately replies with
// sendKind over out.
type pingPongHandler struct {
	name     string
	names    map[ModuleID]string
	out      *Gate
	sendKind string
	trace    *[]traceEntry
	initAt   Time
	hasInit  bool
}

func (h *pingPongHandler) NumInitStages() int { return 1 }

func (h *pingPongHandler) Initialize(ctx *Context, stage int) error {
	if h.hasInit {
		msg := ctx.Engine().NewMessage("self", nil)
		return ctx.ScheduleAt(h.initAt, msg)
	}
	return nil
}

func (h *pingPongHandler) HandleMessage(ctx *Context, msg *Message) {
	*h.trace = append(*h.trace, traceEntry{
		t:       ctx.Now(),
		srcName: h.names[msg.SenderModuleID],
		dstName: h.name,
		kind:    msg.Kind,
	})
	reply := ctx.Engine().NewMessage(h.sendKind, nil)
	if err := ctx.Send(reply, h.out); err != nil {
		panic(fmt.Sprintf("send failed: %v", err))
	}
}

func (h *pingPongHandler) Finish(ctx *Context) error { return nil }

func buildPingPong(t *testing.T) (eng *Engine, trace *[]traceEntry) {
	t.Helper()
	eng = NewEngine(1)
	root := eng.NewRootModule("net")
	a, err := eng.CreateModule(root, "a", Simple, HandleMessageStyle)
	if err != nil {
		t.Fatal(err)
	}
	b, err := eng.CreateModule(root, "b", Simple, HandleMessageStyle)
	if err != nil {
		t.Fatal(err)
	}

	aOutGates, _ := a.AddGate("out", Output, 0)
	aInGates, _ := a.AddGate("in", Input, 0)
	bOutGates, _ := b.AddGate("out", Output, 0)
	bInGates, _ := b.AddGate("in", Input, 0)
	aOut, aIn := aOutGates[0], aInGates[0]
	bOut, bIn := bOutGates[0], bInGates[0]

	if err := eng.Connect(aOut, bIn, ChannelParams{Delay: 1}); err != nil {
		t.Fatal(err)
	}
	if err := eng.Connect(bOut, aIn, ChannelParams{Delay: 1}); err != nil {
		t.Fatal(err)
	}

	names := map[ModuleID]string{a.ID: "A", b.ID: "B"}
	tr := &[]traceEntry{}

	a.Handler = &pingPongHandler{name: "A", names: names, out: aOut, sendKind: "ping", trace: tr, initAt: 0, hasInit: true}
	b.Handler = &pingPongHandler{name: "B", names: names, out: bOut, sendKind: "pong", trace: tr}

	return eng, tr
}

func TestScenario_Ping(t *testing.T) {
	eng, trace := buildPingPong(t)
	eng.SetSimTimeLimit(5)

	if err := eng.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	reason := eng.Run()
	if reason != SimTimeLimitReached {
		t.Fatalf("stop reason: got %v, want sim-time-limit", reason)
	}
	eng.Finalize()
	if eng.Failed() {
		t.Fatalf("run failed: %v", eng.LastError())
	}

	want := []traceEntry{
		{0, "A", "A", "self"},
		{1, "A", "B", "ping"},
		{2, "B", "A", "pong"},
		{3, "A", "B", "ping"},
		{4, "B", "A", "pong"},
		{5, "A", "B", "ping"},
	}
	got := *trace
	if len(got) != len(want) {
		t.Fatalf("trace length: got %d, want %d (%v)", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("trace[%d]: got %+v, want %+v", i, got[i], w)
		}
	}
}

// ---- timer cancel ----

type timerCancelHandler struct {
	cancelled bool
}

func (h *timerCancelHandler) NumInitStages() int { return 1 }
func (h *timerCancelHandler) Initialize(ctx *Context, stage int) error {
	timer := ctx.Engine().NewMessage("T1", nil)
	return ctx.ScheduleAt(10, timer)
}
func (h *timerCancelHandler) HandleMessage(ctx *Context, msg *Message) {
	if ctx.Now() == 3 {
		return
	}
}
func (h *timerCancelHandler) Finish(ctx *Context) error { return nil }

func TestScenario_TimerCancel_NoDispatchAfterCancellation(t *testing.T) {
	eng := NewEngine(1)
	root := eng.NewRootModule("net")
	m, err := eng.CreateModule(root, "m", Simple, HandleMessageStyle)
	if err != nil {
		t.Fatal(err)
	}
	h := &timerCancelHandler{}
	m.Handler = h

	if err := eng.Initialize(); err != nil {
		t.Fatal(err)
	}

	// GIVEN the self-message T1 scheduled for t=10 by Initialize
	timer := eng.fes.Peek()
	if timer == nil || timer.Kind != "T1" {
		t.Fatalf("expected T1 scheduled, got %v", timer)
	}

	// WHEN it is cancelled before it would fire
	ctx := &Context{eng: eng, mod: m}
	cancelled := ctx.CancelEvent(timer)
	if cancelled == nil {
		t.Fatal("CancelEvent returned nil, expected the message back")
	}

	// THEN the FES is empty and the loop ends with fesExhausted and zero
	// dispatches.
	reason := eng.Run()
	if reason != FesExhausted {
		t.Fatalf("stop reason: got %v, want fesExhausted", reason)
	}
	if eng.eventCount != 0 {
		t.Fatalf("eventCount: got %d, want 0", eng.eventCount)
	}
}

// ---- priority tie-break ----

func TestScenario_PriorityTieBreak(t *testing.T) {
	// GIVEN three self-messages at t=7 with priorities (1,2,1) scheduled in
	// order A,B,C
	eng := NewEngine(1)
	root := eng.NewRootModule("net")
	m, err := eng.CreateModule(root, "m", Simple, HandleMessageStyle)
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	m.Handler = &recordingHandler{order: &order}

	a := eng.NewMessage("A", nil)
	a.SchedulingPriority = 1
	b := eng.NewMessage("B", nil)
	b.SchedulingPriority = 2
	c := eng.NewMessage("C", nil)
	c.SchedulingPriority = 1

	ctx := &Context{eng: eng, mod: m}
	for _, msg := range []*Message{a, b, c} {
		if err := ctx.ScheduleAt(7, msg); err != nil {
			t.Fatal(err)
		}
	}

	// WHEN run to completion
	eng.Run()

	// THEN dispatch order is A, C, B
	want := []string{"A", "C", "B"}
	if len(order) != len(want) {
		t.Fatalf("order: got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order: got %v, want %v", order, want)
		}
	}
}

type recordingHandler struct {
	order *[]string
}

func (h *recordingHandler) NumInitStages() int                      { return 0 }
func (h *recordingHandler) Initialize(ctx *Context, stage int) error { return nil }
func (h *recordingHandler) HandleMessage(ctx *Context, msg *Message) {
	*h.order = append(*h.order, msg.Kind)
}
func (h *recordingHandler) Finish(ctx *Context) error { return nil }
