package engine

import "testing"

// putAsideActivity waits for a message specifically on p2, then drains
// whatever arrived meanwhile via a plain Receive, exercising the put-aside
// queue's FIFO ordering (testable property: messages arriving on a gate
// other than the one ReceiveOn is waiting on are queued, not dropped).
type putAsideActivity struct {
	p2    *Gate
	order []string
	endAt Time
}

func (a *putAsideActivity) NumInitStages() int                      { return 0 }
func (a *putAsideActivity) Initialize(ctx *Context, stage int) error { return nil }

func (a *putAsideActivity) Run(ctx *Context) {
	m2 := ctx.ReceiveOn(a.p2, MaxTime)
	a.order = append(a.order, m2.Kind)
	m1 := ctx.Receive()
	a.order = append(a.order, m1.Kind)
	a.endAt = ctx.Now()
	ctx.End()
}

func (a *putAsideActivity) Finish(ctx *Context) error { return nil }

func TestCoroutine_ReceiveOn_PutsAsideNonMatchingArrivals(t *testing.T) {
	eng := NewEngine(1)
	root := eng.NewRootModule("net")

	act, err := eng.CreateModule(root, "act", Simple, ActivityStyle)
	if err != nil {
		t.Fatal(err)
	}
	sender, err := eng.CreateModule(root, "sender", Simple, HandleMessageStyle)
	if err != nil {
		t.Fatal(err)
	}
	p1Gates, _ := act.AddGate("p1", Input, 0)
	p2Gates, _ := act.AddGate("p2", Input, 0)

	beh := &putAsideActivity{p2: p2Gates[0]}
	act.Activity = beh

	if err := eng.ScheduleActivityStart(act, 0); err != nil {
		t.Fatal(err)
	}
	if err := eng.Initialize(); err != nil {
		t.Fatal(err)
	}

	senderCtx := &Context{eng: eng, mod: sender}
	m1 := eng.NewMessage("m1", nil)
	if err := senderCtx.SendDirect(m1, 1, p1Gates[0]); err != nil {
		t.Fatal(err)
	}
	m2 := eng.NewMessage("m2", nil)
	if err := senderCtx.SendDirect(m2, 2, p2Gates[0]); err != nil {
		t.Fatal(err)
	}

	reason := eng.Run()
	eng.Finalize()
	if eng.Failed() {
		t.Fatalf("run failed: %v", eng.LastError())
	}
	if reason != FesExhausted {
		t.Fatalf("stop reason: got %v, want fesExhausted", reason)
	}

	want := []string{"m2", "m1"}
	if len(beh.order) != 2 || beh.order[0] != want[0] || beh.order[1] != want[1] {
		t.Fatalf("receive order: got %v, want %v", beh.order, want)
	}
	if beh.endAt != 2 {
		t.Fatalf("endAt: got %v, want 2 (put-aside message resolved without a further dispatch)", beh.endAt)
	}
	if act.RunState != Ended {
		t.Fatalf("RunState: got %v, want Ended", act.RunState)
	}
}

// receiveNewActivity puts a message aside via a ReceiveOn that times out,
// then exercises the distinction between ReceiveNew (must skip that
// put-aside message) and a later plain Receive (must return it).
type receiveNewActivity struct {
	p2    *Gate
	order []string
}

func (a *receiveNewActivity) NumInitStages() int                      { return 0 }
func (a *receiveNewActivity) Initialize(ctx *Context, stage int) error { return nil }

func (a *receiveNewActivity) Run(ctx *Context) {
	ctx.ReceiveOn(a.p2, Duration(1500*1e6)) // times out before m2 arrives, puts m1 aside
	fresh := ctx.ReceiveNew()
	a.order = append(a.order, fresh.Kind)
	old := ctx.Receive()
	a.order = append(a.order, old.Kind)
	ctx.End()
}

func (a *receiveNewActivity) Finish(ctx *Context) error { return nil }

func TestCoroutine_ReceiveNew_SkipsAlreadyPutAsideMessage(t *testing.T) {
	eng := NewEngine(1)
	root := eng.NewRootModule("net")

	act, err := eng.CreateModule(root, "act", Simple, ActivityStyle)
	if err != nil {
		t.Fatal(err)
	}
	sender, err := eng.CreateModule(root, "sender", Simple, HandleMessageStyle)
	if err != nil {
		t.Fatal(err)
	}
	p1Gates, _ := act.AddGate("p1", Input, 0)
	p2Gates, _ := act.AddGate("p2", Input, 0)

	beh := &receiveNewActivity{p2: p2Gates[0]}
	act.Activity = beh

	if err := eng.ScheduleActivityStart(act, 0); err != nil {
		t.Fatal(err)
	}
	if err := eng.Initialize(); err != nil {
		t.Fatal(err)
	}

	senderCtx := &Context{eng: eng, mod: sender}
	m1 := eng.NewMessage("m1", nil)
	if err := senderCtx.SendDirect(m1, Duration(1*1e9), p1Gates[0]); err != nil {
		t.Fatal(err)
	}
	m2 := eng.NewMessage("m2", nil)
	if err := senderCtx.SendDirect(m2, Duration(2*1e9), p1Gates[0]); err != nil {
		t.Fatal(err)
	}

	reason := eng.Run()
	eng.Finalize()
	if eng.Failed() {
		t.Fatalf("run failed: %v", eng.LastError())
	}
	if reason != FesExhausted {
		t.Fatalf("stop reason: got %v, want fesExhausted", reason)
	}

	want := []string{"m2", "m1"}
	if len(beh.order) != 2 || beh.order[0] != want[0] || beh.order[1] != want[1] {
		t.Fatalf("receive order: got %v, want %v (ReceiveNew must skip the already put-aside m1)", beh.order, want)
	}
}
