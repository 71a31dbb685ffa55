package engine

import "testing"

func TestConnect_RejectsWrongDirections(t *testing.T) {
	eng := NewEngine(1)
	root := eng.NewRootModule("net")
	a, _ := eng.CreateModule(root, "a", Simple, HandleMessageStyle)
	b, _ := eng.CreateModule(root, "b", Simple, HandleMessageStyle)
	aIn, _ := a.AddGate("in", Input, 0)
	bIn, _ := b.AddGate("in", Input, 0)

	err := eng.Connect(aIn[0], bIn[0], ChannelParams{})
	if !isKind(err, BuildError) {
		t.Fatalf("expected BuildError connecting two input gates, got %v", err)
	}
}

func TestConnect_RejectsReconnectingAGateAlreadyInUse(t *testing.T) {
	eng := NewEngine(1)
	root := eng.NewRootModule("net")
	a, _ := eng.CreateModule(root, "a", Simple, HandleMessageStyle)
	b, _ := eng.CreateModule(root, "b", Simple, HandleMessageStyle)
	c, _ := eng.CreateModule(root, "c", Simple, HandleMessageStyle)
	aOut, _ := a.AddGate("out", Output, 0)
	bIn, _ := b.AddGate("in", Input, 0)
	cIn, _ := c.AddGate("in", Input, 0)

	if err := eng.Connect(aOut[0], bIn[0], ChannelParams{}); err != nil {
		t.Fatal(err)
	}
	err := eng.Connect(aOut[0], cIn[0], ChannelParams{})
	if !isKind(err, BuildError) {
		t.Fatalf("expected BuildError reconnecting an in-use gate, got %v", err)
	}
}

// TestResolveDestination_WalksThroughCompoundModulePassThroughGates wires a compound module "mid" with pass-through gates
// ("pin" input, "pout" output) between a leaf sender and a leaf receiver,
// exercising resolveDestination's walk through a compound module's gates
// to the terminal Simple-owned input gate.
func TestResolveDestination_WalksThroughCompoundModulePassThroughGates(t *testing.T) {
	eng := NewEngine(1)
	root := eng.NewRootModule("net")
	mid, _ := eng.CreateModule(root, "mid", Compound, HandleMessageStyle)
	sender, _ := eng.CreateModule(root, "sender", Simple, HandleMessageStyle)
	receiver, _ := eng.CreateModule(mid, "receiver", Simple, HandleMessageStyle)

	senderOut, _ := sender.AddGate("out", Output, 0)
	midIn, _ := mid.AddGate("pin", Input, 0)
	midOut, _ := mid.AddGate("pout", Output, 0)
	receiverIn, _ := receiver.AddGate("in", Input, 0)

	if err := eng.Connect(senderOut[0], midIn[0], ChannelParams{}); err != nil {
		t.Fatal(err)
	}
	// mid's own "pin" must relay to its "pout" to continue the chain; model
	// this the way a compound module's gate pass-through is wired: pin's
	// peer points at pout by directly linking the two gate records (a
	// compound module does not run Connect on itself — this mirrors how a
	// real network-description compiler would wire an inout pass-through).
	midIn[0].Peer = &PeerRef{Module: mid.ID, Gate: midOut[0].ID}
	if err := eng.Connect(midOut[0], receiverIn[0], ChannelParams{}); err != nil {
		t.Fatal(err)
	}

	destMod, destGate, err := eng.resolveDestination(senderOut[0])
	if err != nil {
		t.Fatal(err)
	}
	if destMod != receiver.ID || destGate != receiverIn[0].ID {
		t.Fatalf("resolveDestination: got (%v,%v), want (%v,%v)", destMod, destGate, receiver.ID, receiverIn[0].ID)
	}
}

func TestResolveDestination_NoPeerFails(t *testing.T) {
	eng := NewEngine(1)
	root := eng.NewRootModule("net")
	a, _ := eng.CreateModule(root, "a", Simple, HandleMessageStyle)
	aOut, _ := a.AddGate("out", Output, 0)

	_, _, err := eng.resolveDestination(aOut[0])
	if !isKind(err, BuildError) {
		t.Fatalf("expected BuildError for unconnected gate, got %v", err)
	}
}
