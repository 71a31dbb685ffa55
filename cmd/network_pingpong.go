package cmd

import (
	"github.com/eventsim/eventsim/engine"
	"github.com/sirupsen/logrus"
)

func init() {
	RegisterNetwork("pingpong", buildPingPongNetwork)
	RegisterModuleType(ModuleTypeInfo{
		Name:       "pingpong.node",
		Style:      "handleMessage",
		Gates:      []GateSpec{{Name: "in", Direction: "input"}, {Name: "out", Direction: "output"}},
		Params:     []string{"delay_ns", "bit_error_rate"},
		InitStages: 0,
	})
}

// pingPongNode bounces a message back and forth with its peer, starting
// from whichever node the network builder gives an initial self-message.
type pingPongNode struct {
	log *logrus.Logger
}

func (n *pingPongNode) NumInitStages() int                      { return 0 }
func (n *pingPongNode) Initialize(ctx *engine.Context, stage int) error { return nil }

func (n *pingPongNode) HandleMessage(ctx *engine.Context, msg *engine.Message) {
	n.log.WithFields(logrus.Fields{
		"t":    ctx.Now(),
		"node": ctx.Module().FullPath(),
		"kind": msg.Kind,
	}).Info("bounce")
	if msg.Kind == "ping" {
		msg.Kind = "pong"
	} else {
		msg.Kind = "ping"
	}
	out := ctx.Module().Gate("out", -1)
	if err := ctx.Send(msg, out); err != nil {
		ctx.Error("pingpong: %v", err)
	}
}

func (n *pingPongNode) Finish(ctx *engine.Context) error { return nil }

// buildPingPongNetwork wires two handleMessage-style nodes, "a" and "b",
// connected by symmetric channels with the configured delay, and schedules
// the opening "ping" from "a" at t=0.
func buildPingPongNetwork(eng *engine.Engine, cfg NetworkConfig) error {
	delay := engine.Duration(intParam(cfg, "delay_ns", int64(1e9)))
	ber := floatParam(cfg, "bit_error_rate", 0)

	root := eng.NewRootModule("net")
	a, err := eng.CreateModule(root, "a", engine.Simple, engine.HandleMessageStyle)
	if err != nil {
		return err
	}
	b, err := eng.CreateModule(root, "b", engine.Simple, engine.HandleMessageStyle)
	if err != nil {
		return err
	}

	aOut, _ := a.AddGate("out", engine.Output, 0)
	aIn, _ := a.AddGate("in", engine.Input, 0)
	bOut, _ := b.AddGate("out", engine.Output, 0)
	bIn, _ := b.AddGate("in", engine.Input, 0)

	if err := eng.Connect(aOut[0], bIn[0], engine.ChannelParams{Delay: delay, BitErrorRate: ber}); err != nil {
		return err
	}
	if err := eng.Connect(bOut[0], aIn[0], engine.ChannelParams{Delay: delay, BitErrorRate: ber}); err != nil {
		return err
	}

	a.Handler = &pingPongNode{log: logrus.StandardLogger()}
	b.Handler = &pingPongNode{log: logrus.StandardLogger()}

	opening := eng.NewMessage("ping", nil)
	return eng.ScheduleSelf(a, 0, opening)
}
