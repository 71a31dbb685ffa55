package cmd

import (
	"fmt"

	"github.com/eventsim/eventsim/engine"
	"github.com/sirupsen/logrus"
)

func init() {
	RegisterNetwork("chain", buildChainNetwork)
	RegisterModuleType(ModuleTypeInfo{
		Name:       "chain.node",
		Style:      "handleMessage",
		Gates:      []GateSpec{{Name: "in", Direction: "input"}, {Name: "out", Direction: "output"}},
		Params:     []string{"hop_delay_ns", "length"},
		InitStages: 0,
	})
}

// relayPayload travels down the chain, counting hops so the final node can
// report the total transit time without re-deriving it from the event log.
type relayPayload struct {
	hop int
}

// chainNode forwards any message it receives to its "out" gate unless it is
// the last node in the vector, in which case it logs arrival and stops.
type chainNode struct {
	index int
	last  bool
	log   *logrus.Logger
}

func (n *chainNode) NumInitStages() int                      { return 0 }
func (n *chainNode) Initialize(ctx *engine.Context, stage int) error { return nil }

func (n *chainNode) HandleMessage(ctx *engine.Context, msg *engine.Message) {
	p, _ := msg.Payload.(*relayPayload)
	if n.last {
		n.log.WithFields(logrus.Fields{
			"t":    ctx.Now(),
			"hops": p.hop,
		}).Info("chain relay complete")
		return
	}
	p.hop++
	out := ctx.Module().Gate("out", -1)
	if err := ctx.Send(msg, out); err != nil {
		ctx.Error("chain: %v", err)
	}
}

func (n *chainNode) Finish(ctx *engine.Context) error { return nil }

// buildChainNetwork wires `length` handleMessage-style nodes in series, each
// node's "out" gate connected to the next node's "in" gate with
// hop_delay_ns of channel delay, then schedules the opening relay message at
// node[0].
func buildChainNetwork(eng *engine.Engine, cfg NetworkConfig) error {
	length := intParam(cfg, "length", 4)
	if length < 2 {
		return fmt.Errorf("chain network needs length >= 2, got %d", length)
	}
	hopDelay := engine.Duration(intParam(cfg, "hop_delay_ns", int64(1e8)))

	root := eng.NewRootModule("net")
	nodes := make([]*engine.Module, length)
	for i := int64(0); i < length; i++ {
		m, err := eng.CreateVectorMember(root, "node", int(i), int(length), engine.Simple, engine.HandleMessageStyle)
		if err != nil {
			return err
		}
		m.Handler = &chainNode{index: int(i), last: i == length-1, log: logrus.StandardLogger()}
		nodes[i] = m
	}
	for i := int64(0); i < length; i++ {
		if _, err := nodes[i].AddGate("in", engine.Input, 0); err != nil {
			return err
		}
		if i < length-1 {
			if _, err := nodes[i].AddGate("out", engine.Output, 0); err != nil {
				return err
			}
		}
	}
	for i := int64(0); i < length-1; i++ {
		out := nodes[i].Gate("out", -1)
		in := nodes[i+1].Gate("in", -1)
		if err := eng.Connect(out, in, engine.ChannelParams{Delay: hopDelay}); err != nil {
			return err
		}
	}

	opening := eng.NewMessage("relay", &relayPayload{hop: 0})
	return eng.ScheduleSelf(nodes[0], 0, opening)
}
