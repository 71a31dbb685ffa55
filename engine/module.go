package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// ModuleID is a stable index into the engine's module table. IDs are never
// reused while the module table is alive; deleteModule invalidates one.
type ModuleID int

// ModuleKind distinguishes simple modules (which run user behavior) from
// compound modules (which only contain submodules).
type ModuleKind int

const (
	Simple ModuleKind = iota
	Compound
)

// ExecutionStyle tags a simple module as handleMessage-style (dispatch
// invokes HandleMessage once per event, never suspends) or activity-style
// (dispatch resumes a coroutine that suspends at blocking primitives).
// Modeled as a tagged variant rather than an inheritance hierarchy per the
// spec's design notes (§9).
type ExecutionStyle int

const (
	HandleMessageStyle ExecutionStyle = iota
	ActivityStyle
)

// RunState is a simple module's lifecycle state.
type RunState int

const (
	Ready RunState = iota
	Ended
)

// Param is a named, ancestor-resolvable configuration value.
type Param struct {
	Name  string
	Value any
}

// Handler is implemented by handleMessage-style simple modules. Compound
// modules may also implement it to participate in staged init/finish
// without owning gates of their own kind of behavior.
type Handler interface {
	// NumInitStages reports how many initialize stages this module
	// participates in; modules with no init work return 0.
	NumInitStages() int
	Initialize(ctx *Context, stage int) error
	// HandleMessage is invoked once per event for handleMessage-style
	// modules. It must never be called for activity-style modules.
	HandleMessage(ctx *Context, msg *Message)
	Finish(ctx *Context) error
}

// Activity is implemented by activity-style simple modules: Run executes as
// a straight-line function on its own coroutine, suspending only at the
// blocking primitives exposed by *Context (Receive, ReceiveOn, Wait).
type Activity interface {
	NumInitStages() int
	Initialize(ctx *Context, stage int) error
	Run(ctx *Context)
	Finish(ctx *Context) error
}

// Module is either simple or compound. Compound modules additionally own an
// ordered list of direct submodules; simple modules additionally own a
// coroutine and put-aside queue when activity-style.
type Module struct {
	ID     ModuleID
	Parent *Module
	Name   string

	// VectorIndex is -1 for a scalar module; VectorSize is 0 for a scalar
	// module and the vector's length for a member of a module vector.
	VectorIndex int
	VectorSize  int

	Params map[string]Param
	Gates  map[GateKey]*Gate
	nextGateID GateID

	DisplayString   string
	WarningsEnabled bool

	Kind        ModuleKind
	Submodules  []*Module

	// Simple-module fields; zero-valued on compound modules.
	ExecStyle ExecutionStyle
	Handler   Handler  // set when ExecStyle == HandleMessageStyle
	Activity  Activity // set when ExecStyle == ActivityStyle
	coroutine *coroutine
	PutAside  []*Message
	RunState  RunState
	StackSize int
}

func newModule(id ModuleID, name string, kind ModuleKind) *Module {
	return &Module{
		ID:              id,
		Name:            name,
		VectorIndex:     -1,
		Params:          make(map[string]Param),
		Gates:           make(map[GateKey]*Gate),
		WarningsEnabled: true,
		Kind:            kind,
		RunState:        Ready,
	}
}

// FullPath returns the dotted path from the root module to this one,
// including vector indices (e.g. "net.nodes[2].core").
func (m *Module) FullPath() string {
	if m.Parent == nil {
		return m.segment()
	}
	return m.Parent.FullPath() + "." + m.segment()
}

func (m *Module) segment() string {
	if m.VectorIndex < 0 {
		return m.Name
	}
	return m.Name + "[" + strconv.Itoa(m.VectorIndex) + "]"
}

// FindSubmodule looks up a direct submodule by (name, index). index is -1
// for a scalar submodule lookup.
func (m *Module) FindSubmodule(name string, index int) *Module {
	for _, c := range m.Submodules {
		if c.Name == name && c.VectorIndex == index {
			return c
		}
	}
	return nil
}

// LookupPath resolves a relative dotted path (e.g. "nodes[2].core") against
// m, returning nil if any segment is missing.
func (m *Module) LookupPath(path string) *Module {
	cur := m
	for _, seg := range strings.Split(path, ".") {
		name, index := parseSegment(seg)
		if cur == nil {
			return nil
		}
		cur = cur.FindSubmodule(name, index)
	}
	return cur
}

func parseSegment(seg string) (name string, index int) {
	index = -1
	if i := strings.IndexByte(seg, '['); i >= 0 && strings.HasSuffix(seg, "]") {
		name = seg[:i]
		n, err := strconv.Atoi(seg[i+1 : len(seg)-1])
		if err == nil {
			index = n
		}
		return name, index
	}
	return seg, -1
}

// AddParameter attaches or overwrites a named parameter on m.
func (m *Module) AddParameter(name string, value any) {
	m.Params[name] = Param{Name: name, Value: value}
}

// Parameter resolves name on m, walking up through ancestors if m itself
// does not define it. ok is false if no ancestor defines it either.
func (m *Module) Parameter(name string) (any, bool) {
	for cur := m; cur != nil; cur = cur.Parent {
		if p, ok := cur.Params[name]; ok {
			return p.Value, true
		}
	}
	return nil, false
}

// AddGate creates a scalar gate (vectorSize 0) or a gate vector of the given
// size under the base name. It fails with BuildError if (name, index)
// already exists.
func (m *Module) AddGate(name string, direction Direction, vectorSize int) ([]*Gate, error) {
	if vectorSize <= 0 {
		key := GateKey{Name: name, Index: -1}
		if _, exists := m.Gates[key]; exists {
			return nil, newErr(BuildError, "AddGate", fmt.Errorf("gate %q already exists on %s", name, m.FullPath()))
		}
		g := &Gate{ID: m.nextGateID, Owner: m.ID, Key: key, Direction: direction}
		m.nextGateID++
		m.Gates[key] = g
		return []*Gate{g}, nil
	}

	gates := make([]*Gate, 0, vectorSize)
	for i := 0; i < vectorSize; i++ {
		key := GateKey{Name: name, Index: i}
		if _, exists := m.Gates[key]; exists {
			return nil, newErr(BuildError, "AddGate", fmt.Errorf("gate %q[%d] already exists on %s", name, i, m.FullPath()))
		}
		g := &Gate{ID: m.nextGateID, Owner: m.ID, Key: key, Direction: direction}
		m.nextGateID++
		m.Gates[key] = g
		gates = append(gates, g)
	}
	return gates, nil
}

// ResizeGateVector grows (never shrinks) the gate vector named name to
// newSize, preserving existing gates and their connections.
func (m *Module) ResizeGateVector(name string, direction Direction, newSize int) error {
	existing := 0
	for k := range m.Gates {
		if k.Name == name {
			existing++
		}
	}
	if newSize < existing {
		return newErr(BuildError, "ResizeGateVector", ErrVectorSizeConflict)
	}
	for i := existing; i < newSize; i++ {
		key := GateKey{Name: name, Index: i}
		g := &Gate{ID: m.nextGateID, Owner: m.ID, Key: key, Direction: direction}
		m.nextGateID++
		m.Gates[key] = g
	}
	return nil
}

// Gate returns the gate (name, index) on m, or nil if it does not exist.
func (m *Module) Gate(name string, index int) *Gate {
	return m.Gates[GateKey{Name: name, Index: index}]
}

// IsActivity reports whether m is a simple, activity-style module.
func (m *Module) IsActivity() bool {
	return m.Kind == Simple && m.ExecStyle == ActivityStyle
}
