package cmd

import "github.com/eventsim/eventsim/engine"

// NetworkBuilder constructs a runnable network under eng's root module from
// cfg. Builders register themselves from an init() in their own file, the
// way the teacher registers vLLM model presets in defaults.yaml rather than
// in code — here the equivalent is a name-keyed Go map instead of a YAML
// table, since network *topology* (not just parameters) varies by name.
type NetworkBuilder func(eng *engine.Engine, cfg NetworkConfig) error

// GateSpec describes one gate (or gate vector) a module type exposes, for
// `eventsim describe`.
type GateSpec struct {
	Name      string
	Direction string
	Vector    bool
}

// ModuleTypeInfo is what `eventsim describe <module-type>` prints: the
// static shape of a module type, independent of any particular network
// instance.
type ModuleTypeInfo struct {
	Name       string
	Style      string
	Gates      []GateSpec
	Params     []string
	InitStages int
}

var (
	networkRegistry    = map[string]NetworkBuilder{}
	moduleTypeRegistry = map[string]ModuleTypeInfo{}
)

// RegisterNetwork adds name to the set `list-configs` enumerates and `run`
// can build.
func RegisterNetwork(name string, builder NetworkBuilder) {
	networkRegistry[name] = builder
}

// RegisterModuleType adds info to the set `describe` can print.
func RegisterModuleType(info ModuleTypeInfo) {
	moduleTypeRegistry[info.Name] = info
}

func listNetworkNames() []string {
	names := make([]string, 0, len(networkRegistry))
	for name := range networkRegistry {
		names = append(names, name)
	}
	return names
}
