package cmd

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"
)

// NetworkConfig is the top-level YAML document accepted by `eventsim run`.
// All top-level sections must be listed to satisfy KnownFields(true) strict
// parsing, exactly as the teacher's defaults.yaml Config struct does.
type NetworkConfig struct {
	Network      string         `yaml:"network"`
	Seed         int64          `yaml:"seed"`
	SimTimeLimit int64          `yaml:"sim_time_limit"`
	Params       map[string]any `yaml:"params"`
}

// loadNetworkConfig parses path into a NetworkConfig, rejecting unknown
// fields. Grounded on the teacher's loadDefaultsConfig (cmd/default_config.go).
func loadNetworkConfig(path string) (NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return NetworkConfig{}, err
	}
	var cfg NetworkConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return NetworkConfig{}, err
	}
	return cfg, nil
}

// intParam reads an integer parameter from cfg.Params, falling back to def
// when absent. YAML numbers decode as int when KnownFields(true) is paired
// with the default any-typed map, so the common case is a plain type
// assertion; int64/float64 are also accepted since the YAML decoder's
// chosen numeric type depends on the literal's form.
func intParam(cfg NetworkConfig, name string, def int64) int64 {
	v, ok := cfg.Params[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return def
	}
}

func floatParam(cfg NetworkConfig, name string, def float64) float64 {
	v, ok := cfg.Params[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}
