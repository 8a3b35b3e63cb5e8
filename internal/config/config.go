// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"aetheric.io/dronegrid/internal/log"
	"aetheric.io/dronegrid/internal/node"
	"aetheric.io/dronegrid/pkg/wire"
)

// GlobalConfig is the top-level static configuration.
// Maps to the `dronegrid:` root key in YAML.
type GlobalConfig struct {
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Scenario ScenarioConfig `mapstructure:"scenario" yaml:"scenario"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Log      log.Config     `mapstructure:"log" yaml:"log"`
}

// NetworkConfig describes the overlay topology.
type NetworkConfig struct {
	// ChannelCapacity is the buffer size of every inter-node channel.
	ChannelCapacity int `mapstructure:"channel_capacity" yaml:"channel_capacity"`
	// CacheSize is the per-drone fragment cache capacity.
	CacheSize int          `mapstructure:"cache_size" yaml:"cache_size"`
	Nodes     []NodeConfig `mapstructure:"nodes" yaml:"nodes"`
}

// NodeConfig declares one node of the overlay. Links are undirected: every
// listed neighbor must list this node back.
type NodeConfig struct {
	ID       wire.NodeID   `mapstructure:"id" yaml:"id"`
	Kind     string        `mapstructure:"kind" yaml:"kind,omitempty"` // drone / client / server
	DropRate float32       `mapstructure:"drop_rate" yaml:"drop_rate"`
	Links    []wire.NodeID `mapstructure:"links" yaml:"links"`
}

// ScenarioConfig is an optional scripted run: timed steps applied to the
// network after startup. Step parameters stay untyped here; the scenario
// runner decodes them per action.
type ScenarioConfig struct {
	Seed  int64        `mapstructure:"seed" yaml:"seed"`
	Steps []StepConfig `mapstructure:"steps" yaml:"steps"`
}

// StepConfig is one scripted action. After holds a duration offset from
// scenario start, e.g. "250ms".
type StepConfig struct {
	After  string         `mapstructure:"after" yaml:"after,omitempty"`
	Action string         `mapstructure:"action" yaml:"action"`
	Params map[string]any `mapstructure:"params" yaml:"params,omitempty"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// configRoot is the wrapper matching the YAML structure `dronegrid: ...`.
type configRoot struct {
	Dronegrid GlobalConfig `mapstructure:"dronegrid"`
}

// Load loads configuration from file.
// The YAML file uses `dronegrid:` as root key; env vars use the DRONEGRID_
// prefix (e.g. DRONEGRID_LOG_LEVEL) via the key replacer.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Dronegrid

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "dronegrid." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("dronegrid.log.level", "info")
	v.SetDefault("dronegrid.log.format", "text")
	v.SetDefault("dronegrid.log.file.enabled", false)
	v.SetDefault("dronegrid.log.file.path", "/var/log/dronegrid/dronegrid.log")
	v.SetDefault("dronegrid.log.file.max_size_mb", 100)
	v.SetDefault("dronegrid.log.file.max_age_days", 30)
	v.SetDefault("dronegrid.log.file.max_backups", 5)
	v.SetDefault("dronegrid.log.file.compress", true)

	// Metrics defaults
	v.SetDefault("dronegrid.metrics.enabled", false)
	v.SetDefault("dronegrid.metrics.listen", ":9091")
	v.SetDefault("dronegrid.metrics.path", "/metrics")

	// Network defaults
	v.SetDefault("dronegrid.network.channel_capacity", 64)
	v.SetDefault("dronegrid.network.cache_size", node.DefaultCacheSize)
}

// Validate checks the configuration for internal consistency.
func (cfg *GlobalConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	if cfg.Network.ChannelCapacity <= 0 {
		return fmt.Errorf("network.channel_capacity must be positive, got %d", cfg.Network.ChannelCapacity)
	}
	if cfg.Network.CacheSize <= 0 || cfg.Network.CacheSize > node.MaxCacheSize {
		return fmt.Errorf("network.cache_size must be in [1, %d], got %d", node.MaxCacheSize, cfg.Network.CacheSize)
	}
	if len(cfg.Network.Nodes) == 0 {
		return fmt.Errorf("network.nodes must declare at least one node")
	}

	byID := make(map[wire.NodeID]NodeConfig, len(cfg.Network.Nodes))
	for _, n := range cfg.Network.Nodes {
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("duplicate node id %d", n.ID)
		}
		if _, err := parseKind(n.Kind); err != nil {
			return fmt.Errorf("node %d: %w", n.ID, err)
		}
		if n.DropRate < 0 || n.DropRate > 1 {
			return fmt.Errorf("node %d: drop_rate %v outside [0, 1]", n.ID, n.DropRate)
		}
		byID[n.ID] = n
	}

	for _, n := range cfg.Network.Nodes {
		for _, peer := range n.Links {
			if peer == n.ID {
				return fmt.Errorf("node %d links to itself", n.ID)
			}
			other, ok := byID[peer]
			if !ok {
				return fmt.Errorf("node %d links to undeclared node %d", n.ID, peer)
			}
			if !containsID(other.Links, n.ID) {
				return fmt.Errorf("link %d-%d is not mutual: node %d does not link back", n.ID, peer, peer)
			}
		}
	}

	for i, step := range cfg.Scenario.Steps {
		if step.Action == "" {
			return fmt.Errorf("scenario step %d: action is required", i)
		}
	}

	return nil
}

// NodeKind returns the parsed node kind. Validate has already rejected
// unknown values.
func (n NodeConfig) NodeKind() wire.NodeKind {
	kind, _ := parseKind(n.Kind)
	return kind
}

func parseKind(s string) (wire.NodeKind, error) {
	switch s {
	case "", "drone":
		return wire.KindDrone, nil
	case "client":
		return wire.KindClient, nil
	case "server":
		return wire.KindServer, nil
	default:
		return 0, fmt.Errorf("invalid kind %q (must be drone/client/server)", s)
	}
}

func containsID(ids []wire.NodeID, id wire.NodeID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
