// Package config loads the scenesim TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the complete scenesim configuration, one field per TOML table.
type Config struct {
	Sim     SimConfig     `toml:"sim"`
	Prefabs PrefabConfig  `toml:"prefabs"`
	Logging LoggingConfig `toml:"logging"`
	Profile ProfileConfig `toml:"profile"`
}

// SimConfig is the [sim] table: tick pacing, worker count and the
// population seeded at startup.
type SimConfig struct {
	Ticks              int           `toml:"ticks"`
	TickRate           time.Duration `toml:"tick_rate"` // 0 = run ticks back to back
	Workers            int           `toml:"workers"`   // goroutines resolving follow targets
	Seed               int64         `toml:"seed"`
	Leaders            int           `toml:"leaders"`
	FollowersPerLeader int           `toml:"followers_per_leader"`
	LeaderPrefab       string        `toml:"leader_prefab"`
	FollowerPrefab     string        `toml:"follower_prefab"`
}

// PrefabConfig is the [prefabs] table.
type PrefabConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"` // reload the catalog when the file changes
}

// LoggingConfig is the [logging] table. Level takes any zap level name.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// ProfileConfig is the [profile] table. An empty Mode disables profiling.
type ProfileConfig struct {
	Mode string `toml:"mode"` // "", "cpu", "mem", "allocs", "block", "mutex"
	Path string `toml:"path"`
}

// Load reads the TOML file at path over the defaults.
//
// Parameters:
//   - path: The config file to read.
//
// Returns:
//   - The merged and validated configuration.
//   - An error naming path when the file cannot be read, decoded or
//     validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a TOML document over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once, joined
// with errors.Join.
func (c *Config) Validate() error {
	var errs []error
	if c.Sim.Ticks < 0 {
		errs = append(errs, fmt.Errorf("sim.ticks must be >= 0, got %d", c.Sim.Ticks))
	}
	if c.Sim.TickRate < 0 {
		errs = append(errs, fmt.Errorf("sim.tick_rate must be >= 0, got %s", c.Sim.TickRate))
	}
	if c.Sim.Workers < 1 {
		errs = append(errs, fmt.Errorf("sim.workers must be >= 1, got %d", c.Sim.Workers))
	}
	if c.Sim.Leaders < 0 || c.Sim.FollowersPerLeader < 0 {
		errs = append(errs, errors.New("sim.leaders and sim.followers_per_leader must be >= 0"))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem", "allocs", "block", "mutex":
	default:
		errs = append(errs, fmt.Errorf("unknown profile.mode %q", c.Profile.Mode))
	}
	return errors.Join(errs...)
}

// Defaults returns the configuration used for keys a file leaves out.
func Defaults() *Config {
	return &Config{
		Sim: SimConfig{
			Ticks:              600,
			TickRate:           16 * time.Millisecond,
			Workers:            4,
			Seed:               1,
			Leaders:            8,
			FollowersPerLeader: 16,
			LeaderPrefab:       "leader",
			FollowerPrefab:     "follower",
		},
		Prefabs: PrefabConfig{
			Path: "config/prefabs.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Profile: ProfileConfig{
			Path: ".",
		},
	}
}
