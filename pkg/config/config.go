// Package config loads the TOML-shaped configuration file described in
// spec §6 into a plain struct and overlays the CLI bind-address argument
// on top of it.
//
// Configuration sources, in order of precedence, following the teacher's
// LoadServerConfig layering (flags over env over defaults), adapted to a
// file-backed scheme since spec §6 specifies a TOML document rather than
// flags:
//  1. The CLI positional bind-address argument (highest priority)
//  2. The TOML config file passed via --config
//  3. Default values (lowest priority)
//
// Spec §1 calls the config file an external collaborator ("a plain
// TOML-like blob deserialized into a struct"); the concrete decoder is
// github.com/BurntSushi/toml, the answer the retrieval pack's manifests
// converge on for exactly this job.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/kvmir/kvmir/pkg/engine"
)

// DefaultBindAddr is spec §6's documented default bind address.
const DefaultBindAddr = "127.0.0.1:6379"

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// loggerFile is the [logger] table.
type loggerFile struct {
	Level string `toml:"level"`
}

// persistenceFile is the [engine.persistence] table.
type persistenceFile struct {
	Enabled           bool   `toml:"enabled"`
	File              string `toml:"file"`
	FlushEveryChanges uint64 `toml:"flush_every_changes"`
}

// engineFile is the [engine] table. MaxItems is a pointer so an omitted
// key (spec's "<u64 | omitted>") is distinguishable from an explicit zero.
type engineFile struct {
	MaxItems    *uint64         `toml:"max_items"`
	Persistence persistenceFile `toml:"persistence"`
}

// fileConfig mirrors the TOML document shape from spec §6.
type fileConfig struct {
	Logger loggerFile `toml:"logger"`
	Engine engineFile `toml:"engine"`
}

// ServerConfig is the resolved, validated configuration kvmir-server runs
// with.
type ServerConfig struct {
	BindAddr    string
	LogLevel    string
	MaxItems    int // 0 means unbounded
	Persistence engine.PersistenceConfig
}

// Load reads the TOML file at path, if non-empty, and overlays
// bindAddrOverride (the CLI positional argument) on top of it. An empty
// path yields an all-defaults configuration: the file is optional
// infrastructure, not a required input.
func Load(path string, bindAddrOverride string) (*ServerConfig, error) {
	fc := fileConfig{
		Logger: loggerFile{Level: "info"},
		Engine: engineFile{
			Persistence: persistenceFile{FlushEveryChanges: engine.DefaultFlushEveryChanges},
		},
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	cfg := &ServerConfig{
		BindAddr: DefaultBindAddr,
		LogLevel: fc.Logger.Level,
		Persistence: engine.PersistenceConfig{
			Enabled:           fc.Engine.Persistence.Enabled,
			File:              fc.Engine.Persistence.File,
			FlushEveryChanges: fc.Engine.Persistence.FlushEveryChanges,
		},
	}
	if cfg.Persistence.FlushEveryChanges == 0 {
		cfg.Persistence.FlushEveryChanges = engine.DefaultFlushEveryChanges
	}
	if fc.Engine.MaxItems != nil {
		cfg.MaxItems = int(*fc.Engine.MaxItems)
	}
	if bindAddrOverride != "" {
		cfg.BindAddr = bindAddrOverride
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved configuration for internal consistency,
// following the teacher's ServerConfig.Validate: fail fast with a
// descriptive error rather than limping along with a bad setting.
func (c *ServerConfig) Validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("bind address must not be empty")
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("max_items must not be negative: %d", c.MaxItems)
	}
	if c.Persistence.Enabled && c.Persistence.File == "" {
		return fmt.Errorf("engine.persistence.file must be set when persistence is enabled")
	}
	return nil
}
