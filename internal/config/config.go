// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

// Package config loads engine configuration from a YAML file and command
// line flags, in that order of increasing precedence over built-in
// defaults.
package config

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the engine configuration.
type Config struct {
	// DefaultGroup is the fallback primary group for users with no stored
	// value. The group is auto-created at startup.
	DefaultGroup string `koanf:"default_group"`

	Ordering OrderingConfig `koanf:"ordering"`
	Storage  StorageConfig  `koanf:"storage"`
	Context  ContextConfig  `koanf:"context"`
	Log      LogConfig      `koanf:"log"`
}

// OrderingConfig controls inherited-group ordering.
type OrderingConfig struct {
	// TieBreak is "weight_first" (default) or "track_first"; it decides
	// whether explicit group weight or shared track position is consulted
	// first when ordering inherited groups.
	TieBreak string `koanf:"tie_break"`
}

// StorageConfig locates the flat-file backend.
type StorageConfig struct {
	Path string `koanf:"path"`
}

// ContextConfig feeds the static context calculators.
type ContextConfig struct {
	// Server is this instance's server identifier, contributed to every
	// query context under the "server" key when non-empty.
	Server string `koanf:"server"`

	// WorldRewrites maps world names onto their permission-equivalent
	// parents; the chain is followed to a fixed point.
	WorldRewrites map[string]string `koanf:"world_rewrites"`
}

// LogConfig controls structured log output.
type LogConfig struct {
	Format string `koanf:"format"` // "json" or "text"
	Level  string `koanf:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DefaultGroup: "default",
		Ordering:     OrderingConfig{TieBreak: "weight_first"},
		Storage:      StorageConfig{Path: "data"},
		Log:          LogConfig{Format: "json", Level: "info"},
	}
}

// Load merges defaults, the optional YAML file at path, and the optional
// flag set.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return cfg, nil
}
