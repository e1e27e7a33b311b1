// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the kiln configuration file.
//
// Configuration comes from a single YAML file named by the
// KILN_CONFIG environment variable or a --config flag. There is no
// fallback discovery: builds are hashed, so the configuration in
// effect must be explicit and auditable.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the kiln configuration.
type Config struct {
	// Store configures the build store holding finished artifacts.
	Store StoreConfig `yaml:"store"`

	// SourceCache configures the content-addressed source cache.
	SourceCache SourceCacheConfig `yaml:"source_cache"`
}

// StoreConfig configures the build store.
type StoreConfig struct {
	// Root is the directory holding artifact directories, laid out
	// as <root>/<name>/<hash>.
	Root string `yaml:"root"`

	// BuildDir is where temporary build directories are created.
	// Sandboxed builds get read access to this tree.
	BuildDir string `yaml:"build_dir"`
}

// SourceCacheConfig configures the source cache.
type SourceCacheConfig struct {
	// Root is the cache directory, holding packs/ and files/.
	Root string `yaml:"root"`
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Store.Root == "" {
		return nil, fmt.Errorf("config %s: store.root is required", path)
	}
	return &cfg, nil
}

// Path returns the config file location: the explicit flag value if
// set, otherwise KILN_CONFIG from env. Returns an error when neither
// is present.
func Path(flagValue string, env map[string]string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if path := env["KILN_CONFIG"]; path != "" {
		return path, nil
	}
	return "", fmt.Errorf("no config file: pass --config or set KILN_CONFIG")
}
