// Package config loads tmlc's driver configuration: project defaults from
// tmlc.toml (BurntSushi/toml) merged with per-user overrides from
// $XDG_CONFIG_HOME/tmlc/config.yaml (yaml.v3).
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the driver defaults that flags may override.
type Config struct {
	TargetTriple     string `toml:"target" yaml:"target"`
	OptimizationLevel string `toml:"opt-level" yaml:"opt-level"`
	RuntimeCatalog   string `toml:"runtime-catalog" yaml:"runtime-catalog"`
	Sysroot          string `toml:"sysroot" yaml:"sysroot"`
	Linker           string `toml:"linker" yaml:"linker"`
}

// Default returns the built-in fallback used when no config file exists.
func Default() Config {
	return Config{
		TargetTriple:      "x86_64-unknown-linux-gnu",
		OptimizationLevel: "2",
		RuntimeCatalog:    "runtime",
	}
}

// Load reads tmlc.toml from projectDir (if present), then layers
// $XDG_CONFIG_HOME/tmlc/config.yaml on top (if present), on top of Default().
func Load(projectDir string) (Config, error) {
	cfg := Default()

	tomlPath := filepath.Join(projectDir, "tmlc.toml")
	if data, err := os.ReadFile(tomlPath); err == nil {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, err
		}
	}

	if userPath := userConfigPath(); userPath != "" {
		if data, err := os.ReadFile(userPath); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	return cfg, nil
}

func userConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "tmlc", "config.yaml")
}
