// Package config handles configuration loading and management.
package config

import "path/filepath"

// Config holds all settings.
type Config struct {
	Extract ExtractConfig `yaml:"extract"`
	Replay  ReplayConfig  `yaml:"replay"`
	Import  ImportConfig  `yaml:"import"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExtractConfig holds capture extraction settings.
type ExtractConfig struct {
	MaxBlocks int    `yaml:"max_blocks"` // Draw calls to extract, -1 for all
	Workers   int    `yaml:"workers"`    // Parallel decoders
	TmpDir    string `yaml:"tmp_dir"`    // Where extracted files go; empty is next to the capture
}

// ReplayConfig holds the capture bridge settings.
type ReplayConfig struct {
	BridgeCommand string   `yaml:"bridge_command"`
	BridgeArgs    []string `yaml:"bridge_args"`
}

// ImportConfig holds tile assembly settings.
type ImportConfig struct {
	GlobalScale float32 `yaml:"global_scale"`
	MaxBlocks   int     `yaml:"max_blocks"`
}

// SessionConfig holds where the reference matrix is kept between runs.
type SessionConfig struct {
	StateFile string `yaml:"state_file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Extract: ExtractConfig{
			MaxBlocks: -1,
			Workers:   4,
			TmpDir:    "",
		},
		Replay: ReplayConfig{
			BridgeCommand: "rdc-snapshot",
		},
		Import: ImportConfig{
			GlobalScale: 1.0 / 256.0,
			MaxBlocks:   -1,
		},
		Session: SessionConfig{
			StateFile: filepath.Join(ConfigDir(), "session.yaml"),
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
