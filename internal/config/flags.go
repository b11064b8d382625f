package config

import "github.com/spf13/pflag"

// Overrides holds command-line values that take priority over the config
// file. Unset values leave the config untouched.
type Overrides struct {
	ConfigPath    string
	Debug         bool
	LogFile       string
	MaxBlocks     int
	Workers       int
	TmpDir        string
	BridgeCommand string
	StateFile     string
}

// Bind registers the override flags on fs.
func (o *Overrides) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&o.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&o.LogFile, "log-file", "", "Also log to this file")
	fs.IntVar(&o.MaxBlocks, "max-blocks", 0, "Draw calls to process, -1 for all")
	fs.IntVar(&o.Workers, "workers", 0, "Parallel decoders")
	fs.StringVar(&o.TmpDir, "tmp-dir", "", "Directory for extracted files")
	fs.StringVar(&o.BridgeCommand, "bridge", "", "Capture bridge command")
	fs.StringVar(&o.StateFile, "state-file", "", "Session state file")
}

// apply applies CLI overrides to the config.
func (o Overrides) apply(cfg *Config) {
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.LogFile != "" {
		cfg.Logging.LogFile = o.LogFile
	}
	if o.MaxBlocks != 0 {
		cfg.Extract.MaxBlocks = o.MaxBlocks
		cfg.Import.MaxBlocks = o.MaxBlocks
	}
	if o.Workers > 0 {
		cfg.Extract.Workers = o.Workers
	}
	if o.TmpDir != "" {
		cfg.Extract.TmpDir = o.TmpDir
	}
	if o.BridgeCommand != "" {
		cfg.Replay.BridgeCommand = o.BridgeCommand
	}
	if o.StateFile != "" {
		cfg.Session.StateFile = o.StateFile
	}
}
