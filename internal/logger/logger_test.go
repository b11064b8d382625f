package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNopBeforeInit(t *testing.T) {
	// Must not panic when nothing was initialised
	Debug("ignored", zap.Int("n", 1))
	ForCapture("/captures/frame.rdc").Info("ignored")
}

func TestInitWithFileConfig(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	path := filepath.Join(t.TempDir(), "extract.log")
	if err := InitWithFileConfig("warn", DefaultFileConfig(path), false); err != nil {
		t.Fatalf("InitWithFileConfig failed: %v", err)
	}
	Info("below threshold")
	Warn("draw call skipped", zap.Uint32("eventId", 42))
	ForCapture("/captures/frame.rdc").Error("capture not recognized")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "below threshold") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(out, "draw call skipped") || !strings.Contains(out, "42") {
		t.Errorf("warn entry missing from log file: %q", out)
	}
	if !strings.Contains(out, "frame.rdc") {
		t.Errorf("capture field missing from log file: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"unknown": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
