package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/maps-capture/internal/classify"
	"github.com/Faultbox/maps-capture/internal/replay"
	"github.com/Faultbox/maps-capture/internal/resolve"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, replay.ExitOK},
		{"no relevant draws", &classify.NoRelevantDrawCallsError{}, replay.ExitCaptureNotRecognized},
		{"unrecognized uniforms", fmt.Errorf("draw 2: %w", resolve.ErrUnrecognizedUniformSet), replay.ExitCaptureNotRecognized},
		{"open failed", fmt.Errorf("%w: missing", replay.ErrOpenFailed), replay.ExitOpenFailed},
		{"module missing", replay.ErrModuleMissing, replay.ExitModuleMissing},
		{"other", errors.New("disk full"), replay.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"extract", "import", "classify", "formats", "session", "config"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("max-blocks"))
}
