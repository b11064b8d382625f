// mapscapture extracts map tiles from captured browser frames.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/maps-capture/internal/classify"
	"github.com/Faultbox/maps-capture/internal/config"
	"github.com/Faultbox/maps-capture/internal/logger"
	"github.com/Faultbox/maps-capture/internal/replay"
	"github.com/Faultbox/maps-capture/internal/resolve"
)

var (
	overrides config.Overrides
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "mapscapture",
	Short:         "Extract 3D map tiles from frame captures",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(overrides)
		if err != nil {
			return err
		}
		return logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
	},
}

func init() {
	overrides.Bind(rootCmd.PersistentFlags())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if err != nil {
		logger.Error("command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if code != replay.ExitFailure {
			fmt.Fprintf(os.Stderr, "\n%s\n", replay.Describe(code))
		}
	}
	logger.Sync()
	os.Exit(code)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, classify.ErrNoRelevantDrawCalls) || errors.Is(err, resolve.ErrUnrecognizedUniformSet) {
		return replay.ExitCaptureNotRecognized
	}
	return replay.ExitCode(err)
}
