package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/maps-capture/internal/logger"
	"github.com/Faultbox/maps-capture/internal/workdir"
)

// openBridge dumps a native capture file to a snapshot directory by running
// the external bridge command, then replays the snapshot. The bridge is
// invoked as:
//
//	<command> <args...> <capture path> <output dir>
//
// and reports failures through the exit codes declared in this package.
func openBridge(ctx context.Context, path string, opts Options) (Controller, error) {
	if opts.BridgeCommand == "" {
		return nil, fmt.Errorf("%w: no bridge command configured", ErrModuleMissing)
	}
	bin, err := exec.LookPath(opts.BridgeCommand)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModuleMissing, err)
	}

	out, err := workdir.Make(opts.WorkDir, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReplayInit, err)
	}

	args := append(append([]string{}, opts.BridgeArgs...), path, out.Path)
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	logger.Debug("running capture bridge",
		zap.String("command", bin),
		zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		out.Remove()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.Exited() {
			return nil, fmt.Errorf("%w: bridge exited with code %d: %s",
				ErrorForExitCode(exitErr.ExitCode()), exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w: running bridge: %v", ErrModuleUnloadable, err)
	}

	snap, err := LoadSnapshot(out.Path)
	if err != nil {
		out.Remove()
		return nil, err
	}

	ctrl := NewSnapshotController(snap).(*snapshotController)
	ctrl.cleanup = func() {
		if err := out.Remove(); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove bridge output", zap.String("dir", out.Path), zap.Error(err))
		}
	}
	return ctrl, nil
}
