package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/maps-capture/internal/logger"
)

// Options configures how captures are opened.
type Options struct {
	// BridgeCommand converts native .rdc captures into snapshot directories.
	BridgeCommand string
	BridgeArgs    []string
	// WorkDir is where bridge output goes; empty means next to the capture.
	WorkDir string
}

// Open acquires a replay session for path. Snapshot directories (or their
// manifest file) are replayed directly; any other file is handed to the
// capture bridge. The returned session must be closed.
func Open(ctx context.Context, path string, opts Options) (*Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	var ctrl Controller
	switch {
	case info.IsDir():
		ctrl, err = openSnapshot(path)
	case strings.EqualFold(filepath.Base(path), ManifestName):
		ctrl, err = openSnapshot(filepath.Dir(path))
	default:
		ctrl, err = openBridge(ctx, path, opts)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("capture opened", zap.String("capture", path))
	return NewSession(ctrl, path), nil
}

func openSnapshot(dir string) (Controller, error) {
	if !isSnapshotDir(dir) {
		return nil, fmt.Errorf("%w: %s has no %s", ErrOpenFailed, dir, ManifestName)
	}
	snap, err := LoadSnapshot(dir)
	if err != nil {
		return nil, err
	}
	return NewSnapshotController(snap), nil
}
