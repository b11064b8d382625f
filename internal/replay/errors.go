package replay

import (
	"errors"
	"fmt"
)

// Host errors.
var (
	ErrModuleMissing     = errors.New("replay module not found")
	ErrModuleUnloadable  = errors.New("replay module found but could not be loaded")
	ErrOpenFailed        = errors.New("cannot open capture file")
	ErrReplayUnsupported = errors.New("capture cannot be replayed locally")
	ErrReplayInit        = errors.New("cannot initialise replay")
	ErrStaleState        = errors.New("pipeline state view is stale")
	ErrNotPositioned     = errors.New("replay cursor was never placed")
	ErrClosed            = errors.New("replay session is closed")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrUnknownResource   = errors.New("unknown resource")
)

// Process exit codes. A parent process maps them to diagnostics with
// Describe.
const (
	ExitOK                   = 0
	ExitCaptureNotRecognized = 1
	ExitFailure              = 2
	ExitModuleMissing        = 20
	ExitModuleUnloadable     = 21
	ExitOpenFailed           = 30
	ExitReplayUnsupported    = 31
	ExitReplayInit           = 32
)

// ExitCode returns the exit code for a host error, ExitOK for nil, and
// ExitFailure for anything it does not recognise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrModuleMissing):
		return ExitModuleMissing
	case errors.Is(err, ErrModuleUnloadable):
		return ExitModuleUnloadable
	case errors.Is(err, ErrOpenFailed):
		return ExitOpenFailed
	case errors.Is(err, ErrReplayUnsupported):
		return ExitReplayUnsupported
	case errors.Is(err, ErrReplayInit):
		return ExitReplayInit
	default:
		return ExitFailure
	}
}

// ErrorForExitCode is the inverse of ExitCode for host codes; it is used
// when a child process reports failure only through its exit status.
func ErrorForExitCode(code int) error {
	switch code {
	case ExitModuleMissing:
		return ErrModuleMissing
	case ExitModuleUnloadable:
		return ErrModuleUnloadable
	case ExitOpenFailed:
		return ErrOpenFailed
	case ExitReplayUnsupported:
		return ErrReplayUnsupported
	default:
		return ErrReplayInit
	}
}

const debugHint = `
Run again with --debug and include the full log when reporting the problem.`

// Describe returns a user-facing explanation of an exit code.
func Describe(code int) string {
	switch code {
	case ExitOK:
		return "ok"
	case ExitCaptureNotRecognized:
		return `The capture was not recognized. Make sure that:
 1. the capture was taken with a supported replay tool version,
 2. it comes from Google Maps, Google Earth or Mapy CZ in a web browser,
 3. the 3D view was moving while the frame was captured.
Try a known-good sample capture before reporting an issue.` + debugHint
	case ExitModuleMissing:
		return "The replay module (capture bridge) could not be found. Check replay.bridge_command." + debugHint
	case ExitModuleUnloadable:
		return "The replay module exists but failed to load; it was probably built for another runtime version." + debugHint
	case ExitOpenFailed:
		return "The capture file could not be opened." + debugHint
	case ExitReplayUnsupported:
		return "The capture cannot be replayed on this machine." + debugHint
	case ExitReplayInit:
		return "Replay could not be initialised; the capture may come from an unsupported replay tool version." + debugHint
	default:
		return fmt.Sprintf("An unknown error occurred (exit code %d).", code) + debugHint
	}
}
