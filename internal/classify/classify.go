// Package classify finds the draw calls that render map tiles in a captured
// frame and tells which renderer family produced them.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/maps-capture/internal/capture"
	"github.com/Faultbox/maps-capture/internal/logger"
	"github.com/Faultbox/maps-capture/internal/uniforms"
)

// ErrNoRelevantDrawCalls means no strategy matched the capture.
var ErrNoRelevantDrawCalls = errors.New("no relevant draw calls found")

// NoRelevantDrawCallsError carries the last uniform block inspected while
// classifying, which is usually what tells a new renderer revision apart.
type NoRelevantDrawCallsError struct {
	Events  int
	Globals uniforms.Block
}

func (e *NoRelevantDrawCallsError) Error() string {
	return fmt.Sprintf("%s among %d events", ErrNoRelevantDrawCalls, e.Events)
}

func (e *NoRelevantDrawCallsError) Unwrap() error {
	return ErrNoRelevantDrawCalls
}

// UniformProbe looks up the uniforms a draw call exposes.
type UniformProbe interface {
	HasUniform(eventID uint32, name string) bool
	LastGlobals() uniforms.Block
}

// Result is the outcome of a successful classification.
type Result struct {
	Draws    []capture.Event
	Variant  capture.Variant
	Strategy int
	// Start is the offset in the event list the batch search began at.
	Start int
}

// StrategyName returns the name of the strategy that matched.
func (r Result) StrategyName() string {
	return Strategies[r.Strategy].Name
}

// Classify tries every strategy in order on a flattened event list.
func Classify(events []capture.Event, probe UniformProbe) (Result, error) {
	for i, s := range Strategies {
		draws, start, ok := s.match(events, probe)
		if !ok {
			continue
		}
		logger.Info("classified capture",
			zap.Int("strategy", i),
			zap.String("name", s.Name),
			zap.String("variant", string(s.Variant)),
			zap.Int("draws", len(draws)),
			zap.Int("start", start))
		return Result{Draws: draws, Variant: s.Variant, Strategy: i, Start: start}, nil
	}
	return Result{}, &NoRelevantDrawCallsError{Events: len(events), Globals: probe.LastGlobals()}
}

func (s Strategy) match(events []capture.Event, probe UniformProbe) ([]capture.Event, int, bool) {
	start := 0
	if s.Rescan != "" {
		var ok bool
		if start, ok = s.rescan(events, probe); !ok {
			return nil, 0, false
		}
	}

	logger.Debug("trying strategy", zap.String("name", s.Name), zap.Int("from", start))
	batch, _ := s.findBatch(events[start:])
	if len(batch) == 0 {
		return nil, 0, false
	}
	if s.Probe != "" && !probe.HasUniform(batch[0].EventID, s.Probe) {
		return nil, 0, false
	}
	if s.Filter != "" {
		kept := batch[:0:0]
		for _, ev := range batch {
			if probe.HasUniform(ev.EventID, s.Filter) {
				kept = append(kept, ev)
			}
		}
		if len(kept) == 0 {
			return nil, 0, false
		}
		batch = kept
	}
	return batch, start, true
}

// rescan skips whole batches until one starts with a draw call exposing
// s.Rescan, or no batch is left, and returns where that batch search starts.
func (s Strategy) rescan(events []capture.Event, probe UniformProbe) (int, bool) {
	start := 0
	for {
		skipped, next := s.findBatch(events[start:])
		if len(skipped) == 0 || probe.HasUniform(skipped[0].EventID, s.Rescan) {
			return start, true
		}
		if next == 0 {
			// Searching again from the same offset would find the same batch
			return 0, false
		}
		start += next
	}
}

// findBatch collects the draw calls of the first batch in events. It also
// returns the index where the scan stopped: the closing event, or the last
// event when the batch ran to the end.
func (s Strategy) findBatch(events []capture.Event) ([]capture.Event, int) {
	var batch []capture.Event
	started := false
	stop := 0
	for i, ev := range events {
		stop = i
		switch {
		case started:
			if strings.HasPrefix(ev.Name, s.DrawPrefix) {
				batch = append(batch, ev)
				continue
			}
			if strings.HasPrefix(ev.Name, s.Last) && len(batch) > 0 {
				return batch, stop
			}
			logger.Debug("skipping event", zap.String("name", ev.Name), zap.Uint32("event", ev.EventID))
		case strings.HasPrefix(ev.Name, s.First):
			started = true
			if strings.HasPrefix(ev.Name, s.DrawPrefix) {
				batch = append(batch, ev)
			}
		default:
			logger.Debug("not relevant yet", zap.String("name", ev.Name), zap.Uint32("event", ev.EventID))
		}
	}
	return batch, stop
}
