package replay

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/maps-capture/internal/capture"
	"github.com/Faultbox/maps-capture/internal/logger"
)

// View is a pipeline state bound to the cursor position it was read at.
// It stops being usable as soon as the session moves to another event.
type View struct {
	*PipelineState
	EventID    uint32
	generation uint64
}

// Session owns a Controller for the lifetime of one capture. It is not safe
// for concurrent use: the host has a single cursor.
type Session struct {
	ctrl       Controller
	path       string
	cursor     uint32
	positioned bool
	generation uint64
	closed     bool
}

// NewSession wraps an already opened controller. Close must be called.
func NewSession(ctrl Controller, path string) *Session {
	return &Session{ctrl: ctrl, path: path}
}

// Path returns the capture path the session was opened from.
func (s *Session) Path() string {
	return s.path
}

// Close shuts the host down. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.ctrl.Shutdown()
	logger.Debug("replay session closed", zap.String("capture", s.path))
	return nil
}

// RootActions returns the top level of the event tree.
func (s *Session) RootActions() ([]capture.Event, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.ctrl.RootActions()
}

// SetFrameEvent moves the cursor, invalidating every outstanding View.
func (s *Session) SetFrameEvent(eventID uint32) error {
	if s.closed {
		return ErrClosed
	}
	s.generation++
	if err := s.ctrl.SetFrameEvent(eventID); err != nil {
		s.positioned = false
		return fmt.Errorf("setting frame event %d: %w", eventID, err)
	}
	s.cursor = eventID
	s.positioned = true
	return nil
}

// Cursor returns the current event and whether the cursor was ever placed.
func (s *Session) Cursor() (uint32, bool) {
	return s.cursor, s.positioned
}

// PipelineState reads the pipeline state at the cursor.
func (s *Session) PipelineState() (*View, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if !s.positioned {
		return nil, ErrNotPositioned
	}
	state, err := s.ctrl.PipelineState()
	if err != nil {
		return nil, fmt.Errorf("reading pipeline state at event %d: %w", s.cursor, err)
	}
	return &View{PipelineState: state, EventID: s.cursor, generation: s.generation}, nil
}

// BufferData reads buffer bytes at the cursor.
func (s *Session) BufferData(id ResourceID, offset, length uint64) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.ctrl.BufferData(id, offset, length)
}

// ConstantBlockContents reads one constant block through a fresh view.
func (s *Session) ConstantBlockContents(v *View, stage Stage, block ConstantBlock) ([]ShaderVariable, error) {
	if err := s.checkView(v); err != nil {
		return nil, err
	}
	return s.ctrl.ConstantBlockContents(stage, block)
}

// SaveTexture exports a texture through a fresh view.
func (s *Session) SaveTexture(v *View, save TextureSave, path string) error {
	if err := s.checkView(v); err != nil {
		return err
	}
	return s.ctrl.SaveTexture(save, path)
}

func (s *Session) checkView(v *View) error {
	if s.closed {
		return ErrClosed
	}
	if v == nil || v.generation != s.generation {
		return ErrStaleState
	}
	return nil
}
