// Package session persists the reference matrix shared by every capture
// imported into the same scene.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/maps-capture/internal/logger"
	"github.com/Faultbox/maps-capture/internal/resolve"
	"github.com/Faultbox/maps-capture/pkg/math"
)

// State is the persisted session state.
type State struct {
	// RefMatrix is column-major, like math.Mat4.
	RefMatrix [16]float32 `yaml:"ref_matrix,flow"`
	Valid     bool        `yaml:"ref_matrix_valid"`
}

// Store is a State bound to the file it lives in.
type Store struct {
	path  string
	state State
}

// Load reads the state at path. A missing file is an empty session.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session state: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parsing session state %s: %w", path, err)
	}
	return s, nil
}

// State returns a copy of the current state.
func (s *Store) State() State {
	return s.state
}

// Reference returns the persisted reference matrix, if any.
func (s *Store) Reference() (math.Mat4, bool) {
	return math.Mat4(s.state.RefMatrix), s.state.Valid
}

// Resolver returns a resolver seeded with the persisted reference.
func (s *Store) Resolver() *resolve.Resolver {
	if ref, ok := s.Reference(); ok {
		return resolve.NewSeededResolver(ref)
	}
	return resolve.NewResolver()
}

// Commit records the resolver's reference matrix the first time one is
// available. A valid persisted reference is never replaced.
func (s *Store) Commit(r *resolve.Resolver) error {
	if s.state.Valid {
		return nil
	}
	ref, ok := r.Reference()
	if !ok {
		return nil
	}
	s.state = State{RefMatrix: [16]float32(ref), Valid: true}
	logger.Debug("reference matrix committed", zap.String("path", s.path))
	return s.Save()
}

// Reset forgets the reference matrix.
func (s *Store) Reset() error {
	s.state = State{}
	return s.Save()
}

// Save writes the state to its file. A store without a path is kept in
// memory only.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	return nil
}
