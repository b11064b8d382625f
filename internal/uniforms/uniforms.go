// Package uniforms reads shader constant blocks from the replay host into
// name-keyed numeric values.
package uniforms

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/maps-capture/internal/capture"
	"github.com/Faultbox/maps-capture/internal/logger"
	"github.com/Faultbox/maps-capture/internal/replay"
)

// Block names with a fixed meaning.
const (
	GlobalsBlock  = "$Globals"
	DrawCallBlock = "DrawCall"
)

// Keys of the synthetic DrawCall block.
const (
	TopologyKey = "topology"
	VariantKey  = "type"
)

// ErrUnsupportedType is logged for variables of a type that is not read.
var ErrUnsupportedType = errors.New("unsupported variable type")

// Value is a variable's contents. Plain variables fill Data with their
// components, row by row; arrays and structs fill Members with one entry
// per member. Text is only used by the synthetic DrawCall block.
type Value struct {
	Data    []float64
	Members [][]float64
	Text    string
}

// Block maps variable names to values.
type Block map[string]Value

// Has reports whether the block declares a variable.
func (b Block) Has(name string) bool {
	_, ok := b[name]
	return ok
}

// Floats returns a variable's data.
func (b Block) Floats(name string) ([]float64, bool) {
	v, ok := b[name]
	return v.Data, ok
}

// Names returns the variable names in sorted order.
func (b Block) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// String lists every variable on its own line, for diagnostics.
func (b Block) String() string {
	var sb strings.Builder
	for _, name := range b.Names() {
		v := b[name]
		switch {
		case v.Text != "":
			fmt.Fprintf(&sb, "  %s: %s\n", name, v.Text)
		case v.Members != nil:
			fmt.Fprintf(&sb, "  %s: %v\n", name, v.Members)
		default:
			fmt.Fprintf(&sb, "  %s: %v\n", name, v.Data)
		}
	}
	return sb.String()
}

// Set maps block names to blocks.
type Set map[string]Block

// Globals returns the $Globals block, or nil.
func (s Set) Globals() Block {
	return s[GlobalsBlock]
}

// WithDrawCall returns a copy of the set with the synthetic DrawCall block
// describing how the draw was issued and which variant it came from.
func (s Set) WithDrawCall(topology capture.Topology, variant capture.Variant) Set {
	out := make(Set, len(s)+1)
	for name, b := range s {
		out[name] = b
	}
	out[DrawCallBlock] = Block{
		TopologyKey: {Text: topology.String()},
		VariantKey:  {Text: string(variant)},
	}
	return out
}

// DrawCall reads back the synthetic DrawCall block.
func (s Set) DrawCall() (capture.Topology, capture.Variant, error) {
	b, ok := s[DrawCallBlock]
	if !ok {
		return 0, "", fmt.Errorf("no %s block", DrawCallBlock)
	}
	var topology capture.Topology
	if err := topology.UnmarshalText([]byte(b[TopologyKey].Text)); err != nil {
		return 0, "", err
	}
	return topology, capture.Variant(b[VariantKey].Text), nil
}

// Extract positions the session at an event and reads its vertex-stage
// constants.
func Extract(s *replay.Session, eventID uint32) (Set, error) {
	if err := s.SetFrameEvent(eventID); err != nil {
		return nil, err
	}
	view, err := s.PipelineState()
	if err != nil {
		return nil, err
	}
	return ExtractState(s, view)
}

// ExtractState reads vertex-stage constants through an already fetched
// pipeline state, without moving the cursor.
func ExtractState(s *replay.Session, view *replay.View) (Set, error) {
	set := make(Set)
	for _, cb := range view.Vertex.ConstantBlocks {
		vars, err := s.ConstantBlockContents(view, replay.StageVertex, cb)
		if err != nil {
			return nil, fmt.Errorf("reading constant block %q: %w", cb.Name, err)
		}
		block := make(Block, len(vars))
		for _, v := range vars {
			val, err := convert(v)
			if err != nil {
				logger.Warn("skipping shader variable",
					zap.Uint32("event", view.EventID),
					zap.String("block", cb.Name),
					zap.String("variable", v.Name),
					zap.Error(err))
				continue
			}
			block[v.Name] = val
		}
		set[cb.Name] = block
	}
	return set, nil
}

func convert(v replay.ShaderVariable) (Value, error) {
	if len(v.Members) > 0 {
		members := make([][]float64, len(v.Members))
		for i, m := range v.Members {
			data, err := components(m)
			if err != nil {
				// Keep member positions stable; an unreadable member stays empty
				logger.Debug("unreadable member", zap.String("variable", v.Name), zap.Int("member", i), zap.Error(err))
				continue
			}
			members[i] = data
		}
		return Value{Members: members}, nil
	}
	data, err := components(v)
	if err != nil {
		return Value{}, err
	}
	return Value{Data: data}, nil
}

func components(v replay.ShaderVariable) ([]float64, error) {
	switch v.Type {
	case replay.VarFloat, replay.VarInt:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, v.Type)
	}
	n := v.Rows * v.Columns
	if n > len(v.Values) || n <= 0 {
		n = len(v.Values)
	}
	return slices.Clone(v.Values[:n]), nil
}
