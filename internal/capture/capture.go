// Package capture holds the replay-independent view of a captured frame:
// the event tree, draw call parameters and primitive topology.
package capture

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// Topology is the primitive assembly mode of a draw call.
type Topology gputypes.PrimitiveTopology

const (
	TriangleList  = Topology(gputypes.PrimitiveTopologyTriangleList)
	TriangleStrip = Topology(gputypes.PrimitiveTopologyTriangleStrip)
)

// String returns the name stored in the constants file.
func (t Topology) String() string {
	switch t {
	case TriangleStrip:
		return "TRIANGLE_STRIP"
	case TriangleList:
		return "TRIANGLES"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// GPU returns the WebGPU topology value.
func (t Topology) GPU() gputypes.PrimitiveTopology {
	return gputypes.PrimitiveTopology(t)
}

// MarshalText implements encoding.TextMarshaler.
func (t Topology) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Topology) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "TRIANGLE_STRIP", "TRIANGLESTRIP":
		*t = TriangleStrip
	case "TRIANGLES", "TRIANGLE_LIST", "TRIANGLELIST":
		*t = TriangleList
	default:
		return fmt.Errorf("unknown topology %q", text)
	}
	return nil
}

// DrawParams are the arguments the replay host records with a draw action.
type DrawParams struct {
	NumIndices     uint32 `yaml:"num_indices"`
	BaseVertex     int32  `yaml:"base_vertex,omitempty"`
	IndexOffset    uint32 `yaml:"index_offset,omitempty"`
	IndexByteWidth uint32 `yaml:"index_byte_width,omitempty"`
	Indexed        bool   `yaml:"indexed,omitempty"`
}

// Event is one captured action. Events form a tree in the raw capture.
type Event struct {
	Name     string     `yaml:"name"`
	EventID  uint32     `yaml:"event_id"`
	Draw     DrawParams `yaml:"draw,omitempty"`
	Children []Event    `yaml:"children,omitempty"`
}

// DrawCall is a draw event together with the topology it was issued with.
type DrawCall struct {
	EventID        uint32
	Name           string
	BaseVertex     int32
	IndexOffset    uint32
	NumIndices     uint32
	IndexByteWidth uint32
	Indexed        bool
	Topology       Topology
}

// DrawCall combines the event's draw parameters with a topology read from
// the pipeline state at that event.
func (e Event) DrawCall(topology Topology) DrawCall {
	return DrawCall{
		EventID:        e.EventID,
		Name:           e.Name,
		BaseVertex:     e.Draw.BaseVertex,
		IndexOffset:    e.Draw.IndexOffset,
		NumIndices:     e.Draw.NumIndices,
		IndexByteWidth: e.Draw.IndexByteWidth,
		Indexed:        e.Draw.Indexed,
		Topology:       topology,
	}
}

// Flatten walks the event tree depth first, parents before children, and
// returns every event with its namespace prefix ("ID3D11DeviceContext::")
// removed. The returned events carry no children.
func Flatten(roots []Event) []Event {
	return flatten(roots, nil)
}

func flatten(roots []Event, acc []Event) []Event {
	for _, root := range roots {
		ev := root
		ev.Name = stripNamespace(root.Name)
		ev.Children = nil
		acc = append(acc, ev)
		acc = flatten(root.Children, acc)
	}
	return acc
}

func stripNamespace(name string) string {
	if _, rest, ok := strings.Cut(name, "::"); ok {
		return rest
	}
	return name
}

// Variant is the renderer or site family a capture was recorded from.
type Variant string

const (
	VariantNone        Variant = "none"
	VariantGoogleMaps  Variant = "Google Maps"
	VariantGoogleEarth Variant = "Google Earth"
	VariantMapyCZ      Variant = "Mapy CZ"
)
