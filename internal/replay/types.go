// Package replay defines the narrow contract with a capture-replay host and
// the scoped session that guards its single movable cursor.
package replay

import (
	"fmt"
	"strings"

	"github.com/Faultbox/maps-capture/internal/capture"
	"github.com/Faultbox/maps-capture/pkg/gpuformat"
)

// ResourceID identifies a GPU resource inside a capture. Zero is the null
// resource.
type ResourceID uint64

// NullResource is the absent resource.
const NullResource ResourceID = 0

// Stage is a shader stage.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
)

// String returns the lowercase stage name used in snapshot manifests.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("stage(%d)", s)
	}
}

// BoundBuffer is a buffer binding: where raw bytes live, not the bytes.
type BoundBuffer struct {
	Resource   ResourceID `yaml:"resource"`
	ByteOffset uint64     `yaml:"byte_offset,omitempty"`
	ByteStride uint32     `yaml:"byte_stride,omitempty"`
}

// VertexInput is one vertex attribute slot of the input assembler.
type VertexInput struct {
	Name         string                 `yaml:"name"`
	VertexBuffer int                    `yaml:"vertex_buffer"`
	ByteOffset   uint32                 `yaml:"byte_offset,omitempty"`
	PerInstance  bool                   `yaml:"per_instance,omitempty"`
	Format       gpuformat.VertexFormat `yaml:"format"`
}

// ConstantBlock is the reflection of one shader constant block.
type ConstantBlock struct {
	Name      string `yaml:"name"`
	BindPoint int    `yaml:"bind_point"`
}

// StageState is the per-stage part of a pipeline state.
type StageState struct {
	ConstantBlocks []ConstantBlock `yaml:"constant_blocks,omitempty"`
	// Samplers lists the bind slot of every sampler used by the stage.
	Samplers []int `yaml:"samplers,omitempty"`
	// ReadOnlyResources lists, per bind slot, the bound resources.
	ReadOnlyResources [][]ResourceID `yaml:"read_only_resources,omitempty"`
}

// PipelineState is the host's view of the pipeline at the current event.
type PipelineState struct {
	Topology      capture.Topology `yaml:"topology"`
	IndexBuffer   BoundBuffer      `yaml:"index_buffer"`
	VertexBuffers []BoundBuffer    `yaml:"vertex_buffers"`
	VertexInputs  []VertexInput    `yaml:"vertex_inputs"`
	Vertex        StageState       `yaml:"vertex"`
	Fragment      StageState       `yaml:"fragment"`
}

// Stage returns the state of one shader stage.
func (p *PipelineState) Stage(s Stage) *StageState {
	if s == StageFragment {
		return &p.Fragment
	}
	return &p.Vertex
}

// VarType is the base type of a shader variable.
type VarType uint8

const (
	VarFloat VarType = iota
	VarInt
	VarUInt
	VarDouble
	VarBool
)

var varTypeNames = [...]string{
	VarFloat:  "float",
	VarInt:    "int",
	VarUInt:   "uint",
	VarDouble: "double",
	VarBool:   "bool",
}

// String returns the lowercase type name.
func (t VarType) String() string {
	if int(t) < len(varTypeNames) {
		return varTypeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

// MarshalText implements encoding.TextMarshaler.
func (t VarType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *VarType) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range varTypeNames {
		if n == name {
			*t = VarType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown variable type %q", text)
}

// ShaderVariable is the value of one reflected constant, as read from the
// backing buffer.
type ShaderVariable struct {
	Name    string           `yaml:"name"`
	Type    VarType          `yaml:"type"`
	Rows    int              `yaml:"rows"`
	Columns int              `yaml:"columns"`
	Values  []float64        `yaml:"values,omitempty,flow"`
	Members []ShaderVariable `yaml:"members,omitempty"`
}

// AlphaMapping selects how alpha is handled when saving a texture.
type AlphaMapping uint8

const (
	AlphaPreserve AlphaMapping = iota
	AlphaDiscard
)

// TextureSave describes a texture export request.
type TextureSave struct {
	Resource ResourceID
	Mip      int
	Slice    int
	Alpha    AlphaMapping
}

// Controller is the replay host. Implementations hold a single cursor:
// SetFrameEvent invalidates previously returned pipeline states.
type Controller interface {
	// RootActions returns the top level of the captured event tree.
	RootActions() ([]capture.Event, error)
	// SetFrameEvent moves the replay cursor to an event.
	SetFrameEvent(eventID uint32) error
	// PipelineState returns the pipeline state at the cursor.
	PipelineState() (*PipelineState, error)
	// BufferData returns length bytes of a buffer starting at offset.
	// A length of 0 reads to the end of the buffer.
	BufferData(id ResourceID, offset, length uint64) ([]byte, error)
	// ConstantBlockContents reads the variables of a constant block at the
	// cursor.
	ConstantBlockContents(stage Stage, block ConstantBlock) ([]ShaderVariable, error)
	// SaveTexture writes a texture to path as PNG.
	SaveTexture(save TextureSave, path string) error
	// Shutdown releases the host.
	Shutdown()
}
