// Package mesh turns a draw call's vertex input bindings into index and
// attribute arrays.
package mesh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/Faultbox/maps-capture/internal/capture"
	"github.com/Faultbox/maps-capture/internal/replay"
	"github.com/Faultbox/maps-capture/pkg/gpuformat"
)

// Mesh errors.
var (
	ErrPerInstance      = errors.New("per-instance attributes are not supported")
	ErrNoVertexBuffer   = errors.New("vertex input refers to an unbound vertex buffer")
	ErrTruncatedIndices = errors.New("index buffer shorter than the draw call")
)

// BufferReader is the slice of the replay host that reads buffer bytes.
type BufferReader interface {
	BufferData(id replay.ResourceID, offset, length uint64) ([]byte, error)
}

// Attribute is one vertex input of one draw call, with everything needed to
// locate its indices and per-vertex data.
type Attribute struct {
	Name string

	IndexResource   replay.ResourceID
	IndexByteOffset uint64
	IndexByteWidth  uint32

	VertexResource   replay.ResourceID
	VertexByteOffset uint64
	VertexByteStride uint32

	Format gpuformat.VertexFormat
	Draw   capture.DrawCall
}

// Build combines a vertex input with the buffers bound at its draw call.
// A draw that is not indexed ignores any bound index buffer.
func Build(input replay.VertexInput, ib replay.BoundBuffer, vbs []replay.BoundBuffer, dc capture.DrawCall) (Attribute, error) {
	if input.PerInstance {
		return Attribute{}, fmt.Errorf("%w: %s", ErrPerInstance, input.Name)
	}
	if input.VertexBuffer < 0 || input.VertexBuffer >= len(vbs) {
		return Attribute{}, fmt.Errorf("%w: %s uses slot %d, %d bound",
			ErrNoVertexBuffer, input.Name, input.VertexBuffer, len(vbs))
	}
	vb := vbs[input.VertexBuffer]

	a := Attribute{
		Name:             input.Name,
		IndexResource:    ib.Resource,
		IndexByteOffset:  ib.ByteOffset,
		IndexByteWidth:   dc.IndexByteWidth,
		VertexResource:   vb.Resource,
		VertexByteOffset: uint64(input.ByteOffset) + vb.ByteOffset,
		VertexByteStride: vb.ByteStride,
		Format:           input.Format,
		Draw:             dc,
	}
	if !dc.Indexed {
		a.IndexResource = replay.NullResource
	}
	return a, nil
}

// BuildAll builds one attribute per vertex input of a pipeline state.
func BuildAll(state *replay.PipelineState, dc capture.DrawCall) ([]Attribute, error) {
	attrs := make([]Attribute, 0, len(state.VertexInputs))
	for _, input := range state.VertexInputs {
		a, err := Build(input, state.IndexBuffer, state.VertexBuffers, dc)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

// Indexed reports whether indices come from an index buffer.
func (a Attribute) Indexed() bool {
	return a.IndexResource != replay.NullResource
}

// FetchIndices returns the absolute vertex indices of the draw call.
func (a Attribute) FetchIndices(r BufferReader) ([]uint32, error) {
	if !a.Indexed() {
		return vertexRange(a.Draw.BaseVertex, a.Draw.NumIndices), nil
	}
	raw, err := r.BufferData(a.IndexResource, a.IndexByteOffset, 0)
	if err != nil {
		return nil, fmt.Errorf("reading index buffer: %w", err)
	}
	return a.DecodeIndices(raw)
}

// DecodeIndices decodes indices from the bytes of the index buffer starting
// at its bound byte offset. Widths other than 2 and 4 are read as bytes.
func (a Attribute) DecodeIndices(raw []byte) ([]uint32, error) {
	width := int(a.IndexByteWidth)
	if width != 2 && width != 4 {
		width = 1
	}
	start := int(a.Draw.IndexOffset) * width
	n := int(a.Draw.NumIndices)
	if start+n*width > len(raw) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedIndices, start+n*width, len(raw))
	}

	base := uint32(a.Draw.BaseVertex)
	out := make([]uint32, n)
	for i := range out {
		p := raw[start+i*width:]
		var v uint32
		switch width {
		case 4:
			v = binary.LittleEndian.Uint32(p)
		case 2:
			v = uint32(binary.LittleEndian.Uint16(p))
		default:
			v = uint32(p[0])
		}
		out[i] = v + base
	}
	return out, nil
}

// FetchVertexBytes copies the vertex buffer from the attribute's offset to
// the end of the buffer.
func (a Attribute) FetchVertexBytes(r BufferReader) ([]byte, error) {
	raw, err := r.BufferData(a.VertexResource, a.VertexByteOffset, 0)
	if err != nil {
		return nil, fmt.Errorf("reading vertex buffer: %w", err)
	}
	return raw, nil
}

// FetchData reads and decodes the attribute for every vertex up to the
// largest index.
func (a Attribute) FetchData(r BufferReader, indices []uint32) ([][]float64, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	raw, err := a.FetchVertexBytes(r)
	if err != nil {
		return nil, err
	}
	return a.DecodeData(raw, indices)
}

// DecodeData decodes max(indices)+1 elements from vertex bytes fetched with
// FetchVertexBytes, so every index addresses its element directly.
func (a Attribute) DecodeData(raw []byte, indices []uint32) ([][]float64, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	count := int(slices.Max(indices)) + 1
	rows, err := gpuformat.DecodeBatch(a.Format, raw, int(a.VertexByteStride), count)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", a.Name, err)
	}
	return rows, nil
}

func vertexRange(base int32, n uint32) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(base) + uint32(i)
	}
	return out
}
