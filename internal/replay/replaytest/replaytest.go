// Package replaytest builds in-memory capture snapshots for tests.
package replaytest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"slices"

	"github.com/Faultbox/maps-capture/internal/capture"
	"github.com/Faultbox/maps-capture/internal/replay"
	"github.com/Faultbox/maps-capture/pkg/gpuformat"
)

// Draw describes one draw call. Positions go to vertex buffer 0 as
// R32G32B32_FLOAT, UVs to vertex buffer 1 as R32G32_FLOAT.
type Draw struct {
	EventID  uint32
	Name     string
	Topology capture.Topology
	// Indices nil means a non-indexed draw over every position from
	// BaseVertex on.
	Indices    []uint32
	BaseVertex int32
	Positions  [][3]float32
	// UVs nil leaves the draw with a single vertex input.
	UVs [][2]float32
	// UVSlot places the UV input at this input index, padding with extra
	// inputs; zero means 1.
	UVSlot int
	// Globals become float variables of the vertex $Globals block.
	Globals map[string][]float64
	// Texture is an encoded image bound to fragment sampler slot 0.
	Texture []byte
}

// Builder assembles a snapshot event by event.
type Builder struct {
	snap   *replay.Snapshot
	nextID replay.ResourceID
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{snap: replay.NewSnapshot(), nextID: 1}
}

// Marker adds a non-draw event such as a clear.
func (b *Builder) Marker(eventID uint32, name string) *Builder {
	b.snap.Actions = append(b.snap.Actions, capture.Event{Name: name, EventID: eventID})
	return b
}

// Draw adds a draw event with its buffers, constants and texture.
func (b *Builder) Draw(d Draw) *Builder {
	ev := capture.Event{Name: d.Name, EventID: d.EventID}
	state := replay.PipelineState{Topology: d.Topology}
	if state.Topology == 0 {
		state.Topology = capture.TriangleList
	}

	posBuf := b.buffer(floats(flatten3(d.Positions)))
	state.VertexBuffers = append(state.VertexBuffers, replay.BoundBuffer{Resource: posBuf, ByteStride: 12})
	posFmt := gpuformat.VertexFormat{CompCount: 3, CompType: gpuformat.CompTypeFloat, CompByteWidth: 4}
	state.VertexInputs = append(state.VertexInputs, replay.VertexInput{Name: "POSITION", VertexBuffer: 0, Format: posFmt})

	if d.UVs != nil {
		slot := d.UVSlot
		if slot == 0 {
			slot = 1
		}
		for len(state.VertexInputs) < slot {
			state.VertexInputs = append(state.VertexInputs, replay.VertexInput{Name: "NORMAL", VertexBuffer: 0, Format: posFmt})
		}
		uvBuf := b.buffer(floats(flatten2(d.UVs)))
		state.VertexBuffers = append(state.VertexBuffers, replay.BoundBuffer{Resource: uvBuf, ByteStride: 8})
		state.VertexInputs = append(state.VertexInputs, replay.VertexInput{
			Name:         "TEXCOORD",
			VertexBuffer: 1,
			Format:       gpuformat.VertexFormat{CompCount: 2, CompType: gpuformat.CompTypeFloat, CompByteWidth: 4},
		})
	}

	if d.Indices != nil {
		width := uint32(2)
		if slices.Max(append([]uint32{0}, d.Indices...)) > math.MaxUint16 {
			width = 4
		}
		state.IndexBuffer = replay.BoundBuffer{Resource: b.buffer(indexBytes(d.Indices, width))}
		ev.Draw = capture.DrawParams{
			NumIndices:     uint32(len(d.Indices)),
			BaseVertex:     d.BaseVertex,
			IndexByteWidth: width,
			Indexed:        true,
		}
	} else {
		ev.Draw = capture.DrawParams{
			NumIndices: uint32(len(d.Positions) - int(d.BaseVertex)),
			BaseVertex: d.BaseVertex,
		}
	}

	es := &replay.EventState{Constants: map[string]map[string][]replay.ShaderVariable{}}
	if d.Globals != nil {
		state.Vertex.ConstantBlocks = []replay.ConstantBlock{{Name: "$Globals"}}
		var vars []replay.ShaderVariable
		for _, name := range sortedKeys(d.Globals) {
			vars = append(vars, Variable(name, d.Globals[name]...))
		}
		es.Constants[replay.StageVertex.String()] = map[string][]replay.ShaderVariable{"$Globals": vars}
	}

	if d.Texture != nil {
		tex := b.nextID
		b.nextID++
		b.snap.TextureData[tex] = d.Texture
		state.Fragment.Samplers = []int{0}
		state.Fragment.ReadOnlyResources = [][]replay.ResourceID{{tex}}
	}

	es.State = state
	b.snap.Events[d.EventID] = es
	b.snap.Actions = append(b.snap.Actions, ev)
	return b
}

// Snapshot returns the snapshot built so far.
func (b *Builder) Snapshot() *replay.Snapshot {
	return b.snap
}

// Session opens a replay session over the snapshot.
func (b *Builder) Session() *replay.Session {
	return replay.NewSession(replay.NewSnapshotController(b.snap), "memory")
}

// Variable builds a float variable; 16 values become a 4x4 matrix.
func Variable(name string, values ...float64) replay.ShaderVariable {
	v := replay.ShaderVariable{Name: name, Type: replay.VarFloat, Rows: 1, Columns: len(values), Values: values}
	if len(values) == 16 {
		v.Rows, v.Columns = 4, 4
	}
	return v
}

// Identity is a flattened 4x4 identity matrix.
func Identity() []float64 {
	return []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// PNG encodes a solid w×h image.
func PNG(w, h int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (b *Builder) buffer(data []byte) replay.ResourceID {
	id := b.nextID
	b.nextID++
	b.snap.BufferData[id] = data
	return id
}

func floats(values []float32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, values)
	return buf.Bytes()
}

func indexBytes(indices []uint32, width uint32) []byte {
	out := make([]byte, int(width)*len(indices))
	for i, v := range indices {
		if width == 2 {
			binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
		} else {
			binary.LittleEndian.PutUint32(out[4*i:], v)
		}
	}
	return out
}

func flatten3(v [][3]float32) []float32 {
	out := make([]float32, 0, 3*len(v))
	for _, p := range v {
		out = append(out, p[:]...)
	}
	return out
}

func flatten2(v [][2]float32) []float32 {
	out := make([]float32, 0, 2*len(v))
	for _, p := range v {
		out = append(out, p[:]...)
	}
	return out
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
