package uniforms

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/maps-capture/internal/capture"
	"github.com/Faultbox/maps-capture/internal/replay"
	"github.com/Faultbox/maps-capture/internal/replay/replaytest"
)

func sessionWithVariables(t *testing.T, vars ...replay.ShaderVariable) *replay.Session {
	t.Helper()
	snap := replaytest.New().Marker(1, "Clear").Snapshot()
	snap.Actions = append(snap.Actions, capture.Event{Name: "DrawIndexed(3)", EventID: 2})
	snap.Events[2] = &replay.EventState{
		State: replay.PipelineState{
			Topology: capture.TriangleList,
			Vertex:   replay.StageState{ConstantBlocks: []replay.ConstantBlock{{Name: GlobalsBlock}}},
		},
		Constants: map[string]map[string][]replay.ShaderVariable{
			"vertex": {GlobalsBlock: vars},
		},
	}
	s := replay.NewSession(replay.NewSnapshotController(snap), "test")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExtract(t *testing.T) {
	s := sessionWithVariables(t,
		replaytest.Variable("_w", 0, 0, 1, 1),
		replay.ShaderVariable{Name: "_count", Type: replay.VarInt, Rows: 1, Columns: 1, Values: []float64{7}},
		replay.ShaderVariable{
			Name: "_lights",
			Type: replay.VarFloat,
			Members: []replay.ShaderVariable{
				replaytest.Variable("", 1, 2),
				replaytest.Variable("", 3, 4),
			},
		},
		replay.ShaderVariable{Name: "_flag", Type: replay.VarBool, Rows: 1, Columns: 1, Values: []float64{1}},
	)

	set, err := Extract(s, 2)
	require.NoError(t, err)

	g := set.Globals()
	require.NotNil(t, g)
	assert.Equal(t, []float64{0, 0, 1, 1}, g["_w"].Data)
	assert.Equal(t, []float64{7}, g["_count"].Data)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, g["_lights"].Members)
	assert.False(t, g.Has("_flag"), "unsupported types are omitted")

	cur, ok := s.Cursor()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), cur)
}

func TestExtract_TruncatesToShape(t *testing.T) {
	s := sessionWithVariables(t, replay.ShaderVariable{
		Name: "_v", Type: replay.VarFloat, Rows: 1, Columns: 2, Values: []float64{1, 2, 3, 4},
	})

	set, err := Extract(s, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, set.Globals()["_v"].Data)
}

func TestExtractState_StaleView(t *testing.T) {
	s := sessionWithVariables(t, replaytest.Variable("_w", 1))

	require.NoError(t, s.SetFrameEvent(2))
	view, err := s.PipelineState()
	require.NoError(t, err)
	require.NoError(t, s.SetFrameEvent(1))

	_, err = ExtractState(s, view)
	assert.ErrorIs(t, err, replay.ErrStaleState)
}

func TestExtract_EventWithoutConstants(t *testing.T) {
	s := sessionWithVariables(t)

	set, err := Extract(s, 1)
	require.NoError(t, err)
	assert.Nil(t, set.Globals())
	assert.False(t, set.Globals().Has("_w"))
}

func TestWithDrawCall(t *testing.T) {
	set := Set{GlobalsBlock: Block{"_w": {Data: []float64{1}}}}
	out := set.WithDrawCall(capture.TriangleStrip, capture.VariantGoogleEarth)

	assert.NotContains(t, set, DrawCallBlock, "the input set is not modified")
	topo, variant, err := out.DrawCall()
	require.NoError(t, err)
	assert.Equal(t, capture.TriangleStrip, topo)
	assert.Equal(t, capture.VariantGoogleEarth, variant)
	assert.Equal(t, "TRIANGLE_STRIP", out[DrawCallBlock][TopologyKey].Text)

	_, _, err = set.DrawCall()
	assert.Error(t, err)
}

func TestWriteRead(t *testing.T) {
	set := Set{
		GlobalsBlock: Block{
			"_s":      {Data: replaytest.Identity()},
			"_w":      {Data: []float64{0.25, -1.5, 1e-7, 3}},
			"_lights": {Members: [][]float64{{1, 2}, {3, 4, 5}}},
		},
	}.WithDrawCall(capture.TriangleList, capture.VariantGoogleMaps)

	path := filepath.Join(t.TempDir(), "00000-constants.bin")
	require.NoError(t, Write(path, set))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, set, got)
}

func TestBlockNamesAndString(t *testing.T) {
	b := Block{"_b": {Data: []float64{1}}, "_a": {Text: "x"}}
	assert.Equal(t, []string{"_a", "_b"}, b.Names())
	assert.Equal(t, "  _a: x\n  _b: [1]\n", b.String())
}

func TestProber(t *testing.T) {
	s := sessionWithVariables(t, replaytest.Variable("_uMV", replaytest.Identity()...))
	p := NewProber(s)

	assert.True(t, p.HasUniform(2, "_uMV"))
	assert.False(t, p.HasUniform(2, "_w"))
	assert.True(t, p.LastGlobals().Has("_uMV"))

	assert.False(t, p.HasUniform(1, "_uMV"))
	assert.Nil(t, p.LastGlobals())

	assert.False(t, p.HasUniform(99, "_uMV"), "unknown events have no uniforms")
}
