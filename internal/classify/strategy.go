package classify

import "github.com/Faultbox/maps-capture/internal/capture"

// Strategy describes one way of locating the tile draw calls in a frame.
type Strategy struct {
	Name string
	// First opens the batch; empty opens it at the first event.
	First string
	// DrawPrefix selects the draw calls collected into the batch.
	DrawPrefix string
	// Last closes a non-empty batch; empty closes it at the first event
	// that is not a draw call.
	Last    string
	Variant capture.Variant
	// Probe, if set, must be a uniform of the first batched draw call.
	Probe string
	// Rescan, if set, skips leading batches until one whose first draw call
	// exposes this uniform, then searches from there.
	Rescan string
	// Filter, if set, drops batched draw calls lacking this uniform.
	Filter string
}

const (
	glClearBlack = "glClear(Color = <0.000000, 0.000000, 0.000000, 1.000000>"
	glDraws      = "glDrawElements"
	glBlit       = "glDrawArrays(4)"
	d3dDraws     = "DrawIndexed"
)

// Strategies is tried in order; the first strategy producing a validated
// batch wins. The order reflects which capture revisions each entry was
// written for and must not change.
var Strategies = []Strategy{
	{
		Name:       "gl-clear-depth1",
		First:      glClearBlack + ", Depth = <1.000000>)",
		DrawPrefix: glDraws,
		Last:       glBlit,
		Variant:    capture.VariantGoogleMaps,
	},
	{
		Name:       "gl-clear-depth1-stencil",
		First:      glClearBlack + ", Depth = <1.000000>, Stencil = <0x00>)",
		DrawPrefix: glDraws,
		Last:       glBlit,
		Variant:    capture.VariantGoogleMaps,
	},
	{
		Name:       "gl-clear-depth0",
		First:      glClearBlack + ", Depth = <0.000000>)",
		DrawPrefix: glDraws,
		Last:       glBlit,
		Variant:    capture.VariantGoogleMaps,
	},
	{
		Name:       "gl-clear-depth0-stencil",
		First:      glClearBlack + ", Depth = <0.000000>, Stencil = <0x00>)",
		DrawPrefix: glDraws,
		Last:       glBlit,
		Variant:    capture.VariantGoogleMaps,
	},
	{
		Name:       "mapy-cz",
		DrawPrefix: d3dDraws,
		Last:       "ClearDepthStencilView",
		Variant:    capture.VariantMapyCZ,
		Probe:      "_uMV",
	},
	{
		// Google Earth draws two structurally identical batches; the tiles
		// are the one carrying mesh-to-world matrices.
		Name:       "google-earth",
		First:      d3dDraws,
		DrawPrefix: d3dDraws,
		Variant:    capture.VariantGoogleEarth,
		Rescan:     "_uMeshToWorldMatrix",
		Filter:     "_uMeshToWorldMatrix",
	},
	{
		Name:       "google-earth-single",
		First:      d3dDraws,
		DrawPrefix: d3dDraws,
		Variant:    capture.VariantGoogleEarth,
		Probe:      "_uMeshToWorldMatrix",
		Filter:     "_uMeshToWorldMatrix",
	},
	{
		Name:       "d3d-clear-black",
		First:      "ClearRenderTargetView(0.000000, 0.000000, 0.000000",
		DrawPrefix: d3dDraws,
		Last:       "Draw()",
		Variant:    capture.VariantGoogleMaps,
	},
	{
		Name:       "d3d-rescan",
		DrawPrefix: d3dDraws,
		Last:       "Draw()",
		Variant:    capture.VariantGoogleMaps,
		Rescan:     "_w",
	},
}
