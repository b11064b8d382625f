// Package assemble reads the intermediate file set written by the scraper
// back into renderable tiles: vertices, triangles, UVs, a world matrix and
// a texture path.
package assemble

import (
	"errors"
	"fmt"
	gomath "math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/maps-capture/internal/capture"
	"github.com/Faultbox/maps-capture/internal/logger"
	"github.com/Faultbox/maps-capture/internal/mesh"
	"github.com/Faultbox/maps-capture/internal/profiling"
	"github.com/Faultbox/maps-capture/internal/resolve"
	"github.com/Faultbox/maps-capture/internal/scraper"
	"github.com/Faultbox/maps-capture/internal/uniforms"
	"github.com/Faultbox/maps-capture/pkg/math"
	"github.com/Faultbox/maps-capture/pkg/nparray"
)

// DefaultGlobalScale maps capture units to scene units.
const DefaultGlobalScale = 1.0 / 256.0

// ErrMissingParams means a Mapy CZ draw call lacks _uParamsSE.
var ErrMissingParams = errors.New("missing vertex reconstruction parameters")

// DrawCall is the raw content of one file set.
type DrawCall struct {
	ID        int
	Indices   []uint32
	Positions [][]float32
	UVs       [][]float32
	Constants uniforms.Set
	// Texture is the texture file path, empty when the draw call has none.
	Texture string
}

// Tile is a draw call ready to be placed in a scene.
type Tile struct {
	Name      string
	Material  string
	Vertices  [][3]float32
	Triangles [][3]uint32
	UVs       [][2]float32
	Matrix    math.Mat4
	Texture   string
}

// Options controls Import.
type Options struct {
	// MaxBlocks bounds the ids tried; 0 or less tries every id on disk.
	MaxBlocks int
	// GlobalScale multiplies every world matrix; 0 means DefaultGlobalScale.
	GlobalScale float32
	Counters    *profiling.Counters
}

// LoadDrawCall reads the file set of one draw call.
func LoadDrawCall(prefix string, id int) (*DrawCall, error) {
	dc := &DrawCall{ID: id}

	indices, err := nparray.ReadFile(scraper.FileName(prefix, id, scraper.KindIndices))
	if err != nil {
		return nil, err
	}
	if dc.Indices, err = indices.Uint32s(); err != nil {
		return nil, fmt.Errorf("indices of draw call %d: %w", id, err)
	}

	positions, err := nparray.ReadFile(scraper.FileName(prefix, id, scraper.KindPositions))
	if err != nil {
		return nil, err
	}
	if dc.Positions, err = positions.Float32Rows(3); err != nil {
		return nil, fmt.Errorf("positions of draw call %d: %w", id, err)
	}

	uv, err := nparray.ReadFile(scraper.FileName(prefix, id, scraper.KindUV))
	if err != nil {
		return nil, err
	}
	if dc.UVs, err = uv.Float32Rows(2); err != nil {
		return nil, fmt.Errorf("uvs of draw call %d: %w", id, err)
	}

	if dc.Constants, err = uniforms.Read(scraper.FileName(prefix, id, scraper.KindConstants)); err != nil {
		return nil, err
	}

	texture := scraper.FileName(prefix, id, scraper.KindTexture)
	if _, err := os.Stat(texture); err == nil {
		dc.Texture = texture
	}
	return dc, nil
}

// Import assembles every draw call found under prefix. Ids with missing
// files are skipped. The resolver carries the reference matrix across
// captures; unrecognized draw calls are skipped once it is set.
func Import(prefix string, r *resolve.Resolver, opts Options) ([]Tile, error) {
	if opts.GlobalScale == 0 {
		opts.GlobalScale = DefaultGlobalScale
	}
	if opts.Counters == nil {
		opts.Counters = profiling.NewCounters()
	}
	maxBlocks := opts.MaxBlocks
	if maxBlocks <= 0 {
		n, err := countDrawCalls(prefix)
		if err != nil {
			return nil, err
		}
		maxBlocks = n
	}

	var tiles []Tile
	for id := 0; id < maxBlocks; id++ {
		if _, err := os.Stat(scraper.FileName(prefix, id, scraper.KindIndices)); err != nil {
			continue
		}

		timer := profiling.StartTimer()
		dc, err := LoadDrawCall(prefix, id)
		if err != nil {
			logger.Info("skipping draw call", zap.Int("id", id), zap.Error(err))
			continue
		}
		opts.Counters.Get("load").Since(timer)

		timer = profiling.StartTimer()
		tile, ok, err := Assemble(dc, r, opts.GlobalScale)
		if err != nil {
			var unrecognized *resolve.UnrecognizedUniformSetError
			if errors.As(err, &unrecognized) {
				return tiles, err
			}
			logger.Info("skipping draw call", zap.Int("id", id), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		opts.Counters.Get("assemble").Since(timer)
		tiles = append(tiles, tile)
	}

	opts.Counters.Log()
	return tiles, nil
}

// Assemble resolves a draw call's transform and post-processes its vertices
// and UVs for the variant it was captured from. It reports false for a draw
// call that is skipped.
func Assemble(dc *DrawCall, r *resolve.Resolver, globalScale float32) (Tile, bool, error) {
	tr, ok, err := r.Resolve(dc.Constants.Globals())
	if err != nil || !ok {
		return Tile{}, false, err
	}
	if len(dc.Indices) == 0 {
		return Tile{}, false, nil
	}

	topology, variant, err := dc.Constants.DrawCall()
	if err != nil {
		return Tile{}, false, fmt.Errorf("draw call %d: %w", dc.ID, err)
	}

	tile := Tile{
		Name:      fmt.Sprintf("BuildingMesh-%05d", dc.ID),
		Material:  fmt.Sprintf("BuildingMat-%05d", dc.ID),
		Triangles: mesh.Triangles(dc.Indices, topology),
		Matrix:    math.Scale(globalScale, globalScale, globalScale).Mul(tr.Model),
		Texture:   dc.Texture,
	}

	switch variant {
	case capture.VariantGoogleMaps:
		tile.Vertices = scaledVertices(dc.Positions, 256)
	case capture.VariantMapyCZ:
		se, ok := dc.Constants.Globals().Floats("_uParamsSE")
		if !ok || len(se) < 16 {
			return Tile{}, false, fmt.Errorf("draw call %d: %w", dc.ID, ErrMissingParams)
		}
		tile.Vertices = mapyCZVertices(dc.Positions, math.FromColumnMajor(se))
	default:
		tile.Vertices = scaledVertices(dc.Positions, 1)
	}

	tile.UVs = transformUVs(dc.UVs, tr.UVOffsetScale, variant == capture.VariantGoogleMaps)
	return tile, true, nil
}

func scaledVertices(positions [][]float32, scale float32) [][3]float32 {
	out := make([][3]float32, len(positions))
	for i, p := range positions {
		var v math.Vec3
		switch {
		case len(p) >= 3:
			v = math.Vec3{X: p[0], Y: p[1], Z: p[2]}
		case len(p) == 2:
			v = math.Vec3{X: p[0], Y: p[1]}
		case len(p) == 1:
			v = math.Vec3{X: p[0]}
		}
		out[i] = v.Scale(scale).Array()
	}
	return out
}

// mapyCZVertices undoes the vertex shader's terrain curvature. The formula
// is taken as is from captured shaders.
func mapyCZVertices(positions [][]float32, se math.Mat4) [][3]float32 {
	p := func(row, col int) float64 { return float64(se.At(row, col)) }

	out := make([][3]float32, len(positions))
	for i, pos := range positions {
		var v [3]float64
		for j := 0; j < 3 && j < len(pos); j++ {
			v[j] = float64(pos[j])
		}

		r1 := [3]float64{
			v[0]*p(3, 0) + p(0, 0),
			v[1]*p(0, 1) + p(1, 0),
			(v[2]*p(1, 1) + p(2, 0)) * p(3, 3),
		}
		dist := gomath.Sqrt(r1[0]*r1[0] + r1[1]*r1[1] + r1[2]*r1[2])
		inv := 1 / (dist + 0.0001)
		dist -= p(2, 3)
		for j := range r1 {
			r1[j] *= inv
		}
		t := min(max(dist, p(1, 2)), p(3, 2))
		t = (t-p(1, 2))*p(0, 3)*p(1, 3) + p(2, 2)
		d := dist*t - dist

		out[i] = [3]float32{
			float32(v[0]*p(3, 0) + r1[0]*d),
			float32(v[1]*p(0, 1) + r1[1]*d),
			float32(v[2]*p(1, 1) + r1[2]*d),
		}
	}
	return out
}

// transformUVs applies (uv + offset) * scale. Google Maps stores UVs as
// normalized 16-bit values that are expanded first.
func transformUVs(uvs [][]float32, offsetScale [4]float32, expand bool) [][2]float32 {
	out := make([][2]float32, len(uvs))
	for i, uv := range uvs {
		for j := 0; j < 2 && j < len(uv); j++ {
			v := float64(uv[j])
			if expand {
				v = v*65535 + 0.5
			}
			out[i][j] = float32((v + float64(offsetScale[j])) * float64(offsetScale[j+2]))
		}
	}
	return out
}

var indicesFile = regexp.MustCompile(`^(\d{5})-` + regexp.QuoteMeta(scraper.KindIndices) + `$`)

// countDrawCalls returns one past the largest draw call id under prefix.
func countDrawCalls(prefix string) (int, error) {
	dir, base := filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("listing draw calls: %w", err)
	}
	n := 0
	for _, e := range entries {
		name := e.Name()
		if len(name) < len(base) || name[:len(base)] != base {
			continue
		}
		m := indicesFile.FindStringSubmatch(name[len(base):])
		if m == nil {
			continue
		}
		id, _ := strconv.Atoi(m[1])
		n = max(n, id+1)
	}
	return n, nil
}
