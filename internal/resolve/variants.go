package resolve

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/maps-capture/internal/uniforms"
	"github.com/Faultbox/maps-capture/pkg/math"
)

// ErrMalformedUniform means a recognized uniform has the wrong size or
// would divide by zero.
var ErrMalformedUniform = errors.New("malformed uniform")

// Variant is one known uniform layout.
type Variant struct {
	Name string
	// Requires lists the uniforms whose presence identifies the variant.
	Requires []string
	// Decode extracts the UV offset/scale and the tile matrix.
	Decode func(g uniforms.Block) (uv [4]float64, m math.Mat4, err error)
	// Reference computes the reference matrix from the first decoded matrix.
	// Nil means the default RotY(-90°) · inverse(m).
	Reference func(m math.Mat4) (math.Mat4, error)
	// Post, if set, is applied after the reference matrix.
	Post *math.Mat4
}

// Recognize reports whether every required uniform is present.
func (v Variant) Recognize(g uniforms.Block) bool {
	for _, name := range v.Requires {
		if !g.Has(name) {
			return false
		}
	}
	return len(v.Requires) > 0
}

// Variants is evaluated in order; the first recognized variant decodes.
var Variants = []Variant{
	{
		Name:     "maps-w-s",
		Requires: []string{"_w", "_s"},
		Decode:   flippedV("_w", "_s"),
	},
	{
		Name:     "maps-webgl",
		Requires: []string{"webgl_fa7f624db8ab37d1", "webgl_3c7b7f37a9bd4c1d"},
		Decode:   direct("webgl_fa7f624db8ab37d1", "webgl_3c7b7f37a9bd4c1d"),
	},
	{
		Name:     "maps-webgl-underscore",
		Requires: []string{"_webgl_fa7f624db8ab37d1", "_webgl_3c7b7f37a9bd4c1d"},
		Decode:   flippedV("_webgl_fa7f624db8ab37d1", "_webgl_3c7b7f37a9bd4c1d"),
	},
	{
		Name:      "earth-mesh-to-world",
		Requires:  []string{"_uMeshToWorldMatrix"},
		Decode:    meshToWorld,
		Reference: earthReference,
	},
	{
		Name:     "mapy-cz",
		Requires: []string{"_uMV"},
		Decode:   mapyCZ,
		Post:     &mapyCZPost,
	},
}

// DefaultReference rotates -90° about Y: the capture's up axis is X.
func DefaultReference(m math.Mat4) (math.Mat4, error) {
	return rotatedInverse(math.RotateY(-gomath.Pi/2), m)
}

func earthReference(m math.Mat4) (math.Mat4, error) {
	return rotatedInverse(math.RotateZ(gomath.Pi), m)
}

// rotatedInverse returns rot · inverse(m). A singular m cannot anchor the
// scene.
func rotatedInverse(rot, m math.Mat4) (math.Mat4, error) {
	inv, ok := m.TryInverse()
	if !ok {
		return math.Mat4{}, fmt.Errorf("%w: tile matrix is singular", ErrMalformedUniform)
	}
	return rot.Mul(inv), nil
}

// mapyCZPost was measured against reference scenes; it has no derivation.
var mapyCZPost = math.FromRowMajor([]float64{
	0.682889997959137, 0.20221230387687683, 0.7019768357276917, -0.06431722640991211,
	0.07228320091962814, 0.9375065565109253, -0.3403771221637726, -0.11041564494371414,
	-0.7269363403320312, 0.28318125009536743, 0.6255972981452942, -1.349690556526184,
	0, 0, 0, 1,
}).Mul(math.Scale(500, 500, 500))

func direct(uvName, matName string) func(uniforms.Block) ([4]float64, math.Mat4, error) {
	return func(g uniforms.Block) ([4]float64, math.Mat4, error) {
		uv, err := vec4(g, uvName)
		if err != nil {
			return uv, math.Mat4{}, err
		}
		m, err := mat4(g, matName)
		return uv, m, err
	}
}

// flippedV reads the UV transform for a V axis pointing down:
// ov -= 1/sv, sv = -sv.
func flippedV(uvName, matName string) func(uniforms.Block) ([4]float64, math.Mat4, error) {
	read := direct(uvName, matName)
	return func(g uniforms.Block) ([4]float64, math.Mat4, error) {
		uv, m, err := read(g)
		if err != nil {
			return uv, m, err
		}
		if uv[3] == 0 {
			return uv, m, fmt.Errorf("%w: %s has zero V scale", ErrMalformedUniform, uvName)
		}
		uv[1] -= 1 / uv[3]
		uv[3] = -uv[3]
		return uv, m, nil
	}
}

func meshToWorld(g uniforms.Block) ([4]float64, math.Mat4, error) {
	m, err := mat4(g, "_uMeshToWorldMatrix")
	if err != nil {
		return [4]float64{}, m, err
	}
	m.SetRow(3, [4]float32{0, 0, 0, 1})
	return [4]float64{0, -1, 1, -1}, m, nil
}

func mapyCZ(g uniforms.Block) ([4]float64, math.Mat4, error) {
	p, err := mat4(g, "_uParams")
	if err != nil {
		return [4]float64{}, math.Mat4{}, err
	}
	p02, p12 := float64(p.At(0, 2)), float64(p.At(1, 2))
	if p02 == 0 || p12 == 0 {
		return [4]float64{}, math.Mat4{}, fmt.Errorf("%w: _uParams has a zero scale", ErrMalformedUniform)
	}
	uv := [4]float64{
		float64(p.At(2, 2)) / p02,
		(float64(p.At(3, 2)) - 1) / p12,
		p02,
		-p12,
	}
	m, err := mat4(g, "_uMV")
	return uv, m, err
}

func vec4(g uniforms.Block, name string) ([4]float64, error) {
	var out [4]float64
	data, _ := g.Floats(name)
	if len(data) < 4 {
		return out, fmt.Errorf("%w: %s has %d values, want 4", ErrMalformedUniform, name, len(data))
	}
	copy(out[:], data)
	return out, nil
}

func mat4(g uniforms.Block, name string) (math.Mat4, error) {
	data, ok := g.Floats(name)
	if !ok {
		return math.Mat4{}, fmt.Errorf("%w: %s is missing", ErrMalformedUniform, name)
	}
	if len(data) < 16 {
		return math.Mat4{}, fmt.Errorf("%w: %s has %d values, want 16", ErrMalformedUniform, name, len(data))
	}
	return math.FromColumnMajor(data), nil
}
