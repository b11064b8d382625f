// Package resolve turns a draw call's uniforms into a model matrix and a UV
// offset/scale, relative to a reference frame fixed by the first tile.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/maps-capture/internal/uniforms"
	"github.com/Faultbox/maps-capture/pkg/math"
)

// ErrUnrecognizedUniformSet means no known variant matches the uniforms of
// a draw call.
var ErrUnrecognizedUniformSet = errors.New("unrecognized uniform set")

// UnrecognizedUniformSetError lists the uniforms that were present.
type UnrecognizedUniformSetError struct {
	Globals uniforms.Block
}

func (e *UnrecognizedUniformSetError) Error() string {
	return fmt.Sprintf("%s: [%s]", ErrUnrecognizedUniformSet, strings.Join(e.Globals.Names(), ", "))
}

func (e *UnrecognizedUniformSetError) Unwrap() error {
	return ErrUnrecognizedUniformSet
}

// Transform is the placement of one tile.
type Transform struct {
	// UVOffsetScale is (offsetU, offsetV, scaleU, scaleV).
	UVOffsetScale [4]float32
	Model         math.Mat4
	Variant       string
}

// Resolver holds the reference matrix of a session. Once set it never
// changes. A Resolver is not safe for concurrent use.
type Resolver struct {
	ref    math.Mat4
	hasRef bool
}

// NewResolver returns a resolver without a reference matrix.
func NewResolver() *Resolver {
	return &Resolver{}
}

// NewSeededResolver returns a resolver whose reference matrix was persisted
// by an earlier run.
func NewSeededResolver(ref math.Mat4) *Resolver {
	return &Resolver{ref: ref, hasRef: true}
}

// Reference returns the reference matrix and whether it is set.
func (r *Resolver) Reference() (math.Mat4, bool) {
	return r.ref, r.hasRef
}

// Resolve computes the transform of a draw call from its $Globals block.
//
// When no variant matches, the error is an *UnrecognizedUniformSetError if
// no reference exists yet. Otherwise the draw call is reported as not
// resolved and should be skipped.
func (r *Resolver) Resolve(globals uniforms.Block) (Transform, bool, error) {
	for _, v := range Variants {
		if !v.Recognize(globals) {
			continue
		}
		uv, m, err := v.Decode(globals)
		if err != nil {
			return Transform{}, false, fmt.Errorf("decoding %s uniforms: %w", v.Name, err)
		}

		if !r.hasRef {
			ref := DefaultReference
			if v.Reference != nil {
				ref = v.Reference
			}
			refMat, err := ref(m)
			if err != nil {
				return Transform{}, false, fmt.Errorf("decoding %s uniforms: %w", v.Name, err)
			}
			r.ref = refMat
			r.hasRef = true
		}

		model := r.ref.Mul(m)
		if v.Post != nil {
			model = v.Post.Mul(model)
		}
		return Transform{
			UVOffsetScale: [4]float32{float32(uv[0]), float32(uv[1]), float32(uv[2]), float32(uv[3])},
			Model:         model,
			Variant:       v.Name,
		}, true, nil
	}

	if !r.hasRef {
		return Transform{}, false, &UnrecognizedUniformSetError{Globals: globals}
	}
	return Transform{}, false, nil
}
