package mesh

import "github.com/Faultbox/maps-capture/internal/capture"

// strip winding alternates so every triangle keeps the orientation of the
// first one.
var stripOffsets = [2][3]int{{0, 1, 2}, {0, 2, 1}}

// Triangles assembles triangles from indices. A strip of n indices yields
// up to n-3 triangles, with repeated-vertex (restart) triangles dropped. A
// list yields n/3 triangles and ignores any remainder.
func Triangles(indices []uint32, topology capture.Topology) [][3]uint32 {
	if topology == capture.TriangleStrip {
		return stripTriangles(indices)
	}

	out := make([][3]uint32, 0, len(indices)/3)
	for i := 0; i+3 <= len(indices); i += 3 {
		out = append(out, [3]uint32{indices[i], indices[i+1], indices[i+2]})
	}
	return out
}

func stripTriangles(indices []uint32) [][3]uint32 {
	var out [][3]uint32
	for i := 0; i < len(indices)-3; i++ {
		o := stripOffsets[i%2]
		t := [3]uint32{indices[i+o[0]], indices[i+o[1]], indices[i+o[2]]}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			continue
		}
		out = append(out, t)
	}
	return out
}
