package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	id := Identity()
	result := m.Mul(id)

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestFromColumnMajor(t *testing.T) {
	v := make([]float64, 16)
	for i := range v {
		v[i] = float64(i)
	}
	m := FromColumnMajor(v)

	// Element (row 1, col 2) sits at index 2*4+1
	if m.At(1, 2) != 9 {
		t.Errorf("At(1, 2) = %f, want 9", m.At(1, 2))
	}
	if m.At(3, 0) != 3 {
		t.Errorf("At(3, 0) = %f, want 3", m.At(3, 0))
	}
}

func TestFromRowMajor(t *testing.T) {
	v := []float64{
		1, 0, 0, 5,
		0, 1, 0, 6,
		0, 0, 1, 7,
		0, 0, 0, 1,
	}
	m := FromRowMajor(v)
	if m != Translate(5, 6, 7) {
		t.Errorf("FromRowMajor: got %v, want translation (5, 6, 7)", m)
	}
	if m.RowMajor()[3] != 5 {
		t.Errorf("RowMajor()[3] = %f, want 5", m.RowMajor()[3])
	}
}

func TestTransposeInvolution(t *testing.T) {
	m := Translate(1, 2, 3).Mul(RotateZ(0.3))
	if m.Transpose().Transpose() != m {
		t.Error("transposing twice should give the original matrix")
	}
}

func TestSetRow(t *testing.T) {
	m := Translate(1, 2, 3)
	m[3], m[7] = 4, 4
	m.SetRow(3, [4]float32{0, 0, 0, 1})
	if m != Translate(1, 2, 3) {
		t.Errorf("SetRow: got %v", m)
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation should be in column 4 (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
}

func TestTransformPointScale(t *testing.T) {
	m := Scale(2, 2, 2)
	p := [3]float32{1, 2, 3}
	result := m.TransformPoint(p)

	expected := [3]float32{2, 4, 6}
	if result != expected {
		t.Errorf("TransformPoint with scale: got %v, want %v", result, expected)
	}
}

func TestRotateY90(t *testing.T) {
	m := RotateY(float32(math.Pi / 2)) // 90 degrees
	p := [3]float32{1, 0, 0}           // Point on X axis
	result := m.TransformPoint(p)

	// After 90 degree Y rotation, (1,0,0) should become approximately (0,0,-1)
	if abs(result[0]) > 0.001 || abs(result[1]) > 0.001 || abs(result[2]+1) > 0.001 {
		t.Errorf("RotateY 90: got %v, want (0, 0, -1)", result)
	}
}

func TestRotateZ180(t *testing.T) {
	m := RotateZ(float32(math.Pi))
	result := m.TransformPoint([3]float32{1, 2, 3})

	if abs(result[0]+1) > 0.001 || abs(result[1]+2) > 0.001 || abs(result[2]-3) > 0.001 {
		t.Errorf("RotateZ 180: got %v, want (-1, -2, 3)", result)
	}
}

func TestInverse(t *testing.T) {
	m := Translate(3, -4, 5).Mul(RotateY(0.7)).Mul(Scale(2, 2, 2))
	got := m.Mul(m.Inverse())
	if !got.ApproxEqual(Identity(), 1e-5) {
		t.Errorf("M * inverse(M) should be identity, got %v", got)
	}
}

func TestInverseSingular(t *testing.T) {
	var zero Mat4
	if _, ok := zero.TryInverse(); ok {
		t.Error("TryInverse of zero matrix should report singular")
	}
	if zero.Inverse() != Identity() {
		t.Error("Inverse of singular matrix should fall back to identity")
	}
}

func TestApproxEqual(t *testing.T) {
	a := Identity()
	b := Identity()
	b[5] += 1e-7
	if !a.ApproxEqual(b, 1e-6) {
		t.Error("matrices within eps should compare equal")
	}
	b[5] += 1
	if a.ApproxEqual(b, 1e-6) {
		t.Error("matrices beyond eps should not compare equal")
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
