package math

import (
	"testing"
)

func TestVec3Length(t *testing.T) {
	v := Vec3{2, 3, 6}
	got := v.Length()
	want := float32(7)
	if got != want {
		t.Errorf("Vec3.Length() = %v, want %v", got, want)
	}
}

func TestVec3AddScale(t *testing.T) {
	a := Vec3{1, 2, 3}
	got := a.Add(a.Scale(2)).Sub(Vec3{1, 1, 1})
	want := Vec3{2, 5, 8}
	if got != want {
		t.Errorf("Vec3 arithmetic = %v, want %v", got, want)
	}
	if got.Array() != [3]float32{2, 5, 8} {
		t.Errorf("Vec3.Array() = %v", got.Array())
	}
}
