package gpuformat

import (
	"errors"
	"testing"
)

func TestVertexFormat_String(t *testing.T) {
	tests := []struct {
		format VertexFormat
		want   string
	}{
		{VertexFormat{CompCount: 3, CompType: CompTypeFloat, CompByteWidth: 4}, "R32G32B32_FLOAT"},
		{VertexFormat{CompCount: 4, CompType: CompTypeUNorm, CompByteWidth: 1, BGRAOrder: true}, "B8G8R8A8_UNORM"},
		{VertexFormat{CompCount: 2, CompType: CompTypeSNorm, CompByteWidth: 2}, "R16G16_SNORM"},
		{VertexFormat{CompCount: 1, CompType: CompTypeDouble, CompByteWidth: 8}, "R64_FLOAT"},
		{VertexFormat{Packed: true}, "PACKED"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.format.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want VertexFormat
	}{
		{"R32G32B32_FLOAT", VertexFormat{CompCount: 3, CompType: CompTypeFloat, CompByteWidth: 4}},
		{"r16g16_unorm", VertexFormat{CompCount: 2, CompType: CompTypeUNorm, CompByteWidth: 2}},
		{"B8G8R8A8_UNORM", VertexFormat{CompCount: 4, CompType: CompTypeUNorm, CompByteWidth: 1, BGRAOrder: true}},
		{"R64_FLOAT", VertexFormat{CompCount: 1, CompType: CompTypeDouble, CompByteWidth: 8}},
		{"R8G8B8A8_USCALED", VertexFormat{CompCount: 4, CompType: CompTypeUScaled, CompByteWidth: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("ParseFormat failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFormat_Invalid(t *testing.T) {
	for _, in := range []string{"", "R32G32B32", "R32G16_FLOAT", "G32_FLOAT", "R8_FLOAT", "R32_QUUX", "R12_UINT"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseFormat(in)
			if err == nil {
				t.Errorf("ParseFormat(%q) should fail", in)
			}
		})
	}
}

func TestParseFormat_Packed(t *testing.T) {
	f, err := ParseFormat("PACKED")
	if err != nil {
		t.Fatalf("ParseFormat failed: %v", err)
	}
	if !errors.Is(f.Validate(), ErrPackedFormat) {
		t.Error("parsed packed format should fail validation with ErrPackedFormat")
	}
}

func TestVertexFormat_TextRoundTrip(t *testing.T) {
	f := VertexFormat{CompCount: 4, CompType: CompTypeSNorm, CompByteWidth: 2}
	text, err := f.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	var got VertexFormat
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if got != f {
		t.Errorf("round trip: got %+v, want %+v", got, f)
	}
}

func TestCompType_String(t *testing.T) {
	if CompTypeSScaled.String() != "SSCALED" {
		t.Errorf("got %q", CompTypeSScaled.String())
	}
	if CompType(99).String() != "Unknown(99)" {
		t.Errorf("got %q", CompType(99).String())
	}
}
