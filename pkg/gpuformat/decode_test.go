package gpuformat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestDecode_UNorm8(t *testing.T) {
	f := VertexFormat{CompCount: 2, CompType: CompTypeUNorm, CompByteWidth: 1}

	got, err := Decode(f, []byte{255, 0})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got[0] != 1.0 || got[1] != 0.0 {
		t.Errorf("UNorm8 (255, 0) = %v, want (1, 0)", got)
	}
}

func TestDecode_SNormExtremes(t *testing.T) {
	tests := []struct {
		name  string
		width uint8
		min   []byte
		max   []byte
	}{
		{"8-bit", 1, []byte{0x80}, []byte{0x7f}},
		{"16-bit", 2, le16(math.MinInt16), le16(math.MaxInt16)},
		{"32-bit", 4, le32(math.MinInt32), le32(math.MaxInt32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := VertexFormat{CompCount: 1, CompType: CompTypeSNorm, CompByteWidth: tt.width}

			got, err := Decode(f, tt.min)
			if err != nil {
				t.Fatalf("Decode(min) failed: %v", err)
			}
			if got[0] != -1.0 {
				t.Errorf("most negative value = %v, want exactly -1", got[0])
			}

			got, err = Decode(f, tt.max)
			if err != nil {
				t.Fatalf("Decode(max) failed: %v", err)
			}
			if got[0] != 1.0 {
				t.Errorf("most positive value = %v, want exactly 1", got[0])
			}
		})
	}
}

func TestDecode_SNormMidValue(t *testing.T) {
	f := VertexFormat{CompCount: 1, CompType: CompTypeSNorm, CompByteWidth: 1}
	got, err := Decode(f, []byte{0xc1}) // -63
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if want := -63.0 / 127.0; got[0] != want {
		t.Errorf("got %v, want %v", got[0], want)
	}
}

func TestDecode_Float32(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, []float32{1.5, -2.25, 1000})

	f := VertexFormat{CompCount: 3, CompType: CompTypeFloat, CompByteWidth: 4}
	got, err := Decode(f, buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []float64{1.5, -2.25, 1000}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecode_Half(t *testing.T) {
	tests := []struct {
		bits uint16
		want float64
	}{
		{0x3c00, 1.0},
		{0xc000, -2.0},
		{0x3800, 0.5},
		{0x0000, 0.0},
		{0x0001, math.Exp2(-24)},
		{0x7bff, 65504},
	}

	f := VertexFormat{CompCount: 1, CompType: CompTypeFloat, CompByteWidth: 2}
	for _, tt := range tests {
		got, err := Decode(f, le16(int16(tt.bits)))
		if err != nil {
			t.Fatalf("Decode(%#04x) failed: %v", tt.bits, err)
		}
		if got[0] != tt.want {
			t.Errorf("half %#04x = %v, want %v", tt.bits, got[0], tt.want)
		}
	}
}

func TestDecode_Integers(t *testing.T) {
	raw := append(le16(-5), le16(7)...)

	signed := VertexFormat{CompCount: 2, CompType: CompTypeSInt, CompByteWidth: 2}
	got, err := Decode(signed, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got[0] != -5 || got[1] != 7 {
		t.Errorf("SInt16 = %v, want (-5, 7)", got)
	}

	unsigned := VertexFormat{CompCount: 2, CompType: CompTypeUScaled, CompByteWidth: 2}
	got, err = Decode(unsigned, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got[0] != 65531 || got[1] != 7 {
		t.Errorf("UScaled16 = %v, want (65531, 7)", got)
	}
}

func TestDecode_BGRAOrder(t *testing.T) {
	f := VertexFormat{CompCount: 4, CompType: CompTypeUInt, CompByteWidth: 1, BGRAOrder: true}
	got, err := Decode(f, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []float64{3, 2, 1, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("BGRA decode = %v, want %v", got, want)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		format  VertexFormat
		raw     []byte
		wantErr error
	}{
		{"packed", VertexFormat{CompCount: 4, CompType: CompTypeUNorm, CompByteWidth: 1, Packed: true}, make([]byte, 4), ErrPackedFormat},
		{"float8", VertexFormat{CompCount: 1, CompType: CompTypeFloat, CompByteWidth: 1}, make([]byte, 1), ErrUnsupportedWidth},
		{"width3", VertexFormat{CompCount: 1, CompType: CompTypeUInt, CompByteWidth: 3}, make([]byte, 3), ErrUnsupportedWidth},
		{"no components", VertexFormat{CompCount: 0, CompType: CompTypeUInt, CompByteWidth: 1}, nil, ErrInvalidFormat},
		{"truncated", VertexFormat{CompCount: 3, CompType: CompTypeFloat, CompByteWidth: 4}, make([]byte, 8), ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.format, tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeBatch_Stride(t *testing.T) {
	// Two float32 positions interleaved with 4 bytes of padding each
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, []float32{1, 2, 0, 3, 4, 0, 5, 6})

	f := VertexFormat{CompCount: 2, CompType: CompTypeFloat, CompByteWidth: 4}
	rows, err := DecodeBatch(f, buf.Bytes(), 12, 3)
	if err != nil {
		t.Fatalf("DecodeBatch failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	want := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	for i := range want {
		if rows[i][0] != want[i][0] || rows[i][1] != want[i][1] {
			t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}

	// Rows must not alias each other when appended to
	rows[0] = append(rows[0], 99)
	if rows[1][0] != 3 {
		t.Error("appending to a row overwrote the next row")
	}
}

func TestDecodeBatch_TightlyPacked(t *testing.T) {
	f := VertexFormat{CompCount: 2, CompType: CompTypeUNorm, CompByteWidth: 1}
	rows, err := DecodeBatch(f, []byte{0, 255, 255, 0}, 0, 2)
	if err != nil {
		t.Fatalf("DecodeBatch failed: %v", err)
	}
	if rows[0][1] != 1 || rows[1][0] != 1 {
		t.Errorf("got %v", rows)
	}
}

func TestDecodeBatch_Truncated(t *testing.T) {
	f := VertexFormat{CompCount: 3, CompType: CompTypeFloat, CompByteWidth: 4}
	_, err := DecodeBatch(f, make([]byte, 20), 12, 2)
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("got error %v, want ErrTruncated", err)
	}
}

func TestDecodeBatch_Empty(t *testing.T) {
	f := VertexFormat{CompCount: 3, CompType: CompTypeFloat, CompByteWidth: 4}
	rows, err := DecodeBatch(f, nil, 12, 0)
	if err != nil || len(rows) != 0 {
		t.Errorf("DecodeBatch with count 0 = (%v, %v), want empty", rows, err)
	}
}

func le16(v int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}

func le32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}
