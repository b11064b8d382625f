package gpuformat

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decode interprets the first element of raw according to f and returns
// f.CompCount values.
func Decode(f VertexFormat, raw []byte) ([]float64, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if len(raw) < f.ElementSize() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, f.ElementSize(), len(raw))
	}
	out := make([]float64, f.CompCount)
	decodeInto(f, raw, out)
	return out, nil
}

// DecodeBatch decodes count consecutive elements spaced stride bytes apart.
// A stride of 0 means tightly packed elements. All rows share one backing
// array.
func DecodeBatch(f VertexFormat, buf []byte, stride, count int) ([][]float64, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return [][]float64{}, nil
	}
	size := f.ElementSize()
	if stride == 0 {
		stride = size
	}
	if last := (count-1)*stride + size; last > len(buf) {
		return nil, fmt.Errorf("%w: %d elements at stride %d need %d bytes, have %d",
			ErrTruncated, count, stride, last, len(buf))
	}

	n := int(f.CompCount)
	backing := make([]float64, count*n)
	rows := make([][]float64, count)
	for i := 0; i < count; i++ {
		row := backing[i*n : (i+1)*n : (i+1)*n]
		off := i * stride
		decodeInto(f, buf[off:off+size], row)
		rows[i] = row
	}
	return rows, nil
}

// decodeInto assumes f is valid and raw holds at least one element.
func decodeInto(f VertexFormat, raw []byte, out []float64) {
	w := int(f.CompByteWidth)
	for i := range out {
		out[i] = readComponent(raw[i*w:(i+1)*w], f.CompType)
	}

	switch f.CompType {
	case CompTypeUNorm:
		divisor := math.Exp2(float64(w*8)) - 1
		for i := range out {
			out[i] /= divisor
		}
	case CompTypeSNorm:
		maxNeg := -math.Exp2(float64(w*8 - 1))
		divisor := -maxNeg - 1
		for i := range out {
			if out[i] == maxNeg {
				out[i] = -1
			} else {
				out[i] /= divisor
			}
		}
	}

	if f.BGRAOrder && len(out) == 4 {
		out[0], out[2] = out[2], out[0]
	}
}

func readComponent(b []byte, t CompType) float64 {
	switch {
	case t.float():
		switch len(b) {
		case 2:
			return float64(halfToFloat32(binary.LittleEndian.Uint16(b)))
		case 4:
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		default:
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}
	case t.signed():
		switch len(b) {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(binary.LittleEndian.Uint16(b)))
		case 4:
			return float64(int32(binary.LittleEndian.Uint32(b)))
		default:
			return float64(int64(binary.LittleEndian.Uint64(b)))
		}
	default:
		switch len(b) {
		case 1:
			return float64(b[0])
		case 2:
			return float64(binary.LittleEndian.Uint16(b))
		case 4:
			return float64(binary.LittleEndian.Uint32(b))
		default:
			return float64(binary.LittleEndian.Uint64(b))
		}
	}
}

// halfToFloat32 converts an IEEE 754 binary16 value.
func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: renormalize
		e := uint32(127 - 15 + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3ff
		return math.Float32frombits(sign | e<<23 | mant<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | mant<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | mant<<13)
	}
}
