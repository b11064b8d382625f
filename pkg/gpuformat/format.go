// Package gpuformat decodes raw GPU vertex buffer bytes described by a
// vertex attribute format into numeric tuples.
package gpuformat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Format errors.
var (
	ErrPackedFormat     = errors.New("packed vertex formats are not supported")
	ErrInvalidFormat    = errors.New("invalid vertex format")
	ErrUnsupportedWidth = errors.New("unsupported component byte width")
	ErrTruncated        = errors.New("truncated vertex data")
)

// CompType is the numeric interpretation of each component.
type CompType uint8

const (
	CompTypeUInt    CompType = iota // Unsigned integer
	CompTypeSInt                    // Signed integer
	CompTypeFloat                   // IEEE float (half, single or double)
	CompTypeUNorm                   // Unsigned, normalized to [0, 1]
	CompTypeSNorm                   // Signed, normalized to [-1, 1]
	CompTypeUScaled                 // Unsigned integer converted to float
	CompTypeSScaled                 // Signed integer converted to float
	CompTypeDouble                  // 64-bit float
)

var compTypeNames = [...]string{
	CompTypeUInt:    "UINT",
	CompTypeSInt:    "SINT",
	CompTypeFloat:   "FLOAT",
	CompTypeUNorm:   "UNORM",
	CompTypeSNorm:   "SNORM",
	CompTypeUScaled: "USCALED",
	CompTypeSScaled: "SSCALED",
	CompTypeDouble:  "DOUBLE",
}

// String returns the component type suffix used in format names.
func (c CompType) String() string {
	if int(c) < len(compTypeNames) {
		return compTypeNames[c]
	}
	return fmt.Sprintf("Unknown(%d)", c)
}

// MarshalText implements encoding.TextMarshaler.
func (c CompType) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(c.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CompType) UnmarshalText(text []byte) error {
	name := strings.ToUpper(string(text))
	for i, n := range compTypeNames {
		if n == name {
			*c = CompType(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown component type %q", ErrInvalidFormat, text)
}

func (c CompType) signed() bool {
	return c == CompTypeSInt || c == CompTypeSNorm || c == CompTypeSScaled
}

func (c CompType) float() bool {
	return c == CompTypeFloat || c == CompTypeDouble
}

// VertexFormat describes how one vertex attribute is laid out in memory.
type VertexFormat struct {
	CompCount     uint8    `yaml:"comp_count"`      // 1..4
	CompType      CompType `yaml:"comp_type"`       // Numeric interpretation
	CompByteWidth uint8    `yaml:"comp_byte_width"` // 1, 2, 4 or 8
	BGRAOrder     bool     `yaml:"bgra,omitempty"`  // Stored as B, G, R, A
	Packed        bool     `yaml:"packed,omitempty"`
}

// ElementSize returns the number of bytes occupied by one element.
func (f VertexFormat) ElementSize() int {
	return int(f.CompCount) * int(f.CompByteWidth)
}

// Validate checks that the format can be decoded.
func (f VertexFormat) Validate() error {
	if f.Packed {
		return ErrPackedFormat
	}
	if f.CompCount < 1 || f.CompCount > 4 {
		return fmt.Errorf("%w: %d components", ErrInvalidFormat, f.CompCount)
	}
	if int(f.CompType) >= len(compTypeNames) {
		return fmt.Errorf("%w: component type %d", ErrInvalidFormat, f.CompType)
	}
	switch f.CompByteWidth {
	case 1:
		if f.CompType.float() {
			return fmt.Errorf("%w: 1-byte %s", ErrUnsupportedWidth, f.CompType)
		}
	case 2, 4, 8:
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedWidth, f.CompByteWidth)
	}
	return nil
}

// String returns a DXGI-like name such as R32G32B32_FLOAT or B8G8R8A8_UNORM.
func (f VertexFormat) String() string {
	if f.Packed {
		return "PACKED"
	}
	channels := "RGBA"
	if f.BGRAOrder {
		channels = "BGRA"
	}
	bits := strconv.Itoa(int(f.CompByteWidth) * 8)

	var sb strings.Builder
	for i := 0; i < int(f.CompCount) && i < 4; i++ {
		sb.WriteByte(channels[i])
		sb.WriteString(bits)
	}
	sb.WriteByte('_')
	if f.CompType == CompTypeDouble {
		sb.WriteString("FLOAT")
	} else {
		sb.WriteString(f.CompType.String())
	}
	return sb.String()
}

// ParseFormat parses a name produced by String.
func ParseFormat(s string) (VertexFormat, error) {
	var f VertexFormat
	if strings.EqualFold(s, "PACKED") {
		f.Packed = true
		return f, nil
	}

	channels, typ, ok := strings.Cut(strings.ToUpper(s), "_")
	if !ok || channels == "" {
		return f, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	if err := f.CompType.UnmarshalText([]byte(typ)); err != nil {
		return f, err
	}

	order := "RGBA"
	if channels[0] == 'B' {
		order = "BGRA"
		f.BGRAOrder = true
	}

	bits := -1
	for len(channels) > 0 {
		if int(f.CompCount) >= len(order) || channels[0] != order[f.CompCount] {
			return f, fmt.Errorf("%w: unexpected channel in %q", ErrInvalidFormat, s)
		}
		end := 1
		for end < len(channels) && channels[end] >= '0' && channels[end] <= '9' {
			end++
		}
		n, err := strconv.Atoi(channels[1:end])
		if err != nil || n%8 != 0 || (bits != -1 && n != bits) {
			return f, fmt.Errorf("%w: bad component size in %q", ErrInvalidFormat, s)
		}
		bits = n
		f.CompCount++
		channels = channels[end:]
	}
	f.CompByteWidth = uint8(bits / 8)
	if f.CompType == CompTypeFloat && f.CompByteWidth == 8 {
		f.CompType = CompTypeDouble
	}
	return f, f.Validate()
}

// MarshalText implements encoding.TextMarshaler.
func (f VertexFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *VertexFormat) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
