// Package nparray reads and writes the intermediate array container used
// for per-drawcall index, position and UV blobs.
//
// Layout (little-endian):
//
//	int32     rank
//	int32     shape[rank]
//	[2]byte   element type tag, e.g. "u4" or "f4"
//	...       raw elements, row-major
package nparray

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Container errors.
var (
	ErrUnknownDType  = errors.New("unknown element type tag")
	ErrInvalidShape  = errors.New("invalid array shape")
	ErrTruncatedData = errors.New("truncated array data")
)

const (
	// maxRank bounds the rank read from a file.
	maxRank = 8
	// MaxDataBytes bounds the element bytes of one array.
	MaxDataBytes = 1 << 30
)

// DType is a two-character element type tag.
type DType string

const (
	Uint8   DType = "u1"
	Uint16  DType = "u2"
	Uint32  DType = "u4"
	Int32   DType = "i4"
	Int64   DType = "i8"
	Float32 DType = "f4"
	Float64 DType = "f8"
)

// Size returns the element size in bytes, or 0 for unknown tags.
func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Uint16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

// Array is an n-dimensional array with its raw element bytes.
type Array struct {
	Shape []int
	DType DType
	Data  []byte
}

// Len returns the total number of elements implied by the shape, or -1
// when a dimension is negative or the product does not fit MaxDataBytes.
func (a *Array) Len() int {
	n, ok := elements(a.Shape)
	if !ok {
		return -1
	}
	return n
}

// elements multiplies the dimensions, failing once the product exceeds
// MaxDataBytes.
func elements(shape []int) (int, bool) {
	n := 1
	for _, s := range shape {
		if s < 0 {
			return 0, false
		}
		if s != 0 && n > MaxDataBytes/s {
			return 0, false
		}
		n *= s
	}
	return n, true
}

// FromUint32 builds a 1-D u4 array.
func FromUint32(values []uint32) *Array {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], v)
	}
	return &Array{Shape: []int{len(values)}, DType: Uint32, Data: data}
}

// FromRows builds a 2-D f4 array from equally sized rows. Rows longer than
// the first are truncated, shorter rows are zero padded.
func FromRows(rows [][]float64) *Array {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	data := make([]byte, 4*len(rows)*cols)
	for i, row := range rows {
		for j := 0; j < cols && j < len(row); j++ {
			binary.LittleEndian.PutUint32(data[4*(i*cols+j):], math.Float32bits(float32(row[j])))
		}
	}
	return &Array{Shape: []int{len(rows), cols}, DType: Float32, Data: data}
}

// check verifies that the data holds every element the shape claims.
func (a *Array) check() error {
	n := a.Len()
	if n < 0 {
		return fmt.Errorf("%w: shape %v", ErrInvalidShape, a.Shape)
	}
	if a.DType.Size() == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownDType, a.DType)
	}
	if len(a.Data) < n*a.DType.Size() {
		return fmt.Errorf("%w: shape %v needs %d bytes, have %d",
			ErrTruncatedData, a.Shape, n*a.DType.Size(), len(a.Data))
	}
	return nil
}

// Uint32s returns the elements of an integer array as uint32.
func (a *Array) Uint32s() ([]uint32, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	n := a.Len()
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		v, err := a.intAt(i)
		if err != nil {
			return nil, err
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// Float32Rows returns a 2-D array as rows, keeping at most maxCols columns
// (maxCols <= 0 keeps all of them).
func (a *Array) Float32Rows(maxCols int) ([][]float32, error) {
	if len(a.Shape) != 2 {
		return nil, fmt.Errorf("%w: want rank 2, have %d", ErrInvalidShape, len(a.Shape))
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	rows, cols := a.Shape[0], a.Shape[1]
	keep := cols
	if maxCols > 0 && maxCols < cols {
		keep = maxCols
	}

	backing := make([]float32, rows*keep)
	out := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		row := backing[i*keep : (i+1)*keep : (i+1)*keep]
		for j := 0; j < keep; j++ {
			v, err := a.floatAt(i*cols + j)
			if err != nil {
				return nil, err
			}
			row[j] = float32(v)
		}
		out[i] = row
	}
	return out, nil
}

func (a *Array) intAt(i int) (int64, error) {
	size := a.DType.Size()
	if size == 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDType, a.DType)
	}
	b := a.Data[i*size : (i+1)*size]
	switch a.DType {
	case Uint8:
		return int64(b[0]), nil
	case Uint16:
		return int64(binary.LittleEndian.Uint16(b)), nil
	case Uint32:
		return int64(binary.LittleEndian.Uint32(b)), nil
	case Int32:
		return int64(int32(binary.LittleEndian.Uint32(b))), nil
	case Int64:
		return int64(binary.LittleEndian.Uint64(b)), nil
	default:
		f, err := a.floatAt(i)
		return int64(f), err
	}
}

func (a *Array) floatAt(i int) (float64, error) {
	switch a.DType {
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(a.Data[4*i:]))), nil
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(a.Data[8*i:])), nil
	default:
		v, err := a.intAt(i)
		return float64(v), err
	}
}

// Write serializes the array to w.
func Write(w io.Writer, a *Array) error {
	if len(a.DType) != 2 || a.DType.Size() == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownDType, a.DType)
	}
	if a.Len() < 0 {
		return fmt.Errorf("%w: shape %v", ErrInvalidShape, a.Shape)
	}
	if len(a.Data) != a.Len()*a.DType.Size() {
		return fmt.Errorf("%w: shape %v needs %d bytes, have %d",
			ErrInvalidShape, a.Shape, a.Len()*a.DType.Size(), len(a.Data))
	}

	header := make([]int32, 0, 1+len(a.Shape))
	header = append(header, int32(len(a.Shape)))
	for _, s := range a.Shape {
		header = append(header, int32(s))
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := io.WriteString(w, string(a.DType)); err != nil {
		return fmt.Errorf("writing dtype: %w", err)
	}
	if _, err := w.Write(a.Data); err != nil {
		return fmt.Errorf("writing data: %w", err)
	}
	return nil
}

// Read parses one array from r. Arrays larger than MaxDataBytes are
// rejected with ErrInvalidShape.
func Read(r io.Reader) (*Array, error) {
	return read(r, MaxDataBytes)
}

// read parses one array whose element bytes may not exceed limit.
func read(r io.Reader, limit int64) (*Array, error) {
	var rank int32
	if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
		return nil, fmt.Errorf("%w: rank: %v", ErrTruncatedData, err)
	}
	if rank < 0 || rank > maxRank {
		return nil, fmt.Errorf("%w: rank %d", ErrInvalidShape, rank)
	}

	shape32 := make([]int32, rank)
	if err := binary.Read(r, binary.LittleEndian, shape32); err != nil {
		return nil, fmt.Errorf("%w: shape: %v", ErrTruncatedData, err)
	}
	a := &Array{Shape: make([]int, rank)}
	for i, s := range shape32 {
		if s < 0 {
			return nil, fmt.Errorf("%w: dimension %d is %d", ErrInvalidShape, i, s)
		}
		a.Shape[i] = int(s)
	}

	tag := make([]byte, 2)
	if _, err := io.ReadFull(r, tag); err != nil {
		return nil, fmt.Errorf("%w: dtype: %v", ErrTruncatedData, err)
	}
	a.DType = DType(tag)
	if a.DType.Size() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDType, a.DType)
	}

	n, ok := elements(a.Shape)
	if !ok || int64(n)*int64(a.DType.Size()) > limit {
		return nil, fmt.Errorf("%w: shape %v of %s exceeds %d bytes", ErrInvalidShape, a.Shape, a.DType, limit)
	}
	a.Data = make([]byte, n*a.DType.Size())
	if _, err := io.ReadFull(r, a.Data); err != nil {
		return nil, fmt.Errorf("%w: elements: %v", ErrTruncatedData, err)
	}
	return a, nil
}

// WriteFile writes the array to path.
func WriteFile(path string, a *Array) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, a); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads an array from path. The shape may not claim more bytes
// than the file holds.
func ReadFile(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return read(bufio.NewReader(f), min(info.Size(), MaxDataBytes))
}
