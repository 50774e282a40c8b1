// Package ndarray provides a minimal row-major float64 n-dimensional array.
//
// Batches of blend images are stacked along leading axes
// ([batch, max_number, H, W, bands]), which a 2-D matrix type cannot
// express. Array keeps a single contiguous buffer so that a leading-index
// view ([Array.Index]) can be filled in place when per-blend results are
// reassembled, and so the buffer can be written to disk unchanged.
//
// Two-dimensional planes (a single band of a stamp) interoperate with
// gonum's [mat.Matrix] through [Array.SetPlane] and [Array.Plane].
package ndarray

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Array is a dense row-major n-dimensional array of float64.
// The zero value is an empty scalar-less array; use [Zeros] to create one.
type Array struct {
	shape   []int
	strides []int
	data    []float64
}

// Zeros allocates a zero-filled array with the given shape.
// It panics if any dimension is negative or the size overflows.
func Zeros(shape ...int) *Array {
	size, err := shapeSize(shape)
	if err != nil {
		panic(err.Error())
	}
	return &Array{
		shape:   slices.Clone(shape),
		strides: stridesFor(shape),
		data:    make([]float64, size),
	}
}

// FromData wraps data with the given shape without copying.
func FromData(data []float64, shape ...int) (*Array, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	if size != len(data) {
		return nil, fmt.Errorf("ndarray: shape %v needs %d values, got %d", shape, size, len(data))
	}
	return &Array{shape: slices.Clone(shape), strides: stridesFor(shape), data: data}, nil
}

// shapeSize returns the element count of shape. It rejects negative
// dimensions and counts that overflow int.
func shapeSize(shape []int) (int, error) {
	size := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("ndarray: negative dimension %d in shape %v", d, shape)
		}
		if d != 0 && size > math.MaxInt/d {
			return 0, fmt.Errorf("ndarray: shape %v overflows", shape)
		}
		size *= d
	}
	return size, nil
}

func stridesFor(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// Shape returns a copy of the array's dimensions.
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// Dim returns the size of axis i.
func (a *Array) Dim(i int) int { return a.shape[i] }

// NDim returns the number of axes.
func (a *Array) NDim() int { return len(a.shape) }

// Size returns the total number of elements.
func (a *Array) Size() int { return len(a.data) }

// Data returns the backing buffer. Mutating it mutates the array.
func (a *Array) Data() []float64 { return a.data }

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("ndarray: %d indices for %d-d array", len(idx), len(a.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("ndarray: index %d out of range [0,%d) on axis %d", v, a.shape[i], i))
		}
		off += v * a.strides[i]
	}
	return off
}

// At returns the element at idx.
func (a *Array) At(idx ...int) float64 { return a.data[a.offset(idx)] }

// Set stores v at idx.
func (a *Array) Set(v float64, idx ...int) { a.data[a.offset(idx)] = v }

// Index returns a view of a[i] along the leading axis. The view shares
// storage with a.
func (a *Array) Index(i int) *Array {
	if len(a.shape) == 0 {
		panic("ndarray: Index on 0-d array")
	}
	if i < 0 || i >= a.shape[0] {
		panic(fmt.Sprintf("ndarray: index %d out of range [0,%d)", i, a.shape[0]))
	}
	n := a.strides[0]
	return &Array{
		shape:   a.shape[1:],
		strides: a.strides[1:],
		data:    a.data[i*n : (i+1)*n : (i+1)*n],
	}
}

// CopyFrom copies src into a. Shapes must match exactly.
func (a *Array) CopyFrom(src *Array) error {
	if !slices.Equal(a.shape, src.shape) {
		return fmt.Errorf("ndarray: shape mismatch: dst %v, src %v", a.shape, src.shape)
	}
	copy(a.data, src.data)
	return nil
}

// Sum returns the sum of all elements.
func (a *Array) Sum() float64 {
	var s float64
	for _, v := range a.data {
		s += v
	}
	return s
}

// SetPlane writes m into channel c of a 3-d [rows, cols, channels] array.
func (a *Array) SetPlane(m mat.Matrix, c int) error {
	if len(a.shape) != 3 {
		return fmt.Errorf("ndarray: SetPlane needs a 3-d array, got shape %v", a.shape)
	}
	r, cols := m.Dims()
	if r != a.shape[0] || cols != a.shape[1] {
		return fmt.Errorf("ndarray: plane %dx%d does not fit shape %v", r, cols, a.shape)
	}
	if c < 0 || c >= a.shape[2] {
		return fmt.Errorf("ndarray: channel %d out of range [0,%d)", c, a.shape[2])
	}
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			a.data[i*a.strides[0]+j*a.strides[1]+c] = m.At(i, j)
		}
	}
	return nil
}

// AddPlane adds m into channel c of a 3-d [rows, cols, channels] array.
func (a *Array) AddPlane(m mat.Matrix, c int) error {
	if len(a.shape) != 3 {
		return fmt.Errorf("ndarray: AddPlane needs a 3-d array, got shape %v", a.shape)
	}
	r, cols := m.Dims()
	if r != a.shape[0] || cols != a.shape[1] {
		return fmt.Errorf("ndarray: plane %dx%d does not fit shape %v", r, cols, a.shape)
	}
	if c < 0 || c >= a.shape[2] {
		return fmt.Errorf("ndarray: channel %d out of range [0,%d)", c, a.shape[2])
	}
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			a.data[i*a.strides[0]+j*a.strides[1]+c] += m.At(i, j)
		}
	}
	return nil
}

// Plane extracts channel c of a 3-d [rows, cols, channels] array as a new
// dense matrix.
func (a *Array) Plane(c int) *mat.Dense {
	if len(a.shape) != 3 {
		panic(fmt.Sprintf("ndarray: Plane needs a 3-d array, got shape %v", a.shape))
	}
	r, cols := a.shape[0], a.shape[1]
	m := mat.NewDense(r, cols, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, a.data[i*a.strides[0]+j*a.strides[1]+c])
		}
	}
	return m
}

type jsonArray struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// MarshalJSON encodes the array as {"shape": [...], "data": [...]}.
func (a *Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonArray{Shape: a.shape, Data: a.data})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (a *Array) UnmarshalJSON(b []byte) error {
	var j jsonArray
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	arr, err := FromData(j.Data, j.Shape...)
	if err != nil {
		return err
	}
	*a = *arr
	return nil
}

// MarshalBinary encodes the array as little-endian uint32 rank, uint64
// dimensions and float64 values.
func (a *Array) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 4+8*len(a.shape)+8*len(a.data))
	binary.LittleEndian.PutUint32(buf, uint32(len(a.shape)))
	off := 4
	for _, d := range a.shape {
		binary.LittleEndian.PutUint64(buf[off:], uint64(d))
		off += 8
	}
	for _, v := range a.data {
		binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
		off += 8
	}
	return buf, nil
}

// UnmarshalBinary decodes the form written by MarshalBinary.
func (a *Array) UnmarshalBinary(b []byte) error {
	if len(b) < 4 {
		return fmt.Errorf("ndarray: short buffer")
	}
	rank := int(binary.LittleEndian.Uint32(b))
	b = b[4:]
	if len(b) < 8*rank {
		return fmt.Errorf("ndarray: truncated shape")
	}
	shape := make([]int, rank)
	for i := range shape {
		d := binary.LittleEndian.Uint64(b[8*i:])
		if d > math.MaxInt {
			return fmt.Errorf("ndarray: dimension %d out of range", d)
		}
		shape[i] = int(d)
	}
	size, err := shapeSize(shape)
	if err != nil {
		return err
	}
	b = b[8*rank:]
	if len(b)%8 != 0 || len(b)/8 != size {
		return fmt.Errorf("ndarray: shape %v needs %d values, got %d bytes", shape, size, len(b))
	}
	data := make([]float64, size)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	*a = Array{shape: shape, strides: stridesFor(shape), data: data}
	return nil
}
