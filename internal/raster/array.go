package raster

import (
	"fmt"
)

// Raster is the type-erased view of an Array. Loaders return it because the
// element type of a file is only known at run time.
type Raster interface {
	// Shape returns the row, column and band extents.
	Shape() (rows, cols, bands int)

	// DType returns the element type.
	DType() DType

	// Float64At returns the element at (row, col, band) widened to float64.
	Float64At(row, col, band int) float64

	// Contains reports whether any element equals v.
	Contains(v float64) bool
}

// Array is a dense row-major (rows, cols, bands) buffer. The band axis is
// always materialized; single band rasters have bands == 1.
type Array[T Number] struct {
	rows, cols, bands int
	data              []T
}

// New allocates a zero-filled array.
func New[T Number](rows, cols, bands int) *Array[T] {
	if rows < 0 || cols < 0 || bands < 0 {
		panic(fmt.Sprintf("raster: negative shape (%d, %d, %d)", rows, cols, bands))
	}
	return &Array[T]{rows: rows, cols: cols, bands: bands, data: make([]T, rows*cols*bands)}
}

// FromSlice wraps data without copying. The caller must not mutate data
// while the array is in use.
func FromSlice[T Number](rows, cols, bands int, data []T) (*Array[T], error) {
	if rows < 0 || cols < 0 || bands < 1 {
		return nil, fmt.Errorf("invalid raster shape (%d, %d, %d)", rows, cols, bands)
	}
	if len(data) != rows*cols*bands {
		return nil, fmt.Errorf("raster shape (%d, %d, %d) needs %d elements, got %d",
			rows, cols, bands, rows*cols*bands, len(data))
	}
	return &Array[T]{rows: rows, cols: cols, bands: bands, data: data}, nil
}

// FromPlane wraps a 2-D (rows, cols) buffer as a single band array.
func FromPlane[T Number](rows, cols int, data []T) (*Array[T], error) {
	return FromSlice(rows, cols, 1, data)
}

// Shape returns the row, column and band extents.
func (a *Array[T]) Shape() (rows, cols, bands int) {
	return a.rows, a.cols, a.bands
}

// Rows returns the row extent.
func (a *Array[T]) Rows() int { return a.rows }

// Cols returns the column extent.
func (a *Array[T]) Cols() int { return a.cols }

// Bands returns the band extent.
func (a *Array[T]) Bands() int { return a.bands }

// Data returns the backing buffer.
func (a *Array[T]) Data() []T { return a.data }

// DType returns the element type.
func (a *Array[T]) DType() DType { return DTypeOf[T]() }

func (a *Array[T]) offset(row, col, band int) int {
	return (row*a.cols+col)*a.bands + band
}

// At returns the element at (row, col, band).
func (a *Array[T]) At(row, col, band int) T {
	return a.data[a.offset(row, col, band)]
}

// Set stores v at (row, col, band).
func (a *Array[T]) Set(row, col, band int, v T) {
	a.data[a.offset(row, col, band)] = v
}

// Float64At returns the element at (row, col, band) as float64.
func (a *Array[T]) Float64At(row, col, band int) float64 {
	return float64(a.At(row, col, band))
}

// Contains reports whether any element equals v.
func (a *Array[T]) Contains(v float64) bool {
	for _, x := range a.data {
		if float64(x) == v {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (a *Array[T]) Clone() *Array[T] {
	data := make([]T, len(a.data))
	copy(data, a.data)
	return &Array[T]{rows: a.rows, cols: a.cols, bands: a.bands, data: data}
}

// Equal reports whether a and b have the same shape and elements.
func (a *Array[T]) Equal(b *Array[T]) bool {
	if a.rows != b.rows || a.cols != b.cols || a.bands != b.bands {
		return false
	}
	for i := range a.data {
		if a.data[i] != b.data[i] {
			return false
		}
	}
	return true
}

// Convert returns a copy of a with every element converted to U.
func Convert[T, U Number](a *Array[T]) *Array[U] {
	out := New[U](a.rows, a.cols, a.bands)
	for i, v := range a.data {
		out.data[i] = U(v)
	}
	return out
}

// As returns r as an *Array[U], converting when the element type differs.
func As[U Number](r Raster) (*Array[U], error) {
	switch t := r.(type) {
	case *Array[U]:
		return t, nil
	case *Array[uint8]:
		return Convert[uint8, U](t), nil
	case *Array[int8]:
		return Convert[int8, U](t), nil
	case *Array[uint16]:
		return Convert[uint16, U](t), nil
	case *Array[int16]:
		return Convert[int16, U](t), nil
	case *Array[uint32]:
		return Convert[uint32, U](t), nil
	case *Array[int32]:
		return Convert[int32, U](t), nil
	case *Array[float32]:
		return Convert[float32, U](t), nil
	case *Array[float64]:
		return Convert[float64, U](t), nil
	}
	return nil, fmt.Errorf("raster type %T not implemented", r)
}
