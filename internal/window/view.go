package window

import "fmt"

// View is a read-only strided reinterpretation of a flat buffer. Several
// positions of a View may address the same element of the buffer.
type View[T any] struct {
	data    []T
	offset  int
	shape   []int
	strides []int
}

// Shape returns a copy of the view's extents.
func (v *View[T]) Shape() []int {
	return append([]int(nil), v.shape...)
}

// Strides returns a copy of the view's element strides.
func (v *View[T]) Strides() []int {
	return append([]int(nil), v.strides...)
}

// Rank returns the number of axes.
func (v *View[T]) Rank() int {
	return len(v.shape)
}

// Len returns the number of addressable positions.
func (v *View[T]) Len() int {
	n := 1
	for _, s := range v.shape {
		n *= s
	}
	return n
}

// At returns the element at the given position. Like slice indexing it
// panics when the position is out of range.
func (v *View[T]) At(idx ...int) T {
	if len(idx) != len(v.shape) {
		panic(fmt.Sprintf("window: %d indices for view of rank %d", len(idx), len(v.shape)))
	}
	off := v.offset
	for k, i := range idx {
		if i < 0 || i >= v.shape[k] {
			panic(fmt.Sprintf("window: index %d out of range [0,%d) on axis %d", i, v.shape[k], k))
		}
		off += i * v.strides[k]
	}
	return v.data[off]
}

// Sub fixes the leading len(idx) axes and returns the remaining axes as a
// view onto the same buffer.
func (v *View[T]) Sub(idx ...int) (*View[T], error) {
	if len(idx) > len(v.shape) {
		return nil, fmt.Errorf("%d indices for view of rank %d", len(idx), len(v.shape))
	}
	off := v.offset
	for k, i := range idx {
		if i < 0 || i >= v.shape[k] {
			return nil, fmt.Errorf("index %d out of range [0,%d) on axis %d", i, v.shape[k], k)
		}
		off += i * v.strides[k]
	}
	return &View[T]{
		data:    v.data,
		offset:  off,
		shape:   v.shape[len(idx):],
		strides: v.strides[len(idx):],
	}, nil
}

// Copy materializes the view in row-major order of its own shape.
func (v *View[T]) Copy() []T {
	n := v.Len()
	out := make([]T, 0, n)
	if n == 0 {
		return out
	}
	if len(v.shape) == 0 {
		return append(out, v.data[v.offset])
	}

	idx := make([]int, len(v.shape))
	last := len(v.shape) - 1
	inner, innerStride := v.shape[last], v.strides[last]
	off := v.offset
	for {
		if innerStride == 1 {
			out = append(out, v.data[off:off+inner]...)
		} else {
			for i, p := 0, off; i < inner; i, p = i+1, p+innerStride {
				out = append(out, v.data[p])
			}
		}

		// Advance the odometer over all but the innermost axis.
		k := last - 1
		for ; k >= 0; k-- {
			idx[k]++
			off += v.strides[k]
			if idx[k] < v.shape[k] {
				break
			}
			off -= idx[k] * v.strides[k]
			idx[k] = 0
		}
		if k < 0 {
			return out
		}
	}
}

// checkBounds verifies every addressable position lies inside the buffer.
func (v *View[T]) checkBounds() error {
	if v.Len() == 0 {
		return nil
	}
	hi := v.offset
	for k, n := range v.shape {
		if v.strides[k] < 0 {
			return fmt.Errorf("%w: negative stride %d", ErrInvalidWindowSpec, v.strides[k])
		}
		hi += (n - 1) * v.strides[k]
	}
	if hi >= len(v.data) {
		return fmt.Errorf("%w: view reaches element %d of a %d element buffer", ErrWindowExceedsExtent, hi, len(v.data))
	}
	return nil
}
