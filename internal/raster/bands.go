package raster

import "fmt"

// SelectBands returns a new array holding the given bands in the given order.
func (a *Array[T]) SelectBands(idx ...int) (*Array[T], error) {
	if len(idx) == 0 {
		return nil, fmt.Errorf("no bands selected")
	}
	for _, b := range idx {
		if b < 0 || b >= a.bands {
			return nil, fmt.Errorf("band index %d outside raster with %d bands", b, a.bands)
		}
	}

	out := New[T](a.rows, a.cols, len(idx))
	n := a.rows * a.cols
	for p := 0; p < n; p++ {
		src := a.data[p*a.bands : (p+1)*a.bands]
		dst := out.data[p*out.bands : (p+1)*out.bands]
		for i, b := range idx {
			dst[i] = src[b]
		}
	}
	return out, nil
}

// AppendBands stacks b behind the bands of a. Both arrays must share the
// same spatial extent.
func AppendBands[T Number](a, b *Array[T]) (*Array[T], error) {
	if a.rows != b.rows || a.cols != b.cols {
		return nil, fmt.Errorf("cannot stack raster (%d, %d) onto raster (%d, %d)", b.rows, b.cols, a.rows, a.cols)
	}

	out := New[T](a.rows, a.cols, a.bands+b.bands)
	n := a.rows * a.cols
	for p := 0; p < n; p++ {
		dst := out.data[p*out.bands : (p+1)*out.bands]
		copy(dst, a.data[p*a.bands:(p+1)*a.bands])
		copy(dst[a.bands:], b.data[p*b.bands:(p+1)*b.bands])
	}
	return out, nil
}

// SplitBands splits a into its first n bands and the remaining bands.
func (a *Array[T]) SplitBands(n int) (head, tail *Array[T], err error) {
	if n <= 0 || n >= a.bands {
		return nil, nil, fmt.Errorf("cannot split %d bands at %d", a.bands, n)
	}
	headIdx := make([]int, n)
	for i := range headIdx {
		headIdx[i] = i
	}
	tailIdx := make([]int, a.bands-n)
	for i := range tailIdx {
		tailIdx[i] = n + i
	}
	if head, err = a.SelectBands(headIdx...); err != nil {
		return nil, nil, err
	}
	if tail, err = a.SelectBands(tailIdx...); err != nil {
		return nil, nil, err
	}
	return head, tail, nil
}
