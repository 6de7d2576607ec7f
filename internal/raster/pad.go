package raster

import "fmt"

// PadSymmetric returns a new array padded on the spatial axes by mirroring
// values about the edge, the edge value included: [a b c] padded by two on
// both sides becomes [b a a b c c b]. Pads longer than the axis keep
// reflecting, so the padded axis is periodic with period 2*extent. The band
// axis is never padded.
func (a *Array[T]) PadSymmetric(top, bottom, left, right int) (*Array[T], error) {
	if top < 0 || bottom < 0 || left < 0 || right < 0 {
		return nil, fmt.Errorf("negative pad widths (%d, %d, %d, %d)", top, bottom, left, right)
	}
	if (a.rows == 0 && top+bottom > 0) || (a.cols == 0 && left+right > 0) {
		return nil, fmt.Errorf("cannot pad empty axis of raster (%d, %d, %d)", a.rows, a.cols, a.bands)
	}

	out := New[T](a.rows+top+bottom, a.cols+left+right, a.bands)
	colSrc := make([]int, out.cols)
	for c := range colSrc {
		colSrc[c] = symmetricIndex(c-left, a.cols)
	}
	for r := 0; r < out.rows; r++ {
		sr := symmetricIndex(r-top, a.rows)
		dst := out.data[r*out.cols*a.bands : (r+1)*out.cols*a.bands]
		for c, sc := range colSrc {
			src := a.offset(sr, sc, 0)
			copy(dst[c*a.bands:(c+1)*a.bands], a.data[src:src+a.bands])
		}
	}
	return out, nil
}

// symmetricIndex maps a possibly out-of-range position onto [0, n) by
// edge-inclusive reflection.
func symmetricIndex(p, n int) int {
	period := 2 * n
	m := p % period
	if m < 0 {
		m += period
	}
	if m < n {
		return m
	}
	return period - 1 - m
}
