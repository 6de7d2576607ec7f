package raster

import "fmt"

// Crop extracts the region with inclusive top-left (row1, col1) and exclusive
// bottom-right (row2, col2) into a new array. All bands are kept.
func (a *Array[T]) Crop(row1, col1, row2, col2 int) (*Array[T], error) {
	if row1 < 0 || col1 < 0 || row2 > a.rows || col2 > a.cols {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside raster bounds (0,0)-(%d,%d)",
			row1, col1, row2, col2, a.rows, a.cols)
	}
	if row1 >= row2 || col1 >= col2 {
		return nil, fmt.Errorf("invalid crop region: row1 must be < row2, col1 must be < col2")
	}

	out := New[T](row2-row1, col2-col1, a.bands)
	width := out.cols * a.bands
	for r := row1; r < row2; r++ {
		src := a.offset(r, col1, 0)
		copy(out.data[(r-row1)*width:(r-row1+1)*width], a.data[src:src+width])
	}
	return out, nil
}
