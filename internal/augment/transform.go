package augment

import (
	"fmt"
	"math"

	"github.com/s1s2water/tileprep/internal/raster"
)

// FlipMode selects the axes a flip mirrors.
type FlipMode int

const (
	FlipNone FlipMode = iota
	FlipVertical
	FlipHorizontal
	FlipBoth
)

func (m FlipMode) String() string {
	switch m {
	case FlipVertical:
		return "vertical"
	case FlipHorizontal:
		return "horizontal"
	case FlipBoth:
		return "both"
	}
	return "none"
}

// Rot90 rotates a counter-clockwise by k quarter turns. Odd k swaps the
// row and column extents.
func Rot90[T raster.Number](a *raster.Array[T], k int) *raster.Array[T] {
	rows, cols, bands := a.Shape()
	k = ((k % 4) + 4) % 4

	outRows, outCols := rows, cols
	if k%2 == 1 {
		outRows, outCols = cols, rows
	}
	out := raster.New[T](outRows, outCols, bands)
	for i := 0; i < outRows; i++ {
		for j := 0; j < outCols; j++ {
			var r, c int
			switch k {
			case 0:
				r, c = i, j
			case 1:
				r, c = j, cols-1-i
			case 2:
				r, c = rows-1-i, cols-1-j
			case 3:
				r, c = rows-1-j, i
			}
			for b := 0; b < bands; b++ {
				out.Set(i, j, b, a.At(r, c, b))
			}
		}
	}
	return out
}

// Flip mirrors a along the axes selected by mode.
func Flip[T raster.Number](a *raster.Array[T], mode FlipMode) *raster.Array[T] {
	rows, cols, bands := a.Shape()
	out := raster.New[T](rows, cols, bands)
	for i := 0; i < rows; i++ {
		r := i
		if mode == FlipVertical || mode == FlipBoth {
			r = rows - 1 - i
		}
		for j := 0; j < cols; j++ {
			c := j
			if mode == FlipHorizontal || mode == FlipBoth {
				c = cols - 1 - j
			}
			for b := 0; b < bands; b++ {
				out.Set(i, j, b, a.At(r, c, b))
			}
		}
	}
	return out
}

// ResizeNearest resamples a to rows x cols taking the source pixel at
// floor(dst * src/dst).
func ResizeNearest[T raster.Number](a *raster.Array[T], rows, cols int) (*raster.Array[T], error) {
	srcRows, srcCols, bands := a.Shape()
	if err := checkResize(srcRows, srcCols, rows, cols); err != nil {
		return nil, err
	}

	fy := float64(srcRows) / float64(rows)
	fx := float64(srcCols) / float64(cols)
	out := raster.New[T](rows, cols, bands)
	for i := 0; i < rows; i++ {
		r := min(int(math.Floor(float64(i)*fy)), srcRows-1)
		for j := 0; j < cols; j++ {
			c := min(int(math.Floor(float64(j)*fx)), srcCols-1)
			for b := 0; b < bands; b++ {
				out.Set(i, j, b, a.At(r, c, b))
			}
		}
	}
	return out, nil
}

// ResizeBilinear resamples a to rows x cols with pixel-centre aligned
// bilinear interpolation. Samples outside the source clamp to the edge.
func ResizeBilinear(a *raster.Array[float32], rows, cols int) (*raster.Array[float32], error) {
	srcRows, srcCols, bands := a.Shape()
	if err := checkResize(srcRows, srcCols, rows, cols); err != nil {
		return nil, err
	}

	ys := bilinearTaps(srcRows, rows)
	xs := bilinearTaps(srcCols, cols)
	out := raster.New[float32](rows, cols, bands)
	for i, y := range ys {
		for j, x := range xs {
			for b := 0; b < bands; b++ {
				top := a.At(y.lo, x.lo, b)*(1-x.w) + a.At(y.lo, x.hi, b)*x.w
				bottom := a.At(y.hi, x.lo, b)*(1-x.w) + a.At(y.hi, x.hi, b)*x.w
				out.Set(i, j, b, top*(1-y.w)+bottom*y.w)
			}
		}
	}
	return out, nil
}

type tap struct {
	lo, hi int
	w      float32
}

func bilinearTaps(src, dst int) []tap {
	scale := float64(src) / float64(dst)
	taps := make([]tap, dst)
	for d := range taps {
		f := (float64(d)+0.5)*scale - 0.5
		s := int(math.Floor(f))
		w := f - float64(s)
		if s < 0 {
			s, w = 0, 0
		}
		if s >= src-1 {
			s, w = src-1, 0
		}
		taps[d] = tap{lo: s, hi: min(s+1, src-1), w: float32(w)}
	}
	return taps
}

func checkResize(srcRows, srcCols, rows, cols int) error {
	if srcRows == 0 || srcCols == 0 {
		return fmt.Errorf("cannot resize empty raster (%d, %d)", srcRows, srcCols)
	}
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("invalid target size (%d, %d)", rows, cols)
	}
	return nil
}

// Scale resizes a by factor, truncating the new extent towards zero.
func Scale[T raster.Number](a *raster.Array[T], factor float64, resize func(*raster.Array[T], int, int) (*raster.Array[T], error)) (*raster.Array[T], error) {
	rows, cols, _ := a.Shape()
	return resize(a, int(float64(rows)*factor), int(float64(cols)*factor))
}

// BrightnessContrast returns a*alpha + beta*maxValue clipped to
// [0, maxValue].
func BrightnessContrast(a *raster.Array[float32], alpha, beta, maxValue float64) *raster.Array[float32] {
	out := a.Clone()
	data := out.Data()
	shift := float32(beta * maxValue)
	for i, v := range data {
		v = v*float32(alpha) + shift
		data[i] = float32(math.Max(0, math.Min(maxValue, float64(v))))
	}
	return out
}

// RandomCrop cuts a rows x cols window whose origin is placed at fractions
// (fy, fx) in [0, 1) of the free range.
func RandomCrop[T raster.Number](a *raster.Array[T], rows, cols int, fy, fx float64) (*raster.Array[T], error) {
	srcRows, srcCols, _ := a.Shape()
	if rows > srcRows || cols > srcCols {
		return nil, fmt.Errorf("crop (%d, %d) larger than raster (%d, %d)", rows, cols, srcRows, srcCols)
	}
	r0 := int(float64(srcRows-rows+1) * fy)
	c0 := int(float64(srcCols-cols+1) * fx)
	return a.Crop(r0, c0, r0+rows, c0+cols)
}
