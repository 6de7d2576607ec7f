package augment

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/s1s2water/tileprep/internal/raster"
	"github.com/s1s2water/tileprep/internal/tiling"
)

// FDA performs Fourier domain adaptation of src towards ref: per band, the
// amplitude spectrum inside the centred low-frequency square of half-size
// floor(min(rows, cols) * beta) is replaced with ref's while src's phase is
// kept. The result is the real part of the inverse transform.
func FDA(src, ref *raster.Array[float32], beta float64) (*raster.Array[float32], error) {
	rows, cols, bands := src.Shape()
	rr, rc, rb := ref.Shape()
	if rr != rows || rc != cols || rb != bands {
		return nil, fmt.Errorf("%w: reference (%d, %d, %d) differs from image (%d, %d, %d)",
			tiling.ErrShapeMismatch, rr, rc, rb, rows, cols, bands)
	}
	if beta < 0 || beta > 1 {
		return nil, fmt.Errorf("fda beta %v outside [0, 1]", beta)
	}
	if rows == 0 || cols == 0 {
		return src.Clone(), nil
	}

	plan := newPlan2D(rows, cols)
	border := int(math.Floor(float64(min(rows, cols)) * beta))
	ys := lowFrequencies(rows, border)
	xs := lowFrequencies(cols, border)

	out := raster.New[float32](rows, cols, bands)
	s := make([]complex128, rows*cols)
	t := make([]complex128, rows*cols)
	for b := 0; b < bands; b++ {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				s[i*cols+j] = complex(float64(src.At(i, j, b)), 0)
				t[i*cols+j] = complex(float64(ref.At(i, j, b)), 0)
			}
		}
		plan.forward(s)
		plan.forward(t)

		for _, y := range ys {
			for _, x := range xs {
				k := y*cols + x
				s[k] = cmplx.Rect(cmplx.Abs(t[k]), cmplx.Phase(s[k]))
			}
		}

		plan.inverse(s)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out.Set(i, j, b, float32(real(s[i*cols+j])))
			}
		}
	}
	return out, nil
}

// lowFrequencies lists the unshifted frequency indices that fall inside
// [c-border, c+border] once the spectrum is centred at c = n/2.
func lowFrequencies(n, border int) []int {
	c := n / 2
	lo, hi := max(c-border, 0), min(c+border+1, n)
	idx := make([]int, 0, hi-lo)
	for k := lo; k < hi; k++ {
		idx = append(idx, ((k-c)%n+n)%n)
	}
	return idx
}

// plan2D runs separable 2-D transforms over row-major data.
type plan2D struct {
	rows, cols int
	rowFFT     *fourier.CmplxFFT
	colFFT     *fourier.CmplxFFT
	rowNorm    float64
	colNorm    float64
	buf, tmp   []complex128
}

func newPlan2D(rows, cols int) *plan2D {
	p := &plan2D{
		rows:   rows,
		cols:   cols,
		rowFFT: fourier.NewCmplxFFT(cols),
		colFFT: fourier.NewCmplxFFT(rows),
		buf:    make([]complex128, max(rows, cols)),
		tmp:    make([]complex128, max(rows, cols)),
	}
	p.rowNorm = roundTripGain(p.rowFFT, cols)
	p.colNorm = roundTripGain(p.colFFT, rows)
	return p
}

// roundTripGain returns the factor a forward then inverse transform of
// length n scales its input by.
func roundTripGain(f *fourier.CmplxFFT, n int) float64 {
	impulse := make([]complex128, n)
	impulse[0] = 1
	back := f.Sequence(nil, f.Coefficients(nil, impulse))
	return real(back[0])
}

func (p *plan2D) forward(data []complex128) {
	p.apply(data, func(f *fourier.CmplxFFT, dst, src []complex128) { f.Coefficients(dst, src) }, 1, 1)
}

func (p *plan2D) inverse(data []complex128) {
	p.apply(data, func(f *fourier.CmplxFFT, dst, src []complex128) { f.Sequence(dst, src) }, p.rowNorm, p.colNorm)
}

func (p *plan2D) apply(data []complex128, transform func(f *fourier.CmplxFFT, dst, src []complex128), rowNorm, colNorm float64) {
	in, out := p.buf[:p.cols], p.tmp[:p.cols]
	for i := 0; i < p.rows; i++ {
		row := data[i*p.cols : (i+1)*p.cols]
		copy(in, row)
		transform(p.rowFFT, out, in)
		for j, v := range out {
			row[j] = v / complex(rowNorm, 0)
		}
	}

	in, out = p.buf[:p.rows], p.tmp[:p.rows]
	for j := 0; j < p.cols; j++ {
		for i := 0; i < p.rows; i++ {
			in[i] = data[i*p.cols+j]
		}
		transform(p.colFFT, out, in)
		for i, v := range out {
			data[i*p.cols+j] = v / complex(colNorm, 0)
		}
	}
}
