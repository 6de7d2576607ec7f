package window

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindowSpec is returned for malformed window, step or axis vectors.
	ErrInvalidWindowSpec = errors.New("invalid window specification")

	// ErrWindowExceedsExtent is returned when a window (times its window step)
	// does not fit into the array along some axis.
	ErrWindowExceedsExtent = errors.New("window exceeds array extent")
)

// Options adjusts how Rolling places windows. The zero value gives
// maximally overlapping windows whose dimensions are appended after the
// grid dimensions.
type Options struct {
	// Steps are the strides between consecutive window positions, aligned
	// at the trailing axes of the array. Missing leading entries are 1.
	Steps []int

	// WindowSteps dilate the window: element k of a window along axis i is
	// taken at k*WindowSteps[i]. Must have the window's length. A step of 0
	// repeats the first value. Entries for unwindowed axes are forced to 1.
	WindowSteps []int

	// Axes, when set, names the axis each window entry applies to instead
	// of aligning the window at the trailing axes. Negative axes count from
	// the end.
	Axes []int

	// Interleave places each window dimension right after the grid
	// dimension it belongs to instead of after all grid dimensions.
	Interleave bool
}

// Rolling returns a view over data, a row-major array of the given shape,
// in which every window position is an element of a grid. With the default
// layout the view has shape grid ++ window: indexing the leading len(shape)
// axes selects a window, the trailing axes address elements inside it.
//
// The window may be shorter than shape, in which case it applies to the
// trailing axes. A window size of 0 leaves that axis unwindowed; it keeps
// its grid dimension and gets no window dimension.
//
// The grid extent along axis i is ceil((n - w*ws + ws) / s) for extent n,
// window w, window step ws and step s, which for ws == 1 equals
// floor((n - w) / s) + 1. Window positions that would run past the end of
// an axis are not generated.
//
// No element is copied. The view shares data with the caller and must be
// treated as read-only.
func Rolling[T any](data []T, shape []int, window []int, opts *Options) (*View[T], error) {
	if opts == nil {
		opts = &Options{}
	}

	ndim := len(shape)
	if ndim == 0 {
		return nil, fmt.Errorf("%w: array has no axes", ErrInvalidWindowSpec)
	}
	size := 1
	for _, n := range shape {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative extent in shape %v", ErrInvalidWindowSpec, shape)
		}
		size *= n
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d", ErrInvalidWindowSpec, shape, size, len(data))
	}

	w, err := resolveWindow(window, opts.Axes, ndim)
	if err != nil {
		return nil, err
	}
	lead := ndim - len(w)

	steps := ones(ndim)
	if len(opts.Steps) > 0 {
		if len(opts.Steps) > ndim {
			return nil, fmt.Errorf("%w: %d steps for %d axes", ErrInvalidWindowSpec, len(opts.Steps), ndim)
		}
		off := ndim - len(opts.Steps)
		for i, s := range opts.Steps {
			if s < 1 {
				return nil, fmt.Errorf("%w: step %d must be at least 1", ErrInvalidWindowSpec, s)
			}
			steps[off+i] = s
		}
	}

	wsteps := ones(len(w))
	if opts.WindowSteps != nil {
		if len(opts.WindowSteps) != len(w) {
			return nil, fmt.Errorf("%w: %d window steps for window of length %d",
				ErrInvalidWindowSpec, len(opts.WindowSteps), len(w))
		}
		for i, s := range opts.WindowSteps {
			if s < 0 {
				return nil, fmt.Errorf("%w: window step %d must not be negative", ErrInvalidWindowSpec, s)
			}
			if w[i] != 0 {
				wsteps[i] = s
			}
		}
	}

	for i := range w {
		if n := shape[lead+i]; n < w[i]*wsteps[i] {
			return nil, fmt.Errorf("%w: window %d (step %d) on axis %d of extent %d",
				ErrWindowExceedsExtent, w[i], wsteps[i], lead+i, n)
		}
	}

	native := contiguousStrides(shape)

	grid := append([]int(nil), shape...)
	for i := range w {
		wi := w[i]
		if wi == 0 {
			wi = 1
		}
		grid[lead+i] += wsteps[i] - wi*wsteps[i]
	}
	gridStrides := make([]int, ndim)
	for k := range grid {
		grid[k] = (grid[k] + steps[k] - 1) / steps[k]
		if grid[k] < 1 {
			grid[k] = 1
		}
		gridStrides[k] = native[k] * steps[k]
	}

	winShape := make([]int, ndim)
	winStrides := make([]int, ndim)
	for i := range w {
		winShape[lead+i] = w[i]
		winStrides[lead+i] = native[lead+i] * wsteps[i]
	}

	var outShape, outStrides []int
	if opts.Interleave {
		for k := 0; k < ndim; k++ {
			outShape = append(outShape, grid[k], winShape[k])
			outStrides = append(outStrides, gridStrides[k], winStrides[k])
		}
	} else {
		outShape = append(append(outShape, grid...), winShape[lead:]...)
		outStrides = append(append(outStrides, gridStrides...), winStrides[lead:]...)
	}

	// Unwindowed axes have no window dimension.
	v := &View[T]{data: data}
	for k, n := range outShape {
		if n == 0 {
			continue
		}
		v.shape = append(v.shape, n)
		v.strides = append(v.strides, outStrides[k])
	}

	if err := v.checkBounds(); err != nil {
		return nil, err
	}
	return v, nil
}

// resolveWindow expands the window to one entry per trailing axis, placing
// entries on explicit axes when given.
func resolveWindow(window, axes []int, ndim int) ([]int, error) {
	w := append([]int(nil), window...)
	if len(axes) > 0 {
		if len(axes) != len(window) {
			return nil, fmt.Errorf("%w: %d axes for window of length %d", ErrInvalidWindowSpec, len(axes), len(window))
		}
		w = make([]int, ndim)
		for i, ax := range axes {
			if ax < 0 {
				ax += ndim
			}
			if ax < 0 || ax >= ndim {
				return nil, fmt.Errorf("%w: axis %d out of range for %d axes", ErrInvalidWindowSpec, axes[i], ndim)
			}
			w[ax] = window[i]
		}
	}

	if len(w) == 0 {
		return nil, fmt.Errorf("%w: empty window", ErrInvalidWindowSpec)
	}
	if len(w) > ndim {
		return nil, fmt.Errorf("%w: window length %d exceeds array rank %d", ErrInvalidWindowSpec, len(w), ndim)
	}
	for _, n := range w {
		if n < 0 {
			return nil, fmt.Errorf("%w: window size %d must not be negative", ErrInvalidWindowSpec, n)
		}
	}
	return w, nil
}

func ones(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

// contiguousStrides returns row-major element strides for shape.
func contiguousStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}
