package tiling

import (
	"errors"
	"fmt"

	"github.com/s1s2water/tileprep/internal/window"
)

var (
	// ErrInvalidTileSize is returned for non-positive tile extents.
	ErrInvalidTileSize = fmt.Errorf("%w: tile size must be positive", window.ErrInvalidWindowSpec)

	// ErrInvalidOverlap is returned for negative overlap fractions.
	ErrInvalidOverlap = fmt.Errorf("%w: overlap must not be negative", window.ErrInvalidWindowSpec)

	// ErrZeroStep is returned when the overlap leaves no distance between
	// neighbouring tiles along some axis.
	ErrZeroStep = errors.New("overlap resolves to a zero step")

	// ErrShapeMismatch is returned when rasters or tile sequences that are
	// paired by index disagree in extent or count.
	ErrShapeMismatch = errors.New("tile grids do not match")
)

// Options configures tile extraction.
//
// XSize is the tile extent along the row axis and YSize along the column
// axis, so tiles have shape (XSize, YSize, bands). Padding mirrors the rows
// by YSize-derived widths and the columns by XSize-derived widths. For
// square tiles the distinction vanishes; for non-square tiles it is kept so
// tile counts and indices agree with datasets prepared earlier.
type Options struct {
	XSize   int
	YSize   int
	Overlap float64
	Padding bool
}

// Validate checks the options without reference to any raster.
func (o Options) Validate() error {
	if o.XSize <= 0 || o.YSize <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidTileSize, o.XSize, o.YSize)
	}
	if o.Overlap < 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidOverlap, o.Overlap)
	}
	xs, ys := o.steps()
	if o.Overlap >= 1 || xs <= 0 || ys <= 0 {
		return fmt.Errorf("%w: overlap %g on %dx%d tiles gives steps %dx%d", ErrZeroStep, o.Overlap, o.XSize, o.YSize, xs, ys)
	}
	return nil
}

func (o Options) steps() (xstep, ystep int) {
	x, y := float64(o.XSize), float64(o.YSize)
	return int(x - x*o.Overlap), int(y - y*o.Overlap)
}

// Layout is the tile geometry for one raster extent: how the raster is
// padded, where windows start, and how many fit.
type Layout struct {
	// Rows and Cols are the unpadded raster extent.
	Rows, Cols int

	// Pad widths on each side. All zero without padding.
	PadTop, PadBottom, PadLeft, PadRight int

	// TileRows and TileCols are the tile extent.
	TileRows, TileCols int

	// StepRows and StepCols separate neighbouring tile origins.
	StepRows, StepCols int

	// GridRows and GridCols count tile positions down and across.
	GridRows, GridCols int
}

// NewLayout computes the tile geometry for a rows x cols raster.
//
// Without padding, positions where a full tile does not fit are skipped;
// a raster smaller than one tile has an empty layout. With padding, the
// leading edge is padded by floor(size*overlap) and the trailing edge by
// size+1+floor(size*overlap), which always leaves room for a tile covering
// the last source pixel. A raster with a zero extent has an empty layout.
func NewLayout(rows, cols int, opts Options) (Layout, error) {
	if err := opts.Validate(); err != nil {
		return Layout{}, err
	}
	if rows < 0 || cols < 0 {
		return Layout{}, fmt.Errorf("%w: negative raster extent %dx%d", window.ErrInvalidWindowSpec, rows, cols)
	}

	l := Layout{Rows: rows, Cols: cols, TileRows: opts.XSize, TileCols: opts.YSize}
	l.StepRows, l.StepCols = opts.steps()
	if rows == 0 || cols == 0 {
		return l, nil
	}

	if opts.Padding {
		ylead := int(float64(opts.YSize) * opts.Overlap)
		xlead := int(float64(opts.XSize) * opts.Overlap)
		l.PadTop, l.PadBottom = ylead, opts.YSize+1+ylead
		l.PadLeft, l.PadRight = xlead, opts.XSize+1+xlead
	}

	pr, pc := l.PaddedRows(), l.PaddedCols()
	if pr < l.TileRows || pc < l.TileCols {
		if !opts.Padding {
			return l, nil
		}
		return Layout{}, fmt.Errorf("%w: %dx%d tile on %dx%d padded raster",
			window.ErrWindowExceedsExtent, l.TileRows, l.TileCols, pr, pc)
	}

	l.GridRows = (pr-l.TileRows)/l.StepRows + 1
	l.GridCols = (pc-l.TileCols)/l.StepCols + 1
	return l, nil
}

// PaddedRows returns the row extent after padding.
func (l Layout) PaddedRows() int { return l.Rows + l.PadTop + l.PadBottom }

// PaddedCols returns the column extent after padding.
func (l Layout) PaddedCols() int { return l.Cols + l.PadLeft + l.PadRight }

// Padded reports whether the layout pads the raster.
func (l Layout) Padded() bool {
	return l.PadTop+l.PadBottom+l.PadLeft+l.PadRight > 0
}

// Len returns the number of tiles.
func (l Layout) Len() int { return l.GridRows * l.GridCols }

// Index returns the tile index of grid position (i, j). Indices run across
// columns first, then down rows.
func (l Layout) Index(i, j int) int { return i*l.GridCols + j }

// Position returns the grid position of a tile index.
func (l Layout) Position(index int) (i, j int) {
	return index / l.GridCols, index % l.GridCols
}

// Origin returns the top-left pixel of a tile in unpadded raster
// coordinates. Tiles touching the padding have negative origins.
func (l Layout) Origin(index int) (row, col int) {
	i, j := l.Position(index)
	return i*l.StepRows - l.PadTop, j*l.StepCols - l.PadLeft
}
