package tiling

import (
	"fmt"

	"github.com/s1s2water/tileprep/internal/raster"
	"github.com/s1s2water/tileprep/internal/window"
)

// Tile splits a into equally sized tiles following opts. Tiles are returned
// in row-major grid order and own their data; their element type and band
// count equal those of a. A raster too small for one tile without padding
// gives an empty, non-nil slice.
func Tile[T raster.Number](a *raster.Array[T], opts Options) ([]*raster.Array[T], error) {
	rows, cols, _ := a.Shape()
	l, err := NewLayout(rows, cols, opts)
	if err != nil {
		return nil, err
	}
	return tileLayout(a, l)
}

func tileLayout[T raster.Number](a *raster.Array[T], l Layout) ([]*raster.Array[T], error) {
	tiles := make([]*raster.Array[T], 0, l.Len())
	if l.Len() == 0 {
		return tiles, nil
	}

	src := a
	if l.Padded() {
		var err error
		src, err = a.PadSymmetric(l.PadTop, l.PadBottom, l.PadLeft, l.PadRight)
		if err != nil {
			return nil, fmt.Errorf("failed to pad raster: %w", err)
		}
	}

	rows, cols, bands := src.Shape()
	grid, err := window.Rolling(src.Data(), []int{rows, cols, bands},
		[]int{l.TileRows, l.TileCols, bands},
		&window.Options{Steps: []int{l.StepRows, l.StepCols, bands}})
	if err != nil {
		return nil, err
	}
	if shape := grid.Shape(); shape[0] != l.GridRows || shape[1] != l.GridCols {
		return nil, fmt.Errorf("%w: window grid %dx%d, layout %dx%d",
			ErrShapeMismatch, shape[0], shape[1], l.GridRows, l.GridCols)
	}

	for i := 0; i < l.GridRows; i++ {
		for j := 0; j < l.GridCols; j++ {
			cell, err := grid.Sub(i, j, 0)
			if err != nil {
				return nil, err
			}
			t, err := raster.FromSlice(l.TileRows, l.TileCols, bands, cell.Copy())
			if err != nil {
				return nil, err
			}
			tiles = append(tiles, t)
		}
	}
	return tiles, nil
}

// TileRaster tiles a raster whose element type is only known at run time.
// The element type is preserved.
func TileRaster(r raster.Raster, opts Options) ([]raster.Raster, error) {
	switch t := r.(type) {
	case *raster.Array[uint8]:
		return erase(Tile(t, opts))
	case *raster.Array[int8]:
		return erase(Tile(t, opts))
	case *raster.Array[uint16]:
		return erase(Tile(t, opts))
	case *raster.Array[int16]:
		return erase(Tile(t, opts))
	case *raster.Array[uint32]:
		return erase(Tile(t, opts))
	case *raster.Array[int32]:
		return erase(Tile(t, opts))
	case *raster.Array[float32]:
		return erase(Tile(t, opts))
	case *raster.Array[float64]:
		return erase(Tile(t, opts))
	}
	return nil, fmt.Errorf("raster type %T not implemented", r)
}

func erase[T raster.Number](tiles []*raster.Array[T], err error) ([]raster.Raster, error) {
	if err != nil {
		return nil, err
	}
	out := make([]raster.Raster, len(tiles))
	for i, t := range tiles {
		out[i] = t
	}
	return out, nil
}
