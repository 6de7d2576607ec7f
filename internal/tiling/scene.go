package tiling

import (
	"fmt"

	"github.com/s1s2water/tileprep/internal/raster"
)

// InvalidValue marks pixels without usable data in a validity raster.
const InvalidValue = 0

// KeepIndices returns, in order, the indices of validity tiles that hold no
// InvalidValue. A single invalid pixel excludes the whole tile.
func KeepIndices(validity []raster.Raster) []int {
	keep := make([]int, 0, len(validity))
	for i, v := range validity {
		if !v.Contains(InvalidValue) {
			keep = append(keep, i)
		}
	}
	return keep
}

// CheckPaired returns ErrShapeMismatch unless all tile counts are equal.
func CheckPaired(counts ...int) error {
	if len(counts) < 2 {
		return nil
	}
	for _, n := range counts[1:] {
		if n != counts[0] {
			return fmt.Errorf("%w: tile counts %v", ErrShapeMismatch, counts)
		}
	}
	return nil
}

// Pair is an image tile and its mask tile with their shared index.
type Pair struct {
	Index int
	Image raster.Raster
	Mask  raster.Raster
}

// SceneTiles is the result of tiling one scene.
type SceneTiles struct {
	Layout Layout

	// Pairs holds the kept tiles in index order.
	Pairs []Pair

	// Dropped lists the indices removed by the validity filter.
	Dropped []int
}

// TileScene tiles a co-registered image, mask and optional validity raster
// with the same options and pairs the tiles by index. When valid is non-nil,
// pairs whose validity tile contains InvalidValue are dropped. All rasters
// must share the same spatial extent.
func TileScene(img, msk, valid raster.Raster, opts Options) (*SceneTiles, error) {
	rows, cols, _ := img.Shape()
	if err := sameExtent(img, msk); err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	if valid != nil {
		if err := sameExtent(img, valid); err != nil {
			return nil, fmt.Errorf("validity: %w", err)
		}
	}

	l, err := NewLayout(rows, cols, opts)
	if err != nil {
		return nil, err
	}

	imgTiles, err := TileRaster(img, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to tile image: %w", err)
	}
	mskTiles, err := TileRaster(msk, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to tile mask: %w", err)
	}
	if err := CheckPaired(l.Len(), len(imgTiles), len(mskTiles)); err != nil {
		return nil, err
	}

	keep := make([]int, len(imgTiles))
	for i := range keep {
		keep[i] = i
	}
	if valid != nil {
		validTiles, err := TileRaster(valid, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to tile validity: %w", err)
		}
		if err := CheckPaired(len(imgTiles), len(validTiles)); err != nil {
			return nil, err
		}
		keep = KeepIndices(validTiles)
	}

	st := &SceneTiles{Layout: l, Pairs: make([]Pair, 0, len(keep))}
	next := 0
	for i := range imgTiles {
		if next < len(keep) && keep[next] == i {
			st.Pairs = append(st.Pairs, Pair{Index: i, Image: imgTiles[i], Mask: mskTiles[i]})
			next++
			continue
		}
		st.Dropped = append(st.Dropped, i)
	}
	return st, nil
}

func sameExtent(a, b raster.Raster) error {
	ar, ac, _ := a.Shape()
	br, bc, _ := b.Shape()
	if ar != br || ac != bc {
		return fmt.Errorf("%w: extent %dx%d against %dx%d", ErrShapeMismatch, br, bc, ar, ac)
	}
	return nil
}
