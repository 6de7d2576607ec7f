package tiling

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/s1s2water/tileprep/internal/raster"
	"github.com/s1s2water/tileprep/internal/window"
)

// sequential returns a (rows, cols, bands) array holding 0, 1, 2, ... in
// row-major order.
func sequential[T raster.Number](t *testing.T, rows, cols, bands int) *raster.Array[T] {
	t.Helper()
	data := make([]T, rows*cols*bands)
	for i := range data {
		data[i] = T(i)
	}
	a, err := raster.FromSlice(rows, cols, bands, data)
	if err != nil {
		t.Fatalf("failed to build raster: %v", err)
	}
	return a
}

// filled returns a (rows, cols, 1) array with every element set to v.
func filled[T raster.Number](t *testing.T, rows, cols int, v T) *raster.Array[T] {
	t.Helper()
	a := raster.New[T](rows, cols, 1)
	for i := range a.Data() {
		a.Data()[i] = v
	}
	return a
}

// expectedCount computes the tile count from the stepping formula without
// going through Layout.
func expectedCount(rows, cols int, o Options) int {
	xs := int(float64(o.XSize) - float64(o.XSize)*o.Overlap)
	ys := int(float64(o.YSize) - float64(o.YSize)*o.Overlap)
	if o.Padding {
		rows += 2*int(float64(o.YSize)*o.Overlap) + o.YSize + 1
		cols += 2*int(float64(o.XSize)*o.Overlap) + o.XSize + 1
	}
	if rows < o.XSize || cols < o.YSize {
		return 0
	}
	return ((rows-o.XSize)/xs + 1) * ((cols-o.YSize)/ys + 1)
}

func TestTile_SequentialScenario(t *testing.T) {
	a := sequential[int32](t, 6, 6, 1)

	tiles, err := Tile(a, Options{XSize: 3, YSize: 3})
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	if len(tiles) != 4 {
		t.Fatalf("tile count: got %d, want 4", len(tiles))
	}

	want := map[int][]int32{
		0: {0, 1, 2, 6, 7, 8, 12, 13, 14},
		1: {3, 4, 5, 9, 10, 11, 15, 16, 17},
		2: {18, 19, 20, 24, 25, 26, 30, 31, 32},
		3: {21, 22, 23, 27, 28, 29, 33, 34, 35},
	}
	for i, w := range want {
		if diff := cmp.Diff(w, tiles[i].Data()); diff != "" {
			t.Errorf("tile %d mismatch (-want +got):\n%s", i, diff)
		}
		if r, c, b := tiles[i].Shape(); r != 3 || c != 3 || b != 1 {
			t.Errorf("tile %d shape: got (%d,%d,%d), want (3,3,1)", i, r, c, b)
		}
	}
}

func TestTile_CountMatchesFormula(t *testing.T) {
	for _, padding := range []bool{false, true} {
		for _, overlap := range []float64{0, 0.25, 0.5} {
			for size := 1; size <= 5; size++ {
				opts := Options{XSize: size, YSize: size, Overlap: overlap, Padding: padding}
				if opts.Validate() != nil {
					continue
				}
				for rows := 1; rows <= 12; rows++ {
					for cols := 1; cols <= 12; cols += 3 {
						name := fmt.Sprintf("pad=%v/ov=%g/size=%d/%dx%d", padding, overlap, size, rows, cols)
						a := sequential[uint8](t, rows, cols, 2)
						tiles, err := Tile(a, opts)
						if err != nil {
							t.Fatalf("%s: Tile failed: %v", name, err)
						}
						if want := expectedCount(rows, cols, opts); len(tiles) != want {
							t.Errorf("%s: tile count got %d, want %d", name, len(tiles), want)
						}
					}
				}
			}
		}
	}
}

func TestTile_NonSquareCount(t *testing.T) {
	a := sequential[uint8](t, 10, 7, 1)
	opts := Options{XSize: 4, YSize: 2}

	tiles, err := Tile(a, opts)
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	// XSize spans rows: (10-4)/4+1 = 2 positions down, (7-2)/2+1 = 3 across.
	if len(tiles) != 6 {
		t.Fatalf("tile count: got %d, want 6", len(tiles))
	}
	if r, c, _ := tiles[0].Shape(); r != 4 || c != 2 {
		t.Errorf("tile shape: got %dx%d, want 4x2", r, c)
	}
	if got := tiles[4].At(0, 0, 0); got != 4*7+2 {
		t.Errorf("tile 4 origin value: got %d, want %d", got, 4*7+2)
	}
}

func TestTile_RoundTrip(t *testing.T) {
	a := sequential[float32](t, 6, 9, 2)

	tiles, err := Tile(a, Options{XSize: 3, YSize: 3})
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}

	gridCols := 3
	out := raster.New[float32](6, 9, 2)
	for idx, tile := range tiles {
		r0, c0 := (idx/gridCols)*3, (idx%gridCols)*3
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				for b := 0; b < 2; b++ {
					out.Set(r0+r, c0+c, b, tile.At(r, c, b))
				}
			}
		}
	}
	if !out.Equal(a) {
		t.Error("reassembled tiles do not reconstruct the source")
	}
}

func TestTile_Idempotent(t *testing.T) {
	a := sequential[int16](t, 11, 13, 3)
	opts := Options{XSize: 4, YSize: 4, Overlap: 0.25, Padding: true}

	first, err := Tile(a, opts)
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	second, err := Tile(a, opts)
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("tile counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("tile %d differs between runs", i)
		}
	}
}

func TestTile_DoesNotMutateSource(t *testing.T) {
	a := sequential[int16](t, 5, 5, 1)
	before := a.Clone()

	tiles, err := Tile(a, Options{XSize: 2, YSize: 2, Padding: true})
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	tiles[0].Set(0, 0, 0, 99)
	if !a.Equal(before) {
		t.Error("source raster changed")
	}
}

func TestTile_SmallerThanTile(t *testing.T) {
	a, _ := raster.FromSlice(2, 2, 1, []uint8{1, 2, 3, 4})

	tiles, err := Tile(a, Options{XSize: 4, YSize: 4})
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	if tiles == nil || len(tiles) != 0 {
		t.Errorf("without padding: got %v, want empty slice", tiles)
	}

	tiles, err = Tile(a, Options{XSize: 4, YSize: 4, Padding: true})
	if err != nil {
		t.Fatalf("Tile with padding failed: %v", err)
	}
	if len(tiles) != 1 {
		t.Fatalf("with padding: got %d tiles, want 1", len(tiles))
	}
	want := []uint8{
		1, 2, 2, 1,
		3, 4, 4, 3,
		3, 4, 4, 3,
		1, 2, 2, 1,
	}
	if diff := cmp.Diff(want, tiles[0].Data()); diff != "" {
		t.Errorf("padded tile mismatch (-want +got):\n%s", diff)
	}
}

func TestTile_TrailingOverPadding(t *testing.T) {
	// The trailing pad is size+1, so an extent of size-1 yields two
	// positions per axis rather than one.
	a := sequential[uint8](t, 3, 3, 1)

	tiles, err := Tile(a, Options{XSize: 4, YSize: 4, Padding: true})
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	if len(tiles) != 4 {
		t.Errorf("tile count: got %d, want 4", len(tiles))
	}
}

func TestTile_OverlapStrictlyIncreasesCount(t *testing.T) {
	a := sequential[uint8](t, 20, 20, 1)

	for _, padding := range []bool{false, true} {
		prev := 0
		for _, overlap := range []float64{0, 0.25, 0.5, 0.75} {
			tiles, err := Tile(a, Options{XSize: 4, YSize: 4, Overlap: overlap, Padding: padding})
			if err != nil {
				t.Fatalf("Tile failed: %v", err)
			}
			if len(tiles) <= prev {
				t.Errorf("padding=%v overlap=%g: count %d not above %d", padding, overlap, len(tiles), prev)
			}
			prev = len(tiles)
		}
	}
}

func TestTile_OverlappingContent(t *testing.T) {
	a := sequential[int32](t, 5, 5, 1)

	tiles, err := Tile(a, Options{XSize: 3, YSize: 3, Overlap: 1.0 / 3})
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	if len(tiles) != 4 {
		t.Fatalf("tile count: got %d, want 4", len(tiles))
	}
	want := []int32{2, 3, 4, 7, 8, 9, 12, 13, 14}
	if diff := cmp.Diff(want, tiles[1].Data()); diff != "" {
		t.Errorf("tile 1 mismatch (-want +got):\n%s", diff)
	}
}

func TestTile_PreservesDType(t *testing.T) {
	a := sequential[uint16](t, 8, 8, 2)

	tiles, err := TileRaster(a, Options{XSize: 4, YSize: 4})
	if err != nil {
		t.Fatalf("TileRaster failed: %v", err)
	}
	for i, tile := range tiles {
		if _, ok := tile.(*raster.Array[uint16]); !ok {
			t.Errorf("tile %d: got %T, want *raster.Array[uint16]", i, tile)
		}
		if tile.DType() != raster.Uint16 {
			t.Errorf("tile %d dtype: got %v, want uint16", i, tile.DType())
		}
	}
}

func TestTile_Errors(t *testing.T) {
	a := sequential[uint8](t, 4, 4, 1)

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"zero width", Options{XSize: 0, YSize: 2}, ErrInvalidTileSize},
		{"negative height", Options{XSize: 2, YSize: -1}, ErrInvalidTileSize},
		{"negative overlap", Options{XSize: 2, YSize: 2, Overlap: -0.1}, ErrInvalidOverlap},
		{"full overlap", Options{XSize: 2, YSize: 2, Overlap: 1}, ErrZeroStep},
		{"step truncates to zero", Options{XSize: 1, YSize: 4, Overlap: 0.5}, ErrZeroStep},
		{"padded extent too small", Options{XSize: 10, YSize: 2, Padding: true}, window.ErrWindowExceedsExtent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiles, err := Tile(a, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("error: got %v, want %v", err, tt.want)
			}
			if tiles != nil {
				t.Errorf("tiles: got %d, want nil", len(tiles))
			}
		})
	}
}

func TestTile_InvalidSizeIsWindowSpecError(t *testing.T) {
	_, err := Tile(sequential[uint8](t, 2, 2, 1), Options{})
	if !errors.Is(err, window.ErrInvalidWindowSpec) {
		t.Errorf("error: got %v, want window.ErrInvalidWindowSpec", err)
	}
}

func TestLayout_Origin(t *testing.T) {
	l, err := NewLayout(6, 6, Options{XSize: 3, YSize: 3})
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	if r, c := l.Origin(3); r != 3 || c != 3 {
		t.Errorf("Origin(3): got (%d,%d), want (3,3)", r, c)
	}
	if i, j := l.Position(1); i != 0 || j != 1 {
		t.Errorf("Position(1): got (%d,%d), want (0,1)", i, j)
	}

	l, err = NewLayout(10, 10, Options{XSize: 4, YSize: 4, Overlap: 0.5, Padding: true})
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	if l.PadTop != 2 || l.PadBottom != 7 {
		t.Errorf("row pads: got (%d,%d), want (2,7)", l.PadTop, l.PadBottom)
	}
	if r, c := l.Origin(0); r != -2 || c != -2 {
		t.Errorf("Origin(0): got (%d,%d), want (-2,-2)", r, c)
	}
	if r, c := l.Origin(l.Index(1, 2)); r != 0 || c != 2 {
		t.Errorf("Origin(1,2): got (%d,%d), want (0,2)", r, c)
	}
}

func TestLayout_EmptyRaster(t *testing.T) {
	l, err := NewLayout(0, 5, Options{XSize: 2, YSize: 2, Padding: true})
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len: got %d, want 0", l.Len())
	}
}
