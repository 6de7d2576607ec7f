package tiling

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/s1s2water/tileprep/internal/raster"
)

func TestTileScene_AllValidKeepsEverything(t *testing.T) {
	img := sequential[uint16](t, 6, 6, 2)
	msk := sequential[uint8](t, 6, 6, 1)
	valid := filled[uint8](t, 6, 6, 1)
	opts := Options{XSize: 3, YSize: 3}

	filtered, err := TileScene(img, msk, valid, opts)
	if err != nil {
		t.Fatalf("TileScene failed: %v", err)
	}
	unfiltered, err := TileScene(img, msk, nil, opts)
	if err != nil {
		t.Fatalf("TileScene without validity failed: %v", err)
	}

	if len(filtered.Pairs) != 4 || len(unfiltered.Pairs) != 4 {
		t.Fatalf("pair counts: got %d and %d, want 4", len(filtered.Pairs), len(unfiltered.Pairs))
	}
	for i := range filtered.Pairs {
		f, u := filtered.Pairs[i], unfiltered.Pairs[i]
		if f.Index != u.Index {
			t.Errorf("pair %d index: got %d, want %d", i, f.Index, u.Index)
		}
		if !f.Image.(*raster.Array[uint16]).Equal(u.Image.(*raster.Array[uint16])) {
			t.Errorf("pair %d image differs", i)
		}
		if !f.Mask.(*raster.Array[uint8]).Equal(u.Mask.(*raster.Array[uint8])) {
			t.Errorf("pair %d mask differs", i)
		}
	}
	if len(filtered.Dropped) != 0 {
		t.Errorf("dropped: got %v, want none", filtered.Dropped)
	}
}

func TestTileScene_AllInvalidDropsEverything(t *testing.T) {
	img := sequential[float32](t, 6, 6, 1)
	msk := sequential[uint8](t, 6, 6, 1)
	valid := filled[uint8](t, 6, 6, InvalidValue)

	st, err := TileScene(img, msk, valid, Options{XSize: 3, YSize: 3})
	if err != nil {
		t.Fatalf("TileScene failed: %v", err)
	}
	if len(st.Pairs) != 0 {
		t.Errorf("pairs: got %d, want 0", len(st.Pairs))
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3}, st.Dropped); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}
}

func TestTileScene_SingleInvalidPixelDropsTile(t *testing.T) {
	img := sequential[int16](t, 6, 6, 1)
	msk := sequential[uint8](t, 6, 6, 1)
	valid := filled[uint8](t, 6, 6, 1)
	// (4, 1) falls into tile 2: grid row 1, grid col 0.
	valid.Set(4, 1, 0, InvalidValue)

	st, err := TileScene(img, msk, valid, Options{XSize: 3, YSize: 3})
	if err != nil {
		t.Fatalf("TileScene failed: %v", err)
	}

	var kept []int
	for _, p := range st.Pairs {
		kept = append(kept, p.Index)
	}
	if diff := cmp.Diff([]int{0, 1, 3}, kept); diff != "" {
		t.Errorf("kept indices mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2}, st.Dropped); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}

	// Pairs keep their original index so image and mask stay aligned.
	last := st.Pairs[2]
	if got := last.Image.(*raster.Array[int16]).At(0, 0, 0); got != 21 {
		t.Errorf("pair 3 image origin: got %d, want 21", got)
	}
	if got := last.Mask.(*raster.Array[uint8]).At(0, 0, 0); got != 21 {
		t.Errorf("pair 3 mask origin: got %d, want 21", got)
	}
}

func TestTileScene_ExtentMismatch(t *testing.T) {
	img := sequential[uint8](t, 6, 6, 1)

	tests := []struct {
		name  string
		msk   raster.Raster
		valid raster.Raster
	}{
		{"mask", sequential[uint8](t, 6, 5, 1), nil},
		{"validity", sequential[uint8](t, 6, 6, 1), sequential[uint8](t, 5, 6, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TileScene(img, tt.msk, tt.valid, Options{XSize: 3, YSize: 3})
			if !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("error: got %v, want ErrShapeMismatch", err)
			}
		})
	}
}

func TestTileScene_MaskBandsMayDiffer(t *testing.T) {
	img := sequential[float32](t, 8, 8, 4)
	msk := sequential[uint8](t, 8, 8, 1)

	st, err := TileScene(img, msk, nil, Options{XSize: 4, YSize: 4, Overlap: 0.5, Padding: true})
	if err != nil {
		t.Fatalf("TileScene failed: %v", err)
	}
	if st.Layout.Len() != len(st.Pairs) {
		t.Errorf("pairs: got %d, want %d", len(st.Pairs), st.Layout.Len())
	}
	for _, p := range st.Pairs {
		if _, _, b := p.Image.Shape(); b != 4 {
			t.Fatalf("image bands: got %d, want 4", b)
		}
		if _, _, b := p.Mask.Shape(); b != 1 {
			t.Fatalf("mask bands: got %d, want 1", b)
		}
	}
}

func TestCheckPaired(t *testing.T) {
	tests := []struct {
		counts []int
		ok     bool
	}{
		{nil, true},
		{[]int{3}, true},
		{[]int{3, 3, 3}, true},
		{[]int{3, 2}, false},
		{[]int{0, 0}, true},
	}

	for _, tt := range tests {
		err := CheckPaired(tt.counts...)
		if (err == nil) != tt.ok {
			t.Errorf("CheckPaired(%v): got %v, want ok=%v", tt.counts, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("CheckPaired(%v): got %v, want ErrShapeMismatch", tt.counts, err)
		}
	}
}

func TestKeepIndices(t *testing.T) {
	a := filled[uint8](t, 2, 2, 1)
	b := filled[uint8](t, 2, 2, 1)
	b.Set(1, 1, 0, 0)
	c := filled[uint8](t, 2, 2, 255)

	got := KeepIndices([]raster.Raster{a, b, c})
	if diff := cmp.Diff([]int{0, 2}, got); diff != "" {
		t.Errorf("KeepIndices mismatch (-want +got):\n%s", diff)
	}
}
