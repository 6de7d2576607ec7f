package augment

import (
	"fmt"
	"math/rand/v2"

	"github.com/s1s2water/tileprep/internal/raster"
)

// Draw ranges and probabilities of one augmentation.
const (
	ContrastLimit   = 0.1
	BrightnessLimit = 0.2
	ScaleMin        = 1.9
	ScaleMax        = 2.1
	ScaleProb       = 0.8
	FlipProb        = 0.8
	FDABetaLimit    = 0.001
)

// Params holds the random draws of one augmentation. Image and mask are
// transformed with the same Params.
type Params struct {
	Alpha float64 // contrast gain
	Beta  float64 // brightness shift as a fraction of the dtype maximum

	K int // counter-clockwise quarter turns

	// Scale is the resize factor, 0 when no resize is applied.
	Scale float64

	CropY, CropX float64
	Flip         FlipMode
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// DrawParams draws one set of augmentation parameters from rng.
func DrawParams(rng *rand.Rand) Params {
	var p Params
	p.Alpha = 1 + uniform(rng, -ContrastLimit, ContrastLimit)
	p.Beta = uniform(rng, -BrightnessLimit, BrightnessLimit)

	p.K = rng.IntN(4)
	if rng.Float64() < ScaleProb {
		p.Scale = uniform(rng, ScaleMin, ScaleMax)
	}
	p.CropY, p.CropX = rng.Float64(), rng.Float64()
	if rng.Float64() < FlipProb {
		p.Flip = [...]FlipMode{FlipBoth, FlipVertical, FlipHorizontal}[rng.IntN(3)]
	}
	return p
}

// Apply returns augmented copies of img and msk. Brightness and contrast
// touch the image bands only, leaving the last band alone when demInBands
// is set. The geometry is shared: img is resampled bilinearly, msk by
// nearest neighbour, and both are cropped back to their original extent.
func Apply(img, msk *raster.Array[float32], p Params, demInBands bool, maxValue float64) (*raster.Array[float32], *raster.Array[float32], error) {
	rows, cols, _ := img.Shape()
	if mr, mc, _ := msk.Shape(); mr != rows || mc != cols {
		return nil, nil, fmt.Errorf("mask (%d, %d) does not match image (%d, %d)", mr, mc, rows, cols)
	}

	out, err := mapImageBands(img, demInBands, func(a *raster.Array[float32]) (*raster.Array[float32], error) {
		return BrightnessContrast(a, p.Alpha, p.Beta, maxValue), nil
	})
	if err != nil {
		return nil, nil, err
	}

	if out, err = geometry(out, p, rows, cols, ResizeBilinear); err != nil {
		return nil, nil, fmt.Errorf("failed to transform image: %w", err)
	}
	m, err := geometry(msk, p, rows, cols, ResizeNearest[float32])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to transform mask: %w", err)
	}
	return out, m, nil
}

type resizeFunc func(*raster.Array[float32], int, int) (*raster.Array[float32], error)

func geometry(a *raster.Array[float32], p Params, rows, cols int, resize resizeFunc) (*raster.Array[float32], error) {
	out := Rot90(a, p.K)
	if p.Scale > 0 {
		var err error
		if out, err = Scale(out, p.Scale, resize); err != nil {
			return nil, err
		}
	}
	out, err := RandomCrop(out, rows, cols, p.CropY, p.CropX)
	if err != nil {
		return nil, err
	}
	if p.Flip != FlipNone {
		out = Flip(out, p.Flip)
	}
	return out, nil
}

// mapImageBands applies f to the image bands of a and re-appends the DEM
// band when demInBands is set.
func mapImageBands(a *raster.Array[float32], demInBands bool, f func(*raster.Array[float32]) (*raster.Array[float32], error)) (*raster.Array[float32], error) {
	if !demInBands {
		return f(a)
	}
	head, dem, err := a.SplitBands(a.Bands() - 1)
	if err != nil {
		return nil, fmt.Errorf("failed to separate DEM band: %w", err)
	}
	out, err := f(head)
	if err != nil {
		return nil, err
	}
	return raster.AppendBands(out, dem)
}

// DrawFDABeta draws the FDA window fraction.
func DrawFDABeta(rng *rand.Rand) float64 {
	return uniform(rng, 0, FDABetaLimit)
}

// ApplyFDA adapts the image bands of img towards ref. ref must share the
// spatial extent of img and carry at least as many bands as img has image
// bands; any extra trailing bands of ref are ignored.
func ApplyFDA(img, ref *raster.Array[float32], beta float64, demInBands bool) (*raster.Array[float32], error) {
	return mapImageBands(img, demInBands, func(a *raster.Array[float32]) (*raster.Array[float32], error) {
		r := ref
		if ref.Bands() > a.Bands() {
			idx := make([]int, a.Bands())
			for i := range idx {
				idx[i] = i
			}
			var err error
			if r, err = ref.SelectBands(idx...); err != nil {
				return nil, err
			}
		}
		return FDA(a, r, beta)
	})
}
