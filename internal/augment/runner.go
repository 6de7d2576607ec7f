package augment

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/s1s2water/tileprep/internal/imageio"
	"github.com/s1s2water/tileprep/internal/raster"
	"github.com/s1s2water/tileprep/internal/tiling"
)

// Options configures a Runner.
type Options struct {
	ImgDir, MskDir string

	// FDARefDir holds reference tiles for Fourier domain adaptation. FDA is
	// skipped when empty.
	FDARefDir string

	NAugs      int
	DEMInBands bool
	Seed       uint64
	Workers    int
	Compress   bool
}

// Summary counts the outcome of a run.
type Summary struct {
	Pairs      int
	Skipped    int
	Augmented  int
	FDAWritten int
}

// Runner augments every image/mask pair of a tile directory.
type Runner struct {
	opts  Options
	log   *zap.Logger
	cache *imageio.Cache
}

// NewRunner returns a Runner. A nil logger discards output.
func NewRunner(opts Options, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{opts: opts, log: log, cache: imageio.NewCache()}
}

// Run augments all pairs. Each pair draws from its own generator seeded by
// the run seed and the pair's position, so results do not depend on
// scheduling. A failing pair is logged and skipped.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	imgs, err := listTiles(r.opts.ImgDir)
	if err != nil {
		return nil, err
	}
	msks, err := listTiles(r.opts.MskDir)
	if err != nil {
		return nil, err
	}
	if err := tiling.CheckPaired(len(imgs), len(msks)); err != nil {
		return nil, fmt.Errorf("failed to pair %s with %s: %w", r.opts.ImgDir, r.opts.MskDir, err)
	}

	var refs []string
	if r.opts.FDARefDir != "" {
		if refs, err = listTiles(r.opts.FDARefDir); err != nil {
			return nil, err
		}
		if len(refs) == 0 {
			return nil, fmt.Errorf("no reference tiles in %s", r.opts.FDARefDir)
		}
	}
	defer r.cache.Clear()

	r.log.Info("augmenting tiles",
		zap.String("img_dir", r.opts.ImgDir),
		zap.Int("pairs", len(imgs)),
		zap.Int("naugs", r.opts.NAugs),
		zap.Int("fda_refs", len(refs)))

	sum := &Summary{Pairs: len(imgs)}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range imgs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(r.opts.Seed, uint64(i)))
			aug, fda, err := r.augmentPair(rng, imgs[i], msks[i], refs)

			mu.Lock()
			defer mu.Unlock()
			sum.Augmented += aug
			sum.FDAWritten += fda
			if err != nil {
				sum.Skipped++
				r.log.Error("augmentation failed, skipping pair",
					zap.String("image", imgs[i]),
					zap.String("mask", msks[i]),
					zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	r.log.Info("augmentation finished",
		zap.Int("pairs", sum.Pairs),
		zap.Int("skipped", sum.Skipped),
		zap.Int("augmented", sum.Augmented),
		zap.Int("fda", sum.FDAWritten))
	return sum, nil
}

func (r *Runner) augmentPair(rng *rand.Rand, imgPath, mskPath string, refs []string) (augmented, fda int, err error) {
	img, err := imageio.ReadFile(imgPath)
	if err != nil {
		return 0, 0, err
	}
	msk, err := imageio.ReadFile(mskPath)
	if err != nil {
		return 0, 0, err
	}
	imgF, err := raster.As[float32](img)
	if err != nil {
		return 0, 0, err
	}
	mskF, err := raster.As[float32](msk)
	if err != nil {
		return 0, 0, err
	}
	_, maxValue := img.DType().Range()

	imgStem, mskStem := stem(imgPath), stem(mskPath)
	for n := 0; n < r.opts.NAugs; n++ {
		p := DrawParams(rng)
		r.log.Debug("augmentation parameters",
			zap.String("image", imgPath),
			zap.Int("n", n),
			zap.Float64("alpha", p.Alpha),
			zap.Float64("beta", p.Beta),
			zap.Int("k", p.K),
			zap.Float64("scale", p.Scale),
			zap.Stringer("flip", p.Flip))

		outImg, outMsk, err := Apply(imgF, mskF, p, r.opts.DEMInBands, maxValue)
		if err != nil {
			return augmented, fda, err
		}
		name := fmt.Sprintf("_aug%d.tif", n)
		if err := r.write(filepath.Join(r.opts.ImgDir, imgStem+name), outImg, img.DType()); err != nil {
			return augmented, fda, err
		}
		if err := r.write(filepath.Join(r.opts.MskDir, mskStem+name), outMsk, msk.DType()); err != nil {
			return augmented, fda, err
		}
		augmented++

		if len(refs) == 0 {
			continue
		}
		refPath := refs[rng.IntN(len(refs))]
		beta := DrawFDABeta(rng)
		ref, err := r.cache.Load(refPath)
		if err != nil {
			return augmented, fda, err
		}
		refF, err := raster.As[float32](ref)
		if err != nil {
			return augmented, fda, err
		}
		adapted, err := ApplyFDA(imgF, refF, beta, r.opts.DEMInBands)
		if err != nil {
			return augmented, fda, fmt.Errorf("failed to adapt to %s: %w", refPath, err)
		}
		name = fmt.Sprintf("_aug_fda%d.tif", n)
		if err := r.write(filepath.Join(r.opts.ImgDir, imgStem+name), adapted, img.DType()); err != nil {
			return augmented, fda, err
		}
		if err := imageio.WriteFile(filepath.Join(r.opts.MskDir, mskStem+name), msk, &imageio.Options{Compress: r.opts.Compress}); err != nil {
			return augmented, fda, err
		}
		fda++
	}
	return augmented, fda, nil
}

func (r *Runner) write(path string, a *raster.Array[float32], d raster.DType) error {
	out, err := CastTo(a, d)
	if err != nil {
		return err
	}
	return imageio.WriteFile(path, out, &imageio.Options{Compress: r.opts.Compress})
}

// CastTo converts a back to dtype d. Integer targets are rounded and
// clipped to their range.
func CastTo(a *raster.Array[float32], d raster.DType) (raster.Raster, error) {
	switch d {
	case raster.Uint8:
		return cast[uint8](a), nil
	case raster.Int8:
		return cast[int8](a), nil
	case raster.Uint16:
		return cast[uint16](a), nil
	case raster.Int16:
		return cast[int16](a), nil
	case raster.Uint32:
		return cast[uint32](a), nil
	case raster.Int32:
		return cast[int32](a), nil
	case raster.Float32:
		return a, nil
	case raster.Float64:
		return raster.Convert[float32, float64](a), nil
	}
	return nil, fmt.Errorf("cannot cast to %s", d)
}

func cast[T raster.Number](a *raster.Array[float32]) *raster.Array[T] {
	lo, hi := raster.DTypeOf[T]().Range()
	rows, cols, bands := a.Shape()
	out := raster.New[T](rows, cols, bands)
	data := out.Data()
	for i, v := range a.Data() {
		data[i] = T(math.Max(lo, math.Min(hi, math.Round(float64(v)))))
	}
	return out
}

// listTiles returns the sorted paths of the .tif files in dir.
func listTiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiles: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".tif") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
