// Package split cuts the scenes of a STAC catalog into training tiles.
//
// For every item the selected image bands are scaled to [0, 1] with the
// sensor's value range, optionally extended by the slope band, and tiled
// together with the mask and, when nodata exclusion is on, the validity
// raster. Tiles touching invalid pixels are dropped. Kept pairs are written
// to OUT_DIR/<split>/img and OUT_DIR/<split>/msk as <stem>_<index>.tif.
package split

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/s1s2water/tileprep/internal/catalog"
	"github.com/s1s2water/tileprep/internal/config"
	"github.com/s1s2water/tileprep/internal/imageio"
	"github.com/s1s2water/tileprep/internal/quicklook"
	"github.com/s1s2water/tileprep/internal/raster"
	"github.com/s1s2water/tileprep/internal/tiling"
)

// Splits are the dataset partitions tiles are written to.
var Splits = []string{"train", "val", "test"}

// ErrUnknownSplit is returned for items assigned to none of Splits.
var ErrUnknownSplit = errors.New("unknown split")

// Options configures a Runner.
type Options struct {
	DataDir string
	OutDir  string
	Sensor  string

	Tile  tiling.Options
	Bands []int

	Slope         bool
	ExcludeNodata bool
	Compress      bool
	Quicklook     bool

	Workers int
}

// NewOptions maps settings to runner options.
func NewOptions(s *config.Settings) Options {
	return Options{
		DataDir:       s.Split.DataDir,
		OutDir:        s.Split.OutDir,
		Sensor:        s.Split.Sensor,
		Tile:          s.Split.TileOptions(),
		Bands:         s.Split.ImgBandsIdx,
		Slope:         s.Split.Slope,
		ExcludeNodata: s.Split.ExcludeNodata,
		Compress:      s.Split.Compress,
		Quicklook:     s.Split.Quicklook,
		Workers:       s.General.NumThreads,
	}
}

// Summary counts the outcome of a run.
type Summary struct {
	Scenes       int
	Processed    int
	Skipped      int
	TilesWritten int
	TilesDropped int
}

// Runner runs the split stage.
type Runner struct {
	opts   Options
	log    *zap.Logger
	lo, hi float64
}

// NewRunner validates opts and returns a Runner. A nil logger discards
// output.
func NewRunner(opts Options, log *zap.Logger) (*Runner, error) {
	lo, hi, err := config.SensorRange(opts.Sensor)
	if err != nil {
		return nil, err
	}
	if err := opts.Tile.Validate(); err != nil {
		return nil, err
	}
	if len(opts.Bands) == 0 {
		return nil, fmt.Errorf("no image bands selected")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{opts: opts, log: log, lo: lo, hi: hi}, nil
}

// Run tiles every item of DATA_DIR/catalog.json. Scenes are processed
// concurrently by up to Workers goroutines. A failing scene is logged and
// skipped; only catalog errors and cancellation fail the run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	cat, err := catalog.Open(filepath.Join(r.opts.DataDir, "catalog.json"))
	if err != nil {
		return nil, err
	}
	items, err := cat.Items()
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}

	r.log.Info("splitting scenes",
		zap.String("catalog", cat.Path()),
		zap.Int("scenes", len(items)),
		zap.String("sensor", r.opts.Sensor),
		zap.Int("tile_rows", r.opts.Tile.XSize),
		zap.Int("tile_cols", r.opts.Tile.YSize),
		zap.Float64("overlap", r.opts.Tile.Overlap),
		zap.Bool("padding", r.opts.Tile.Padding),
		zap.Int("workers", r.opts.Workers))

	if err := r.prepareDirs(); err != nil {
		return nil, err
	}

	sum := &Summary{Scenes: len(items)}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for _, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.processItem(it)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Skipped++
				r.log.Error("scene failed, skipping",
					zap.String("scene", it.ID),
					zap.Error(err))
				return nil
			}
			sum.Processed++
			sum.TilesWritten += res.written
			sum.TilesDropped += res.dropped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	r.log.Info("split finished",
		zap.Int("scenes", sum.Scenes),
		zap.Int("processed", sum.Processed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("tiles_written", sum.TilesWritten),
		zap.Int("tiles_dropped", sum.TilesDropped))
	return sum, nil
}

// prepareDirs creates OUT_DIR/<split>/{img,msk} for every split.
func (r *Runner) prepareDirs() error {
	for _, s := range Splits {
		for _, kind := range []string{"img", "msk"} {
			if err := os.MkdirAll(filepath.Join(r.opts.OutDir, s, kind), 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
	}
	return nil
}

type sceneResult struct {
	written, dropped int
}

func (r *Runner) processItem(it *catalog.Item) (*sceneResult, error) {
	sc, err := it.Scene(r.opts.DataDir, r.opts.Sensor, r.opts.ExcludeNodata, r.opts.Slope)
	if err != nil {
		return nil, err
	}
	if !knownSplit(sc.Split) {
		return nil, fmt.Errorf("%w %q for scene %s", ErrUnknownSplit, sc.Split, sc.ID)
	}

	img, err := r.loadImage(sc)
	if err != nil {
		return nil, err
	}
	msk, err := imageio.ReadFile(sc.Mask)
	if err != nil {
		return nil, err
	}
	var valid raster.Raster
	if sc.Validity != "" {
		if valid, err = imageio.ReadFile(sc.Validity); err != nil {
			return nil, err
		}
	}

	tiles, err := tiling.TileScene(img, msk, valid, r.opts.Tile)
	if err != nil {
		return nil, fmt.Errorf("failed to tile %s: %w", sc, err)
	}

	imgDir := filepath.Join(r.opts.OutDir, sc.Split, "img")
	mskDir := filepath.Join(r.opts.OutDir, sc.Split, "msk")
	imgStem, mskStem := stem(sc.Image), stem(sc.Mask)
	wopts := &imageio.Options{Compress: r.opts.Compress}
	for _, p := range tiles.Pairs {
		name := fmt.Sprintf("_%d.tif", p.Index)
		if err := imageio.WriteFile(filepath.Join(imgDir, imgStem+name), p.Image, wopts); err != nil {
			return nil, err
		}
		if err := imageio.WriteFile(filepath.Join(mskDir, mskStem+name), p.Mask, wopts); err != nil {
			return nil, err
		}
	}

	if r.opts.Quicklook {
		path := filepath.Join(r.opts.OutDir, "quicklook", imgStem+".png")
		ql := quicklook.Scene{Image: img, Mask: msk, Layout: tiles.Layout, Dropped: tiles.Dropped}
		if err := quicklook.Save(path, ql, quicklook.DefaultOptions()); err != nil {
			r.log.Warn("failed to render quicklook", zap.String("scene", sc.ID), zap.Error(err))
		}
	}

	r.log.Info("scene tiled",
		zap.String("scene", sc.ID),
		zap.String("split", sc.Split),
		zap.Int("tiles", tiles.Layout.Len()),
		zap.Int("written", len(tiles.Pairs)),
		zap.Int("dropped", len(tiles.Dropped)))
	return &sceneResult{written: len(tiles.Pairs), dropped: len(tiles.Dropped)}, nil
}

// loadImage reads the scene image, keeps the selected bands scaled to
// [0, 1] and appends the first slope band when slope is enabled.
func (r *Runner) loadImage(sc *catalog.Scene) (raster.Raster, error) {
	src, err := imageio.ReadFile(sc.Image)
	if err != nil {
		return nil, err
	}
	f, err := raster.As[float32](src)
	if err != nil {
		return nil, err
	}
	sel, err := f.SelectBands(r.opts.Bands...)
	if err != nil {
		return nil, fmt.Errorf("failed to select bands of %s: %w", sc.Image, err)
	}
	img, err := raster.ScaleMinMax(sel, r.lo, r.hi)
	if err != nil {
		return nil, err
	}
	if sc.Slope == "" {
		return img, nil
	}

	slopeSrc, err := imageio.ReadFile(sc.Slope)
	if err != nil {
		return nil, err
	}
	slope, err := raster.As[float32](slopeSrc)
	if err != nil {
		return nil, err
	}
	if slope.Rows() != img.Rows() || slope.Cols() != img.Cols() {
		return nil, fmt.Errorf("%w: slope (%d, %d) on image (%d, %d)",
			tiling.ErrShapeMismatch, slope.Rows(), slope.Cols(), img.Rows(), img.Cols())
	}
	if slope, err = slope.SelectBands(0); err != nil {
		return nil, err
	}
	return raster.AppendBands(img, slope)
}

func knownSplit(s string) bool {
	for _, v := range Splits {
		if v == s {
			return true
		}
	}
	return false
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
