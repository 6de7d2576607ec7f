// Package quicklook renders PNG previews of tiled scenes: a contrast
// stretched composite of the image, the mask classes blended on top, the
// tile grid with index labels, and tiles dropped by the validity filter
// shaded dark.
package quicklook

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"

	"github.com/s1s2water/tileprep/internal/raster"
	"github.com/s1s2water/tileprep/internal/tiling"
)

// Options controls rendering.
type Options struct {
	// MaxSize bounds the longer side of the preview. Zero keeps the raster
	// extent.
	MaxSize int

	// Bands selects the bands shown as red, green and blue. A single band
	// renders grey. Empty shows the first band.
	Bands []int

	// Contrast is passed to bild's adjust.Contrast after the percentile
	// stretch; 0 skips it.
	Contrast float64

	// GridColor is a hex colour such as "#ffff00".
	GridColor string

	Labels      bool
	MaskOpacity float64
}

// DefaultOptions returns the options used by the split stage.
func DefaultOptions() Options {
	return Options{
		MaxSize:     1024,
		Contrast:    0.1,
		GridColor:   "#ffd700",
		Labels:      true,
		MaskOpacity: 0.4,
	}
}

// Scene is what a preview is drawn from. Mask may be nil.
type Scene struct {
	Image   raster.Raster
	Mask    raster.Raster
	Layout  tiling.Layout
	Dropped []int
}

// stretch percentiles
const (
	lowQuantile  = 0.02
	highQuantile = 0.98
)

var defaultGridColor = color.NRGBA{255, 0, 0, 255}

// Render draws the preview of s.
func Render(s Scene, opts Options) (*image.NRGBA, error) {
	rows, cols, bands := s.Image.Shape()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("cannot render empty raster (%d, %d)", rows, cols)
	}
	if s.Mask != nil {
		if mr, mc, _ := s.Mask.Shape(); mr != rows || mc != cols {
			return nil, fmt.Errorf("%w: mask (%d, %d) on image (%d, %d)", tiling.ErrShapeMismatch, mr, mc, rows, cols)
		}
	}

	sel := opts.Bands
	if len(sel) == 0 {
		sel = []int{0}
	}
	if len(sel) != 1 && len(sel) != 3 {
		return nil, fmt.Errorf("quicklook needs 1 or 3 bands, got %d", len(sel))
	}
	for _, b := range sel {
		if b < 0 || b >= bands {
			return nil, fmt.Errorf("band %d outside raster with %d bands", b, bands)
		}
	}

	var img image.Image = composite(s.Image, sel)
	if opts.Contrast != 0 {
		img = adjust.Contrast(img, opts.Contrast)
	}
	if s.Mask != nil && opts.MaskOpacity > 0 {
		img = blend.Opacity(img, classOverlay(img, s.Mask), opts.MaskOpacity)
	}

	out := imaging.Clone(img)
	if opts.MaxSize > 0 && (rows > opts.MaxSize || cols > opts.MaxSize) {
		out = imaging.Fit(out, opts.MaxSize, opts.MaxSize, imaging.Box)
	}

	gridColor := defaultGridColor
	if c, err := colorful.Hex(opts.GridColor); err == nil {
		r, g, b := c.RGB255()
		gridColor = color.NRGBA{r, g, b, 255}
	}
	drawGrid(out, s.Layout, s.Dropped, gridColor, opts.Labels)
	return out, nil
}

// Save renders s and writes it to path as PNG, creating parent
// directories.
func Save(path string, s Scene, opts Options) error {
	img, err := Render(s, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save quicklook: %w", err)
	}
	return nil
}

// composite maps the selected bands to 8 bits with a percentile stretch.
func composite(r raster.Raster, sel []int) *image.NRGBA {
	rows, cols, _ := r.Shape()
	out := image.NewNRGBA(image.Rect(0, 0, cols, rows))

	channels := make([][]uint8, len(sel))
	for i, b := range sel {
		channels[i] = stretchBand(r, b)
	}
	for p := 0; p < rows*cols; p++ {
		px := out.Pix[p*4 : p*4+4]
		if len(channels) == 1 {
			px[0], px[1], px[2] = channels[0][p], channels[0][p], channels[0][p]
		} else {
			px[0], px[1], px[2] = channels[0][p], channels[1][p], channels[2][p]
		}
		px[3] = 255
	}
	return out
}

// stretchBand maps band b linearly from its [2%, 98%] quantiles to
// [0, 255]. NaNs map to 0; a flat band maps to mid grey.
func stretchBand(r raster.Raster, b int) []uint8 {
	rows, cols, _ := r.Shape()
	values := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := r.Float64At(i, j, b); !math.IsNaN(v) {
				values = append(values, v)
			}
		}
	}

	out := make([]uint8, rows*cols)
	if len(values) == 0 {
		return out
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo := stat.Quantile(lowQuantile, stat.Empirical, sorted, nil)
	hi := stat.Quantile(highQuantile, stat.Empirical, sorted, nil)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := r.Float64At(i, j, b)
			switch {
			case math.IsNaN(v):
				continue
			case hi <= lo:
				out[i*cols+j] = 128
			default:
				f := (v - lo) / (hi - lo)
				out[i*cols+j] = uint8(math.Round(255 * math.Max(0, math.Min(1, f))))
			}
		}
	}
	return out
}

// classOverlay returns a copy of bg with every pixel of a positive mask
// class painted in that class's colour.
func classOverlay(bg image.Image, msk raster.Raster) *image.NRGBA {
	rows, cols, _ := msk.Shape()
	palette := classPalette(msk)
	out := imaging.Clone(bg)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if c, ok := palette[msk.Float64At(i, j, 0)]; ok {
				out.SetNRGBA(j, i, c)
			}
		}
	}
	return out
}

// classPalette assigns evenly spaced hues to the positive classes of the
// first mask band, starting from blue.
func classPalette(msk raster.Raster) map[float64]color.NRGBA {
	rows, cols, _ := msk.Shape()
	seen := make(map[float64]bool)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := msk.Float64At(i, j, 0); v > 0 {
				seen[v] = true
			}
		}
	}
	classes := make([]float64, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Float64s(classes)

	palette := make(map[float64]color.NRGBA, len(classes))
	for i, v := range classes {
		hue := math.Mod(210+360*float64(i)/float64(len(classes)), 360)
		r, g, b := colorful.Hsv(hue, 0.85, 0.95).Clamped().RGB255()
		palette[v] = color.NRGBA{r, g, b, 255}
	}
	return palette
}

// drawGrid outlines every tile of l on img, shading the dropped ones.
// Tile geometry is scaled from raster to image coordinates.
func drawGrid(img *image.NRGBA, l tiling.Layout, dropped []int, c color.NRGBA, labels bool) {
	if l.Len() == 0 {
		return
	}
	bounds := img.Bounds()
	sy := float64(bounds.Dy()) / float64(l.Rows)
	sx := float64(bounds.Dx()) / float64(l.Cols)
	rect := func(index int) image.Rectangle {
		r0, c0 := l.Origin(index)
		return image.Rect(
			int(math.Floor(float64(c0)*sx)), int(math.Floor(float64(r0)*sy)),
			int(math.Ceil(float64(c0+l.TileCols)*sx)), int(math.Ceil(float64(r0+l.TileRows)*sy)),
		).Intersect(bounds)
	}

	shade := image.NewUniform(color.NRGBA{0, 0, 0, 140})
	for _, index := range dropped {
		if index >= 0 && index < l.Len() {
			draw.Draw(img, rect(index), shade, image.Point{}, draw.Over)
		}
	}

	for index := 0; index < l.Len(); index++ {
		outline(img, rect(index), c)
	}

	if !labels {
		return
	}
	fg := color.NRGBA{255, 255, 255, 255}
	bg := color.NRGBA{0, 0, 0, 180}
	for index := 0; index < l.Len(); index++ {
		r := rect(index)
		if r.Empty() {
			continue
		}
		drawLabel(img, r.Min.X+2, r.Min.Y+2, fmt.Sprint(index), fg, bg)
	}
}

func outline(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetNRGBA(x, r.Min.Y, c)
		img.SetNRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetNRGBA(r.Min.X, y, c)
		img.SetNRGBA(r.Max.X-1, y, c)
	}
}
