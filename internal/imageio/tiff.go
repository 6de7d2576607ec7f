package imageio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/s1s2water/tileprep/internal/raster"
)

var (
	// ErrFormat is returned for data that is not a well-formed TIFF file.
	ErrFormat = errors.New("malformed TIFF")

	// ErrUnsupported is returned for valid TIFF features this package does
	// not decode, such as BigTIFF, JPEG compression or 1-bit samples.
	ErrUnsupported = errors.New("unsupported TIFF")
)

// TIFF tags used by the codec.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagExtraSamples    = 338
	tagSampleFormat    = 339
)

// Field types.
const (
	dtByte   = 1
	dtShort  = 3
	dtLong   = 4
	dtSByte  = 6
	dtUndef  = 7
	dtSShort = 8
	dtSLong  = 9
)

// Compression schemes.
const (
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionDeflateOld = 32946
)

const (
	predictorNone       = 1
	predictorHorizontal = 2

	planarChunky = 1
	planarPlanar = 2

	sampleUint  = 1
	sampleInt   = 2
	sampleFloat = 3
)

// fieldSize holds the byte size of the integer field types.
var fieldSize = map[uint16]int{
	dtByte: 1, dtShort: 2, dtLong: 4,
	dtSByte: 1, dtUndef: 1, dtSShort: 2, dtSLong: 4,
}

// header describes the first image of a TIFF file.
type header struct {
	order binary.ByteOrder

	width, height int
	samples       int
	bits          int
	format        int
	compression   int
	predictor     int
	planar        int

	// Chunk geometry. Strips are chunks as wide as the image.
	tiled          bool
	chunkW, chunkH int
	offsets        []uint64
	counts         []uint64

	dtype raster.DType
}

// parseHeader reads the byte order mark and the first IFD of b.
func parseHeader(b []byte) (*header, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("%w: file too short", ErrFormat)
	}

	h := &header{}
	switch string(b[:2]) {
	case "II":
		h.order = binary.LittleEndian
	case "MM":
		h.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad byte order mark %q", ErrFormat, b[:2])
	}
	switch magic := h.order.Uint16(b[2:4]); magic {
	case 42:
	case 43:
		return nil, fmt.Errorf("%w: BigTIFF", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: bad magic number %d", ErrFormat, magic)
	}

	fields, err := readIFD(b, h.order, int(h.order.Uint32(b[4:8])))
	if err != nil {
		return nil, err
	}
	if err := h.configure(fields); err != nil {
		return nil, err
	}
	return h, nil
}

// readIFD returns the integer-valued fields of the IFD at off. Fields of
// other types (ASCII, RATIONAL, DOUBLE, ...) are skipped.
func readIFD(b []byte, order binary.ByteOrder, off int) (map[uint16][]uint64, error) {
	if off < 8 || off+2 > len(b) {
		return nil, fmt.Errorf("%w: IFD offset %d out of range", ErrFormat, off)
	}
	n := int(order.Uint16(b[off:]))
	if off+2+12*n > len(b) {
		return nil, fmt.Errorf("%w: IFD with %d entries truncated", ErrFormat, n)
	}

	fields := make(map[uint16][]uint64, n)
	for i := 0; i < n; i++ {
		e := b[off+2+12*i : off+14+12*i]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		count := int(order.Uint32(e[4:8]))

		size, ok := fieldSize[typ]
		if !ok {
			continue
		}

		data := e[8:12]
		if count*size > 4 {
			at := int(order.Uint32(e[8:12]))
			if at+count*size > len(b) {
				return nil, fmt.Errorf("%w: tag %d values out of range", ErrFormat, tag)
			}
			data = b[at : at+count*size]
		}

		vals := make([]uint64, count)
		for j := range vals {
			switch size {
			case 1:
				vals[j] = uint64(data[j])
			case 2:
				vals[j] = uint64(order.Uint16(data[2*j:]))
			case 4:
				vals[j] = uint64(order.Uint32(data[4*j:]))
			}
		}
		fields[tag] = vals
	}
	return fields, nil
}

func (h *header) configure(fields map[uint16][]uint64) error {
	first := func(tag uint16, def int) int {
		if v, ok := fields[tag]; ok && len(v) > 0 {
			return int(v[0])
		}
		return def
	}
	// uniform requires every per-sample value of tag to be equal.
	uniform := func(tag uint16, def int) (int, error) {
		v, ok := fields[tag]
		if !ok || len(v) == 0 {
			return def, nil
		}
		for _, x := range v[1:] {
			if x != v[0] {
				return 0, fmt.Errorf("%w: mixed values %v for tag %d", ErrUnsupported, v, tag)
			}
		}
		return int(v[0]), nil
	}

	h.width = first(tagImageWidth, 0)
	h.height = first(tagImageLength, 0)
	if h.width <= 0 || h.height <= 0 {
		return fmt.Errorf("%w: image size %dx%d", ErrFormat, h.width, h.height)
	}
	h.samples = first(tagSamplesPerPixel, 1)
	if h.samples <= 0 {
		return fmt.Errorf("%w: %d samples per pixel", ErrFormat, h.samples)
	}

	var err error
	if h.bits, err = uniform(tagBitsPerSample, 1); err != nil {
		return err
	}
	if h.format, err = uniform(tagSampleFormat, sampleUint); err != nil {
		return err
	}
	if h.dtype, err = sampleType(h.bits, h.format); err != nil {
		return err
	}

	h.compression = first(tagCompression, compressionNone)
	switch h.compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflateOld:
	default:
		return fmt.Errorf("%w: compression %d", ErrUnsupported, h.compression)
	}
	h.predictor = first(tagPredictor, predictorNone)
	if h.predictor != predictorNone && h.predictor != predictorHorizontal {
		return fmt.Errorf("%w: predictor %d", ErrUnsupported, h.predictor)
	}
	h.planar = first(tagPlanarConfig, planarChunky)
	if h.planar != planarChunky && h.planar != planarPlanar {
		return fmt.Errorf("%w: planar configuration %d", ErrFormat, h.planar)
	}

	if _, ok := fields[tagTileWidth]; ok {
		h.tiled = true
		h.chunkW = first(tagTileWidth, 0)
		h.chunkH = first(tagTileLength, 0)
		h.offsets, h.counts = fields[tagTileOffsets], fields[tagTileByteCounts]
	} else {
		h.chunkW = h.width
		h.chunkH = min(first(tagRowsPerStrip, h.height), h.height)
		h.offsets, h.counts = fields[tagStripOffsets], fields[tagStripByteCounts]
	}
	if h.chunkW <= 0 || h.chunkH <= 0 {
		return fmt.Errorf("%w: chunk size %dx%d", ErrFormat, h.chunkW, h.chunkH)
	}
	if want := h.chunks(); len(h.offsets) < want || len(h.counts) < want {
		return fmt.Errorf("%w: %d offsets and %d byte counts for %d chunks",
			ErrFormat, len(h.offsets), len(h.counts), want)
	}
	return nil
}

// sampleType maps BitsPerSample and SampleFormat onto a raster element type.
func sampleType(bits, format int) (raster.DType, error) {
	switch {
	case bits == 8 && format == sampleUint:
		return raster.Uint8, nil
	case bits == 8 && format == sampleInt:
		return raster.Int8, nil
	case bits == 16 && format == sampleUint:
		return raster.Uint16, nil
	case bits == 16 && format == sampleInt:
		return raster.Int16, nil
	case bits == 32 && format == sampleUint:
		return raster.Uint32, nil
	case bits == 32 && format == sampleInt:
		return raster.Int32, nil
	case bits == 32 && format == sampleFloat:
		return raster.Float32, nil
	case bits == 64 && format == sampleFloat:
		return raster.Float64, nil
	}
	return raster.Invalid, fmt.Errorf("%w: %d-bit samples with format %d", ErrUnsupported, bits, format)
}

func (h *header) across() int { return (h.width + h.chunkW - 1) / h.chunkW }
func (h *header) down() int   { return (h.height + h.chunkH - 1) / h.chunkH }

// planes returns the number of separately stored sample planes.
func (h *header) planes() int {
	if h.planar == planarPlanar {
		return h.samples
	}
	return 1
}

// chunkSamples returns the samples stored per pixel inside one chunk.
func (h *header) chunkSamples() int {
	if h.planar == planarPlanar {
		return 1
	}
	return h.samples
}

func (h *header) chunks() int { return h.across() * h.down() * h.planes() }
