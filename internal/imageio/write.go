package imageio

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/s1s2water/tileprep/internal/raster"
)

// Options configures Encode.
type Options struct {
	// Compress stores the pixel data with Deflate.
	Compress bool
}

// WriteFile encodes r as a TIFF file at path, creating parent directories
// as needed.
func WriteFile(path string, r raster.Raster, opts *Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create raster file: %w", err)
	}
	if err := Encode(f, r, opts); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// Encode writes r as a little-endian baseline TIFF with a single strip and
// contiguous samples. Bands beyond the first are declared as unspecified
// extra samples, the layout GDAL uses for multi-band data.
func Encode(w io.Writer, r raster.Raster, opts *Options) error {
	rows, cols, bands := r.Shape()
	if rows == 0 || cols == 0 || bands == 0 {
		return fmt.Errorf("cannot encode empty raster %dx%dx%d", rows, cols, bands)
	}
	pix, err := littleEndian(r)
	if err != nil {
		return err
	}

	compression := compressionNone
	if opts != nil && opts.Compress {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(pix); err != nil {
			return fmt.Errorf("failed to deflate: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to deflate: %w", err)
		}
		pix = buf.Bytes()
		compression = compressionDeflate
	}

	const stripOffset = 8
	if uint64(len(pix)) > math.MaxUint32-1<<20 {
		return fmt.Errorf("raster of %d bytes exceeds classic TIFF limits", len(pix))
	}
	ifdOffset := stripOffset + len(pix)
	ifdOffset += ifdOffset & 1

	dt := r.DType()
	format := sampleUint
	switch {
	case dt.IsFloat():
		format = sampleFloat
	case dt.IsSigned():
		format = sampleInt
	}

	entries := []ifdEntry{
		{tagImageWidth, dtLong, []uint32{uint32(cols)}},
		{tagImageLength, dtLong, []uint32{uint32(rows)}},
		{tagBitsPerSample, dtShort, repeat(uint32(dt.Size()*8), bands)},
		{tagCompression, dtShort, []uint32{uint32(compression)}},
		{tagPhotometric, dtShort, []uint32{1}},
		{tagStripOffsets, dtLong, []uint32{stripOffset}},
		{tagSamplesPerPixel, dtShort, []uint32{uint32(bands)}},
		{tagRowsPerStrip, dtLong, []uint32{uint32(rows)}},
		{tagStripByteCounts, dtLong, []uint32{uint32(len(pix))}},
		{tagPlanarConfig, dtShort, []uint32{planarChunky}},
		{tagSampleFormat, dtShort, repeat(uint32(format), bands)},
	}
	if bands > 1 {
		entries = append(entries, ifdEntry{tagExtraSamples, dtShort, repeat(0, bands-1)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	le := binary.LittleEndian
	head := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	le.PutUint32(head[4:], uint32(ifdOffset))

	ifd := make([]byte, 2+12*len(entries)+4)
	le.PutUint16(ifd, uint16(len(entries)))
	var extra []byte
	extraOffset := ifdOffset + len(ifd)
	for i, e := range entries {
		p := ifd[2+12*i:]
		le.PutUint16(p[0:], e.tag)
		le.PutUint16(p[2:], e.typ)
		le.PutUint32(p[4:], uint32(len(e.values)))

		vals := e.bytes(le)
		if len(vals) <= 4 {
			copy(p[8:12], vals)
			continue
		}
		le.PutUint32(p[8:], uint32(extraOffset+len(extra)))
		extra = append(extra, vals...)
		if len(extra)&1 == 1 {
			extra = append(extra, 0)
		}
	}

	for _, chunk := range [][]byte{head, pix, make([]byte, ifdOffset-stripOffset-len(pix)), ifd, extra} {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("failed to write TIFF: %w", err)
		}
	}
	return nil
}

type ifdEntry struct {
	tag    uint16
	typ    uint16
	values []uint32
}

func (e ifdEntry) bytes(order binary.ByteOrder) []byte {
	size := fieldSize[e.typ]
	b := make([]byte, size*len(e.values))
	for i, v := range e.values {
		switch size {
		case 2:
			order.PutUint16(b[2*i:], uint16(v))
		case 4:
			order.PutUint32(b[4*i:], v)
		}
	}
	return b
}

func repeat(v uint32, n int) []uint32 {
	s := make([]uint32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// littleEndian serializes the samples of r in row-major, band-interleaved
// order.
func littleEndian(r raster.Raster) ([]byte, error) {
	le := binary.LittleEndian
	switch a := r.(type) {
	case *raster.Array[uint8]:
		return append([]byte(nil), a.Data()...), nil
	case *raster.Array[int8]:
		return pack(a.Data(), 1, func(b []byte, v int8) { b[0] = byte(v) }), nil
	case *raster.Array[uint16]:
		return pack(a.Data(), 2, le.PutUint16), nil
	case *raster.Array[int16]:
		return pack(a.Data(), 2, func(b []byte, v int16) { le.PutUint16(b, uint16(v)) }), nil
	case *raster.Array[uint32]:
		return pack(a.Data(), 4, le.PutUint32), nil
	case *raster.Array[int32]:
		return pack(a.Data(), 4, func(b []byte, v int32) { le.PutUint32(b, uint32(v)) }), nil
	case *raster.Array[float32]:
		return pack(a.Data(), 4, func(b []byte, v float32) { le.PutUint32(b, math.Float32bits(v)) }), nil
	case *raster.Array[float64]:
		return pack(a.Data(), 8, func(b []byte, v float64) { le.PutUint64(b, math.Float64bits(v)) }), nil
	}
	return nil, fmt.Errorf("%w: raster type %T", ErrUnsupported, r)
}

func pack[T raster.Number](data []T, size int, put func([]byte, T)) []byte {
	b := make([]byte, len(data)*size)
	for i, v := range data {
		put(b[i*size:], v)
	}
	return b
}
