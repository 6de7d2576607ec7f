package imageio

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/image/tiff/lzw"

	"github.com/s1s2water/tileprep/internal/raster"
)

// ReadFile loads the first image of the TIFF file at path.
func ReadFile(path string) (raster.Raster, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raster: %w", err)
	}
	r, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return r, nil
}

// Decode decodes the first image of a TIFF file held in b. The returned
// raster has shape (height, width, samples per pixel) and an element type
// following BitsPerSample and SampleFormat.
func Decode(b []byte) (raster.Raster, error) {
	h, err := parseHeader(b)
	if err != nil {
		return nil, err
	}
	pix, err := h.pixels(b)
	if err != nil {
		return nil, err
	}
	return h.build(pix)
}

// pixels returns the image samples in chunky row-major order, still in the
// file's byte order.
func (h *header) pixels(b []byte) ([]byte, error) {
	size := h.dtype.Size()
	cps := h.chunkSamples()
	pixStride := h.samples * size
	pix := make([]byte, h.width*h.height*pixStride)

	across, down := h.across(), h.down()
	for plane := 0; plane < h.planes(); plane++ {
		for cy := 0; cy < down; cy++ {
			for cx := 0; cx < across; cx++ {
				idx := (plane*down+cy)*across + cx
				x0, y0 := cx*h.chunkW, cy*h.chunkH
				rows := h.chunkH
				if !h.tiled {
					rows = min(rows, h.height-y0)
				}

				chunk, err := h.chunk(b, idx, rows*h.chunkW*cps*size)
				if err != nil {
					return nil, fmt.Errorf("chunk %d: %w", idx, err)
				}
				if h.predictor == predictorHorizontal {
					undoHorizontal(chunk, h.order, rows, h.chunkW, cps, size)
				}

				cols := min(h.chunkW, h.width-x0)
				rows = min(rows, h.height-y0)
				for r := 0; r < rows; r++ {
					src := chunk[r*h.chunkW*cps*size:]
					dst := pix[((y0+r)*h.width+x0)*pixStride:]
					if cps == h.samples {
						copy(dst[:cols*pixStride], src[:cols*pixStride])
						continue
					}
					for c := 0; c < cols; c++ {
						copy(dst[c*pixStride+plane*size:c*pixStride+(plane+1)*size], src[c*size:(c+1)*size])
					}
				}
			}
		}
	}
	return pix, nil
}

// chunk returns the decompressed bytes of chunk idx. The result is a fresh
// slice of exactly want bytes.
func (h *header) chunk(b []byte, idx, want int) ([]byte, error) {
	off, n := h.offsets[idx], h.counts[idx]
	if off+n > uint64(len(b)) {
		return nil, fmt.Errorf("%w: data at %d+%d beyond end of file", ErrFormat, off, n)
	}
	data := b[off : off+n]

	out := make([]byte, want)
	var r io.Reader
	switch h.compression {
	case compressionNone:
		if len(data) < want {
			return nil, fmt.Errorf("%w: %d bytes, want %d", ErrFormat, len(data), want)
		}
		copy(out, data)
		return out, nil
	case compressionLZW:
		lr := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
		defer lr.Close()
		r = lr
	case compressionDeflate, compressionDeflateOld:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open deflate stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}

// undoHorizontal reverses horizontal differencing in place.
func undoHorizontal(buf []byte, order binary.ByteOrder, rows, cols, cps, size int) {
	rowLen := cols * cps * size
	for r := 0; r < rows; r++ {
		row := buf[r*rowLen : (r+1)*rowLen]
		for i := cps; i < cols*cps; i++ {
			cur, prev := row[i*size:], row[(i-cps)*size:]
			switch size {
			case 1:
				cur[0] += prev[0]
			case 2:
				order.PutUint16(cur, order.Uint16(cur)+order.Uint16(prev))
			case 4:
				order.PutUint32(cur, order.Uint32(cur)+order.Uint32(prev))
			case 8:
				order.PutUint64(cur, order.Uint64(cur)+order.Uint64(prev))
			}
		}
	}
}

func (h *header) build(pix []byte) (raster.Raster, error) {
	o := h.order
	switch h.dtype {
	case raster.Uint8:
		return buildArray(h, pix, func(b []byte) uint8 { return b[0] })
	case raster.Int8:
		return buildArray(h, pix, func(b []byte) int8 { return int8(b[0]) })
	case raster.Uint16:
		return buildArray(h, pix, o.Uint16)
	case raster.Int16:
		return buildArray(h, pix, func(b []byte) int16 { return int16(o.Uint16(b)) })
	case raster.Uint32:
		return buildArray(h, pix, o.Uint32)
	case raster.Int32:
		return buildArray(h, pix, func(b []byte) int32 { return int32(o.Uint32(b)) })
	case raster.Float32:
		return buildArray(h, pix, func(b []byte) float32 { return math.Float32frombits(o.Uint32(b)) })
	case raster.Float64:
		return buildArray(h, pix, func(b []byte) float64 { return math.Float64frombits(o.Uint64(b)) })
	}
	return nil, fmt.Errorf("%w: element type %v", ErrUnsupported, h.dtype)
}

func buildArray[T raster.Number](h *header, pix []byte, conv func([]byte) T) (raster.Raster, error) {
	size := h.dtype.Size()
	data := make([]T, len(pix)/size)
	for i := range data {
		data[i] = conv(pix[i*size:])
	}
	a, err := raster.FromSlice(h.height, h.width, h.samples, data)
	if err != nil {
		return nil, err
	}
	return a, nil
}
