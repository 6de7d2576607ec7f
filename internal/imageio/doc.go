// Package imageio reads and writes multi-band rasters as TIFF files.
//
// The reader decodes the first image of a classic (non-BigTIFF) TIFF into a
// raster.Raster whose element type follows the file's BitsPerSample and
// SampleFormat tags. GeoTIFF tags are ignored; georeferencing is not carried
// through the tiling pipeline.
//
// # Supported Files
//
// Decode accepts:
//   - little and big endian byte order
//   - strips or tiles, chunky or planar sample layout
//   - no compression, Deflate or LZW
//   - horizontal differencing predictor on integer samples
//   - 8, 16 and 32-bit integers, signed or unsigned, and 32 or 64-bit floats
//
// Anything else fails with ErrUnsupported. Structurally broken files fail
// with ErrFormat.
//
// # Writing
//
// Encode always writes a little-endian single strip with contiguous samples,
// optionally Deflate compressed. Files written by Encode decode to an equal
// raster.
//
// # Caching
//
// Cache keeps decoded rasters in memory for callers that read the same file
// repeatedly, such as augmentation drawing reference tiles at random.
package imageio
