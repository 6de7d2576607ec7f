// Package tiling splits rasters into fixed-size, optionally overlapping and
// optionally padded tiles for dataset construction.
//
// # Tile Order
//
// Tiles are numbered in row-major grid order: the index increases across
// columns first, then down rows. Image, mask and validity rasters of one
// scene are tiled with identical options, so equal indices refer to the same
// ground area. Persisted tile names embed the index, which makes the order
// part of the on-disk format.
//
// # Steps and Padding
//
// The distance between tile origins is size*(1-overlap), truncated. Without
// padding, only positions where a full tile fits are used and the remainder
// at the bottom and right edges is ignored. With padding, the raster is
// mirrored (edge values repeated, never zero-filled) on all spatial sides so
// that every source pixel falls into at least one tile. No tile is ever
// smaller than the requested size.
//
// # Validity Filtering
//
// TileScene optionally tiles a validity raster alongside and drops every
// index whose validity tile holds InvalidValue anywhere.
//
// # Errors
//
// Malformed requests fail before any tile is produced, with errors matching
// ErrInvalidTileSize, ErrInvalidOverlap, ErrZeroStep or ErrShapeMismatch, or
// window.ErrWindowExceedsExtent. There is no partial result.
package tiling
