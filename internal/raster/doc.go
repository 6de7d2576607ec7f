// Package raster provides the dense multi-band array type the tiling engine
// operates on.
//
// An Array holds (rows, cols, bands) elements in row-major order with the
// band axis innermost, the layout GeoTIFF files use with contiguous planar
// configuration. Single band rasters still carry a band axis of extent one.
//
// # Element Types
//
// Arrays are generic over Number. Code that only learns the element type at
// run time, such as file loaders, passes rasters around as the Raster
// interface and recovers a typed Array with a type switch or As.
//
// # Ownership
//
// Operations never mutate their receiver. Padding, band selection, cropping
// and scaling all return new arrays.
package raster
