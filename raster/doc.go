// Package raster models the block-streaming pixel iteration that the
// clustering passes run on.
//
// The package deliberately contains no driver or format handling: Image and
// MutableImage are the capability a GDAL-like layer provides, and MemImage is
// the in-memory implementation used by tests and small workloads. Passes are
// expressed as single-method visitors (PixelVisitor, PixelMapper) so each
// pass implements exactly the operation it needs.
package raster
