package raster

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PixelVisitor consumes one pixel vector per call during a raster pass. The
// vector contains the selected band values in selection order and is reused
// between calls; implementations must not retain it.
type PixelVisitor interface {
	VisitPixel(v []float64) error
}

// PixelMapper computes output band values for one pixel. v holds the selected
// input band values, out the output bands to fill. Both slices are reused
// between calls.
type PixelMapper interface {
	MapPixel(v []float64, out []float64) error
}

// EachPixel streams every pixel of img through the visitor, row by row.
// The band selection is validated once, before any pixel is visited.
func EachPixel(ctx context.Context, img Image, bands []int, visitor PixelVisitor) error {
	if err := CheckBands(img, bands); err != nil {
		return err
	}
	return visitRows(ctx, img, bands, 0, img.Height(), visitor)
}

// EachPixelParallel streams the raster through per-worker visitors, each
// created by newVisitor and fed a contiguous block of rows. After all workers
// finish, merge is called once per visitor in row order so that partial
// accumulations can be combined at a single barrier.
//
// Visitors never share pixels, so implementations need no internal locking.
func EachPixelParallel(ctx context.Context, img Image, bands []int, workers int, newVisitor func() PixelVisitor, merge func(PixelVisitor) error) error {
	if err := CheckBands(img, bands); err != nil {
		return err
	}
	if workers < 1 {
		workers = 1
	}
	height := img.Height()
	if workers > height {
		workers = height
	}
	if workers <= 1 {
		v := newVisitor()
		if err := visitRows(ctx, img, bands, 0, height, v); err != nil {
			return err
		}
		return merge(v)
	}

	visitors := make([]PixelVisitor, workers)
	g, gctx := errgroup.WithContext(ctx)
	rowsPer := (height + workers - 1) / workers
	for w := 0; w < workers; w++ {
		y0 := w * rowsPer
		y1 := min(y0+rowsPer, height)
		if y0 >= y1 {
			break
		}
		v := newVisitor()
		visitors[w] = v
		g.Go(func() error {
			return visitRows(gctx, img, bands, y0, y1, v)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// Merge in row order for deterministic accumulation.
	for _, v := range visitors {
		if v == nil {
			continue
		}
		if err := merge(v); err != nil {
			return err
		}
	}
	return nil
}

// MapPixels streams src through the mapper and writes the produced output
// bands to dst. src and dst must have identical pixel dimensions.
func MapPixels(ctx context.Context, src Image, dst MutableImage, bands []int, mapper PixelMapper) error {
	if err := CheckBands(src, bands); err != nil {
		return err
	}
	if src.Width() != dst.Width() || src.Height() != dst.Height() {
		return fmt.Errorf("output dimensions %dx%d do not match input %dx%d",
			dst.Width(), dst.Height(), src.Width(), src.Height())
	}

	width := src.Width()
	in := make([]float64, width*src.Bands())
	out := make([]float64, width*dst.Bands())
	vec := make([]float64, len(bands))
	outVec := make([]float64, dst.Bands())

	for y := 0; y < src.Height(); y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := src.ReadRow(y, in); err != nil {
			return fmt.Errorf("read row %d: %w", y, err)
		}
		for x := 0; x < width; x++ {
			extractPixel(in, x, src.Bands(), bands, vec)
			if err := mapper.MapPixel(vec, outVec); err != nil {
				return err
			}
			copy(out[x*dst.Bands():(x+1)*dst.Bands()], outVec)
		}
		if err := dst.WriteRow(y, out); err != nil {
			return fmt.Errorf("write row %d: %w", y, err)
		}
	}
	return nil
}

func visitRows(ctx context.Context, img Image, bands []int, y0, y1 int, visitor PixelVisitor) error {
	width := img.Width()
	row := make([]float64, width*img.Bands())
	vec := make([]float64, len(bands))
	for y := y0; y < y1; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := img.ReadRow(y, row); err != nil {
			return fmt.Errorf("read row %d: %w", y, err)
		}
		for x := 0; x < width; x++ {
			extractPixel(row, x, img.Bands(), bands, vec)
			if err := visitor.VisitPixel(vec); err != nil {
				return err
			}
		}
	}
	return nil
}

func extractPixel(row []float64, x, numBands int, bands []int, dst []float64) {
	off := x * numBands
	for i, b := range bands {
		dst[i] = row[off+b]
	}
}
