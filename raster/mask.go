package raster

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// ValidMask builds a bitmap of the pixel indices (y*width + x) that are not
// border/no-data sentinels. The seeder samples from this mask by rank, which
// makes uniform sampling over valid pixels exact instead of retry-bounded.
func ValidMask(ctx context.Context, img Image, bands []int) (*roaring64.Bitmap, error) {
	if err := CheckBands(img, bands); err != nil {
		return nil, err
	}
	mask := roaring64.New()
	width := img.Width()
	row := make([]float64, width*img.Bands())
	vec := make([]float64, len(bands))
	for y := 0; y < img.Height(); y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := img.ReadRow(y, row); err != nil {
			return nil, err
		}
		for x := 0; x < width; x++ {
			extractPixel(row, x, img.Bands(), bands, vec)
			if !IsBorder(vec) {
				mask.Add(uint64(y*width + x))
			}
		}
	}
	return mask, nil
}

// PixelAt reads the selected band values of the pixel with the given linear
// index (y*width + x) into dst. Used by the seeder for random access after
// mask sampling.
func PixelAt(img Image, bands []int, index uint64, dst []float64) error {
	width := img.Width()
	y := int(index) / width
	x := int(index) % width
	row := make([]float64, width*img.Bands())
	if err := img.ReadRow(y, row); err != nil {
		return err
	}
	extractPixel(row, x, img.Bands(), bands, dst)
	return nil
}
