package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/EnvSys/rsgislib/distance"
	"github.com/EnvSys/rsgislib/raster"
)

// BorderLabel is the sentinel value written for border/no-data pixels when
// zero-ignoring is enabled. Centroid IDs start at 1, so the sentinel never
// collides with a cluster.
const BorderLabel = 0

// ErrEmptySet is returned when labeling is attempted without any centroids.
var ErrEmptySet = errors.New("no cluster centres to label against")

// Labeler assigns each pixel the ID of its nearest centroid, using the same
// nearest rule as the accumulate pass, and writes it to the single output
// band. It implements raster.PixelMapper.
type Labeler struct {
	set         *Set
	dist        distance.Func
	ignoreZeros bool
}

// NewLabeler creates a labeling pass against a published set.
func NewLabeler(set *Set, dist distance.Func, ignoreZeros bool) *Labeler {
	return &Labeler{set: set, dist: dist, ignoreZeros: ignoreZeros}
}

// MapPixel implements raster.PixelMapper.
func (l *Labeler) MapPixel(v []float64, out []float64) error {
	if l.ignoreZeros && raster.IsBorder(v) {
		out[0] = BorderLabel
		return nil
	}
	id, _ := l.set.Nearest(v, l.dist)
	if id < 0 {
		return ErrEmptySet
	}
	out[0] = float64(id)
	return nil
}

// Label runs the labeling pass over img and writes cluster IDs into dst,
// which must be a single-band raster of the same dimensions.
func Label(ctx context.Context, img raster.Image, dst raster.MutableImage, bands []int, set *Set, dist distance.Func, ignoreZeros bool) error {
	if set.Len() == 0 {
		return ErrEmptySet
	}
	if dst.Bands() != 1 {
		return fmt.Errorf("label output must have a single band, got %d", dst.Bands())
	}
	return raster.MapPixels(ctx, img, dst, bands, NewLabeler(set, dist, ignoreZeros))
}
