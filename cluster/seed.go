package cluster

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/EnvSys/rsgislib/distance"
	"github.com/EnvSys/rsgislib/raster"
)

// ErrInsufficientPixels is returned when the raster does not contain enough
// valid (non-border) pixels to place the requested number of cluster centres.
var ErrInsufficientPixels = errors.New("not enough valid pixels to seed the requested cluster count")

// Seeder initialises a centroid set from the input raster. It only reads
// image data; the resulting set carries zero std-devs and populations until
// the first accumulate pass.
type Seeder struct {
	img   raster.Image
	bands []int
	rng   *rand.Rand
}

// NewSeeder creates a seeder over the selected bands of img.
func NewSeeder(img raster.Image, bands []int, rng *rand.Rand) *Seeder {
	return &Seeder{img: img, bands: bands, rng: rng}
}

// Random draws k centroids by uniform sampling of valid pixel vectors,
// without replacement. Border pixels are never chosen.
func (s *Seeder) Random(ctx context.Context, k int) (*Set, error) {
	if k < 1 {
		return nil, fmt.Errorf("cluster count must be positive, got %d", k)
	}
	mask, err := raster.ValidMask(ctx, s.img, s.bands)
	if err != nil {
		return nil, err
	}
	valid := mask.GetCardinality()
	if uint64(k) > valid {
		return nil, fmt.Errorf("%w: k=%d, valid pixels=%d", ErrInsufficientPixels, k, valid)
	}

	chosen := make([]uint64, 0, k)
	set := NewSet(len(s.bands))
	vec := make([]float64, len(s.bands))
	for i := 0; i < k; i++ {
		// Draw from the ranks not yet taken: sample the shrunk range and
		// shift past every chosen rank at or below the draw. One draw per
		// centre, even when k equals the number of valid pixels.
		rank := uint64(s.rng.Int63n(int64(valid - uint64(i))))
		pos := 0
		for pos < len(chosen) && rank >= chosen[pos] {
			rank++
			pos++
		}
		chosen = slices.Insert(chosen, pos, rank)

		idx, err := mask.Select(rank)
		if err != nil {
			return nil, err
		}
		if err := raster.PixelAt(s.img, s.bands, idx, vec); err != nil {
			return nil, err
		}
		set.Add(vec)
	}
	return set, nil
}

// KMeansPP draws k centroids with k-means++ weighting: the first centre is a
// uniform random valid pixel, each following centre is sampled with
// probability proportional to its squared distance to the nearest already
// chosen centre. Each round is a single streaming pass using weighted
// reservoir sampling.
func (s *Seeder) KMeansPP(ctx context.Context, k int) (*Set, error) {
	if k < 1 {
		return nil, fmt.Errorf("cluster count must be positive, got %d", k)
	}
	set, err := s.Random(ctx, 1)
	if err != nil {
		return nil, err
	}

	for set.Len() < k {
		pick := &kppVisitor{set: set, rng: s.rng}
		if err := raster.EachPixel(ctx, s.img, s.bands, pick); err != nil {
			return nil, err
		}
		if pick.candidate == nil {
			// Every valid pixel coincides with an existing centre.
			return nil, fmt.Errorf("%w: only %d distinct pixel values for k=%d",
				ErrInsufficientPixels, set.Len(), k)
		}
		set.Add(pick.candidate)
	}
	return set, nil
}

// kppVisitor performs one weighted reservoir round: after the pass, candidate
// holds a pixel drawn with probability proportional to its squared distance
// to the nearest chosen centre.
type kppVisitor struct {
	set       *Set
	rng       *rand.Rand
	total     float64
	candidate []float64
}

func (p *kppVisitor) VisitPixel(v []float64) error {
	if raster.IsBorder(v) {
		return nil
	}
	_, w := p.set.Nearest(v, distance.SquaredEuclidean)
	if w <= 0 {
		return nil
	}
	p.total += w
	if p.rng.Float64()*p.total < w {
		if p.candidate == nil {
			p.candidate = make([]float64, len(v))
		}
		copy(p.candidate, v)
	}
	return nil
}
