package cluster

import (
	"errors"
	"math"

	"github.com/EnvSys/rsgislib/distance"
	"github.com/EnvSys/rsgislib/raster"
)

// StdDevPass is the second per-pixel pass of an ISODATA iteration: pixels are
// assigned by the same nearest-centroid rule against the now-finalized means,
// and per-cluster per-band squared deviations are accumulated. Finalize
// writes the resulting standard deviations into the set.
type StdDevPass struct {
	set      *Set
	dist     distance.Func
	sqDev    map[int][]float64
	counts   map[int]uint64
	progress *progressReporter
}

// NewStdDevPass creates a std-dev pass over the finalized set.
func NewStdDevPass(set *Set, dist distance.Func) *StdDevPass {
	return &StdDevPass{
		set:    set,
		dist:   dist,
		sqDev:  make(map[int][]float64, set.Len()),
		counts: make(map[int]uint64, set.Len()),
	}
}

// VisitPixel implements raster.PixelVisitor.
func (p *StdDevPass) VisitPixel(v []float64) error {
	if raster.IsBorder(v) {
		return nil
	}
	id, _ := p.set.Nearest(v, p.dist)
	if id < 0 {
		return errors.New("std-dev pass over empty centroid set")
	}
	dev, ok := p.sqDev[id]
	if !ok {
		dev = make([]float64, p.set.Bands())
		p.sqDev[id] = dev
	}
	mean := p.set.ByID(id).Mean
	for b, val := range v {
		d := val - mean[b]
		dev[b] += d * d
	}
	p.counts[id]++
	p.progress.tick()
	return nil
}

// Clone returns a fresh pass over the same set, sharing only the progress
// reporter.
func (p *StdDevPass) Clone() *StdDevPass {
	c := NewStdDevPass(p.set, p.dist)
	c.progress = p.progress
	return c
}

// Merge folds the deviations of another pass into this one.
func (p *StdDevPass) Merge(other *StdDevPass) {
	for id, dev := range other.sqDev {
		dst, ok := p.sqDev[id]
		if !ok {
			p.sqDev[id] = dev
		} else {
			for b := range dst {
				dst[b] += dev[b]
			}
		}
		p.counts[id] += other.counts[id]
	}
}

// Finalize computes stddev = sqrt(sqDev/count) per centroid and band and
// stores it on the set. Centroids that attracted no pixels keep zero
// std-devs.
func (p *StdDevPass) Finalize() {
	for id, dev := range p.sqDev {
		n := float64(p.counts[id])
		if n == 0 {
			continue
		}
		c := p.set.ByID(id)
		if c == nil {
			continue
		}
		for b := range dev {
			c.StdDev[b] = math.Sqrt(dev[b] / n)
		}
	}
}
