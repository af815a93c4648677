package cluster

import (
	"errors"
	"fmt"

	"github.com/EnvSys/rsgislib/distance"
	"github.com/EnvSys/rsgislib/raster"
)

// ErrNoValidPixels is returned when an accumulate pass saw only border pixels.
var ErrNoValidPixels = errors.New("no valid pixels accumulated")

// ErrAllCentroidsDropped is returned when every working centroid fell below
// the minimum population and the next published set would be empty.
var ErrAllCentroidsDropped = errors.New("all cluster centres dropped below minimum population")

// clusterStats is the working-set accumulation for one published centroid.
type clusterStats struct {
	sum     []float64
	sumSq   []float64
	sumDist float64
	count   uint64
}

func newClusterStats(bands int) *clusterStats {
	return &clusterStats{
		sum:   make([]float64, bands),
		sumSq: make([]float64, bands),
	}
}

// Accumulator is the first per-pixel pass of an ISODATA iteration: each valid
// pixel is assigned to its nearest published centroid and folded into the
// working statistics for that centroid. The published set is never mutated;
// results live only in the accumulator until Finalize.
//
// For parallel block iteration, Clone provides independent per-worker
// accumulators and Merge combines them at the pass barrier.
type Accumulator struct {
	published *Set
	dist      distance.Func
	stats     map[int]*clusterStats
	sumDist   float64
	numVals   uint64
	progress  *progressReporter
}

// NewAccumulator creates an accumulate pass against the published set.
func NewAccumulator(published *Set, dist distance.Func) *Accumulator {
	return &Accumulator{
		published: published,
		dist:      dist,
		stats:     make(map[int]*clusterStats, published.Len()),
	}
}

// VisitPixel implements raster.PixelVisitor.
func (a *Accumulator) VisitPixel(v []float64) error {
	if raster.IsBorder(v) {
		return nil
	}
	id, d := a.published.Nearest(v, a.dist)
	if id < 0 {
		return errors.New("accumulate pass over empty centroid set")
	}
	st, ok := a.stats[id]
	if !ok {
		st = newClusterStats(a.published.Bands())
		a.stats[id] = st
	}
	for b, val := range v {
		st.sum[b] += val
		st.sumSq[b] += val * val
	}
	st.sumDist += d
	st.count++
	a.sumDist += d
	a.numVals++
	a.progress.tick()
	return nil
}

// Clone returns a fresh accumulator against the same published set, sharing
// only the progress reporter.
func (a *Accumulator) Clone() *Accumulator {
	c := NewAccumulator(a.published, a.dist)
	c.progress = a.progress
	return c
}

// Merge folds the statistics of another accumulator into this one.
func (a *Accumulator) Merge(other *Accumulator) {
	for id, st := range other.stats {
		dst, ok := a.stats[id]
		if !ok {
			a.stats[id] = st
			continue
		}
		for b := range dst.sum {
			dst.sum[b] += st.sum[b]
			dst.sumSq[b] += st.sumSq[b]
		}
		dst.sumDist += st.sumDist
		dst.count += st.count
	}
	a.sumDist += other.sumDist
	a.numVals += other.numVals
}

// PassResult carries the outcome of a finalized accumulate pass.
type PassResult struct {
	// Set is the next published centroid set: accumulated means under the
	// same stable IDs, with under-populated centroids dropped.
	Set *Set
	// AvgDist maps centroid ID to the mean assignment distance of its pixels.
	AvgDist map[int]float64
	// OverallAvgDist is the mean assignment distance over all valid pixels.
	OverallAvgDist float64
	// Scatter is the total within-cluster variance estimate from the
	// accumulated sums of squares, used for iteration diagnostics.
	Scatter float64
	// ValidPixels is the number of non-border pixels accumulated.
	ValidPixels uint64
}

// Finalize validates the working set and produces the next published set.
// Centroids with fewer than minNumVals members are discarded; their pixels
// reassign naturally on the next pass.
func (a *Accumulator) Finalize(minNumVals uint64) (*PassResult, error) {
	if a.numVals == 0 {
		return nil, ErrNoValidPixels
	}

	res := &PassResult{
		Set:            a.published.cloneEmpty(),
		AvgDist:        make(map[int]float64),
		OverallAvgDist: a.sumDist / float64(a.numVals),
		ValidPixels:    a.numVals,
	}
	// Walk the published set so IDs stay in ascending order.
	for _, c := range a.published.Centroids() {
		st, ok := a.stats[c.ID]
		if !ok || st.count < minNumVals {
			continue
		}
		n := float64(st.count)
		mean := make([]float64, len(st.sum))
		for b := range st.sum {
			mean[b] = st.sum[b] / n
			res.Scatter += st.sumSq[b] - st.sum[b]*st.sum[b]/n
		}
		res.Set.centroids = append(res.Set.centroids, &Centroid{
			ID:     c.ID,
			Mean:   mean,
			StdDev: make([]float64, len(mean)),
			Count:  st.count,
		})
		res.AvgDist[c.ID] = st.sumDist / n
	}
	if res.Set.Len() == 0 {
		return nil, fmt.Errorf("%w: minimum population %d", ErrAllCentroidsDropped, minNumVals)
	}
	return res, nil
}
