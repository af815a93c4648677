package cluster

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EnvSys/rsgislib/distance"
	"github.com/EnvSys/rsgislib/raster"
)

// State is the refinement state machine position.
type State int

const (
	// StateSeeding means no cluster centres exist yet.
	StateSeeding State = iota
	// StateSeeded means centres exist but no refinement has run.
	StateSeeded
	// StateIterating means the refinement loop is in progress.
	StateIterating
	// StateConverged means the maximum mean-shift fell below the terminal
	// threshold.
	StateConverged
	// StateMaxItersReached means the iteration budget ran out; the last
	// computed centre set is still valid.
	StateMaxItersReached
)

func (s State) String() string {
	switch s {
	case StateSeeding:
		return "Seeding"
	case StateSeeded:
		return "Seeded"
	case StateIterating:
		return "Iterating"
	case StateConverged:
		return "Converged"
	case StateMaxItersReached:
		return "MaxItersReached"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Params are the immutable configuration of one refinement run.
type Params struct {
	// TerminalThreshold is the maximum mean-shift below which the run
	// converges.
	TerminalThreshold float64
	// MaxIterations bounds the refinement loop.
	MaxIterations int
	// MinNumVals is the minimum population a centre needs to survive a pass.
	MinNumVals uint64
	// MinDistanceBetweenCentres is the merge threshold.
	MinDistanceBetweenCentres float64
	// StdDevThreshold is the per-band standard deviation above which a
	// centre becomes a split candidate.
	StdDevThreshold float64
	// PropOverAvgDist scales the overall average assignment distance; a
	// centre must exceed the scaled value to split.
	PropOverAvgDist float64
	// SplitOffsetFactor scales the std-dev offset applied to the two halves
	// of a split. Zero means 1.0.
	SplitOffsetFactor float64
	// SplitBeforeMerge runs the split heuristic before the merge heuristic
	// within an iteration. Default is merge first.
	SplitBeforeMerge bool
}

func (p Params) withDefaults() Params {
	if p.SplitOffsetFactor == 0 {
		p.SplitOffsetFactor = 1
	}
	return p
}

// IterationStats describes one completed refinement iteration.
type IterationStats struct {
	Iteration   int
	Centroids   int
	MaxShift    float64
	AvgDist     float64
	Scatter     float64
	ValidPixels uint64
	Merges      int
	Splits      int
}

// Controller orchestrates the accumulate / std-dev / merge / split loop. All
// mutation happens on working copies; the published set handed to Run is only
// replaced wholesale between iterations, never partially updated, so an
// aborted iteration leaves the previous result intact.
type Controller struct {
	img         raster.Image
	bands       []int
	dist        distance.Func
	workers     int
	logger      *slog.Logger
	onIteration func(IterationStats)
}

// NewController creates a refinement controller over the selected bands.
// workers > 1 enables parallel block iteration with per-worker accumulators.
// logger and onIteration may be nil.
func NewController(img raster.Image, bands []int, dist distance.Func, workers int, logger *slog.Logger, onIteration func(IterationStats)) *Controller {
	return &Controller{
		img:         img,
		bands:       bands,
		dist:        dist,
		workers:     workers,
		logger:      logger,
		onIteration: onIteration,
	}
}

// Run executes the refinement loop from the seeded set and returns the final
// published set together with the terminal state. The input set is not
// mutated.
func (c *Controller) Run(ctx context.Context, seeded *Set, p Params) (*Set, State, error) {
	if seeded.Len() == 0 {
		return nil, StateSeeding, fmt.Errorf("refinement requires a seeded centroid set")
	}
	if p.MaxIterations < 1 {
		return nil, StateSeeded, fmt.Errorf("max iterations must be positive, got %d", p.MaxIterations)
	}
	p = p.withDefaults()

	published := seeded.Clone()
	for iter := 1; iter <= p.MaxIterations; iter++ {
		next, stats, err := c.iterate(ctx, published, p, iter)
		if err != nil {
			return nil, StateIterating, fmt.Errorf("iteration %d: %w", iter, err)
		}
		published = next
		if c.onIteration != nil {
			c.onIteration(stats)
		}
		if c.logger != nil {
			c.logger.Debug("iteration complete",
				"iteration", iter,
				"centroids", stats.Centroids,
				"max_shift", stats.MaxShift,
				"avg_dist", stats.AvgDist,
				"merges", stats.Merges,
				"splits", stats.Splits,
			)
		}
		if stats.MaxShift < p.TerminalThreshold && stats.Merges == 0 && stats.Splits == 0 {
			return published, StateConverged, nil
		}
	}
	return published, StateMaxItersReached, nil
}

// iterate performs one full iteration on copies of the published set.
func (c *Controller) iterate(ctx context.Context, published *Set, p Params, iter int) (*Set, IterationStats, error) {
	acc := NewAccumulator(published, c.dist)
	acc.progress = newProgressReporter(c.logger, "accumulate")
	if err := c.runVisitor(ctx, acc, func() raster.PixelVisitor { return acc.Clone() }, func(v raster.PixelVisitor) error {
		acc.Merge(v.(*Accumulator))
		return nil
	}); err != nil {
		return nil, IterationStats{}, err
	}

	res, err := acc.Finalize(p.MinNumVals)
	if err != nil {
		return nil, IterationStats{}, err
	}
	working := res.Set

	sd := NewStdDevPass(working, c.dist)
	sd.progress = newProgressReporter(c.logger, "stddev")
	if err := c.runVisitor(ctx, sd, func() raster.PixelVisitor { return sd.Clone() }, func(v raster.PixelVisitor) error {
		sd.Merge(v.(*StdDevPass))
		return nil
	}); err != nil {
		return nil, IterationStats{}, err
	}
	sd.Finalize()

	var merges, splits int
	if p.SplitBeforeMerge {
		splits = c.split(working, p, res)
		merges = c.merge(working, p, res)
	} else {
		merges = c.merge(working, p, res)
		splits = c.split(working, p, res)
	}

	stats := IterationStats{
		Iteration:   iter,
		Centroids:   working.Len(),
		MaxShift:    maxMeanShift(published, working),
		AvgDist:     res.OverallAvgDist,
		Scatter:     res.Scatter,
		ValidPixels: res.ValidPixels,
		Merges:      merges,
		Splits:      splits,
	}
	return working, stats, nil
}

func (c *Controller) runVisitor(ctx context.Context, base raster.PixelVisitor, clone func() raster.PixelVisitor, merge func(raster.PixelVisitor) error) error {
	if c.workers > 1 {
		return raster.EachPixelParallel(ctx, c.img, c.bands, c.workers, clone, merge)
	}
	return raster.EachPixel(ctx, c.img, c.bands, base)
}

// merge repeatedly combines the lowest-ID pair of centres closer than the
// merge threshold into a population-weighted centre that keeps the lower ID,
// until no pair qualifies. Running it again on the result is a no-op.
func (c *Controller) merge(set *Set, p Params, res *PassResult) int {
	if p.MinDistanceBetweenCentres <= 0 {
		return 0
	}
	merges := 0
	for {
		a, b := c.findMergePair(set, p.MinDistanceBetweenCentres)
		if a == nil {
			return merges
		}
		wa := float64(a.Count)
		wb := float64(b.Count)
		total := wa + wb
		if total == 0 {
			// Unpopulated seeds; collapse onto the lower ID unweighted.
			wa, wb, total = 1, 1, 2
		}
		for i := range a.Mean {
			a.Mean[i] = (a.Mean[i]*wa + b.Mean[i]*wb) / total
			a.StdDev[i] = (a.StdDev[i]*wa + b.StdDev[i]*wb) / total
		}
		res.AvgDist[a.ID] = (res.AvgDist[a.ID]*wa + res.AvgDist[b.ID]*wb) / total
		a.Count += b.Count
		set.Remove(b.ID)
		delete(res.AvgDist, b.ID)
		merges++
		if c.logger != nil {
			c.logger.Debug("merged centres", "kept", a.ID, "removed", b.ID)
		}
	}
}

func (c *Controller) findMergePair(set *Set, minDist float64) (*Centroid, *Centroid) {
	cs := set.Centroids()
	for i := 0; i < len(cs); i++ {
		for j := i + 1; j < len(cs); j++ {
			if distance.Euclidean(cs[i].Mean, cs[j].Mean) < minDist {
				return cs[i], cs[j]
			}
		}
	}
	return nil, nil
}

// split divides each qualifying centre along its band of maximum standard
// deviation (ties to the lowest band index), offsetting the two halves by
// ±SplitOffsetFactor·stddev on that band. Both halves receive fresh IDs.
// A centre only qualifies when its population exceeds 2*MinNumVals, so
// neither half starts below the survival population.
// Centres created by a split are not re-examined within the same iteration.
func (c *Controller) split(set *Set, p Params, res *PassResult) int {
	if p.StdDevThreshold <= 0 {
		return 0
	}
	splits := 0
	candidates := append([]*Centroid(nil), set.Centroids()...)
	for _, cand := range candidates {
		band, maxStd := maxStdDevBand(cand)
		if cand.Count <= 2*p.MinNumVals || maxStd <= p.StdDevThreshold {
			continue
		}
		if res.AvgDist[cand.ID] <= p.PropOverAvgDist*res.OverallAvgDist {
			continue
		}

		offset := p.SplitOffsetFactor * maxStd
		low := set.Add(cand.Mean)
		low.Mean[band] -= offset
		copy(low.StdDev, cand.StdDev)
		low.Count = cand.Count / 2

		high := set.Add(cand.Mean)
		high.Mean[band] += offset
		copy(high.StdDev, cand.StdDev)
		high.Count = cand.Count - low.Count

		res.AvgDist[low.ID] = res.AvgDist[cand.ID]
		res.AvgDist[high.ID] = res.AvgDist[cand.ID]
		set.Remove(cand.ID)
		delete(res.AvgDist, cand.ID)
		splits++
		if c.logger != nil {
			c.logger.Debug("split centre", "id", cand.ID, "band", band, "into", []int{low.ID, high.ID})
		}
	}
	return splits
}

func maxStdDevBand(c *Centroid) (int, float64) {
	band := 0
	maxStd := c.StdDev[0]
	for b := 1; b < len(c.StdDev); b++ {
		if c.StdDev[b] > maxStd {
			band = b
			maxStd = c.StdDev[b]
		}
	}
	return band, maxStd
}

// maxMeanShift computes the largest Euclidean distance between the old and
// new means of centres present in both sets.
func maxMeanShift(old, next *Set) float64 {
	var maxShift float64
	for _, c := range next.Centroids() {
		prev := old.ByID(c.ID)
		if prev == nil {
			continue
		}
		if d := distance.Euclidean(prev.Mean, c.Mean); d > maxShift {
			maxShift = d
		}
	}
	return maxShift
}
