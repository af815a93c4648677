package cluster

import (
	"context"
	"math/rand"
	"testing"

	"github.com/EnvSys/rsgislib/distance"
	"github.com/EnvSys/rsgislib/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(img raster.Image) *Controller {
	var bands []int
	if img != nil {
		bands = raster.AllBands(img)
	}
	return NewController(img, bands, distance.Euclidean, 1, nil, nil)
}

func TestMergeCombinesClosePair(t *testing.T) {
	set := seededSet([]float64{10, 10}, []float64{12, 10}, []float64{90, 90})
	set.ByID(1).Count = 30
	set.ByID(2).Count = 10
	set.ByID(1).StdDev = []float64{2, 2}
	set.ByID(2).StdDev = []float64{6, 6}
	res := &PassResult{AvgDist: map[int]float64{1: 1, 2: 3, 3: 2}, OverallAvgDist: 2}

	c := newTestController(nil)
	merges := c.merge(set, Params{MinDistanceBetweenCentres: 5}, res)

	assert.Equal(t, 1, merges)
	require.Equal(t, 2, set.Len())

	merged := set.ByID(1)
	require.NotNil(t, merged, "merged centre keeps the lower ID")
	assert.Nil(t, set.ByID(2))
	assert.Equal(t, uint64(40), merged.Count)
	assert.InDelta(t, 10.5, merged.Mean[0], 1e-12, "population-weighted mean")
	assert.InDelta(t, 3.0, merged.StdDev[0], 1e-12, "population-weighted std-dev")
	assert.InDelta(t, 1.5, res.AvgDist[1], 1e-12)
}

func TestMergeIsIdempotent(t *testing.T) {
	set := seededSet([]float64{10, 10}, []float64{11, 10}, []float64{12.5, 10}, []float64{90, 90})
	for _, c := range set.Centroids() {
		c.Count = 10
	}
	res := &PassResult{AvgDist: map[int]float64{1: 1, 2: 1, 3: 1, 4: 1}, OverallAvgDist: 1}
	p := Params{MinDistanceBetweenCentres: 2.5}

	c := newTestController(nil)
	first := c.merge(set, p, res)
	assert.Equal(t, 2, first, "chained pair collapses in deterministic lowest-ID order")

	second := c.merge(set, p, res)
	assert.Zero(t, second, "a second merge pass must be a no-op")
}

func TestSplitAlongMaxStdDevBand(t *testing.T) {
	set := seededSet([]float64{50, 50})
	cand := set.ByID(1)
	cand.Count = 21
	cand.StdDev = []float64{2, 6}
	res := &PassResult{AvgDist: map[int]float64{1: 10}, OverallAvgDist: 4}
	p := Params{MinNumVals: 10, StdDevThreshold: 3, PropOverAvgDist: 2, SplitOffsetFactor: 1}

	c := newTestController(nil)
	splits := c.split(set, p, res)

	assert.Equal(t, 1, splits)
	require.Equal(t, 2, set.Len())
	assert.Nil(t, set.ByID(1), "split centre is replaced")

	low := set.ByID(2)
	high := set.ByID(3)
	require.NotNil(t, low, "both halves receive fresh sequential IDs")
	require.NotNil(t, high)
	assert.InDelta(t, 50.0, low.Mean[0], 1e-12, "non-split band unchanged")
	assert.InDelta(t, 44.0, low.Mean[1], 1e-12, "offset by -stddev on the max-variance band")
	assert.InDelta(t, 56.0, high.Mean[1], 1e-12)
	assert.Equal(t, cand.Count, low.Count+high.Count)
	assert.GreaterOrEqual(t, low.Count, p.MinNumVals, "neither half starts below the survival population")
	assert.GreaterOrEqual(t, high.Count, p.MinNumVals)
}

func TestSplitNeverProducesUnderpopulatedHalves(t *testing.T) {
	p := Params{MinNumVals: 10, StdDevThreshold: 3, PropOverAvgDist: 2, SplitOffsetFactor: 1}
	c := newTestController(nil)

	// Populations up to 2*MinNumVals would leave at least one half below
	// the survival population, so they must not split at all.
	for _, count := range []uint64{11, 19, 20} {
		set := seededSet([]float64{50, 50})
		set.ByID(1).Count = count
		set.ByID(1).StdDev = []float64{2, 6}
		res := &PassResult{AvgDist: map[int]float64{1: 10}, OverallAvgDist: 4}

		assert.Zero(t, c.split(set, p, res), "count=%d", count)
		assert.Equal(t, 1, set.Len(), "count=%d", count)
	}

	// The smallest splittable population yields halves of exactly
	// MinNumVals and MinNumVals+1.
	set := seededSet([]float64{50, 50})
	set.ByID(1).Count = 21
	set.ByID(1).StdDev = []float64{2, 6}
	res := &PassResult{AvgDist: map[int]float64{1: 10}, OverallAvgDist: 4}

	require.Equal(t, 1, c.split(set, p, res))
	for _, half := range set.Centroids() {
		assert.GreaterOrEqual(t, half.Count, p.MinNumVals)
	}
}

func TestSplitPreconditions(t *testing.T) {
	p := Params{MinNumVals: 10, StdDevThreshold: 3, PropOverAvgDist: 2, SplitOffsetFactor: 1}
	c := newTestController(nil)

	t.Run("population too small", func(t *testing.T) {
		set := seededSet([]float64{50, 50})
		set.ByID(1).Count = 20 // not strictly greater than 2*MinNumVals
		set.ByID(1).StdDev = []float64{2, 6}
		res := &PassResult{AvgDist: map[int]float64{1: 10}, OverallAvgDist: 4}
		assert.Zero(t, c.split(set, p, res))
		assert.Equal(t, 1, set.Len())
	})

	t.Run("stddev below threshold", func(t *testing.T) {
		set := seededSet([]float64{50, 50})
		set.ByID(1).Count = 100
		set.ByID(1).StdDev = []float64{1, 2}
		res := &PassResult{AvgDist: map[int]float64{1: 10}, OverallAvgDist: 4}
		assert.Zero(t, c.split(set, p, res))
	})

	t.Run("average distance below trigger", func(t *testing.T) {
		set := seededSet([]float64{50, 50})
		set.ByID(1).Count = 100
		set.ByID(1).StdDev = []float64{2, 6}
		res := &PassResult{AvgDist: map[int]float64{1: 7}, OverallAvgDist: 4}
		assert.Zero(t, c.split(set, p, res))
	})
}

func TestRunConvergesInOneIterationOnTruthSeeds(t *testing.T) {
	ctx := context.Background()
	// Exact, zero-variance clusters: pixels at (10,10) and (90,90) only.
	img := raster.NewMemImage(4, 2, 2)
	for x := 0; x < 4; x++ {
		img.SetPixel(x, 0, []float64{10, 10})
		img.SetPixel(x, 1, []float64{90, 90})
	}
	seeded := seededSet([]float64{10, 10}, []float64{90, 90})

	var iterations int
	ctrl := NewController(img, raster.AllBands(img), distance.Euclidean, 1, nil,
		func(IterationStats) { iterations++ })
	got, state, err := ctrl.Run(ctx, seeded, Params{
		TerminalThreshold:         0.01,
		MaxIterations:             10,
		MinNumVals:                1,
		MinDistanceBetweenCentres: 1,
		StdDevThreshold:           5,
	})
	require.NoError(t, err)
	assert.Equal(t, StateConverged, state)
	assert.Equal(t, 1, iterations)
	require.Equal(t, 2, got.Len())
	assert.InDelta(t, 10, got.ByID(1).Mean[0], 1e-12)
	assert.InDelta(t, 90, got.ByID(2).Mean[0], 1e-12)
}

func TestRunMaxIterationsReached(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)
	seeded := seededSet([]float64{10, 10}, []float64{90, 90})

	ctrl := newTestController(img)
	// Threshold zero can never be undercut (strictly below).
	got, state, err := ctrl.Run(ctx, seeded, Params{
		TerminalThreshold: 0,
		MaxIterations:     3,
		MinNumVals:        1,
	})
	require.NoError(t, err)
	assert.Equal(t, StateMaxItersReached, state)
	assert.Equal(t, 2, got.Len())
}

func TestRunFailureLeavesSeededSetUntouched(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)
	seeded := seededSet([]float64{10, 10}, []float64{90, 90})

	ctrl := newTestController(img)
	_, _, err := ctrl.Run(ctx, seeded, Params{
		TerminalThreshold: 1,
		MaxIterations:     5,
		MinNumVals:        1000, // drops every centre
	})
	require.ErrorIs(t, err, ErrAllCentroidsDropped)

	// The input set must not be corrupted by the aborted iteration.
	assert.Equal(t, 2, seeded.Len())
	assert.Equal(t, []float64{10, 10}, seeded.ByID(1).Mean)
}

func TestRunParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)
	p := Params{
		TerminalThreshold:         0.5,
		MaxIterations:             10,
		MinNumVals:                1,
		MinDistanceBetweenCentres: 2,
		StdDevThreshold:           50,
	}

	seqCtrl := NewController(img, raster.AllBands(img), distance.Euclidean, 1, nil, nil)
	seqSet, seqState, err := seqCtrl.Run(ctx, seededSet([]float64{10, 10}, []float64{90, 90}), p)
	require.NoError(t, err)

	parCtrl := NewController(img, raster.AllBands(img), distance.Euclidean, 4, nil, nil)
	parSet, parState, err := parCtrl.Run(ctx, seededSet([]float64{10, 10}, []float64{90, 90}), p)
	require.NoError(t, err)

	assert.Equal(t, seqState, parState)
	require.Equal(t, seqSet.Len(), parSet.Len())
	for _, c := range seqSet.Centroids() {
		pc := parSet.ByID(c.ID)
		require.NotNil(t, pc)
		for b := range c.Mean {
			assert.InDelta(t, c.Mean[b], pc.Mean[b], 1e-9)
		}
	}
}

func TestEndToEndTwoClusters(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)
	bands := raster.AllBands(img)

	seeder := NewSeeder(img, bands, rand.New(rand.NewSource(42)))
	seeded, err := seeder.KMeansPP(ctx, 2)
	require.NoError(t, err)

	ctrl := NewController(img, bands, distance.Euclidean, 1, nil, nil)
	set, state, err := ctrl.Run(ctx, seeded, Params{
		TerminalThreshold:         0.5,
		MaxIterations:             20,
		MinNumVals:                1,
		MinDistanceBetweenCentres: 5,
	})
	require.NoError(t, err)
	assert.Contains(t, []State{StateConverged, StateMaxItersReached}, state)
	require.Equal(t, 2, set.Len())

	cs := set.Centroids()
	lowID, highID := cs[0].ID, cs[1].ID
	if cs[0].Mean[0] > cs[1].Mean[0] {
		lowID, highID = highID, lowID
	}
	assert.InDelta(t, 10, set.ByID(lowID).Mean[0], 2)
	assert.InDelta(t, 10, set.ByID(lowID).Mean[1], 2)
	assert.InDelta(t, 90, set.ByID(highID).Mean[0], 2)
	assert.InDelta(t, 90, set.ByID(highID).Mean[1], 2)

	dst := raster.NewMemImage(4, 4, 1)
	require.NoError(t, Label(ctx, img, dst, bands, set, distance.Euclidean, true))

	assert.Equal(t, float64(BorderLabel), dst.Pixel(0, 0)[0], "border pixel gets the sentinel")
	assert.Equal(t, float64(lowID), dst.Pixel(1, 0)[0])
	assert.Equal(t, float64(lowID), dst.Pixel(3, 1)[0])
	assert.Equal(t, float64(highID), dst.Pixel(0, 2)[0])
	assert.Equal(t, float64(highID), dst.Pixel(3, 3)[0])
}

func TestLabelWithoutIgnoreZeros(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)
	set := seededSet([]float64{10, 10}, []float64{90, 90})

	dst := raster.NewMemImage(4, 4, 1)
	require.NoError(t, Label(ctx, img, dst, raster.AllBands(img), set, distance.Euclidean, false))
	assert.Equal(t, 1.0, dst.Pixel(0, 0)[0], "border pixel assigned like any other when zeros are not ignored")
}

func TestLabelValidation(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)

	err := Label(ctx, img, raster.NewMemImage(4, 4, 1), raster.AllBands(img), NewSet(2), distance.Euclidean, true)
	assert.ErrorIs(t, err, ErrEmptySet)

	set := seededSet([]float64{10, 10})
	err = Label(ctx, img, raster.NewMemImage(4, 4, 2), raster.AllBands(img), set, distance.Euclidean, true)
	assert.Error(t, err)
}
