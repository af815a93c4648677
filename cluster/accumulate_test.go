package cluster

import (
	"context"
	"math"
	"testing"

	"github.com/EnvSys/rsgislib/distance"
	"github.com/EnvSys/rsgislib/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededSet(means ...[]float64) *Set {
	s := NewSet(len(means[0]))
	for _, m := range means {
		s.Add(m)
	}
	return s
}

func TestAccumulatorAssignsAndFinalizes(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)
	set := seededSet([]float64{10, 10}, []float64{90, 90})

	acc := NewAccumulator(set, distance.Euclidean)
	require.NoError(t, raster.EachPixel(ctx, img, raster.AllBands(img), acc))

	res, err := acc.Finalize(1)
	require.NoError(t, err)

	assert.Equal(t, uint64(15), res.ValidPixels, "border pixel skipped")
	require.Equal(t, 2, res.Set.Len())

	low := res.Set.ByID(1)
	high := res.Set.ByID(2)
	require.NotNil(t, low)
	require.NotNil(t, high)
	assert.Equal(t, uint64(7), low.Count)
	assert.Equal(t, uint64(8), high.Count)
	assert.InDelta(t, 10, low.Mean[0], 1.5)
	assert.InDelta(t, 90, high.Mean[0], 1.5)
	assert.Greater(t, res.OverallAvgDist, 0.0)
	assert.Greater(t, res.AvgDist[1], 0.0)
}

func TestAccumulatorDropsUnderPopulated(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)
	// Third centre far from all pixels attracts nothing.
	set := seededSet([]float64{10, 10}, []float64{90, 90}, []float64{500, 500})

	acc := NewAccumulator(set, distance.Euclidean)
	require.NoError(t, raster.EachPixel(ctx, img, raster.AllBands(img), acc))

	res, err := acc.Finalize(1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Set.Len())
	assert.Nil(t, res.Set.ByID(3))
}

func TestAccumulatorAllDropped(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)
	set := seededSet([]float64{10, 10}, []float64{90, 90})

	acc := NewAccumulator(set, distance.Euclidean)
	require.NoError(t, raster.EachPixel(ctx, img, raster.AllBands(img), acc))

	_, err := acc.Finalize(1000)
	assert.ErrorIs(t, err, ErrAllCentroidsDropped)
}

func TestAccumulatorNoValidPixels(t *testing.T) {
	ctx := context.Background()
	img := raster.NewMemImage(2, 2, 2) // all zero, all border
	set := seededSet([]float64{10, 10})

	acc := NewAccumulator(set, distance.Euclidean)
	require.NoError(t, raster.EachPixel(ctx, img, raster.AllBands(img), acc))

	_, err := acc.Finalize(1)
	assert.ErrorIs(t, err, ErrNoValidPixels)
}

func TestAccumulatorCloneMergeMatchesSequential(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)
	set := seededSet([]float64{10, 10}, []float64{90, 90})

	seq := NewAccumulator(set, distance.Euclidean)
	require.NoError(t, raster.EachPixel(ctx, img, raster.AllBands(img), seq))
	seqRes, err := seq.Finalize(1)
	require.NoError(t, err)

	par := NewAccumulator(set, distance.Euclidean)
	err = raster.EachPixelParallel(ctx, img, raster.AllBands(img), 3,
		func() raster.PixelVisitor { return par.Clone() },
		func(v raster.PixelVisitor) error { par.Merge(v.(*Accumulator)); return nil })
	require.NoError(t, err)
	parRes, err := par.Finalize(1)
	require.NoError(t, err)

	assert.Equal(t, seqRes.ValidPixels, parRes.ValidPixels)
	require.Equal(t, seqRes.Set.Len(), parRes.Set.Len())
	for _, c := range seqRes.Set.Centroids() {
		pc := parRes.Set.ByID(c.ID)
		require.NotNil(t, pc)
		assert.Equal(t, c.Count, pc.Count)
		for b := range c.Mean {
			assert.InDelta(t, c.Mean[b], pc.Mean[b], 1e-9)
		}
	}
	assert.InDelta(t, seqRes.OverallAvgDist, parRes.OverallAvgDist, 1e-9)
}

func TestStdDevPass(t *testing.T) {
	ctx := context.Background()
	img := raster.NewMemImage(4, 1, 1)
	img.SetPixel(0, 0, []float64{8})
	img.SetPixel(1, 0, []float64{12})
	img.SetPixel(2, 0, []float64{8})
	img.SetPixel(3, 0, []float64{12})

	set := seededSet([]float64{10})
	sd := NewStdDevPass(set, distance.Euclidean)
	require.NoError(t, raster.EachPixel(ctx, img, raster.AllBands(img), sd))
	sd.Finalize()

	// All four pixels deviate by 2 from the mean of 10.
	assert.InDelta(t, 2.0, set.ByID(1).StdDev[0], 1e-12)
}

func TestStdDevPassCloneMerge(t *testing.T) {
	ctx := context.Background()
	img := twoClusterImage(t)
	set := seededSet([]float64{10, 10}, []float64{90, 90})

	seq := NewStdDevPass(set, distance.Euclidean)
	require.NoError(t, raster.EachPixel(ctx, img, raster.AllBands(img), seq))
	seq.Finalize()
	want0 := set.ByID(1).StdDev[0]
	want1 := set.ByID(2).StdDev[0]

	set2 := seededSet([]float64{10, 10}, []float64{90, 90})
	par := NewStdDevPass(set2, distance.Euclidean)
	err := raster.EachPixelParallel(ctx, img, raster.AllBands(img), 4,
		func() raster.PixelVisitor { return par.Clone() },
		func(v raster.PixelVisitor) error { par.Merge(v.(*StdDevPass)); return nil })
	require.NoError(t, err)
	par.Finalize()

	assert.InDelta(t, want0, set2.ByID(1).StdDev[0], 1e-9)
	assert.InDelta(t, want1, set2.ByID(2).StdDev[0], 1e-9)
}

// The accumulate pass and the labeler must agree on nearest-centroid
// assignment for identical centroid sets, including the lowest-ID tie break.
func TestAssignmentConsistencyBetweenPasses(t *testing.T) {
	set := seededSet([]float64{10, 10}, []float64{90, 90}, []float64{10, 10})
	lab := NewLabeler(set, distance.Euclidean, false)

	out := make([]float64, 1)
	for _, v := range [][]float64{{10, 10}, {50, 50}, {90, 90}, {49.999, 50}} {
		wantID, _ := set.Nearest(v, distance.Euclidean)
		require.NoError(t, lab.MapPixel(v, out))
		assert.Equal(t, float64(wantID), out[0], "pixel %v", v)
	}

	// Exact tie between centroids 1 and 3: lowest ID wins in both passes.
	id, _ := set.Nearest([]float64{10, 10}, distance.Euclidean)
	assert.Equal(t, 1, id)
	require.NoError(t, lab.MapPixel([]float64{10, 10}, out))
	assert.Equal(t, 1.0, out[0])
}

func TestScatterMatchesDeviations(t *testing.T) {
	ctx := context.Background()
	img := raster.NewMemImage(4, 1, 1)
	img.SetPixel(0, 0, []float64{8})
	img.SetPixel(1, 0, []float64{12})
	img.SetPixel(2, 0, []float64{8})
	img.SetPixel(3, 0, []float64{12})

	set := seededSet([]float64{10})
	acc := NewAccumulator(set, distance.Euclidean)
	require.NoError(t, raster.EachPixel(ctx, img, raster.AllBands(img), acc))
	res, err := acc.Finalize(1)
	require.NoError(t, err)

	// Scatter = sum of squared deviations from the accumulated mean: 4*2^2.
	assert.InDelta(t, 16.0, res.Scatter, 1e-9)
	assert.False(t, math.IsNaN(res.Scatter))
}
