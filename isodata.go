package rsgislib

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/EnvSys/rsgislib/cluster"
	"github.com/EnvSys/rsgislib/distance"
	"github.com/EnvSys/rsgislib/raster"
	"github.com/EnvSys/rsgislib/snapshot"
)

// RefineParams controls the ISODATA refinement loop. See cluster.Params.
type RefineParams = cluster.Params

// RunState describes where a classifier is in its lifecycle.
type RunState = cluster.State

// Re-exported lifecycle states.
const (
	StateSeeding         = cluster.StateSeeding
	StateSeeded          = cluster.StateSeeded
	StateIterating       = cluster.StateIterating
	StateConverged       = cluster.StateConverged
	StateMaxItersReached = cluster.StateMaxItersReached
)

// IterationStats describes one completed refinement iteration.
type IterationStats = cluster.IterationStats

// ISODATAClassifier clusters a multi-band raster image with the ISODATA
// algorithm: seed centres, iteratively refine them with merge and split
// heuristics, then label every pixel with its nearest centre.
//
// The classifier is safe for concurrent use, but operations serialize on an
// internal lock; pixel-level parallelism is configured with WithWorkers.
type ISODATAClassifier struct {
	img   raster.Image
	bands []int
	dist  distance.Func
	opts  options

	mu    sync.Mutex
	set   *cluster.Set
	state RunState
}

// NewISODATAClassifier creates a classifier over the given image.
// Band selection is validated up front so misconfiguration surfaces before
// any pixel is read.
func NewISODATAClassifier(img raster.Image, optFns ...Option) (*ISODATAClassifier, error) {
	o := applyOptions(optFns)

	bands := o.bands
	if len(bands) == 0 {
		bands = raster.AllBands(img)
	}
	if err := raster.CheckBands(img, bands); err != nil {
		return nil, err
	}

	dist, err := distance.Provider(o.metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDistanceMetric, err)
	}

	return &ISODATAClassifier{
		img:   img,
		bands: bands,
		dist:  dist,
		opts:  o,
		state: StateSeeding,
	}, nil
}

// State returns the current lifecycle state.
func (c *ISODATAClassifier) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ClusterCentres returns a deep copy of the current centre set, or nil when
// nothing has been seeded yet.
func (c *ISODATAClassifier) ClusterCentres() *cluster.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set == nil {
		return nil
	}
	return c.set.Clone()
}

// InitClusterCentresRandom seeds k cluster centres by sampling k distinct
// valid pixels uniformly at random.
func (c *ISODATAClassifier) InitClusterCentresRandom(ctx context.Context, k int) error {
	return c.seed(ctx, "random", k, func(s *cluster.Seeder) (*cluster.Set, error) {
		return s.Random(ctx, k)
	})
}

// InitClusterCentresKpp seeds k cluster centres with k-means++: each new
// centre is drawn with probability proportional to its squared distance from
// the centres chosen so far.
func (c *ISODATAClassifier) InitClusterCentresKpp(ctx context.Context, k int) error {
	return c.seed(ctx, "kmeans++", k, func(s *cluster.Seeder) (*cluster.Set, error) {
		return s.KMeansPP(ctx, k)
	})
}

func (c *ISODATAClassifier) seed(ctx context.Context, method string, k int, fn func(*cluster.Seeder) (*cluster.Set, error)) error {
	start := time.Now()
	err := c.doSeed(ctx, k, fn)
	c.opts.metricsCollector.RecordSeed(k, time.Since(start), err)
	c.opts.logger.LogSeed(ctx, method, k, err)
	return err
}

func (c *ISODATAClassifier) doSeed(ctx context.Context, k int, fn func(*cluster.Seeder) (*cluster.Set, error)) error {
	if k < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidClusterCount, k)
	}

	set, err := fn(cluster.NewSeeder(c.img, c.bands, c.rng()))
	if err != nil {
		return translateError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = set
	c.state = StateSeeded
	return nil
}

func (c *ISODATAClassifier) rng() *rand.Rand {
	if c.opts.seedSet {
		return rand.New(rand.NewSource(c.opts.seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// CalcClusterCentres runs the ISODATA refinement loop until convergence or
// the iteration budget runs out. On failure the previously published centre
// set is left untouched.
func (c *ISODATAClassifier) CalcClusterCentres(ctx context.Context, p RefineParams) error {
	c.mu.Lock()
	seeded := c.set
	c.mu.Unlock()
	if seeded == nil {
		return ErrNotSeeded
	}

	iterations := 0
	onIteration := func(stats IterationStats) {
		iterations = stats.Iteration
		c.opts.metricsCollector.RecordIteration(stats.Iteration, stats.Centroids, stats.Merges, stats.Splits)
	}

	ctrl := cluster.NewController(c.img, c.bands, c.dist, c.opts.workers, c.opts.logger.Logger, onIteration)

	start := time.Now()
	refined, state, err := ctrl.Run(ctx, seeded, p)
	if err != nil {
		err = &ClusteringError{Iteration: iterations + 1, cause: translateError(err)}
		c.opts.metricsCollector.RecordRefine(iterations, time.Since(start), err)
		c.opts.logger.LogRefine(ctx, iterations, 0, state, err)
		return err
	}

	c.mu.Lock()
	c.set = refined
	c.state = state
	c.mu.Unlock()

	c.opts.metricsCollector.RecordRefine(iterations, time.Since(start), nil)
	c.opts.logger.LogRefine(ctx, iterations, refined.Len(), state, nil)
	return nil
}

// GenerateOutputImage writes each pixel's cluster ID into the single-band
// destination image. Border pixels get label 0 when ignore-zeros is active.
func (c *ISODATAClassifier) GenerateOutputImage(ctx context.Context, dst raster.MutableImage) error {
	c.mu.Lock()
	set := c.set
	c.mu.Unlock()
	if set == nil || set.Len() == 0 {
		return ErrNoCentroids
	}

	start := time.Now()
	err := labelPixels(ctx, c.img, dst, c.bands, set, c.dist, c.opts.ignoreZeros)
	c.opts.metricsCollector.RecordLabel(time.Since(start), err)
	c.opts.logger.LogLabel(ctx, set.Len(), time.Since(start), err)
	return err
}

// Snapshot serializes the current cluster centres with the configured codec.
func (c *ISODATAClassifier) Snapshot() ([]byte, error) {
	c.mu.Lock()
	set := c.set
	c.mu.Unlock()
	if set == nil {
		return nil, ErrNoCentroids
	}
	return snapshot.Encode(set, snapshot.WithCodec(c.opts.codec))
}

// Restore installs previously snapshotted cluster centres, making the
// classifier ready for labelling or further refinement.
func (c *ISODATAClassifier) Restore(data []byte) error {
	set, err := snapshot.Decode(data)
	if err != nil {
		return err
	}
	if set.Bands() != len(c.bands) {
		return fmt.Errorf("snapshot has %d bands, classifier uses %d", set.Bands(), len(c.bands))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = set
	c.state = StateSeeded
	return nil
}

// LabelPixelsUsingClusters assigns every pixel of img to its nearest centre
// in set and writes the cluster IDs into the single-band dst. It is the
// label-only entry point for centre sets trained elsewhere, typically loaded
// with snapshot.Load.
func LabelPixelsUsingClusters(ctx context.Context, img raster.Image, dst raster.MutableImage, set *cluster.Set, ignoreZeros bool, optFns ...Option) error {
	o := applyOptions(optFns)

	bands := o.bands
	if len(bands) == 0 {
		bands = raster.AllBands(img)
	}
	if err := raster.CheckBands(img, bands); err != nil {
		return err
	}

	dist, err := distance.Provider(o.metric)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDistanceMetric, err)
	}

	start := time.Now()
	err = labelPixels(ctx, img, dst, bands, set, dist, ignoreZeros)
	o.metricsCollector.RecordLabel(time.Since(start), err)
	o.logger.LogLabel(ctx, set.Len(), time.Since(start), err)
	return err
}

func labelPixels(ctx context.Context, img raster.Image, dst raster.MutableImage, bands []int, set *cluster.Set, dist distance.Func, ignoreZeros bool) error {
	if dst.Bands() != 1 {
		return fmt.Errorf("%w: output must have one band, got %d", ErrCreateOutput, dst.Bands())
	}
	if dst.Width() != img.Width() || dst.Height() != img.Height() {
		return fmt.Errorf("%w: output is %dx%d, input is %dx%d",
			ErrCreateOutput, dst.Width(), dst.Height(), img.Width(), img.Height())
	}
	return translateError(cluster.Label(ctx, img, dst, bands, set, dist, ignoreZeros))
}
