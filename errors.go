package rsgislib

import (
	"errors"
	"fmt"

	"github.com/EnvSys/rsgislib/cluster"
)

var (
	// ErrInvalidClusterCount is returned when the requested cluster count
	// is not positive.
	ErrInvalidClusterCount = errors.New("cluster count must be positive")

	// ErrInsufficientPixels is returned when the image does not contain
	// enough valid pixels to seed the requested cluster count.
	ErrInsufficientPixels = errors.New("not enough valid pixels")

	// ErrNotSeeded is returned when refinement is requested before any
	// cluster centres have been initialized.
	ErrNotSeeded = errors.New("cluster centres have not been seeded")

	// ErrNoCentroids is returned when labelling is requested but no cluster
	// centres exist.
	ErrNoCentroids = errors.New("no cluster centres available")

	// ErrCreateOutput is returned when the output image cannot be used for
	// labelling.
	ErrCreateOutput = errors.New("cannot create output image")

	// ErrInvalidDistanceMetric is returned when the configured distance
	// metric is not supported.
	ErrInvalidDistanceMetric = errors.New("unsupported distance metric")
)

// ClusteringError indicates that a refinement run failed mid-iteration.
// The previously published centre set is left untouched.
//
// The original underlying error can be accessed via errors.Unwrap.
type ClusteringError struct {
	Iteration int
	cause     error
}

func (e *ClusteringError) Error() string {
	return fmt.Sprintf("clustering failed at iteration %d: %v", e.Iteration, e.cause)
}

func (e *ClusteringError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, cluster.ErrInsufficientPixels) {
		return fmt.Errorf("%w: %w", ErrInsufficientPixels, err)
	}
	if errors.Is(err, cluster.ErrEmptySet) {
		return fmt.Errorf("%w: %w", ErrNoCentroids, err)
	}

	// raster.BandRangeError carries its own context and passes through.
	return err
}
