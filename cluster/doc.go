// Package cluster implements the ISODATA clustering core: the centroid set
// with stable IDs, random and k-means++ seeding, the accumulate and std-dev
// raster passes, the split/merge refinement controller, and the labeling
// pass.
//
// The published centroid set is read-only during any pass; a pass accumulates
// into its own working state and a new set is swapped in at the pass
// boundary. A failed iteration therefore never leaves a partially updated
// set behind.
package cluster
