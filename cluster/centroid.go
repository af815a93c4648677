package cluster

import (
	"fmt"
	"slices"

	"github.com/EnvSys/rsgislib/distance"
)

// Centroid is one cluster centre: a stable integer ID, per-band mean and
// standard deviation vectors, and the population currently assigned to it.
// IDs start at 1; 0 is reserved for the border/no-data label sentinel.
type Centroid struct {
	ID     int
	Mean   []float64
	StdDev []float64
	Count  uint64
}

func (c *Centroid) clone() *Centroid {
	return &Centroid{
		ID:     c.ID,
		Mean:   slices.Clone(c.Mean),
		StdDev: slices.Clone(c.StdDev),
		Count:  c.Count,
	}
}

// Set is an ordered collection of cluster centroids. Centroids are kept in
// ascending ID order and IDs are never reused within a clustering run, so
// split/merge can mutate the collection without disturbing identity.
type Set struct {
	centroids []*Centroid
	bands     int
	nextID    int
}

// NewSet creates an empty centroid set for vectors of the given band count.
func NewSet(bands int) *Set {
	return &Set{bands: bands, nextID: 1}
}

// RestoreSet rebuilds a set from previously exported centroids, preserving
// their IDs. Centroids must have unique positive IDs in ascending order and
// mean vectors matching the band count.
func RestoreSet(bands int, centroids []*Centroid) (*Set, error) {
	s := NewSet(bands)
	lastID := 0
	for _, c := range centroids {
		if c.ID <= lastID {
			return nil, fmt.Errorf("centroid IDs must be ascending and positive, got %d after %d", c.ID, lastID)
		}
		if len(c.Mean) != bands {
			return nil, fmt.Errorf("centroid %d has %d bands, want %d", c.ID, len(c.Mean), bands)
		}
		lastID = c.ID
		cc := c.clone()
		if len(cc.StdDev) != bands {
			cc.StdDev = make([]float64, bands)
		}
		s.centroids = append(s.centroids, cc)
	}
	s.nextID = lastID + 1
	return s, nil
}

// Bands returns the number of bands each centroid vector has.
func (s *Set) Bands() int { return s.bands }

// Len returns the number of centroids.
func (s *Set) Len() int { return len(s.centroids) }

// Centroids returns the centroids in ascending ID order. The slice and its
// elements are owned by the set; callers must not mutate them.
func (s *Set) Centroids() []*Centroid { return s.centroids }

// ByID returns the centroid with the given ID, or nil.
func (s *Set) ByID(id int) *Centroid {
	i, ok := s.search(id)
	if !ok {
		return nil
	}
	return s.centroids[i]
}

// Add appends a centroid with a fresh sequential ID and the given mean.
func (s *Set) Add(mean []float64) *Centroid {
	c := &Centroid{
		ID:     s.nextID,
		Mean:   slices.Clone(mean),
		StdDev: make([]float64, s.bands),
	}
	s.nextID++
	s.centroids = append(s.centroids, c)
	return c
}

// Remove deletes the centroid with the given ID, if present.
func (s *Set) Remove(id int) {
	if i, ok := s.search(id); ok {
		s.centroids = slices.Delete(s.centroids, i, i+1)
	}
}

// Clone returns a deep copy sharing nothing with the receiver. The ID counter
// is carried over so fresh IDs stay unique across copies within a run.
func (s *Set) Clone() *Set {
	out := &Set{
		centroids: make([]*Centroid, len(s.centroids)),
		bands:     s.bands,
		nextID:    s.nextID,
	}
	for i, c := range s.centroids {
		out.centroids[i] = c.clone()
	}
	return out
}

// cloneEmpty returns an empty set carrying over band count and ID counter.
func (s *Set) cloneEmpty() *Set {
	return &Set{bands: s.bands, nextID: s.nextID}
}

// Nearest returns the ID of the centroid closest to v and the distance to it.
// Ties are broken towards the lowest centroid ID. Returns -1 for an empty set.
func (s *Set) Nearest(v []float64, dist distance.Func) (int, float64) {
	best := -1
	var bestDist float64
	for _, c := range s.centroids {
		d := dist(v, c.Mean)
		if best == -1 || d < bestDist {
			best = c.ID
			bestDist = d
		}
	}
	return best, bestDist
}

func (s *Set) search(id int) (int, bool) {
	return slices.BinarySearchFunc(s.centroids, id, func(c *Centroid, id int) int {
		return c.ID - id
	})
}
