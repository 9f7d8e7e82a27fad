// Package weights assigns each event a statistical weight by matching its
// vertex to the nearest vertex of a reference sample.
//
// The nearest-vertex search sits behind NearestLookup so that the
// brute-force scan can be swapped for a spatial index without changing the
// weighting contract. Both lookups treat the reference as read-only and are
// safe for concurrent use once built.
package weights

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/eventsel/internal/geom"
)

// ErrEmptyReference is returned when nearest-neighbour weighting is asked
// to run against a reference sample with no entries.
var ErrEmptyReference = errors.New("weights: reference sample is empty")

// Reference is one entry of the reference sample.
type Reference struct {
	Vertex geom.Vec3
	Weight float64
}

// NearestLookup finds the reference entry closest to a point.
type NearestLookup interface {
	// LookupNearest returns the Euclidean distance to the nearest reference
	// vertex and that entry's weight.
	LookupNearest(p geom.Vec3) (distance, weight float64)
}

// BruteForce is a linear scan over the reference sample. Ties keep the
// earliest entry.
type BruteForce struct {
	refs []Reference
}

// NewBruteForce returns a BruteForce lookup over refs. The slice is not
// copied and must not be mutated while the lookup is in use.
func NewBruteForce(refs []Reference) (*BruteForce, error) {
	if len(refs) == 0 {
		return nil, ErrEmptyReference
	}
	return &BruteForce{refs: refs}, nil
}

// LookupNearest implements NearestLookup.
func (b *BruteForce) LookupNearest(p geom.Vec3) (float64, float64) {
	minDist := math.Inf(1)
	var weight float64
	for i := range b.refs {
		d := geom.Distance(p, b.refs[i].Vertex)
		if d < minDist {
			minDist = d
			weight = b.refs[i].Weight
		}
	}
	return minDist, weight
}

// Assign returns the nearest-neighbour weight of every vertex scaled by
// referenceSize / len(vertices), so that a subset processed on its own is
// normalised to the reference's event-rate density.
func Assign(vertices []geom.Vec3, lookup NearestLookup, referenceSize int) ([]float64, error) {
	if lookup == nil {
		return nil, errors.New("weights: nil lookup")
	}
	if referenceSize <= 0 {
		return nil, ErrEmptyReference
	}
	out := make([]float64, len(vertices))
	if len(vertices) == 0 {
		return out, nil
	}
	scale := SampleScale(referenceSize, len(vertices))
	for i, v := range vertices {
		_, w := lookup.LookupNearest(v)
		out[i] = w * scale
	}
	return out, nil
}

// SampleScale returns the renormalisation factor referenceSize/eventSize.
func SampleScale(referenceSize, eventSize int) float64 {
	if eventSize <= 0 {
		return 0
	}
	return float64(referenceSize) / float64(eventSize)
}

// SelfWeighted returns n weights of exactly 1, used for samples that carry
// no external reference.
func SelfWeighted(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// Method names a NearestLookup implementation.
type Method string

const (
	MethodBruteForce Method = "brute"
	MethodKDTree     Method = "kdtree"
)

// NewLookup builds the lookup selected by method.
func NewLookup(method Method, refs []Reference) (NearestLookup, error) {
	switch method {
	case "", MethodBruteForce:
		return NewBruteForce(refs)
	case MethodKDTree:
		return NewKDTree(refs)
	}
	return nil, fmt.Errorf("unknown nearest_neighbour method %q", method)
}

// ParseMethod validates a configured method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case "":
		return MethodBruteForce, nil
	case MethodBruteForce, MethodKDTree:
		return m, nil
	}
	return "", fmt.Errorf("unknown nearest_neighbour method %q", s)
}
