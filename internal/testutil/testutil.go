// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the event builders used by the feature,
// weighting, storage and pipeline tests so that every package exercises
// the same reconstructed-particle shapes.
package testutil

import (
	"github.com/banshee-data/eventsel/internal/geom"
	"github.com/banshee-data/eventsel/internal/particle"
)

// Track builds a track with the given momentum (MeV/c), direction and PIDA
// score on plane 2. Its best plane is 2 and it has no hit profile.
func Track(momentum float64, dir geom.Vec3, pid float64) particle.Particle {
	return particle.Particle{
		Kind:      particle.KindTrack,
		Direction: dir,
		Momentum:  momentum,
		PID:       [particle.NumPlanes]float64{0, 0, pid},
		BestPlane: 2,
	}
}

// Shower builds a shower depositing energy (MeV) on plane 2.
func Shower(energy float64, dir geom.Vec3) particle.Particle {
	return particle.Particle{
		Kind:        particle.KindShower,
		Direction:   dir,
		PlaneEnergy: [particle.NumPlanes]float64{0, 0, energy},
		BestPlane:   2,
	}
}

// StraightHits returns n hits on a straight line along z,
// spaced step cm apart, each with the given dE/dx.
func StraightHits(n int, step, dedx float64) []particle.Hit {
	hits := make([]particle.Hit, n)
	for i := range hits {
		hits[i] = particle.Hit{Pos: geom.Vec3{Z: float64(i) * step}, DEdx: dedx}
	}
	return hits
}

// ProtonShowerEvent is the back-to-back proton + shower event used across
// packages: a 1000 MeV/c proton along +z and a 500 MeV shower along -z.
func ProtonShowerEvent() particle.Event {
	return particle.Event{
		Particles: []particle.Particle{
			Track(1000, geom.Vec3{Z: 1}, 15),
			Shower(500, geom.Vec3{Z: -1}),
		},
		Vertex: geom.Vec3{X: 0.1},
	}
}

// MixedEvent returns a multi-particle event with hit profiles, both
// species and a spread of directions. Its features pass the default cuts.
func MixedEvent(vertex geom.Vec3) particle.Event {
	mu := Track(300, geom.Vec3{X: 0.6, Z: 0.8}, 4)
	mu.Hits[2] = StraightHits(20, 0.5, 2.1)

	p := Track(450, geom.Vec3{X: -0.8, Y: 0.6}, 18)
	p.Hits[2] = StraightHits(10, 0.4, 8)

	return particle.Event{
		Particles: []particle.Particle{
			mu,
			Shower(120, geom.Vec3{Y: -1}),
			p,
			Shower(80, geom.Vec3{X: 0.6, Y: -0.8}),
		},
		Vertex: vertex,
	}
}
