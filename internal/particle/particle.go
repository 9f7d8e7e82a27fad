// Package particle owns the reconstructed-particle model and the
// classification policy applied to it.
//
// Responsibilities: validity filtering, measurement-plane selection,
// track species classification and per-track visible energy.
// Key types: Particle, Event, Hit, Species.
package particle

import "github.com/banshee-data/eventsel/internal/geom"

// NumPlanes is the number of independent detector measurement views.
const NumPlanes = 3

// PreferredPlane is the plane used whenever its measurement is positive.
const PreferredPlane = 2

// Kind distinguishes the two mutually exclusive reconstructed categories.
type Kind uint8

const (
	// KindNone marks a slot flagged neither track nor shower. It keeps the
	// slot's position in the event and is never valid.
	KindNone Kind = iota
	// KindTrack is a charged-particle trajectory.
	KindTrack
	// KindShower is an electromagnetic cascade.
	KindShower
)

func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindShower:
		return "shower"
	case KindNone:
		return "none"
	}
	return "unknown"
}

// Hit is one sample of a track's hit profile on a single plane.
type Hit struct {
	Pos  geom.Vec3 // cm
	DEdx float64   // MeV/cm
}

// Particle is a single reconstructed object. Only the fields relevant to
// its Kind are meaningful: tracks use Momentum, PID and Hits; showers use
// PlaneEnergy.
type Particle struct {
	Kind      Kind
	Direction geom.Vec3 // start direction cosines

	// Track fields
	Momentum float64            // range-based momentum estimate (MeV/c)
	PID      [NumPlanes]float64 // PIDA score per plane
	Hits     [NumPlanes][]Hit   // hit profile per plane

	// Shower fields
	PlaneEnergy [NumPlanes]float64 // deposited energy per plane (MeV)

	BestPlane int // declared best plane, used when plane 2 has no measurement
}

// Event is one reconstructed interaction. Particles keep input order.
// Vertex is only used for weighting.
type Event struct {
	Particles []Particle
	Vertex    geom.Vec3
}

// IsTrack reports whether p is a track.
func (p *Particle) IsTrack() bool { return p.Kind == KindTrack }

// IsShower reports whether p is a shower.
func (p *Particle) IsShower() bool { return p.Kind == KindShower }
