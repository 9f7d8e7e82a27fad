package particle

import (
	"math"

	"github.com/banshee-data/eventsel/internal/geom"
)

// Policy constants. The species split is a hard threshold on the PIDA
// score, not a probabilistic model.
const (
	// MaxDirectionNorm2 bounds the squared norm of the direction cosines.
	// Reconstruction does not guarantee unit vectors, only this tolerance.
	MaxDirectionNorm2 = 1.1

	// ProtonPIDThreshold is the PIDA score above which a track is a proton.
	ProtonPIDThreshold = 10.0

	// MaxHitDEdx excludes outlier dE/dx samples from visible energy (MeV/cm).
	MaxHitDEdx = 100.0

	// ProtonMass and MuonMass are rest masses in MeV.
	ProtonMass = 938.2720894
	MuonMass   = 105.6583755
)

// Species is the classification of a valid track.
type Species uint8

const (
	SpeciesMuon Species = iota + 1
	SpeciesProton
)

func (s Species) String() string {
	switch s {
	case SpeciesMuon:
		return "muon"
	case SpeciesProton:
		return "proton"
	}
	return "unknown"
}

// Mass returns the rest mass for the species in MeV.
func (s Species) Mass() float64 {
	if s == SpeciesProton {
		return ProtonMass
	}
	return MuonMass
}

// SelectPlane picks the measurement plane for a per-plane quantity:
// plane 2 when its value is positive, otherwise the declared best plane.
// ok is false when neither choice is usable (best plane out of range).
func SelectPlane(values [NumPlanes]float64, best int) (plane int, ok bool) {
	if values[PreferredPlane] > 0 {
		return PreferredPlane, true
	}
	if best >= 0 && best < NumPlanes {
		return best, true
	}
	return 0, false
}

// ShowerEnergy returns the deposited energy on the shower's selected plane.
func ShowerEnergy(p *Particle) (float64, bool) {
	plane, ok := SelectPlane(p.PlaneEnergy, p.BestPlane)
	if !ok {
		return 0, false
	}
	return p.PlaneEnergy[plane], true
}

// Valid reports whether p may contribute to event aggregates.
//
// Tracks need a non-negative momentum; showers need a non-negative
// deposited energy on a selectable plane. Both need direction cosines with
// squared norm ≤ MaxDirectionNorm2. NaN values fail every comparison and
// are therefore invalid.
func Valid(p *Particle) bool {
	if !(geom.Norm2(p.Direction) <= MaxDirectionNorm2) {
		return false
	}
	switch p.Kind {
	case KindTrack:
		return p.Momentum >= 0
	case KindShower:
		e, ok := ShowerEnergy(p)
		return ok && e >= 0
	}
	return false
}

// Classify returns the species of a track from the PIDA score on its
// selected plane. A track without a selectable PID plane is a muon.
func Classify(p *Particle) Species {
	plane, ok := SelectPlane(p.PID, p.BestPlane)
	if ok && p.PID[plane] > ProtonPIDThreshold {
		return SpeciesProton
	}
	return SpeciesMuon
}

// Magnitude returns the momentum-magnitude proxy: the momentum for tracks
// and the selected-plane deposited energy for showers (massless).
func Magnitude(p *Particle) float64 {
	switch p.Kind {
	case KindTrack:
		return p.Momentum
	case KindShower:
		e, _ := ShowerEnergy(p)
		return e
	}
	return 0
}

// MomentumVector returns Magnitude(p) × direction.
func MomentumVector(p *Particle) geom.Vec3 {
	return geom.Scale(p.Direction, Magnitude(p))
}

// Energy returns the particle's contribution to the event's total energy:
// sqrt(m² + p²) for tracks, |E| for showers.
func Energy(p *Particle) float64 {
	switch p.Kind {
	case KindTrack:
		m := Classify(p).Mass()
		return math.Sqrt(m*m + p.Momentum*p.Momentum)
	case KindShower:
		return math.Abs(Magnitude(p))
	}
	return 0
}

// hitPlane selects the hit-profile plane using the first dE/dx sample of
// each plane as that plane's measurement.
func hitPlane(p *Particle) (int, bool) {
	var first [NumPlanes]float64
	for i := 0; i < NumPlanes; i++ {
		if len(p.Hits[i]) > 0 {
			first[i] = p.Hits[i][0].DEdx
		}
	}
	return SelectPlane(first, p.BestPlane)
}

// VisibleEnergy integrates dE/dx along the track's selected hit profile:
// Σ dEdx_k × |x_k − x_{k−1}| for k ≥ 1. Samples above MaxHitDEdx, and
// non-finite samples, are skipped. Showers return 0.
func VisibleEnergy(p *Particle) float64 {
	if p.Kind != KindTrack {
		return 0
	}
	plane, ok := hitPlane(p)
	if !ok {
		return 0
	}
	hits := p.Hits[plane]
	var e float64
	for k := 1; k < len(hits); k++ {
		dedx := hits[k].DEdx
		if !(dedx <= MaxHitDEdx) || math.IsInf(dedx, -1) {
			continue
		}
		e += dedx * geom.Distance(hits[k].Pos, hits[k-1].Pos)
	}
	return e
}
