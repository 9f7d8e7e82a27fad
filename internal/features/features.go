// Package features computes the fixed per-event feature vector: particle
// multiplicities, visible energies, momentum sum, invariant mass,
// sphericity, aplanarity and the first three Fox-Wolfram moments.
//
// Extraction is a pure function of the event. All accumulators live on the
// stack of a single Extract call.
package features

import (
	"fmt"
	"math"

	"github.com/banshee-data/eventsel/internal/geom"
	"github.com/banshee-data/eventsel/internal/particle"
)

// FoxWolframMode controls how an invalid inner-loop particle contributes to
// the Fox-Wolfram double sum.
type FoxWolframMode uint8

const (
	// FoxWolframStrict drops invalid inner-loop particles from the sum.
	FoxWolframStrict FoxWolframMode = iota
	// FoxWolframLegacy reuses the previous inner iteration's magnitude and
	// direction when the inner-loop particle is invalid. The cache is zeroed
	// at the start of every outer particle. This reproduces the values
	// produced by the legacy ROOT macros.
	FoxWolframLegacy
)

func (m FoxWolframMode) String() string {
	switch m {
	case FoxWolframStrict:
		return "strict"
	case FoxWolframLegacy:
		return "legacy"
	}
	return fmt.Sprintf("FoxWolframMode(%d)", uint8(m))
}

// ParseFoxWolframMode converts a configuration string to a mode.
func ParseFoxWolframMode(s string) (FoxWolframMode, error) {
	switch s {
	case "", "strict":
		return FoxWolframStrict, nil
	case "legacy":
		return FoxWolframLegacy, nil
	}
	return 0, fmt.Errorf("unknown fox_wolfram_mode %q (want strict or legacy)", s)
}

// Record is the feature vector for one event. It is immutable once
// returned by Extract.
type Record struct {
	NumParticles int `json:"num_particles"`
	NumShowers   int `json:"num_showers"`
	NumTracks    int `json:"num_tracks"`
	NumProtons   int `json:"num_p"`
	NumMuons     int `json:"num_mu"`

	TrackEnergy   float64 `json:"trk_eng"`        // MeV
	ShowerEnergy  float64 `json:"shwr_eng"`       // MeV
	VisibleEnergy float64 `json:"visible_energy"` // MeV
	TotalMomentum float64 `json:"tot_momentum"`   // MeV/c
	InvariantMass float64 `json:"invariant_mass"` // MeV

	Sphericity float64 `json:"sphericity"`
	Aplanarity float64 `json:"aplanarity"`

	FW0 float64 `json:"FW0"`
	FW1 float64 `json:"FW1"`
	FW2 float64 `json:"FW2"`
}

// Extractor computes Records. The zero value uses FoxWolframStrict.
type Extractor struct {
	Mode FoxWolframMode
}

// NewExtractor returns an Extractor using the given Fox-Wolfram mode.
func NewExtractor(mode FoxWolframMode) *Extractor {
	return &Extractor{Mode: mode}
}

// Extract computes the feature Record of ev.
//
// Algorithm:
//  1. For every valid track: count it, classify it (proton or muon),
//     integrate its hit-profile visible energy and accumulate its momentum
//     vector, event-shape outer product, |p|² and sqrt(m²+p²).
//  2. For every valid shower: count it, add its deposited energy and
//     accumulate momentum (massless, E×direction), shape tensor, E² and |E|.
//  3. For every valid particle i, sum over all particles j the
//     Fox-Wolfram terms p_i·p_j·P_l(cosθ_ij) for l = 0, 1, 2.
//  4. Derive totals: invariant mass with a clamped radicand, shape tensor
//     normalised by Σ|p|² and diagonalised, FW moments normalised by the
//     squared visible energy.
//
// Degenerate events (no valid particles) yield zero shape variables and
// zero moments rather than NaN. Extract never fails.
func (x *Extractor) Extract(ev particle.Event) Record {
	var (
		rec      Record
		totP     geom.Vec3
		tensor   geom.SymMat3
		sumP2    float64
		totalEng float64
	)

	for i := range ev.Particles {
		p := &ev.Particles[i]
		if !particle.Valid(p) {
			continue
		}

		switch p.Kind {
		case particle.KindTrack:
			rec.NumTracks++
			if particle.Classify(p) == particle.SpeciesProton {
				rec.NumProtons++
			} else {
				rec.NumMuons++
			}
			rec.TrackEnergy += particle.VisibleEnergy(p)
		case particle.KindShower:
			rec.NumShowers++
			rec.ShowerEnergy += particle.Magnitude(p)
		}

		mag := particle.Magnitude(p)
		pv := particle.MomentumVector(p)
		totP = geom.Add(totP, pv)
		tensor.AddOuter(pv)
		sumP2 += mag * mag
		totalEng += particle.Energy(p)
	}

	fw := x.foxWolfram(ev.Particles)

	rec.NumParticles = rec.NumTracks + rec.NumShowers
	rec.VisibleEnergy = rec.TrackEnergy + rec.ShowerEnergy
	rec.TotalMomentum = geom.Norm(totP)

	// Round-off can push the radicand slightly negative for massless
	// collinear configurations.
	rec.InvariantMass = math.Sqrt(math.Max(totalEng*totalEng-rec.TotalMomentum*rec.TotalMomentum, 0))

	rec.Sphericity, rec.Aplanarity = eventShape(tensor, sumP2)

	if norm := rec.VisibleEnergy * rec.VisibleEnergy; norm > 0 {
		rec.FW0 = fw[0] / norm
		rec.FW1 = fw[1] / norm
		rec.FW2 = fw[2] / norm
	}

	return rec
}

// eventShape returns sphericity = 1.5(λ2+λ3) and aplanarity = 1.5λ3 of
// the normalised shape tensor. A non-positive normalisation or a failed
// decomposition yields (0, 0).
func eventShape(tensor geom.SymMat3, sumP2 float64) (sphericity, aplanarity float64) {
	if !(sumP2 > 0) {
		return 0, 0
	}
	eig, err := geom.EigenSym3(tensor.Scaled(1 / sumP2))
	if err != nil {
		return 0, 0
	}
	// The tensor is PSD by construction; clamp solver noise below zero.
	l2 := math.Max(eig.Values[1], 0)
	l3 := math.Max(eig.Values[2], 0)
	return 1.5 * (l2 + l3), 1.5 * l3
}

// fwTerm is one side of a Fox-Wolfram pair.
type fwTerm struct {
	mag float64
	dir geom.Vec3
}

// foxWolfram returns the unnormalised sums FW0, FW1 and FW2 over ordered
// pairs (i, j), including i == j.
func (x *Extractor) foxWolfram(parts []particle.Particle) [3]float64 {
	var fw [3]float64
	for i := range parts {
		pi := &parts[i]
		if !particle.Valid(pi) {
			continue
		}
		ti := fwTerm{mag: particle.Magnitude(pi), dir: pi.Direction}

		var cached fwTerm
		for j := range parts {
			pj := &parts[j]
			if particle.Valid(pj) {
				cached = fwTerm{mag: particle.Magnitude(pj), dir: pj.Direction}
			} else if x.Mode == FoxWolframStrict {
				continue
			}

			cos := geom.Dot3(ti.dir, cached.dir)
			w := ti.mag * cached.mag
			fw[0] += w
			fw[1] += w * cos
			fw[2] += w * 0.5 * (3*cos*cos - 1)
		}
	}
	return fw
}
