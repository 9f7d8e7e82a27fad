// Package selection applies the pre-selection cuts to a sample's feature
// table and renormalises the surviving weights.
//
// Selection is a whole-table barrier: the renormalisation factor depends on
// the final kept count, so it cannot be streamed.
package selection

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/eventsel/internal/features"
	"github.com/banshee-data/eventsel/internal/sample"
)

// Default cut thresholds.
const (
	DefaultMinParticles     = 1    // reject NumParticles <= this
	DefaultMaxMomentum      = 980  // reject TotalMomentum >= this (MeV/c)
	DefaultMaxVisibleEnergy = 1800 // reject VisibleEnergy > this (MeV)
)

// Reason names the cut that rejected an event.
type Reason string

const (
	ReasonParticles     Reason = "num_particles"
	ReasonMomentum      Reason = "tot_momentum"
	ReasonVisibleEnergy Reason = "visible_energy"
)

// Cuts holds the selection thresholds.
type Cuts struct {
	MinParticles     int
	MaxMomentum      float64
	MaxVisibleEnergy float64
}

// DefaultCuts returns the standard pre-selection.
func DefaultCuts() Cuts {
	return Cuts{
		MinParticles:     DefaultMinParticles,
		MaxMomentum:      DefaultMaxMomentum,
		MaxVisibleEnergy: DefaultMaxVisibleEnergy,
	}
}

// Reject reports whether rec fails a cut and which one. Cuts are applied in
// order and the first failing cut wins.
func (c Cuts) Reject(rec features.Record) (Reason, bool) {
	switch {
	case rec.NumParticles <= c.MinParticles:
		return ReasonParticles, true
	case rec.TotalMomentum >= c.MaxMomentum:
		return ReasonMomentum, true
	case rec.VisibleEnergy > c.MaxVisibleEnergy:
		return ReasonVisibleEnergy, true
	}
	return "", false
}

// Summary is the diagnostic outcome of Apply. It is informational only.
type Summary struct {
	Total        int
	Kept         int
	Cut          int
	ByReason     map[Reason]int
	WeightBefore float64
	WeightAfter  float64
	Scale        float64 // factor applied to surviving weights
}

// KeptFraction returns Kept/Total, or 0 for an empty table.
func (s Summary) KeptFraction() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Kept) / float64(s.Total)
}

// CutFraction returns Cut/Total, or 0 for an empty table.
func (s Summary) CutFraction() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Cut) / float64(s.Total)
}

func (s Summary) String() string {
	return fmt.Sprintf("kept: %.4f cut: %.4f (%d/%d, particles=%d momentum=%d energy=%d)",
		s.KeptFraction(), s.CutFraction(), s.Kept, s.Total,
		s.ByReason[ReasonParticles], s.ByReason[ReasonMomentum], s.ByReason[ReasonVisibleEnergy])
}

// Apply filters table with cuts. Surviving rows are copied unchanged. When
// renormalise is set (reference-bearing samples), every surviving weight is
// multiplied by len(table)/kept. The input table is not modified.
func Apply(table sample.Table, cuts Cuts, renormalise bool) (sample.Table, Summary) {
	sum := Summary{
		Total:        len(table),
		ByReason:     make(map[Reason]int, 3),
		WeightBefore: floats.Sum(table.Weights()),
		Scale:        1,
	}

	kept := make(sample.Table, 0, len(table))
	for _, row := range table {
		if reason, rejected := cuts.Reject(row.Features); rejected {
			sum.ByReason[reason]++
			sum.Cut++
			continue
		}
		kept = append(kept, row)
	}
	sum.Kept = len(kept)

	if renormalise && sum.Kept > 0 {
		sum.Scale = float64(sum.Total) / float64(sum.Kept)
		for i := range kept {
			kept[i].Weight *= sum.Scale
		}
	}
	sum.WeightAfter = floats.Sum(kept.Weights())
	return kept, sum
}
