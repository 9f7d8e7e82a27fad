// Package rootio reads event and reference samples from ROOT files and
// writes feature and weight tables back as ROOT trees, using go-hep groot.
//
// Event tree layout (one entry per event):
//
//	nPFParticles                 int32      slot flag count
//	pfp_isTrack, pfp_isShower    []int32    [nPFParticles]
//	ntracks_pandoraTrack         int32
//	ntrkplanes_pandoraTrack      int32      3*ntracks
//	trkpidbestplane_pandoraTrack []int32    [ntracks]
//	trkmomrange_pandoraTrack     []float32  [ntracks], GeV/c
//	trkstartdcos{x,y,z}_...      []float32  [ntracks]
//	trkpidpida_pandoraTrack      []float32  [3*ntracks], track-major
//	ntrkhits_pandoraTrack        int32      total hits of the event
//	trkhittrack_, trkhitplane_   []int32    [nhits] owning slot and plane
//	trkdedx_pandoraTrack         []float32  [nhits], MeV/cm
//	trkxyz{x,y,z}_pandoraTrack   []float32  [nhits], cm
//	nshowers_pandoraShower       int32
//	nshwrplanes_pandoraShower    int32      3*nshowers
//	shwr_bestplane_pandoraShower []int32    [nshowers]
//	shwr_totEng_pandoraShower    []float32  [3*nshowers], MeV
//	shwr_startdcos{x,y,z}_...    []float32  [nshowers]
//	nuvtx{x,y,z}[_truth]         float32    (names configurable)
//
// The vertex is read from nuvtx{x,y,z}_truth for reference-bearing samples
// and from nuvtx{x,y,z} otherwise.
//
// Slots share one index space 0..max(ntracks, nshowers)-1: slot j is a
// track when pfp_isTrack[j] is 1 and j < ntracks, otherwise a shower when
// pfp_isShower[j] is 1 and j < nshowers, otherwise it decodes as a
// particle.KindNone placeholder. Track and shower arrays are indexed by
// slot.
package rootio

import (
	"github.com/banshee-data/eventsel/internal/sample"
	"github.com/banshee-data/eventsel/internal/units"
)

// Default tree names.
const (
	DefaultEventTree     = "ana"
	DefaultReferenceTree = "weight"
	FeaturesTree         = "feats"
	WeightsTree          = "weight"
)

// Event tree branches.
const (
	brNumPFP     = "nPFParticles"
	brIsTrack    = "pfp_isTrack"
	brIsShower   = "pfp_isShower"
	brNumTracks  = "ntracks_pandoraTrack"
	brTrkPlanes  = "ntrkplanes_pandoraTrack"
	brTrkBest    = "trkpidbestplane_pandoraTrack"
	brTrkMom     = "trkmomrange_pandoraTrack"
	brTrkDirX    = "trkstartdcosx_pandoraTrack"
	brTrkDirY    = "trkstartdcosy_pandoraTrack"
	brTrkDirZ    = "trkstartdcosz_pandoraTrack"
	brTrkPIDA    = "trkpidpida_pandoraTrack"
	brNumHits    = "ntrkhits_pandoraTrack"
	brHitTrack   = "trkhittrack_pandoraTrack"
	brHitPlane   = "trkhitplane_pandoraTrack"
	brHitDEdx    = "trkdedx_pandoraTrack"
	brHitX       = "trkxyzx_pandoraTrack"
	brHitY       = "trkxyzy_pandoraTrack"
	brHitZ       = "trkxyzz_pandoraTrack"
	brNumShowers = "nshowers_pandoraShower"
	brShwPlanes  = "nshwrplanes_pandoraShower"
	brShwBest    = "shwr_bestplane_pandoraShower"
	brShwEnergy  = "shwr_totEng_pandoraShower"
	brShwDirX    = "shwr_startdcosx_pandoraShower"
	brShwDirY    = "shwr_startdcosy_pandoraShower"
	brShwDirZ    = "shwr_startdcosz_pandoraShower"
)

// DefaultVertexBranches are the reconstructed vertex branches, X/Y/Z order.
var DefaultVertexBranches = []string{"nuvtxx", "nuvtxy", "nuvtxz"}

// TruthVertexBranches are the generator-level vertex branches read by
// default for reference-bearing samples, whose weights are matched against
// a truth-level reference.
var TruthVertexBranches = []string{"nuvtxx_truth", "nuvtxy_truth", "nuvtxz_truth"}

// VertexBranchesFor returns the default vertex branches for a policy.
func VertexBranchesFor(policy sample.Policy) []string {
	if policy == sample.PolicyReference {
		return TruthVertexBranches
	}
	return DefaultVertexBranches
}

// Reference tree branches.
const (
	brRefX      = "mc.nuvtxx"
	brRefY      = "mc.nuvtxy"
	brRefZ      = "mc.nuvtxz"
	brRefWeight = "weight"
)

// Weight table branch.
const brWeight = "Weight"

// DefaultMomentumUnit is the unit of stored track momenta unless a sample
// names another.
const DefaultMomentumUnit = units.GeV
