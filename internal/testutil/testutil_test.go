package testutil

import (
	"testing"

	"github.com/banshee-data/eventsel/internal/particle"
)

func TestBuildersAreValid(t *testing.T) {
	t.Parallel()

	ev := MixedEvent(ProtonShowerEvent().Vertex)
	for i := range ev.Particles {
		if !particle.Valid(&ev.Particles[i]) {
			t.Errorf("particle %d of MixedEvent is invalid", i)
		}
	}

	hits := StraightHits(4, 0.5, 2)
	if len(hits) != 4 || hits[3].Pos.Z != 1.5 {
		t.Errorf("StraightHits = %+v, want 4 hits ending at z=1.5", hits)
	}
}
