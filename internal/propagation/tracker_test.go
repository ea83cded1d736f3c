package propagation

import (
	"math"
	"testing"
	"time"

	"resonance/internal/types"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// trajOf builds a trajectory from (resonance, rating, propagated) rows.
func trajOf(rows ...[3]float64) *types.Trajectory {
	traj := types.NewTrajectory("u1")
	for _, r := range rows {
		e := types.NewExperience("u1", "activity", "", r[1], base)
		e.ResonanceScore = r[0]
		e.Propagated = r[2] > 0
		traj.Experiences = append(traj.Experiences, e)
	}
	return traj
}

func TestRecordAndCheckPropagation(t *testing.T) {
	tr := NewTracker()
	tr.now = func() time.Time { return base }

	ev := tr.RecordCreationEvent("u1", "wrote a song about it", "exp-1", time.Time{})
	if ev.ID == "" {
		t.Error("event should get an id")
	}
	if !ev.Timestamp.Equal(base) {
		t.Errorf("zero timestamp should default to now, got %v", ev.Timestamp)
	}

	tr.RecordCreationEvent("u1", "unrelated sketch", "", base.Add(time.Hour))
	tr.RecordCreationEvent("u2", "someone else's work", "exp-1", base)

	linked := tr.CheckPropagation("u1", "exp-1")
	if len(linked) != 1 || linked[0].Description != "wrote a song about it" {
		t.Fatalf("linked events = %+v", linked)
	}
	if got := tr.CheckPropagation("u1", "exp-9"); len(got) != 0 {
		t.Errorf("unknown experience should have no events, got %d", len(got))
	}
	if n := tr.EventCount("u1"); n != 2 {
		t.Errorf("EventCount(u1) = %d, want 2", n)
	}
}

func TestComputePropagationRate(t *testing.T) {
	tr := NewTracker()

	// Four high-resonance experiences, two propagated. The low one is
	// excluded from the denominator entirely.
	traj := trajOf(
		[3]float64{0.8, 0.8, 1},
		[3]float64{0.7, 0.5, 0},
		[3]float64{0.5, 0.9, 1}, // high via rating
		[3]float64{0.65, 0.3, 0},
		[3]float64{0.2, 0.3, 0}, // not high-resonance
	)

	if got := tr.ComputePropagationRate(traj); !almostEqual(got, 0.5) {
		t.Errorf("rate = %.4f, want 0.5", got)
	}

	if got := tr.ComputePropagationRate(types.NewTrajectory("u1")); got != 0 {
		t.Errorf("empty trajectory rate = %.4f, want 0", got)
	}
	if got := tr.ComputePropagationRate(nil); got != 0 {
		t.Errorf("nil trajectory rate = %.4f, want 0", got)
	}
}

func TestValidateResonanceAuthenticity(t *testing.T) {
	tr := NewTracker()

	t.Run("strong propagation earns trust", func(t *testing.T) {
		traj := trajOf(
			[3]float64{0.8, 0.8, 1},
			[3]float64{0.7, 0.7, 1},
			[3]float64{0.9, 0.9, 1},
			[3]float64{0.7, 0.7, 0},
		)
		// rate 0.75, bonus min(0.1125, 0.1) = 0.1
		if got := tr.ValidateResonanceAuthenticity(0.6, traj); !almostEqual(got, 0.7) {
			t.Errorf("got %.4f, want 0.7", got)
		}
		// capped at 1.0
		if got := tr.ValidateResonanceAuthenticity(0.95, traj); !almostEqual(got, 1.0) {
			t.Errorf("got %.4f, want 1.0", got)
		}
	})

	t.Run("no propagation discounts", func(t *testing.T) {
		traj := trajOf(
			[3]float64{0.8, 0.8, 0},
			[3]float64{0.7, 0.7, 0},
			[3]float64{0.9, 0.9, 0},
		)
		// rate 0, penalty 0.15
		if got := tr.ValidateResonanceAuthenticity(0.6, traj); !almostEqual(got, 0.45) {
			t.Errorf("got %.4f, want 0.45", got)
		}
		// floored at 0
		if got := tr.ValidateResonanceAuthenticity(0.1, traj); !almostEqual(got, 0.0) {
			t.Errorf("got %.4f, want 0.0", got)
		}
	})

	t.Run("too little history passes through", func(t *testing.T) {
		traj := trajOf(
			[3]float64{0.8, 0.8, 0},
			[3]float64{0.7, 0.7, 0},
		)
		if got := tr.ValidateResonanceAuthenticity(0.6, traj); !almostEqual(got, 0.6) {
			t.Errorf("got %.4f, want 0.6", got)
		}
	})

	t.Run("middling rate passes through", func(t *testing.T) {
		traj := trajOf(
			[3]float64{0.8, 0.8, 1},
			[3]float64{0.7, 0.7, 0},
			[3]float64{0.9, 0.9, 0},
			[3]float64{0.7, 0.7, 0},
		)
		// rate 0.25: neither trusted nor discounted
		if got := tr.ValidateResonanceAuthenticity(0.6, traj); !almostEqual(got, 0.6) {
			t.Errorf("got %.4f, want 0.6", got)
		}
	})
}
