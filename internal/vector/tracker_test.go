package vector

import (
	"errors"
	"math"
	"testing"
	"time"

	"resonance/internal/store"
	"resonance/internal/types"
)

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newFixedTracker(s store.Store) *Tracker {
	tr := NewTracker(s)
	tr.now = func() time.Time { return fixedNow }
	return tr
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecordExperienceColdStart(t *testing.T) {
	tr := newFixedTracker(nil)
	exp, err := tr.RecordExperience("u1", "played video games all weekend", "first time", 0.8, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(exp.Vectors) != 1 {
		t.Fatalf("expected one provisional snapshot, got %d", len(exp.Vectors))
	}
	v := exp.Vectors[0]
	if v.Direction != 0 || v.Magnitude != 0.1 || v.Confidence != 0.05 {
		t.Fatalf("unexpected provisional vector: %+v", v)
	}
	if v.Horizon != types.HorizonImmediate {
		t.Fatalf("expected immediate horizon, got %s", v.Horizon)
	}
	if exp.ProvisionalIntent != types.IntentMixed {
		t.Fatalf("neutral direction should map to mixed, got %s", exp.ProvisionalIntent)
	}
	if exp.IntentionConfidence != 0.05 {
		t.Fatalf("unexpected confidence: %f", exp.IntentionConfidence)
	}

	traj := tr.GetTrajectory("u1")
	if traj == nil || len(traj.Experiences) != 1 {
		t.Fatal("experience not appended to trajectory")
	}
	if len(traj.VectorHistory) != 1 {
		t.Fatalf("expected one history entry, got %d", len(traj.VectorHistory))
	}
	if traj.CurrentVector == nil {
		t.Fatal("current vector not set")
	}
}

func TestRecordExperienceUsesHistoryAsWeakPrior(t *testing.T) {
	tr := newFixedTracker(nil)
	exp1, _ := tr.RecordExperience("u1", "sketched character designs", "", 0.7, fixedNow.Add(-48*time.Hour))

	fu := types.NewFollowUp(exp1.ID, fixedNow.Add(-24*time.Hour))
	fu.CreatedSomething = true
	fu.CreationMagnitude = 1.0
	fu.SharedOrTaught = true
	if _, err := tr.RecordFollowUp("u1", exp1.ID, fu); err != nil {
		t.Fatalf("follow-up failed: %v", err)
	}

	agg := tr.ComputeVector("u1")
	if agg.Direction <= 0.2 {
		t.Fatalf("expected creative aggregate after strong follow-up, got %f", agg.Direction)
	}

	exp2, _ := tr.RecordExperience("u1", "tried a new drawing tool", "", 0.6, fixedNow)
	prov := exp2.Vectors[0]
	if !almost(prov.Direction, agg.Direction*0.3) {
		t.Fatalf("provisional direction should be dampened aggregate: got %f want %f", prov.Direction, agg.Direction*0.3)
	}
	if prov.Confidence > 0.25 {
		t.Fatalf("provisional confidence capped at 0.25, got %f", prov.Confidence)
	}
}

func TestRecordFollowUpShiftsVector(t *testing.T) {
	tr := newFixedTracker(nil)
	exp, _ := tr.RecordExperience("u1", "played minecraft all weekend", "", 0.8, fixedNow.Add(-7*24*time.Hour))

	fu := types.NewFollowUp(exp.ID, fixedNow)
	fu.CreatedSomething = true
	fu.CreationMagnitude = 0.75
	fu.InspiredFurtherAction = true
	fu.CreationDescription = "built a redstone calculator"

	updated, err := tr.RecordFollowUp("u1", exp.ID, fu)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated == nil {
		t.Fatal("expected updated experience")
	}

	// signal = 0.40*0.75 + 0.20 = 0.50
	// direction = 0.5*2 - 0.2 + (0.8-0.5)*0.10 = 0.83
	v := updated.Vectors[len(updated.Vectors)-1]
	if !almost(v.Direction, 0.83) {
		t.Fatalf("direction = %f, want 0.83", v.Direction)
	}
	if !almost(v.Magnitude, 0.7) {
		t.Fatalf("magnitude = %f, want 0.7", v.Magnitude)
	}
	if !almost(v.Confidence, 0.30) {
		t.Fatalf("confidence = %f, want 0.30", v.Confidence)
	}
	if updated.ProvisionalIntent != types.IntentCreative {
		t.Fatalf("expected creative intent, got %s", updated.ProvisionalIntent)
	}
	if !updated.Propagated {
		t.Fatal("creation follow-up should mark the experience propagated")
	}
	if len(updated.PropagationEvents) != 1 || updated.PropagationEvents[0] != "built a redstone calculator" {
		t.Fatalf("unexpected propagation events: %v", updated.PropagationEvents)
	}

	traj := tr.GetTrajectory("u1")
	if !almost(traj.CreationRate, 1.0) {
		t.Fatalf("creation rate = %f, want 1.0", traj.CreationRate)
	}
	if len(traj.VectorHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(traj.VectorHistory))
	}
}

func TestRecordFollowUpLegacyMagnitude(t *testing.T) {
	tr := newFixedTracker(nil)
	exp, _ := tr.RecordExperience("u1", "wrote fan fiction", "", 0.5, fixedNow.Add(-time.Hour))

	// created_something without an explicit magnitude counts as 1.0.
	fu := types.NewFollowUp(exp.ID, fixedNow)
	fu.CreatedSomething = true

	updated, _ := tr.RecordFollowUp("u1", exp.ID, fu)
	v := updated.Vectors[len(updated.Vectors)-1]
	// signal = 0.40*1.0 = 0.40; direction = 0.8 - 0.2 + 0 = 0.6
	if !almost(v.Direction, 0.6) {
		t.Fatalf("direction = %f, want 0.6", v.Direction)
	}
}

func TestRecordFollowUpUnknownTargets(t *testing.T) {
	tr := newFixedTracker(nil)
	if exp, err := tr.RecordFollowUp("ghost", "nope", types.FollowUp{}); exp != nil || err != nil {
		t.Fatalf("unknown user should be (nil, nil), got (%v, %v)", exp, err)
	}

	tr.RecordExperience("u1", "watched tutorials", "", 0.5, fixedNow)
	if exp, err := tr.RecordFollowUp("u1", "missing", types.FollowUp{}); exp != nil || err != nil {
		t.Fatalf("unknown experience should be (nil, nil), got (%v, %v)", exp, err)
	}
}

func TestPassiveFollowUpStaysMixed(t *testing.T) {
	tr := newFixedTracker(nil)
	exp, _ := tr.RecordExperience("u1", "scrolled feeds for hours", "", 0.9, fixedNow.Add(-24*time.Hour))

	fu := types.NewFollowUp(exp.ID, fixedNow)
	updated, _ := tr.RecordFollowUp("u1", exp.ID, fu)

	// signal = 0; direction = -0.2 + (0.9-0.5)*0.10 = -0.16 -> mixed zone
	v := updated.Vectors[len(updated.Vectors)-1]
	if !almost(v.Direction, -0.16) {
		t.Fatalf("direction = %f, want -0.16", v.Direction)
	}
	if updated.ProvisionalIntent != types.IntentMixed {
		t.Fatalf("passive evidence should stay mixed, got %s", updated.ProvisionalIntent)
	}
	if updated.Propagated {
		t.Fatal("passive follow-up must not mark propagation")
	}
}

func TestDirectionToSignalThresholds(t *testing.T) {
	cases := []struct {
		direction float64
		want      types.IntentSignal
	}{
		{0.5, types.IntentCreative},
		{0.21, types.IntentCreative},
		{0.2, types.IntentMixed},
		{0.0, types.IntentMixed},
		{-0.2, types.IntentMixed},
		{-0.21, types.IntentConsumptive},
		{-0.9, types.IntentConsumptive},
	}
	for _, tc := range cases {
		if got := DirectionToSignal(tc.direction); got != tc.want {
			t.Errorf("DirectionToSignal(%f) = %s, want %s", tc.direction, got, tc.want)
		}
	}
}

func TestInferHorizonBuckets(t *testing.T) {
	base := fixedNow
	cases := []struct {
		delta time.Duration
		want  types.TimeHorizon
	}{
		{12 * time.Hour, types.HorizonShortTerm},
		{3 * 24 * time.Hour, types.HorizonMediumTerm},
		{40 * 24 * time.Hour, types.HorizonLongTerm},
		{200 * 24 * time.Hour, types.HorizonGenerational},
	}
	for _, tc := range cases {
		exp := types.NewExperience("u1", "x", "", 0.5, base)
		fu := types.NewFollowUp(exp.ID, base.Add(tc.delta))
		exp.FollowUps = append(exp.FollowUps, fu)
		if got := inferHorizon(exp); got != tc.want {
			t.Errorf("inferHorizon(+%v) = %s, want %s", tc.delta, got, tc.want)
		}
	}
}

func TestComputeCompoundingRate(t *testing.T) {
	tr := newFixedTracker(nil)
	if rate := tr.ComputeCompoundingRate("nobody"); rate != 0 {
		t.Fatalf("unknown user should compound at 0, got %f", rate)
	}

	exp, _ := tr.RecordExperience("u1", "started a garden", "", 0.6, fixedNow.Add(-48*time.Hour))
	fu := types.NewFollowUp(exp.ID, fixedNow)
	fu.CreatedSomething = true
	fu.CreationMagnitude = 1.0
	tr.RecordFollowUp("u1", exp.ID, fu)

	traj := tr.GetTrajectory("u1")
	n := len(traj.VectorHistory)
	want := traj.VectorHistory[n-1].Direction - traj.VectorHistory[n-2].Direction
	if got := tr.ComputeCompoundingRate("u1"); !almost(got, want) {
		t.Fatalf("compounding = %f, want %f", got, want)
	}
	if !almost(traj.CompoundingDirection, want) {
		t.Fatalf("trajectory compounding = %f, want %f", traj.CompoundingDirection, want)
	}
	if want <= 0 {
		t.Fatalf("creation follow-up should push compounding positive, got %f", want)
	}
}

func TestAggregateUnchangedBySameTimestampSwap(t *testing.T) {
	mk := func(order []types.FollowUp) types.VectorSnapshot {
		tr := newFixedTracker(nil)
		exp, _ := tr.RecordExperience("u", "mixed signals weekend", "", 0.5, fixedNow.Add(-72*time.Hour))
		for _, fu := range order {
			fu.ExperienceID = exp.ID
			if _, err := tr.RecordFollowUp("u", exp.ID, fu); err != nil {
				t.Fatalf("follow-up failed: %v", err)
			}
		}
		return tr.ComputeVector("u")
	}

	ts := fixedNow.Add(-24 * time.Hour)
	a := types.FollowUp{ID: "a", Timestamp: ts, CreatedSomething: true, CreationMagnitude: 0.5}
	b := types.FollowUp{ID: "b", Timestamp: ts, InspiredFurtherAction: true}

	v1 := mk([]types.FollowUp{a, b})
	v2 := mk([]types.FollowUp{b, a})

	if !almost(v1.Direction, v2.Direction) || !almost(v1.Magnitude, v2.Magnitude) || !almost(v1.Confidence, v2.Confidence) {
		t.Fatalf("aggregate changed under same-timestamp swap: %+v vs %+v", v1, v2)
	}
}

func TestAppendOnlyGrowth(t *testing.T) {
	tr := newFixedTracker(nil)
	exp, _ := tr.RecordExperience("u1", "learned to juggle", "", 0.7, fixedNow.Add(-10*24*time.Hour))

	prevFollowUps, prevSnapshots := len(exp.FollowUps), len(exp.Vectors)
	prevHistory := len(tr.GetTrajectory("u1").VectorHistory)

	for i := 0; i < 4; i++ {
		fu := types.NewFollowUp(exp.ID, fixedNow.Add(time.Duration(i-9)*24*time.Hour))
		fu.InspiredFurtherAction = i%2 == 0
		if _, err := tr.RecordFollowUp("u1", exp.ID, fu); err != nil {
			t.Fatalf("follow-up %d failed: %v", i, err)
		}

		cur := tr.GetTrajectory("u1").FindExperience(exp.ID)
		if len(cur.FollowUps) < prevFollowUps {
			t.Fatal("follow-ups shrank")
		}
		if len(cur.Vectors) < prevSnapshots {
			t.Fatal("vector snapshots shrank")
		}
		history := len(tr.GetTrajectory("u1").VectorHistory)
		if history < prevHistory {
			t.Fatal("vector history shrank")
		}
		prevFollowUps, prevSnapshots, prevHistory = len(cur.FollowUps), len(cur.Vectors), history
	}
}

func TestTrackerPersistsThroughStore(t *testing.T) {
	st := store.NewMemoryStore()
	tr := newFixedTracker(st)
	exp, err := tr.RecordExperience("u1", "carved a chess set", "", 0.8, fixedNow.Add(-time.Hour))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	// A second tracker over the same store sees the history.
	tr2 := newFixedTracker(st)
	fu := types.NewFollowUp(exp.ID, fixedNow)
	fu.SharedOrTaught = true
	updated, err := tr2.RecordFollowUp("u1", exp.ID, fu)
	if updated != nil {
		t.Fatal("follow-up without a loaded trajectory should miss; load happens on record")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// RecordExperience loads persisted state lazily.
	tr2.RecordExperience("u1", "sanded the board", "", 0.6, fixedNow)
	traj := tr2.GetTrajectory("u1")
	if len(traj.Experiences) != 2 {
		t.Fatalf("expected persisted history to load, got %d experiences", len(traj.Experiences))
	}
}

func TestEnsureLoaded(t *testing.T) {
	st := store.NewMemoryStore()
	tr := newFixedTracker(st)
	exp, err := tr.RecordExperience("u1", "carved a chess set", "", 0.8, fixedNow)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	// A fresh tracker pulls the stored trajectory without creating one.
	tr2 := newFixedTracker(st)
	traj, err := tr2.EnsureLoaded("u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if traj == nil || traj.FindExperience(exp.ID) == nil {
		t.Fatal("stored trajectory not loaded")
	}

	// Once loaded, follow-ups land without a prior RecordExperience.
	fu := types.NewFollowUp(exp.ID, fixedNow.Add(time.Hour))
	fu.SharedOrTaught = true
	updated, err := tr2.RecordFollowUp("u1", exp.ID, fu)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated == nil {
		t.Fatal("follow-up should reach the loaded trajectory")
	}

	// Unknown users stay unknown.
	traj, err = tr2.EnsureLoaded("stranger")
	if err != nil || traj != nil {
		t.Fatalf("EnsureLoaded(stranger) = %v, %v; want nil, nil", traj, err)
	}
	if tr2.GetTrajectory("stranger") != nil {
		t.Fatal("EnsureLoaded must not create empty trajectories")
	}

	// Without storage it only reads memory.
	bare := newFixedTracker(nil)
	traj, err = bare.EnsureLoaded("u1")
	if err != nil || traj != nil {
		t.Fatalf("bare EnsureLoaded = %v, %v; want nil, nil", traj, err)
	}
}

type failingStore struct {
	*store.MemoryStore
	fail bool
}

func (f *failingStore) SaveTrajectory(traj *types.Trajectory) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.SaveTrajectory(traj)
}

func TestTrackerSurfacesSaveErrors(t *testing.T) {
	fs := &failingStore{MemoryStore: store.NewMemoryStore(), fail: true}
	tr := newFixedTracker(fs)

	exp, err := tr.RecordExperience("u1", "recorded a podcast", "", 0.7, fixedNow)
	if err == nil {
		t.Fatal("expected save error to surface")
	}
	if exp == nil {
		t.Fatal("experience should still be returned for rollback handling")
	}
}
