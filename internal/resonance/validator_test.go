package resonance

import (
	"testing"
	"time"

	"resonance/internal/types"
)

func fptr(v float64) *float64 { return &v }

func assessment(h types.TimeHorizon, score *float64) types.HorizonAssessment {
	return types.HorizonAssessment{Horizon: h, Score: score}
}

type expRow struct {
	desc      string
	resonance float64
	rating    float64
}

// trajectoryOf builds a trajectory from rows spaced by the given gaps.
func trajectoryOf(gaps []time.Duration, rows []expRow) *types.Trajectory {
	traj := types.NewTrajectory("u1")
	ts := testBase
	for i, row := range rows {
		if i > 0 && i-1 < len(gaps) {
			ts = ts.Add(gaps[i-1])
		}
		e := types.NewExperience("u1", row.desc, "", row.rating, ts)
		e.ResonanceScore = row.resonance
		traj.Experiences = append(traj.Experiences, e)
	}
	return traj
}

func steadyGaps(n int, d time.Duration) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func TestArcAdjustment(t *testing.T) {
	tests := []struct {
		name        string
		score       float64
		assessments []types.HorizonAssessment
		want        float64
	}{
		{
			name:  "declining arc is a sugar hit",
			score: 0.8,
			assessments: []types.HorizonAssessment{
				assessment(types.HorizonImmediate, fptr(0.9)),
				assessment(types.HorizonMediumTerm, fptr(0.3)),
			},
			// decline 0.6 -> multiply by 0.7
			want: 0.8 * 0.7,
		},
		{
			name:  "improving arc earns a boost",
			score: 0.5,
			assessments: []types.HorizonAssessment{
				assessment(types.HorizonImmediate, fptr(0.3)),
				assessment(types.HorizonLongTerm, fptr(0.6)),
			},
			want: 0.55,
		},
		{
			name:  "flat arc leaves the score alone",
			score: 0.5,
			assessments: []types.HorizonAssessment{
				assessment(types.HorizonImmediate, fptr(0.5)),
				assessment(types.HorizonMediumTerm, fptr(0.55)),
			},
			want: 0.5,
		},
		{
			name:  "single scored horizon is not enough",
			score: 0.5,
			assessments: []types.HorizonAssessment{
				assessment(types.HorizonImmediate, fptr(0.9)),
				assessment(types.HorizonMediumTerm, nil),
			},
			want: 0.5,
		},
		{
			name:  "unsorted input is ordered by horizon",
			score: 0.8,
			assessments: []types.HorizonAssessment{
				assessment(types.HorizonMediumTerm, fptr(0.3)),
				assessment(types.HorizonImmediate, fptr(0.9)),
			},
			want: 0.8 * 0.7,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := arcAdjustment(tc.score, tc.assessments)
			if !almostEqual(got, tc.want) {
				t.Errorf("got %.4f, want %.4f", got, tc.want)
			}
		})
	}
}

func TestValidateAppliesArc(t *testing.T) {
	v := NewValidator()

	exp := newExp("u1", "a concert downtown", 0.8)
	exp.ResonanceScore = 0.8
	traj := types.NewTrajectory("u1")

	declining := []types.HorizonAssessment{
		assessment(types.HorizonImmediate, fptr(0.9)),
		assessment(types.HorizonMediumTerm, fptr(0.3)),
	}

	without := v.Validate(exp, traj, nil)
	with := v.Validate(exp, traj, declining)
	if with >= without {
		t.Fatalf("declining arc should lower the score: with=%.4f without=%.4f", with, without)
	}
	if !almostEqual(with, 0.56) {
		t.Errorf("got %.4f, want 0.56", with)
	}
}

func TestPropagationAdjustment(t *testing.T) {
	mkTraj := func(n int, rate float64) *types.Trajectory {
		traj := types.NewTrajectory("u1")
		for i := 0; i < n; i++ {
			traj.Experiences = append(traj.Experiences,
				types.NewExperience("u1", "x", "", 0.5, testBase))
		}
		traj.PropagationRate = rate
		return traj
	}

	tests := []struct {
		name  string
		traj  *types.Trajectory
		score float64
		want  float64
	}{
		{"strong propagation", mkTraj(4, 0.6), 0.5, 0.55},
		{"weak propagation", mkTraj(4, 0.1), 0.5, 0.40},
		{"middling propagation", mkTraj(4, 0.3), 0.5, 0.5},
		{"too little history", mkTraj(2, 0.0), 0.5, 0.5},
		{"nil trajectory", nil, 0.5, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := propagationAdjustment(tc.score, tc.traj)
			if !almostEqual(got, tc.want) {
				t.Errorf("got %.4f, want %.4f", got, tc.want)
			}
		})
	}
}

func TestAssessDependencyAddictionShape(t *testing.T) {
	v := NewValidator()

	// Same activity over and over, shrinking gaps, declining returns.
	gaps := []time.Duration{
		96 * time.Hour, 72 * time.Hour, 48 * time.Hour,
		24 * time.Hour, 12 * time.Hour, 6 * time.Hour, 3 * time.Hour,
	}
	rows := []expRow{
		{"scrolling short videos feed", 0.9, 0.9},
		{"scrolling short videos feed", 0.85, 0.9},
		{"scrolling short videos feed", 0.8, 0.85},
		{"scrolling short videos feed", 0.7, 0.8},
		{"scrolling short videos feed", 0.5, 0.7},
		{"scrolling short videos feed", 0.4, 0.6},
		{"scrolling short videos feed", 0.3, 0.5},
		{"scrolling short videos feed", 0.25, 0.5},
	}
	traj := trajectoryOf(gaps, rows)

	risk := v.AssessDependency(traj)
	if risk <= dependencyThreshold {
		t.Fatalf("addiction shape should exceed threshold, got %.4f", risk)
	}

	// narrowing 1.0, escalation 1-11.25/72, declining 0.45
	want := 0.40*1.0 + 0.30*(1.0-11.25/72.0) + 0.30*0.45
	if !almostEqual(risk, want) {
		t.Errorf("got %.6f, want %.6f", risk, want)
	}

	// The penalty multiplies resonance by 0.3.
	exp := traj.Experiences[len(traj.Experiences)-1]
	got := v.Validate(exp, traj, nil)
	if got >= exp.ResonanceScore {
		t.Errorf("dependency penalty not applied: got %.4f", got)
	}
}

func TestAssessDependencyCompoundsWhenAllElevated(t *testing.T) {
	v := NewValidator()

	gaps := []time.Duration{
		96 * time.Hour, 72 * time.Hour, 48 * time.Hour,
		24 * time.Hour, 12 * time.Hour, 6 * time.Hour, 3 * time.Hour,
	}
	rows := []expRow{
		{"scrolling short videos feed", 0.95, 0.9},
		{"scrolling short videos feed", 0.95, 0.9},
		{"scrolling short videos feed", 0.9, 0.85},
		{"scrolling short videos feed", 0.9, 0.8},
		{"scrolling short videos feed", 0.35, 0.7},
		{"scrolling short videos feed", 0.3, 0.6},
		{"scrolling short videos feed", 0.3, 0.5},
		{"scrolling short videos feed", 0.3, 0.5},
	}
	traj := trajectoryOf(gaps, rows)

	// All three signals above 0.5 multiplies the composite by 1.5,
	// capped at 1.0.
	if risk := v.AssessDependency(traj); !almostEqual(risk, 1.0) {
		t.Fatalf("got %.6f, want 1.0", risk)
	}
}

func TestAssessDependencyVariedTrajectory(t *testing.T) {
	v := NewValidator()

	rows := []expRow{
		{"built cedar birdhouse", 0.7, 0.7},
		{"wrote winter story draft", 0.5, 0.6},
		{"repaired neighbor bicycle", 0.65, 0.7},
		{"learned jazz chords", 0.6, 0.6},
		{"cooked thai curry", 0.7, 0.7},
	}
	traj := trajectoryOf(steadyGaps(4, 48*time.Hour), rows)

	if risk := v.AssessDependency(traj); risk > 0.2 {
		t.Fatalf("varied trajectory should carry low risk, got %.4f", risk)
	}
}

func TestAssessDependencyNeedsHistory(t *testing.T) {
	v := NewValidator()

	rows := []expRow{
		{"scrolling short videos feed", 0.9, 0.9},
		{"scrolling short videos feed", 0.9, 0.9},
		{"scrolling short videos feed", 0.9, 0.9},
		{"scrolling short videos feed", 0.9, 0.9},
	}
	traj := trajectoryOf(steadyGaps(3, time.Hour), rows)
	if risk := v.AssessDependency(traj); risk != 0 {
		t.Fatalf("4 experiences should not trigger, got %.4f", risk)
	}
	if risk := v.AssessDependency(nil); risk != 0 {
		t.Fatalf("nil trajectory should score 0, got %.4f", risk)
	}
}

func TestAssessPredictabilityRut(t *testing.T) {
	v := NewValidator()

	rows := []expRow{
		{"evening feed", 0.75, 0.95},
		{"evening feed", 0.75, 0.95},
		{"evening feed", 0.75, 0.95},
		{"evening feed", 0.75, 0.95},
		{"evening feed", 0.75, 0.95},
		{"evening feed", 0.75, 0.95},
	}
	traj := trajectoryOf(steadyGaps(5, 24*time.Hour), rows)

	// zero variance 0.9, inflated ratings 0.8, fully flat deltas 1.0
	got := v.AssessPredictability(traj)
	want := 0.50*0.9 + 0.25*0.8 + 0.25*1.0
	if !almostEqual(got, want) {
		t.Fatalf("got %.4f, want %.4f", got, want)
	}

	exp := traj.Experiences[len(traj.Experiences)-1]
	validated := v.Validate(exp, traj, nil)
	if validated >= exp.ResonanceScore {
		t.Errorf("predictability penalty not applied: got %.4f", validated)
	}
}

func TestAssessPredictabilityNaturalVariance(t *testing.T) {
	v := NewValidator()

	rows := []expRow{
		{"museum visit", 0.2, 0.4},
		{"wrote a song", 0.8, 0.7},
		{"long hike", 0.5, 0.5},
		{"board games night", 0.9, 0.6},
		{"quiet reading", 0.3, 0.4},
		{"pottery class", 0.65, 0.6},
	}
	traj := trajectoryOf(steadyGaps(5, 24*time.Hour), rows)

	got := v.AssessPredictability(traj)
	if got > 0.2 {
		t.Fatalf("varied resonance should look unpredictable, got %.4f", got)
	}
}

func TestAssessPredictabilityNeedsHistory(t *testing.T) {
	v := NewValidator()

	rows := []expRow{
		{"evening feed", 0.75, 0.95},
		{"evening feed", 0.75, 0.95},
		{"evening feed", 0.75, 0.95},
	}
	traj := trajectoryOf(steadyGaps(2, time.Hour), rows)
	if got := v.AssessPredictability(traj); got != 0 {
		t.Fatalf("3 experiences should score 0, got %.4f", got)
	}
}

func TestValidateClampsToUnitRange(t *testing.T) {
	v := NewValidator()

	exp := newExp("u1", "community mural project", 0.9)
	exp.ResonanceScore = 0.98

	traj := types.NewTrajectory("u1")
	for i := 0; i < 4; i++ {
		traj.Experiences = append(traj.Experiences,
			types.NewExperience("u1", "different thing each time", "", 0.5, testBase))
	}
	traj.PropagationRate = 0.8

	improving := []types.HorizonAssessment{
		assessment(types.HorizonImmediate, fptr(0.3)),
		assessment(types.HorizonLongTerm, fptr(0.9)),
	}

	// Arc boost and propagation boost together may not exceed 1.0.
	got := v.Validate(exp, traj, improving)
	if got > 1.0 {
		t.Fatalf("score above 1.0: %.4f", got)
	}
	if !almostEqual(got, 1.0) {
		t.Errorf("got %.4f, want 1.0", got)
	}
}
