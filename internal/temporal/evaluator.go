// Package temporal evaluates outcomes across expanding time horizons.
//
// The longer something stays better as you zoom out, the more confidently
// it validates. An outcome that looks great at t=0 and degrades as the
// horizon widens is the hallmark of a sugar hit or consumption masquerading
// as quality. Horizons without evidence stay nil rather than guessed, and
// weights increase with horizon breadth.
package temporal

import (
	"fmt"
	"math"
	"sort"
	"time"

	"resonance/internal/types"
)

// horizonWeights increase with breadth: longer-validated outcomes carry
// more weight.
var horizonWeights = map[types.TimeHorizon]float64{
	types.HorizonImmediate:    0.05,
	types.HorizonShortTerm:    0.10,
	types.HorizonMediumTerm:   0.20,
	types.HorizonLongTerm:     0.30,
	types.HorizonGenerational: 0.35,
}

// Evaluator scores an experience at each of the five fixed horizons.
type Evaluator struct{}

// NewEvaluator returns a stateless temporal evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate returns one assessment per horizon in narrow-to-wide order.
// Horizons without evidence have a nil score.
func (ev *Evaluator) Evaluate(exp *types.Experience, traj *types.Trajectory) []types.HorizonAssessment {
	if traj == nil {
		traj = types.NewTrajectory(exp.UserID)
	}

	out := make([]types.HorizonAssessment, 0, len(types.HorizonOrder))
	for _, h := range types.HorizonOrder {
		switch h {
		case types.HorizonImmediate:
			out = append(out, evalImmediate(exp))
		case types.HorizonShortTerm:
			out = append(out, evalShortTerm(exp))
		case types.HorizonMediumTerm:
			out = append(out, evalMediumTerm(exp, traj))
		case types.HorizonLongTerm:
			out = append(out, evalLongTerm(exp, traj))
		case types.HorizonGenerational:
			out = append(out, evalGenerational(traj))
		}
	}
	return out
}

// ComputeArcTrend reports whether scores rise, drop, or hold steady as
// horizons expand. Needs at least two scored horizons.
func (ev *Evaluator) ComputeArcTrend(assessments []types.HorizonAssessment) types.ArcTrend {
	var scored []types.HorizonAssessment
	for _, a := range assessments {
		if a.Score != nil {
			scored = append(scored, a)
		}
	}
	if len(scored) < 2 {
		return types.ArcInsufficientData
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return types.HorizonRank(scored[i].Horizon) < types.HorizonRank(scored[j].Horizon)
	})

	var sum float64
	for i := 1; i < len(scored); i++ {
		sum += *scored[i].Score - *scored[i-1].Score
	}
	avg := sum / float64(len(scored)-1)

	switch {
	case avg > 0.05:
		return types.ArcImproving
	case avg < -0.05:
		return types.ArcDeclining
	}
	return types.ArcStable
}

// WeightedScore collapses the assessments into one score. Only scored
// horizons contribute; nil when none have evidence yet.
func (ev *Evaluator) WeightedScore(assessments []types.HorizonAssessment) *float64 {
	totalWeight := 0.0
	totalScore := 0.0
	for _, a := range assessments {
		if a.Score == nil {
			continue
		}
		w, ok := horizonWeights[a.Horizon]
		if !ok {
			w = 0.1
		}
		totalScore += *a.Score * w
		totalWeight += w
	}
	if totalWeight < 1e-9 {
		return nil
	}
	v := totalScore / totalWeight
	return &v
}

// ========== Per-Horizon Evaluation ==========

// evalImmediate has only the self-report. The weakest horizon: a high
// immediate score means very little on its own.
func evalImmediate(exp *types.Experience) types.HorizonAssessment {
	score := exp.SelfRating
	return types.HorizonAssessment{
		Horizon:       types.HorizonImmediate,
		Score:         &score,
		EvidenceCount: 1,
		Notes:         "User's immediate self-report only; low weight.",
	}
}

func evalShortTerm(exp *types.Experience) types.HorizonAssessment {
	short := followUpsBetween(exp, 0, 3*24*time.Hour)
	if len(short) == 0 {
		return types.HorizonAssessment{
			Horizon: types.HorizonShortTerm,
			Notes:   "No short-term follow-up data yet.",
		}
	}

	n := float64(len(short))
	created, shared, inspired := 0, 0, 0
	for _, f := range short {
		if f.CreatedSomething {
			created++
		}
		if f.SharedOrTaught {
			shared++
		}
		if f.InspiredFurtherAction {
			inspired++
		}
	}

	score := 0.4*(float64(created)/n) + 0.3*(float64(shared)/n) + 0.3*(float64(inspired)/n)
	return types.HorizonAssessment{
		Horizon:       types.HorizonShortTerm,
		Score:         &score,
		EvidenceCount: len(short),
		Notes:         fmt.Sprintf("%d creation events, %d shares in short term.", created, shared),
	}
}

func evalMediumTerm(exp *types.Experience, traj *types.Trajectory) types.HorizonAssessment {
	medium := followUpsBetween(exp, 3*24*time.Hour, 60*24*time.Hour)
	if len(medium) == 0 {
		return types.HorizonAssessment{
			Horizon: types.HorizonMediumTerm,
			Notes:   "No medium-term follow-up data yet.",
		}
	}

	created := 0
	for _, f := range medium {
		if f.CreatedSomething {
			created++
		}
	}
	n := len(medium)
	creationFraction := float64(created) / float64(n)

	// Did the trajectory vector shift after this experience?
	directionShift := 0.0
	if len(traj.VectorHistory) >= 2 {
		var before, after *types.VectorSnapshot
		for i := range traj.VectorHistory {
			v := &traj.VectorHistory[i]
			if !v.Timestamp.After(exp.Timestamp) {
				before = v
			} else {
				after = v
			}
		}
		if before != nil && after != nil {
			directionShift = after.Direction - before.Direction
		}
	}

	score := 0.6*creationFraction + 0.4*clamp01((directionShift+1.0)/2.0)
	return types.HorizonAssessment{
		Horizon:       types.HorizonMediumTerm,
		Score:         &score,
		EvidenceCount: n,
		Notes: fmt.Sprintf("%d/%d medium-term creation events; direction shift %+.2f.",
			created, n, directionShift),
	}
}

func evalLongTerm(exp *types.Experience, traj *types.Trajectory) types.HorizonAssessment {
	long := followUpsBetween(exp, 60*24*time.Hour, time.Duration(math.MaxInt64))
	if len(long) == 0 && len(traj.Experiences) < 5 {
		return types.HorizonAssessment{
			Horizon: types.HorizonLongTerm,
			Notes:   "Insufficient long-term data.",
		}
	}

	compounding := traj.CompoundingDirection
	creationRate := traj.CreationRate

	score := 0.5*clamp01((compounding+1.0)/2.0) + 0.5*creationRate
	return types.HorizonAssessment{
		Horizon:       types.HorizonLongTerm,
		Score:         &score,
		EvidenceCount: len(long) + len(traj.Experiences),
		Notes: fmt.Sprintf("Compounding direction %+.2f; creation rate %.0f%%.",
			compounding, creationRate*100),
	}
}

// evalGenerational is the ecosystem-level question. Almost never directly
// evaluable for one experience; pending until the trajectory is mature.
func evalGenerational(traj *types.Trajectory) types.HorizonAssessment {
	if len(traj.Experiences) < 20 {
		return types.HorizonAssessment{
			Horizon: types.HorizonGenerational,
			Notes:   "Generational horizon requires extensive history; pending.",
		}
	}

	score := 0.4*traj.PropagationRate +
		0.3*traj.CreationRate +
		0.3*clamp01((traj.CompoundingDirection+1.0)/2.0)
	return types.HorizonAssessment{
		Horizon:       types.HorizonGenerational,
		Score:         &score,
		EvidenceCount: len(traj.Experiences),
		Notes: fmt.Sprintf("Ecosystem proxy: propagation %.0f%%, creation rate %.0f%%.",
			traj.PropagationRate*100, traj.CreationRate*100),
	}
}

// followUpsBetween returns follow-ups whose age relative to the experience
// falls in [lo, hi).
func followUpsBetween(exp *types.Experience, lo, hi time.Duration) []types.FollowUp {
	var out []types.FollowUp
	for _, f := range exp.FollowUps {
		age := f.Timestamp.Sub(exp.Timestamp)
		if age >= lo && age < hi {
			out = append(out, f)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
