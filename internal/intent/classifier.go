// Package intent classifies intention as a vector over time, not a snapshot
// label. Binge-watching films could be pure consumption or the seed of a
// screenwriter; at t=0 the two are indistinguishable. Classification is
// therefore provisional at first, trajectory-informed when history exists,
// and retrospective: confidence rises only as follow-up evidence reveals
// what the experience actually led to.
//
// Classification never reads the activity's wording. A description carries
// zero signal at cold start; only accumulated evidence moves the vector.
package intent

import (
	"math"

	"resonance/internal/types"
	"resonance/internal/vector"
)

// Blend weights once follow-up evidence exists. Follow-ups are the
// strongest and least gameable signal, so they dominate the trajectory
// prior.
const (
	trajectoryWeight = 0.45
	followUpWeight   = 0.55
)

// Classifier maps (experience, trajectory) to a discrete intent signal with
// confidence. Stateless: the trajectory is the only state.
type Classifier struct{}

// NewClassifier returns a classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns (signal, confidence) for an experience given trajectory
// context. Confidence below 0.3 means the system is essentially saying
// "I don't know yet"; below 0.15 the signal is pending outright.
func (c *Classifier) Classify(exp *types.Experience, traj *types.Trajectory) (types.IntentSignal, float64) {
	trajDirection, trajConfidence := trajectoryEvidence(traj)
	fuDirection, fuConfidence := followUpEvidence(exp)

	var direction, confidence float64
	switch {
	case len(exp.FollowUps) > 0:
		// Follow-up data dominates; the trajectory prior tempers it.
		direction = trajectoryWeight*trajDirection + followUpWeight*fuDirection
		confidence = trajectoryWeight*trajConfidence + followUpWeight*fuConfidence
	case traj != nil && len(traj.Experiences) > 0:
		// No follow-ups yet, but the user's history leans somewhere.
		direction = trajDirection
		confidence = math.Min(trajConfidence*0.4, 0.30)
	default:
		// Cold start: nothing is known, and saying so is the point.
		return types.IntentPending, 0
	}

	direction = clamp(direction, -1, 1)
	confidence = clamp(confidence, 0, 1)

	signal := vector.DirectionToSignal(direction)
	if confidence < 0.15 {
		signal = types.IntentPending
	}
	return signal, confidence
}

func trajectoryEvidence(traj *types.Trajectory) (float64, float64) {
	if traj == nil || len(traj.Experiences) == 0 || traj.CurrentVector == nil {
		return 0, 0
	}
	return traj.CurrentVector.Direction, traj.CurrentVector.Confidence
}

// followUpEvidence computes direction and confidence from what actually
// happened after the experience, using the same graduated creation signal
// as the tracker.
func followUpEvidence(exp *types.Experience) (float64, float64) {
	if len(exp.FollowUps) == 0 {
		return 0, 0
	}

	total := 0.0
	for _, fu := range exp.FollowUps {
		signal := 0.0
		if fu.CreatedSomething {
			signal += 0.40 * fu.EffectiveMagnitude()
		}
		if fu.SharedOrTaught {
			signal += 0.25
		}
		if fu.InspiredFurtherAction {
			signal += 0.20
		}
		total += signal
	}
	avg := total / float64(len(exp.FollowUps))

	direction := clamp(avg*2.0-0.2, -1, 1)
	confidence := math.Min(0.2+float64(len(exp.FollowUps))*0.2, 0.95)
	return direction, confidence
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
