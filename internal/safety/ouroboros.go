// Package safety holds the defence layers that keep inference honest:
// drift detection against follow-up evidence, verification of externally
// hosted artifacts, and an external validation facade that degrades
// gracefully when web access is missing.
package safety

import (
	"fmt"

	"resonance/internal/types"
)

// Drift thresholds.
const (
	driftConfidenceMin              = 0.3 // below this, classification is effectively pending
	classificationMismatchThreshold = 0.4 // how far a label can diverge from evidence
	naturalRatioMin                 = 0.2 // minimum creation-to-total ratio for a healthy cycle
	sustainedConsumptionThreshold   = 5   // consecutive consumptive experiences before warning
)

// OuroborosAnchor detects intent-inference drift using trajectory evidence.
//
// There is no static list of "creative" or "consumptive" activities; no
// activity is inherently one or the other. Instead the anchor validates
// that the system's intent inferences stay consistent with observed
// outcomes: a creative label with no creation evidence ever materialising
// is drift, and so is a creative label against a strongly consumptive
// trajectory trend.
type OuroborosAnchor struct{}

func NewOuroborosAnchor() *OuroborosAnchor {
	return &OuroborosAnchor{}
}

// ValidateClassification checks whether an experience's label matches the
// evidence. Returns false plus a reason when drift is detected; drift is
// surfaced to the user, never silently corrected.
func (a *OuroborosAnchor) ValidateClassification(exp *types.Experience, traj *types.Trajectory) (bool, string) {
	if exp.IntentionConfidence < driftConfidenceMin {
		return true, "Confidence too low to assess drift; classification is provisional."
	}

	// Check 1: does the label match the follow-up evidence?
	if len(exp.FollowUps) > 0 {
		evidenceDir := evidenceDirection(exp)
		labelDir := labelToDirection(exp.ProvisionalIntent)

		mismatch := evidenceDir - labelDir
		if mismatch < 0 {
			mismatch = -mismatch
		}
		if mismatch > classificationMismatchThreshold {
			return false, fmt.Sprintf(
				"Classification drift: label is '%s' but follow-up evidence points %s (mismatch %.2f).",
				exp.ProvisionalIntent, describeDirection(evidenceDir), mismatch)
		}
	}

	// Check 2: is the label consistent with the trajectory trend? A
	// creative label against a strongly consumptive trend is suspicious,
	// not necessarily wrong.
	if len(traj.Experiences) > 0 && len(traj.VectorHistory) >= 3 && traj.CurrentVector != nil {
		trajDir := traj.CurrentVector.Direction
		labelDir := labelToDirection(exp.ProvisionalIntent)

		if labelDir > 0.3 && trajDir < -0.3 && exp.IntentionConfidence > 0.5 {
			return false, fmt.Sprintf(
				"Classification drift: experience labelled 'creative' but overall trajectory "+
					"is trending consumptive (direction %+.2f). This may be valid "+
					"(a turning point); verify with follow-ups.",
				trajDir)
		}
	}

	return true, "Classification consistent with available evidence."
}

// CheckOuroborosHealth reads the aggregate pattern of intent over time.
// The cycle (creation feeds consumption feeds creation) is neutral; the
// check is whether the creation-to-input ratio stays sustainable, never
// whether consumption is "bad".
func (a *OuroborosAnchor) CheckOuroborosHealth(traj *types.Trajectory) (bool, string) {
	if len(traj.Experiences) < 3 {
		return true, "Insufficient history to assess Ouroboros health."
	}

	if traj.CreationRate < naturalRatioMin {
		recent := traj.Experiences
		if len(recent) > sustainedConsumptionThreshold {
			recent = recent[len(recent)-sustainedConsumptionThreshold:]
		}
		allConsumptive := true
		for _, e := range recent {
			if e.IntentionConfidence < driftConfidenceMin {
				continue
			}
			if e.ProvisionalIntent != types.IntentConsumptive {
				allConsumptive = false
				break
			}
		}
		if allConsumptive && len(recent) >= sustainedConsumptionThreshold {
			return false, fmt.Sprintf(
				"Ouroboros cycle notice: %d consecutive experiences with consumptive-intent "+
					"inference and creation rate %.0f%%. Intent may be purely input-focused.",
				sustainedConsumptionThreshold, traj.CreationRate*100)
		}
		return false, fmt.Sprintf(
			"Ouroboros cycle notice: creation rate is %.0f%% (below %.0f%% threshold). "+
				"The evidence so far suggests mostly input-focused intent.",
			traj.CreationRate*100, naturalRatioMin*100)
	}

	if traj.CompoundingDirection < -0.3 {
		return false, fmt.Sprintf(
			"Ouroboros cycle notice: inferred intent is accelerating toward input-focused "+
				"(compounding %+.2f). The trend suggests a shift in intent pattern.",
			traj.CompoundingDirection)
	}

	return true, fmt.Sprintf(
		"Ouroboros cycle healthy: creation rate %.0f%%, compounding direction %+.2f.",
		traj.CreationRate*100, traj.CompoundingDirection)
}

// evidenceDirection maps follow-up evidence to [-1, +1]: +1 when every
// follow-up shows creation, sharing, and inspiration; -1 when none do.
func evidenceDirection(exp *types.Experience) float64 {
	if len(exp.FollowUps) == 0 {
		return 0
	}
	signals, total := 0, 0
	for _, fu := range exp.FollowUps {
		total += 3
		if fu.CreatedSomething {
			signals++
		}
		if fu.SharedOrTaught {
			signals++
		}
		if fu.InspiredFurtherAction {
			signals++
		}
	}
	if total == 0 {
		return 0
	}
	return (float64(signals)/float64(total))*2.0 - 1.0
}

func labelToDirection(signal types.IntentSignal) float64 {
	switch signal {
	case types.IntentCreative:
		return 0.8
	case types.IntentConsumptive:
		return -0.8
	}
	return 0
}

func describeDirection(direction float64) string {
	switch {
	case direction > 0.3:
		return "toward creative intent"
	case direction < -0.3:
		return "toward consumptive intent"
	}
	return "mixed/unclear intent"
}
