package system

import (
	"fmt"
	"strings"

	"resonance/internal/types"
)

// matrixPosition places an experience in the quality-by-intent matrix.
// High quality means strictly above 0.5.
func matrixPosition(quality float64, signal types.IntentSignal) string {
	high := quality > 0.5
	switch signal {
	case types.IntentCreative:
		if high {
			return "Optimal (Target)"
		}
		return "Slop (Low Quality Output)"
	case types.IntentConsumptive:
		if high {
			return "Hedonism (WALL-E)"
		}
		return "Junk Food (Minimal Existence)"
	case types.IntentMixed:
		if high {
			return "Transitional (High Quality)"
		}
		return "Transitional (Low Quality)"
	default:
		if high {
			return "Pending (High Quality, Vector Unknown)"
		}
		return "Pending (Low Quality, Vector Unknown)"
	}
}

// recommendations derives guidance from the matrix position and the
// safety checks. A pending vector gets exactly one recommendation: wait.
func (s *System) recommendations(exp *types.Experience, traj *types.Trajectory, ev evaluation) []string {
	if exp.ProvisionalIntent == types.IntentPending {
		return []string{
			"Your intention vector is still forming. Check back after some time to see what this experience leads to.",
		}
	}

	var recs []string
	if exp.IntentionConfidence < 0.3 {
		recs = append(recs,
			"Confidence is low; the system is still watching. Follow-up observations will sharpen the picture.")
	}

	pos := exp.MatrixPosition
	switch {
	case strings.Contains(pos, "Optimal"):
		recs = append(recs, "This experience aligns with high quality creative intent. Keep going.")
		if traj.PropagationRate > 0.5 {
			recs = append(recs, "Your pattern of creating after resonance is strong. Share your process.")
		}
	case strings.Contains(pos, "Hedonism"):
		recs = append(recs,
			"High quality, but the vector leans consumptive. Could you add a creative element?",
			"Set a time boundary and use the experience as fuel for something you make.")
	case strings.Contains(pos, "Slop"):
		recs = append(recs,
			"Creative intent is there, but quality could be higher. Seek feedback.",
			"Study the masters in this area. Iteration with intent raises the bar.")
	case strings.Contains(pos, "Junk Food"):
		recs = append(recs,
			"This experience leans consumptive and low quality.",
			"Try channelling even a small part of this into something you create.")
	case strings.Contains(pos, "Transitional"):
		recs = append(recs, "Lean into the creative elements of this experience.")
	}

	if !ev.driftValid {
		recs = append(recs,
			"[Drift detected] The system's classification may not match evidence. Follow-up data will clarify.")
	}
	if !ev.cycleHealthy {
		recs = append(recs,
			"[Cycle health] Your recent pattern leans heavily toward consumption. Consider introducing small creative acts; even mundane tasks done with care and intent count.")
	}
	return recs
}

// buildExplanation turns the pipeline intermediates into the typed
// per-facet explanation.
func (s *System) buildExplanation(exp *types.Experience, traj *types.Trajectory, ev evaluation, arc types.ArcTrend) types.Explanation {
	intentNote := "Classification has reasonable confidence based on evidence."
	if exp.IntentionConfidence < 0.5 {
		intentNote = "Classification is provisional; follow-up evidence will sharpen it."
	}

	qualityNote := "Scored from self-report alone; no follow-up evidence yet."
	if n := len(exp.FollowUps); n > 0 {
		qualityNote = fmt.Sprintf("Scored with %d follow-up observations.", n)
	}

	var resonanceNote string
	switch {
	case ev.validated < ev.raw-0.01:
		resonanceNote = "Validation discounted the raw signal against the temporal arc and propagation history."
	case ev.validated > ev.raw+0.01:
		resonanceNote = "Validation reinforced the raw signal."
	default:
		resonanceNote = "Validation left the raw signal unchanged."
	}

	var vectorFacet types.VectorFacet
	if traj.CurrentVector != nil {
		vectorFacet = types.VectorFacet{
			Direction:  traj.CurrentVector.Direction,
			Magnitude:  traj.CurrentVector.Magnitude,
			Confidence: traj.CurrentVector.Confidence,
		}
	}
	vectorFacet.Compounding = traj.CompoundingDirection

	withData := 0
	for _, h := range exp.Horizons {
		if h.Score != nil {
			withData++
		}
	}

	expl := types.Explanation{
		Intention: types.IntentionFacet{
			Signal:     exp.ProvisionalIntent,
			Confidence: exp.IntentionConfidence,
			Note:       intentNote,
		},
		Quality: types.QualityFacet{
			Score:      exp.QualityScore,
			Dimensions: exp.QualityDims,
			Note:       qualityNote,
		},
		Resonance: types.ResonanceFacet{
			Raw:       ev.raw,
			Validated: ev.validated,
			Note:      resonanceNote,
		},
		Vector: vectorFacet,
		Temporal: types.TemporalFacet{
			Horizons:      exp.Horizons,
			ArcTrend:      arc,
			WeightedScore: s.temporal.WeightedScore(exp.Horizons),
		},
		DriftCheck: types.DriftFacet{
			Valid:  ev.driftValid,
			Reason: ev.driftReason,
		},
		Health: types.HealthFacet{
			Healthy: ev.cycleHealthy,
			Reason:  ev.cycleReason,
		},
	}

	expl.Notes = append(expl.Notes, fmt.Sprintf(
		"Only %d/%d horizons have evidence. The long arc needs time.",
		withData, len(exp.Horizons)))
	if !s.external.HasWebAccess() {
		expl.Notes = append(expl.Notes,
			"Web access not configured; evidence-based extrapolation skipped.")
	}
	return expl
}

// buildAssessment assembles the result every entry point returns.
func (s *System) buildAssessment(exp *types.Experience, traj *types.Trajectory, ev evaluation, qs []types.PendingQuestion) *types.Assessment {
	arc := s.temporal.ComputeArcTrend(exp.Horizons)
	if qs == nil {
		qs = []types.PendingQuestion{}
	}
	return &types.Assessment{
		ExperienceID:        exp.ID,
		UserID:              exp.UserID,
		Intent:              exp.ProvisionalIntent,
		IntentionConfidence: exp.IntentionConfidence,
		IsProvisional:       exp.IntentionConfidence < 0.5,
		QualityScore:        exp.QualityScore,
		QualityDims:         exp.QualityDims,
		ResonanceScore:      exp.ResonanceScore,
		MatrixPosition:      exp.MatrixPosition,
		ArcTrend:            arc,
		Recommendations:     s.recommendations(exp, traj, ev),
		PendingQuestions:    qs,
		Explanation:         s.buildExplanation(exp, traj, ev, arc),
	}
}
