// Package quality scores experiences on observable signal depth rather than
// reach. The rate of strong responses matters, never the count: a craftsman
// with a handful of devoted returning clients outscores a viral post with a
// million shallow likes. At t=0 only the self-report exists, so every
// dimension falls back to a heavily discounted fraction of it until
// follow-up evidence arrives.
package quality

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"resonance/internal/types"
)

// Dimension weights. Signal depth dominates because depth of response is
// the core quality signal; authenticity is a tiebreaker against spike-crash
// patterns.
const (
	weightSignalDepth    = 0.35
	weightRecursiveness  = 0.20
	weightDurability     = 0.20
	weightGrowthEnabling = 0.15
	weightAuthenticity   = 0.10
)

// Dimensions lists the dimension keys in weight order.
var Dimensions = []string{
	"signal_depth",
	"recursiveness",
	"durability",
	"growth_enabling",
	"authenticity",
}

// Assessor measures quality across five observable dimensions, each of
// which sharpens as follow-ups accumulate over longer horizons.
type Assessor struct{}

// NewAssessor returns a stateless quality assessor.
func NewAssessor() *Assessor {
	return &Assessor{}
}

// AssessQuality scores the experience on all five dimensions and returns the
// weighted composite along with the per-dimension breakdown. The trajectory
// may be nil; growth and consistency terms then fall back to weak priors.
func (a *Assessor) AssessQuality(exp *types.Experience, traj *types.Trajectory) (float64, map[string]float64) {
	dims := map[string]float64{
		"signal_depth":    a.measureSignalDepth(exp),
		"recursiveness":   a.measureRecursiveness(exp),
		"durability":      a.measureDurability(exp),
		"growth_enabling": a.measureGrowthEnabling(exp, traj),
		"authenticity":    a.measureAuthenticity(exp, traj),
	}

	score := weightSignalDepth*dims["signal_depth"] +
		weightRecursiveness*dims["recursiveness"] +
		weightDurability*dims["durability"] +
		weightGrowthEnabling*dims["growth_enabling"] +
		weightAuthenticity*dims["authenticity"]

	return score, dims
}

// ========== Dimension Measurements ==========

// measureSignalDepth asks how intensely receivers responded. All indicators
// are rates, not counts, so small devoted audiences score as well as large
// ones.
func (a *Assessor) measureSignalDepth(exp *types.Experience) float64 {
	if len(exp.FollowUps) == 0 {
		// Self-report alone cannot confirm depth.
		return exp.SelfRating * 0.4
	}

	total := len(exp.FollowUps)
	created, shared, inspired, anyActive := 0, 0, 0, 0
	for _, f := range exp.FollowUps {
		if f.CreatedSomething {
			created++
		}
		if f.SharedOrTaught {
			shared++
		}
		if f.InspiredFurtherAction {
			inspired++
		}
		if f.IsActive() {
			anyActive++
		}
	}
	intensityRate := float64(anyActive) / float64(total)

	// Multiple response types together signal deeper engagement than any
	// single one.
	breadth := 0.0
	if created > 0 {
		breadth += 0.4
	}
	if shared > 0 {
		breadth += 0.3
	}
	if inspired > 0 {
		breadth += 0.3
	}

	speed := responseSpeed(exp)

	return clamp01(0.55*intensityRate + 0.25*breadth + 0.20*speed)
}

// measureRecursiveness asks whether quality layers compound: distinct
// creations, creations that were themselves shared, inspiration that led to
// further making. Depth of layering, never volume.
func (a *Assessor) measureRecursiveness(exp *types.Experience) float64 {
	if len(exp.FollowUps) == 0 {
		return 0.0
	}

	creations := 0
	sharedCreations := 0
	inspiredCreations := 0
	for _, f := range exp.FollowUps {
		if !f.CreatedSomething {
			continue
		}
		creations++
		if f.SharedOrTaught {
			sharedCreations++
		}
		if f.InspiredFurtherAction {
			inspiredCreations++
		}
	}
	if creations == 0 {
		return 0.0
	}

	base := 0.3
	additional := math.Min(float64(creations-1)*0.15, 0.35)
	layerFlow := math.Min(float64(sharedCreations)*0.15, 0.25)
	recursiveSeed := math.Min(float64(inspiredCreations)*0.1, 0.2)

	return clamp01(base + additional + layerFlow + recursiveSeed)
}

// measureDurability asks whether the signal persists as horizons expand.
// Follow-ups are bucketed by distance from the experience and later buckets
// weigh more; with only short-term data the score is capped because hours
// cannot confirm durability.
func (a *Assessor) measureDurability(exp *types.Experience) float64 {
	if len(exp.FollowUps) == 0 {
		return exp.SelfRating * 0.3
	}

	var short, medium, long []types.FollowUp
	for _, f := range exp.FollowUps {
		age := f.Timestamp.Sub(exp.Timestamp)
		switch {
		case age < 3*24*time.Hour:
			short = append(short, f)
		case age < 60*24*time.Hour:
			medium = append(medium, f)
		default:
			long = append(long, f)
		}
	}

	shortRate, haveShort := bucketActiveRate(short)
	mediumRate, haveMedium := bucketActiveRate(medium)
	longRate, haveLong := bucketActiveRate(long)

	weightedSum := 0.0
	totalWeight := 0.0
	if haveShort {
		weightedSum += 0.20 * shortRate
		totalWeight += 0.20
	}
	if haveMedium {
		weightedSum += 0.35 * mediumRate
		totalWeight += 0.35
	}
	if haveLong {
		weightedSum += 0.45 * longRate
		totalWeight += 0.45
	}
	if totalWeight < 1e-9 {
		return 0.0
	}

	raw := weightedSum / totalWeight
	if !haveMedium && !haveLong {
		return math.Min(raw, 0.45)
	}
	return clamp01(raw)
}

// measureGrowthEnabling asks whether the experience raised the creation rate
// of what came after it. Needs trajectory context and at least one
// experience on each side.
func (a *Assessor) measureGrowthEnabling(exp *types.Experience, traj *types.Trajectory) float64 {
	if traj == nil || len(traj.Experiences) < 2 {
		return exp.SelfRating * 0.2
	}

	idx := traj.ExperienceIndex(exp.ID)
	if idx < 0 || idx >= len(traj.Experiences)-1 {
		return exp.SelfRating * 0.2
	}

	before := traj.Experiences[:idx]
	after := traj.Experiences[idx+1:]
	if len(before) == 0 || len(after) == 0 {
		return exp.SelfRating * 0.2
	}

	growthDelta := propagatedRate(after) - propagatedRate(before)

	directionImprovement := 0.0
	if len(traj.VectorHistory) >= 2 {
		recent := traj.VectorHistory[len(traj.VectorHistory)-1].Direction
		if idx > 0 && idx < len(traj.VectorHistory) {
			earlier := traj.VectorHistory[idx-1].Direction
			directionImprovement = recent - earlier
		}
	}

	// Growth delta is centred at 0.5 so an unchanged rate scores neutral.
	score := 0.6*clamp01(growthDelta+0.5) +
		0.4*clamp01((directionImprovement+1.0)/2.0)
	return clamp01(score)
}

// measureAuthenticity asks whether the pattern is steady rather than
// spike-crash. Self-report is checked against action evidence, and the
// variance of recent quality scores feeds a consistency term.
func (a *Assessor) measureAuthenticity(exp *types.Experience, traj *types.Trajectory) float64 {
	if len(exp.FollowUps) == 0 {
		return exp.SelfRating * 0.3
	}

	actionRate := float64(exp.ActiveFollowUps()) / float64(len(exp.FollowUps))

	var alignment float64
	switch {
	case exp.SelfRating > 0.7:
		if actionRate > 0.5 {
			alignment = 0.9 // high report backed by high action
		} else {
			alignment = 0.3 // high report, no action: spike-crash shape
		}
	case exp.SelfRating > 0.4:
		alignment = 0.5 + actionRate*0.3
	default:
		if actionRate > 0.3 {
			alignment = 0.8 // rated it low but still acted on it
		} else {
			alignment = 0.4 // honest low quality
		}
	}

	consistency := 0.5
	if traj != nil && len(traj.Experiences) >= 3 {
		start := len(traj.Experiences) - 5
		if start < 0 {
			start = 0
		}
		var recent []float64
		for _, e := range traj.Experiences[start:] {
			if e.QualityScore > 0 {
				recent = append(recent, e.QualityScore)
			}
		}
		if len(recent) >= 2 {
			// Lower variance means a steadier, more authentic pattern.
			sd := stat.StdDev(recent, nil)
			consistency = math.Max(0.0, 1.0-sd*2.0)
		}
	}

	return clamp01(0.6*alignment + 0.4*consistency)
}

// ========== Helpers ==========

// responseSpeed scores how quickly the FIRST active response arrived.
// Faster visceral response means a deeper signal.
func responseSpeed(exp *types.Experience) float64 {
	var earliest *types.FollowUp
	for i := range exp.FollowUps {
		f := &exp.FollowUps[i]
		if !f.IsActive() {
			continue
		}
		if earliest == nil || f.Timestamp.Before(earliest.Timestamp) {
			earliest = f
		}
	}
	if earliest == nil {
		return 0.0
	}

	delay := earliest.Timestamp.Sub(exp.Timestamp)
	switch {
	case delay < 6*time.Hour:
		return 1.0
	case delay < 24*time.Hour:
		return 0.85
	case delay < 3*24*time.Hour:
		return 0.7
	case delay < 7*24*time.Hour:
		return 0.55
	case delay < 30*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

// bucketActiveRate reports the active-signal rate within a temporal bucket.
// The second return is false for an empty bucket so callers can skip it.
func bucketActiveRate(bucket []types.FollowUp) (float64, bool) {
	if len(bucket) == 0 {
		return 0, false
	}
	active := 0
	for _, f := range bucket {
		if f.IsActive() {
			active++
		}
	}
	return float64(active) / float64(len(bucket)), true
}

func propagatedRate(exps []*types.Experience) float64 {
	if len(exps) == 0 {
		return 0
	}
	n := 0
	for _, e := range exps {
		if e.Propagated {
			n++
		}
	}
	return float64(n) / float64(len(exps))
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
