package resonance

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/stat"

	"resonance/internal/types"
)

const (
	dependencyThreshold     = 0.7
	dependencyPenaltyFactor = 0.3
	predictabilityThreshold = 0.8
	predictabilityPenalty   = 0.15

	// Window sizes for the pattern lenses.
	dependencyWindow     = 8
	predictabilityWindow = 10
)

// stopwords are dropped before comparing experience descriptions, so that
// overlap measures activity rather than filler.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "at": {}, "for": {},
	"with": {}, "about": {}, "into": {}, "i": {}, "my": {}, "me": {},
	"we": {}, "it": {}, "is": {}, "was": {}, "am": {}, "been": {},
	"be": {}, "this": {}, "that": {}, "have": {}, "has": {}, "had": {},
	"some": {}, "just": {}, "really": {},
}

// Validator adjusts a raw resonance score through four lenses: temporal arc,
// propagation history, dependency patterns, and predictability. Sugar hits
// collapse across horizons; genuine resonance propagates, stays varied, and
// keeps its natural unpredictability.
type Validator struct{}

// NewValidator returns a stateless resonance validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the full pipeline and returns the adjusted resonance score,
// starting from the experience's raw score. Assessments may be nil when no
// horizon evaluation has run yet.
func (v *Validator) Validate(exp *types.Experience, traj *types.Trajectory, assessments []types.HorizonAssessment) float64 {
	score := exp.ResonanceScore

	if len(assessments) > 0 {
		score = arcAdjustment(score, assessments)
	}

	score = propagationAdjustment(score, traj)

	if v.AssessDependency(traj) > dependencyThreshold {
		score *= dependencyPenaltyFactor
	}

	if v.AssessPredictability(traj) > predictabilityThreshold {
		score = math.Max(score-predictabilityPenalty, 0.0)
	}

	return clamp01(score)
}

// arcAdjustment compares the earliest and latest scored horizons. An arc
// bending upward earns a small trust boost; an arc bending down is a sugar
// hit and the penalty scales with the decline.
func arcAdjustment(score float64, assessments []types.HorizonAssessment) float64 {
	var scored []types.HorizonAssessment
	for _, a := range assessments {
		if a.Score != nil {
			scored = append(scored, a)
		}
	}
	if len(scored) < 2 {
		return score
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return types.HorizonRank(scored[i].Horizon) < types.HorizonRank(scored[j].Horizon)
	})

	earliest := *scored[0].Score
	latest := *scored[len(scored)-1].Score

	switch {
	case latest > earliest+0.1:
		return math.Min(score+0.05, 1.0)
	case latest < earliest-0.1:
		decline := earliest - latest
		return math.Max(score*(1.0-decline*0.5), 0.0)
	}
	return score
}

// propagationAdjustment trusts the score more when this user's resonance
// historically led to creation and discounts it when it never does.
func propagationAdjustment(score float64, traj *types.Trajectory) float64 {
	if traj == nil || len(traj.Experiences) < 3 {
		return score
	}
	switch rate := traj.PropagationRate; {
	case rate > 0.5:
		return math.Min(score+0.05, 1.0)
	case rate < 0.15:
		return math.Max(score-0.10, 0.0)
	}
	return score
}

// AssessDependency scores the dependency risk in [0,1] from three signals
// over the most recent experiences: narrowing variety, escalating frequency,
// and declining returns. All three elevated at once is the classic addiction
// shape and compounds the composite.
func (v *Validator) AssessDependency(traj *types.Trajectory) float64 {
	if traj == nil || len(traj.Experiences) < 5 {
		return 0.0
	}

	recent := traj.Experiences
	if len(recent) > dependencyWindow {
		recent = recent[len(recent)-dependencyWindow:]
	}

	narrowing := narrowingSignal(recent)
	escalation := escalationSignal(recent)
	declining := decliningReturnsSignal(recent)

	composite := 0.40*narrowing + 0.30*escalation + 0.30*declining
	if narrowing > 0.5 && escalation > 0.5 && declining > 0.5 {
		composite *= 1.5
	}
	return math.Min(composite, 1.0)
}

// narrowingSignal is the average pairwise Jaccard similarity of the
// stopword-filtered description tokens. High overlap means the user keeps
// reaching for near-identical experiences.
func narrowingSignal(recent []*types.Experience) float64 {
	sets := make([]map[string]struct{}, 0, len(recent))
	for _, e := range recent {
		sets = append(sets, tokenSet(e.Description))
	}

	var overlapSum float64
	var pairs int
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			union := len(sets[i])
			inter := 0
			for w := range sets[j] {
				if _, ok := sets[i][w]; ok {
					inter++
				} else {
					union++
				}
			}
			if union > 0 {
				overlapSum += float64(inter) / float64(union)
				pairs++
			}
		}
	}
	if pairs == 0 {
		return 0.0
	}
	return clamp01(overlapSum / float64(pairs))
}

// escalationSignal measures whether the gaps between experiences are
// shrinking. Gaps halving scores 0.5; steady cadence scores 0.
func escalationSignal(recent []*types.Experience) float64 {
	if len(recent) < 3 {
		return 0.0
	}
	gaps := make([]float64, 0, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		gaps = append(gaps, recent[i].Timestamp.Sub(recent[i-1].Timestamp).Hours())
	}
	half := len(gaps) / 2
	if half == 0 {
		return 0.0
	}
	earlier := stat.Mean(gaps[:half], nil)
	later := stat.Mean(gaps[half:], nil)
	if earlier <= 0 {
		return 0.0
	}
	return clamp01(1.0 - later/earlier)
}

// decliningReturnsSignal is the drop between first-half and second-half
// resonance means. Each hit delivering less than the last is the signature
// of tolerance building up.
func decliningReturnsSignal(recent []*types.Experience) float64 {
	var scores []float64
	for _, e := range recent {
		if e.ResonanceScore > 0 {
			scores = append(scores, e.ResonanceScore)
		}
	}
	if len(scores) < 4 {
		return 0.0
	}
	half := len(scores) / 2
	return clamp01(stat.Mean(scores[:half], nil) - stat.Mean(scores[half:], nil))
}

// AssessPredictability scores how predictable the user's resonance has
// become, in [0,1]. Genuine resonance has natural variance; tightly
// clustered scores, inflated ratings, and flat deltas all point at a rut.
func (v *Validator) AssessPredictability(traj *types.Trajectory) float64 {
	if traj == nil || len(traj.Experiences) < 5 {
		return 0.0
	}

	recent := traj.Experiences
	if len(recent) > predictabilityWindow {
		recent = recent[len(recent)-predictabilityWindow:]
	}

	var scores []float64
	ratings := make([]float64, 0, len(recent))
	for _, e := range recent {
		if e.ResonanceScore > 0 {
			scores = append(scores, e.ResonanceScore)
		}
		ratings = append(ratings, e.SelfRating)
	}
	if len(scores) < 3 {
		return 0.0
	}

	var variance float64
	switch sd := stat.PopStdDev(scores, nil); {
	case sd < 0.05:
		variance = 0.9
	case sd < 0.10:
		variance = 0.5
	case sd < 0.15:
		variance = 0.2
	default:
		variance = 0.1
	}

	var inflation float64
	switch avg := stat.Mean(ratings, nil); {
	case avg > 0.9:
		inflation = 0.8
	case avg > 0.8:
		inflation = 0.4
	}

	flat := 0
	for i := 1; i < len(scores); i++ {
		if math.Abs(scores[i]-scores[i-1]) < 0.03 {
			flat++
		}
	}
	monotony := float64(flat) / float64(len(scores)-1)

	return 0.50*variance + 0.25*inflation + 0.25*monotony
}

// tokenSet lowercases, strips punctuation, and drops stopwords.
func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range fields {
		if _, skip := stopwords[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}
