package types

import (
	"strconv"
	"strings"
	"time"
)

// Assessment is the structured result returned by every pipeline entry point.
// It carries the scores, the position label, the recommendations, and a typed
// explanation of how each number was produced.
type Assessment struct {
	ExperienceID        string             `json:"experience_id"`
	UserID              string             `json:"user_id"`
	Intent              IntentSignal       `json:"provisional_intention"`
	IntentionConfidence float64            `json:"intention_confidence"`
	IsProvisional       bool               `json:"is_provisional"`
	QualityScore        float64            `json:"quality_score"`
	QualityDims         map[string]float64 `json:"quality_dimensions"`
	ResonanceScore      float64            `json:"resonance_score"`
	MatrixPosition      string             `json:"matrix_position"`
	ArcTrend            ArcTrend           `json:"arc_trend"`
	Recommendations     []string           `json:"recommendations"`
	PendingQuestions    []PendingQuestion  `json:"pending_questions"`
	Explanation         Explanation        `json:"explanation"`

	// Evidence is populated only when a web client is configured.
	Evidence *TrajectoryEvidence `json:"trajectory_evidence,omitempty"`

	// EvidenceQuality and VectorProbability are populated only when the web
	// client supports structured evidence requests.
	EvidenceQuality   *EvidenceQuality   `json:"evidence_quality,omitempty"`
	VectorProbability *VectorProbability `json:"vector_probability,omitempty"`
}

// Explanation breaks the assessment down per facet so callers can relay the
// trend rather than raw internals.
type Explanation struct {
	Intention  IntentionFacet `json:"intention"`
	Quality    QualityFacet   `json:"quality"`
	Resonance  ResonanceFacet `json:"resonance"`
	Vector     VectorFacet    `json:"vector"`
	Temporal   TemporalFacet  `json:"temporal"`
	DriftCheck DriftFacet     `json:"drift_check"`
	Health     HealthFacet    `json:"ouroboros_health"`
	Notes      []string       `json:"notes,omitempty"`
}

// IntentionFacet explains the discrete intent signal.
type IntentionFacet struct {
	Signal     IntentSignal `json:"signal"`
	Confidence float64      `json:"confidence"`
	Note       string       `json:"note"`
}

// QualityFacet explains the quality score.
type QualityFacet struct {
	Score      float64            `json:"score"`
	Dimensions map[string]float64 `json:"dimensions"`
	Note       string             `json:"note"`
}

// ResonanceFacet explains raw versus validated resonance.
type ResonanceFacet struct {
	Raw       float64 `json:"raw"`
	Validated float64 `json:"validated"`
	Note      string  `json:"note"`
}

// VectorFacet explains the aggregate trajectory vector.
type VectorFacet struct {
	Direction   float64 `json:"direction"`
	Magnitude   float64 `json:"magnitude"`
	Confidence  float64 `json:"confidence"`
	Compounding float64 `json:"compounding"`
}

// TemporalFacet explains per-horizon scores and the arc trend.
type TemporalFacet struct {
	Horizons      []HorizonAssessment `json:"horizons"`
	ArcTrend      ArcTrend            `json:"arc_trend"`
	WeightedScore *float64            `json:"weighted_score"`
}

// DriftFacet reports the classification-vs-evidence drift check.
type DriftFacet struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// HealthFacet reports the cycle health check.
type HealthFacet struct {
	Healthy bool   `json:"healthy"`
	Reason  string `json:"reason"`
}

// Hypothesis is one evidence-backed statement about where an action pattern
// typically leads. Never prescriptive; always carries sources.
type Hypothesis struct {
	ActionPattern         string   `json:"action_pattern"`
	TypicalTrajectory     string   `json:"typical_trajectory"`
	ProbabilityEstimate   float64  `json:"probability_estimate"`
	Confidence            float64  `json:"confidence"`
	DistinguishingFactors []string `json:"distinguishing_factors"`
	NotableExceptions     []string `json:"notable_exceptions"`
	Sources               []string `json:"sources"`
	EmpowermentNote       string   `json:"empowerment_note"`
}

// TrajectoryEvidence is the extrapolation layer's output: hypotheses about
// likely outcomes of the recorded action, grounded in search results.
type TrajectoryEvidence struct {
	Activity    string       `json:"activity"`
	Hypotheses  []Hypothesis `json:"hypotheses"`
	SearchedAt  time.Time    `json:"searched_at"`
	SourceCount int          `json:"source_count"`
	Note        string       `json:"note"`
}

// EvidenceQuality is an agent-provided external quality signal.
type EvidenceQuality struct {
	Score      float64            `json:"score"`
	Dimensions map[string]float64 `json:"dimensions"`
	Confidence float64            `json:"confidence"`
	Summary    string             `json:"summary"`
	Sources    []string           `json:"sources"`
}

// VectorProbability is an agent-provided estimate of how the vector tends to
// resolve for this kind of action.
type VectorProbability struct {
	CreativeProbability    float64  `json:"creative_probability"`
	ConsumptiveProbability float64  `json:"consumptive_probability"`
	KeyFactors             []string `json:"key_factors"`
	ResolutionHorizon      string   `json:"resolution_horizon"`
	Confidence             float64  `json:"confidence"`
	Sources                []string `json:"sources"`
}

// =============================================================================
// DOT-PATH PROJECTION
// =============================================================================

// AsMap flattens the assessment into nested maps keyed by the wire names.
// Scenario harnesses and the CLI read individual values through Lookup
// without reflecting over the struct.
func (a *Assessment) AsMap() map[string]interface{} {
	horizons := make([]interface{}, 0, len(a.Explanation.Temporal.Horizons))
	for _, h := range a.Explanation.Temporal.Horizons {
		var score interface{}
		if h.Score != nil {
			score = *h.Score
		}
		horizons = append(horizons, map[string]interface{}{
			"horizon":        string(h.Horizon),
			"score":          score,
			"evidence_count": h.EvidenceCount,
			"notes":          h.Notes,
		})
	}
	var weighted interface{}
	if a.Explanation.Temporal.WeightedScore != nil {
		weighted = *a.Explanation.Temporal.WeightedScore
	}
	m := map[string]interface{}{
		"experience_id":         a.ExperienceID,
		"user_id":               a.UserID,
		"provisional_intention": string(a.Intent),
		"intention_confidence":  a.IntentionConfidence,
		"is_provisional":        a.IsProvisional,
		"quality_score":         a.QualityScore,
		"quality_dimensions":    floatMap(a.QualityDims),
		"resonance_score":       a.ResonanceScore,
		"matrix_position":       a.MatrixPosition,
		"arc_trend":             string(a.ArcTrend),
		"recommendations":       stringSlice(a.Recommendations),
		"explanation": map[string]interface{}{
			"intention": map[string]interface{}{
				"signal":     string(a.Explanation.Intention.Signal),
				"confidence": a.Explanation.Intention.Confidence,
				"note":       a.Explanation.Intention.Note,
			},
			"quality": map[string]interface{}{
				"score":      a.Explanation.Quality.Score,
				"dimensions": floatMap(a.Explanation.Quality.Dimensions),
				"note":       a.Explanation.Quality.Note,
			},
			"resonance": map[string]interface{}{
				"raw":       a.Explanation.Resonance.Raw,
				"validated": a.Explanation.Resonance.Validated,
				"note":      a.Explanation.Resonance.Note,
			},
			"vector": map[string]interface{}{
				"direction":   a.Explanation.Vector.Direction,
				"magnitude":   a.Explanation.Vector.Magnitude,
				"confidence":  a.Explanation.Vector.Confidence,
				"compounding": a.Explanation.Vector.Compounding,
			},
			"temporal": map[string]interface{}{
				"horizons":       horizons,
				"arc_trend":      string(a.Explanation.Temporal.ArcTrend),
				"weighted_score": weighted,
			},
			"drift_check": map[string]interface{}{
				"valid":  a.Explanation.DriftCheck.Valid,
				"reason": a.Explanation.DriftCheck.Reason,
			},
			"ouroboros_health": map[string]interface{}{
				"healthy": a.Explanation.Health.Healthy,
				"reason":  a.Explanation.Health.Reason,
			},
		},
	}
	if len(a.Explanation.Notes) > 0 {
		exp := m["explanation"].(map[string]interface{})
		exp["notes"] = stringSlice(a.Explanation.Notes)
	}
	if a.Evidence != nil {
		m["trajectory_evidence"] = map[string]interface{}{
			"activity":     a.Evidence.Activity,
			"hypotheses":   len(a.Evidence.Hypotheses),
			"source_count": a.Evidence.SourceCount,
			"note":         a.Evidence.Note,
		}
	}
	return m
}

// Lookup reads a dot-separated path out of the assessment, e.g.
// "explanation.vector.direction" or "quality_dimensions.signal_depth".
// Numeric path segments index into slices.
func (a *Assessment) Lookup(path string) (interface{}, bool) {
	var cur interface{} = a.AsMap()
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func floatMap(m map[string]float64) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stringSlice(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
