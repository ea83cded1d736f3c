package types

import (
	"context"
	"fmt"
	"time"
)

// The pipeline needs external evidence for artifact verification and
// evidence-based extrapolation, plus the richer quality and vector-probability
// signals. Rather than keyword-matching raw HTML, it defines WHAT evidence it
// needs as structured requests; whoever holds web access fulfills them.

// EvidenceType enumerates the kinds of evidence the pipeline can request.
type EvidenceType string

const (
	EvidenceArtifactVerify    EvidenceType = "artifact_verify"
	EvidenceTrajectorySearch  EvidenceType = "trajectory_search"
	EvidenceQualitySignal     EvidenceType = "quality_evidence"
	EvidenceVectorProbability EvidenceType = "vector_probability"
)

// EvidenceRequest describes what the pipeline needs from the outside world.
// An agent interprets it and uses its own tools to produce an EvidenceResponse.
type EvidenceRequest struct {
	Type    EvidenceType           `json:"request_type"`
	Query   string                 `json:"query"`
	Context map[string]interface{} `json:"context,omitempty"`

	// URL is set for artifact_verify requests.
	URL                   string `json:"url,omitempty"`
	ExperienceDescription string `json:"experience_description,omitempty"`
	UserClaim             string `json:"user_claim,omitempty"`
}

// AgentPrompt renders the request as a natural-language prompt for an agent's
// tool-use loop.
func (r EvidenceRequest) AgentPrompt() string {
	switch r.Type {
	case EvidenceArtifactVerify:
		return fmt.Sprintf(
			"Verify this URL as evidence of creative output: %s\n"+
				"User claims: %s\n"+
				"Related experience: %s\n\n"+
				"Please fetch and read the page, then assess:\n"+
				"1. Is the URL accessible and the content real (not a 404/placeholder)?\n"+
				"2. Is the content substantive (real creative work, not trivial)?\n"+
				"3. Does the publication date make sense relative to the claimed experience?\n"+
				"4. How relevant is the content to the claimed experience (0.0-1.0)?\n"+
				"5. Brief summary of what the content actually is.",
			r.URL, r.UserClaim, r.ExperienceDescription)
	case EvidenceTrajectorySearch:
		return fmt.Sprintf(
			"Search for public evidence about what typically happens when "+
				"someone does: %s\n\n"+
				"Find research, articles, documented outcomes, and case studies.\n"+
				"For each finding, provide:\n"+
				"1. The typical trajectory (what most people end up doing)\n"+
				"2. Probability estimate (rough, 0-1)\n"+
				"3. Distinguishing factors (what separates different outcomes)\n"+
				"4. Notable exceptions (cases that defied the pattern)\n"+
				"5. Source URLs\n"+
				"6. An empowering note (evidence, not judgment)",
			r.ExperienceDescription)
	case EvidenceQualitySignal:
		return fmt.Sprintf(
			"Search for external quality signals about: %s\n\n"+
				"Look for:\n"+
				"1. Expert reviews or assessments of this type of activity\n"+
				"2. Depth of engagement metrics (devoted fans vs shallow likes)\n"+
				"3. Evidence of skill development or mastery pathways\n"+
				"4. Community quality signals (are practitioners serious?)\n"+
				"5. Durability evidence (does engagement persist over time?)\n"+
				"Return a quality score (0.0-1.0), confidence, and source URLs.",
			r.ExperienceDescription)
	case EvidenceVectorProbability:
		return fmt.Sprintf(
			"Based on public research and evidence, what is the probability "+
				"that someone doing '%s' ends up on "+
				"a creative vs consumptive trajectory?\n\n"+
				"Search for:\n"+
				"1. Research on outcomes of this activity over time\n"+
				"2. Statistics on what percentage go creative vs stay consumptive\n"+
				"3. Key inflection points that distinguish the paths\n"+
				"4. Time horizon data (when does the vector typically resolve?)\n"+
				"Return: creative_probability (0-1), consumptive_probability (0-1), "+
				"key factors, and source URLs.",
			r.ExperienceDescription)
	}
	return r.Query
}

// EvidenceResponse is what the agent provides back. Each evidence type
// populates different fields; the pipeline extracts what it needs based on
// the request type.
type EvidenceResponse struct {
	Type    EvidenceType `json:"request_type"`
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`

	// Common fields.
	SourceURLs []string  `json:"source_urls,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`

	// artifact_verify fields.
	URLAccessible      bool    `json:"url_accessible,omitempty"`
	ContentSubstantive bool    `json:"content_substantive,omitempty"`
	ContentSummary     string  `json:"content_summary,omitempty"`
	TimestampPlausible bool    `json:"timestamp_plausible,omitempty"`
	RelevanceScore     float64 `json:"relevance_score,omitempty"`

	// trajectory_search fields. Each entry carries action_pattern,
	// typical_trajectory, probability_estimate, distinguishing_factors,
	// notable_exceptions, sources, empowerment_note, confidence.
	Hypotheses []map[string]interface{} `json:"hypotheses,omitempty"`

	// quality_evidence fields.
	QualityScore float64            `json:"quality_score,omitempty"`
	QualityDims  map[string]float64 `json:"quality_dimensions,omitempty"`

	// vector_probability fields.
	CreativeProbability    float64  `json:"creative_probability,omitempty"`
	ConsumptiveProbability float64  `json:"consumptive_probability,omitempty"`
	KeyFactors             []string `json:"key_factors,omitempty"`
	ResolutionHorizon      string   `json:"resolution_horizon,omitempty"` // "weeks", "months", "years"
}

// EvidenceFulfiller is the callback an agent integration provides to answer
// evidence requests.
type EvidenceFulfiller func(ctx context.Context, req EvidenceRequest) (EvidenceResponse, error)
