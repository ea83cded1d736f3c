// Package types provides shared type definitions used across resonance packages.
// This package exists to break import cycles between the vector, quality, and
// system packages. Types in this package should be foundational data structures
// with no complex dependencies.
package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a short opaque identifier for experiences, follow-ups,
// questions, and artifacts.
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// =============================================================================
// ENUMS
// =============================================================================

// IntentSignal is the discrete intent classification derived from vector
// direction and confidence.
type IntentSignal string

const (
	IntentCreative    IntentSignal = "creative_intent"
	IntentConsumptive IntentSignal = "consumptive_intent"
	IntentMixed       IntentSignal = "mixed"
	IntentPending     IntentSignal = "pending"
)

// TimeHorizon tags a score or snapshot with the window of evidence it covers.
type TimeHorizon string

const (
	HorizonImmediate    TimeHorizon = "immediate"
	HorizonShortTerm    TimeHorizon = "short_term"
	HorizonMediumTerm   TimeHorizon = "medium_term"
	HorizonLongTerm     TimeHorizon = "long_term"
	HorizonGenerational TimeHorizon = "generational"
)

// HorizonOrder is the canonical narrow-to-wide ordering of horizons.
var HorizonOrder = []TimeHorizon{
	HorizonImmediate,
	HorizonShortTerm,
	HorizonMediumTerm,
	HorizonLongTerm,
	HorizonGenerational,
}

// HorizonRank returns the position of h in HorizonOrder, or -1 if unknown.
func HorizonRank(h TimeHorizon) int {
	for i, v := range HorizonOrder {
		if v == h {
			return i
		}
	}
	return -1
}

// ArtifactStatus is the outcome of verifying a user-submitted artifact URL.
type ArtifactStatus string

const (
	ArtifactVerified     ArtifactStatus = "verified"
	ArtifactUnverified   ArtifactStatus = "unverified"
	ArtifactSuspicious   ArtifactStatus = "suspicious"
	ArtifactInaccessible ArtifactStatus = "inaccessible"
)

// ArcTrend describes how horizon scores change as the horizon widens.
type ArcTrend string

const (
	ArcImproving        ArcTrend = "improving"
	ArcDeclining        ArcTrend = "declining"
	ArcStable           ArcTrend = "stable"
	ArcInsufficientData ArcTrend = "insufficient_data"
)

// FollowUpSource tags where a follow-up observation came from.
type FollowUpSource string

const (
	SourceUserResponse      FollowUpSource = "user_response"
	SourceBehavioral        FollowUpSource = "behavioral"
	SourceSystemObservation FollowUpSource = "system_observation"
)

// =============================================================================
// CORE RECORDS
// =============================================================================

// VectorSnapshot is a point-in-time (direction, magnitude, confidence) triple.
// Snapshots are append-only: once written to a history they are never mutated.
type VectorSnapshot struct {
	Timestamp  time.Time   `json:"timestamp"`
	Direction  float64     `json:"direction"`  // [-1, +1]: creative vs consumptive
	Magnitude  float64     `json:"magnitude"`  // [0, 1]: strength of the evidence
	Confidence float64     `json:"confidence"` // [0, 1]: how much evidence backs it
	Horizon    TimeHorizon `json:"horizon"`
}

// FollowUp records later evidence about an earlier experience: what the user
// actually did afterwards, observed or self-reported.
type FollowUp struct {
	ID                    string         `json:"id"`
	ExperienceID          string         `json:"experience_id"`
	Timestamp             time.Time      `json:"timestamp"`
	Source                FollowUpSource `json:"source"`
	Content               string         `json:"content"`
	CreatedSomething      bool           `json:"created_something"`
	CreationDescription   string         `json:"creation_description"`
	SharedOrTaught        bool           `json:"shared_or_taught"`
	InspiredFurtherAction bool           `json:"inspired_further_action"`
	// CreationMagnitude grades what was created: 0 nothing, 0.25 started,
	// 0.5 draft, 0.75 substantial, 1.0 shipped.
	CreationMagnitude float64 `json:"creation_magnitude"`
}

// NewFollowUp builds a follow-up with a fresh id, defaulting the source to
// user_response.
func NewFollowUp(experienceID string, ts time.Time) FollowUp {
	return FollowUp{
		ID:           NewID(),
		ExperienceID: experienceID,
		Timestamp:    ts,
		Source:       SourceUserResponse,
	}
}

// EffectiveMagnitude returns the creation magnitude used by scoring.
// Older records set created_something without a magnitude; those count as 1.0.
func (f FollowUp) EffectiveMagnitude() float64 {
	if !f.CreatedSomething {
		return 0
	}
	if f.CreationMagnitude == 0 {
		return 1.0
	}
	return f.CreationMagnitude
}

// IsActive reports whether the follow-up carries any engagement signal.
func (f FollowUp) IsActive() bool {
	return f.CreatedSomething || f.SharedOrTaught || f.InspiredFurtherAction
}

// Experience is one recorded user activity plus everything the pipeline has
// inferred about it so far. It is exclusively owned by one Trajectory and is
// mutated only by the pipeline for that user.
type Experience struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	Context     string    `json:"context"`
	SelfRating  float64   `json:"self_rating"` // [0, 1]
	Timestamp   time.Time `json:"timestamp"`

	FollowUps []FollowUp          `json:"follow_ups"`
	Vectors   []VectorSnapshot    `json:"vector_snapshots"`
	Horizons  []HorizonAssessment `json:"horizon_assessments"`

	ProvisionalIntent   IntentSignal       `json:"provisional_intention"`
	IntentionConfidence float64            `json:"intention_confidence"`
	ResonanceScore      float64            `json:"resonance_score"`
	QualityScore        float64            `json:"quality_score"`
	QualityDims         map[string]float64 `json:"quality_dimensions"`

	Propagated        bool     `json:"propagated"`
	PropagationEvents []string `json:"propagation_events"`
	MatrixPosition    string   `json:"matrix_position"`
}

// NewExperience builds an experience with a fresh id and a pending intent.
func NewExperience(userID, description, context string, rating float64, ts time.Time) *Experience {
	return &Experience{
		ID:                NewID(),
		UserID:            userID,
		Description:       description,
		Context:           context,
		SelfRating:        rating,
		Timestamp:         ts,
		ProvisionalIntent: IntentPending,
		QualityDims:       make(map[string]float64),
	}
}

// LatestVector returns the most recent per-experience snapshot, or nil.
func (e *Experience) LatestVector() *VectorSnapshot {
	if len(e.Vectors) == 0 {
		return nil
	}
	return &e.Vectors[len(e.Vectors)-1]
}

// ActiveFollowUps counts follow-ups carrying any engagement signal.
func (e *Experience) ActiveFollowUps() int {
	n := 0
	for _, f := range e.FollowUps {
		if f.IsActive() {
			n++
		}
	}
	return n
}

// HorizonAssessment is one horizon's score for an experience. Score is nil
// when the evidence for that horizon has not arrived yet.
type HorizonAssessment struct {
	Horizon       TimeHorizon `json:"horizon"`
	Score         *float64    `json:"score"` // nil = no evidence yet
	EvidenceCount int         `json:"evidence_count"`
	Notes         string      `json:"notes"`
}

// Trajectory is the per-user ordered history of experiences plus the derived
// aggregate statistics. Experiences and vector history are append-only.
type Trajectory struct {
	UserID      string        `json:"user_id"`
	Experiences []*Experience `json:"experiences"`

	CurrentVector *VectorSnapshot  `json:"current_vector"`
	VectorHistory []VectorSnapshot `json:"vector_history"`

	CreationRate         float64 `json:"creation_rate"`         // [0, 1]
	PropagationRate      float64 `json:"propagation_rate"`      // [0, 1]
	CompoundingDirection float64 `json:"compounding_direction"` // [-1, +1]
}

// NewTrajectory builds an empty trajectory for a user.
func NewTrajectory(userID string) *Trajectory {
	return &Trajectory{UserID: userID}
}

// FindExperience returns the experience with the given id, or nil.
func (t *Trajectory) FindExperience(id string) *Experience {
	for _, e := range t.Experiences {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// ExperienceIndex returns the position of the experience in event order,
// or -1 if absent.
func (t *Trajectory) ExperienceIndex(id string) int {
	for i, e := range t.Experiences {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// PendingQuestion is a future-dated follow-up prompt produced by the question
// engine. It stays unasked until a caller surfaces it at or after AskAfter.
type PendingQuestion struct {
	ID           string      `json:"id"`
	ExperienceID string      `json:"experience_id"`
	UserID       string      `json:"user_id"`
	Text         string      `json:"text"`
	AskAfter     time.Time   `json:"ask_after"`
	Horizon      TimeHorizon `json:"horizon"`
	Asked        bool        `json:"asked"`
	Answer       *FollowUp   `json:"answer,omitempty"`
}

// Artifact is a user-submitted URL claimed as evidence of creative output.
type Artifact struct {
	ID           string    `json:"id"`
	ExperienceID string    `json:"experience_id"`
	UserID       string    `json:"user_id"`
	URL          string    `json:"url"`
	Platform     string    `json:"platform"`
	UserClaim    string    `json:"user_claim"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// ArtifactVerification is the structured outcome of checking an artifact.
type ArtifactVerification struct {
	ArtifactID         string         `json:"artifact_id"`
	URLAccessible      bool           `json:"url_accessible"`
	ContentSummary     string         `json:"content_summary"`
	ContentSubstantive bool           `json:"content_substantive"`
	TimestampPlausible bool           `json:"timestamp_plausible"`
	RelevanceScore     float64        `json:"relevance_score"` // [0, 1]
	VerifiedAt         time.Time      `json:"verified_at"`
	Status             ArtifactStatus `json:"status"`
	Notes              string         `json:"notes"`
}

// ConversationLog is one row of the optional conversation audit trail.
type ConversationLog struct {
	ID        int64                  `json:"id"`
	SessionID string                 `json:"session_id"`
	UserID    string                 `json:"user_id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Mode      string                 `json:"mode"`
	Timestamp time.Time              `json:"timestamp"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
}

// =============================================================================
// WEB TYPES
// =============================================================================

// WebPage is the fetched content of a URL, reduced to what verification needs.
type WebPage struct {
	URL           string     `json:"url"`
	Accessible    bool       `json:"accessible"`
	StatusCode    int        `json:"status_code"`
	Title         string     `json:"title"`
	ContentText   string     `json:"content_text"`
	ContentLength int        `json:"content_length"`
	PublishDate   *time.Time `json:"publish_date,omitempty"`
	Platform      string     `json:"platform"`
}

// SearchResult is one hit from a web search.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// =============================================================================
// DEEP COPY
// =============================================================================

// Clone returns a deep copy of the experience.
func (e *Experience) Clone() *Experience {
	if e == nil {
		return nil
	}
	cp := *e
	cp.FollowUps = append([]FollowUp(nil), e.FollowUps...)
	cp.Vectors = append([]VectorSnapshot(nil), e.Vectors...)
	if e.Horizons != nil {
		cp.Horizons = make([]HorizonAssessment, len(e.Horizons))
		for i, h := range e.Horizons {
			cp.Horizons[i] = h
			if h.Score != nil {
				s := *h.Score
				cp.Horizons[i].Score = &s
			}
		}
	}
	cp.PropagationEvents = append([]string(nil), e.PropagationEvents...)
	if e.QualityDims != nil {
		cp.QualityDims = make(map[string]float64, len(e.QualityDims))
		for k, v := range e.QualityDims {
			cp.QualityDims[k] = v
		}
	}
	return &cp
}

// Clone returns a deep copy of the trajectory, including all experiences.
func (t *Trajectory) Clone() *Trajectory {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Experiences != nil {
		cp.Experiences = make([]*Experience, len(t.Experiences))
		for i, e := range t.Experiences {
			cp.Experiences[i] = e.Clone()
		}
	}
	cp.VectorHistory = append([]VectorSnapshot(nil), t.VectorHistory...)
	if t.CurrentVector != nil {
		v := *t.CurrentVector
		cp.CurrentVector = &v
	}
	return &cp
}
