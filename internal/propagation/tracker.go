// Package propagation runs the transmission test: genuine resonance
// propagates. The receiver is moved to channel the experience through their
// own lens, to create, share, teach, or build. High reported resonance with
// no downstream creative behaviour is likely a dopamine hit.
package propagation

import (
	"math"
	"sync"
	"time"

	"resonance/internal/types"
)

// CreationEvent records a downstream creation inspired by an experience.
type CreationEvent struct {
	ID                     string    `json:"id"`
	UserID                 string    `json:"user_id"`
	Description            string    `json:"description"`
	Timestamp              time.Time `json:"timestamp"`
	InspiredByExperienceID string    `json:"inspired_by_experience_id,omitempty"`
}

// Tracker monitors the transmission of resonance into creative output,
// keyed by user. Safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	events map[string][]CreationEvent

	now func() time.Time
}

// NewTracker returns an empty propagation tracker.
func NewTracker() *Tracker {
	return &Tracker{
		events: make(map[string][]CreationEvent),
		now:    time.Now,
	}
}

// RecordCreationEvent records that a user created something. A zero
// timestamp defaults to now; inspiredBy may be empty for free-standing
// creations.
func (t *Tracker) RecordCreationEvent(userID, description, inspiredBy string, ts time.Time) CreationEvent {
	if ts.IsZero() {
		ts = t.now()
	}
	event := CreationEvent{
		ID:                     types.NewID(),
		UserID:                 userID,
		Description:            description,
		Timestamp:              ts,
		InspiredByExperienceID: inspiredBy,
	}

	t.mu.Lock()
	t.events[userID] = append(t.events[userID], event)
	t.mu.Unlock()

	return event
}

// CheckPropagation returns the creation events linked to an experience.
func (t *Tracker) CheckPropagation(userID, experienceID string) []CreationEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []CreationEvent
	for _, e := range t.events[userID] {
		if e.InspiredByExperienceID == experienceID {
			out = append(out, e)
		}
	}
	return out
}

// EventCount reports how many creation events the user has accumulated.
func (t *Tracker) EventCount(userID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events[userID])
}

// ComputePropagationRate answers: what fraction of high-resonance
// experiences led to creation? High-resonance means a resonance score or
// self-rating above 0.6.
func (t *Tracker) ComputePropagationRate(traj *types.Trajectory) float64 {
	if traj == nil {
		return 0.0
	}

	high := 0
	propagated := 0
	for _, e := range traj.Experiences {
		if e.ResonanceScore > 0.6 || e.SelfRating > 0.6 {
			high++
			if e.Propagated {
				propagated++
			}
		}
	}
	if high == 0 {
		return 0.0
	}
	return float64(propagated) / float64(high)
}

// ValidateResonanceAuthenticity adjusts a resonance score by the user's
// propagation history. Consistent propagation earns a small trust bonus;
// consistent non-propagation discounts the score once enough history
// exists.
func (t *Tracker) ValidateResonanceAuthenticity(score float64, traj *types.Trajectory) float64 {
	rate := t.ComputePropagationRate(traj)

	switch {
	case rate > 0.5:
		bonus := math.Min(rate*0.15, 0.1)
		return math.Min(score+bonus, 1.0)
	case rate < 0.2 && traj != nil && len(traj.Experiences) >= 3:
		penalty := 0.15 * (1.0 - rate)
		return math.Max(score-penalty, 0.0)
	}
	return score
}
