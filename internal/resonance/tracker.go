// Package resonance captures the raw resonance signal of an experience and
// validates it against accumulated evidence. The tracker records what a
// person felt and did; the validator then calibrates that raw signal with
// temporal arc, propagation history, dependency patterns, and
// predictability checks.
//
// Prediction is strictly individual. Similarity means similar actions by the
// same person, never similar people, and no identity attributes are stored.
package resonance

import (
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat"

	"resonance/internal/types"
)

const (
	// Self-report alone cannot confirm genuine resonance, so at t=0 the
	// raw rating is capped.
	t0Ceiling = 0.60

	// Evidence weight grows with follow-up count but the self-report
	// always keeps at least a 30% share.
	maxEvidenceWeight = 0.70
)

// actionRecord is one observed action and its resonance outcome. It holds
// observable action data only.
type actionRecord struct {
	userID  string
	action  string
	context string
	score   float64
}

// Tracker measures raw resonance and maintains per-user action histories
// used for prediction. Safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	histories map[string][]actionRecord
}

// NewTracker returns an empty resonance tracker.
func NewTracker() *Tracker {
	return &Tracker{histories: make(map[string][]actionRecord)}
}

// MeasureResonance captures the raw resonance of an experience.
//
// At t=0 the self-report is the only signal and is capped. With follow-ups
// the score shifts toward the action rate: the fraction of responses that
// created, shared, or inspired. Rates, not counts, so depth beats reach.
// The result is recorded in the user's action history for later prediction.
func (t *Tracker) MeasureResonance(exp *types.Experience) float64 {
	raw := exp.SelfRating

	var score float64
	if len(exp.FollowUps) == 0 {
		score = math.Min(raw, t0Ceiling)
	} else {
		n := float64(len(exp.FollowUps))
		created, shared, inspired := 0.0, 0.0, 0.0
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
		}

		actionRate := 0.40*(created/n) + 0.30*(shared/n) + 0.30*(inspired/n)
		evidenceWeight := math.Min(n*0.15, maxEvidenceWeight)
		score = (1.0-evidenceWeight)*raw + evidenceWeight*actionRate
	}

	t.mu.Lock()
	t.histories[exp.UserID] = append(t.histories[exp.UserID], actionRecord{
		userID:  exp.UserID,
		action:  exp.Description,
		context: exp.Context,
		score:   score,
	})
	t.mu.Unlock()

	return clamp01(score)
}

// PredictResonance estimates the resonance of a proposed action from the
// user's OWN history of similar actions. Similar means word overlap between
// action descriptions. Returns 0.5 when no similar action exists.
func (t *Tracker) PredictResonance(userID, proposed string) float64 {
	proposedWords := wordSet(proposed)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var scores []float64
	for _, entry := range t.histories[userID] {
		if overlaps(proposedWords, wordSet(entry.action)) {
			scores = append(scores, entry.score)
		}
	}
	if len(scores) == 0 {
		return 0.5
	}
	return stat.Mean(scores, nil)
}

// HistoryLen reports how many actions have been recorded for the user.
func (t *Tracker) HistoryLen(userID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.histories[userID])
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		out[w] = struct{}{}
	}
	return out
}

func overlaps(a, b map[string]struct{}) bool {
	for w := range a {
		if _, ok := b[w]; ok {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
