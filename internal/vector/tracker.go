// Package vector tracks per-user trajectories over time as vectors, not
// labels. No activity is inherently creative or consumptive: two people can
// play the same game for the same hours and at t=0 be indistinguishable.
// The difference is intent, revealed over time through accumulated evidence.
// The tracker never labels an activity; it reads what activities lead to.
package vector

import (
	"math"
	"sort"
	"sync"
	"time"

	"resonance/internal/store"
	"resonance/internal/types"
)

// Weights for follow-up signals when computing direction. The self-report
// is the weakest signal because it is the most gameable one.
const (
	creationWeight    = 0.40
	sharingWeight     = 0.25
	inspirationWeight = 0.20
	ratingWeight      = 0.10

	// Experiences older than this half-life contribute less to the aggregate.
	recencyHalfLifeDays = 90.0
)

// Tracker owns the per-user trajectories and the vector arithmetic over
// them. Confidence starts near zero at t=0 and grows with follow-up
// evidence. Optionally backed by a Store so trajectories survive restarts.
//
// Callers processing events for the same user must serialize themselves;
// the internal lock only protects the trajectory map.
type Tracker struct {
	mu           sync.RWMutex
	trajectories map[string]*types.Trajectory
	storage      store.Store
	now          func() time.Time
}

// NewTracker returns a tracker, optionally backed by persistent storage.
func NewTracker(storage store.Store) *Tracker {
	return &Tracker{
		trajectories: make(map[string]*types.Trajectory),
		storage:      storage,
		now:          time.Now,
	}
}

// RecordExperience records a new experience and returns it with a
// provisional vector. At t=0 with no history the reading is neutral with
// very low confidence. Prior history informs, but does not determine, the
// provisional reading.
func (t *Tracker) RecordExperience(userID, description, context string, rating float64, ts time.Time) (*types.Experience, error) {
	if ts.IsZero() {
		ts = t.now().UTC()
	}
	traj, err := t.getOrCreate(userID)
	if err != nil {
		return nil, err
	}

	exp := types.NewExperience(userID, description, context, rating, ts)

	// Provisional vector comes from history alone, never from the
	// activity's content.
	provisional := t.provisionalVector(traj, exp)
	exp.Vectors = append(exp.Vectors, provisional)
	exp.ProvisionalIntent = DirectionToSignal(provisional.Direction)
	exp.IntentionConfidence = provisional.Confidence

	traj.Experiences = append(traj.Experiences, exp)
	if err := t.updateTrajectoryVector(traj); err != nil {
		return exp, err
	}
	return exp, nil
}

// RecordFollowUp records what happened after an experience and updates its
// vector. This is the primary mechanism by which classification evolves:
// each follow-up raises confidence and may shift direction. Returns nil
// when the user or experience is unknown.
func (t *Tracker) RecordFollowUp(userID, experienceID string, fu types.FollowUp) (*types.Experience, error) {
	traj := t.GetTrajectory(userID)
	if traj == nil {
		return nil, nil
	}
	exp := traj.FindExperience(experienceID)
	if exp == nil {
		return nil, nil
	}

	fu.ExperienceID = experienceID
	exp.FollowUps = append(exp.FollowUps, fu)

	updated := t.recomputeExperienceVector(exp)
	exp.Vectors = append(exp.Vectors, updated)
	exp.ProvisionalIntent = DirectionToSignal(updated.Direction)
	exp.IntentionConfidence = updated.Confidence

	if fu.CreatedSomething || fu.SharedOrTaught {
		exp.Propagated = true
		if fu.CreationDescription != "" {
			exp.PropagationEvents = append(exp.PropagationEvents, fu.CreationDescription)
		}
	}

	if err := t.updateTrajectoryVector(traj); err != nil {
		return exp, err
	}
	return exp, nil
}

// GetTrajectory returns the live trajectory for a user, or nil.
func (t *Tracker) GetTrajectory(userID string) *types.Trajectory {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trajectories[userID]
}

// EnsureLoaded returns the user's trajectory, pulling it from storage on
// first access. Unlike RecordExperience it never creates an empty
// trajectory: a user with no history anywhere yields nil.
func (t *Tracker) EnsureLoaded(userID string) (*types.Trajectory, error) {
	if traj := t.GetTrajectory(userID); traj != nil {
		return traj, nil
	}
	if t.storage == nil {
		return nil, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if traj, ok := t.trajectories[userID]; ok {
		return traj, nil
	}
	loaded, err := t.storage.LoadTrajectory(userID)
	if err != nil {
		return nil, err
	}
	if loaded == nil {
		return nil, nil
	}
	t.trajectories[userID] = loaded
	return loaded, nil
}

// UserIDs returns the users with an in-memory trajectory, sorted.
func (t *Tracker) UserIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.trajectories))
	for id := range t.trajectories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ComputeVector computes the current aggregate vector from all available
// evidence. With no history it returns a zero-confidence snapshot.
func (t *Tracker) ComputeVector(userID string) types.VectorSnapshot {
	traj := t.GetTrajectory(userID)
	if traj == nil || len(traj.Experiences) == 0 {
		return types.VectorSnapshot{}
	}
	return t.aggregateVector(traj)
}

// ComputeCompoundingRate returns the first difference of the last two
// aggregate directions: positive means trending toward creative intent,
// negative toward consumptive, zero stable.
func (t *Tracker) ComputeCompoundingRate(userID string) float64 {
	traj := t.GetTrajectory(userID)
	if traj == nil || len(traj.VectorHistory) < 2 {
		return 0
	}
	n := len(traj.VectorHistory)
	return traj.VectorHistory[n-1].Direction - traj.VectorHistory[n-2].Direction
}

// CloneTrajectory returns a deep copy of the user's current in-memory
// trajectory, or nil. Callers use it to snapshot state before a mutation.
func (t *Tracker) CloneTrajectory(userID string) *types.Trajectory {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trajectories[userID].Clone()
}

// RestoreTrajectory replaces the in-memory trajectory for a user, removing
// it when traj is nil. Callers use it to roll back after a failed persist.
func (t *Tracker) RestoreTrajectory(userID string, traj *types.Trajectory) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if traj == nil {
		delete(t.trajectories, userID)
		return
	}
	t.trajectories[userID] = traj
}

// Persist saves the user's trajectory if a store is configured.
func (t *Tracker) Persist(userID string) error {
	traj := t.GetTrajectory(userID)
	if traj == nil || t.storage == nil {
		return nil
	}
	return t.storage.SaveTrajectory(traj)
}

// ========== Internal helpers ==========

func (t *Tracker) getOrCreate(userID string) (*types.Trajectory, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if traj, ok := t.trajectories[userID]; ok {
		return traj, nil
	}
	if t.storage != nil {
		loaded, err := t.storage.LoadTrajectory(userID)
		if err != nil {
			return nil, err
		}
		if loaded != nil {
			t.trajectories[userID] = loaded
			return loaded, nil
		}
	}
	traj := types.NewTrajectory(userID)
	t.trajectories[userID] = traj
	return traj, nil
}

// provisionalVector is the t=0 reading for a new experience. With no
// history: neutral direction, near-zero confidence. With history: the
// existing trajectory acts as a weak prior, dampened because the new
// experience hasn't proven anything yet.
func (t *Tracker) provisionalVector(traj *types.Trajectory, exp *types.Experience) types.VectorSnapshot {
	if len(traj.Experiences) == 0 {
		return types.VectorSnapshot{
			Timestamp:  exp.Timestamp,
			Direction:  0.0,
			Magnitude:  0.1,
			Confidence: 0.05,
			Horizon:    types.HorizonImmediate,
		}
	}
	current := t.aggregateVector(traj)
	return types.VectorSnapshot{
		Timestamp:  exp.Timestamp,
		Direction:  current.Direction * 0.3,
		Magnitude:  current.Magnitude * 0.3,
		Confidence: math.Min(current.Confidence*0.2, 0.25),
		Horizon:    types.HorizonImmediate,
	}
}

// recomputeExperienceVector recomputes one experience's vector from its
// follow-ups.
func (t *Tracker) recomputeExperienceVector(exp *types.Experience) types.VectorSnapshot {
	if len(exp.FollowUps) == 0 {
		if last := exp.LatestVector(); last != nil {
			return *last
		}
		return types.VectorSnapshot{Confidence: 0.05}
	}

	total := 0.0
	for _, fu := range exp.FollowUps {
		signal := 0.0
		if fu.CreatedSomething {
			signal += creationWeight * fu.EffectiveMagnitude()
		}
		if fu.SharedOrTaught {
			signal += sharingWeight
		}
		if fu.InspiredFurtherAction {
			signal += inspirationWeight
		}
		total += signal
	}
	avgCreation := total / float64(len(exp.FollowUps))

	// Scale to -1..+1 with a mild bias: absence of creative evidence leans
	// slightly consumptive, but "no visible creation" is not "consumptive
	// intent". Inspiration-only stays in the mixed zone.
	direction := clamp(avgCreation*2.0-0.2, -1, 1)

	// The self-rating nudges direction weakly.
	direction = clamp(direction+(exp.SelfRating-0.5)*ratingWeight, -1, 1)

	magnitude := math.Min(avgCreation+0.2, 1.0)
	confidence := math.Min(0.15+float64(len(exp.FollowUps))*0.15, 0.95)

	return types.VectorSnapshot{
		Timestamp:  t.now().UTC(),
		Direction:  direction,
		Magnitude:  magnitude,
		Confidence: confidence,
		Horizon:    inferHorizon(exp),
	}
}

// aggregateVector aggregates across all experiences with recency weighting.
// Each experience's latest snapshot is weighted by its age and its own
// confidence, so stale or weakly-evidenced readings fade.
func (t *Tracker) aggregateVector(traj *types.Trajectory) types.VectorSnapshot {
	now := t.now().UTC()
	var sumDir, sumMag, sumConf, totalWeight float64

	for _, exp := range traj.Experiences {
		latest := exp.LatestVector()
		if latest == nil {
			continue
		}
		ageDays := math.Max(now.Sub(exp.Timestamp).Seconds()/86400.0, 0.01)
		recency := math.Exp(-math.Ln2 * ageDays / recencyHalfLifeDays)
		w := recency * latest.Confidence
		sumDir += latest.Direction * w
		sumMag += latest.Magnitude * w
		sumConf += latest.Confidence * w
		totalWeight += w
	}

	if totalWeight < 1e-9 {
		return types.VectorSnapshot{}
	}
	return types.VectorSnapshot{
		Timestamp:  now,
		Direction:  clamp(sumDir/totalWeight, -1, 1),
		Magnitude:  clamp(sumMag/totalWeight, 0, 1),
		Confidence: clamp(sumConf/totalWeight, 0, 1),
	}
}

// updateTrajectoryVector refreshes the aggregate vector, the derived rates,
// and the append-only history, then persists if a store is configured.
func (t *Tracker) updateTrajectoryVector(traj *types.Trajectory) error {
	agg := t.aggregateVector(traj)
	traj.CurrentVector = &agg
	traj.VectorHistory = append(traj.VectorHistory, agg)

	if total := len(traj.Experiences); total > 0 {
		propagated := 0
		for _, e := range traj.Experiences {
			if e.Propagated {
				propagated++
			}
		}
		traj.CreationRate = float64(propagated) / float64(total)
	}

	if n := len(traj.VectorHistory); n >= 2 {
		traj.CompoundingDirection = traj.VectorHistory[n-1].Direction - traj.VectorHistory[n-2].Direction
	}

	if t.storage != nil {
		return t.storage.SaveTrajectory(traj)
	}
	return nil
}

// DirectionToSignal maps a continuous direction to a discrete intent
// inference.
func DirectionToSignal(direction float64) types.IntentSignal {
	switch {
	case direction > 0.2:
		return types.IntentCreative
	case direction < -0.2:
		return types.IntentConsumptive
	default:
		return types.IntentMixed
	}
}

// inferHorizon derives the evaluation horizon from follow-up timing.
func inferHorizon(exp *types.Experience) types.TimeHorizon {
	if len(exp.FollowUps) == 0 {
		return types.HorizonImmediate
	}
	latest := exp.FollowUps[0].Timestamp
	for _, fu := range exp.FollowUps[1:] {
		if fu.Timestamp.After(latest) {
			latest = fu.Timestamp
		}
	}
	delta := latest.Sub(exp.Timestamp)
	switch {
	case delta < 2*24*time.Hour:
		return types.HorizonShortTerm
	case delta < 4*7*24*time.Hour:
		return types.HorizonMediumTerm
	case delta < 180*24*time.Hour:
		return types.HorizonLongTerm
	default:
		return types.HorizonGenerational
	}
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
