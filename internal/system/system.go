// Package system wires the full pipeline behind three entry points:
// record an experience, record a follow-up, submit an artifact. Every
// entry point returns a complete assessment so callers never reach into
// individual layers.
package system

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"resonance/internal/intent"
	"resonance/internal/metrics"
	"resonance/internal/propagation"
	"resonance/internal/quality"
	"resonance/internal/question"
	"resonance/internal/resonance"
	"resonance/internal/safety"
	"resonance/internal/store"
	"resonance/internal/temporal"
	"resonance/internal/types"
	"resonance/internal/vector"
	"resonance/internal/web"
)

// lockShards bounds lock memory while letting unrelated users proceed in
// parallel. Same-user calls always hash to the same shard.
const lockShards = 32

// System is the orchestrator. It owns every pipeline layer and the
// pending-question queue; concurrent calls for different users run in
// parallel while calls for the same user serialize.
type System struct {
	store  store.Store
	web    web.Client
	logger *zap.Logger
	stats  *metrics.Metrics
	now    func() time.Time

	vectors     *vector.Tracker
	classifier  *intent.Classifier
	quality     *quality.Assessor
	resonance   *resonance.Tracker
	validator   *resonance.Validator
	temporal    *temporal.Evaluator
	propagation *propagation.Tracker
	questions   *question.Engine
	anchor      *safety.OuroborosAnchor
	external    *safety.ExternalValidator

	locks [lockShards]sync.Mutex

	pendingMu sync.Mutex
	pending   []types.PendingQuestion
}

// Option configures a System before its layers are wired.
type Option func(*System)

// WithStore persists trajectories through s and survives restarts.
func WithStore(s store.Store) Option {
	return func(sys *System) { sys.store = s }
}

// WithWebClient enables the web-dependent defence layers: artifact
// verification and evidence-based extrapolation.
func WithWebClient(c web.Client) Option {
	return func(sys *System) { sys.web = c }
}

// WithLogger replaces the default no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(sys *System) { sys.logger = l }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(sys *System) { sys.stats = m }
}

// WithClock overrides the time source. Tests use it to walk experiences
// across horizons.
func WithClock(now func() time.Time) Option {
	return func(sys *System) { sys.now = now }
}

// New builds a System. With no options it runs fully in memory with no
// web access: every layer still answers, at reduced confidence.
func New(opts ...Option) *System {
	sys := &System{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(sys)
	}

	sys.vectors = vector.NewTracker(sys.store)
	sys.classifier = intent.NewClassifier()
	sys.quality = quality.NewAssessor()
	sys.resonance = resonance.NewTracker()
	sys.validator = resonance.NewValidator()
	sys.temporal = temporal.NewEvaluator()
	sys.propagation = propagation.NewTracker()
	sys.questions = question.NewEngine()
	sys.anchor = safety.NewOuroborosAnchor()
	sys.external = safety.NewExternalValidator(sys.web)
	return sys
}

// HasWebAccess reports whether the web-dependent defence layers are live.
func (s *System) HasWebAccess() bool {
	return s.external.HasWebAccess()
}

// ProcessExperience records a new experience and runs the full pipeline
// over it: quality, resonance, intent, temporal horizons, validation,
// matrix position, safety checks, scheduled questions, and, when a web
// client is configured, external evidence.
func (s *System) ProcessExperience(ctx context.Context, userID, description string, rating float64, contextInfo string) (*types.Assessment, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id must not be empty")
	}
	if rating < 0 || rating > 1 {
		return nil, fmt.Errorf("self rating %.2f outside [0, 1]", rating)
	}

	started := s.now()
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	prev := s.vectors.CloneTrajectory(userID)
	exp, err := s.vectors.RecordExperience(userID, description, contextInfo, rating, started)
	if err != nil {
		s.vectors.RestoreTrajectory(userID, prev)
		return nil, fmt.Errorf("record experience: %w", err)
	}
	traj := s.vectors.GetTrajectory(userID)

	ev := s.runPipeline(exp, traj)

	qs := s.questions.GenerateQuestions(exp, traj)
	s.pendingMu.Lock()
	s.pending = append(s.pending, qs...)
	s.pendingMu.Unlock()

	assessment := s.buildAssessment(exp, traj, ev, qs)

	if s.external.HasWebAccess() {
		evidence := s.external.Extrapolate(ctx, exp, traj)
		assessment.Evidence = &evidence
		assessment.EvidenceQuality = s.external.AssessExternalQuality(ctx, exp)
		assessment.VectorProbability = s.external.AssessVectorProbability(ctx, exp)
	}

	if err := s.vectors.Persist(userID); err != nil {
		s.vectors.RestoreTrajectory(userID, prev)
		return nil, fmt.Errorf("persist trajectory: %w", err)
	}

	s.stats.ObserveAssessment(string(exp.ProvisionalIntent), s.now().Sub(started).Seconds())
	s.stats.ObserveQuestions(len(qs))
	s.logger.Info("experience assessed",
		zap.String("user_id", userID),
		zap.String("experience_id", exp.ID),
		zap.String("intent", string(exp.ProvisionalIntent)),
		zap.Float64("quality", exp.QualityScore),
		zap.Float64("resonance", exp.ResonanceScore),
		zap.String("matrix", exp.MatrixPosition))
	return assessment, nil
}

// ProcessFollowUp attaches later evidence to an experience and reruns the
// pipeline so the classification evolves. Returns (nil, nil) when the
// user or experience is unknown.
func (s *System) ProcessFollowUp(ctx context.Context, userID, experienceID string, fu types.FollowUp) (*types.Assessment, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id must not be empty")
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.vectors.EnsureLoaded(userID); err != nil {
		return nil, fmt.Errorf("load trajectory: %w", err)
	}
	prev := s.vectors.CloneTrajectory(userID)

	if fu.Timestamp.IsZero() {
		fu.Timestamp = s.now()
	}
	exp, err := s.vectors.RecordFollowUp(userID, experienceID, fu)
	if err != nil {
		s.vectors.RestoreTrajectory(userID, prev)
		return nil, fmt.Errorf("record follow-up: %w", err)
	}
	if exp == nil {
		return nil, nil
	}
	traj := s.vectors.GetTrajectory(userID)

	if fu.CreatedSomething {
		s.propagation.RecordCreationEvent(userID, fu.CreationDescription, experienceID, fu.Timestamp)
		traj.PropagationRate = s.propagation.ComputePropagationRate(traj)
	}

	ev := s.runPipeline(exp, traj)
	assessment := s.buildAssessment(exp, traj, ev, []types.PendingQuestion{})

	if err := s.vectors.Persist(userID); err != nil {
		s.vectors.RestoreTrajectory(userID, prev)
		return nil, fmt.Errorf("persist trajectory: %w", err)
	}

	s.stats.ObserveFollowUp()
	s.logger.Info("follow-up recorded",
		zap.String("user_id", userID),
		zap.String("experience_id", experienceID),
		zap.Bool("created_something", fu.CreatedSomething),
		zap.String("intent", string(exp.ProvisionalIntent)),
		zap.Float64("confidence", exp.IntentionConfidence))
	return assessment, nil
}

// SubmitArtifact verifies a URL the user claims as creative output from an
// experience. A verified artifact is the strongest propagation evidence:
// it marks the experience propagated and records a creation event.
func (s *System) SubmitArtifact(ctx context.Context, userID, experienceID, url, claim, platform string) (*types.ArtifactVerification, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id must not be empty")
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	traj, err := s.vectors.EnsureLoaded(userID)
	if err != nil {
		return nil, fmt.Errorf("load trajectory: %w", err)
	}
	if traj == nil {
		return &types.ArtifactVerification{
			Status: types.ArtifactInaccessible,
			Notes:  "User has no recorded experiences.",
		}, nil
	}
	exp := traj.FindExperience(experienceID)
	if exp == nil {
		return &types.ArtifactVerification{
			Status: types.ArtifactInaccessible,
			Notes:  fmt.Sprintf("Experience %s not found.", experienceID),
		}, nil
	}

	artifact := types.Artifact{
		ID:           types.NewID(),
		ExperienceID: experienceID,
		UserID:       userID,
		URL:          url,
		Platform:     platform,
		UserClaim:    claim,
		SubmittedAt:  s.now(),
	}

	prev := s.vectors.CloneTrajectory(userID)
	verification := s.external.VerifyArtifact(ctx, artifact, exp)

	if verification.Status == types.ArtifactVerified {
		exp.Propagated = true
		exp.PropagationEvents = append(exp.PropagationEvents,
			fmt.Sprintf("[Artifact verified] %s: %s", url, claim))

		desc := claim
		if desc == "" {
			desc = url
		}
		s.propagation.RecordCreationEvent(userID, desc, experienceID, s.now())
		traj.PropagationRate = s.propagation.ComputePropagationRate(traj)

		if err := s.vectors.Persist(userID); err != nil {
			s.vectors.RestoreTrajectory(userID, prev)
			return nil, fmt.Errorf("persist trajectory: %w", err)
		}
	}

	s.stats.ObserveArtifact(string(verification.Status))
	s.logger.Info("artifact submitted",
		zap.String("user_id", userID),
		zap.String("experience_id", experienceID),
		zap.String("url", url),
		zap.String("status", string(verification.Status)))
	return &verification, nil
}

// PredictResonance estimates how a proposed action would land for this
// user, from their own history of similar actions.
func (s *System) PredictResonance(userID, proposed string) float64 {
	return s.resonance.PredictResonance(userID, proposed)
}

// DueQuestions returns the user's questions whose ask-after time has
// arrived and which have not been asked yet.
func (s *System) DueQuestions(userID string) []types.PendingQuestion {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	var mine []types.PendingQuestion
	for _, q := range s.pending {
		if q.UserID == userID {
			mine = append(mine, q)
		}
	}
	return s.questions.GetDueQuestions(mine, s.now())
}

// MarkAsked marks a pending question as asked so it is not surfaced
// twice. Returns false when the question is unknown.
func (s *System) MarkAsked(questionID string) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	for i := range s.pending {
		if s.pending[i].ID == questionID {
			s.pending[i].Asked = true
			return true
		}
	}
	return false
}

// Trajectory returns a deep copy of the user's trajectory, loading it
// from storage on first access. Nil when the user is unknown.
func (s *System) Trajectory(userID string) (*types.Trajectory, error) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	traj, err := s.vectors.EnsureLoaded(userID)
	if err != nil {
		return nil, err
	}
	if traj == nil {
		return nil, nil
	}
	return s.vectors.CloneTrajectory(userID), nil
}

// Users lists known user ids, preferring the store so users from earlier
// runs appear too.
func (s *System) Users() ([]string, error) {
	if s.store != nil {
		return s.store.ListUserIDs()
	}
	return s.vectors.UserIDs(), nil
}

// Close releases the store, if any.
func (s *System) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// evaluation carries the pipeline intermediates the report needs beyond
// what lands on the experience itself.
type evaluation struct {
	raw          float64
	validated    float64
	driftValid   bool
	driftReason  string
	cycleHealthy bool
	cycleReason  string
}

// runPipeline mutates exp in place through every local layer, in evidence
// order: quality first, then raw resonance, intent, temporal horizons,
// validated resonance, matrix position, and the safety checks.
func (s *System) runPipeline(exp *types.Experience, traj *types.Trajectory) evaluation {
	score, dims := s.quality.AssessQuality(exp, traj)
	exp.QualityScore = score
	exp.QualityDims = dims

	raw := s.resonance.MeasureResonance(exp)
	exp.ResonanceScore = raw

	signal, confidence := s.classifier.Classify(exp, traj)
	exp.ProvisionalIntent = signal
	exp.IntentionConfidence = confidence

	exp.Horizons = s.temporal.Evaluate(exp, traj)

	validated := s.validator.Validate(exp, traj, exp.Horizons)
	exp.ResonanceScore = validated

	exp.MatrixPosition = matrixPosition(exp.QualityScore, signal)

	driftValid, driftReason := s.anchor.ValidateClassification(exp, traj)
	cycleHealthy, cycleReason := s.anchor.CheckOuroborosHealth(traj)

	return evaluation{
		raw:          raw,
		validated:    validated,
		driftValid:   driftValid,
		driftReason:  driftReason,
		cycleHealthy: cycleHealthy,
		cycleReason:  cycleReason,
	}
}

func (s *System) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockShards]
}
