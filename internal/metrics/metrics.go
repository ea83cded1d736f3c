// Package metrics exposes Prometheus instrumentation for the assessment
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors the system updates while processing
// experiences, follow-ups, and artifacts. A nil *Metrics is valid and
// turns every observation into a no-op, so callers never have to guard
// their instrumentation sites.
type Metrics struct {
	ExperiencesProcessed *prometheus.CounterVec
	FollowUpsRecorded    prometheus.Counter
	ArtifactsSubmitted   *prometheus.CounterVec
	QuestionsGenerated   prometheus.Counter
	AssessmentDuration   prometheus.Histogram
}

// New registers the collectors with reg and returns them. Pass
// prometheus.DefaultRegisterer for process-global collection; tests pass
// a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExperiencesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resonance",
			Name:      "experiences_processed_total",
			Help:      "Experiences run through the full assessment pipeline, by classified intent.",
		}, []string{"intent"}),
		FollowUpsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "resonance",
			Name:      "follow_ups_recorded_total",
			Help:      "Follow-up observations attached to existing experiences.",
		}),
		ArtifactsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resonance",
			Name:      "artifacts_submitted_total",
			Help:      "Artifact submissions, by verification status.",
		}, []string{"status"}),
		QuestionsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "resonance",
			Name:      "questions_generated_total",
			Help:      "Follow-up questions scheduled for later horizons.",
		}),
		AssessmentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "resonance",
			Name:      "assessment_duration_seconds",
			Help:      "Wall-clock time spent assessing a single experience.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObserveAssessment records one completed experience assessment.
func (m *Metrics) ObserveAssessment(intent string, seconds float64) {
	if m == nil {
		return
	}
	m.ExperiencesProcessed.WithLabelValues(intent).Inc()
	m.AssessmentDuration.Observe(seconds)
}

// ObserveFollowUp records one follow-up observation.
func (m *Metrics) ObserveFollowUp() {
	if m == nil {
		return
	}
	m.FollowUpsRecorded.Inc()
}

// ObserveArtifact records one artifact submission with its final status.
func (m *Metrics) ObserveArtifact(status string) {
	if m == nil {
		return
	}
	m.ArtifactsSubmitted.WithLabelValues(status).Inc()
}

// ObserveQuestions records n newly scheduled follow-up questions.
func (m *Metrics) ObserveQuestions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.QuestionsGenerated.Add(float64(n))
}
