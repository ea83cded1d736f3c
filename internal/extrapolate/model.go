// Package extrapolate searches public sources for documented evidence of
// where actions like the user's typically lead, and synthesises it into
// cited hypotheses.
//
// The model is not a judge. It plays the mentor: "Here is what the
// evidence shows. Most who did X ended up at Y, but some reached Z. Here
// is what distinguished them. What do you want to do?" Every hypothesis
// carries sources, notable exceptions, and an empowerment note, and the
// extrapolation is always about the ACTION and its outcomes, never about
// the type of person doing it.
package extrapolate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"resonance/internal/types"
	"resonance/internal/web"
)

const (
	maxHypotheses           = 3
	minResultsForHypothesis = 2
	resultsPerQuery         = 5
)

// creativeKeywords and consumptiveKeywords partition search results into
// thematic clusters.
var (
	creativeKeywords = []string{
		"career", "professional", "creative", "develop",
		"build", "create", "skill", "mastery", "success",
	}
	consumptiveKeywords = []string{
		"addiction", "waste", "decline", "negative",
		"harm", "risk", "concern", "problem",
	}
)

// fillerPrefixes are stripped from descriptions before building the
// action phrase.
var fillerPrefixes = []string{
	"i have been ", "i've been ", "i was ", "i am ",
	"i started ", "been ", "started ",
}

// Model generates evidence-based hypotheses about action trajectories
// from web search results.
type Model struct {
	web web.Client
	now func() time.Time
}

func NewModel(client web.Client) *Model {
	return &Model{web: client, now: time.Now}
}

// Hypothesise searches for public evidence about the experience's action
// pattern and returns up to three cited hypotheses. Search failures
// degrade the evidence rather than failing the call; with fewer than two
// usable results the evidence is empty with an explanatory note.
func (m *Model) Hypothesise(ctx context.Context, exp *types.Experience, traj *types.Trajectory) types.TrajectoryEvidence {
	queries := m.buildSearchQueries(exp)

	var mu sync.Mutex
	var allResults []types.SearchResult

	eg, egCtx := errgroup.WithContext(ctx)
	for _, query := range queries {
		query := query
		eg.Go(func() error {
			results, err := m.web.Search(egCtx, query, resultsPerQuery)
			if err != nil {
				// A failed query thins the evidence; the others
				// still count.
				return nil
			}
			mu.Lock()
			allResults = append(allResults, results...)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	if len(allResults) < minResultsForHypothesis {
		return types.TrajectoryEvidence{
			Activity:    exp.Description,
			SearchedAt:  m.now().UTC(),
			SourceCount: len(allResults),
			Note: "Insufficient public evidence found for this specific action pattern. " +
				"The system continues with other defence layers. " +
				"As more evidence becomes available, this will improve.",
		}
	}

	hypotheses := m.synthesiseHypotheses(exp, allResults, traj)
	return types.TrajectoryEvidence{
		Activity:    exp.Description,
		Hypotheses:  hypotheses,
		SearchedAt:  m.now().UTC(),
		SourceCount: len(allResults),
		Note:        buildEvidenceNote(len(allResults), len(hypotheses)),
	}
}

// buildSearchQueries casts a net of up to four queries around the action:
// outcome-focused, research-focused, growth-focused, and one combined
// with the experience context when present.
func (m *Model) buildSearchQueries(exp *types.Experience) []string {
	desc := strings.TrimSpace(exp.Description)
	if desc == "" {
		return nil
	}
	action := extractActionPhrase(desc)

	queries := []string{
		action + " long term outcomes",
		action + " career development research",
		action + " creative results examples",
	}
	if exp.Context != "" {
		queries = append(queries, fmt.Sprintf("%s %s outcomes", action, exp.Context))
	}
	if len(queries) > 4 {
		queries = queries[:4]
	}
	return queries
}

// extractActionPhrase reduces a description to its core action: filler
// prefix stripped, first eight words.
func extractActionPhrase(description string) string {
	lower := strings.ToLower(description)
	for _, prefix := range fillerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			description = description[len(prefix):]
			break
		}
	}
	words := strings.Fields(description)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}

func (m *Model) synthesiseHypotheses(exp *types.Experience, results []types.SearchResult, traj *types.Trajectory) []types.Hypothesis {
	// Deduplicate by URL, preserving order.
	seen := make(map[string]bool)
	var unique []types.SearchResult
	for _, r := range results {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		unique = append(unique, r)
	}
	if len(unique) == 0 {
		return nil
	}

	// A result can land in both clusters; neutral means neither.
	var creative, consumptive, neutral []types.SearchResult
	for _, r := range unique {
		text := strings.ToLower(r.Title + r.Snippet)
		isCreative := containsAny(text, creativeKeywords)
		isConsumptive := containsAny(text, consumptiveKeywords)
		if isCreative {
			creative = append(creative, r)
		}
		if isConsumptive {
			consumptive = append(consumptive, r)
		}
		if !isCreative && !isConsumptive {
			neutral = append(neutral, r)
		}
	}

	action := extractActionPhrase(exp.Description)
	var hypotheses []types.Hypothesis

	// Hypothesis 1: the typical/majority outcome.
	if len(consumptive)+len(neutral) > 0 {
		majority := append(append([]types.SearchResult(nil), consumptive...), neutral...)
		if len(majority) > 5 {
			majority = majority[:5]
		}
		hypotheses = append(hypotheses, types.Hypothesis{
			ActionPattern: action,
			TypicalTrajectory: fmt.Sprintf(
				"For most people, %s remains a consumptive activity, enjoyed but not "+
					"leveraged into creation or skill development.", action),
			ProbabilityEstimate: 0.6,
			DistinguishingFactors: []string{
				"Intentional practice vs. passive consumption",
				"Setting time boundaries and creative goals",
				"Seeking community of practitioners, not just consumers",
				"Documenting and sharing the experience",
			},
			NotableExceptions: []string{
				"Many professionals in creative fields trace their passion to an early " +
					"consumptive phase that sparked curiosity.",
			},
			Sources: sourceURLs(majority),
			EmpowermentNote: fmt.Sprintf(
				"This is the statistical baseline, not your destiny. The distinguishing "+
					"factors above are actionable. If %s sparks something in you, lean "+
					"into the creative impulse; that's the vector that matters.", action),
			Confidence: hypothesisConfidence(len(majority)),
		})
	}

	// Hypothesis 2: the creative/growth outcome.
	if len(creative) > 0 {
		capped := creative
		if len(capped) > 5 {
			capped = capped[:5]
		}
		hypotheses = append(hypotheses, types.Hypothesis{
			ActionPattern: action,
			TypicalTrajectory: fmt.Sprintf(
				"A meaningful minority leverage %s into creative output, skill "+
					"development, or career growth.", action),
			ProbabilityEstimate: 0.25,
			DistinguishingFactors: []string{
				"Active engagement: analysing, not just consuming",
				"Creating derivative or original work",
				"Teaching or sharing insights with others",
				"Connecting the activity to broader goals",
			},
			NotableExceptions: []string{
				"Some of the most successful creators in this space had unconventional " +
					"paths that wouldn't have been predicted by early patterns.",
			},
			Sources: sourceURLs(capped),
			EmpowermentNote: "You don't need to fit a pattern. The evidence shows that the " +
				"transition from consumer to creator often starts with a single " +
				"intentional act. What could you create from this experience?",
			Confidence: hypothesisConfidence(len(creative)),
		})
	}

	// Hypothesis 3: trajectory-informed, when the user has history.
	if traj != nil && len(traj.Experiences) >= 3 && traj.CurrentVector != nil {
		direction := traj.CurrentVector.Direction
		var trend, note string
		switch {
		case direction > 0.2:
			trend = "creative"
			note = "Your trajectory shows a creative trend. Based on your pattern of " +
				"turning experiences into creation, you're more likely than average " +
				"to leverage this productively."
		case direction < -0.2:
			trend = "consumptive"
			note = "Your recent trajectory leans consumptive. This isn't a judgment; " +
				"it's an observation. Small creative acts can shift the vector. " +
				"What's one thing you could make from this experience?"
		default:
			trend = "mixed"
			note = "Your trajectory is balanced. You have creative and consumptive " +
				"phases. The evidence suggests that intentionally choosing to create " +
				"after consuming is the key inflection point."
		}

		confidence := traj.CurrentVector.Confidence
		if confidence > 0.6 {
			confidence = 0.6
		}
		hypotheses = append(hypotheses, types.Hypothesis{
			ActionPattern: action,
			TypicalTrajectory: fmt.Sprintf(
				"Based on your personal trajectory (%s trend), combined with public "+
					"evidence about %s.", trend, action),
			ProbabilityEstimate: 0, // personalised, not a probability
			DistinguishingFactors: []string{
				"Your own creation rate and propagation history",
				"Whether this specific experience leads to follow-up action",
				"The compounding direction of your vector over time",
			},
			NotableExceptions: []string{
				"Trajectories can change at any point. A single powerful experience " +
					"can redirect the entire vector.",
			},
			EmpowermentNote: note,
			Confidence:      confidence,
		})
	}

	if len(hypotheses) > maxHypotheses {
		hypotheses = hypotheses[:maxHypotheses]
	}
	return hypotheses
}

func buildEvidenceNote(totalSources, numHypotheses int) string {
	if totalSources == 0 {
		return "No public evidence found. The system operates with lower confidence " +
			"on this action pattern."
	}
	if totalSources < 5 {
		return fmt.Sprintf(
			"Limited evidence (%d sources). Hypotheses are directional, not definitive. "+
				"More evidence will improve accuracy over time.", totalSources)
	}
	return fmt.Sprintf(
		"Found %d relevant sources, generating %d hypothesis(es). All hypotheses are "+
			"probabilistic, not deterministic. You are not a statistic; the "+
			"distinguishing factors matter more than the base rates.",
		totalSources, numHypotheses)
}

func hypothesisConfidence(sources int) float64 {
	c := 0.3 + float64(sources)*0.1
	if c > 0.7 {
		return 0.7
	}
	return c
}

func sourceURLs(results []types.SearchResult) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	return urls
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
