package safety

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resonance/internal/types"
	"resonance/internal/web"
)

// Verification thresholds. Substance over vanity: a thoughtful post with
// three readers carries as much weight as a viral one, so the checks look
// at content, never engagement metrics.
const (
	minSubstantiveWords = 50
	minUniqueWordRatio  = 0.20
	plausibilityWindow  = 365 * 24 * time.Hour
	minRelevanceOverlap = 0.10
	verifiedRelevance   = 0.30
)

// wordStripChars is trimmed from both ends of tokens before keyword
// comparison.
const wordStripChars = ".,!?;:\"'()[]"

// ArtifactVerifier checks externally hosted, independently timestamped
// artifacts that the user voluntarily presents as evidence of creation.
// The user presents, the system confirms; there is no monitoring or
// background scraping. Inaccessible URLs degrade to an "inaccessible"
// verification and the pipeline continues on its other defence layers.
type ArtifactVerifier struct {
	web web.Client
}

func NewArtifactVerifier(client web.Client) *ArtifactVerifier {
	return &ArtifactVerifier{web: client}
}

// Verify fetches the artifact URL and assesses accessibility, substance,
// timestamp plausibility, and relevance to the claimed experience.
func (v *ArtifactVerifier) Verify(ctx context.Context, artifact types.Artifact, exp *types.Experience) types.ArtifactVerification {
	page, err := v.web.FetchPage(ctx, artifact.URL)
	if err != nil {
		return types.ArtifactVerification{
			ArtifactID: artifact.ID,
			Status:     types.ArtifactInaccessible,
			Notes:      "Could not access URL: " + err.Error(),
		}
	}
	if !page.Accessible {
		reason := "unknown error"
		if page.StatusCode != 0 {
			reason = fmt.Sprintf("HTTP %d", page.StatusCode)
		}
		return types.ArtifactVerification{
			ArtifactID: artifact.ID,
			Status:     types.ArtifactInaccessible,
			Notes:      "Could not access URL: " + reason,
		}
	}

	wordCount := len(strings.Fields(page.ContentText))
	substantive := v.assessSubstance(page, wordCount)
	timestampOK := v.checkTimestamp(page, exp)
	relevance := v.estimateRelevance(page, exp, artifact.UserClaim)

	return types.ArtifactVerification{
		ArtifactID:         artifact.ID,
		URLAccessible:      true,
		ContentSummary:     summarize(page.ContentText),
		ContentSubstantive: substantive,
		TimestampPlausible: timestampOK,
		RelevanceScore:     relevance,
		VerifiedAt:         time.Now().UTC(),
		Status:             determineStatus(substantive, timestampOK, relevance),
		Notes:              buildNotes(page, wordCount, substantive, timestampOK, relevance),
	}
}

// VerifyBatch verifies multiple artifacts against the same experience.
func (v *ArtifactVerifier) VerifyBatch(ctx context.Context, artifacts []types.Artifact, exp *types.Experience) []types.ArtifactVerification {
	out := make([]types.ArtifactVerification, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, v.Verify(ctx, a, exp))
	}
	return out
}

// assessSubstance checks that the content is real creative output rather
// than a trivial one-liner or repetitive filler. Detecting generated slop
// outright is an open problem; the long arc is the primary defence, since
// sustained faking is exponentially harder than a one-off.
func (v *ArtifactVerifier) assessSubstance(page types.WebPage, wordCount int) bool {
	if wordCount < minSubstantiveWords {
		return false
	}
	words := strings.Fields(strings.ToLower(page.ContentText))
	unique := make(map[string]bool, len(words))
	for _, w := range words {
		unique[w] = true
	}
	return float64(len(unique))/float64(len(words)) >= minUniqueWordRatio
}

// checkTimestamp verifies the artifact's publication date sits within a
// plausible window of the experience it claims to evidence. A missing
// date gets benefit of the doubt; the notes record the limitation.
func (v *ArtifactVerifier) checkTimestamp(page types.WebPage, exp *types.Experience) bool {
	if page.PublishDate == nil {
		return true
	}
	delta := page.PublishDate.Sub(exp.Timestamp)
	if delta < 0 {
		delta = -delta
	}
	return delta <= plausibilityWindow
}

// estimateRelevance scores keyword overlap between the artifact content
// and the experience description plus the user's claim. Recall over the
// reference words, with a small bonus for title matches.
func (v *ArtifactVerifier) estimateRelevance(page types.WebPage, exp *types.Experience, claim string) float64 {
	reference := keywordSet(exp.Description, exp.Context, claim)
	if len(reference) == 0 {
		return 0.5
	}
	content := keywordSet(page.ContentText)
	if len(content) == 0 {
		return 0
	}

	overlap := 0
	for w := range reference {
		if content[w] {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}
	recall := float64(overlap) / float64(len(reference))

	title := keywordSet(page.Title)
	titleOverlap := 0
	for w := range reference {
		if title[w] {
			titleOverlap++
		}
	}
	bonus := float64(titleOverlap) * 0.05
	if bonus > 0.15 {
		bonus = 0.15
	}

	if score := recall + bonus; score < 1.0 {
		return score
	}
	return 1.0
}

func determineStatus(substantive, timestampOK bool, relevance float64) types.ArtifactStatus {
	if !substantive {
		return types.ArtifactUnverified
	}
	if relevance < minRelevanceOverlap {
		return types.ArtifactUnverified
	}
	if !timestampOK {
		return types.ArtifactSuspicious
	}
	if relevance >= verifiedRelevance {
		return types.ArtifactVerified
	}
	return types.ArtifactUnverified
}

func summarize(content string) string {
	words := strings.Fields(content)
	if len(words) <= 30 {
		return content
	}
	return strings.Join(words[:30], " ") + "..."
}

func buildNotes(page types.WebPage, wordCount int, substantive, timestampOK bool, relevance float64) string {
	parts := []string{
		fmt.Sprintf("Platform: %s.", page.Platform),
		fmt.Sprintf("Word count: %d.", wordCount),
	}
	if substantive {
		parts = append(parts, "Content is substantive.")
	} else {
		parts = append(parts, "Content does not meet minimum substance threshold.")
	}
	if page.PublishDate != nil {
		parts = append(parts, fmt.Sprintf("Published: %s.", page.PublishDate.Format("2006-01-02")))
		if !timestampOK {
			parts = append(parts, "WARNING: Publication date outside plausibility window.")
		}
	} else {
		parts = append(parts, "No publication date detected.")
	}
	parts = append(parts, fmt.Sprintf("Relevance to claim: %.0f%%.", relevance*100))
	return strings.Join(parts, " ")
}

// keywordSet lowercases, strips punctuation, and keeps words longer than
// two characters from all the given texts.
func keywordSet(texts ...string) map[string]bool {
	set := make(map[string]bool)
	for _, text := range texts {
		for _, w := range strings.Fields(text) {
			if len(w) <= 2 {
				continue
			}
			s := strings.ToLower(strings.Trim(w, wordStripChars))
			if s != "" {
				set[s] = true
			}
		}
	}
	return set
}
