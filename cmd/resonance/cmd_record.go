// Package main implements the resonance CLI.
//
// This file provides the commands that feed evidence into the pipeline:
// recording experiences, attaching follow-ups, and submitting artifacts.
package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"resonance/internal/types"
)

var (
	// record flags
	recordRating  float64
	recordContext string

	// follow-up flags
	fuCreated   bool
	fuCreation  string
	fuMagnitude float64
	fuShared    bool
	fuInspired  bool
	fuContent   string

	// artifact flags
	artifactClaim    string
	artifactPlatform string
)

// recordCmd records an experience and prints its assessment
var recordCmd = &cobra.Command{
	Use:   "record [user] [description...]",
	Short: "Record an experience and assess it",
	Long: `Records an experience with the user's own 0-1 rating and runs the full
assessment over it. A first experience always comes back pending: the
trajectory vector forms from follow-up evidence, not from the description.

Example:
  resonance record alice "played chess with my daughter" --rating 0.8`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRecord,
}

// followUpCmd attaches follow-up evidence to an earlier experience
var followUpCmd = &cobra.Command{
	Use:   "follow-up [user] [experience-id]",
	Short: "Attach follow-up evidence to an experience",
	Long: `Records what happened after an experience: whether the user created
something (and how substantial it was), shared or taught it, or was
inspired to further action. Each follow-up re-scores the experience and
moves the user's trajectory vector.

Magnitude grades the creation: 0.25 started, 0.5 draft, 0.75 substantial,
1.0 shipped.

Example:
  resonance follow-up alice 3f9d2a8c1b04 --created --magnitude 0.75 \
    --creation "wrote an opening guide" --shared`,
	Args: cobra.ExactArgs(2),
	RunE: runFollowUp,
}

// artifactCmd submits a public URL as creation evidence
var artifactCmd = &cobra.Command{
	Use:   "artifact [user] [experience-id] [url]",
	Short: "Submit a public artifact URL as creation evidence",
	Long: `Submits a URL the user claims as output from an experience. The web
layer fetches it and checks accessibility, substance, timestamp
plausibility, and relevance to the original description. A verified
artifact marks the experience as propagated.

Requires web access (web.enabled in config; an Anthropic API key switches
verification to the agent-backed evidence client).

Example:
  resonance artifact alice 3f9d2a8c1b04 https://blog.example.com/my-guide \
    --claim "the opening guide I wrote"`,
	Args: cobra.ExactArgs(3),
	RunE: runArtifact,
}

func init() {
	recordCmd.Flags().Float64Var(&recordRating, "rating", 0.5, "Self rating in [0, 1]")
	recordCmd.Flags().StringVar(&recordContext, "context", "", "Optional context for the experience")

	followUpCmd.Flags().BoolVar(&fuCreated, "created", false, "The user created something")
	followUpCmd.Flags().StringVar(&fuCreation, "creation", "", "What was created")
	followUpCmd.Flags().Float64Var(&fuMagnitude, "magnitude", 0, "How substantial the creation was, in [0, 1]")
	followUpCmd.Flags().BoolVar(&fuShared, "shared", false, "The user shared or taught it")
	followUpCmd.Flags().BoolVar(&fuInspired, "inspired", false, "It inspired further action")
	followUpCmd.Flags().StringVar(&fuContent, "content", "", "Free-text account of what happened")

	artifactCmd.Flags().StringVar(&artifactClaim, "claim", "", "What the user says the URL shows")
	artifactCmd.Flags().StringVar(&artifactPlatform, "platform", "", "Platform hint (github, youtube, blog, ...)")
}

// runRecord records a new experience through the full pipeline
func runRecord(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	userID := args[0]
	description := strings.Join(args[1:], " ")
	logger.Debug("Recording experience",
		zap.String("user", userID),
		zap.String("description", description),
		zap.Float64("rating", recordRating))

	assessment, err := sys.ProcessExperience(ctx, userID, description, recordRating, recordContext)
	if err != nil {
		return fmt.Errorf("record failed: %w", err)
	}
	return printAssessment(assessment)
}

// runFollowUp attaches follow-up evidence and re-scores the experience
func runFollowUp(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	userID, experienceID := args[0], args[1]
	fu := types.NewFollowUp(experienceID, time.Now().UTC())
	fu.CreatedSomething = fuCreated
	fu.CreationDescription = fuCreation
	fu.CreationMagnitude = fuMagnitude
	fu.SharedOrTaught = fuShared
	fu.InspiredFurtherAction = fuInspired
	fu.Content = fuContent

	assessment, err := sys.ProcessFollowUp(ctx, userID, experienceID, fu)
	if err != nil {
		return fmt.Errorf("follow-up failed: %w", err)
	}
	if assessment == nil {
		fmt.Printf("No experience %s recorded for user %s\n", experienceID, userID)
		return nil
	}
	return printAssessment(assessment)
}

// runArtifact submits an artifact URL for verification
func runArtifact(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	userID, experienceID, url := args[0], args[1], args[2]
	logger.Debug("Submitting artifact",
		zap.String("user", userID),
		zap.String("experience", experienceID),
		zap.String("url", url))

	verification, err := sys.SubmitArtifact(ctx, userID, experienceID, url, artifactClaim, artifactPlatform)
	if err != nil {
		return fmt.Errorf("artifact submission failed: %w", err)
	}
	return printVerification(verification)
}

// printAssessment renders an assessment as text, or JSON with --json.
func printAssessment(a *types.Assessment) error {
	if jsonOut {
		return printJSON(a)
	}

	provisional := ""
	if a.IsProvisional {
		provisional = ", provisional"
	}
	fmt.Printf("Experience %s (user %s)\n", a.ExperienceID, a.UserID)
	fmt.Printf("  Position:  %s\n", a.MatrixPosition)
	fmt.Printf("  Intent:    %s (confidence %.2f%s)\n", a.Intent, a.IntentionConfidence, provisional)
	fmt.Printf("  Quality:   %.2f\n", a.QualityScore)
	fmt.Printf("  Resonance: %.2f\n", a.ResonanceScore)
	fmt.Printf("  Vector:    direction %+.2f, magnitude %.2f, confidence %.2f\n",
		a.Explanation.Vector.Direction, a.Explanation.Vector.Magnitude, a.Explanation.Vector.Confidence)
	fmt.Printf("  Arc:       %s\n", a.ArcTrend)
	if !a.Explanation.DriftCheck.Valid {
		fmt.Printf("  Drift:     %s\n", a.Explanation.DriftCheck.Reason)
	}
	if !a.Explanation.Health.Healthy {
		fmt.Printf("  Cycle:     %s\n", a.Explanation.Health.Reason)
	}

	if len(a.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range a.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
	if len(a.PendingQuestions) > 0 {
		fmt.Println("\nScheduled questions:")
		for _, q := range a.PendingQuestions {
			fmt.Printf("  - [%s] from %s: %s\n", q.Horizon, q.AskAfter.Format("2006-01-02"), q.Text)
		}
	}
	if a.Evidence != nil && len(a.Evidence.Hypotheses) > 0 {
		fmt.Println("\nEvidence-backed hypotheses:")
		for _, h := range a.Evidence.Hypotheses {
			fmt.Printf("  - %s (p=%.2f, %d sources)\n",
				h.TypicalTrajectory, h.ProbabilityEstimate, len(h.Sources))
		}
	}
	for _, note := range a.Explanation.Notes {
		fmt.Printf("\nNote: %s\n", note)
	}
	return nil
}

// printVerification renders an artifact verification result.
func printVerification(v *types.ArtifactVerification) error {
	if jsonOut {
		return printJSON(v)
	}

	fmt.Printf("Artifact %s: %s\n", v.ArtifactID, v.Status)
	fmt.Printf("  Accessible:  %s\n", yesNo(v.URLAccessible))
	fmt.Printf("  Substantive: %s\n", yesNo(v.ContentSubstantive))
	fmt.Printf("  Plausible:   %s\n", yesNo(v.TimestampPlausible))
	fmt.Printf("  Relevance:   %.2f\n", v.RelevanceScore)
	if v.ContentSummary != "" {
		fmt.Printf("  Summary:     %s\n", v.ContentSummary)
	}
	if v.Notes != "" {
		fmt.Printf("  Notes:       %s\n", v.Notes)
	}
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
