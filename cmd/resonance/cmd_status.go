// Package main implements the resonance CLI.
//
// This file provides the read-side commands: trajectory status, the user
// list, the due-question queue, and resonance prediction.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// statusCmd shows one user's trajectory
var statusCmd = &cobra.Command{
	Use:   "status [user]",
	Short: "Show a user's trajectory",
	Long: `Shows the aggregate trajectory for a user: experience counts, creation
and propagation rates, the current vector, and every recorded experience
with its latest scores.`,
	Args: cobra.ExactArgs(1),
	RunE: showStatus,
}

// usersCmd lists every user with a recorded trajectory
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users with recorded trajectories",
	RunE:  listUsers,
}

// questionsCmd groups the follow-up question queue operations
var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Follow-up question queue",
	Long: `Assessments schedule follow-up questions at growing delays after each
experience. The queue is polled: "due" lists the questions whose time has
come, "mark" records that one was asked so it is not listed again.`,
}

var questionsDueCmd = &cobra.Command{
	Use:   "due [user]",
	Short: "List questions due for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  listDueQuestions,
}

var questionsMarkCmd = &cobra.Command{
	Use:   "mark [question-id]",
	Short: "Mark a question as asked",
	Args:  cobra.ExactArgs(1),
	RunE:  markQuestionAsked,
}

// predictCmd predicts resonance for a proposed activity
var predictCmd = &cobra.Command{
	Use:   "predict [user] [description...]",
	Short: "Predict how a proposed activity would resonate",
	Long: `Predicts resonance for a proposed activity from the user's own scored
history. Unknown territory comes back neutral (0.50).`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPredict,
}

func init() {
	// Add subcommands
	questionsCmd.AddCommand(questionsDueCmd)
	questionsCmd.AddCommand(questionsMarkCmd)
}

// showStatus displays a user's trajectory tables
func showStatus(cmd *cobra.Command, args []string) error {
	userID := args[0]
	traj, err := sys.Trajectory(userID)
	if err != nil {
		return fmt.Errorf("load trajectory: %w", err)
	}
	if traj == nil {
		fmt.Printf("No experiences recorded for user %s\n", userID)
		return nil
	}
	if jsonOut {
		return printJSON(traj)
	}

	fmt.Printf("Trajectory for %s\n", userID)
	if sys.HasWebAccess() {
		fmt.Println("✓ Web access configured")
	} else {
		fmt.Println("✗ Web access not configured (artifact checks and evidence search unavailable)")
	}
	fmt.Println()

	followUps := 0
	propagated := 0
	for _, exp := range traj.Experiences {
		followUps += len(exp.FollowUps)
		if exp.Propagated {
			propagated++
		}
	}

	summary := tablewriter.NewWriter(os.Stdout)
	summary.SetHeader([]string{"Experiences", "Follow-ups", "Propagated", "Creation rate", "Propagation rate", "Compounding"})
	summary.Append([]string{
		strconv.Itoa(len(traj.Experiences)),
		strconv.Itoa(followUps),
		strconv.Itoa(propagated),
		fmt.Sprintf("%.2f", traj.CreationRate),
		fmt.Sprintf("%.2f", traj.PropagationRate),
		fmt.Sprintf("%+.2f", traj.CompoundingDirection),
	})
	summary.Render()

	if traj.CurrentVector != nil {
		fmt.Printf("\nCurrent vector: direction %+.2f, magnitude %.2f, confidence %.2f\n",
			traj.CurrentVector.Direction, traj.CurrentVector.Magnitude, traj.CurrentVector.Confidence)
	}
	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "When", "Description", "Intent", "Resonance", "Propagated"})
	for _, exp := range traj.Experiences {
		table.Append([]string{
			exp.ID,
			exp.Timestamp.Format("2006-01-02"),
			truncate(exp.Description, 40),
			string(exp.ProvisionalIntent),
			fmt.Sprintf("%.2f", exp.ResonanceScore),
			yesNo(exp.Propagated),
		})
	}
	table.Render()
	return nil
}

// listUsers displays every known user with headline aggregates
func listUsers(cmd *cobra.Command, args []string) error {
	users, err := sys.Users()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Println("No users recorded yet")
		return nil
	}
	if jsonOut {
		return printJSON(users)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User", "Experiences", "Creation rate", "Direction"})
	for _, userID := range users {
		traj, err := sys.Trajectory(userID)
		if err != nil || traj == nil {
			continue
		}
		direction := "unknown"
		if traj.CurrentVector != nil {
			direction = fmt.Sprintf("%+.2f", traj.CurrentVector.Direction)
		}
		table.Append([]string{
			userID,
			strconv.Itoa(len(traj.Experiences)),
			fmt.Sprintf("%.2f", traj.CreationRate),
			direction,
		})
	}
	table.Render()
	return nil
}

// listDueQuestions displays the questions whose ask-after time has passed
func listDueQuestions(cmd *cobra.Command, args []string) error {
	userID := args[0]
	due := sys.DueQuestions(userID)
	if len(due) == 0 {
		fmt.Printf("No questions due for user %s\n", userID)
		return nil
	}
	if jsonOut {
		return printJSON(due)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Horizon", "Due since", "Question"})
	for _, q := range due {
		table.Append([]string{
			q.ID,
			string(q.Horizon),
			q.AskAfter.Format("2006-01-02 15:04"),
			truncate(q.Text, 60),
		})
	}
	table.Render()
	return nil
}

// markQuestionAsked records that a pending question was asked
func markQuestionAsked(cmd *cobra.Command, args []string) error {
	questionID := args[0]
	if !sys.MarkAsked(questionID) {
		fmt.Printf("No pending question %s\n", questionID)
		return nil
	}
	fmt.Printf("Question %s marked as asked\n", questionID)
	return nil
}

// runPredict predicts resonance for a proposed activity
func runPredict(cmd *cobra.Command, args []string) error {
	userID := args[0]
	proposed := strings.Join(args[1:], " ")
	score := sys.PredictResonance(userID, proposed)
	fmt.Printf("Predicted resonance for %q: %.2f\n", proposed, score)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
