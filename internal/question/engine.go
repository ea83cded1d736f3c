// Package question generates contextual follow-up questions instead of
// instant judgments.
//
// At t=0 the system's job is not to label but to observe and ask: not
// "this is consumptive" but "what happened next?" and "did anything come
// out of this?". Answers feed back into the vector tracker, raising
// confidence and revealing the true vector over time.
package question

import (
	"fmt"
	"time"

	"resonance/internal/types"
)

// Delays from the experience timestamp to each question's ask-after time.
const (
	shortTermDelay  = 24 * time.Hour
	mediumTermDelay = 14 * 24 * time.Hour
	longTermDelay   = 90 * 24 * time.Hour
)

const maxDescriptionLen = 80

// Engine generates follow-up questions at appropriate time horizons.
// Questions are gentle inquiries seeking to understand what happened
// after the experience and whether the resonance propagated into
// creative behaviour.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// GenerateQuestions builds the short, medium, and long horizon questions
// for a newly recorded experience, scheduled relative to its timestamp.
func (e *Engine) GenerateQuestions(exp *types.Experience, traj *types.Trajectory) []types.PendingQuestion {
	return []types.PendingQuestion{
		e.question(exp, shortTermText(exp, traj), types.HorizonShortTerm, shortTermDelay),
		e.question(exp, mediumTermText(exp), types.HorizonMediumTerm, mediumTermDelay),
		e.question(exp, longTermText(exp), types.HorizonLongTerm, longTermDelay),
	}
}

// GetDueQuestions returns the pending questions ready to ask at asOf.
func (e *Engine) GetDueQuestions(pending []types.PendingQuestion, asOf time.Time) []types.PendingQuestion {
	var due []types.PendingQuestion
	for _, q := range pending {
		if !q.Asked && !q.AskAfter.After(asOf) {
			due = append(due, q)
		}
	}
	return due
}

func (e *Engine) question(exp *types.Experience, text string, horizon types.TimeHorizon, delay time.Duration) types.PendingQuestion {
	return types.PendingQuestion{
		ID:           types.NewID(),
		ExperienceID: exp.ID,
		UserID:       exp.UserID,
		Text:         text,
		AskAfter:     exp.Timestamp.Add(delay),
		Horizon:      horizon,
	}
}

// shortTermText covers the immediate aftermath, a day or two later.
// Users with a pattern of creating after experiences get a more pointed
// question.
func shortTermText(exp *types.Experience, traj *types.Trajectory) string {
	desc := truncate(exp.Description, maxDescriptionLen)
	if len(traj.Experiences) > 0 && traj.CreationRate > 0.3 {
		return fmt.Sprintf(
			"You mentioned '%s' recently. Did it spark any new ideas or projects?", desc)
	}
	return fmt.Sprintf(
		"A couple of days ago you experienced '%s'. Has anything come out of that: "+
			"any thoughts, ideas, or things you've started doing differently?", desc)
}

// mediumTermText probes for pattern emergence around the two week mark.
func mediumTermText(exp *types.Experience) string {
	desc := truncate(exp.Description, maxDescriptionLen)
	if exp.SelfRating > 0.7 {
		return fmt.Sprintf(
			"A couple of weeks back you experienced '%s' and rated it highly. "+
				"Looking back, did that experience lead to anything: something you "+
				"created, shared, or a change in how you spend your time?", desc)
	}
	return fmt.Sprintf(
		"Reflecting on '%s' from a couple of weeks ago: did it influence anything "+
			"you've done since? Sometimes effects aren't obvious right away.", desc)
}

// longTermText is the retrospective where the long arc reveals itself.
func longTermText(exp *types.Experience) string {
	desc := truncate(exp.Description, maxDescriptionLen)
	return fmt.Sprintf(
		"A few months ago you experienced '%s'. Looking back now with the benefit "+
			"of time: did that experience contribute to anything meaningful in your "+
			"life? Any skills built, relationships deepened, or creative output that "+
			"traces back to it?", desc)
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen-3] + "..."
}
