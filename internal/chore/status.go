package chore

import (
	"time"

	"github.com/dukerupert/chorequest/internal/calendar"
	"github.com/dukerupert/chorequest/internal/model"
)

// Status is how far a chore got on one day.
type Status string

const (
	StatusTodo     Status = "todo"
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
)

// ChoreWithStatus is a chore as a kid's screen shows it today.
type ChoreWithStatus struct {
	model.ChoreDefinition
	Status   Status `json:"status"`
	DueToday bool   `json:"dueToday"`
}

var weekdayFrequency = map[model.Frequency]time.Weekday{
	model.FrequencySunday:    time.Sunday,
	model.FrequencyMonday:    time.Monday,
	model.FrequencyTuesday:   time.Tuesday,
	model.FrequencyWednesday: time.Wednesday,
	model.FrequencyThursday:  time.Thursday,
	model.FrequencyFriday:    time.Friday,
	model.FrequencySaturday:  time.Saturday,
}

// IsDueOn reports whether a chore is expected on the given weekday.
// Weekday chores are due only on their day; everything else is due any day
// of the week.
func IsDueOn(c model.ChoreDefinition, day time.Weekday) bool {
	if wd, ok := weekdayFrequency[c.Frequency]; ok {
		return wd == day
	}
	switch c.Frequency {
	case model.FrequencyDaily, model.FrequencyWeekly, model.FrequencyAsAssigned, model.FrequencyOneOff:
		return true
	}
	return false
}

// Chores returns the standing catalog followed by the kid's rotating chores.
func Chores(doc model.Document, kidID string) []model.ChoreDefinition {
	all := make([]model.ChoreDefinition, 0, len(doc.StandingChores)+len(doc.RotatingChores[kidID]))
	all = append(all, doc.StandingChores...)
	return append(all, doc.RotatingChores[kidID]...)
}

// Find looks a chore up among the chores available to the kid.
func Find(doc model.Document, kidID, choreID string) (model.ChoreDefinition, bool) {
	for _, c := range Chores(doc, kidID) {
		if c.ID == choreID {
			return c, true
		}
	}
	return model.ChoreDefinition{}, false
}

// ComputeStatus reports how far a chore got on the given day.
func ComputeStatus(doc model.Document, kidID, choreID, today string) Status {
	rec, ok := findRecord(doc.ChoreLog[kidID], choreID, today)
	switch {
	case !ok:
		return StatusTodo
	case rec.Verified:
		return StatusVerified
	case rec.Done:
		return StatusPending
	}
	return StatusTodo
}

// WithStatus lists the kid's chores with today's status attached.
func WithStatus(doc model.Document, kidID string, now time.Time) []ChoreWithStatus {
	today := calendar.Today(now)
	chores := Chores(doc, kidID)
	out := make([]ChoreWithStatus, 0, len(chores))
	for _, c := range chores {
		out = append(out, ChoreWithStatus{
			ChoreDefinition: c,
			Status:          ComputeStatus(doc, kidID, c.ID, today),
			DueToday:        IsDueOn(c, calendar.DayOfWeek(now)),
		})
	}
	return out
}

// Pending returns the kid's completions still waiting for a parent.
func Pending(doc model.Document, kidID string) []model.CompletionRecord {
	var out []model.CompletionRecord
	for _, rec := range doc.ChoreLog[kidID] {
		if rec.Pending() {
			out = append(out, rec)
		}
	}
	return out
}

// IsBaseline reports whether points unlock the screen-time reward.
func IsBaseline(points int) bool { return points >= Baseline }

// IsStretch is the derived "prize earned" condition. It is never stored.
func IsStretch(points int) bool { return points >= Stretch }

// PointsToBaseline is how many more points reach Baseline, or zero.
func PointsToBaseline(points int) int { return max(Baseline-points, 0) }

// PointsToStretch is how many more points reach Stretch, or zero.
func PointsToStretch(points int) int { return max(Stretch-points, 0) }
