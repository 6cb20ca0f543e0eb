package chore

import (
	"errors"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/dukerupert/chorequest/internal/model"
)

const (
	// Baseline is the weekly total that unlocks the screen-time reward.
	Baseline = 150
	// Stretch is the weekly total at which the wheel prize is earned.
	Stretch = 180
	// BaselineScreenMinutes is what reaching Baseline is worth.
	BaselineScreenMinutes = 45
)

// ErrNoPrizes is returned when the wheel has nothing on it.
var ErrNoPrizes = errors.New("prize wheel is empty")

// Event is a side signal produced by an engine operation.
type Event string

// EventBaselineEarned fires when a verification first lifts a kid to Baseline.
const EventBaselineEarned Event = "baseline_earned"

// newChoreID generates ids for parent-added chores.
var newChoreID = func() string {
	return "rot-" + uuid.NewString()
}

// ResolveWeek resets every weekly field when weekID differs from the
// document's week. It reports whether a reset happened.
func ResolveWeek(doc model.Document, weekID string) (model.Document, bool) {
	if doc.WeekStart == weekID {
		return doc, false
	}

	out := doc.Clone()
	out.WeekStart = weekID
	out.ChoreLog = make(map[string][]model.CompletionRecord, len(out.Profiles))
	out.PointAdjustments = make(map[string][]model.AdjustmentRecord, len(out.Profiles))
	out.RotatingChores = make(map[string][]model.ChoreDefinition, len(out.Profiles))
	for id, p := range out.Profiles {
		p.Points = 0
		p.WheelPrize = nil
		p.BaselineEarned = false
		p.HasSpun = false
		out.Profiles[id] = p

		out.ChoreLog[id] = []model.CompletionRecord{}
		out.PointAdjustments[id] = []model.AdjustmentRecord{}
		out.RotatingChores[id] = []model.ChoreDefinition{}
	}
	return out, true
}

// RecordCompletion appends a pending completion for today. Unknown kids,
// unknown chores and a second check-off of the same chore on the same day
// are all ignored.
func RecordCompletion(doc model.Document, kidID, choreID, today string) model.Document {
	if _, ok := doc.Profiles[kidID]; !ok {
		return doc
	}
	c, ok := Find(doc, kidID, choreID)
	if !ok {
		return doc
	}
	if _, live := findRecord(doc.ChoreLog[kidID], choreID, today); live {
		return doc
	}

	out := doc.Clone()
	ensureLog(&out)
	out.ChoreLog[kidID] = append(out.ChoreLog[kidID], model.CompletionRecord{
		ChoreID:  choreID,
		Date:     today,
		Done:     true,
		Verified: false,
		Points:   c.Points,
	})
	return out
}

// VerifyCompletion approves or rejects the pending record for
// (kid, chore, date). Rejection removes the record. The cached point total is
// refreshed and, the first time it reaches Baseline this week,
// EventBaselineEarned is returned.
func VerifyCompletion(doc model.Document, kidID, choreID, date string, approved bool) (model.Document, []Event) {
	profile, ok := doc.Profiles[kidID]
	if !ok {
		return doc, nil
	}
	idx := -1
	for i, rec := range doc.ChoreLog[kidID] {
		if rec.ChoreID == choreID && rec.Date == date && rec.Pending() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return doc, nil
	}

	out := doc.Clone()
	log := out.ChoreLog[kidID]
	if approved {
		log[idx].Verified = true
	} else {
		log = append(log[:idx], log[idx+1:]...)
	}
	out.ChoreLog[kidID] = log

	profile.Points = CurrentPoints(out, kidID)
	var events []Event
	if profile.Points >= Baseline && !profile.BaselineEarned {
		profile.BaselineEarned = true
		events = append(events, EventBaselineEarned)
	}
	out.Profiles[kidID] = profile
	return out, events
}

// AdjustPoints records a manual bonus (amount > 0) or deduction (amount < 0).
// Crossing Baseline here marks it earned without firing an event.
func AdjustPoints(doc model.Document, kidID string, amount int, reason, today string) model.Document {
	profile, ok := doc.Profiles[kidID]
	if !ok {
		return doc
	}

	out := doc.Clone()
	if out.PointAdjustments == nil {
		out.PointAdjustments = make(map[string][]model.AdjustmentRecord)
	}
	out.PointAdjustments[kidID] = append(out.PointAdjustments[kidID], model.AdjustmentRecord{
		Amount: amount,
		Reason: reason,
		Date:   today,
	})

	profile.Points = CurrentPoints(out, kidID)
	profile.BaselineEarned = profile.BaselineEarned || profile.Points >= Baseline
	out.Profiles[kidID] = profile
	return out
}

// AddRotatingChore gives a kid an extra chore for the rest of the week.
func AddRotatingChore(doc model.Document, kidID, name string, points int) model.Document {
	if _, ok := doc.Profiles[kidID]; !ok {
		return doc
	}

	out := doc.Clone()
	if out.RotatingChores == nil {
		out.RotatingChores = make(map[string][]model.ChoreDefinition)
	}
	out.RotatingChores[kidID] = append(out.RotatingChores[kidID], model.ChoreDefinition{
		ID:        newChoreID(),
		Name:      name,
		Points:    points,
		Frequency: model.FrequencyWeekly,
		Icon:      "⭐",
	})
	return out
}

// SpinWheel picks a prize uniformly at random. It does not look at hasSpun;
// callers gate on that before spinning.
func SpinWheel(doc model.Document, rng *rand.Rand) (string, error) {
	if len(doc.PrizeWheelItems) == 0 {
		return "", ErrNoPrizes
	}
	var i int
	if rng == nil {
		i = rand.IntN(len(doc.PrizeWheelItems))
	} else {
		i = rng.IntN(len(doc.PrizeWheelItems))
	}
	return doc.PrizeWheelItems[i], nil
}

// RecordWheelResult stores the week's prize and marks the kid as spun.
func RecordWheelResult(doc model.Document, kidID, prize string) model.Document {
	profile, ok := doc.Profiles[kidID]
	if !ok {
		return doc
	}
	out := doc.Clone()
	profile.WheelPrize = &prize
	profile.HasSpun = true
	out.Profiles[kidID] = profile
	return out
}

// CurrentPoints recomputes a kid's total from the log: verified completions
// plus adjustments, never below zero.
func CurrentPoints(doc model.Document, kidID string) int {
	total := 0
	for _, rec := range doc.ChoreLog[kidID] {
		if rec.Verified {
			total += rec.Points
		}
	}
	for _, adj := range doc.PointAdjustments[kidID] {
		total += adj.Amount
	}
	return max(total, 0)
}

func ensureLog(doc *model.Document) {
	if doc.ChoreLog == nil {
		doc.ChoreLog = make(map[string][]model.CompletionRecord)
	}
}

func findRecord(log []model.CompletionRecord, choreID, date string) (model.CompletionRecord, bool) {
	for _, rec := range log {
		if rec.ChoreID == choreID && rec.Date == date {
			return rec, true
		}
	}
	return model.CompletionRecord{}, false
}
