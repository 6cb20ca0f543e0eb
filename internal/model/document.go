package model

import (
	"slices"
	"sort"
)

// Frequency describes when a chore is expected to be done.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyAsAssigned Frequency = "as-assigned"
	FrequencyOneOff     Frequency = "one-off"

	FrequencySunday    Frequency = "sunday"
	FrequencyMonday    Frequency = "monday"
	FrequencyTuesday   Frequency = "tuesday"
	FrequencyWednesday Frequency = "wednesday"
	FrequencyThursday  Frequency = "thursday"
	FrequencyFriday    Frequency = "friday"
	FrequencySaturday  Frequency = "saturday"
)

// Document is the entire persisted state. It is stored as a single JSON
// record, so the field names match the record written by the web client.
type Document struct {
	Profiles         map[string]Profile            `json:"profiles"`
	StandingChores   []ChoreDefinition             `json:"standingChores"`
	RotatingChores   map[string][]ChoreDefinition  `json:"rotatingChores"`
	ChoreLog         map[string][]CompletionRecord `json:"choreLog"`
	PointAdjustments map[string][]AdjustmentRecord `json:"pointAdjustments"`
	PrizeWheelItems  []string                      `json:"prizeWheelItems"`
	WeekStart        string                        `json:"weekStart"`
	PIN              string                        `json:"pin,omitempty"`
}

type Profile struct {
	Name           string  `json:"name"`
	Avatar         string  `json:"avatar"`
	Color          string  `json:"color"`
	Points         int     `json:"points"`
	WheelPrize     *string `json:"wheelPrize"`
	BaselineEarned bool    `json:"baselineEarned"`
	HasSpun        bool    `json:"hasSpun"`
}

type ChoreDefinition struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Points    int       `json:"points"`
	Frequency Frequency `json:"frequency"`
	Icon      string    `json:"icon"`
}

// CompletionRecord is one check-off of a chore. Points is a snapshot of the
// chore's value when it was checked off.
type CompletionRecord struct {
	ChoreID  string `json:"choreId"`
	Date     string `json:"date"`
	Done     bool   `json:"done"`
	Verified bool   `json:"verified"`
	Points   int    `json:"points"`
}

// Pending reports whether the record is waiting for a parent.
func (c CompletionRecord) Pending() bool {
	return c.Done && !c.Verified
}

type AdjustmentRecord struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
	Date   string `json:"date"`
}

// KidIDs returns the profile keys in a stable order: the default kids
// first, then any others alphabetically.
func (d Document) KidIDs() []string {
	ids := make([]string, 0, len(d.Profiles))
	for _, id := range DefaultKidOrder {
		if _, ok := d.Profiles[id]; ok {
			ids = append(ids, id)
		}
	}
	var extra []string
	for id := range d.Profiles {
		if !slices.Contains(DefaultKidOrder, id) {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...)
}

// Clone returns a deep copy. Every engine operation works on a clone so
// callers holding the previous document never observe a change.
func (d Document) Clone() Document {
	out := Document{
		WeekStart: d.WeekStart,
		PIN:       d.PIN,
	}
	if d.Profiles != nil {
		out.Profiles = make(map[string]Profile, len(d.Profiles))
		for k, p := range d.Profiles {
			if p.WheelPrize != nil {
				prize := *p.WheelPrize
				p.WheelPrize = &prize
			}
			out.Profiles[k] = p
		}
	}
	if d.StandingChores != nil {
		out.StandingChores = append([]ChoreDefinition{}, d.StandingChores...)
	}
	if d.RotatingChores != nil {
		out.RotatingChores = make(map[string][]ChoreDefinition, len(d.RotatingChores))
		for k, v := range d.RotatingChores {
			out.RotatingChores[k] = append([]ChoreDefinition{}, v...)
		}
	}
	if d.ChoreLog != nil {
		out.ChoreLog = make(map[string][]CompletionRecord, len(d.ChoreLog))
		for k, v := range d.ChoreLog {
			out.ChoreLog[k] = append([]CompletionRecord{}, v...)
		}
	}
	if d.PointAdjustments != nil {
		out.PointAdjustments = make(map[string][]AdjustmentRecord, len(d.PointAdjustments))
		for k, v := range d.PointAdjustments {
			out.PointAdjustments[k] = append([]AdjustmentRecord{}, v...)
		}
	}
	if d.PrizeWheelItems != nil {
		out.PrizeWheelItems = append([]string{}, d.PrizeWheelItems...)
	}
	return out
}
