package model

// DefaultPIN is the parent PIN on a fresh document.
const DefaultPIN = "1234"

// DefaultKidOrder is the display order of the built-in profiles.
var DefaultKidOrder = []string{"owen", "liam"}

// StandingChores returns the built-in chore catalog. It replaces whatever
// catalog a stored document carries on every load.
func StandingChores() []ChoreDefinition {
	return []ChoreDefinition{
		{ID: "dinner", Name: "Eat dinner properly", Points: 5, Frequency: FrequencyDaily, Icon: "🍽️"},
		{ID: "shoes", Name: "Shoes & backpacks away", Points: 5, Frequency: FrequencyDaily, Icon: "👟"},
		{ID: "room-tue", Name: "Clean room (Tuesday)", Points: 15, Frequency: FrequencyTuesday, Icon: "🧹"},
		{ID: "room-sat", Name: "Clean room (Saturday)", Points: 15, Frequency: FrequencySaturday, Icon: "🧹"},
		{ID: "doglong", Name: "Walk the dog (long)", Points: 10, Frequency: FrequencyAsAssigned, Icon: "🐕"},
		{ID: "dogshort", Name: "Walk the dog (short)", Points: 5, Frequency: FrequencyAsAssigned, Icon: "🐶"},
	}
}

// DefaultPrizes returns the starting prize wheel.
func DefaultPrizes() []string {
	return []string{
		"Minecoins",
		"Extra iPad time",
		"Skip dog walk next week",
		"Double piggy back ride day",
		"Game night decider",
	}
}

// DefaultDocument returns the first-run document. WeekStart is left empty;
// the caller stamps the current week.
func DefaultDocument() Document {
	return Document{
		Profiles: map[string]Profile{
			"owen": {Name: "Owen", Avatar: "🦁", Color: "#FF6B35"},
			"liam": {Name: "Liam", Avatar: "🐉", Color: "#4ECDC4"},
		},
		StandingChores:   StandingChores(),
		RotatingChores:   map[string][]ChoreDefinition{"owen": {}, "liam": {}},
		ChoreLog:         map[string][]CompletionRecord{"owen": {}, "liam": {}},
		PointAdjustments: map[string][]AdjustmentRecord{"owen": {}, "liam": {}},
		PrizeWheelItems:  DefaultPrizes(),
		PIN:              DefaultPIN,
	}
}
