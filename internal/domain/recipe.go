// Package domain defines the core types and interfaces for the chef assistant.
// All other packages depend on domain; domain depends on nothing.
package domain

import "time"

// Recipe is a generated, personalized recipe. The JSON tags match the
// object the text-generation service is asked to return.
type Recipe struct {
	Title        string   `json:"title"`
	CulturalNote string   `json:"cultural_note"`
	Ingredients  []string `json:"ingredients"`
	Steps        []Step   `json:"steps"`
	Tips         []string `json:"tips"`
}

// Step is a single cooking instruction, optionally carrying a timer.
type Step struct {
	Text         string `json:"text"`
	TimerSeconds int    `json:"timer_sec,omitempty"`
	TimerLabel   string `json:"timer_label,omitempty"`
}

// HasTimer reports whether the step asks for a timer.
func (s Step) HasTimer() bool {
	return s.TimerSeconds > 0
}

// Label returns the timer label, or "timer" when none was given.
func (s Step) Label() string {
	if s.TimerLabel == "" {
		return "timer"
	}
	return s.TimerLabel
}

// Timer is a scheduled wake-up tied to a recipe step. Timers are never
// deleted; Fired flips to true exactly once.
type Timer struct {
	ID     int64
	UserID string
	Label  string
	WakeAt time.Time
	Fired  bool
}

// Profile is the persisted view of a user.
type Profile struct {
	UserID      string
	Name        string
	Preferences *Preferences
	UpdatedAt   time.Time
}

// Feedback is a score (1-5) plus free text left after finishing a recipe.
type Feedback struct {
	UserID      string
	RecipeTitle string
	Score       int
	Comment     string
	CreatedAt   time.Time
}
