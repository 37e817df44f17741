package domain

import (
	"context"
	"time"
)

// RecipeGenerator produces a recipe for validated preferences.
// Implementations can be LLM-backed or an offline catalog.
type RecipeGenerator interface {
	Generate(ctx context.Context, prefs Preferences) (*Recipe, error)
}

// TimerStore schedules and delivers step timers. PollDue must atomically
// select timers with WakeAt <= now that have not fired and mark them fired,
// so concurrent pollers never see the same timer twice.
type TimerStore interface {
	Schedule(ctx context.Context, userID, label string, wakeAt time.Time) (*Timer, error)
	PollDue(ctx context.Context, now time.Time) ([]Timer, error)
	Timers(ctx context.Context, userID string) ([]Timer, error)
}

// Store persists profiles, generated recipes, feedback, and timers.
// Implementations can be in-memory, SQLite, or anything else.
type Store interface {
	TimerStore
	SaveProfile(ctx context.Context, p Profile) error
	LoadProfile(ctx context.Context, userID string) (*Profile, error)
	AppendRecipe(ctx context.Context, userID string, r Recipe) error
	AppendFeedback(ctx context.Context, f Feedback) error
	Close() error
}

// Notifier delivers messages to the user. Implementations can write to
// stdout or the terminal UI.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
