package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
)

// Sessions keeps one session per user and runs at most one turn per user
// at a time. Different users proceed concurrently.
type Sessions struct {
	engine *Engine
	store  domain.Store
	log    *logger.Logger

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	loaded  bool
	session *domain.Session
}

// NewSessions creates an empty registry.
func NewSessions(e *Engine, store domain.Store, log *logger.Logger) *Sessions {
	return &Sessions{
		engine:  e,
		store:   store,
		log:     log,
		entries: make(map[string]*sessionEntry),
	}
}

// Handle runs one turn for userID.
func (r *Sessions) Handle(ctx context.Context, userID, msg string) (Turn, error) {
	en := r.entry(userID)
	en.mu.Lock()
	defer en.mu.Unlock()

	r.load(ctx, userID, en)
	return r.engine.RunTurn(ctx, en.session, msg)
}

// Snapshot returns a copy of the user's session, if one exists.
func (r *Sessions) Snapshot(userID string) (*domain.Session, bool) {
	r.mu.Lock()
	en, ok := r.entries[userID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	en.mu.Lock()
	defer en.mu.Unlock()
	return en.session.Clone(), true
}

// SetName changes the user's display name and saves it to their profile,
// keeping any stored preferences.
func (r *Sessions) SetName(ctx context.Context, userID, name string) error {
	en := r.entry(userID)
	en.mu.Lock()
	defer en.mu.Unlock()

	r.load(ctx, userID, en)
	en.session.UserName = name

	profile := domain.Profile{UserID: userID, Name: name, Preferences: en.session.Preferences}
	existing, err := r.store.LoadProfile(ctx, userID)
	switch {
	case err == nil:
		if profile.Preferences == nil {
			profile.Preferences = existing.Preferences
		}
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("loading profile: %w", err)
	}
	profile.UpdatedAt = r.engine.now()

	if err := r.store.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	r.log.Info("user %s is now called %q", userID, name)
	return nil
}

func (r *Sessions) entry(userID string) *sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	en, ok := r.entries[userID]
	if !ok {
		en = &sessionEntry{session: domain.NewSession(userID)}
		r.entries[userID] = en
	}
	return en
}

// load fills the user's name from their stored profile on first use.
// Caller holds en.mu.
func (r *Sessions) load(ctx context.Context, userID string, en *sessionEntry) {
	if en.loaded {
		return
	}
	en.loaded = true

	p, err := r.store.LoadProfile(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return
	case err != nil:
		r.log.Warn("loading profile for %s: %v", userID, err)
		return
	}
	if en.session.UserName == "" {
		en.session.UserName = p.Name
	}
}
