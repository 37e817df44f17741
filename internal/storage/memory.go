// Package storage provides persistence for profiles, recipes, feedback and
// step timers.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
)

// Compile-time interface check.
var _ domain.Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in process memory. Safe for concurrent
// access; PollDue holds the write lock for the whole select-and-mark.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
	recipes  map[string][]domain.Recipe
	feedback []domain.Feedback
	timers   []*domain.Timer
	nextID   int64
	closed   bool
	log      *logger.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]domain.Profile),
		recipes:  make(map[string][]domain.Recipe),
		log:      log,
	}
}

// SaveProfile upserts a profile.
func (s *MemoryStore) SaveProfile(ctx context.Context, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	s.log.Debug("saving profile %s (name=%q)", p.UserID, p.Name)
	s.profiles[p.UserID] = p
	return nil
}

// LoadProfile returns the profile for userID or domain.ErrNotFound.
func (s *MemoryStore) LoadProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// AppendRecipe records a generated recipe for userID.
func (s *MemoryStore) AppendRecipe(ctx context.Context, userID string, r domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	s.recipes[userID] = append(s.recipes[userID], r)
	s.log.Debug("stored recipe %q for %s", r.Title, userID)
	return nil
}

// Recipes returns the recipes recorded for userID, oldest first.
func (s *MemoryStore) Recipes(userID string) []domain.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Recipe(nil), s.recipes[userID]...)
}

// AppendFeedback records feedback.
func (s *MemoryStore) AppendFeedback(ctx context.Context, f domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	s.feedback = append(s.feedback, f)
	return nil
}

// Feedback returns all recorded feedback, oldest first.
func (s *MemoryStore) Feedback() []domain.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Feedback(nil), s.feedback...)
}

// Schedule stores a new unfired timer.
func (s *MemoryStore) Schedule(ctx context.Context, userID, label string, wakeAt time.Time) (*domain.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	s.nextID++
	t := &domain.Timer{
		ID:     s.nextID,
		UserID: userID,
		Label:  label,
		WakeAt: wakeSecond(wakeAt),
	}
	s.timers = append(s.timers, t)
	s.log.Debug("scheduled timer %d %q for %s at %s", t.ID, label, userID, t.WakeAt.Format(time.TimeOnly))

	out := *t
	return &out, nil
}

// PollDue marks and returns every unfired timer with WakeAt <= now,
// ordered by wake time.
func (s *MemoryStore) PollDue(ctx context.Context, now time.Time) ([]domain.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	var due []domain.Timer
	for _, t := range s.timers {
		if t.Fired || t.WakeAt.After(now) {
			continue
		}
		t.Fired = true
		due = append(due, *t)
	}
	sortTimers(due)
	return due, nil
}

// Timers returns every timer for userID, fired or not.
func (s *MemoryStore) Timers(ctx context.Context, userID string) ([]domain.Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	var out []domain.Timer
	for _, t := range s.timers {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sortTimers(out)
	return out, nil
}

// Close makes further calls fail with domain.ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// wakeSecond rounds up to a whole second so a timer is never delivered
// before its wake time.
func wakeSecond(t time.Time) time.Time {
	r := t.Truncate(time.Second)
	if r.Before(t) {
		r = r.Add(time.Second)
	}
	return r
}

func sortTimers(ts []domain.Timer) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].WakeAt.Equal(ts[j].WakeAt) {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].WakeAt.Before(ts[j].WakeAt)
	})
}
