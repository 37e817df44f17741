package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
)

// Closer is implemented by timer stores that hold connections.
type Closer interface {
	Close() error
}

// splitStore serves timers from one backend and everything else from
// another.
type splitStore struct {
	domain.Store
	timers domain.TimerStore
}

// WithTimers returns a store that delegates timer calls to timers and all
// other calls to base.
func WithTimers(base domain.Store, timers domain.TimerStore) domain.Store {
	return &splitStore{Store: base, timers: timers}
}

func (s *splitStore) Schedule(ctx context.Context, userID, label string, wakeAt time.Time) (*domain.Timer, error) {
	return s.timers.Schedule(ctx, userID, label, wakeAt)
}

func (s *splitStore) PollDue(ctx context.Context, now time.Time) ([]domain.Timer, error) {
	return s.timers.PollDue(ctx, now)
}

func (s *splitStore) Timers(ctx context.Context, userID string) ([]domain.Timer, error) {
	return s.timers.Timers(ctx, userID)
}

func (s *splitStore) Close() error {
	var errs []error
	if c, ok := s.timers.(Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.Store.Close())
	return errors.Join(errs...)
}
