// Package timer delivers step timers: a background poller claims due
// timers from the store and tells the user about them.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
	"github.com/Sanny1998/Virtual-chef/internal/metrics"
)

// DefaultTickInterval is how often the poller asks the store for due timers.
const DefaultTickInterval = 3 * time.Second

// Option configures the poller.
type Option func(*Poller)

// WithTickInterval sets how often the poller checks timers.
func WithTickInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.tickInterval = d
		}
	}
}

// WithMetrics counts delivered timers.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// Poller runs in the background and fires notifications for due timers.
// The store guarantees each timer is returned by PollDue at most once, so
// several pollers may share a store.
type Poller struct {
	store        domain.TimerStore
	notifier     domain.Notifier
	log          *logger.Logger
	metrics      *metrics.Metrics
	tickInterval time.Duration
	now          func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a poller with the given dependencies and options.
func New(store domain.TimerStore, notifier domain.Notifier, log *logger.Logger, opts ...Option) *Poller {
	p := &Poller{
		store:        store,
		notifier:     notifier,
		log:          log,
		tickInterval: DefaultTickInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins the background loop. Non-blocking.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.log.Warn("timer poller already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go func(done chan struct{}) {
		defer close(done)
		p.loop(childCtx)
	}(p.done)

	p.log.Info("timer poller started (tick=%s)", p.tickInterval)
}

// Stop shuts the loop down and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.running = false
	done := p.done
	p.mu.Unlock()

	<-done
	p.log.Info("timer poller stopped")
}

// Run polls until ctx is cancelled. It is the blocking form of Start.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("timer poller running (tick=%s)", p.tickInterval)
	p.loop(ctx)
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
				p.log.Error("poller: %v", err)
			}
		}
	}
}

// Poll claims every timer due now and notifies about each one. Timers
// claimed before an error are still delivered and returned.
func (p *Poller) Poll(ctx context.Context) ([]domain.Timer, error) {
	now := p.now()
	due, err := p.store.PollDue(ctx, now)
	for _, t := range due {
		if nerr := p.notifier.NotifyUrgent(ctx, Message(t, now)); nerr != nil {
			p.log.Error("poller: notifying timer %d: %v", t.ID, nerr)
		}
		p.log.Debug("timer %d %q fired for %s", t.ID, t.Label, t.UserID)
	}
	if len(due) > 0 {
		p.metrics.RecordTimersFired(len(due))
	}
	if err != nil {
		return due, fmt.Errorf("polling due timers: %w", err)
	}
	return due, nil
}

// Message is the notification for a fired timer. Timers delivered a
// minute or more late, e.g. after a restart, say how late they are.
func Message(t domain.Timer, now time.Time) string {
	late := now.Sub(t.WakeAt)
	if late >= time.Minute {
		return fmt.Sprintf("Timer finished: %s (%s ago). Continue with the next step!", t.Label, formatLate(late))
	}
	return fmt.Sprintf("Timer finished: %s. Continue with the next step!", t.Label)
}

// formatLate rounds to whole minutes, or hours past two hours.
func formatLate(d time.Duration) string {
	if d >= 2*time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	m := int((d + 30*time.Second) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
