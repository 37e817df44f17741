// Package engine runs conversation turns: it routes each message to a
// capability, applies the handler to the session and returns the reply.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sanny1998/Virtual-chef/internal/conversation"
	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/guard"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
	"github.com/Sanny1998/Virtual-chef/internal/metrics"
)

// DefaultGenerationTimeout bounds a single recipe generation call.
const DefaultGenerationTimeout = 30 * time.Second

// maxHandoffs is how many forced hand-offs a single turn follows.
const maxHandoffs = 1

// Option configures the engine.
type Option func(*Engine)

// WithMetrics records turns, fallbacks and swallowed persistence errors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithGenerationTimeout sets how long recipe generation may take before the
// fallback recipe is served. Non-positive values are ignored.
func WithGenerationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.genTimeout = d
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine executes turns. It holds no per-user state: every call gets the
// session it should act on.
type Engine struct {
	router     *conversation.Router
	guard      *guard.Guard
	gen        domain.RecipeGenerator
	store      domain.Store
	log        *logger.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	genTimeout time.Duration
	now        func() time.Time
}

// Turn is the result of one message.
type Turn struct {
	// Reply is always set, even when RunTurn returns an error.
	Reply    string
	Decision conversation.Decision
	// Handled lists the capabilities that ran, in order. It has two
	// entries when a handler handed off.
	Handled []domain.Capability
	// Timers holds the timers scheduled during the turn.
	Timers []domain.Timer
}

// outcome is what a capability handler produces.
type outcome struct {
	reply   string
	next    domain.Capability
	handoff bool
	timers  []domain.Timer
}

func handoff(reply string, next domain.Capability) outcome {
	return outcome{reply: reply, next: next, handoff: true}
}

// New creates an engine. A nil generator always serves the fallback recipe.
func New(router *conversation.Router, g *guard.Guard, gen domain.RecipeGenerator, store domain.Store, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		router:     router,
		guard:      g,
		gen:        gen,
		store:      store,
		log:        log,
		tracer:     otel.Tracer("github.com/Sanny1998/Virtual-chef/internal/engine"),
		genTimeout: DefaultGenerationTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunTurn routes msg, runs the chosen capability against s and returns the
// reply. s is mutated in place. The error is non-nil only when timer
// scheduling failed; the reply then explains the failure.
func (e *Engine) RunTurn(ctx context.Context, s *domain.Session, msg string) (Turn, error) {
	start := e.now()
	ctx, span := e.tracer.Start(ctx, "engine.turn",
		trace.WithAttributes(attribute.String("user.id", s.UserID)))
	defer span.End()

	d := e.router.Route(s, msg)
	span.SetAttributes(
		attribute.String("capability", d.Capability.String()),
		attribute.String("rule", d.Rule),
	)
	e.log.Debug("turn %s: %s (%s: %s)", s.UserID, d.Capability, d.Rule, d.Reason)

	turn := Turn{Decision: d}
	var (
		replies []string
		err     error
	)
	c := d.Capability
	for hops := 0; ; hops++ {
		out, herr := e.dispatch(ctx, c, s, msg, d)
		turn.Handled = append(turn.Handled, c)
		turn.Timers = append(turn.Timers, out.timers...)
		if out.reply != "" {
			replies = append(replies, out.reply)
		}
		if herr != nil {
			err = herr
			break
		}
		if !out.handoff || hops >= maxHandoffs {
			break
		}
		e.log.Debug("turn %s: %s hands off to %s", s.UserID, c, out.next)
		c = out.next
	}
	turn.Reply = strings.Join(replies, "\n")

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Error("turn %s: %s failed: %v", s.UserID, c, err)
	}
	e.metrics.RecordTurn(d.Capability.String(), d.Rule, e.now().Sub(start))
	return turn, err
}

// dispatch runs the handler for c.
func (e *Engine) dispatch(ctx context.Context, c domain.Capability, s *domain.Session, msg string, d conversation.Decision) (outcome, error) {
	switch c {
	case domain.CapabilityGreeting:
		return e.greet(s), nil
	case domain.CapabilityPreference:
		return e.collectPreferences(ctx, s, msg), nil
	case domain.CapabilityRecipe:
		return e.suggestRecipe(ctx, s), nil
	case domain.CapabilityStep:
		return e.walkSteps(ctx, s, msg)
	case domain.CapabilityFeedback:
		return e.takeFeedback(ctx, s, msg), nil
	case domain.CapabilityChat:
		return e.chat(s, msg, d.Rejection), nil
	}
	return outcome{reply: "Sorry, I lost track of the conversation."},
		fmt.Errorf("unknown capability %d", int(c))
}

// persist runs a best-effort store write. Failures are logged and counted
// but never reach the user.
func (e *Engine) persist(ctx context.Context, op string, fn func(context.Context) error) {
	if e.store == nil {
		return
	}
	if err := fn(ctx); err != nil {
		perr := &domain.PersistenceFailure{Op: op, Cause: err}
		trace.SpanFromContext(ctx).RecordError(perr)
		e.metrics.RecordPersistenceFailure(op)
		e.log.Warn("%v", perr)
	}
}
