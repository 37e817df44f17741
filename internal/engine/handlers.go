package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/preference"
	"github.com/Sanny1998/Virtual-chef/internal/recipe"
)

const (
	replyPrefsAlreadySet = "Preferences already set."
	replyPrefsSaved      = "Preferences saved. What would you like to cook?"
	replyNeedPrefs       = "I need your preferences first."
	replyOfferSteps      = "Would you like step-by-step guidance? (yes/no)"
	replyNoRecipe        = "No recipe to guide. Ask for a recipe first."
	replyFeedbackFormat  = "Please provide feedback starting with a number 1-5."
	replyFeedbackThanks  = "Thanks for your feedback!"
	replyStepHelp        = "Say next, repeat or slow."
	replyAskFeedback     = "That was the last step. Enjoy your meal! How did it go? Send a score 1-5 and an optional comment."
)

func (e *Engine) greet(s *domain.Session) outcome {
	name := s.UserName
	if name == "" {
		name = "friend"
	}
	return outcome{reply: fmt.Sprintf("Namaste, %s! I'm your virtual chef. Tell me what you'd like to cook.", name)}
}

// collectPreferences asks the questionnaire one question per turn and
// validates the answers once all are in.
func (e *Engine) collectPreferences(ctx context.Context, s *domain.Session, msg string) outcome {
	if s.Preferences != nil && !s.AwaitingAnswer() {
		return outcome{reply: replyPrefsAlreadySet}
	}
	if !s.AwaitingAnswer() {
		s.StartPreferenceCollection()
		return outcome{reply: preference.Questions[0].Prompt}
	}

	if strings.TrimSpace(msg) == "" {
		return outcome{reply: preference.Questions[s.Pending.Index].Prompt}
	}
	s.RecordAnswer(msg)
	if !s.IsCollectionComplete(len(preference.Questions)) {
		return outcome{reply: preference.Questions[s.Pending.Index].Prompt}
	}

	raw := preference.Zip(s.Pending.Answers)
	s.ClearCollection()
	prefs, err := preference.Validate(raw)
	if err != nil {
		e.log.Info("preferences for %s rejected: %v", s.UserID, err)
		return outcome{reply: fmt.Sprintf("Preference error: %v\nSend any message to start the questions again.", err)}
	}

	s.Preferences = prefs
	e.persist(ctx, "save_profile", func(ctx context.Context) error {
		return e.store.SaveProfile(ctx, domain.Profile{
			UserID:      s.UserID,
			Name:        s.UserName,
			Preferences: prefs,
			UpdatedAt:   e.now(),
		})
	})
	e.log.Info("preferences saved for %s: %d people, spice %d, %s, %s",
		s.UserID, prefs.NumberOfPeople, prefs.SpiceLevel, prefs.Region, prefs.PreferenceType)
	return outcome{reply: replyPrefsSaved}
}

func (e *Engine) suggestRecipe(ctx context.Context, s *domain.Session) outcome {
	if s.Preferences == nil {
		return handoff(replyNeedPrefs, domain.CapabilityPreference)
	}

	r := e.generate(ctx, *s.Preferences)
	s.ResetConversationArtifacts()
	s.LastRecipe = r
	e.persist(ctx, "append_recipe", func(ctx context.Context) error {
		return e.store.AppendRecipe(ctx, s.UserID, *r)
	})
	return outcome{reply: renderRecipe(r) + "\n\n" + replyOfferSteps}
}

// generate calls the generator with a deadline and falls back to the
// built-in recipe on any failure.
func (e *Engine) generate(ctx context.Context, prefs domain.Preferences) *domain.Recipe {
	if e.gen == nil {
		e.metrics.RecordFallback("unconfigured")
		return recipe.Fallback()
	}

	gctx, cancel := context.WithTimeout(ctx, e.genTimeout)
	defer cancel()
	gctx, span := e.tracer.Start(gctx, "engine.generate")
	defer span.End()

	r, err := e.gen.Generate(gctx, prefs)
	reason := ""
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case err != nil:
		reason = "error"
	case r == nil || (r.Title == "" && len(r.Steps) == 0):
		reason = "empty"
		err = errors.New("generator returned an empty recipe")
	}
	if reason == "" {
		span.SetAttributes(attribute.String("recipe.title", r.Title))
		return r
	}

	gerr := &domain.GenerationFailure{Cause: err}
	span.RecordError(gerr)
	span.SetAttributes(attribute.String("fallback.reason", reason))
	e.metrics.RecordFallback(reason)
	e.log.Warn("%v; serving fallback recipe", gerr)
	return recipe.Fallback()
}

// walkSteps starts guidance or moves through it.
func (e *Engine) walkSteps(ctx context.Context, s *domain.Session, msg string) (outcome, error) {
	if s.LastRecipe == nil {
		return outcome{reply: replyNoRecipe}, nil
	}
	if !s.InStepMode {
		return e.startSteps(ctx, s)
	}

	switch navWord(msg) {
	case "next", "n":
		if s.ExpectingFeedback {
			return outcome{reply: replyAskFeedback}, nil
		}
		if _, ok := s.AdvanceStep(); !ok {
			s.ExpectingFeedback = true
			return outcome{reply: replyAskFeedback}, nil
		}
		return outcome{reply: e.describeStep(s)}, nil
	case "slow", "s":
		step, ok := s.CurrentStep()
		if !ok {
			return outcome{reply: replyAskFeedback}, nil
		}
		return outcome{reply: fmt.Sprintf("Step %d/%d, slowly:\n%s",
			s.StepCursor+1, len(s.LastRecipe.Steps), strings.Join(sentences(step.Text), "\n"))}, nil
	default:
		if _, ok := s.CurrentStep(); !ok {
			return outcome{reply: replyAskFeedback}, nil
		}
		return outcome{reply: e.describeStep(s)}, nil
	}
}

// startSteps schedules a timer for every timed step, then enters step
// mode. If any timer cannot be scheduled the session is left as it was.
func (e *Engine) startSteps(ctx context.Context, s *domain.Session) (outcome, error) {
	r := s.LastRecipe
	now := e.now()

	var timers []domain.Timer
	for i, step := range r.Steps {
		if !step.HasTimer() {
			continue
		}
		wakeAt := now.Add(time.Duration(step.TimerSeconds) * time.Second)
		t, err := e.store.Schedule(ctx, s.UserID, step.Label(), wakeAt)
		if err != nil {
			return outcome{
				reply:  "Sorry, I couldn't set the cooking timers, so let's not start yet. Say yes to try again.",
				timers: timers,
			}, fmt.Errorf("scheduling timer for step %d: %w", i+1, err)
		}
		timers = append(timers, *t)
	}
	if len(timers) > 0 {
		e.metrics.RecordTimersScheduled(len(timers))
		trace.SpanFromContext(ctx).AddEvent("timers.scheduled",
			trace.WithAttributes(attribute.Int("count", len(timers))))
	}

	s.EnterStepMode(r)
	if len(r.Steps) == 0 {
		s.ExpectingFeedback = true
		return outcome{reply: "This recipe has no steps to walk through. " + replyAskFeedback}, nil
	}

	var b strings.Builder
	b.WriteString("Starting step-by-step. ")
	b.WriteString(e.describeStep(s))
	for _, t := range timers {
		fmt.Fprintf(&b, "\nTimer %q set for %s.", t.Label, t.WakeAt.Format("15:04:05"))
	}
	b.WriteString("\n" + replyStepHelp)
	return outcome{reply: b.String(), timers: timers}, nil
}

func (e *Engine) describeStep(s *domain.Session) string {
	step, _ := s.CurrentStep()
	return fmt.Sprintf("Step %d/%d: %s%s", s.StepCursor+1, len(s.LastRecipe.Steps), step.Text, timerNote(*step))
}

// takeFeedback parses "<score> [comment]" and closes the conversation.
func (e *Engine) takeFeedback(ctx context.Context, s *domain.Session, msg string) outcome {
	score, comment, err := parseFeedback(msg)
	if err != nil {
		e.log.Debug("feedback from %s rejected: %v", s.UserID, err)
		return outcome{reply: replyFeedbackFormat}
	}

	fb := domain.Feedback{
		UserID:    s.UserID,
		Score:     score,
		Comment:   comment,
		CreatedAt: e.now(),
	}
	if s.LastRecipe != nil {
		fb.RecipeTitle = s.LastRecipe.Title
	}
	e.persist(ctx, "append_feedback", func(ctx context.Context) error {
		return e.store.AppendFeedback(ctx, fb)
	})
	s.ResetConversationArtifacts()
	e.log.Info("feedback from %s: %d", s.UserID, score)
	return outcome{reply: replyFeedbackThanks}
}

// chat answers anything off the main path. Messages the guard rejects get
// the rejection reason; the rest get a generic tip with PII scrubbed.
func (e *Engine) chat(s *domain.Session, msg string, rej *domain.SafetyRejection) outcome {
	if rej == nil {
		rej = e.guard.Check(msg)
	}
	if rej != nil {
		e.log.Info("guard %s rejected message from %s (%s)", rej.Rule, s.UserID, rej.Term)
		return outcome{reply: "I can help only with cooking topics: " + rej.Reason}
	}
	text := strings.TrimSpace(e.guard.Scrub(msg))
	return outcome{reply: fmt.Sprintf("Ah! About '%s', here's a short chef tip: taste as you go and balance salt and acid.", text)}
}

func parseFeedback(msg string) (int, string, error) {
	head, comment := strings.TrimSpace(msg), ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, comment = head[:i], strings.TrimSpace(head[i:])
	}
	score, err := strconv.Atoi(head)
	if err != nil || score < 1 || score > 5 {
		return 0, "", &domain.FormatError{Input: msg, Msg: "feedback must start with a score 1-5"}
	}
	return score, comment, nil
}

func navWord(msg string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(msg), ".!?,;:"))
}

// sentences splits text after each '.', '!' or '?'.
func sentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if part := strings.TrimSpace(text[start : i+1]); part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
