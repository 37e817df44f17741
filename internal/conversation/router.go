// Package conversation decides which capability handles a message and
// delivers notifications to the user.
package conversation

import (
	"strings"
	"unicode"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/guard"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
)

// Decision is the router's choice plus structured reasoning for logs and
// metrics. Reason is never shown to the user except for guard rejections,
// where it carries the rejection text.
type Decision struct {
	Capability domain.Capability
	Rule       string
	Reason     string
	Rejection  *domain.SafetyRejection
}

// Rule names, in evaluation order.
const (
	RuleGuard       = "guard"
	RuleGreeting    = "greeting"
	RulePreferences = "preferences"
	RuleRecipe      = "recipe_request"
	RuleAcceptOffer = "accept_offer"
	RuleNavigate    = "step_navigation"
	RuleFeedback    = "feedback"
	RuleDefaultChat = "default"
)

var (
	greetingWords    = wordSet("hi", "hello", "hey", "namaste")
	recipeWords      = wordSet("recipe", "cook", "make")
	affirmativeWords = wordSet("yes", "y", "sure", "please", "ok", "okay")
	navigationWords  = wordSet("next", "n", "repeat", "r", "slow", "s")
)

// Router routes messages with literal keyword and state checks. It never
// fails and has no side effects.
type Router struct {
	log   *logger.Logger
	guard *guard.Guard
	rules []rule
}

type rule struct {
	name  string
	cap   domain.Capability
	match func(s *domain.Session, m message) (bool, string)
}

// message is a pre-tokenized user message.
type message struct {
	whole  string
	tokens []string
}

// NewRouter creates a router. A nil guard disables the safety rule.
func NewRouter(g *guard.Guard, log *logger.Logger) *Router {
	r := &Router{log: log, guard: g}
	r.rules = []rule{
		{RuleGreeting, domain.CapabilityGreeting, func(_ *domain.Session, m message) (bool, string) {
			w, ok := m.anyOf(greetingWords)
			return ok, "greeting word " + w
		}},
		{RulePreferences, domain.CapabilityPreference, func(s *domain.Session, _ message) (bool, string) {
			switch {
			case s.AwaitingAnswer():
				return true, "collecting preference answers"
			case s.Preferences == nil:
				return true, "preferences not set"
			}
			return false, ""
		}},
		{RuleRecipe, domain.CapabilityRecipe, func(_ *domain.Session, m message) (bool, string) {
			w, ok := m.anyOf(recipeWords)
			return ok, "recipe word " + w
		}},
		{RuleAcceptOffer, domain.CapabilityStep, func(s *domain.Session, m message) (bool, string) {
			return affirmativeWords[m.whole] && s.RecipeOffered(), "accepted step-by-step offer"
		}},
		{RuleNavigate, domain.CapabilityStep, func(s *domain.Session, m message) (bool, string) {
			return s.InStepMode && navigationWords[m.whole], "navigation command " + m.whole
		}},
		{RuleFeedback, domain.CapabilityFeedback, func(s *domain.Session, _ message) (bool, string) {
			return s.InStepMode && s.ExpectingFeedback, "awaiting feedback"
		}},
	}
	return r
}

// Route picks the capability for msg given the session state. The same
// (session, message) always yields the same decision.
func (r *Router) Route(s *domain.Session, msg string) Decision {
	m := parseMessage(msg)

	if rej := r.guard.Check(msg); rej != nil {
		r.log.Debug("route: guard rejected %q (rule=%s)", msg, rej.Rule)
		return Decision{
			Capability: domain.CapabilityChat,
			Rule:       RuleGuard,
			Reason:     rej.Reason,
			Rejection:  rej,
		}
	}

	for _, rl := range r.rules {
		if ok, reason := rl.match(s, m); ok {
			r.log.Debug("route: %q -> %s (%s)", msg, rl.cap, rl.name)
			return Decision{Capability: rl.cap, Rule: rl.name, Reason: reason}
		}
	}

	r.log.Debug("route: %q -> %s (default)", msg, domain.CapabilityChat)
	return Decision{Capability: domain.CapabilityChat, Rule: RuleDefaultChat, Reason: "no rule matched"}
}

func parseMessage(raw string) message {
	lower := strings.ToLower(raw)
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	whole := strings.TrimFunc(strings.TrimSpace(lower), func(r rune) bool {
		return unicode.IsPunct(r)
	})
	return message{whole: strings.TrimSpace(whole), tokens: tokens}
}

func (m message) anyOf(set map[string]bool) (string, bool) {
	for _, t := range m.tokens {
		if set[t] {
			return t, true
		}
	}
	return "", false
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
