// Package guard keeps conversations on cooking. It rejects messages that
// mention forbidden or off-topic terms and scrubs personal data from text
// before it is echoed back.
package guard

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
)

// Rule kinds.
const (
	KindForbidden = "forbidden"
	KindOffTopic  = "off_topic"
)

// TermRule rejects messages containing any of Terms as a whole word.
// Message is a format string receiving the matched term.
type TermRule struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	Terms   []string `yaml:"terms"`
	Message string   `yaml:"message"`
}

// RedactRule replaces every match of Pattern with Replacement.
type RedactRule struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		Terms  []TermRule   `yaml:"terms"`
		Redact []RedactRule `yaml:"redact"`
	} `yaml:"rules"`
}

// Guard evaluates messages against term rules in order.
type Guard struct {
	terms  []compiledTerm
	redact []compiledRedact
}

type compiledTerm struct {
	rule TermRule
	res  []*regexp.Regexp
}

type compiledRedact struct {
	rule RedactRule
	re   *regexp.Regexp
}

// Default returns a guard built from the built-in rules.
func Default() *Guard {
	g, err := build(defaultRules())
	if err != nil {
		panic(fmt.Sprintf("guard: built-in rules do not compile: %v", err))
	}
	return g
}

// Load reads rules from path. A missing file or a file with no rules falls
// back to the built-in set; a malformed file is an error.
func Load(path string) (*Guard, error) {
	rules, err := loadRules(path)
	if err != nil {
		return nil, err
	}
	return build(rules)
}

func loadRules(path string) (RulesFile, error) {
	if path == "" {
		return defaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultRules(), nil
		}
		return RulesFile{}, fmt.Errorf("reading guard rules: %w", err)
	}
	var rules RulesFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RulesFile{}, fmt.Errorf("parsing guard rules %s: %w", path, err)
	}
	defaults := defaultRules()
	if len(rules.Rules.Terms) == 0 {
		rules.Rules.Terms = defaults.Rules.Terms
	}
	if len(rules.Rules.Redact) == 0 {
		rules.Rules.Redact = defaults.Rules.Redact
	}
	return rules, nil
}

func build(rules RulesFile) (*Guard, error) {
	g := &Guard{}
	for _, r := range rules.Rules.Terms {
		ct := compiledTerm{rule: r}
		for _, term := range r.Terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" {
				continue
			}
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("rule %s: term %q: %w", r.Name, term, err)
			}
			ct.res = append(ct.res, re)
		}
		g.terms = append(g.terms, ct)
	}
	for _, r := range rules.Rules.Redact {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("redact rule %s: %w", r.Name, err)
		}
		g.redact = append(g.redact, compiledRedact{rule: r, re: re})
	}
	return g, nil
}

// Check returns a *domain.SafetyRejection for the first rule that matches,
// or nil when the message is allowed.
func (g *Guard) Check(text string) *domain.SafetyRejection {
	if g == nil {
		return nil
	}
	for _, ct := range g.terms {
		for _, re := range ct.res {
			if m := re.FindString(text); m != "" {
				term := strings.ToLower(m)
				return &domain.SafetyRejection{
					Rule:   ct.rule.Name,
					Term:   term,
					Reason: fmt.Sprintf(ct.rule.Message, term),
				}
			}
		}
	}
	return nil
}

// Scrub replaces personal data such as e-mail addresses and phone numbers.
func (g *Guard) Scrub(text string) string {
	if g == nil {
		return text
	}
	for _, cr := range g.redact {
		text = cr.re.ReplaceAllString(text, cr.rule.Replacement)
	}
	return text
}

func defaultRules() RulesFile {
	var rf RulesFile
	rf.Rules.Terms = []TermRule{
		{
			Name:    "forbidden",
			Kind:    KindForbidden,
			Terms:   []string{"bomb", "bombs", "weapon", "kill", "poison", "manufacture"},
			Message: "Forbidden term detected: %s",
		},
		{
			Name:    "non_cooking",
			Kind:    KindOffTopic,
			Terms:   []string{"law", "divorce", "tax", "stocks", "politics", "programming", "hack"},
			Message: "I can help with cooking only; your query mentions %s.",
		},
	}
	rf.Rules.Redact = []RedactRule{
		{Name: "email", Pattern: `\S+@\S+\.\S+`, Replacement: "[redacted_email]"},
		{Name: "phone", Pattern: `\+?\d[\d\-\s]{7,}\d`, Replacement: "[redacted_phone]"},
	}
	return rf
}
