// Package preference turns raw questionnaire answers into validated
// domain.Preferences.
package preference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
)

// Field keys, also used as question keys.
const (
	FieldPeople         = "number_of_people"
	FieldSpice          = "spice_level"
	FieldRegion         = "region"
	FieldPreferenceType = "preference_type"
	FieldAllergies      = "allergies"
	FieldDislikes       = "dislikes"
)

// Question is one entry of the preference questionnaire.
type Question struct {
	Key    string
	Prompt string
}

// Questions are asked in order; answers are zipped back to keys by position.
var Questions = []Question{
	{FieldPeople, "How many people are you cooking for? (1-20)"},
	{FieldSpice, "Spice level (0=mild to 10=very spicy)"},
	{FieldRegion, "Which region? (north/south/east/west)"},
	{FieldPreferenceType, "Preference type (dietary/cuisine/cooking_time/none)"},
	{FieldAllergies, "Any allergies? (comma-separated, or 'none')"},
	{FieldDislikes, "Anything you dislike? (comma-separated, or 'none')"},
}

const (
	minPeople = 1
	maxPeople = 20
	minSpice  = 0
	maxSpice  = 10
)

// placeholders are answers that mean "nothing" for list fields.
var placeholders = map[string]bool{
	"none": true,
	"no":   true,
	"nil":  true,
	"n/a":  true,
	"-":    true,
}

// Zip maps answers to question keys by position. Missing answers are left
// out so optional fields fall back to their defaults.
func Zip(answers []string) map[string]string {
	raw := make(map[string]string, len(Questions))
	for i, q := range Questions {
		if i >= len(answers) {
			break
		}
		raw[q.Key] = answers[i]
	}
	return raw
}

// Validate checks raw answers and returns normalized preferences. All
// failing fields are reported; the returned *domain.ValidationError names
// the first one. It has no side effects.
func Validate(raw map[string]string) (*domain.Preferences, error) {
	var errs []*domain.ValidationError
	fail := func(field, msg string) {
		errs = append(errs, &domain.ValidationError{Field: field, Msg: msg})
	}

	people, err := parseBounded(raw[FieldPeople], minPeople, maxPeople)
	if err != nil {
		fail(FieldPeople, err.Error())
	}
	spice, err := parseBounded(raw[FieldSpice], minSpice, maxSpice)
	if err != nil {
		fail(FieldSpice, err.Error())
	}

	region, ok := domain.ParseRegion(normalizeWord(raw[FieldRegion]))
	if !ok {
		fail(FieldRegion, fmt.Sprintf("%q is not one of north, south, east, west", strings.TrimSpace(raw[FieldRegion])))
	}
	ptype, ok := domain.ParsePreferenceType(normalizeWord(raw[FieldPreferenceType]))
	if !ok {
		fail(FieldPreferenceType, fmt.Sprintf("%q is not one of dietary, cuisine, cooking_time, none", strings.TrimSpace(raw[FieldPreferenceType])))
	}

	if len(errs) > 0 {
		return nil, combine(errs)
	}

	return &domain.Preferences{
		NumberOfPeople: people,
		SpiceLevel:     spice,
		Region:         region,
		PreferenceType: ptype,
		Allergies:      SplitList(raw[FieldAllergies]),
		Dislikes:       SplitList(raw[FieldDislikes]),
	}, nil
}

// SplitList splits a comma-separated answer into trimmed, lowercase,
// de-duplicated items. Placeholder answers such as "none" yield an empty
// list. The result is never nil.
func SplitList(s string) []string {
	out := []string{}
	if placeholders[strings.ToLower(strings.TrimSpace(s))] {
		return out
	}
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		item := strings.ToLower(strings.TrimSpace(part))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func parseBounded(s string, lo, hi int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("required, enter a number %d-%d", lo, hi)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d is out of range %d-%d", n, lo, hi)
	}
	return n, nil
}

// normalizeWord lowercases and folds "cooking time" / "cooking-time" into
// the snake_case form.
func normalizeWord(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return strings.ReplaceAll(s, "-", "_")
}

func combine(errs []*domain.ValidationError) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := []string{errs[0].Msg}
	for _, e := range errs[1:] {
		msgs = append(msgs, e.Error())
	}
	return &domain.ValidationError{
		Field: errs[0].Field,
		Msg:   strings.Join(msgs, "; "),
	}
}
