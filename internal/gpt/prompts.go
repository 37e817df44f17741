package gpt

import (
	"fmt"
	"strings"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
)

// System prompts live here so personality changes are a single-file edit.

// PromptRecipe asks the model for one recipe as a JSON object whose shape
// matches domain.Recipe.
const PromptRecipe = `You are Virtual Chef, a warm and practical Indian home-cooking assistant.

Create ONE recipe for the user's preferences. Respond with a JSON object and nothing else: no markdown fences, no text before or after.

Response schema:
{
  "title": "Dish name",
  "cultural_note": "One or two sentences about where the dish comes from.",
  "ingredients": ["Ingredient with quantity", "..."],
  "steps": [
    {"text": "Instruction.", "timer_sec": 300, "timer_label": "short label"},
    {"text": "Instruction without a timer."}
  ],
  "tips": ["Short tip", "..."]
}

Rules:
- Scale quantities to the number of people.
- Never use an ingredient the user is allergic to or dislikes, including derivatives.
- Match the requested spice level (0 mild, 10 very spicy).
- Add "timer_sec" and "timer_label" only to steps that need waiting (boiling, simmering, resting). Labels are 1-3 lowercase words.
- Keep steps short and in order. 3 to 10 steps.
- Give 1 to 3 tips.`

// recipeRequest renders preferences as the user message.
func recipeRequest(p domain.Preferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Number of people: %d\n", p.NumberOfPeople)
	fmt.Fprintf(&b, "Spice level: %d/10\n", p.SpiceLevel)
	fmt.Fprintf(&b, "Region: %s Indian\n", p.Region)
	fmt.Fprintf(&b, "Preference focus: %s\n", preferenceHint(p.PreferenceType))
	fmt.Fprintf(&b, "Allergies: %s\n", listOrNone(p.Allergies))
	fmt.Fprintf(&b, "Dislikes: %s\n", listOrNone(p.Dislikes))
	return b.String()
}

func preferenceHint(t domain.PreferenceType) string {
	switch t {
	case domain.PreferenceDietary:
		return "dietary (lighter, balanced dish)"
	case domain.PreferenceCuisine:
		return "cuisine (a dish typical of the region)"
	case domain.PreferenceCookingTime:
		return "cooking time (ready in under 30 minutes)"
	default:
		return "none"
	}
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
