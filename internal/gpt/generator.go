package gpt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeGenerator = (*Generator)(nil)

// Generator asks the chat service for a recipe and decodes the JSON reply.
type Generator struct {
	client *Client
	log    *logger.Logger
}

// NewGenerator creates a recipe generator backed by client.
func NewGenerator(client *Client, log *logger.Logger) *Generator {
	return &Generator{client: client, log: log}
}

// Generate returns a recipe for prefs. Any transport, decoding, or shape
// problem is returned as an error; the caller decides on a fallback.
func (g *Generator) Generate(ctx context.Context, prefs domain.Preferences) (*domain.Recipe, error) {
	raw, err := g.client.ChatJSON(ctx, PromptRecipe, recipeRequest(prefs))
	if err != nil {
		return nil, err
	}

	recipe, err := decodeRecipe(raw)
	if err != nil {
		g.log.Warn("gpt: undecodable recipe reply: %v", err)
		return nil, err
	}

	for _, ing := range recipe.Ingredients {
		if term, bad := prefs.Avoids(ing); bad {
			return nil, fmt.Errorf("gpt: recipe uses avoided ingredient %q (%s)", ing, term)
		}
	}

	g.log.Info("gpt: generated %q (%d steps)", recipe.Title, len(recipe.Steps))
	return recipe, nil
}

// decodeRecipe parses a model reply, tolerating code fences and chatter
// around the JSON object.
func decodeRecipe(raw string) (*domain.Recipe, error) {
	s := extractObject(stripCodeFence(raw))

	var r domain.Recipe
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("gpt: decoding recipe: %w", err)
	}

	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return nil, fmt.Errorf("gpt: recipe has no title")
	}

	steps := r.Steps[:0]
	for _, st := range r.Steps {
		st.Text = strings.TrimSpace(st.Text)
		if st.Text == "" {
			continue
		}
		if st.TimerSeconds < 0 {
			st.TimerSeconds = 0
		}
		st.TimerLabel = strings.TrimSpace(st.TimerLabel)
		steps = append(steps, st)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("gpt: recipe %q has no steps", r.Title)
	}
	r.Steps = steps

	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Tips == nil {
		r.Tips = []string{}
	}
	return &r, nil
}

// stripCodeFence removes ```json ... ``` wrappers that models sometimes add
// despite being told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// extractObject trims anything before the first '{' and after the last '}'.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
