package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
)

// renderRecipe formats a recipe as plain text: title, cultural note,
// ingredients, numbered method and tips.
func renderRecipe(r *domain.Recipe) string {
	var b strings.Builder
	b.WriteString(r.Title + "\n")
	if r.CulturalNote != "" {
		b.WriteString("\nCultural note: " + r.CulturalNote + "\n")
	}

	b.WriteString("\nIngredients:\n")
	for _, ing := range r.Ingredients {
		b.WriteString("- " + ing + "\n")
	}

	b.WriteString("\nMethod:\n")
	for i, step := range r.Steps {
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, step.Text, timerNote(step))
	}

	if len(r.Tips) > 0 {
		b.WriteString("\nTips:\n")
		for _, tip := range r.Tips {
			b.WriteString("- " + tip + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// timerNote annotates a timed step, e.g. " [timer: simmer tomatoes, 5m]".
func timerNote(s domain.Step) string {
	if !s.HasTimer() {
		return ""
	}
	d := time.Duration(s.TimerSeconds) * time.Second
	return fmt.Sprintf(" [timer: %s, %s]", s.Label(), formatDuration(d))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
