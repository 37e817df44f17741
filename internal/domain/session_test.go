package domain

import "testing"

func testRecipe() *Recipe {
	return &Recipe{
		Title: "Test Dal",
		Steps: []Step{
			{Text: "Rinse lentils."},
			{Text: "Boil.", TimerSeconds: 600, TimerLabel: "boil dal"},
			{Text: "Temper spices."},
		},
	}
}

func TestPreferenceCollection(t *testing.T) {
	s := NewSession("u1")
	if s.AwaitingAnswer() {
		t.Fatal("new session should not await answers")
	}

	s.RecordAnswer("ignored")
	if s.Pending != nil {
		t.Fatal("RecordAnswer without collection must be a no-op")
	}

	s.StartPreferenceCollection()
	for i, a := range []string{" 2 ", "5", "north"} {
		if s.IsCollectionComplete(3) {
			t.Fatalf("complete too early at answer %d", i)
		}
		s.RecordAnswer(a)
	}
	if !s.IsCollectionComplete(3) {
		t.Fatal("expected collection complete after 3 answers")
	}
	if s.Pending.Answers[0] != "2" {
		t.Fatalf("answers should be trimmed, got %q", s.Pending.Answers[0])
	}

	s.ClearCollection()
	if s.AwaitingAnswer() {
		t.Fatal("expected no pending questions after clear")
	}
}

func TestStepCursor(t *testing.T) {
	s := NewSession("u1")
	if _, ok := s.CurrentStep(); ok {
		t.Fatal("no recipe means no current step")
	}

	r := testRecipe()
	s.LastRecipe = r
	if !s.RecipeOffered() {
		t.Fatal("recipe set and not in step mode should count as offered")
	}

	s.EnterStepMode(r)
	if s.RecipeOffered() {
		t.Fatal("step mode means the offer was taken")
	}
	step, ok := s.CurrentStep()
	if !ok || step.Text != "Rinse lentils." {
		t.Fatalf("expected first step, got %+v", step)
	}

	for i := 1; i < len(r.Steps); i++ {
		step, ok = s.AdvanceStep()
		if !ok {
			t.Fatalf("advance %d: expected a step", i)
		}
		if step.Text != r.Steps[i].Text {
			t.Fatalf("advance %d: got %q", i, step.Text)
		}
	}

	if _, ok := s.AdvanceStep(); ok {
		t.Fatal("expected no step past the end")
	}
	if _, ok := s.AdvanceStep(); ok {
		t.Fatal("cursor must stay past the end")
	}
	if s.StepCursor != len(r.Steps) {
		t.Fatalf("cursor = %d, want %d", s.StepCursor, len(r.Steps))
	}
}

func TestResetConversationArtifacts(t *testing.T) {
	s := NewSession("u1")
	s.UserName = "Asha"
	s.Preferences = &Preferences{NumberOfPeople: 2, Allergies: []string{}, Dislikes: []string{}}
	s.EnterStepMode(testRecipe())
	s.StepCursor = 2
	s.ExpectingFeedback = true

	s.ResetConversationArtifacts()

	if s.LastRecipe != nil || s.InStepMode || s.StepCursor != 0 || s.ExpectingFeedback {
		t.Fatalf("artifacts not cleared: %+v", s)
	}
	if s.Preferences == nil || s.UserName != "Asha" {
		t.Fatal("preferences and name must survive a reset")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSession("u1")
	s.Preferences = &Preferences{Allergies: []string{"nuts"}, Dislikes: []string{}}
	s.LastRecipe = testRecipe()
	s.StartPreferenceCollection()
	s.RecordAnswer("3")

	c := s.Clone()
	c.Preferences.Allergies[0] = "dairy"
	c.LastRecipe.Steps[0].Text = "changed"
	c.Pending.Answers[0] = "9"

	if s.Preferences.Allergies[0] != "nuts" {
		t.Fatal("clone shares allergies")
	}
	if s.LastRecipe.Steps[0].Text != "Rinse lentils." {
		t.Fatal("clone shares steps")
	}
	if s.Pending.Answers[0] != "3" {
		t.Fatal("clone shares answers")
	}
}

func TestPreferencesAvoids(t *testing.T) {
	p := &Preferences{Allergies: []string{"peanut"}, Dislikes: []string{"okra"}}

	tests := []struct {
		ingredient string
		wantTerm   string
		wantHit    bool
	}{
		{"Peanut oil 2 tbsp", "peanut", true},
		{"Okra 200g", "okra", true},
		{"Tomatoes 500g", "", false},
	}
	for _, tt := range tests {
		term, hit := p.Avoids(tt.ingredient)
		if hit != tt.wantHit || term != tt.wantTerm {
			t.Errorf("Avoids(%q) = %q,%v want %q,%v", tt.ingredient, term, hit, tt.wantTerm, tt.wantHit)
		}
	}
}

func TestCapabilityString(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Capabilities {
		name := c.String()
		if name == "unknown" {
			t.Fatalf("capability %d has no name", c)
		}
		if seen[name] {
			t.Fatalf("duplicate capability name %q", name)
		}
		seen[name] = true
	}
}
