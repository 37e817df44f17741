package domain

import "strings"

// Session is the conversational state of one user. It is owned by a single
// conversation and mutated only by capability handlers.
type Session struct {
	UserID            string
	UserName          string
	Preferences       *Preferences
	LastRecipe        *Recipe
	Pending           *PendingQuestions
	InStepMode        bool
	StepCursor        int
	ExpectingFeedback bool
}

// PendingQuestions tracks an in-progress preference questionnaire.
// Index is the next question to ask; Answers holds raw replies in order.
type PendingQuestions struct {
	Index   int
	Answers []string
}

// NewSession returns an empty session for the given user.
func NewSession(userID string) *Session {
	return &Session{UserID: userID}
}

// StartPreferenceCollection resets the questionnaire to the first question.
func (s *Session) StartPreferenceCollection() {
	s.Pending = &PendingQuestions{}
}

// AwaitingAnswer reports whether a questionnaire is in progress.
func (s *Session) AwaitingAnswer() bool {
	return s.Pending != nil
}

// RecordAnswer appends the trimmed answer and moves to the next question.
// It is a no-op when no questionnaire is in progress.
func (s *Session) RecordAnswer(text string) {
	if s.Pending == nil {
		return
	}
	s.Pending.Answers = append(s.Pending.Answers, strings.TrimSpace(text))
	s.Pending.Index++
}

// IsCollectionComplete reports whether all total questions have been answered.
func (s *Session) IsCollectionComplete(total int) bool {
	return s.Pending != nil && s.Pending.Index >= total
}

// ClearCollection drops the questionnaire.
func (s *Session) ClearCollection() {
	s.Pending = nil
}

// RecipeOffered reports whether a recipe was presented and step-by-step
// guidance has not started yet.
func (s *Session) RecipeOffered() bool {
	return s.LastRecipe != nil && !s.InStepMode
}

// EnterStepMode starts guidance for recipe at the first step.
func (s *Session) EnterStepMode(recipe *Recipe) {
	s.LastRecipe = recipe
	s.InStepMode = true
	s.StepCursor = 0
	s.ExpectingFeedback = false
}

// CurrentStep returns the step under the cursor.
func (s *Session) CurrentStep() (*Step, bool) {
	if s.LastRecipe == nil || s.StepCursor < 0 || s.StepCursor >= len(s.LastRecipe.Steps) {
		return nil, false
	}
	return &s.LastRecipe.Steps[s.StepCursor], true
}

// AdvanceStep moves the cursor forward and returns the new current step.
// When the cursor runs past the last step it returns false and the cursor
// stays at len(Steps).
func (s *Session) AdvanceStep() (*Step, bool) {
	if s.LastRecipe == nil {
		return nil, false
	}
	if s.StepCursor < len(s.LastRecipe.Steps) {
		s.StepCursor++
	}
	return s.CurrentStep()
}

// ResetConversationArtifacts forgets the recipe and all step-mode state.
// Preferences and identity survive.
func (s *Session) ResetConversationArtifacts() {
	s.LastRecipe = nil
	s.InStepMode = false
	s.StepCursor = 0
	s.ExpectingFeedback = false
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	if s.Preferences != nil {
		p := *s.Preferences
		p.Allergies = append([]string{}, s.Preferences.Allergies...)
		p.Dislikes = append([]string{}, s.Preferences.Dislikes...)
		c.Preferences = &p
	}
	if s.LastRecipe != nil {
		r := *s.LastRecipe
		r.Ingredients = append([]string(nil), s.LastRecipe.Ingredients...)
		r.Steps = append([]Step(nil), s.LastRecipe.Steps...)
		r.Tips = append([]string(nil), s.LastRecipe.Tips...)
		c.LastRecipe = &r
	}
	if s.Pending != nil {
		c.Pending = &PendingQuestions{
			Index:   s.Pending.Index,
			Answers: append([]string(nil), s.Pending.Answers...),
		}
	}
	return &c
}
