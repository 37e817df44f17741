package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Sanny1998/Virtual-chef/internal/conversation"
	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/guard"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
	"github.com/Sanny1998/Virtual-chef/internal/metrics"
	"github.com/Sanny1998/Virtual-chef/internal/preference"
	"github.com/Sanny1998/Virtual-chef/internal/storage"
)

var testNow = time.Unix(1_700_000_000, 0)

// stubGenerator returns a fixed recipe or error.
type stubGenerator struct {
	mu     sync.Mutex
	recipe *domain.Recipe
	err    error
	block  bool
	calls  int
}

func (g *stubGenerator) Generate(ctx context.Context, _ domain.Preferences) (*domain.Recipe, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	r := *g.recipe
	return &r, nil
}

// flakyStore fails selected operations.
type flakyStore struct {
	*storage.MemoryStore
	scheduleErr error
	recipeErr   error
}

func (s *flakyStore) Schedule(ctx context.Context, userID, label string, wakeAt time.Time) (*domain.Timer, error) {
	if s.scheduleErr != nil {
		return nil, s.scheduleErr
	}
	return s.MemoryStore.Schedule(ctx, userID, label, wakeAt)
}

func (s *flakyStore) AppendRecipe(ctx context.Context, userID string, r domain.Recipe) error {
	if s.recipeErr != nil {
		return s.recipeErr
	}
	return s.MemoryStore.AppendRecipe(ctx, userID, r)
}

func dalRecipe() *domain.Recipe {
	return &domain.Recipe{
		Title:        "Dal Tadka (serves 2)",
		CulturalNote: "Everyday lentils from the north.",
		Ingredients:  []string{"Toor dal 1 cup", "Ghee 1 tbsp", "Cumin 1 tsp"},
		Steps: []domain.Step{
			{Text: "Rinse the dal."},
			{Text: "Pressure cook the dal.", TimerSeconds: 300, TimerLabel: "cook dal"},
			{Text: "Temper cumin in ghee. Pour over the dal."},
		},
		Tips: []string{"Finish with lemon."},
	}
}

func testPrefs() *domain.Preferences {
	return &domain.Preferences{
		NumberOfPeople: 2,
		SpiceLevel:     5,
		Region:         domain.RegionNorth,
		PreferenceType: domain.PreferenceNone,
		Allergies:      []string{},
		Dislikes:       []string{},
	}
}

type fixture struct {
	eng   *Engine
	store *storage.MemoryStore
	gen   *stubGenerator
	reg   *prometheus.Registry
}

func setupEngine(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	store := storage.NewMemoryStore(log)
	return setupEngineWithStore(t, store, store, opts...)
}

func setupEngineWithStore(t *testing.T, mem *storage.MemoryStore, store domain.Store, opts ...Option) *fixture {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	g := guard.Default()
	gen := &stubGenerator{recipe: dalRecipe()}
	reg := prometheus.NewRegistry()

	opts = append([]Option{
		WithMetrics(metrics.New(reg)),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	eng := New(conversation.NewRouter(g, log), g, gen, store, log, opts...)
	return &fixture{eng: eng, store: mem, gen: gen, reg: reg}
}

func (f *fixture) turn(t *testing.T, s *domain.Session, msg string) Turn {
	t.Helper()
	turn, err := f.eng.RunTurn(context.Background(), s, msg)
	if err != nil {
		t.Fatalf("turn %q: %v", msg, err)
	}
	if turn.Reply == "" {
		t.Fatalf("turn %q: empty reply", msg)
	}
	return turn
}

func TestGreetingLeavesSessionAlone(t *testing.T) {
	f := setupEngine(t)
	s := domain.NewSession("u1")
	before := *s

	turn := f.turn(t, s, "hi")
	if turn.Decision.Capability != domain.CapabilityGreeting {
		t.Fatalf("expected greeting, got %s", turn.Decision.Capability)
	}
	if !strings.Contains(turn.Reply, "friend") {
		t.Fatalf("expected default name in %q", turn.Reply)
	}
	if *s != before {
		t.Fatalf("session changed: %+v", s)
	}

	s.UserName = "Asha"
	if turn := f.turn(t, s, "hello there"); !strings.Contains(turn.Reply, "Asha") {
		t.Fatalf("expected name in %q", turn.Reply)
	}
}

func TestCookWithoutPreferencesStartsQuestions(t *testing.T) {
	f := setupEngine(t)
	s := domain.NewSession("u1")

	turn := f.turn(t, s, "I want to cook")
	if turn.Decision.Capability != domain.CapabilityPreference {
		t.Fatalf("expected preference, got %s", turn.Decision.Capability)
	}
	if turn.Reply != preference.Questions[0].Prompt {
		t.Fatalf("expected first question, got %q", turn.Reply)
	}
	if !s.AwaitingAnswer() || s.Pending.Index != 0 {
		t.Fatalf("expected questionnaire at 0, got %+v", s.Pending)
	}

	turn = f.turn(t, s, "2")
	if turn.Reply != preference.Questions[1].Prompt {
		t.Fatalf("expected second question, got %q", turn.Reply)
	}
	if s.Pending.Index != 1 {
		t.Fatalf("expected index 1, got %d", s.Pending.Index)
	}
}

func TestPreferenceQuestionnaire(t *testing.T) {
	f := setupEngine(t)
	s := domain.NewSession("u1")
	s.UserName = "Asha"

	f.turn(t, s, "let's begin")
	answers := []string{"2", "5", "North", "cooking time", "Peanuts, Dairy ,", "none"}
	var turn Turn
	for _, a := range answers {
		turn = f.turn(t, s, a)
	}

	if turn.Reply != replyPrefsSaved {
		t.Fatalf("expected saved reply, got %q", turn.Reply)
	}
	if s.AwaitingAnswer() {
		t.Fatal("questionnaire should be cleared")
	}
	p := s.Preferences
	if p == nil || p.NumberOfPeople != 2 || p.Region != domain.RegionNorth || p.PreferenceType != domain.PreferenceCookingTime {
		t.Fatalf("unexpected preferences %+v", p)
	}
	if strings.Join(p.Allergies, ",") != "peanuts,dairy" || len(p.Dislikes) != 0 {
		t.Fatalf("unexpected lists %v %v", p.Allergies, p.Dislikes)
	}

	profile, err := f.store.LoadProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("profile not saved: %v", err)
	}
	if profile.Name != "Asha" || profile.Preferences == nil || profile.Preferences.SpiceLevel != 5 {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestBlankAnswerRepeatsQuestion(t *testing.T) {
	f := setupEngine(t)
	s := domain.NewSession("u1")

	f.turn(t, s, "I want to cook")
	f.turn(t, s, "2")
	if s.Pending.Index != 1 {
		t.Fatalf("expected index 1, got %d", s.Pending.Index)
	}

	turn := f.turn(t, s, "   ")
	if turn.Reply != preference.Questions[1].Prompt {
		t.Fatalf("expected the same question again, got %q", turn.Reply)
	}
	if s.Pending.Index != 1 || len(s.Pending.Answers) != 1 {
		t.Fatalf("blank answer must not be recorded, got %+v", s.Pending)
	}

	var last Turn
	for _, a := range []string{"3", "south", "cuisine", "none", "none"} {
		last = f.turn(t, s, a)
	}
	if last.Reply != replyPrefsSaved {
		t.Fatalf("expected saved reply, got %q", last.Reply)
	}
	if s.Preferences.NumberOfPeople != 2 || s.Preferences.SpiceLevel != 3 {
		t.Fatalf("answers shifted: %+v", s.Preferences)
	}
}

func TestPreferenceErrorResetsQuestionnaire(t *testing.T) {
	f := setupEngine(t)
	s := domain.NewSession("u1")

	f.turn(t, s, "start")
	var turn Turn
	for _, a := range []string{"99", "5", "north", "none", "none", "none"} {
		turn = f.turn(t, s, a)
	}
	if !strings.HasPrefix(turn.Reply, "Preference error:") || !strings.Contains(turn.Reply, "number_of_people") {
		t.Fatalf("unexpected reply %q", turn.Reply)
	}
	if s.Preferences != nil || s.AwaitingAnswer() {
		t.Fatalf("expected clean slate, got %+v", s)
	}

	turn = f.turn(t, s, "again")
	if turn.Reply != preference.Questions[0].Prompt {
		t.Fatalf("expected restart, got %q", turn.Reply)
	}
}

func TestRecipeAndStepWalk(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	s := domain.NewSession("u1")
	s.Preferences = testPrefs()

	turn := f.turn(t, s, "make me a recipe")
	if turn.Decision.Capability != domain.CapabilityRecipe {
		t.Fatalf("expected recipe, got %s", turn.Decision.Capability)
	}
	for _, want := range []string{"Dal Tadka", "Cultural note:", "Ingredients:", "- Ghee 1 tbsp", "Method:", "2. Pressure cook the dal. [timer: cook dal, 5m]", "Tips:", replyOfferSteps} {
		if !strings.Contains(turn.Reply, want) {
			t.Fatalf("reply missing %q:\n%s", want, turn.Reply)
		}
	}
	if s.LastRecipe == nil || s.LastRecipe.Title != "Dal Tadka (serves 2)" {
		t.Fatalf("last recipe not set: %+v", s.LastRecipe)
	}
	if got := f.store.Recipes("u1"); len(got) != 1 {
		t.Fatalf("expected 1 stored recipe, got %d", len(got))
	}

	turn = f.turn(t, s, "yes")
	if turn.Decision.Capability != domain.CapabilityStep {
		t.Fatalf("expected step, got %s", turn.Decision.Capability)
	}
	if !s.InStepMode || s.StepCursor != 0 {
		t.Fatalf("expected step mode at 0, got %+v", s)
	}
	if !strings.Contains(turn.Reply, "Step 1/3: Rinse the dal.") {
		t.Fatalf("unexpected reply %q", turn.Reply)
	}
	if len(turn.Timers) != 1 {
		t.Fatalf("expected 1 timer, got %d", len(turn.Timers))
	}
	timers, err := f.store.Timers(ctx, "u1")
	if err != nil {
		t.Fatalf("listing timers: %v", err)
	}
	if len(timers) != 1 || timers[0].Label != "cook dal" || !timers[0].WakeAt.Equal(testNow.Add(300*time.Second)) {
		t.Fatalf("unexpected timers %+v", timers)
	}

	if turn := f.turn(t, s, "next"); !strings.Contains(turn.Reply, "Step 2/3") {
		t.Fatalf("unexpected reply %q", turn.Reply)
	}
	if turn := f.turn(t, s, "repeat"); !strings.Contains(turn.Reply, "Step 2/3: Pressure cook") {
		t.Fatalf("unexpected reply %q", turn.Reply)
	}
	f.turn(t, s, "n")
	turn = f.turn(t, s, "slow")
	if !strings.Contains(turn.Reply, "Temper cumin in ghee.\nPour over the dal.") {
		t.Fatalf("unexpected slow reply %q", turn.Reply)
	}

	turn = f.turn(t, s, "next")
	if turn.Reply != replyAskFeedback || !s.ExpectingFeedback {
		t.Fatalf("expected feedback prompt, got %q (expecting=%v)", turn.Reply, s.ExpectingFeedback)
	}

	turn = f.turn(t, s, "3 too salty")
	if turn.Decision.Capability != domain.CapabilityFeedback {
		t.Fatalf("expected feedback, got %s", turn.Decision.Capability)
	}
	if turn.Reply != replyFeedbackThanks {
		t.Fatalf("unexpected reply %q", turn.Reply)
	}
	fb := f.store.Feedback()
	if len(fb) != 1 || fb[0].Score != 3 || fb[0].Comment != "too salty" || fb[0].RecipeTitle != "Dal Tadka (serves 2)" {
		t.Fatalf("unexpected feedback %+v", fb)
	}
	if s.LastRecipe != nil || s.InStepMode || s.ExpectingFeedback {
		t.Fatalf("expected artifacts cleared, got %+v", s)
	}
	if s.Preferences == nil {
		t.Fatal("preferences should survive feedback")
	}
}

func TestFeedbackFormat(t *testing.T) {
	f := setupEngine(t)
	s := domain.NewSession("u1")
	s.Preferences = testPrefs()
	s.EnterStepMode(dalRecipe())
	s.StepCursor = 3
	s.ExpectingFeedback = true

	for _, msg := range []string{"great", "0 meh", "6 amazing"} {
		turn := f.turn(t, s, msg)
		if turn.Reply != replyFeedbackFormat {
			t.Fatalf("%q: unexpected reply %q", msg, turn.Reply)
		}
		if !s.ExpectingFeedback || s.LastRecipe == nil {
			t.Fatalf("%q: session should be untouched", msg)
		}
	}
	if len(f.store.Feedback()) != 0 {
		t.Fatal("no feedback should be stored")
	}
}

func TestGenerationFailureServesFallback(t *testing.T) {
	f := setupEngine(t)
	f.gen.err = errors.New("service unavailable")
	s := domain.NewSession("u1")
	s.Preferences = testPrefs()

	turn := f.turn(t, s, "cook something")
	if !strings.Contains(turn.Reply, "Simple Tomato Curry") {
		t.Fatalf("expected fallback recipe, got %q", turn.Reply)
	}
	stored := f.store.Recipes("u1")
	if len(stored) != 1 || stored[0].Title != "Simple Tomato Curry" {
		t.Fatalf("expected fallback stored, got %+v", stored)
	}

	turn = f.turn(t, s, "sure")
	if len(turn.Timers) != 2 {
		t.Fatalf("expected 2 fallback timers, got %d", len(turn.Timers))
	}
	if !strings.Contains(turn.Reply, "Chop vegetables.") {
		t.Fatalf("expected fallback step, got %q", turn.Reply)
	}

	expected := `
# HELP virtualchef_generation_fallbacks_total Recipe generations replaced by the fallback recipe
# TYPE virtualchef_generation_fallbacks_total counter
virtualchef_generation_fallbacks_total{reason="error"} 1
`
	if err := testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "virtualchef_generation_fallbacks_total"); err != nil {
		t.Fatal(err)
	}
}

func TestGenerationTimeoutServesFallback(t *testing.T) {
	f := setupEngine(t, WithGenerationTimeout(20*time.Millisecond))
	f.gen.block = true
	s := domain.NewSession("u1")
	s.Preferences = testPrefs()

	turn := f.turn(t, s, "recipe please")
	if !strings.Contains(turn.Reply, "Simple Tomato Curry") {
		t.Fatalf("expected fallback recipe, got %q", turn.Reply)
	}
}

func TestNilGeneratorServesFallback(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := storage.NewMemoryStore(log)
	eng := New(conversation.NewRouter(nil, log), nil, nil, store, log)
	s := domain.NewSession("u1")
	s.Preferences = testPrefs()

	turn, err := eng.RunTurn(context.Background(), s, "make dinner")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if s.LastRecipe == nil || s.LastRecipe.Title != "Simple Tomato Curry" {
		t.Fatalf("expected fallback, got %q", turn.Reply)
	}
}

func TestRecipeWithoutPreferencesHandsOff(t *testing.T) {
	f := setupEngine(t)
	s := domain.NewSession("u1")

	out, err := f.eng.dispatch(context.Background(), domain.CapabilityRecipe, s, "make", conversation.Decision{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !out.handoff || out.next != domain.CapabilityPreference || out.reply != replyNeedPrefs {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if f.gen.calls != 0 {
		t.Fatal("generator should not be called")
	}
}

func TestStepWithoutRecipe(t *testing.T) {
	f := setupEngine(t)
	s := domain.NewSession("u1")
	s.Preferences = testPrefs()

	out, err := f.eng.dispatch(context.Background(), domain.CapabilityStep, s, "yes", conversation.Decision{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.reply != replyNoRecipe {
		t.Fatalf("unexpected reply %q", out.reply)
	}
}

func TestSchedulingFailureKeepsStepModeOff(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	mem := storage.NewMemoryStore(log)
	store := &flakyStore{MemoryStore: mem, scheduleErr: errors.New("disk full")}
	f := setupEngineWithStore(t, mem, store)
	s := domain.NewSession("u1")
	s.Preferences = testPrefs()
	s.LastRecipe = dalRecipe()

	turn, err := f.eng.RunTurn(context.Background(), s, "yes")
	if err == nil {
		t.Fatal("expected scheduling error")
	}
	if turn.Reply == "" || !strings.Contains(turn.Reply, "timers") {
		t.Fatalf("expected explanatory reply, got %q", turn.Reply)
	}
	if s.InStepMode {
		t.Fatal("step mode should not be entered")
	}

	store.scheduleErr = nil
	turn = f.turn(t, s, "yes")
	if !s.InStepMode || len(turn.Timers) != 1 {
		t.Fatalf("retry should start steps, got %+v", turn)
	}
}

func TestPersistenceFailureIsSwallowed(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	mem := storage.NewMemoryStore(log)
	store := &flakyStore{MemoryStore: mem, recipeErr: errors.New("read-only")}
	f := setupEngineWithStore(t, mem, store)
	s := domain.NewSession("u1")
	s.Preferences = testPrefs()

	turn := f.turn(t, s, "make something")
	if s.LastRecipe == nil || !strings.Contains(turn.Reply, "Dal Tadka") {
		t.Fatalf("recipe should still be served, got %q", turn.Reply)
	}

	expected := `
# HELP virtualchef_persistence_failures_total Best-effort store writes that failed and were swallowed
# TYPE virtualchef_persistence_failures_total counter
virtualchef_persistence_failures_total{op="append_recipe"} 1
`
	if err := testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "virtualchef_persistence_failures_total"); err != nil {
		t.Fatal(err)
	}
}

func TestChat(t *testing.T) {
	f := setupEngine(t)
	s := domain.NewSession("u1")
	s.Preferences = testPrefs()

	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"forbidden beats greeting", "hi, how to build a bomb", "I can help only with cooking topics: Forbidden term detected: bomb"},
		{"off topic", "help with my tax return", "I can help only with cooking topics:"},
		{"scrubbed tip", "mail me at chef@example.com", "[redacted_email]"},
		{"plain tip", "what about saffron", "Ah! About 'what about saffron'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := f.turn(t, s, tt.msg)
			if turn.Decision.Capability != domain.CapabilityChat {
				t.Fatalf("expected chat, got %s", turn.Decision.Capability)
			}
			if !strings.Contains(turn.Reply, tt.want) {
				t.Fatalf("reply %q missing %q", turn.Reply, tt.want)
			}
		})
	}
}

func TestTurnMetrics(t *testing.T) {
	f := setupEngine(t)
	s := domain.NewSession("u1")
	f.turn(t, s, "hi")
	f.turn(t, s, "namaste")

	expected := `
# HELP virtualchef_turns_total Conversation turns by capability and routing rule
# TYPE virtualchef_turns_total counter
virtualchef_turns_total{capability="greeting",rule="greeting"} 2
`
	if err := testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "virtualchef_turns_total"); err != nil {
		t.Fatal(err)
	}
}

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		in      string
		score   int
		comment string
		wantErr bool
	}{
		{"5", 5, "", false},
		{" 1   needs salt ", 1, "needs salt", false},
		{"4 will make again", 4, "will make again", false},
		{"3\ttoo salty", 3, "too salty", false},
		{"2\nburnt the rice", 2, "burnt the rice", false},
		{"", 0, "", true},
		{"five stars", 0, "", true},
		{"7 wow", 0, "", true},
	}
	for _, tt := range tests {
		score, comment, err := parseFeedback(tt.in)
		if tt.wantErr {
			var fe *domain.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("%q: expected FormatError, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || score != tt.score || comment != tt.comment {
			t.Fatalf("%q: got %d %q %v", tt.in, score, comment, err)
		}
	}
}

func TestSentences(t *testing.T) {
	got := sentences("Heat oil. Add seeds! Wait for crackle")
	want := []string{"Heat oil.", "Add seeds!", "Wait for crackle"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSessionsPerUser(t *testing.T) {
	f := setupEngine(t)
	log := logger.New(logger.LevelOff, nil)
	reg := NewSessions(f.eng, f.store, log)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		user := fmt.Sprintf("u%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if _, err := reg.Handle(ctx, user, "start"); err != nil {
					t.Errorf("handle: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		s, ok := reg.Snapshot(fmt.Sprintf("u%d", i))
		if !ok {
			t.Fatalf("missing session u%d", i)
		}
		// One turn starts the questionnaire, four record answers.
		if s.Pending == nil || len(s.Pending.Answers) != 4 {
			t.Fatalf("u%d: unexpected pending %+v", i, s.Pending)
		}
	}
	if _, ok := reg.Snapshot("nobody"); ok {
		t.Fatal("unexpected session")
	}
}

func TestSessionsNameRoundTrip(t *testing.T) {
	f := setupEngine(t)
	log := logger.New(logger.LevelOff, nil)
	ctx := context.Background()

	reg := NewSessions(f.eng, f.store, log)
	if err := reg.SetName(ctx, "u1", "Meera"); err != nil {
		t.Fatalf("set name: %v", err)
	}

	fresh := NewSessions(f.eng, f.store, log)
	turn, err := fresh.Handle(ctx, "u1", "hello")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(turn.Reply, "Meera") {
		t.Fatalf("expected stored name in %q", turn.Reply)
	}
}

func TestNewUserID(t *testing.T) {
	a, b := NewUserID(), NewUserID()
	if a == b || !strings.HasPrefix(a, "user-") {
		t.Fatalf("unexpected ids %q %q", a, b)
	}
}
