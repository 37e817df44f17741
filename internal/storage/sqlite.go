package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
)

// Compile-time interface check.
var _ domain.Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	profile JSON
);
CREATE TABLE IF NOT EXISTS recipes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT,
	title TEXT,
	payload JSON,
	created_at INTEGER
);
CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT,
	recipe_title TEXT,
	score INTEGER,
	comment TEXT,
	created_at INTEGER
);
CREATE TABLE IF NOT EXISTS timers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT,
	label TEXT,
	wake_at INTEGER,
	fired INTEGER DEFAULT 0
);
CREATE INDEX IF NOT EXISTS timers_due ON timers (fired, wake_at);
`

// SQLiteStore persists everything in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logger.Logger
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, log *logger.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	log.Debug("sqlite store ready at %s", path)
	return &SQLiteStore{db: db, log: log}, nil
}

// profileRecord is the JSON stored in users.profile.
type profileRecord struct {
	Name        string             `json:"name"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Preferences *preferencesRecord `json:"preferences,omitempty"`
}

type preferencesRecord struct {
	NumberOfPeople int      `json:"number_of_people"`
	SpiceLevel     int      `json:"spice_level"`
	Region         string   `json:"region"`
	PreferenceType string   `json:"preference_type"`
	Allergies      []string `json:"allergies"`
	Dislikes       []string `json:"dislikes"`
}

func toRecord(p domain.Profile) profileRecord {
	rec := profileRecord{Name: p.Name, UpdatedAt: p.UpdatedAt}
	if p.Preferences != nil {
		rec.Preferences = &preferencesRecord{
			NumberOfPeople: p.Preferences.NumberOfPeople,
			SpiceLevel:     p.Preferences.SpiceLevel,
			Region:         p.Preferences.Region.String(),
			PreferenceType: p.Preferences.PreferenceType.String(),
			Allergies:      p.Preferences.Allergies,
			Dislikes:       p.Preferences.Dislikes,
		}
	}
	return rec
}

func fromRecord(userID string, rec profileRecord) *domain.Profile {
	p := &domain.Profile{UserID: userID, Name: rec.Name, UpdatedAt: rec.UpdatedAt}
	if r := rec.Preferences; r != nil {
		region, _ := domain.ParseRegion(r.Region)
		ptype, _ := domain.ParsePreferenceType(r.PreferenceType)
		p.Preferences = &domain.Preferences{
			NumberOfPeople: r.NumberOfPeople,
			SpiceLevel:     r.SpiceLevel,
			Region:         region,
			PreferenceType: ptype,
			Allergies:      nonNil(r.Allergies),
			Dislikes:       nonNil(r.Dislikes),
		}
	}
	return p
}

// SaveProfile upserts the user's profile.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p domain.Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	payload, err := json.Marshal(toRecord(p))
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, profile) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile`,
		p.UserID, string(payload))
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", p.UserID, err)
	}
	return nil
}

// LoadProfile returns the profile for userID or domain.ErrNotFound.
func (s *SQLiteStore) LoadProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT profile FROM users WHERE user_id = ?`, userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", userID, err)
	}

	var rec profileRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", userID, err)
	}
	return fromRecord(userID, rec), nil
}

// AppendRecipe stores the recipe as JSON.
func (s *SQLiteStore) AppendRecipe(ctx context.Context, userID string, r domain.Recipe) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding recipe: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recipes (user_id, title, payload, created_at) VALUES (?, ?, ?, ?)`,
		userID, r.Title, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("saving recipe: %w", err)
	}
	return nil
}

// Recipes returns the recipes stored for userID, oldest first.
func (s *SQLiteStore) Recipes(ctx context.Context, userID string) ([]domain.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM recipes WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipe
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		var r domain.Recipe
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decoding recipe: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendFeedback stores a feedback row.
func (s *SQLiteStore) AppendFeedback(ctx context.Context, f domain.Feedback) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (user_id, recipe_title, score, comment, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.UserID, f.RecipeTitle, f.Score, f.Comment, f.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("saving feedback: %w", err)
	}
	return nil
}

// Schedule inserts an unfired timer. WakeAt is rounded up to whole seconds.
func (s *SQLiteStore) Schedule(ctx context.Context, userID, label string, wakeAt time.Time) (*domain.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wake := wakeSecond(wakeAt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO timers (user_id, label, wake_at, fired) VALUES (?, ?, ?, 0)`,
		userID, label, wake.Unix())
	if err != nil {
		return nil, fmt.Errorf("scheduling timer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading timer id: %w", err)
	}

	s.log.Debug("scheduled timer %d %q for %s", id, label, userID)
	return &domain.Timer{
		ID:     id,
		UserID: userID,
		Label:  label,
		WakeAt: wake,
	}, nil
}

// PollDue flips every due timer to fired and returns them in one
// statement, so two pollers never claim the same row.
func (s *SQLiteStore) PollDue(ctx context.Context, now time.Time) ([]domain.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`UPDATE timers SET fired = 1
		 WHERE fired = 0 AND wake_at <= ?
		 RETURNING id, user_id, label, wake_at`,
		now.Unix())
	if err != nil {
		return nil, fmt.Errorf("polling due timers: %w", err)
	}
	defer rows.Close()

	var due []domain.Timer
	for rows.Next() {
		t, err := scanTimer(rows, true)
		if err != nil {
			return nil, err
		}
		due = append(due, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("polling due timers: %w", err)
	}
	sortTimers(due)
	return due, nil
}

// Timers returns all timers for userID ordered by wake time.
func (s *SQLiteStore) Timers(ctx context.Context, userID string) ([]domain.Timer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, label, wake_at, fired FROM timers WHERE user_id = ? ORDER BY wake_at, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("listing timers: %w", err)
	}
	defer rows.Close()

	var out []domain.Timer
	for rows.Next() {
		var (
			t      domain.Timer
			wakeAt int64
			fired  int
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Label, &wakeAt, &fired); err != nil {
			return nil, fmt.Errorf("scanning timer: %w", err)
		}
		t.WakeAt = time.Unix(wakeAt, 0)
		t.Fired = fired != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanTimer(rows *sql.Rows, fired bool) (domain.Timer, error) {
	var (
		t      domain.Timer
		wakeAt int64
	)
	if err := rows.Scan(&t.ID, &t.UserID, &t.Label, &wakeAt); err != nil {
		return domain.Timer{}, fmt.Errorf("scanning timer: %w", err)
	}
	t.WakeAt = time.Unix(wakeAt, 0)
	t.Fired = fired
	return t, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
