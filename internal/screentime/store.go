package screentime

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Session is one contiguous span of foreground use for a single app.
type Session struct {
	App   string
	Start time.Time
	Stop  time.Time
}

// Summary is the per-day usage report sent to the screentime endpoint.
type Summary struct {
	Date           string            `json:"date"`
	Apps           map[string]int    `json:"apps"`
	Formatted      map[string]string `json:"formatted"`
	Total          int               `json:"total"`
	FormattedTotal string            `json:"formatted_total"`
}

// Store persists finished sessions in SQLite. In-flight sessions live in a
// separate table so a start mark survives process restarts; starting an app
// twice replaces the earlier mark.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

const createSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	app        TEXT    NOT NULL,
	start_unix INTEGER NOT NULL,
	stop_unix  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS active (
	app        TEXT PRIMARY KEY,
	start_unix INTEGER NOT NULL
)`

// Open opens or creates the session database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec(createSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartSession marks app as in the foreground now.
func (s *Store) StartSession(app string) error {
	return s.StartSessionAt(app, time.Now())
}

// StartSessionAt is StartSession with an explicit clock, for callers that
// replay recorded activity.
func (s *Store) StartSessionAt(app string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"INSERT INTO active (app, start_unix) VALUES (?, ?) ON CONFLICT(app) DO UPDATE SET start_unix = excluded.start_unix",
		app, at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark session start: %w", err)
	}
	return nil
}

// StopSession closes the in-flight session for app and persists it. Stopping
// an app that was never started is a no-op.
func (s *Store) StopSession(app string) error {
	return s.StopSessionAt(app, time.Now())
}

// StopSessionAt is StopSession with an explicit clock.
func (s *Store) StopSessionAt(app string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var start int64
	err := s.db.QueryRow("SELECT start_unix FROM active WHERE app = ?", app).Scan(&start)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up session start: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM active WHERE app = ?", app); err != nil {
		return fmt.Errorf("failed to clear session start: %w", err)
	}
	return s.addSessionLocked(Session{App: app, Start: time.Unix(start, 0), Stop: at})
}

// AddSession records a finished session. Sessions that do not move time
// forward are dropped.
func (s *Store) AddSession(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSessionLocked(sess)
}

func (s *Store) addSessionLocked(sess Session) error {
	if !sess.Stop.After(sess.Start) {
		return nil
	}
	_, err := s.db.Exec(
		"INSERT INTO sessions (app, start_unix, stop_unix) VALUES (?, ?, ?)",
		sess.App, sess.Start.Unix(), sess.Stop.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// SessionsOn returns the sessions that started on the given day, oldest
// first.
func (s *Store) SessionsOn(day time.Time) ([]Session, error) {
	from, to := dayBounds(day)
	rows, err := s.db.Query(
		"SELECT app, start_unix, stop_unix FROM sessions WHERE start_unix >= ? AND start_unix < ? ORDER BY start_unix",
		from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var start, stop int64
		if err := rows.Scan(&sess.App, &start, &stop); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		sess.Start = time.Unix(start, 0)
		sess.Stop = time.Unix(stop, 0)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return sessions, nil
}

// Summarize builds the per-app usage report for the given day. Each app's
// seconds are summed first and rounded up to whole minutes once, so many
// short sessions do not each cost a minute.
func (s *Store) Summarize(day time.Time) (Summary, error) {
	sessions, err := s.SessionsOn(day)
	if err != nil {
		return Summary{}, err
	}

	secondsPerApp := make(map[string]int)
	for _, sess := range sessions {
		secondsPerApp[sess.App] += int(sess.Stop.Sub(sess.Start).Seconds())
	}

	apps := make(map[string]int, len(secondsPerApp))
	formatted := make(map[string]string, len(secondsPerApp)+1)
	total := 0
	for app, secs := range secondsPerApp {
		minutes := int(math.Ceil(float64(secs) / 60.0))
		apps[app] = minutes
		formatted[app] = FormatMinutes(minutes)
		total += minutes
	}
	formatted["Total"] = FormatMinutes(total)

	from, _ := dayBounds(day)
	return Summary{
		Date:           from.Format("2006-01-02"),
		Apps:           apps,
		Formatted:      formatted,
		Total:          total,
		FormattedTotal: FormatMinutes(total),
	}, nil
}

// ClearDay deletes the sessions that started on the given day.
func (s *Store) ClearDay(day time.Time) error {
	from, to := dayBounds(day)
	_, err := s.db.Exec(
		"DELETE FROM sessions WHERE start_unix >= ? AND start_unix < ?",
		from.Unix(), to.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}

// FormatMinutes renders a minute count the way the report displays it.
func FormatMinutes(min int) string {
	if min >= 60 {
		return fmt.Sprintf("%dh %dm", min/60, min%60)
	}
	return fmt.Sprintf("%dm", min)
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return from, from.Add(24 * time.Hour)
}
