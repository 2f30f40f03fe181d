package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Attempt outcomes.
const (
	OutcomePending  = "pending"
	OutcomeReleased = "released"
	OutcomeFailed   = "failed"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			seed INTEGER,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			anomaly_x INTEGER,
			anomaly_y INTEGER,
			target_x REAL,
			outcome TEXT NOT NULL,
			error TEXT
		);
		CREATE TABLE IF NOT EXISTS activity_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			attempt_id TEXT,
			action_type TEXT,
			metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS verifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			challenge_id TEXT,
			gap_x REAL,
			release_x REAL,
			passed BOOLEAN,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// StartAttempt records a new pending attempt and returns its id.
func (s *Store) StartAttempt(seed int64, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO attempts (id, seed, started_at, outcome) VALUES (?, ?, ?, ?)",
		id, seed, startedAt.UTC(), OutcomePending,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Result is what a finished attempt learned.
type Result struct {
	FinishedAt time.Time
	// Found is false when acquisition never ran or saw no anomaly.
	Found    bool
	AnomalyX int
	AnomalyY int
	TargetX  float64
	Outcome  string
	Err      error
}

func (s *Store) FinishAttempt(id string, r Result) error {
	var ax, ay sql.NullInt64
	var tx sql.NullFloat64
	if r.Found {
		ax = sql.NullInt64{Int64: int64(r.AnomalyX), Valid: true}
		ay = sql.NullInt64{Int64: int64(r.AnomalyY), Valid: true}
		tx = sql.NullFloat64{Float64: r.TargetX, Valid: true}
	}
	var msg sql.NullString
	if r.Err != nil {
		msg = sql.NullString{String: r.Err.Error(), Valid: true}
	}
	_, err := s.db.Exec(
		"UPDATE attempts SET finished_at = ?, anomaly_x = ?, anomaly_y = ?, target_x = ?, outcome = ?, error = ? WHERE id = ?",
		r.FinishedAt.UTC(), ax, ay, tx, r.Outcome, msg, id,
	)
	return err
}

func (s *Store) LogActivity(attemptID, actionType, metadata string) error {
	_, err := s.db.Exec("INSERT INTO activity_log (attempt_id, action_type, metadata) VALUES (?, ?, ?)", attemptID, actionType, metadata)
	return err
}

func (s *Store) GetTodaysAttemptCount() (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM attempts
		WHERE started_at >= ?
	`, startOfDay(time.Now().UTC())).Scan(&count)
	return count, err
}

// RecentAttempts returns up to limit attempts, newest first.
func (s *Store) RecentAttempts(limit int) ([]Attempt, error) {
	rows, err := s.db.Query(`
		SELECT id, seed, started_at, finished_at, anomaly_x, anomaly_y, target_x, outcome, error
		FROM attempts ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Attempt
	for rows.Next() {
		var a Attempt
		var finished sql.NullTime
		var ax, ay sql.NullInt64
		var tx sql.NullFloat64
		var msg sql.NullString
		if err := rows.Scan(&a.ID, &a.Seed, &a.StartedAt, &finished, &ax, &ay, &tx, &a.Outcome, &msg); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			a.FinishedAt = &t
		}
		a.Found = ax.Valid
		a.AnomalyX = int(ax.Int64)
		a.AnomalyY = int(ay.Int64)
		a.TargetX = tx.Float64
		a.Error = msg.String
		results = append(results, a)
	}
	return results, rows.Err()
}

func (s *Store) GetActivity(attemptID string) ([]Activity, error) {
	rows, err := s.db.Query("SELECT action_type, metadata FROM activity_log WHERE attempt_id = ? ORDER BY id ASC", attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ActionType, &a.Metadata); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecordVerification stores one server-side check of a slider release.
func (s *Store) RecordVerification(challengeID string, gapX, releaseX float64, passed bool) error {
	_, err := s.db.Exec(
		"INSERT INTO verifications (challenge_id, gap_x, release_x, passed) VALUES (?, ?, ?, ?)",
		challengeID, gapX, releaseX, passed,
	)
	return err
}

func (s *Store) GetVerifications(challengeID string) ([]Verification, error) {
	rows, err := s.db.Query("SELECT gap_x, release_x, passed FROM verifications WHERE challenge_id = ? ORDER BY id ASC", challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Verification
	for rows.Next() {
		v := Verification{ChallengeID: challengeID}
		if err := rows.Scan(&v.GapX, &v.ReleaseX, &v.Passed); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type Attempt struct {
	ID         string
	Seed       int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Found      bool
	AnomalyX   int
	AnomalyY   int
	TargetX    float64
	Outcome    string
	Error      string
}

type Activity struct {
	ActionType string
	Metadata   string
}

type Verification struct {
	ChallengeID string
	GapX        float64
	ReleaseX    float64
	Passed      bool
}
