// Package results persists one row per trivia session in SQLite, for
// player history and the leaderboard.
package results

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"

	DefaultLimit = 20

	// Fixed-width so stored timestamps sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000Z07:00"
)

type Result struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId,omitempty"`
	AnonymousID string     `json:"-"`
	ShowID      int        `json:"showId"`
	Score       int        `json:"score"`
	Rounds      int        `json:"rounds"`
	MaxRounds   int        `json:"maxRounds"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	Daily       string     `json:"daily,omitempty"`
}

// LBRow is one leaderboard line.
type LBRow struct {
	GameID     string    `json:"gameId"`
	Username   string    `json:"username"`
	Score      int       `json:"score"`
	Rounds     int       `json:"rounds"`
	FinishedAt time.Time `json:"finishedAt"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StartSession inserts an in_progress row for r.
func (s *Store) StartSession(ctx context.Context, r Result) error {
	return insert(ctx, s.db, r)
}

func insert(ctx context.Context, q querier, r Result) error {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO results (id, user_id, anonymous_id, show_id, score, rounds, max_rounds, status, started_at, daily_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, nullable(r.UserID), nullable(r.AnonymousID), r.ShowID,
		r.Score, r.Rounds, r.MaxRounds, StatusInProgress, r.StartedAt.UTC().Format(timeLayout), nullable(r.Daily),
	)
	return err
}

// Abandon deletes an unfinished row, for a session that never got stored.
func (s *Store) Abandon(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id=? AND status=?`, id, StatusInProgress)
	return err
}

// RecordProgress updates score and rounds of an unfinished session.
func (s *Store) RecordProgress(ctx context.Context, id string, score, rounds int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE results SET score=?, rounds=? WHERE id=? AND status=?`,
		score, rounds, id, StatusInProgress,
	)
	return err
}

// Finish marks the session finished and returns its owner. finished is
// false when the row was already finished, so callers bump player stats
// exactly once.
func (s *Store) Finish(ctx context.Context, tx *sql.Tx, id string, score, rounds int) (userID string, finished bool, err error) {
	err = tx.QueryRowContext(ctx, `
		UPDATE results SET score=?, rounds=?, status=?, finished_at=?
		WHERE id=? AND status=?
		RETURNING COALESCE(user_id,'')`,
		score, rounds, StatusFinished, time.Now().UTC().Format(timeLayout), id, StatusInProgress,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

// Get loads one row.
func (s *Store) Get(ctx context.Context, id string) (*Result, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(user_id,''), COALESCE(anonymous_id,''), show_id, score, rounds, max_rounds,
		       status, started_at, COALESCE(finished_at,''), COALESCE(daily_date,'')
		FROM results WHERE id=?`, id)
	return scanResult(row)
}

// Leaderboard returns the top finished sessions: score desc, then fewer
// rounds, then earliest finish. Guest rows show as "guest".
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LBRow, error) {
	return s.leaderboard(ctx, "", limit)
}

// DailyLeaderboard ranks the finished daily challenge games of one date.
func (s *Store) DailyLeaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	return s.leaderboard(ctx, date, limit)
}

func (s *Store) leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	where := `r.status = ?`
	args := []any{StatusFinished}
	if date != "" {
		where += ` AND r.daily_date = ?`
		args = append(args, date)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, COALESCE(u.username, 'guest'), r.score, r.rounds, r.finished_at
		FROM results r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE `+where+`
		ORDER BY r.score DESC, r.rounds ASC, r.finished_at ASC
		LIMIT ?`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var (
			r        LBRow
			finished string
		)
		if err := rows.Scan(&r.GameID, &r.Username, &r.Score, &r.Rounds, &finished); err != nil {
			return nil, err
		}
		r.FinishedAt = parseTime(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DailyGame returns the id of the owner's daily challenge game for date,
// or "" when they have not started one. userID wins over anonID.
func (s *Store) DailyGame(ctx context.Context, userID, anonID, date string) (string, error) {
	return dailyGame(ctx, s.db, userID, anonID, date)
}

// ClaimDaily inserts r as its owner's daily game for r.Daily unless the
// owner already has one, whose id is then returned instead. The lookup and
// the insert share one write transaction, so concurrent claims by the same
// owner yield a single row.
func (s *Store) ClaimDaily(ctx context.Context, r Result) (existing string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	existing, err = dailyGame(ctx, tx, r.UserID, r.AnonymousID, r.Daily)
	if err != nil || existing != "" {
		return existing, err
	}
	if err := insert(ctx, tx, r); err != nil {
		return "", err
	}
	return "", tx.Commit()
}

func dailyGame(ctx context.Context, q querier, userID, anonID, date string) (string, error) {
	col, owner := "anonymous_id", anonID
	if userID != "" {
		col, owner = "user_id", userID
	}
	if owner == "" {
		return "", nil
	}
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM results WHERE daily_date=? AND `+col+`=? ORDER BY started_at LIMIT 1`,
		date, owner,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// ForUser returns a player's most recent sessions.
func (s *Store) ForUser(ctx context.Context, userID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(user_id,''), COALESCE(anonymous_id,''), show_id, score, rounds, max_rounds,
		       status, started_at, COALESCE(finished_at,''), COALESCE(daily_date,'')
		FROM results WHERE user_id=?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ClaimAnonymous moves guest sessions to userID after signup or login.
func (s *Store) ClaimAnonymous(ctx context.Context, anonID, userID string) (int64, error) {
	if anonID == "" || userID == "" {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE results SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface{ Scan(dest ...any) error }

func scanResult(sc scanner) (*Result, error) {
	var (
		r                 Result
		started, finished string
	)
	if err := sc.Scan(&r.ID, &r.UserID, &r.AnonymousID, &r.ShowID, &r.Score, &r.Rounds, &r.MaxRounds,
		&r.Status, &started, &finished, &r.Daily); err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(started)
	if finished != "" {
		t := parseTime(finished)
		r.FinishedAt = &t
	}
	return &r, nil
}

// parseTime reads RFC3339 timestamps; on error returns zero time.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
