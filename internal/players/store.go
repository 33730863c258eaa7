// internal/players/store.go
//
// Player accounts backed by the users table.
// Responsibilities:
//   - Signup validation, bcrypt hashing and case-insensitive uniqueness.
//   - Credential checks for login.
//   - Lifetime stats (games played, total correct, best score), bumped
//     inside the caller's transaction when a game finishes.
package players

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("player not found")
)

// ValidationError carries a message that is safe to show to the user.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

type Player struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	GamesPlayed  int       `json:"gamesPlayed"`
	TotalCorrect int       `json:"totalCorrect"`
	BestScore    int       `json:"bestScore"`
}

type Store struct {
	db   *sql.DB
	cost int
}

func NewStore(db *sql.DB) *Store { return &Store{db: db, cost: bcrypt.DefaultCost} }

// WithCost sets the bcrypt cost; tests use bcrypt.MinCost.
func (s *Store) WithCost(cost int) *Store {
	s.cost = cost
	return s
}

// Create validates input, checks uniqueness, hashes the password and
// inserts the player.
func (s *Store) Create(ctx context.Context, username, password string) (*Player, error) {
	username = normalizeUsername(username)
	if err := validateSignup(username, password); err != nil {
		return nil, err
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p := &Player{
		ID:           genID(),
		Username:     username,
		PasswordHash: string(h),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		p.ID, p.Username, p.PasswordHash, p.CreatedAt.Format(time.RFC3339),
	); err != nil {
		// Lost a race with a concurrent signup; the UNIQUE index catches it.
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return p, nil
}

// Authenticate returns the player when the password matches.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*Player, error) {
	p, err := s.FindByUsername(ctx, normalizeUsername(username))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return p, nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*Player, error) {
	return scanPlayer(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, games_played, total_correct, best_score
		FROM users WHERE lower(username)=lower(?)`, username))
}

func (s *Store) FindByID(ctx context.Context, id string) (*Player, error) {
	return scanPlayer(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, games_played, total_correct, best_score
		FROM users WHERE id=?`, id))
}

// RecordGame bumps lifetime stats for a finished game, within tx.
func (s *Store) RecordGame(ctx context.Context, tx *sql.Tx, id string, score int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET games_played = games_played + 1,
		    total_correct = total_correct + ?,
		    best_score = MAX(best_score, ?)
		WHERE id=?`, score, score, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPlayer(row *sql.Row) (*Player, error) {
	var (
		p       Player
		created string
	)
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &created, &p.GamesPlayed, &p.TotalCorrect, &p.BestScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &p, nil
}

func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return &ValidationError{"username must be 3-24 chars"}
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return &ValidationError{"username: letters, numbers, underscore only"}
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return &ValidationError{"password must be 8-100 chars"}
	}
	return nil
}

// genID creates a 22-char URL-safe random identifier.
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
