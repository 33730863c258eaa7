package players_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/showtrivia/assets"
	"github.com/robalobadob/showtrivia/internal/database"
	"github.com/robalobadob/showtrivia/internal/players"
)

func newStore(t *testing.T) *players.Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(ctx, db, assets.Migrations()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return players.NewStore(db).WithCost(bcrypt.MinCost)
}

func TestSignupLoginRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	p, err := s.Create(ctx, "  ross_geller ", "dinosaurs1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Username != "ross_geller" || p.ID == "" {
		t.Fatalf("unexpected player %+v", p)
	}
	if p.PasswordHash == "dinosaurs1" {
		t.Fatal("password stored in plain text")
	}

	got, err := s.Authenticate(ctx, "ROSS_GELLER", "dinosaurs1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("authenticated %s, want %s", got.ID, p.ID)
	}

	if _, err := s.Authenticate(ctx, "ross_geller", "wrong-password"); !errors.Is(err, players.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "whatever1"); !errors.Is(err, players.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	byID, err := s.FindByID(ctx, p.ID)
	if err != nil || byID.Username != "ross_geller" {
		t.Fatalf("FindByID = %+v, %v", byID, err)
	}
	if _, err := s.FindByID(ctx, "missing"); !errors.Is(err, players.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.Create(ctx, "monica", "cleaning123"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "Monica", "cleaning456"); !errors.Is(err, players.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name, user, pass string
	}{
		{"short username", "jo", "password1"},
		{"long username", "abcdefghijklmnopqrstuvwxy", "password1"},
		{"bad characters", "joey tribbiani", "password1"},
		{"short password", "joey", "short"},
	}
	s := newStore(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tt.user, tt.pass)
			var ve *players.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestRecordGame(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, assets.Migrations()); err != nil {
		t.Fatal(err)
	}
	s := players.NewStore(db).WithCost(bcrypt.MinCost)

	p, err := s.Create(ctx, "chandler", "sarcasm123")
	if err != nil {
		t.Fatal(err)
	}

	for _, score := range []int{7, 12, 4} {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.RecordGame(ctx, tx, p.ID, score); err != nil {
			t.Fatalf("RecordGame: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.GamesPlayed != 3 || got.TotalCorrect != 23 || got.BestScore != 12 {
		t.Fatalf("unexpected stats %+v", got)
	}

	tx, _ := db.BeginTx(ctx, nil)
	defer tx.Rollback()
	if err := s.RecordGame(ctx, tx, "missing", 1); !errors.Is(err, players.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
