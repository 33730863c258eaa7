package store

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/showtrivia/internal/catalog"
	"github.com/robalobadob/showtrivia/internal/game"
	"github.com/robalobadob/showtrivia/internal/show"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Episodes: []show.Episode{
			{ID: 1, Name: "Pilot", Season: 1, Number: 1, Airdate: "1994-09-22", Summary: "Monica gets a new roommate."},
			{ID: 2, Name: "The One With...", Season: 1, Number: 2, Airdate: "1994-09-29", Summary: "Ross deals with feelings."},
			{ID: 3, Name: "The One with the Thumb", Season: 1, Number: 3, Airdate: "1994-10-06", Summary: "Phoebe finds a thumb."},
		},
		Cast: []show.CastMember{
			{Person: show.Person{Name: "Jennifer Aniston"}, Character: show.Character{Name: "Rachel Green"}},
			{Person: show.Person{Name: "Matthew Perry"}, Character: show.Character{Name: "Chandler Bing"}},
		},
	}
}

func startedSession(t *testing.T) *game.Session {
	t.Helper()
	cat := testCatalog()
	rng := rand.New(rand.NewPCG(1, 2))
	s := game.New("", game.DefaultConfig())
	if err := s.Start(cat, rng); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if _, err := s.NextRound(cat, rng); err != nil {
		t.Fatalf("NextRound returned error: %v", err)
	}
	return s
}

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, st Store) {
	ctx := context.Background()
	s := startedSession(t)

	if err := st.Save(ctx, s); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := st.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.ID != s.ID || got.RoundsPlayed != 1 || got.Current == nil {
		t.Fatalf("unexpected session %+v", got)
	}

	// Mutating the copy must not leak into the store.
	got.Score = 99
	again, _ := st.Get(ctx, s.ID)
	if again.Score != 0 {
		t.Fatalf("Get returned shared state, score = %d", again.Score)
	}

	updated, err := st.Update(ctx, s.ID, func(gs *game.Session) error {
		_, err := gs.Answer(gs.Current.Question.CorrectAnswer)
		return err
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Score != 1 {
		t.Fatalf("expected score 1 after update, got %d", updated.Score)
	}

	// A rejected transition reports the error and the current state.
	after, err := st.Update(ctx, s.ID, func(gs *game.Session) error {
		_, err := gs.Answer("again")
		return err
	})
	if !errors.Is(err, game.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	if after == nil || after.Score != 1 {
		t.Fatalf("expected current state with score 1, got %+v", after)
	}

	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.Update(ctx, "missing", func(*game.Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Update, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestMemoryStoreSerialisesUpdates(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0)
	s := startedSession(t)
	_ = st.Save(ctx, s)
	correct := s.Current.Question.CorrectAnswer

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Update(ctx, s.ID, func(gs *game.Session) error {
				_, err := gs.Answer(correct)
				return err
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Fatalf("expected exactly one accepted answer, got %d", success)
	}
	got, _ := st.Get(ctx, s.ID)
	if got.Score != 1 {
		t.Fatalf("expected score 1, got %d", got.Score)
	}
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Hour).(*memory)
	now := time.Now()
	st.now = func() time.Time { return now }

	s := startedSession(t)
	s.UpdatedAt = now
	_ = st.Save(ctx, s)

	if _, err := st.Get(ctx, s.ID); err != nil {
		t.Fatalf("fresh session should be found: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := st.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}

	_ = st.Save(ctx, startedSession(t))
	if _, ok := st.sessions[s.ID]; ok {
		t.Fatalf("expired session not pruned on Save")
	}
}

// TestRedisStore runs against a real server when REDIS_URL is set.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := OpenRedis(ctx, url)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })

	exerciseStore(t, NewRedisStore(rdb, time.Minute))
}
