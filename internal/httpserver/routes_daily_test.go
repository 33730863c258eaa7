package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/robalobadob/showtrivia/internal/catalog"
	"github.com/robalobadob/showtrivia/internal/daily"
	"github.com/robalobadob/showtrivia/internal/game"
	"github.com/robalobadob/showtrivia/internal/results"
)

// playDaily starts today's game as a fresh guest and answers every round
// correctly, returning the questions asked.
func playDaily(t *testing.T, h *harness) (string, []string) {
	t.Helper()
	h.cookies = map[string]*http.Cookie{}

	var v dailyRes
	if rec := h.do(http.MethodPost, "/daily/new", nil, &v); rec.Code != http.StatusOK {
		t.Fatalf("daily new: %d %s", rec.Code, rec.Body.String())
	}
	if v.Played || v.Daily != daily.DateKey(time.Now()) || v.Round == nil {
		t.Fatalf("unexpected daily view %+v", v)
	}

	var asked []string
	for round := 1; ; round++ {
		s, err := h.srv.store.Get(context.Background(), v.ID)
		if err != nil {
			t.Fatal(err)
		}
		asked = append(asked, s.Current.Question.Text+"|"+s.Current.Question.CorrectAnswer)
		var res answerRes
		h.do(http.MethodPost, "/game/answer", answerReq{GameID: v.ID, Choice: s.Current.Question.CorrectAnswer}, &res)
		if res.State == game.StateFinished {
			break
		}
		if rec := h.do(http.MethodPost, "/game/next", nextReq{GameID: v.ID}, nil); rec.Code != http.StatusOK {
			t.Fatalf("next round %d: %d", round, rec.Code)
		}
	}
	return v.ID, asked
}

func TestDailySameQuestionsForEveryone(t *testing.T) {
	h := newHarness(t, catalog.Static{Catalog: fixtureCatalog()})

	id1, q1 := playDaily(t, h)
	id2, q2 := playDaily(t, h)
	if id1 == id2 {
		t.Fatal("two guests share a game")
	}
	if len(q1) != 3 || !slices.Equal(q1, q2) {
		t.Fatalf("daily questions differ:\n%v\n%v", q1, q2)
	}

	// A regular game does not follow the daily sequence.
	var v game.View
	h.do(http.MethodPost, "/game/new", nil, &v)
	if v.Daily != "" {
		t.Fatalf("regular game marked daily: %+v", v)
	}
}

func TestDailyOncePerPlayer(t *testing.T) {
	h := newHarness(t, catalog.Static{Catalog: fixtureCatalog()})

	var first dailyRes
	h.do(http.MethodPost, "/daily/new", nil, &first)

	var again dailyRes
	if rec := h.do(http.MethodPost, "/daily/new", nil, &again); rec.Code != http.StatusOK {
		t.Fatalf("repeat daily: %d", rec.Code)
	}
	if !again.Played || again.ID != first.ID || again.State != game.StateInProgress {
		t.Fatalf("expected the started game back, got %+v", again)
	}
}

func TestDailyLoadFailureIsNotRecorded(t *testing.T) {
	h := newHarness(t, catalog.Static{Catalog: &catalog.Catalog{}})

	var v dailyRes
	if rec := h.do(http.MethodPost, "/daily/new", nil, &v); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if v.State != game.StateLoadError {
		t.Fatalf("unexpected view %+v", v)
	}
	var again dailyRes
	h.do(http.MethodPost, "/daily/new", nil, &again)
	if again.Played {
		t.Fatal("failed load used up the daily game")
	}
}

func TestDailyLeaderboard(t *testing.T) {
	h := newHarness(t, catalog.Static{Catalog: fixtureCatalog()})

	id, _ := playDaily(t, h)
	var free game.View
	h.do(http.MethodPost, "/game/new", nil, &free)

	var body struct {
		Date    string          `json:"date"`
		Results []results.LBRow `json:"results"`
	}
	if rec := h.do(http.MethodGet, "/daily/leaderboard", nil, &body); rec.Code != http.StatusOK {
		t.Fatalf("daily leaderboard: %d", rec.Code)
	}
	if body.Date != daily.DateKey(time.Now()) || len(body.Results) != 1 || body.Results[0].GameID != id || body.Results[0].Score != 3 {
		t.Fatalf("unexpected daily leaderboard %+v", body)
	}

	h.do(http.MethodGet, "/daily/leaderboard?date=2001-01-01", nil, &body)
	if body.Date != "2001-01-01" || len(body.Results) != 0 {
		t.Fatalf("past date: %+v", body)
	}
}

func TestDailyConcurrentStartsShareOneGame(t *testing.T) {
	h := newHarness(t, catalog.Static{Catalog: fixtureCatalog()})
	anon := &http.Cookie{Name: anonCookieName, Value: "same-guest"}

	const requests = 8
	ids := make(chan string, requests)
	for i := 0; i < requests; i++ {
		go func() {
			req := httptest.NewRequest(http.MethodPost, "/daily/new", nil)
			req.AddCookie(anon)
			rec := httptest.NewRecorder()
			h.srv.Router().ServeHTTP(rec, req)
			var v dailyRes
			if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &v) != nil {
				ids <- ""
				return
			}
			ids <- v.ID
		}()
	}

	first := <-ids
	for i := 1; i < requests; i++ {
		if id := <-ids; id == "" || id != first {
			t.Fatalf("concurrent daily starts returned different games: %q vs %q", first, id)
		}
	}
	if first == "" {
		t.Fatal("daily start failed")
	}

	var n int
	if err := h.srv.db.QueryRow(`SELECT COUNT(*) FROM results WHERE anonymous_id='same-guest'`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("expected 1 daily row, got %d (%v)", n, err)
	}
}
