// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
//   - POST /daily/new         → start today's game (or return the one already started)
//   - GET  /daily/leaderboard → top results for today (or ?date=YYYY-MM-DD)
//
// Everyone gets the same questions on a UTC date: the session is started and
// each round generated from a seed derived from date + salt. Each player
// (account or anonymous cookie) gets one game per date. Once started, the
// game is played through the regular /game/answer and /game/next routes.

package httpserver

import (
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/showtrivia/internal/daily"
	"github.com/robalobadob/showtrivia/internal/game"
	"github.com/robalobadob/showtrivia/internal/results"
	"github.com/robalobadob/showtrivia/internal/store"
)

// dailyRes is a session view plus whether today's game was already started.
type dailyRes struct {
	game.View
	Played bool `json:"played"`
}

func (s *Server) mountDaily() {
	s.r.Route("/daily", func(r chi.Router) {
		r.With(s.withOptionalAuth()).Post("/new", s.handleDailyNew)
		r.Get("/leaderboard", s.handleDailyLeaderboard)
	})
}

// roundRand returns the randomness for generating gs's next round.
func (s *Server) roundRand(gs *game.Session) *rand.Rand {
	if gs.Daily != "" {
		return daily.Rand(gs.Daily, s.cfg.Game.DailySalt, gs.RoundsPlayed+1)
	}
	return s.newRand()
}

func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	date := daily.DateKey(time.Now())

	var userID, anonID string
	if me := currentUser(r); me != nil {
		userID = me.ID
	} else {
		anonID = s.ensureAnonID(w, r)
	}

	existing, err := s.results.DailyGame(r.Context(), userID, anonID, date)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("lookup daily game")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if existing != "" {
		s.writeDailyPlayed(w, r, existing, date)
		return
	}

	sess := game.New("", game.Config{MaxRounds: s.cfg.Game.MaxRounds, PreventRepeats: true})
	sess.Daily = date
	sess.UserID = userID
	sess.AnonymousID = anonID
	logger := hlog.FromRequest(r).With().Str("gameId", sess.ID).Str("daily", date).Logger()

	cat, err := s.catalog.Load(r.Context())
	if err == nil {
		err = sess.Start(cat, daily.Rand(date, s.cfg.Game.DailySalt, 0))
	}
	if err != nil {
		// Not stored: a failed load must not use up the player's daily game.
		sess.Fail()
		logger.Error().Err(err).Msg("start daily game")
		writeJSON(w, http.StatusServiceUnavailable, dailyRes{View: sess.Public()})
		return
	}
	if _, err := sess.NextRound(cat, s.roundRand(sess)); err != nil {
		logger.Error().Err(err).Msg("first round")
		writeError(w, http.StatusInternalServerError, "round_failed")
		return
	}

	// The claim decides between concurrent requests of one owner; losers
	// drop their session and return the winner's.
	existing, err = s.results.ClaimDaily(r.Context(), results.Result{
		ID:          sess.ID,
		UserID:      userID,
		AnonymousID: anonID,
		ShowID:      s.cfg.TVMaze.ShowID,
		Rounds:      sess.RoundsPlayed,
		MaxRounds:   sess.MaxRounds,
		StartedAt:   sess.CreatedAt,
		Daily:       date,
	})
	if err != nil {
		logger.Error().Err(err).Msg("claim daily game")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if existing != "" {
		s.writeDailyPlayed(w, r, existing, date)
		return
	}

	if err := s.store.Save(r.Context(), sess); err != nil {
		logger.Error().Err(err).Msg("save daily game")
		if err := s.results.Abandon(r.Context(), sess.ID); err != nil {
			logger.Warn().Err(err).Msg("abandon daily result row")
		}
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	writeJSON(w, http.StatusOK, dailyRes{View: sess.Public()})
}

// writeDailyPlayed answers with the owner's existing daily game. When the
// session has expired from the store only its id and date are known.
func (s *Server) writeDailyPlayed(w http.ResponseWriter, r *http.Request, id, date string) {
	res := dailyRes{View: game.View{ID: id, Daily: date}, Played: true}
	sess, err := s.store.Get(r.Context(), id)
	switch {
	case err == nil:
		res.View = sess.Public()
	case !errors.Is(err, store.ErrNotFound):
		hlog.FromRequest(r).Warn().Err(err).Str("gameId", id).Msg("load daily session")
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDailyLeaderboard ranks one date's finished daily games. An invalid
// ?date falls back to today.
func (s *Server) handleDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := daily.DateKey(time.Now())
	if q := r.URL.Query().Get("date"); q != "" {
		if _, err := time.Parse("2006-01-02", q); err == nil {
			date = q
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := s.results.DailyLeaderboard(r.Context(), date, min(limit, 100))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "results": rows})
}
