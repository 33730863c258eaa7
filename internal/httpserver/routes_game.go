// internal/httpserver/routes_game.go
//
// HTTP routes for a trivia session.
//   - POST /game/new    → load the catalog, start a session, play round 1
//   - POST /game/answer → evaluate a choice for the current round
//   - POST /game/next   → advance to the next round (or finish)
//   - GET  /game/{id}   → public view of a session
//   - GET  /leaderboard → top finished sessions
//
// Session mutations go through store.Update. Finishing a session closes its
// results row and, for signed-in owners, bumps player stats in one tx.

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/showtrivia/internal/game"
	"github.com/robalobadob/showtrivia/internal/results"
	"github.com/robalobadob/showtrivia/internal/store"
)

const loadErrorText = game.LoadErrorMessage

var errInvalidChoice = errors.New("choice is not one of the offered answers")

func (s *Server) mountGameRoutes() {
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/answer", s.handleAnswer)
		r.Post("/game/next", s.handleNext)
		r.Get("/game/{id}", s.handleGetGame)
	})
	s.r.Get("/leaderboard", s.handleLeaderboard)
}

// newGameReq lets a client pick a variant; zero values use the server's.
type newGameReq struct {
	Rounds       int   `json:"rounds"`
	AllowRepeats *bool `json:"allowRepeats"`
}

// handleNewGame loads the catalog, starts a session and plays round 1.
// A load failure leaves a load_error session behind and answers 503.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	cfg := game.Config{
		MaxRounds:      s.cfg.Game.MaxRounds,
		PreventRepeats: s.cfg.Game.PreventRepeats,
	}
	if req.Rounds > 0 {
		cfg.MaxRounds = min(req.Rounds, game.DefaultMaxRounds)
	}
	if req.AllowRepeats != nil {
		cfg.PreventRepeats = !*req.AllowRepeats
	}

	sess := game.New("", cfg)
	if me := currentUser(r); me != nil {
		sess.UserID = me.ID
	} else {
		sess.AnonymousID = s.ensureAnonID(w, r)
	}

	logger := hlog.FromRequest(r).With().Str("gameId", sess.ID).Logger()
	rng := s.newRand()

	cat, err := s.catalog.Load(r.Context())
	if err == nil {
		err = sess.Start(cat, rng)
	} else {
		sess.Fail()
	}
	if err != nil {
		logger.Error().Err(err).Msg("start game")
		if err := s.store.Save(r.Context(), sess); err != nil {
			logger.Warn().Err(err).Msg("save failed game")
		}
		writeJSON(w, http.StatusServiceUnavailable, sess.Public())
		return
	}

	if _, err := sess.NextRound(cat, rng); err != nil {
		logger.Error().Err(err).Msg("first round")
		writeError(w, http.StatusInternalServerError, "round_failed")
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		logger.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	if err := s.results.StartSession(r.Context(), results.Result{
		ID:          sess.ID,
		UserID:      sess.UserID,
		AnonymousID: sess.AnonymousID,
		ShowID:      s.cfg.TVMaze.ShowID,
		Rounds:      sess.RoundsPlayed,
		MaxRounds:   sess.MaxRounds,
		StartedAt:   sess.CreatedAt,
	}); err != nil {
		logger.Warn().Err(err).Msg("insert result row")
	}

	writeJSON(w, http.StatusOK, sess.Public())
}

type answerReq struct {
	GameID string `json:"gameId"`
	Choice string `json:"choice"`
}

type answerRes struct {
	Correct       bool       `json:"correct"`
	CorrectAnswer string     `json:"correctAnswer"`
	Score         int        `json:"score"`
	State         game.State `json:"state"`
	Message       string     `json:"message"`
	Summary       string     `json:"summary,omitempty"`
}

// handleAnswer evaluates one choice. Only choices offered in the current
// round are accepted.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	sess, err := s.store.Update(r.Context(), req.GameID, func(gs *game.Session) error {
		if c := gs.Current; c != nil && !c.Answered && !gs.Finished() &&
			!slices.Contains(c.Question.Choices, req.Choice) {
			return errInvalidChoice
		}
		_, err := gs.Answer(req.Choice)
		return err
	})
	if err != nil {
		writeGameError(w, err)
		return
	}

	round := sess.Current
	res := answerRes{
		Correct:       round.Correct,
		CorrectAnswer: round.Question.CorrectAnswer,
		Score:         sess.Score,
		State:         sess.State,
		Message:       "Correct! Well done.",
	}
	if !round.Correct {
		res.Message = fmt.Sprintf("Wrong! The correct answer was \"%s\".", round.Question.CorrectAnswer)
	}
	if sess.Finished() {
		res.Summary = sess.Summary()
		s.recordFinish(r.Context(), sess)
	} else if err := s.results.RecordProgress(r.Context(), sess.ID, sess.Score, sess.RoundsPlayed); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("gameId", sess.ID).Msg("record progress")
	}

	writeJSON(w, http.StatusOK, res)
}

type nextReq struct {
	GameID string `json:"gameId"`
}

// handleNext advances to the next round. Once the round limit is reached
// it reports the final summary instead.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	var req nextReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	cat, err := s.catalog.Load(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load catalog")
		writeError(w, http.StatusServiceUnavailable, loadErrorText)
		return
	}

	sess, err := s.store.Update(r.Context(), req.GameID, func(gs *game.Session) error {
		_, err := gs.NextRound(cat, s.roundRand(gs))
		return err
	})
	switch {
	case errors.Is(err, game.ErrFinished) && sess != nil:
		s.recordFinish(r.Context(), sess)
		writeJSON(w, http.StatusOK, sess.Public())
		return
	case err != nil:
		writeGameError(w, err)
		return
	}

	if err := s.results.RecordProgress(r.Context(), sess.ID, sess.Score, sess.RoundsPlayed); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("gameId", sess.ID).Msg("record progress")
	}
	writeJSON(w, http.StatusOK, sess.Public())
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Public())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.results.Leaderboard(r.Context(), min(limit, 100))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// recordFinish closes the results row and, for signed-in owners, bumps
// their stats in the same transaction. Best effort.
func (s *Server) recordFinish(ctx context.Context, sess *game.Session) {
	logger := log.With().Str("gameId", sess.ID).Logger()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("begin finish tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	userID, finished, err := s.results.Finish(ctx, tx, sess.ID, sess.Score, sess.RoundsPlayed)
	if err != nil {
		logger.Warn().Err(err).Msg("finish result row")
		return
	}
	if finished && userID != "" {
		if err := s.players.RecordGame(ctx, tx, userID, sess.Score); err != nil {
			logger.Warn().Err(err).Str("user", userID).Msg("bump stats")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		logger.Warn().Err(err).Msg("commit finish")
	}
}

// writeGameError maps session errors onto status codes.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, errInvalidChoice):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrLoadFailed):
		writeError(w, http.StatusConflict, loadErrorText)
	case errors.Is(err, game.ErrFinished),
		errors.Is(err, game.ErrAlreadyAnswered),
		errors.Is(err, game.ErrRoundPending),
		errors.Is(err, game.ErrNotStarted),
		errors.Is(err, game.ErrNoRound):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("game request")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
