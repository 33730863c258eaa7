// internal/game/engine.go
//
// Round controller for a single trivia session.
// Responsibilities:
//   - Start a session against a loaded catalog (or fail it into load_error).
//   - Sequence rounds, drawing episodes without replacement when repeats are
//     prevented, and cap the round limit to what the catalog can supply.
//   - Delegate answers to trivia.Evaluate and keep the score.
//   - Finish after the last round is answered; reject mutations afterwards.
//
// Notes:
//   - Randomness is injected per call so a fixed seed replays a session.
//   - A Session is not safe for concurrent use; the store serialises access.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/showtrivia/internal/catalog"
	"github.com/robalobadob/showtrivia/internal/show"
	"github.com/robalobadob/showtrivia/internal/trivia"
)

var (
	ErrNotStarted      = errors.New("game not started")
	ErrAlreadyStarted  = errors.New("game already started")
	ErrFinished        = errors.New("game finished")
	ErrLoadFailed      = errors.New("game data failed to load")
	ErrRoundPending    = errors.New("current round not answered")
	ErrAlreadyAnswered = errors.New("round already answered")
	ErrNoRound         = errors.New("no round in progress")
)

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// generate is swapped in tests.
var generate = trivia.Generate

// New constructs a session in the not_started state.
// If id is empty a random UUID is assigned.
func New(id string, cfg Config) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	t := now()
	return &Session{
		ID:              id,
		State:           StateNotStarted,
		Config:          cfg,
		MaxRounds:       cfg.MaxRounds,
		AskedEpisodeIDs: []int{},
		CreatedAt:       t,
		UpdatedAt:       t,
	}
}

// Start moves a new session to in_progress. Both collections must be
// non-empty; otherwise the session lands in load_error and
// catalog.ErrInsufficientData is returned.
func (s *Session) Start(cat *catalog.Catalog, rng *rand.Rand) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	if s.State != StateNotStarted {
		return ErrAlreadyStarted
	}
	if cat == nil || len(cat.Episodes) == 0 || len(cat.Cast) == 0 {
		s.Fail()
		return catalog.ErrInsufficientData
	}

	if s.Config.PreventRepeats {
		s.Deck = make([]int, len(cat.Episodes))
		for i, e := range cat.Episodes {
			s.Deck[i] = e.ID
		}
		rng.Shuffle(len(s.Deck), func(i, j int) { s.Deck[i], s.Deck[j] = s.Deck[j], s.Deck[i] })
		s.MaxRounds = min(s.Config.MaxRounds, len(s.Deck))
	}
	s.State = StateInProgress
	s.touch()
	return nil
}

// Fail records a load failure. Only a not_started session can fail; the
// cause is logged by the caller, players only see LoadErrorMessage.
func (s *Session) Fail() {
	if s.State != StateNotStarted {
		return
	}
	s.State = StateLoadError
	s.LoadError = LoadErrorMessage
	s.touch()
}

// NextRound draws the next episode and generates its question.
// When the limit is already reached the session finishes and ErrFinished
// is returned.
func (s *Session) NextRound(cat *catalog.Catalog, rng *rand.Rand) (*Round, error) {
	if err := s.checkMutable(); err != nil {
		return nil, err
	}
	if s.State == StateNotStarted {
		return nil, ErrNotStarted
	}
	if s.Current != nil && !s.Current.Answered {
		return nil, ErrRoundPending
	}
	if s.RoundsPlayed >= s.MaxRounds {
		s.finish()
		return nil, ErrFinished
	}
	if cat == nil || len(cat.Episodes) == 0 || len(cat.Cast) == 0 {
		return nil, catalog.ErrInsufficientData
	}

	episode, ok := s.drawEpisode(cat, rng)
	if !ok {
		// Deck exhausted (the catalog shrank under us).
		s.finish()
		return nil, ErrFinished
	}

	q, err := generate(rng, episode, cat.Episodes, cat.Cast)
	if errors.Is(err, trivia.ErrMissingSummary) {
		q, err = trivia.GenerateTemplate(rng, trivia.TemplateSeason, episode, cat.Episodes, cat.Cast)
	}
	if err != nil {
		return nil, fmt.Errorf("generate question: %w", err)
	}

	if s.Config.PreventRepeats {
		s.Deck = s.Deck[1:]
	}
	s.AskedEpisodeIDs = append(s.AskedEpisodeIDs, episode.ID)
	s.RoundsPlayed++
	s.Current = &Round{Number: s.RoundsPlayed, Question: q}
	s.touch()
	return s.Current, nil
}

// Answer evaluates choice against the current round. Answering the last
// round finishes the session.
func (s *Session) Answer(choice string) (trivia.Verdict, error) {
	if err := s.checkMutable(); err != nil {
		return trivia.Verdict{}, err
	}
	if s.Current == nil {
		return trivia.Verdict{}, ErrNoRound
	}
	if s.Current.Answered {
		return trivia.Verdict{}, ErrAlreadyAnswered
	}

	v := trivia.Evaluate(choice, s.Current.Question.CorrectAnswer, s.Score)
	s.Score = v.Score
	s.Current.Answered = true
	s.Current.Selected = choice
	s.Current.Correct = v.Correct

	if s.RoundsPlayed >= s.MaxRounds {
		s.finish()
	}
	s.touch()
	return v, nil
}

// Finished reports whether the session reached a terminal state.
func (s *Session) Finished() bool {
	return s.State == StateFinished || s.State == StateLoadError
}

// Summary is the end-of-game line shown to the player.
func (s *Session) Summary() string {
	switch s.State {
	case StateFinished:
		return fmt.Sprintf("Game Over! Your final score is %d.", s.Score)
	case StateLoadError:
		return s.LoadError
	}
	return ""
}

// Clone returns a deep copy, so readers never share slices with a writer.
func (s *Session) Clone() *Session {
	c := *s
	c.AskedEpisodeIDs = slices.Clone(s.AskedEpisodeIDs)
	c.Deck = slices.Clone(s.Deck)
	if s.Current != nil {
		r := *s.Current
		r.Question.Choices = slices.Clone(s.Current.Question.Choices)
		c.Current = &r
	}
	return &c
}

// drawEpisode picks the next episode. With repeats prevented it is the head
// of the deck, which NextRound pops only once the question is built. Ids
// missing from cat are dropped.
func (s *Session) drawEpisode(cat *catalog.Catalog, rng *rand.Rand) (show.Episode, bool) {
	if !s.Config.PreventRepeats {
		return cat.Episodes[rng.IntN(len(cat.Episodes))], true
	}
	for len(s.Deck) > 0 {
		if e, found := cat.EpisodeByID(s.Deck[0]); found {
			return e, true
		}
		s.Deck = s.Deck[1:]
	}
	return show.Episode{}, false
}

func (s *Session) checkMutable() error {
	switch s.State {
	case StateFinished:
		return ErrFinished
	case StateLoadError:
		return ErrLoadFailed
	}
	return nil
}

func (s *Session) finish() {
	s.State = StateFinished
	s.touch()
}

func (s *Session) touch() { s.UpdatedAt = now() }
