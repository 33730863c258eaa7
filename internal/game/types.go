// internal/game/types.go
//
// Core type definitions for the trivia round controller.
// Defines:
//   - State: lifecycle of a session (not_started → in_progress → finished,
//     or not_started → load_error).
//   - Config: repeat prevention and round limit.
//   - Round: one question/answer cycle.
//   - Session: the game state for one playthrough.

package game

import (
	"time"

	"github.com/robalobadob/showtrivia/internal/trivia"
)

// State is the coarse lifecycle of a Session.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateFinished   State = "finished"
	StateLoadError  State = "load_error"
)

// DefaultMaxRounds matches the classic 20-question game.
const DefaultMaxRounds = 20

// LoadErrorMessage is shown to players when show data could not be loaded.
const LoadErrorMessage = "Error loading data. Please try again later."

// Config selects the game variant.
type Config struct {
	PreventRepeats bool `json:"preventRepeats"` // never ask about the same episode twice
	MaxRounds      int  `json:"maxRounds"`      // rounds per session; <=0 means DefaultMaxRounds
}

// DefaultConfig is 20 rounds without repeated episodes.
func DefaultConfig() Config {
	return Config{PreventRepeats: true, MaxRounds: DefaultMaxRounds}
}

// Round is a single question and, once answered, its outcome.
type Round struct {
	Number   int             `json:"number"` // 1-based
	Question trivia.Question `json:"question"`
	Answered bool            `json:"answered"`
	Selected string          `json:"selected,omitempty"`
	Correct  bool            `json:"correct"`
}

// Session holds the state of one playthrough. All fields are exported so
// stores can serialise it; mutate only through the methods in engine.go.
type Session struct {
	ID              string    `json:"id"`
	State           State     `json:"state"`
	Config          Config    `json:"config"`
	MaxRounds       int       `json:"maxRounds"` // effective limit after capping to available episodes
	Score           int       `json:"score"`
	AskedEpisodeIDs []int     `json:"askedEpisodeIds"`
	RoundsPlayed    int       `json:"roundsPlayed"`
	Deck            []int     `json:"deck,omitempty"` // remaining episode ids when repeats are prevented
	Current         *Round    `json:"current,omitempty"`
	LoadError       string    `json:"loadError,omitempty"`
	UserID          string    `json:"userId,omitempty"`
	AnonymousID     string    `json:"anonymousId,omitempty"`
	Daily           string    `json:"daily,omitempty"` // YYYY-MM-DD for daily challenge sessions
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
