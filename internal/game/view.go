// internal/game/view.go
//
// Client-facing projection of a session. The correct answer of the current
// round stays hidden until it has been answered.

package game

// View is what the rendering boundary sees: no correct answer until the
// round has been answered.
type View struct {
	ID           string     `json:"gameId"`
	State        State      `json:"state"`
	Score        int        `json:"score"`
	RoundsPlayed int        `json:"roundsPlayed"`
	MaxRounds    int        `json:"maxRounds"`
	Daily        string     `json:"daily,omitempty"`
	Round        *RoundView `json:"round,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// RoundView is the current round as shown to the player. Selected, Correct
// and CorrectAnswer are set once the round is answered.
type RoundView struct {
	Number        int      `json:"number"`
	Text          string   `json:"text"`
	Choices       []string `json:"choices"`
	Answered      bool     `json:"answered"`
	Selected      string   `json:"selected,omitempty"`
	Correct       *bool    `json:"correct,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
}

// Public projects the session for clients.
func (s *Session) Public() View {
	v := View{
		ID:           s.ID,
		State:        s.State,
		Score:        s.Score,
		RoundsPlayed: s.RoundsPlayed,
		MaxRounds:    s.MaxRounds,
		Daily:        s.Daily,
		Summary:      s.Summary(),
	}
	if s.State == StateLoadError {
		v.Error = s.LoadError
		v.Summary = ""
	}
	if r := s.Current; r != nil {
		rv := &RoundView{
			Number:   r.Number,
			Text:     r.Question.Text,
			Choices:  append([]string(nil), r.Question.Choices...),
			Answered: r.Answered,
		}
		if r.Answered {
			correct := r.Correct
			rv.Selected = r.Selected
			rv.Correct = &correct
			rv.CorrectAnswer = r.Question.CorrectAnswer
		}
		v.Round = rv
	}
	return v
}
