// internal/trivia/evaluate.go
//
// Answer evaluation: exact match against the correct answer, one point
// per correct choice.

package trivia

// Verdict is the outcome of one submitted choice.
type Verdict struct {
	Correct bool `json:"correct"`
	Score   int  `json:"score"`
}

// Evaluate compares selected to correct by exact string equality and
// returns the updated score: score+1 when correct, unchanged otherwise.
func Evaluate(selected, correct string, score int) Verdict {
	if selected == correct {
		return Verdict{Correct: true, Score: score + 1}
	}
	return Verdict{Correct: false, Score: score}
}
