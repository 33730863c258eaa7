// internal/trivia/question.go
//
// Question generation for the show trivia game.
// Five templates exist; Generate picks one uniformly, computes the correct
// answer, samples up to three distinct wrong answers from real data and
// shuffles the choices. All randomness comes from the injected *rand.Rand,
// so a fixed seed reproduces the same question.

package trivia

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/robalobadob/showtrivia/internal/show"
)

var (
	ErrNoEpisodes     = errors.New("trivia: no episodes")
	ErrNoCast         = errors.New("trivia: no cast")
	ErrMissingSummary = errors.New("trivia: episode has no summary")
)

// Template identifies how a question is built.
type Template int

const (
	TemplateTitleFromSummary Template = iota
	TemplateSeason
	TemplateAirdate
	TemplateActorForCharacter
	TemplateCharacterForActor

	templateCount
)

const (
	maxWrongAnswers = 3
	minSeasonPool   = 10
)

func (t Template) String() string {
	switch t {
	case TemplateTitleFromSummary:
		return "title_from_summary"
	case TemplateSeason:
		return "season"
	case TemplateAirdate:
		return "airdate"
	case TemplateActorForCharacter:
		return "actor_for_character"
	case TemplateCharacterForActor:
		return "character_for_actor"
	}
	return "unknown"
}

// MarshalText renders the template name in JSON payloads.
func (t Template) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText accepts the names produced by MarshalText.
func (t *Template) UnmarshalText(b []byte) error {
	for c := Template(0); c < templateCount; c++ {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("trivia: unknown template %q", b)
}

// Question is one multiple-choice prompt. Choices contains CorrectAnswer
// exactly once and holds no duplicates.
type Question struct {
	Text          string   `json:"text"`
	CorrectAnswer string   `json:"correctAnswer"`
	Choices       []string `json:"choices"`
	Template      Template `json:"template"`
	EpisodeID     int      `json:"episodeId"`
}

// Generate builds a question about episode using a uniformly chosen template.
func Generate(rng *rand.Rand, episode show.Episode, episodes []show.Episode, cast []show.CastMember) (Question, error) {
	return GenerateTemplate(rng, Template(rng.IntN(int(templateCount))), episode, episodes, cast)
}

// GenerateTemplate is Generate with the template fixed.
func GenerateTemplate(rng *rand.Rand, tmpl Template, episode show.Episode, episodes []show.Episode, cast []show.CastMember) (Question, error) {
	if len(episodes) == 0 {
		return Question{}, ErrNoEpisodes
	}
	if len(cast) == 0 {
		return Question{}, ErrNoCast
	}

	q := Question{Template: tmpl, EpisodeID: episode.ID}
	var wrong []string

	switch tmpl {
	case TemplateTitleFromSummary:
		summary := show.StripMarkup(episode.Summary)
		if summary == "" {
			return Question{}, ErrMissingSummary
		}
		q.Text = "Guess the title of this episode from the description: \n\n " + summary
		q.CorrectAnswer = episode.Name
		wrong = sample(rng, otherEpisodes(episodes, episode.ID, func(e show.Episode) string { return e.Name }), q.CorrectAnswer)

	case TemplateSeason:
		q.Text = fmt.Sprintf("Which season does this episode belong to: %q?", episode.Name)
		q.CorrectAnswer = strconv.Itoa(episode.Season)
		top := max(minSeasonPool, show.MaxSeason(episodes))
		pool := make([]string, 0, top)
		for s := 1; s <= top; s++ {
			if s != episode.Season {
				pool = append(pool, strconv.Itoa(s))
			}
		}
		wrong = sample(rng, pool, q.CorrectAnswer)

	case TemplateAirdate:
		q.Text = fmt.Sprintf("What was the air date of the episode: %q?", episode.Name)
		q.CorrectAnswer = episode.Airdate
		wrong = sample(rng, otherEpisodes(episodes, episode.ID, func(e show.Episode) string { return e.Airdate }), q.CorrectAnswer)

	case TemplateActorForCharacter:
		pick := cast[rng.IntN(len(cast))]
		q.Text = fmt.Sprintf("Who plays the character %q?", pick.Character.Name)
		q.CorrectAnswer = pick.Person.Name
		var pool []string
		for _, c := range cast {
			if c.Character.Name != pick.Character.Name {
				pool = append(pool, c.Person.Name)
			}
		}
		wrong = sample(rng, pool, q.CorrectAnswer)

	case TemplateCharacterForActor:
		pick := cast[rng.IntN(len(cast))]
		q.Text = fmt.Sprintf("Which character is played by the actor %q?", pick.Person.Name)
		q.CorrectAnswer = pick.Character.Name
		var pool []string
		for _, c := range cast {
			if c.Person.Name != pick.Person.Name {
				pool = append(pool, c.Character.Name)
			}
		}
		wrong = sample(rng, pool, q.CorrectAnswer)

	default:
		return Question{}, fmt.Errorf("trivia: unknown template %d", tmpl)
	}

	q.Choices = append([]string{q.CorrectAnswer}, wrong...)
	rng.Shuffle(len(q.Choices), func(i, j int) {
		q.Choices[i], q.Choices[j] = q.Choices[j], q.Choices[i]
	})
	return q, nil
}

func otherEpisodes(episodes []show.Episode, exclude int, field func(show.Episode) string) []string {
	out := make([]string, 0, len(episodes))
	for _, e := range episodes {
		if e.ID != exclude {
			out = append(out, field(e))
		}
	}
	return out
}

// sample walks pool in a random order and keeps up to maxWrongAnswers
// values that are non-empty, differ from correct and from each other.
func sample(rng *rand.Rand, pool []string, correct string) []string {
	seen := map[string]struct{}{correct: {}}
	out := make([]string, 0, maxWrongAnswers)
	for _, i := range rng.Perm(len(pool)) {
		if len(out) == maxWrongAnswers {
			break
		}
		v := pool[i]
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
