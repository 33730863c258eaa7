package trivia

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/robalobadob/showtrivia/internal/show"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func fixtureEpisodes() []show.Episode {
	return []show.Episode{
		{ID: 1, Name: "Pilot", Season: 1, Number: 1, Airdate: "1994-09-22", Summary: "<p>Monica gets a new roommate.</p>"},
		{ID: 2, Name: "The One With...", Season: 1, Number: 2, Airdate: "1994-09-29", Summary: "<p>Ross deals with feelings.</p>"},
		{ID: 3, Name: "The One with the Thumb", Season: 1, Number: 3, Airdate: "1994-10-06", Summary: "<p>Phoebe finds a thumb.</p>"},
		{ID: 4, Name: "The One with George Stephanopoulos", Season: 1, Number: 4, Airdate: "1994-10-13", Summary: ""},
		{ID: 5, Name: "The One with the East German Laundry Detergent", Season: 1, Number: 5, Airdate: "1994-10-20", Summary: "<p>Laundry.</p>"},
		{ID: 6, Name: "The One with the Butt", Season: 1, Number: 6, Airdate: "1994-10-27", Summary: "<p>Joey gets a job.</p>"},
		// Two-part episode sharing an air date.
		{ID: 7, Name: "The One with the Proposal (1)", Season: 6, Number: 24, Airdate: "2000-05-18", Summary: "<p>Part one.</p>"},
		{ID: 8, Name: "The One with the Proposal (2)", Season: 6, Number: 25, Airdate: "2000-05-18", Summary: "<p>Part two.</p>"},
	}
}

func fixtureCast() []show.CastMember {
	member := func(actor, character string) show.CastMember {
		return show.CastMember{Person: show.Person{Name: actor}, Character: show.Character{Name: character}}
	}
	return []show.CastMember{
		member("Jennifer Aniston", "Rachel Green"),
		member("Courteney Cox", "Monica Geller"),
		member("Lisa Kudrow", "Phoebe Buffay"),
		member("Lisa Kudrow", "Ursula Buffay"),
		member("Matt LeBlanc", "Joey Tribbiani"),
		member("Matthew Perry", "Chandler Bing"),
		member("David Schwimmer", "Ross Geller"),
	}
}

func assertWellFormed(t *testing.T, q Question) {
	t.Helper()
	if len(q.Choices) == 0 || len(q.Choices) > 4 {
		t.Fatalf("expected 1-4 choices, got %d: %v", len(q.Choices), q.Choices)
	}
	count := 0
	seen := make(map[string]bool, len(q.Choices))
	for _, c := range q.Choices {
		if c == q.CorrectAnswer {
			count++
		}
		if seen[c] {
			t.Fatalf("duplicate choice %q in %v", c, q.Choices)
		}
		seen[c] = true
	}
	if count != 1 {
		t.Fatalf("correct answer %q appears %d times in %v", q.CorrectAnswer, count, q.Choices)
	}
}

func TestGeneratePropertiesAcrossSeeds(t *testing.T) {
	episodes := fixtureEpisodes()
	cast := fixtureCast()

	for seed := uint64(0); seed < 500; seed++ {
		rng := newRNG(seed)
		target := episodes[rng.IntN(len(episodes))]
		q, err := Generate(rng, target, episodes, cast)
		if errors.Is(err, ErrMissingSummary) {
			if target.Summary != "" {
				t.Fatalf("seed %d: missing summary reported for episode with summary", seed)
			}
			continue
		}
		if err != nil {
			t.Fatalf("seed %d: Generate returned error: %v", seed, err)
		}
		assertWellFormed(t, q)
		if q.EpisodeID != target.ID {
			t.Fatalf("seed %d: episode id = %d, want %d", seed, q.EpisodeID, target.ID)
		}
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	episodes := fixtureEpisodes()
	cast := fixtureCast()

	for seed := uint64(1); seed <= 20; seed++ {
		a, errA := Generate(newRNG(seed), episodes[2], episodes, cast)
		b, errB := Generate(newRNG(seed), episodes[2], episodes, cast)
		if errA != errB {
			t.Fatalf("seed %d: errors differ: %v vs %v", seed, errA, errB)
		}
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("seed %d: questions differ:\n%+v\n%+v", seed, a, b)
		}
	}
}

func TestSeasonQuestionExample(t *testing.T) {
	episodes := []show.Episode{
		{ID: 1, Name: "Pilot", Season: 1, Number: 1, Airdate: "1994-09-22", Summary: "Monica gets a new roommate."},
		{ID: 2, Name: "The One With...", Season: 1, Number: 2, Airdate: "1994-09-29", Summary: "Ross deals with feelings."},
	}
	cast := fixtureCast()

	for seed := uint64(0); seed < 50; seed++ {
		q, err := GenerateTemplate(newRNG(seed), TemplateSeason, episodes[0], episodes, cast)
		if err != nil {
			t.Fatalf("GenerateTemplate returned error: %v", err)
		}
		if q.CorrectAnswer != "1" {
			t.Fatalf("correct answer = %q, want \"1\"", q.CorrectAnswer)
		}
		if len(q.Choices) != 4 {
			t.Fatalf("expected 4 choices, got %v", q.Choices)
		}
		assertWellFormed(t, q)
		for _, c := range q.Choices {
			n, err := strconv.Atoi(c)
			if err != nil || n < 1 || n > 10 {
				t.Fatalf("season choice %q outside 1..10", c)
			}
		}
		if !strings.Contains(q.Text, `"Pilot"`) {
			t.Fatalf("question text should name the episode: %q", q.Text)
		}
	}
}

func TestSeasonPoolCoversLongShows(t *testing.T) {
	episodes := []show.Episode{
		{ID: 1, Name: "Finale", Season: 14},
		{ID: 2, Name: "Opener", Season: 1},
	}
	q, err := GenerateTemplate(newRNG(3), TemplateSeason, episodes[0], episodes, fixtureCast())
	if err != nil {
		t.Fatalf("GenerateTemplate returned error: %v", err)
	}
	if q.CorrectAnswer != "14" {
		t.Fatalf("correct answer = %q, want 14", q.CorrectAnswer)
	}
	assertWellFormed(t, q)
}

func TestTitleFromSummary(t *testing.T) {
	episodes := fixtureEpisodes()
	q, err := GenerateTemplate(newRNG(7), TemplateTitleFromSummary, episodes[0], episodes, fixtureCast())
	if err != nil {
		t.Fatalf("GenerateTemplate returned error: %v", err)
	}
	if q.CorrectAnswer != "Pilot" {
		t.Fatalf("correct answer = %q, want Pilot", q.CorrectAnswer)
	}
	if strings.Contains(q.Text, "<p>") || !strings.Contains(q.Text, "Monica gets a new roommate.") {
		t.Fatalf("summary not stripped into text: %q", q.Text)
	}
	if len(q.Choices) != 4 {
		t.Fatalf("expected 4 choices, got %v", q.Choices)
	}
	assertWellFormed(t, q)
}

func TestTitleFromSummaryRequiresSummary(t *testing.T) {
	episodes := fixtureEpisodes()
	_, err := GenerateTemplate(newRNG(1), TemplateTitleFromSummary, episodes[3], episodes, fixtureCast())
	if !errors.Is(err, ErrMissingSummary) {
		t.Fatalf("expected ErrMissingSummary, got %v", err)
	}
}

func TestAirdateSkipsSharedDates(t *testing.T) {
	episodes := fixtureEpisodes()
	for seed := uint64(0); seed < 50; seed++ {
		q, err := GenerateTemplate(newRNG(seed), TemplateAirdate, episodes[6], episodes, fixtureCast())
		if err != nil {
			t.Fatalf("GenerateTemplate returned error: %v", err)
		}
		if q.CorrectAnswer != "2000-05-18" {
			t.Fatalf("correct answer = %q", q.CorrectAnswer)
		}
		assertWellFormed(t, q)
	}
}

func TestCastTemplates(t *testing.T) {
	episodes := fixtureEpisodes()
	cast := fixtureCast()
	actorOf := make(map[string]string)
	for _, c := range cast {
		actorOf[c.Character.Name] = c.Person.Name
	}

	for seed := uint64(0); seed < 100; seed++ {
		q, err := GenerateTemplate(newRNG(seed), TemplateActorForCharacter, episodes[0], episodes, cast)
		if err != nil {
			t.Fatalf("actor template: %v", err)
		}
		assertWellFormed(t, q)
		if !strings.HasPrefix(q.Text, "Who plays the character") {
			t.Fatalf("unexpected text %q", q.Text)
		}

		q, err = GenerateTemplate(newRNG(seed), TemplateCharacterForActor, episodes[0], episodes, cast)
		if err != nil {
			t.Fatalf("character template: %v", err)
		}
		assertWellFormed(t, q)
		for _, c := range q.Choices {
			if c != q.CorrectAnswer && strings.Contains(q.Text, actorOf[c]) {
				t.Fatalf("wrong answer %q is played by the asked actor: %q", c, q.Text)
			}
		}
	}
}

func TestSmallDataYieldsFewerChoices(t *testing.T) {
	episodes := []show.Episode{{ID: 1, Name: "Only", Season: 1, Airdate: "2001-01-01", Summary: "Alone."}}
	cast := []show.CastMember{{Person: show.Person{Name: "Solo"}, Character: show.Character{Name: "Self"}}}

	q, err := GenerateTemplate(newRNG(1), TemplateTitleFromSummary, episodes[0], episodes, cast)
	if err != nil {
		t.Fatalf("GenerateTemplate returned error: %v", err)
	}
	if !reflect.DeepEqual(q.Choices, []string{"Only"}) {
		t.Fatalf("expected only the correct answer, got %v", q.Choices)
	}

	q, err = GenerateTemplate(newRNG(1), TemplateActorForCharacter, episodes[0], episodes, cast)
	if err != nil {
		t.Fatalf("GenerateTemplate returned error: %v", err)
	}
	if !reflect.DeepEqual(q.Choices, []string{"Solo"}) {
		t.Fatalf("expected only the correct answer, got %v", q.Choices)
	}
}

func TestGenerateRejectsEmptyCollections(t *testing.T) {
	episodes := fixtureEpisodes()
	if _, err := Generate(newRNG(1), episodes[0], nil, fixtureCast()); !errors.Is(err, ErrNoEpisodes) {
		t.Fatalf("expected ErrNoEpisodes, got %v", err)
	}
	if _, err := Generate(newRNG(1), episodes[0], episodes, nil); !errors.Is(err, ErrNoCast) {
		t.Fatalf("expected ErrNoCast, got %v", err)
	}
}

func TestTemplateJSON(t *testing.T) {
	b, err := json.Marshal(Question{Template: TemplateAirdate})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"template":"airdate"`) {
		t.Fatalf("unexpected json %s", b)
	}
	var q Question
	if err := json.Unmarshal(b, &q); err != nil || q.Template != TemplateAirdate {
		t.Fatalf("unmarshal: %v, %v", q.Template, err)
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		selected    string
		correct     string
		score       int
		wantCorrect bool
		wantScore   int
	}{
		{name: "match increments", selected: "Pilot", correct: "Pilot", score: 4, wantCorrect: true, wantScore: 5},
		{name: "mismatch keeps score", selected: "Pilot", correct: "The One With...", score: 4, wantCorrect: false, wantScore: 4},
		{name: "case sensitive", selected: "pilot", correct: "Pilot", score: 0, wantCorrect: false, wantScore: 0},
		{name: "no trimming", selected: "Pilot ", correct: "Pilot", score: 1, wantCorrect: false, wantScore: 1},
		{name: "empty equal", selected: "", correct: "", score: 0, wantCorrect: true, wantScore: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.selected, tc.correct, tc.score)
			if got.Correct != tc.wantCorrect || got.Score != tc.wantScore {
				t.Fatalf("Evaluate(%q, %q, %d) = %+v, want {%v %d}", tc.selected, tc.correct, tc.score, got, tc.wantCorrect, tc.wantScore)
			}
		})
	}
}
