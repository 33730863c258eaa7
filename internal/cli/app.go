// Package cli plays a trivia game in the terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/showtrivia/internal/catalog"
	"github.com/robalobadob/showtrivia/internal/game"
)

const maxAttempts = 3

// Options selects the game variant.
type Options struct {
	Rounds       int
	AllowRepeats bool
	// Rand defaults to a randomly seeded PCG.
	Rand *rand.Rand
}

type styles struct {
	correct, wrong, subtle, header, err lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		correct: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true), // Green
		wrong:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),  // Red
		subtle:  r.NewStyle().Foreground(lipgloss.Color("8")),
		header:  r.NewStyle().Bold(true),
		err:     r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Run loads the catalog and plays one game over in/out.
func Run(ctx context.Context, in io.Reader, out io.Writer, loader catalog.Loader, opts Options) error {
	st := newStyles(lipgloss.NewRenderer(out))
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	sess := game.New("", game.Config{MaxRounds: opts.Rounds, PreventRepeats: !opts.AllowRepeats})

	cat, err := loader.Load(ctx)
	if err == nil {
		err = sess.Start(cat, rng)
	} else {
		sess.Fail()
	}
	if err != nil {
		fmt.Fprintln(out, st.err.Render(sess.Summary()))
		return err
	}

	reader := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		round, err := sess.NextRound(cat, rng)
		if errors.Is(err, game.ErrFinished) {
			break
		}
		if err != nil {
			return err
		}

		printQuestion(out, st, round, sess.MaxRounds)
		choices := round.Question.Choices
		idx, ok, eof := getAnswer(reader, out, len(choices))
		fmt.Fprintln(out)
		if eof {
			fmt.Fprintln(out, st.subtle.Render("Input closed."))
			return nil
		}

		choice := ""
		if ok {
			choice = choices[idx]
		} else {
			fmt.Fprintln(out, st.subtle.Render("Skipping."))
		}
		v, err := sess.Answer(choice)
		if err != nil {
			return err
		}
		if v.Correct {
			fmt.Fprintln(out, st.correct.Render("Correct! Well done."))
		} else {
			fmt.Fprintln(out, st.wrong.Render(fmt.Sprintf("Wrong! The correct answer was \"%s\".", round.Question.CorrectAnswer)))
		}
		fmt.Fprintf(out, "Score: %d\n", v.Score)

		if sess.Finished() {
			break
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, st.header.Render(sess.Summary()))
	return nil
}

func printQuestion(out io.Writer, st styles, round *game.Round, total int) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, st.header.Render(fmt.Sprintf("Q%d/%d:", round.Number, total)), round.Question.Text)
	fmt.Fprintln(out)
	for i, c := range round.Question.Choices {
		fmt.Fprintf(out, "%c. %s\n", 'A'+i, c)
	}
	fmt.Fprintln(out)
}

// getAnswer reads a letter, allowing maxAttempts tries. eof reports that
// input ended.
func getAnswer(reader *bufio.Reader, out io.Writer, optionCount int) (idx int, ok, eof bool) {
	if optionCount < 1 {
		return -1, false, false
	}
	maxLetter := byte('A' + optionCount - 1)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return -1, false, true
		}

		line = strings.ToUpper(strings.TrimSpace(line))
		if len(line) == 1 && line[0] >= 'A' && line[0] <= maxLetter {
			return int(line[0] - 'A'), true, false
		}
		if attempt < maxAttempts {
			fmt.Fprintf(out, "\nInvalid input. Please enter a letter A-%c.\n", maxLetter)
		}
	}
	return -1, false, false
}
