package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/showtrivia/internal/catalog"
	"github.com/robalobadob/showtrivia/internal/cli"
	"github.com/robalobadob/showtrivia/internal/config"
	"github.com/robalobadob/showtrivia/internal/tvmaze"
)

func main() {
	rounds := flag.Int("rounds", 0, "number of rounds (default GAME_MAX_ROUNDS)")
	allowRepeats := flag.Bool("allow-repeats", false, "allow the same episode to be asked more than once")
	flag.Parse()

	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *rounds, *allowRepeats); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, rounds int, allowRepeats bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if rounds <= 0 {
		rounds = cfg.Game.MaxRounds
	}

	client := tvmaze.NewClient(&http.Client{},
		tvmaze.WithBaseURL(cfg.TVMaze.BaseURL),
		tvmaze.WithRetries(cfg.TVMaze.FetchRetries),
	)
	provider := catalog.NewProvider(client, cfg.TVMaze.ShowID, cfg.TVMaze.FetchTimeout, 0)

	return cli.Run(ctx, os.Stdin, os.Stdout, provider, cli.Options{
		Rounds:       rounds,
		AllowRepeats: allowRepeats,
	})
}
