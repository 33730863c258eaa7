// main.go
//
// Entry point for the showtrivia HTTP server.
// Wires config, logging, SQLite, the session store (redis or memory), the
// TVMaze-backed catalog, and runs the server until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/showtrivia/assets"
	"github.com/robalobadob/showtrivia/internal/catalog"
	"github.com/robalobadob/showtrivia/internal/config"
	"github.com/robalobadob/showtrivia/internal/database"
	"github.com/robalobadob/showtrivia/internal/httpserver"
	"github.com/robalobadob/showtrivia/internal/players"
	"github.com/robalobadob/showtrivia/internal/store"
	"github.com/robalobadob/showtrivia/internal/tvmaze"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, assets.Migrations()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info().Str("path", cfg.DBPath).Msg("connected to sqlite")

	// --- Sessions ---
	var sessions store.Store
	if cfg.RedisURL != "" {
		rdb, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		sessions = store.NewRedisStore(rdb, cfg.SessionTTL)
		log.Info().Msg("sessions in redis")
	} else {
		sessions = store.NewMemoryStore(cfg.SessionTTL)
		log.Info().Msg("sessions in memory")
	}

	// --- Show data ---
	client := tvmaze.NewClient(&http.Client{},
		tvmaze.WithBaseURL(cfg.TVMaze.BaseURL),
		tvmaze.WithRetries(cfg.TVMaze.FetchRetries),
	)
	provider := catalog.NewProvider(client, cfg.TVMaze.ShowID, cfg.TVMaze.FetchTimeout, cfg.TVMaze.CatalogTTL)

	// Warm the cache; a failure here is not fatal, games retry the load.
	if cat, err := provider.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("initial catalog load failed")
	} else {
		log.Info().Int("episodes", len(cat.Episodes)).Int("cast", len(cat.Cast)).Msg("catalog loaded")
	}

	srv := httpserver.New(cfg, sessions, db, provider, players.NewStore(db))

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("starting showtrivia server")
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down http server")
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}
