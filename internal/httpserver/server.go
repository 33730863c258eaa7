// internal/httpserver/server.go
//
// HTTP server wiring for the trivia backend.
// Responsibilities:
//   - Router + middleware (request IDs, request logging, CORS, timeouts,
//     panic recovery).
//   - Public endpoints: "/", "/health", show listings, leaderboard.
//   - Game endpoints (optional auth): /game/new, /game/answer, /game/next,
//     /game/{id}.
//   - Daily Challenge endpoints: mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with the player when a valid token is
//     present; guests get a stable anonymous cookie instead.

package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/showtrivia/internal/catalog"
	"github.com/robalobadob/showtrivia/internal/config"
	"github.com/robalobadob/showtrivia/internal/players"
	"github.com/robalobadob/showtrivia/internal/results"
	"github.com/robalobadob/showtrivia/internal/store"
)

// Server bundles the router, session store, catalog and DB-backed stores.
type Server struct {
	r   *chi.Mux
	srv *http.Server
	cfg *config.Config

	store   store.Store
	catalog catalog.Loader
	db      *sql.DB
	results *results.Store
	players *players.Store

	// newRand returns the randomness for one request.
	newRand func() *rand.Rand
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg *config.Config, st store.Store, db *sql.DB, loader catalog.Loader, pl *players.Store) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		store:   st,
		catalog: loader,
		db:      db,
		results: results.NewStore(db),
		players: pl,
		newRand: func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger(log.Logger))
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(handlerTimeout(cfg)))
	s.r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "showtrivia",
			"endpoints": []string{
				"/health", "/episodes", "/cast", "/leaderboard",
				"POST /game/new", "POST /game/answer", "POST /game/next", "/game/{id}",
				"POST /daily/new", "/daily/leaderboard", "/auth/*",
			},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Get("/debug/catalog", s.handleDebugCatalog)

	s.mountShowRoutes()
	s.mountGameRoutes()
	s.mountDaily()
	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	s.srv = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Run serves until Shutdown is called.
func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// handlerTimeout leaves room for a cold catalog load inside /game/new.
func handlerTimeout(cfg *config.Config) time.Duration {
	if d := 2 * cfg.TVMaze.FetchTimeout; d > 10*time.Second {
		return d
	}
	return 10 * time.Second
}

// requestLogger attaches a request-scoped zerolog logger and logs one line
// per request.
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		hlog.NewHandler(base),
		hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", size).
				Dur("duration", d).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http request")
		}),
	}
	return func(next http.Handler) http.Handler {
		for i := len(chain) - 1; i >= 0; i-- {
			next = chain[i](next)
		}
		return next
	}
}

func (s *Server) handleDebugCatalog(w http.ResponseWriter, r *http.Request) {
	type statser interface{ Stats() (episodes, cast int) }
	if p, ok := s.catalog.(statser); ok {
		e, c := p.Stats()
		writeJSON(w, http.StatusOK, map[string]int{"episodes": e, "cast": c})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"episodes": 0, "cast": 0})
}
