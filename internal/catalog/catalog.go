// internal/catalog/catalog.go
//
// Data provider for the trivia game and the listing endpoints.
// Responsibilities:
//   - Fetch the episode and cast lists concurrently (join, not sequence).
//   - Bound the whole load with a timeout.
//   - Reject empty collections (insufficient data).
//   - Cache a good catalog for a TTL; concurrent cold loads share one fetch.
//   - Keep serving the last good catalog when a refresh fails.
//
// A failed load is always either a *FetchError or ErrInsufficientData;
// callers map both to the game's load_error state.

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/showtrivia/internal/show"
)

// ErrInsufficientData means a source answered but with no usable records.
var ErrInsufficientData = errors.New("catalog: no episodes or cast available")

// FetchError wraps a failed fetch of one resource ("episodes" or "cast").
type FetchError struct {
	Resource string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("catalog: fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Catalog is one immutable snapshot of show data. Callers must not mutate
// the slices.
type Catalog struct {
	Episodes  []show.Episode
	Cast      []show.CastMember
	FetchedAt time.Time
}

// EpisodeByID returns the episode with the given id.
func (c *Catalog) EpisodeByID(id int) (show.Episode, bool) {
	for _, e := range c.Episodes {
		if e.ID == id {
			return e, true
		}
	}
	return show.Episode{}, false
}

// Source is the upstream API. *tvmaze.Client satisfies it.
type Source interface {
	Episodes(ctx context.Context, showID int) ([]show.Episode, error)
	Cast(ctx context.Context, showID int) ([]show.CastMember, error)
}

// Loader yields a catalog. The HTTP server and the CLI depend on this,
// not on *Provider, so tests can substitute fixed data.
type Loader interface {
	Load(ctx context.Context) (*Catalog, error)
}

// Provider is the TVMaze-backed Loader with caching.
type Provider struct {
	src     Source
	showID  int
	timeout time.Duration
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	cached   *Catalog
	inflight *call
}

type call struct {
	done chan struct{}
	cat  *Catalog
	err  error
}

// NewProvider builds a provider for showID. A zero timeout disables the
// deadline; a zero ttl disables caching.
func NewProvider(src Source, showID int, timeout, ttl time.Duration) *Provider {
	return &Provider{
		src:     src,
		showID:  showID,
		timeout: timeout,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load returns the cached catalog when fresh, otherwise fetches a new one.
// Concurrent callers share one in-flight fetch. The fetch is detached from
// the caller's cancellation (only the provider timeout bounds it), and each
// caller stops waiting when its own ctx is done. When a refetch fails but an
// earlier catalog exists, the stale copy is served.
func (p *Provider) Load(ctx context.Context) (*Catalog, error) {
	p.mu.Lock()
	if c := p.cached; c != nil && p.ttl > 0 && p.now().Sub(c.FetchedAt) < p.ttl {
		p.mu.Unlock()
		return c, nil
	}
	inf := p.inflight
	if inf == nil {
		inf = &call{done: make(chan struct{})}
		p.inflight = inf
		go p.run(context.WithoutCancel(ctx), inf)
	}
	p.mu.Unlock()

	select {
	case <-inf.done:
		return inf.cat, inf.err
	case <-ctx.Done():
		return nil, &FetchError{Resource: "catalog", Err: ctx.Err()}
	}
}

func (p *Provider) run(ctx context.Context, inf *call) {
	cat, err := p.fetch(ctx)

	p.mu.Lock()
	switch {
	case err == nil:
		p.cached = cat
	case p.cached != nil:
		log.Warn().Err(err).Time("fetchedAt", p.cached.FetchedAt).Msg("catalog refresh failed, serving stale copy")
		cat, err = p.cached, nil
	}
	inf.cat, inf.err = cat, err
	p.inflight = nil
	p.mu.Unlock()
	close(inf.done)
}

// Stats reports the cached counts: (episodes, cast). Zero before first load.
func (p *Provider) Stats() (episodes, cast int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil {
		return 0, 0
	}
	return len(p.cached.Episodes), len(p.cached.Cast)
}

// Invalidate drops the cached catalog so the next Load refetches.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

func (p *Provider) fetch(ctx context.Context) (*Catalog, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := p.now()
	var (
		episodes []show.Episode
		cast     []show.CastMember
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		eps, err := p.src.Episodes(gctx, p.showID)
		if err != nil {
			return &FetchError{Resource: "episodes", Err: err}
		}
		episodes = eps
		return nil
	})
	g.Go(func() error {
		cm, err := p.src.Cast(gctx, p.showID)
		if err != nil {
			return &FetchError{Resource: "cast", Err: err}
		}
		cast = cm
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Int("showId", p.showID).Msg("catalog load failed")
		return nil, err
	}

	if len(episodes) == 0 || len(cast) == 0 {
		log.Warn().Int("episodes", len(episodes)).Int("cast", len(cast)).Msg("catalog insufficient")
		return nil, ErrInsufficientData
	}

	log.Info().
		Int("showId", p.showID).
		Int("episodes", len(episodes)).
		Int("cast", len(cast)).
		Dur("took", p.now().Sub(start)).
		Msg("catalog loaded")

	return &Catalog{Episodes: episodes, Cast: cast, FetchedAt: p.now()}, nil
}

// Static is a Loader over fixed data, used by tests and offline play.
type Static struct {
	Catalog *Catalog
	Err     error
}

func (s Static) Load(context.Context) (*Catalog, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Catalog == nil || len(s.Catalog.Episodes) == 0 || len(s.Catalog.Cast) == 0 {
		return nil, ErrInsufficientData
	}
	return s.Catalog, nil
}
