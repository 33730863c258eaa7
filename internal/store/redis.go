// internal/store/redis.go
//
// Redis-backed session store, for running more than one server.
// Sessions are JSON under showtrivia:session:<id> and expire after the TTL.
// Update is an optimistic WATCH/MULTI transaction retried on conflict.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robalobadob/showtrivia/internal/game"
)

const (
	redisKeyPrefix    = "showtrivia:session:"
	redisMaxTxRetries = 10
)

// redisStore keeps sessions as JSON strings so several server instances can
// share them. Updates use WATCH/MULTI optimistic transactions.
type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl stores without expiry.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, ttl: ttl}
}

// OpenRedis parses url, connects and pings.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

func (r *redisStore) Save(ctx context.Context, s *game.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.rdb.Set(ctx, redisKeyPrefix+s.ID, b, r.ttl).Err()
}

func (r *redisStore) Get(ctx context.Context, id string) (*game.Session, error) {
	b, err := r.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(b)
}

func (r *redisStore) Update(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error) {
	key := redisKeyPrefix + id

	for i := 0; i < redisMaxTxRetries; i++ {
		var (
			out   *game.Session
			fnErr error
		)
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			b, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			s, err := decodeSession(b)
			if err != nil {
				return err
			}

			fnErr = fn(s)

			enc, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("encode session: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, enc, r.ttl)
				return nil
			})
			out = s
			return err
		}, key)

		switch {
		case err == nil:
			return out, fnErr
		case errors.Is(err, redis.TxFailedErr):
			continue // someone else wrote the key; retry with fresh state
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("update session %s: too much contention", id)
}

func decodeSession(b []byte) (*game.Session, error) {
	var s game.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
