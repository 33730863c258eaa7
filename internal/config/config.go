// Package config reads the server configuration from the environment.
// A .env file, when present, is loaded first by the caller (godotenv).
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"5175"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	DBPath   string `env:"DB_PATH" envDefault:"./data/showtrivia.db"`

	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"showtrivia_token"`

	// RedisURL selects the redis session store; empty keeps sessions in memory.
	RedisURL   string        `env:"REDIS_URL"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"6h"`

	TVMaze TVMaze
	Game   Game
}

type TVMaze struct {
	BaseURL      string        `env:"TVMAZE_BASE_URL" envDefault:"https://api.tvmaze.com"`
	ShowID       int           `env:"TVMAZE_SHOW_ID" envDefault:"431"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"10s"`
	FetchRetries int           `env:"FETCH_RETRIES" envDefault:"2"`
	CatalogTTL   time.Duration `env:"CATALOG_TTL" envDefault:"1h"`
}

type Game struct {
	MaxRounds      int  `env:"GAME_MAX_ROUNDS" envDefault:"20"`
	PreventRepeats bool `env:"GAME_PREVENT_REPEATS" envDefault:"true"`
	// DailySalt keys the daily challenge seed; change it to reshuffle.
	DailySalt string `env:"DAILY_SALT" envDefault:"local_dev_salt"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.TVMaze.ShowID <= 0 {
		return nil, fmt.Errorf("TVMAZE_SHOW_ID must be positive, got %d", cfg.TVMaze.ShowID)
	}
	return &cfg, nil
}

// Production reports whether cookies should be Secure and SameSite=None.
func (c *Config) Production() bool { return c.AppEnv == "production" }

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}
