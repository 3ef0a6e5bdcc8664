package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type AppConfig struct {
	StockfishPath  string
	EngineThreads  int
	EngineHashMB   int
	EnginePoolSize int
	EngineTimeout  time.Duration

	DefaultDepth   int
	ReferenceDepth int

	HTTPAddr    string
	CORSOrigins []string
	ServerURL   string

	RedisURL      string
	DatabaseURL   string
	DataDir       string
	SnapshotTTL   time.Duration
	EvalCacheSize int64

	MessagesDir string
}

// Load reads the environment. A .env file in the working directory is
// applied first by godotenv.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		StockfishPath:  "stockfish",
		EngineThreads:  1,
		EngineHashMB:   16,
		EnginePoolSize: 4,
		EngineTimeout:  10 * time.Second,
		DefaultDepth:   4,
		ReferenceDepth: 8,
		HTTPAddr:       "127.0.0.1:8000",
		ServerURL:      "http://127.0.0.1:8000",
		SnapshotTTL:    24 * time.Hour,
		EvalCacheSize:  100_000,
	}

	if v := env("STOCKFISH_PATH"); v != "" {
		cfg.StockfishPath = v
	}
	var errs []error
	intVar := func(key string, dst *int) {
		if v := env(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	intVar("ENGINE_THREADS", &cfg.EngineThreads)
	intVar("ENGINE_HASH_MB", &cfg.EngineHashMB)
	intVar("ENGINE_POOL_SIZE", &cfg.EnginePoolSize)
	intVar("DEFAULT_DEPTH", &cfg.DefaultDepth)
	intVar("REFERENCE_DEPTH", &cfg.ReferenceDepth)

	var timeoutMS int
	intVar("ENGINE_TIMEOUT_MS", &timeoutMS)
	if timeoutMS != 0 {
		cfg.EngineTimeout = time.Duration(timeoutMS) * time.Millisecond
	}

	if v := env("EVAL_CACHE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("EVAL_CACHE_SIZE: %w", err))
		} else {
			cfg.EvalCacheSize = n
		}
	}
	if v := env("SNAPSHOT_TTL"); v != "" {
		ttl, err := parseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SNAPSHOT_TTL: %w", err))
		} else {
			cfg.SnapshotTTL = ttl
		}
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.CORSOrigins = splitList(env("CORS_ORIGINS"))
	if v := env("SERVER_URL"); v != "" {
		cfg.ServerURL = strings.TrimRight(v, "/")
	}

	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.DataDir = env("DATA_DIR")
	cfg.MessagesDir = env("MESSAGES_DIR")

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges after parsing.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.StockfishPath == "" {
		errs = append(errs, errors.New("STOCKFISH_PATH is required"))
	}
	if c.DefaultDepth < 1 || c.DefaultDepth > 8 {
		errs = append(errs, fmt.Errorf("DEFAULT_DEPTH must be between 1 and 8, got %d", c.DefaultDepth))
	}
	if c.ReferenceDepth < 1 || c.ReferenceDepth > 30 {
		errs = append(errs, fmt.Errorf("REFERENCE_DEPTH must be between 1 and 30, got %d", c.ReferenceDepth))
	}
	if c.EngineThreads < 1 {
		errs = append(errs, fmt.Errorf("ENGINE_THREADS must be positive, got %d", c.EngineThreads))
	}
	if c.EngineHashMB < 1 {
		errs = append(errs, fmt.Errorf("ENGINE_HASH_MB must be positive, got %d", c.EngineHashMB))
	}
	if c.EnginePoolSize < 1 {
		errs = append(errs, fmt.Errorf("ENGINE_POOL_SIZE must be positive, got %d", c.EnginePoolSize))
	}
	if c.EngineTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ENGINE_TIMEOUT_MS must be positive"))
	}
	if c.EvalCacheSize < 0 {
		errs = append(errs, fmt.Errorf("EVAL_CACHE_SIZE must not be negative"))
	}
	return errors.Join(errs...)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
