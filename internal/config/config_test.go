package config

import (
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"STOCKFISH_PATH", "ENGINE_THREADS", "ENGINE_HASH_MB", "ENGINE_POOL_SIZE", "ENGINE_TIMEOUT_MS",
	"DEFAULT_DEPTH", "REFERENCE_DEPTH", "HTTP_ADDR", "CORS_ORIGINS", "SERVER_URL", "REDIS_URL",
	"DATABASE_URL", "DATA_DIR", "SNAPSHOT_TTL", "EVAL_CACHE_SIZE", "MESSAGES_DIR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StockfishPath != "stockfish" || cfg.DefaultDepth != 4 || cfg.ReferenceDepth != 8 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.HTTPAddr != "127.0.0.1:8000" || cfg.EngineTimeout != 10*time.Second || cfg.SnapshotTTL != 24*time.Hour {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 0 || cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Fatalf("optional values set: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOCKFISH_PATH", "/opt/sf")
	t.Setenv("ENGINE_POOL_SIZE", "2")
	t.Setenv("ENGINE_TIMEOUT_MS", "2500")
	t.Setenv("DEFAULT_DEPTH", "6")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("SNAPSHOT_TTL", "90")
	t.Setenv("SERVER_URL", "http://srv:9000/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StockfishPath != "/opt/sf" || cfg.EnginePoolSize != 2 || cfg.DefaultDepth != 6 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.EngineTimeout != 2500*time.Millisecond || cfg.SnapshotTTL != 90*time.Second {
		t.Fatalf("durations = %v %v", cfg.EngineTimeout, cfg.SnapshotTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("origins = %v", cfg.CORSOrigins)
	}
	if cfg.ServerURL != "http://srv:9000" {
		t.Fatalf("server url = %q", cfg.ServerURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"DEFAULT_DEPTH":    "9",
		"ENGINE_THREADS":   "zero",
		"ENGINE_POOL_SIZE": "0",
		"SNAPSHOT_TTL":     "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Fatalf("err = %v, want mention of %s", err, key)
			}
		})
	}
}
