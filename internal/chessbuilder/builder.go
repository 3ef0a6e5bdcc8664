package chessbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	corechess "github.com/park285/adaptive-chess-bot/internal/chess"
	"github.com/park285/adaptive-chess-bot/internal/chess/uci"
	"github.com/park285/adaptive-chess-bot/internal/config"
	"github.com/park285/adaptive-chess-bot/internal/service/cache"
	svcchess "github.com/park285/adaptive-chess-bot/internal/service/chess"
	"go.uber.org/zap"
)

type Deps struct {
	Service  *svcchess.Service
	Pool     *uci.Pool
	Evals    *corechess.EvalCache
	Cache    *cache.CacheService
	Repo     svcchess.Repository
	Renderer svcchess.BoardRenderer

	closers []func() error
	logger  *zap.Logger
}

// Options adjusts how New wires optional backends.
type Options struct {
	// Spawn replaces the real engine process, mainly for tests.
	Spawn uci.SpawnFunc
	// PreferLocalStore picks badger over Postgres when both are configured.
	PreferLocalStore bool
}

func New(cfg *config.AppConfig, logger *zap.Logger, opts Options) (deps *Deps, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps = &Deps{logger: logger}
	defer func() {
		if err != nil {
			_ = deps.Close()
		}
	}()

	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath: cfg.StockfishPath,
		Options: uci.Options{
			Threads: cfg.EngineThreads,
			HashMB:  cfg.EngineHashMB,
			MultiPV: 1,
			Logger:  logger.Named("uci"),
		},
		Capacity: cfg.EnginePoolSize,
		Spawn:    opts.Spawn,
	})
	if err != nil {
		return nil, fmt.Errorf("init engine pool: %w", err)
	}
	deps.Pool = pool
	deps.closers = append(deps.closers, pool.Close)

	evals, err := corechess.NewEvalCache(cfg.EvalCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init eval cache: %w", err)
	}
	deps.Evals = evals
	deps.closers = append(deps.closers, func() error { evals.Close(); return nil })

	// Redis is optional; without it snapshots live only in process.
	var mirror svcchess.SnapshotMirror
	if strings.TrimSpace(cfg.RedisURL) != "" {
		cacheSvc, err := cache.NewFromURL(cfg.RedisURL, "", logger)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		deps.Cache = cacheSvc
		deps.closers = append(deps.closers, cacheSvc.Close)
		mirror = svcchess.NewRedisMirror(cacheSvc, cfg.SnapshotTTL)
	}

	repo, err := deps.openRepository(cfg, opts)
	if err != nil {
		return nil, err
	}
	deps.Repo = repo

	deps.Renderer = svcchess.NewSVGBoardRenderer()
	service, err := svcchess.NewService(
		svcchess.NewPoolProvider(pool, evals, logger),
		mirror,
		repo,
		deps.Renderer,
		svcchess.Config{
			DefaultDepth:   cfg.DefaultDepth,
			ReferenceDepth: cfg.ReferenceDepth,
			EngineTimeout:  cfg.EngineTimeout,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}
	deps.Service = service
	return deps, nil
}

func (d *Deps) openRepository(cfg *config.AppConfig, opts Options) (svcchess.Repository, error) {
	usePostgres := strings.TrimSpace(cfg.DatabaseURL) != "" &&
		!(opts.PreferLocalStore && strings.TrimSpace(cfg.DataDir) != "")

	switch {
	case usePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(8)
		db.SetConnMaxLifetime(30 * time.Minute)
		d.closers = append(d.closers, db.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := svcchess.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		d.logger.Info("finished games stored in postgres")
		return svcchess.NewRepository(db), nil

	case strings.TrimSpace(cfg.DataDir) != "":
		repo, err := svcchess.OpenBadgerRepository(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, repo.Close)
		d.logger.Info("finished games stored in badger", zap.String("dir", cfg.DataDir))
		return repo, nil

	default:
		d.logger.Info("finished games kept in memory")
		return svcchess.NewMemoryRepository(), nil
	}
}

// Analyze runs a multi-line search on a dedicated engine lease.
func (d *Deps) Analyze(ctx context.Context, fen string, depth, lines int) ([]corechess.Line, error) {
	session, err := d.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	engine := corechess.NewEngine(session, d.Evals, d.logger)
	result, err := engine.Analyze(ctx, fen, depth, lines)
	d.Pool.Release(session, err)
	return result, err
}

// Close releases sessions first, then backends in reverse order.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	if d.Service != nil {
		d.Service.Close()
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens only the finished-game repository, for commands that
// never talk to the engine.
func OpenStore(cfg *config.AppConfig, logger *zap.Logger, opts Options) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{logger: logger}
	repo, err := deps.openRepository(cfg, opts)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.Repo = repo
	return deps, nil
}
