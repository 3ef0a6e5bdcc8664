package chess

import (
	"context"
	"fmt"
	"time"

	corechess "github.com/park285/adaptive-chess-bot/internal/chess"
	"github.com/park285/adaptive-chess-bot/internal/chess/uci"
	"go.uber.org/zap"
)

// Engine is the search surface a session needs from one engine process.
type Engine interface {
	BestMove(ctx context.Context, q corechess.Query, depth int) (string, error)
	Evaluate(ctx context.Context, q corechess.Query, depth int) (int, error)
	NewGame(ctx context.Context) error
	Healthy() bool
}

// EngineProvider leases engines to sessions. Release with a non-nil err
// tells the provider the engine must not be handed out again.
type EngineProvider interface {
	Acquire(ctx context.Context) (Engine, error)
	Release(engine Engine, err error)
}

// PoolProvider leases engines backed by a uci.Pool and a shared
// evaluation cache.
type PoolProvider struct {
	pool   *uci.Pool
	cache  *corechess.EvalCache
	logger *zap.Logger
}

func NewPoolProvider(pool *uci.Pool, cache *corechess.EvalCache, logger *zap.Logger) *PoolProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolProvider{pool: pool, cache: cache, logger: logger}
}

func (p *PoolProvider) Acquire(ctx context.Context) (Engine, error) {
	session, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	stats := p.pool.Stats()
	p.logger.Debug("engine leased",
		zap.Int("live", stats.Live),
		zap.Int("leased", stats.Leased),
		zap.Int("capacity", stats.Capacity),
	)
	return corechess.NewEngine(session, p.cache, p.logger), nil
}

func (p *PoolProvider) Release(engine Engine, err error) {
	eng, ok := engine.(*corechess.Engine)
	if !ok || eng == nil {
		return
	}
	p.pool.Release(eng.Session(), err)
}

// engineCalls bounds every engine call with a depth derived deadline and
// translates failures into ErrEngineFailure. The engine is only acquired
// once a call needs it.
type engineCalls struct {
	acquire func(ctx context.Context) (Engine, error)
	floor   time.Duration
}

func (c engineCalls) bestMove(ctx context.Context, q corechess.Query, depth int) (string, error) {
	engine, err := c.acquire(ctx)
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, corechess.SearchTimeout(depth, c.floor))
	defer cancel()
	move, err := engine.BestMove(callCtx, q, depth)
	if err != nil {
		return "", mapEngineError(fmt.Sprintf("best move at depth %d", depth), err)
	}
	return move, nil
}

func (c engineCalls) evaluate(ctx context.Context, q corechess.Query, depth int) (int, error) {
	engine, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	callCtx, cancel := context.WithTimeout(ctx, corechess.SearchTimeout(depth, c.floor))
	defer cancel()
	score, err := engine.Evaluate(callCtx, q, depth)
	if err != nil {
		return 0, mapEngineError(fmt.Sprintf("evaluate at depth %d", depth), err)
	}
	return score, nil
}
