package chess

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/adaptive-chess-bot/internal/chess/uci"
	"go.uber.org/zap"
)

var ErrNoMove = errors.New("engine reported no legal move")

// Query names a position to search. FEN is the position itself. Moves, when
// set, is the game that led there in UCI from the standard start, and the
// engine is given that history instead so it can see repetitions.
type Query struct {
	FEN   string
	Moves []string
}

func (q Query) request(depth int) uci.SearchRequest {
	if len(q.Moves) > 0 {
		return uci.SearchRequest{FEN: "startpos", Moves: q.Moves, Limits: uci.Limits{Depth: depth}}
	}
	return uci.SearchRequest{FEN: strings.TrimSpace(q.FEN), Limits: uci.Limits{Depth: depth}}
}

// Engine answers best-move and evaluation queries for FEN positions on top
// of one exclusively owned UCI session.
type Engine struct {
	session *uci.Session
	cache   *EvalCache
	logger  *zap.Logger
}

func NewEngine(session *uci.Session, cache *EvalCache, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{session: session, cache: cache, logger: logger}
}

// Session exposes the underlying process handle so it can be released.
func (e *Engine) Session() *uci.Session { return e.session }

func (e *Engine) Healthy() bool {
	return e.session != nil && e.session.Healthy()
}

// BestMove returns the engine's preferred move in UCI notation.
func (e *Engine) BestMove(ctx context.Context, q Query, depth int) (string, error) {
	res, err := e.search(ctx, q, depth)
	if err != nil {
		return "", err
	}
	if res.BestMove == "" {
		return "", ErrNoMove
	}
	return res.BestMove, nil
}

// Evaluate returns the score of the position in centipawns from the side
// to move, mate folded to ±uci.MateScore.
func (e *Engine) Evaluate(ctx context.Context, q Query, depth int) (int, error) {
	res, err := e.search(ctx, q, depth)
	if err != nil {
		return 0, err
	}
	return res.Score, nil
}

// NewGame clears the engine's hash between games.
func (e *Engine) NewGame(ctx context.Context) error {
	if e.session == nil {
		return uci.ErrClosed
	}
	return e.session.NewGame(ctx)
}

func (e *Engine) search(ctx context.Context, q Query, depth int) (SearchResult, error) {
	if e.session == nil {
		return SearchResult{}, uci.ErrClosed
	}
	if depth <= 0 {
		return SearchResult{}, fmt.Errorf("search depth must be > 0: %d", depth)
	}
	q.FEN = strings.TrimSpace(q.FEN)
	if cached, ok := e.cache.Get(q, depth); ok {
		return cached, nil
	}

	start := time.Now()
	resp, err := e.session.Search(ctx, q.request(depth))
	if err != nil {
		return SearchResult{}, err
	}

	res := SearchResult{BestMove: resp.BestMove}
	switch best, ok := resp.Best(); {
	case ok:
		res.Score = best.EvalCP
	case resp.ScoreSet:
		res.Score = resp.Score
	default:
		return SearchResult{}, uci.ErrNoResult
	}

	e.cache.Put(q, depth, res)
	e.logger.Debug("engine search",
		zap.String("fen", q.FEN),
		zap.Int("history", len(q.Moves)),
		zap.Int("depth", depth),
		zap.String("best_move", res.BestMove),
		zap.Int("score_cp", res.Score),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Line is one analysed principal variation.
type Line struct {
	Move      string
	ScoreCP   int
	Mate      int
	Depth     int
	Principal []string
}

// Analyze runs a multi-line search. The MultiPV option is restored to one
// line afterwards so later BestMove calls stay cheap.
func (e *Engine) Analyze(ctx context.Context, fen string, depth, lines int) ([]Line, error) {
	if e.session == nil {
		return nil, uci.ErrClosed
	}
	if lines < 1 {
		lines = 1
	}
	if lines > 1 {
		if err := e.session.SetOption(ctx, "MultiPV", strconv.Itoa(lines)); err != nil {
			return nil, err
		}
		defer func() {
			if err := e.session.SetOption(context.WithoutCancel(ctx), "MultiPV", "1"); err != nil {
				e.logger.Warn("failed to restore MultiPV", zap.Error(err))
			}
		}()
	}

	resp, err := e.session.Search(ctx, uci.SearchRequest{FEN: strings.TrimSpace(fen), Limits: uci.Limits{Depth: depth}})
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoMove
	}
	out := make([]Line, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		out = append(out, Line{
			Move:      c.Move,
			ScoreCP:   c.EvalCP,
			Mate:      c.Mate,
			Depth:     c.Depth,
			Principal: append([]string(nil), c.Principal...),
		})
	}
	if len(out) > lines {
		out = out[:lines]
	}
	return out, nil
}
