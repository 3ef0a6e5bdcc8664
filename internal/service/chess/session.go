package chess

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	corechess "github.com/park285/adaptive-chess-bot/internal/chess"
	"github.com/park285/adaptive-chess-bot/internal/chess/uci"
	"github.com/park285/adaptive-chess-bot/internal/strength"
)

// Phase is the position of a session in the human/bot turn cycle.
type Phase int

const (
	AwaitingHumanMove Phase = iota
	AwaitingBotMove
	GameOver
)

func (p Phase) String() string {
	switch p {
	case AwaitingHumanMove:
		return "awaiting_human_move"
	case AwaitingBotMove:
		return "awaiting_bot_move"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

var uciMovePattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// Session is one game between a human playing white and the bot playing
// black. All fields are guarded by mu; the Service serialises operations.
type Session struct {
	mu sync.Mutex

	id        string
	gameUUID  string
	game      *nchess.Game
	depth     int
	moves     []string
	tracker   strength.Tracker
	estimate  strength.Estimate
	startedAt time.Time
	updatedAt time.Time

	engine    Engine
	engineErr error

	recorded bool
	closed   bool
}

func newSession(id string, depth int, now time.Time) *Session {
	s := &Session{id: id}
	s.reset(depth, now)
	return s
}

// reset starts a fresh game. The leased engine is kept.
func (s *Session) reset(depth int, now time.Time) {
	s.gameUUID = uuid.NewString()
	s.game = nchess.NewGame()
	s.depth = strength.ClampDepth(depth)
	s.moves = nil
	s.tracker.Reset()
	s.estimate = strength.InitialEstimate()
	s.startedAt = now
	s.updatedAt = now
	s.recorded = false
}

func (s *Session) phase() Phase {
	if s.game.Outcome() != nchess.NoOutcome {
		return GameOver
	}
	if s.game.Position().Turn() == nchess.White {
		return AwaitingHumanMove
	}
	return AwaitingBotMove
}

// MoveReport describes how a human move was judged.
type MoveReport struct {
	SAN      string
	Loss     int
	Quality  string
	Average  float64
	Estimate strength.Estimate
	Depth    int
}

// applyHumanMove validates, measures and commits one human move.
func (s *Session) applyHumanMove(ctx context.Context, calls engineCalls, referenceDepth int, text string) (MoveReport, error) {
	moveText := strings.TrimSpace(text)
	if !uciMovePattern.MatchString(moveText) {
		return MoveReport{}, fmt.Errorf("%w: %q", ErrInvalidMoveFormat, text)
	}
	switch s.phase() {
	case GameOver:
		return MoveReport{}, ErrGameOver
	case AwaitingBotMove:
		return MoveReport{}, ErrNotHumanTurn
	}

	played, err := successor(s.game, moveText)
	if err != nil {
		return MoveReport{}, fmt.Errorf("%w: %s", ErrIllegalMove, moveText)
	}

	update, err := s.evaluateMove(ctx, calls, referenceDepth, played)
	if err != nil {
		return MoveReport{}, err
	}

	san, err := s.commit(moveText)
	if err != nil {
		return MoveReport{}, fmt.Errorf("%w: %s", ErrIllegalMove, moveText)
	}

	s.tracker.Apply(update)
	s.depth = update.Depth
	s.estimate = update.Estimate

	return MoveReport{
		SAN:      san,
		Loss:     update.Loss,
		Quality:  strength.ClassifyLoss(update.Loss),
		Average:  update.Average,
		Estimate: update.Estimate,
		Depth:    update.Depth,
	}, nil
}

// evaluateMove measures the loss of the move leading to played against the
// engine's best move. Nothing is mutated; the caller applies the update
// once the move is committed.
func (s *Session) evaluateMove(ctx context.Context, calls engineCalls, referenceDepth int, played *nchess.Game) (strength.Update, error) {
	best, err := calls.bestMove(ctx, queryOf(s.game), referenceDepth)
	if err != nil {
		return strength.Update{}, err
	}
	bestGame, err := successor(s.game, best)
	if err != nil {
		return strength.Update{}, fmt.Errorf("%w: engine proposed %q: %w", ErrEngineFailure, best, err)
	}

	bestEval, err := scoreSuccessor(ctx, calls, referenceDepth, bestGame)
	if err != nil {
		return strength.Update{}, err
	}
	playedEval, err := scoreSuccessor(ctx, calls, referenceDepth, played)
	if err != nil {
		return strength.Update{}, err
	}

	// both scores are from the opponent's point of view
	return s.tracker.Preview(playedEval - bestEval), nil
}

// scoreSuccessor scores a position from its side to move. Finished games
// are scored without asking the engine.
func scoreSuccessor(ctx context.Context, calls engineCalls, depth int, game *nchess.Game) (int, error) {
	switch game.Outcome() {
	case nchess.NoOutcome:
		return calls.evaluate(ctx, queryOf(game), depth)
	case nchess.Draw:
		return 0, nil
	default:
		if game.Method() == nchess.Checkmate {
			return -uci.MateScore, nil
		}
		return 0, nil
	}
}

// applyBotMove searches at the session depth and commits the reply.
func (s *Session) applyBotMove(ctx context.Context, calls engineCalls) (string, error) {
	switch s.phase() {
	case GameOver:
		return "", ErrGameOver
	case AwaitingHumanMove:
		return "", ErrNotBotTurn
	}

	best, err := calls.bestMove(ctx, queryOf(s.game), s.depth)
	if err != nil {
		return "", err
	}
	san, err := s.commit(best)
	if err != nil {
		return "", fmt.Errorf("%w: engine proposed %q: %w", ErrEngineFailure, best, err)
	}
	return san, nil
}

// commit plays a UCI move on the live game and records its SAN.
func (s *Session) commit(moveUCI string) (string, error) {
	pos := s.game.Position()
	move, err := nchess.UCINotation{}.Decode(pos, moveUCI)
	if err != nil {
		return "", err
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, move)
	if err := s.game.Move(move, nil); err != nil {
		return "", err
	}
	s.moves = append(s.moves, san)
	return san, nil
}

// queryOf describes game to the engine together with the moves that led
// there.
func queryOf(game *nchess.Game) corechess.Query {
	moves := game.Moves()
	history := make([]string, 0, len(moves))
	for _, mv := range moves {
		history = append(history, mv.String())
	}
	return corechess.Query{FEN: game.FEN(), Moves: history}
}

// successor returns a copy of game with moveUCI applied.
func successor(game *nchess.Game, moveUCI string) (*nchess.Game, error) {
	if strings.TrimSpace(moveUCI) == "" {
		return nil, errors.New("empty move")
	}
	next := game.Clone()
	move, err := nchess.UCINotation{}.Decode(next.Position(), moveUCI)
	if err != nil {
		return nil, err
	}
	if err := next.Move(move, nil); err != nil {
		return nil, err
	}
	return next, nil
}

// inCheck reports whether the side to move was just checked.
func inCheck(game *nchess.Game) bool {
	moves := game.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(nchess.Check)
}

func statusText(game *nchess.Game) string {
	if outcome := game.Outcome(); outcome != nchess.NoOutcome {
		return fmt.Sprintf("Game over (%s)", outcome.String())
	}
	side := "Black"
	if game.Position().Turn() == nchess.White {
		side = "White"
	}
	if inCheck(game) {
		return side + " to move (check)"
	}
	return side + " to move"
}

func turnText(game *nchess.Game) string {
	if game.Position().Turn() == nchess.White {
		return "white"
	}
	return "black"
}

// engineFor returns a healthy engine, replacing a failed one first.
// Acquiring a new engine is bounded by timeout.
func (s *Session) engineFor(ctx context.Context, provider EngineProvider, timeout time.Duration) (Engine, error) {
	if s.engine != nil && (s.engineErr != nil || !s.engine.Healthy()) {
		cause := s.engineErr
		if cause == nil {
			cause = ErrEngineFailure
		}
		provider.Release(s.engine, cause)
		s.engine, s.engineErr = nil, nil
	}
	if s.engine != nil {
		return s.engine, nil
	}
	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	eng, err := provider.Acquire(acquireCtx)
	if err != nil {
		return nil, mapEngineError("acquire engine", err)
	}
	s.engine = eng
	return eng, nil
}

// calls binds engine calls to this session's lease. Callers hold s.mu.
func (s *Session) calls(provider EngineProvider, floor time.Duration) engineCalls {
	return engineCalls{
		acquire: func(ctx context.Context) (Engine, error) {
			return s.engineFor(ctx, provider, floor)
		},
		floor: floor,
	}
}

// noteEngineResult flags the engine for replacement after a failure.
func (s *Session) noteEngineResult(err error) {
	if errors.Is(err, ErrEngineFailure) {
		s.engineErr = err
	}
}

// release hands the engine back and marks the session unusable.
func (s *Session) release(provider EngineProvider) {
	if s.engine != nil {
		provider.Release(s.engine, s.engineErr)
	}
	s.engine, s.engineErr = nil, nil
	s.closed = true
}
