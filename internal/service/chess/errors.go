package chess

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/adaptive-chess-bot/internal/chess/uci"
)

var (
	ErrInvalidMoveFormat = errors.New("invalid move format")
	ErrIllegalMove       = errors.New("illegal move")
	ErrNotBotTurn        = errors.New("it's your turn to move")
	ErrNotHumanTurn      = errors.New("it's the bot's turn to move")
	ErrGameOver          = errors.New("game over")
	ErrEngineFailure     = errors.New("chess engine failure")
	ErrInvalidSessionID  = errors.New("session id is required")
	ErrInvalidDepth      = errors.New("depth must be between 1 and 8")
)

// mapEngineError folds any engine or deadline failure into ErrEngineFailure
// while keeping the cause in the chain for logging.
func mapEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrEngineFailure) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out: %w", ErrEngineFailure, op, err)
	}
	if errors.Is(err, uci.ErrClosed) || errors.Is(err, uci.ErrPoolClosed) {
		return fmt.Errorf("%w: %s: engine unavailable: %w", ErrEngineFailure, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrEngineFailure, op, err)
}

// Retryable reports whether the same request may succeed when repeated.
func Retryable(err error) bool {
	return errors.Is(err, ErrEngineFailure)
}
