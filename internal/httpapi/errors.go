package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	svcchess "github.com/park285/adaptive-chess-bot/internal/service/chess"
	"github.com/park285/adaptive-chess-bot/pkg/chessdto"
)

// toDomainError maps a service error to its wire form and HTTP status.
func toDomainError(err error) (int, chessdto.DomainError) {
	switch {
	case errors.Is(err, svcchess.ErrInvalidMoveFormat), errors.Is(err, svcchess.ErrIllegalMove):
		return http.StatusBadRequest, chessdto.DomainError{Code: "invalid_move", Message: "Invalid move: " + err.Error()}
	case errors.Is(err, svcchess.ErrGameOver):
		return http.StatusBadRequest, chessdto.DomainError{Code: "game_over", Message: "Game over"}
	case errors.Is(err, svcchess.ErrNotBotTurn):
		return http.StatusBadRequest, chessdto.DomainError{Code: "not_bot_turn", Message: "It's your turn to move"}
	case errors.Is(err, svcchess.ErrNotHumanTurn):
		return http.StatusBadRequest, chessdto.DomainError{Code: "not_human_turn", Message: "It's the bot's turn to move"}
	case errors.Is(err, svcchess.ErrEngineFailure):
		return http.StatusServiceUnavailable, chessdto.DomainError{Code: "engine_failure", Message: "Stockfish failed: " + err.Error(), Retryable: true}
	case errors.Is(err, svcchess.ErrInvalidDepth), errors.Is(err, svcchess.ErrInvalidSessionID):
		return http.StatusUnprocessableEntity, chessdto.DomainError{Code: "invalid_request", Message: err.Error()}
	default:
		return http.StatusInternalServerError, chessdto.DomainError{Code: "internal", Message: "internal server error"}
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	status, derr := toDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Sugar().Errorw("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, chessdto.ErrorResponse{Detail: derr.Message, Code: derr.Code, Retryable: derr.Retryable})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, chessdto.ErrorResponse{Detail: err.Error(), Code: "invalid_request"})
}
