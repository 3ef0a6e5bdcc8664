package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/park285/adaptive-chess-bot/internal/adapter/chesspresenter"
	"github.com/park285/adaptive-chess-bot/pkg/chessdto"
)

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, chessdto.HealthResponse{Status: "ok", Sessions: h.svc.Sessions()})
}

func (h *handler) createSession(c *gin.Context) {
	var req chessdto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	snap, err := h.svc.CreateOrReset(c.Request.Context(), req.SessionID, req.EffectiveDepth())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chesspresenter.ToDTOState(snap))
}

func (h *handler) getSession(c *gin.Context) {
	snap, err := h.svc.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chesspresenter.ToDTOState(snap))
}

func (h *handler) humanMove(c *gin.Context) {
	var req chessdto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	snap, report, err := h.svc.PlayHuman(c.Request.Context(), c.Param("id"), req.Move)
	if err != nil {
		h.fail(c, err)
		return
	}
	state := chesspresenter.ToDTOState(snap)
	state.LastMove = chesspresenter.ToDTOReport(report)
	c.JSON(http.StatusOK, state)
}

func (h *handler) botMove(c *gin.Context) {
	snap, san, err := h.svc.PlayBot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	state := chesspresenter.ToDTOState(snap)
	state.BotMove = san
	c.JSON(http.StatusOK, state)
}

func (h *handler) deleteSession(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chessdto.MessageResponse{Message: "Session deleted"})
}

func (h *handler) hint(c *gin.Context) {
	moveUCI, san, err := h.svc.Hint(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chessdto.Hint{UCI: moveUCI, SAN: san})
}

func (h *handler) legal(c *gin.Context) {
	moves, err := h.svc.LegalMoves(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chessdto.LegalMoves{Moves: moves})
}

func (h *handler) board(c *gin.Context) {
	png, err := h.svc.RenderBoard(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *handler) history(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		limit = n
	}
	games, err := h.svc.History(c.Request.Context(), c.Query("session_id"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chessdto.HistoryResponse{Games: chesspresenter.ToDTOGames(games)})
}

func (h *handler) profile(c *gin.Context) {
	p, err := h.svc.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if p == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, chessdto.ErrorResponse{Detail: "No finished games", Code: "not_found"})
		return
	}
	c.JSON(http.StatusOK, chesspresenter.ToDTOProfile(p))
}
