package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/adaptive-chess-bot/internal/adapter/chesspresenter"
	svcchess "github.com/park285/adaptive-chess-bot/internal/service/chess"
)

const wsWriteTimeout = 5 * time.Second

// watch streams session snapshots as JSON frames. The first frame is the
// current state; the stream ends when the session is deleted.
func (h *handler) watch(c *gin.Context) {
	id := c.Param("id")
	updates, cancel, err := h.svc.Subscribe(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer cancel()

	current, err := h.svc.State(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	acceptOpts := &websocket.AcceptOptions{CompressionMode: websocket.CompressionNoContextTakeover}
	if len(h.opts.CORSOrigins) == 0 {
		acceptOpts.InsecureSkipVerify = true
	} else {
		acceptOpts.OriginPatterns = h.opts.CORSOrigins
	}
	conn, err := websocket.Accept(c.Writer, c.Request, acceptOpts)
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles their close frame.
	ctx := conn.CloseRead(c.Request.Context())

	if err := writeFrame(ctx, conn, current); err != nil {
		return
	}
	last := frameKey(current)

	var ping <-chan time.Time
	if h.opts.WSPingInterval > 0 {
		t := time.NewTicker(h.opts.WSPingInterval)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "session deleted")
				return
			}
			// Creating the session on first read publishes the frame already sent.
			key := frameKey(snap)
			if key == last {
				continue
			}
			last = key
			if err := writeFrame(ctx, conn, snap); err != nil {
				h.logger.Debug("websocket write failed", zap.String("session_id", id), zap.Error(err))
				return
			}
		case <-ping:
			pctx, pcancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, snap *svcchess.Snapshot) error {
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, chesspresenter.ToDTOState(snap))
}

func frameKey(snap *svcchess.Snapshot) string {
	return fmt.Sprintf("%s|%s|%d|%d|%d", snap.GameUUID, snap.FEN, len(snap.Moves), snap.Depth, snap.Strength.Rating)
}
