package apiclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/adaptive-chess-bot/pkg/chessdto"
)

type WatchState string

const (
	WatchDisconnected WatchState = "disconnected"
	WatchConnecting   WatchState = "connecting"
	WatchConnected    WatchState = "connected"
	WatchReconnecting WatchState = "reconnecting"
	WatchClosed       WatchState = "closed"
	WatchFailed       WatchState = "failed"
)

type SnapshotCallback func(state *chessdto.SessionState)

type StateCallback func(state WatchState)

// Watcher follows one session's websocket stream. Dropped connections are
// redialled with backoff; a server side close after deletion ends the
// watch for good.
type Watcher struct {
	wsURL string

	conn   *websocket.Conn
	state  WatchState
	stateM sync.RWMutex

	onSnapshot SnapshotCallback
	onState    StateCallback
	cbM        sync.RWMutex

	maxReconnectAttempts int

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// WebSocketURL maps an http(s) server root to the ws(s) stream of a
// session.
func WebSocketURL(baseURL, sessionID string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + sessionPath(sessionID, "/ws")
}

func NewWatcher(wsURL string, maxReconnectAttempts int) *Watcher {
	return &Watcher{
		wsURL:                wsURL,
		state:                WatchDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		stopCh:               make(chan struct{}),
		done:                 make(chan struct{}),
	}
}

func (w *Watcher) OnSnapshot(cb SnapshotCallback) {
	w.cbM.Lock()
	w.onSnapshot = cb
	w.cbM.Unlock()
}

func (w *Watcher) OnStateChange(cb StateCallback) {
	w.cbM.Lock()
	w.onState = cb
	w.cbM.Unlock()
}

func (w *Watcher) State() WatchState {
	w.stateM.RLock()
	defer w.stateM.RUnlock()
	return w.state
}

// Done is closed once the watcher stops for any reason.
func (w *Watcher) Done() <-chan struct{} { return w.done }

// Connect dials the stream and starts delivering snapshots.
func (w *Watcher) Connect(ctx context.Context) error {
	if s := w.State(); s != WatchDisconnected {
		return errors.New("watcher already started")
	}
	w.rootCtx, w.rootCancel = context.WithCancel(context.Background())
	w.setState(WatchConnecting)

	conn, err := w.dial(ctx)
	if err != nil {
		w.setState(WatchFailed)
		w.rootCancel()
		close(w.done)
		return err
	}
	w.conn = conn
	w.setState(WatchConnected)
	go w.run()
	return nil
}

func (w *Watcher) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, w.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	return conn, err
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		err := w.listen()
		if w.isStopping() {
			w.setState(WatchClosed)
			return
		}
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			w.setState(WatchClosed)
			return
		}
		w.setState(WatchDisconnected)
		if !w.reconnect() {
			w.setState(WatchFailed)
			return
		}
	}
}

func (w *Watcher) listen() error {
	conn := w.conn
	defer conn.CloseNow()
	for {
		var snap chessdto.SessionState
		if err := wsjson.Read(w.rootCtx, conn, &snap); err != nil {
			return err
		}
		w.cbM.RLock()
		cb := w.onSnapshot
		w.cbM.RUnlock()
		if cb != nil {
			cb(&snap)
		}
	}
}

func (w *Watcher) reconnect() bool {
	if w.maxReconnectAttempts <= 0 {
		return false
	}
	w.setState(WatchReconnecting)
	for attempt := 1; attempt <= w.maxReconnectAttempts; attempt++ {
		select {
		case <-w.stopCh:
			return false
		case <-time.After(backoffDuration(attempt)):
		}
		conn, err := w.dial(w.rootCtx)
		if err != nil {
			continue
		}
		w.conn = conn
		w.setState(WatchConnected)
		return true
	}
	return false
}

func (w *Watcher) setState(state WatchState) {
	w.stateM.Lock()
	w.state = state
	w.stateM.Unlock()

	w.cbM.RLock()
	cb := w.onState
	w.cbM.RUnlock()
	if cb != nil {
		cb(state)
	}
}

// Close stops the watcher and waits for its reader to exit.
func (w *Watcher) Close(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	if w.rootCancel == nil {
		return nil
	}
	w.rootCancel()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return nil
	}
}

func (w *Watcher) isStopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}
