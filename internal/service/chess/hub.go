package chess

import "sync"

const subscriberBuffer = 8

// hub fans snapshots out to live subscribers of a session.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan *Snapshot
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]chan *Snapshot)}
}

func (h *hub) subscribe(sessionID string) (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, subscriberBuffer)

	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[int]chan *Snapshot)
	}
	h.subs[sessionID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[sessionID]; ok {
				if c, ok := set[id]; ok {
					delete(set, id)
					close(c)
				}
				if len(set) == 0 {
					delete(h.subs, sessionID)
				}
			}
		})
	}
	return ch, cancel
}

// publish never blocks; a subscriber that fell behind loses its oldest
// queued snapshot.
func (h *hub) publish(snap *Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[snap.SessionID] {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// closeSession ends every subscription of a deleted session.
func (h *hub) closeSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs[sessionID] {
		close(ch)
		delete(h.subs[sessionID], id)
	}
	delete(h.subs, sessionID)
}
