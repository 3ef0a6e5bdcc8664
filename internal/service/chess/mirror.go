package chess

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/park285/adaptive-chess-bot/internal/service/cache"
)

// SnapshotMirror keeps an external copy of the latest snapshot per session
// so other processes can read game state without touching the engine.
type SnapshotMirror interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error)
	DeleteSnapshot(ctx context.Context, sessionID string) error
}

// RedisMirror stores snapshots as JSON with a TTL and announces each one
// on a per-session channel.
type RedisMirror struct {
	cache *cache.CacheService
	ttl   time.Duration
}

func NewRedisMirror(c *cache.CacheService, ttl time.Duration) *RedisMirror {
	return &RedisMirror{cache: c, ttl: ttl}
}

func hashID(sessionID string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(sessionID)))
	return hex.EncodeToString(sum[:])
}

func SnapshotKey(sessionID string) string {
	return "chess:sessions:" + hashID(sessionID)
}

func EventChannel(sessionID string) string {
	return "chess:events:" + hashID(sessionID)
}

func (m *RedisMirror) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if err := m.cache.Set(ctx, SnapshotKey(snap.SessionID), snap, m.ttl); err != nil {
		return err
	}
	return m.cache.Publish(ctx, EventChannel(snap.SessionID), snap)
}

func (m *RedisMirror) LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	snap := &Snapshot{}
	found, err := m.cache.Get(ctx, SnapshotKey(sessionID), snap)
	if err != nil || !found {
		return nil, err
	}
	return snap, nil
}

func (m *RedisMirror) DeleteSnapshot(ctx context.Context, sessionID string) error {
	return m.cache.Del(ctx, SnapshotKey(sessionID))
}
