package chess

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/adaptive-chess-bot/internal/service/cache"
	"github.com/redis/go-redis/v9"
)

func newTestMirror(t *testing.T) (*RedisMirror, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisMirror(cache.NewFromClient(client, "", nil), time.Hour), mr, client
}

func TestRedisMirrorRoundTrip(t *testing.T) {
	mirror, mr, client := newTestMirror(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, EventChannel("s1"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	snap := newSession("s1", 5, time.Unix(1700000000, 0).UTC()).snapshot()
	if err := mirror.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if ttl := mr.TTL(SnapshotKey("s1")); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}

	loaded, err := mirror.LoadSnapshot(ctx, "s1")
	if err != nil || loaded == nil {
		t.Fatalf("LoadSnapshot: %+v, %v", loaded, err)
	}
	if loaded.FEN != snap.FEN || loaded.Depth != 5 || loaded.GameUUID != snap.GameUUID {
		t.Fatalf("loaded = %+v", loaded)
	}

	select {
	case msg := <-sub.Channel():
		var event Snapshot
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event.SessionID != "s1" {
			t.Fatalf("event = %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}

	if err := mirror.DeleteSnapshot(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSnapshot: %v", err)
	}
	loaded, err = mirror.LoadSnapshot(ctx, "s1")
	if err != nil || loaded != nil {
		t.Fatalf("after delete = %+v, %v", loaded, err)
	}
}

func TestServiceMirrorsEveryChange(t *testing.T) {
	mirror, _, _ := newTestMirror(t)
	svc, err := NewService(newFakeProvider(nil), mirror, nil, nil, Config{}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer svc.Close()
	ctx := context.Background()

	if _, err := svc.ApplyHumanMove(ctx, "m", "e2e4"); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}
	stored, err := mirror.LoadSnapshot(ctx, "m")
	if err != nil || stored == nil {
		t.Fatalf("LoadSnapshot: %+v, %v", stored, err)
	}
	if len(stored.Moves) != 1 || stored.Turn != "black" {
		t.Fatalf("mirrored = %+v", stored)
	}

	if err := svc.Delete(ctx, "m"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if stored, _ := mirror.LoadSnapshot(ctx, "m"); stored != nil {
		t.Fatalf("snapshot survived delete")
	}
}

func TestSnapshotKeysHideSessionID(t *testing.T) {
	key := SnapshotKey("secret-room")
	if key == "chess:sessions:secret-room" || len(key) != len("chess:sessions:")+64 {
		t.Fatalf("key = %q", key)
	}
	if SnapshotKey(" secret-room ") != key {
		t.Fatalf("keys differ on surrounding space")
	}
}
