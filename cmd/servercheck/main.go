package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/park285/adaptive-chess-bot/internal/apiclient"
	"github.com/park285/adaptive-chess-bot/pkg/chessdto"
)

func main() {
	baseURL := os.Getenv("SERVER_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}
	sessionID := "servercheck-" + uuid.NewString()[:8]

	client := apiclient.NewClient(baseURL, apiclient.WithTimeout(30*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("/health error: %v", err)
	}
	log.Printf("/health ok: status=%s sessions=%d", health.Status, health.Sessions)

	state, err := client.CreateSession(ctx, sessionID, 1)
	if err != nil {
		log.Fatalf("create session error: %v", err)
	}
	log.Printf("session %s created: %s", sessionID, state.Status)
	defer func() {
		if err := client.Delete(context.Background(), sessionID); err != nil {
			log.Printf("delete error: %v", err)
		}
	}()

	frames := make(chan *chessdto.SessionState, 4)
	ws := apiclient.NewWatcher(apiclient.WebSocketURL(baseURL, sessionID), 0)
	ws.OnStateChange(func(state apiclient.WatchState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnSnapshot(func(s *chessdto.SessionState) {
		select {
		case frames <- s:
		default:
		}
	})
	if err := ws.Connect(ctx); err != nil {
		log.Printf("WS connect error: %v", err)
	} else {
		defer ws.Close(context.Background())
	}

	state, err = client.Move(ctx, sessionID, "e2e4")
	if err != nil {
		log.Fatalf("move error: %v", err)
	}
	fmt.Printf("e2e4: loss=%d strength=%d (%s)\n", state.LastMove.Loss, state.Strength.Rating, state.Strength.Label)

	state, err = client.Bot(ctx, sessionID)
	if err != nil {
		log.Fatalf("bot error: %v", err)
	}
	fmt.Printf("bot: %s, %s\n", state.BotMove, state.Status)

	// Observe the stream for a short window
	deadline := time.After(5 * time.Second)
	for seen := 0; seen < 3; {
		select {
		case s := <-frames:
			seen++
			fmt.Printf("WS frame moves=%v turn=%s\n", s.Moves, s.Turn)
		case <-deadline:
			log.Printf("WS: %d frames observed", seen)
			return
		}
	}
}
