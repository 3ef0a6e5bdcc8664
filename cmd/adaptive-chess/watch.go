package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/adaptive-chess-bot/internal/apiclient"
	"github.com/park285/adaptive-chess-bot/pkg/chessdto"
)

func runWatch(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	id := fs.String("id", "", "session id to follow")
	server := fs.String("server", env.cfg.ServerURL, "server base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	w := apiclient.NewWatcher(apiclient.WebSocketURL(*server, *id), 5)
	w.OnStateChange(func(state apiclient.WatchState) {
		env.logger.Info("watch state", zap.String("session_id", *id), zap.String("state", string(state)))
	})
	w.OnSnapshot(func(state *chessdto.SessionState) {
		fmt.Println(env.formatter.Board(state.FEN))
		fmt.Println(env.formatter.Status(state))
		if state.Finished() {
			fmt.Println(env.formatter.GameOver(state))
		}
	})
	if err := w.Connect(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.Close(closeCtx)
}
