package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/park285/adaptive-chess-bot/internal/adapter/chesspresenter"
	"github.com/park285/adaptive-chess-bot/internal/apiclient"
	"github.com/park285/adaptive-chess-bot/internal/chessbuilder"
)

func runHistory(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "number of games")
	id := fs.String("id", "", "only games of this session or player")
	remote := fs.Bool("remote", false, "ask the server at SERVER_URL instead of the local store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *remote {
		client := apiclient.NewClient(env.cfg.ServerURL)
		games, err := client.History(ctx, *id, *limit)
		if err != nil {
			return err
		}
		fmt.Println(env.formatter.History(games))
		return nil
	}

	cfg := *env.cfg
	if cfg.DataDir == "" {
		cfg.DataDir = localDataDir
	}
	store, err := chessbuilder.OpenStore(&cfg, env.logger, chessbuilder.Options{PreferLocalStore: true})
	if err != nil {
		return err
	}
	defer store.Close()

	if *limit <= 0 {
		*limit = 10
	}
	games, err := store.Repo.GetRecentGames(ctx, strings.TrimSpace(*id), *limit)
	if err != nil {
		return err
	}
	fmt.Println(env.formatter.History(chesspresenter.ToDTOGames(games)))
	return nil
}
