// Command adaptive-chess plays, analyses and serves adaptive chess games.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/adaptive-chess-bot/internal/adapter/chesspresenter"
	appcfg "github.com/park285/adaptive-chess-bot/internal/config"
	"github.com/park285/adaptive-chess-bot/internal/msgcat"
	"github.com/park285/adaptive-chess-bot/internal/obslog"
)

// localDataDir holds the badger store when DATA_DIR is unset.
const localDataDir = "data"

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env *cliEnv, args []string) error
}

var commands = []command{
	{"play", "play an adaptive game on the terminal", runPlay},
	{"analyze", "analyse a position with the engine", runAnalyze},
	{"estimate-elo", "map an average centipawn loss to a rating", runEstimate},
	{"server", "serve the HTTP API", runServer},
	{"watch", "follow a session on a running server", runWatch},
	{"history", "list finished games", runHistory},
}

// cliEnv is what every subcommand shares.
type cliEnv struct {
	cfg       *appcfg.AppConfig
	logger    *zap.Logger
	formatter *chesspresenter.Formatter
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		usage()
		return
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	if err := obslog.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer obslog.Sync()

	cfg, err := appcfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "message catalog error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env := &cliEnv{cfg: cfg, logger: obslog.L(), formatter: chesspresenter.NewFormatter(cat)}
	if err := cmd.run(ctx, env, os.Args[2:]); err != nil {
		env.logger.Error("command failed", zap.String("command", name), zap.Error(err))
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: adaptive-chess <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-13s %s\n", c.name, c.usage)
	}
}
