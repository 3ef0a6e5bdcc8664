package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/adaptive-chess-bot/internal/adapter/chesspresenter"
	"github.com/park285/adaptive-chess-bot/internal/chessbuilder"
	svcchess "github.com/park285/adaptive-chess-bot/internal/service/chess"
	"github.com/park285/adaptive-chess-bot/pkg/chessdto"
)

func runPlay(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	depth := fs.Int("depth", env.cfg.DefaultDepth, "starting bot depth (1-8)")
	player := fs.String("player", "local", "player id used for history and profile")
	boardPNG := fs.String("png", "", "write a PNG of the board to this path after every move")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := *env.cfg
	if cfg.DataDir == "" {
		cfg.DataDir = localDataDir
	}
	deps, err := chessbuilder.New(&cfg, env.logger, chessbuilder.Options{PreferLocalStore: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	presenter := chesspresenter.NewPresenter(
		func(message string) error {
			_, err := fmt.Fprintln(out, message)
			if err == nil {
				err = out.Flush()
			}
			return err
		},
		func(png []byte) error {
			if *boardPNG == "" {
				return nil
			}
			return os.WriteFile(*boardPNG, png, 0o644)
		},
	)

	g := &terminalGame{
		svc:       deps.Service,
		id:        *player,
		formatter: env.formatter,
		presenter: presenter,
		logger:    env.logger,
	}
	return g.play(ctx, *depth, os.Stdin)
}

// terminalGame drives one game between stdin and the service.
type terminalGame struct {
	svc       *svcchess.Service
	id        string
	formatter *chesspresenter.Formatter
	presenter *chesspresenter.Presenter
	logger    *zap.Logger
}

func (g *terminalGame) say(msg string) {
	if err := g.presenter.Message(msg); err != nil {
		g.logger.Warn("write failed", zap.Error(err))
	}
}

func (g *terminalGame) show(msg string, state *chessdto.SessionState) {
	var png []byte
	if state != nil {
		if img, err := g.svc.RenderBoard(context.Background(), g.id); err == nil {
			png = img
		} else {
			g.logger.Debug("board render failed", zap.Error(err))
		}
	}
	if err := g.presenter.Board(msg, state, png); err != nil {
		g.logger.Warn("board output failed", zap.Error(err))
	}
}

func (g *terminalGame) play(ctx context.Context, depth int, in io.Reader) error {
	snap, err := g.svc.CreateOrReset(ctx, g.id, depth)
	if err != nil {
		return err
	}
	state := chesspresenter.ToDTOState(snap)
	g.say(g.formatter.Welcome(state.Depth))
	g.show(g.formatter.Board(state.FEN), state)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for !state.Finished() {
		if state.Turn == "black" {
			next, err := g.botTurn(ctx, state)
			state = next
			if err != nil {
				if !svcchess.Retryable(err) {
					return err
				}
				g.say(g.formatter.Error(err))
				g.say(g.formatter.Quit(len(state.Moves)))
				return nil
			}
			continue
		}
		g.say(g.formatter.Prompt())
		var line string
		select {
		case <-ctx.Done():
			g.say(g.formatter.Quit(len(state.Moves)))
			return nil
		case l, ok := <-lines:
			if !ok {
				g.say(g.formatter.Quit(len(state.Moves)))
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			g.say(g.formatter.Quit(len(state.Moves)))
			return nil
		case "board":
			g.show(g.formatter.Board(state.FEN)+"\n"+g.formatter.Status(state), state)
			continue
		case "hint":
			moveUCI, san, err := g.svc.Hint(ctx, g.id)
			if err != nil {
				g.say(g.formatter.Error(err))
				continue
			}
			g.say(g.formatter.Hint(&chessdto.Hint{UCI: moveUCI, SAN: san}))
			continue
		case "legal":
			moves, err := g.svc.LegalMoves(ctx, g.id)
			if err != nil {
				g.say(g.formatter.Error(err))
				continue
			}
			g.say(g.formatter.Legal(moves))
			continue
		}

		next, err := g.humanTurn(ctx, line)
		if next != nil {
			state = next
		}
		if err != nil {
			if errors.Is(err, svcchess.ErrInvalidMoveFormat) || errors.Is(err, svcchess.ErrIllegalMove) || svcchess.Retryable(err) {
				g.say(g.formatter.Error(err))
				continue
			}
			return err
		}
	}

	g.say(g.formatter.GameOver(state))
	if games, err := g.svc.History(ctx, g.id, 1); err == nil && len(games) > 0 && games[0].GameUUID == state.GameUUID {
		g.say(g.formatter.Saved(games[0].ID))
	}
	return nil
}

// humanTurn plays move and, unless the game ended, the bot's reply.
func (g *terminalGame) humanTurn(ctx context.Context, move string) (*chessdto.SessionState, error) {
	snap, report, err := g.svc.PlayHuman(ctx, g.id, move)
	if err != nil {
		return nil, err
	}
	g.say(g.formatter.Move(chesspresenter.ToDTOReport(report)))
	state := chesspresenter.ToDTOState(snap)
	if state.Finished() {
		return state, nil
	}
	return g.botTurn(ctx, state)
}

// botTurn asks the engine for its reply, once more after a retryable
// failure. On error the returned state is still the bot's turn.
func (g *terminalGame) botTurn(ctx context.Context, state *chessdto.SessionState) (*chessdto.SessionState, error) {
	g.say(g.formatter.Thinking(state.Depth))
	snap, san, err := g.svc.PlayBot(ctx, g.id)
	if err != nil && svcchess.Retryable(err) {
		g.say(g.formatter.Error(err))
		snap, san, err = g.svc.PlayBot(ctx, g.id)
	}
	if err != nil {
		return state, err
	}
	state = chesspresenter.ToDTOState(snap)
	g.say(g.formatter.BotMove(san))
	g.show(g.formatter.Board(state.FEN)+"\n"+g.formatter.Status(state), state)
	return state, nil
}
