package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/adaptive-chess-bot/internal/adapter/chesspresenter"
	corechess "github.com/park285/adaptive-chess-bot/internal/chess"
	"github.com/park285/adaptive-chess-bot/internal/chessbuilder"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func runAnalyze(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fen := fs.String("fen", startFEN, "position to analyse")
	depth := fs.Int("depth", 12, "search depth")
	lines := fs.Int("lines", 1, "number of principal variations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *depth < 1 {
		return fmt.Errorf("depth must be positive, got %d", *depth)
	}
	if _, err := nchess.FEN(*fen); err != nil {
		return fmt.Errorf("invalid FEN: %w", err)
	}

	cfg := *env.cfg
	cfg.EnginePoolSize = 1
	deps, err := chessbuilder.New(&cfg, env.logger, chessbuilder.Options{})
	if err != nil {
		return err
	}
	defer deps.Close()

	result, err := deps.Analyze(ctx, *fen, *depth, *lines)
	if err != nil {
		return err
	}
	fmt.Println(env.formatter.Analysis(*fen, *depth, analysisLines(*fen, result)))
	return nil
}

// analysisLines adds SAN to each engine line. Moves the position rejects
// keep their UCI text.
func analysisLines(fen string, lines []corechess.Line) []chesspresenter.AnalysisLine {
	out := make([]chesspresenter.AnalysisLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, chesspresenter.AnalysisLine{
			UCI:     l.Move,
			SAN:     sanOf(fen, l.Move),
			ScoreCP: l.ScoreCP,
			Mate:    l.Mate,
			PV:      l.Principal,
		})
	}
	return out
}

func sanOf(fen, moveUCI string) string {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return moveUCI
	}
	pos := nchess.NewGame(opt).Position()
	mv, err := nchess.UCINotation{}.Decode(pos, moveUCI)
	if err != nil {
		return moveUCI
	}
	return nchess.AlgebraicNotation{}.Encode(pos, mv)
}

func runEstimate(_ context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("estimate-elo", flag.ContinueOnError)
	acpl := fs.Float64("acpl", -1, "average centipawn loss")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// Also accept the value as a bare argument.
	if *acpl < 0 && fs.NArg() > 0 {
		v, err := strconv.ParseFloat(strings.TrimSpace(fs.Arg(0)), 64)
		if err != nil {
			return fmt.Errorf("invalid acpl %q: %w", fs.Arg(0), err)
		}
		*acpl = v
	}
	if *acpl < 0 {
		return fmt.Errorf("-acpl is required")
	}
	fmt.Println(env.formatter.Estimate(*acpl))
	return nil
}
