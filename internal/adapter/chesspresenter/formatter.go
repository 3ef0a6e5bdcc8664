package chesspresenter

import (
	"errors"
	"strings"
	"time"

	"github.com/park285/adaptive-chess-bot/internal/msgcat"
	svc "github.com/park285/adaptive-chess-bot/internal/service/chess"
	"github.com/park285/adaptive-chess-bot/internal/strength"
	"github.com/park285/adaptive-chess-bot/pkg/chessdto"
)

// Formatter renders chess DTOs as terminal text.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	if cat == nil {
		cat = msgcat.Default()
	}
	return &Formatter{cat: cat}
}

func (f *Formatter) Welcome(depth int) string {
	return f.cat.Text("play.welcome", map[string]any{"Depth": depth})
}

func (f *Formatter) Prompt() string {
	return f.cat.Text("play.prompt", nil)
}

func (f *Formatter) Thinking(depth int) string {
	return f.cat.Text("play.bot_thinking", map[string]any{"Depth": depth})
}

func (f *Formatter) Quit(moves int) string {
	return f.cat.Text("play.quit", map[string]any{"Moves": moves})
}

func (f *Formatter) Saved(id int64) string {
	return f.cat.Text("play.saved", map[string]any{"ID": id})
}

// Status is a one-line summary followed by the opening when known.
func (f *Formatter) Status(state *chessdto.SessionState) string {
	if state == nil {
		return ""
	}
	line := f.cat.Text("status.line", map[string]any{
		"Status": state.Status,
		"Depth":  state.Depth,
		"Rating": state.Strength.Rating,
		"Label":  state.Strength.Label,
	})
	if op := state.Opening; op != nil {
		line += "\n" + f.cat.Text("status.opening", map[string]any{"Code": op.Code, "Title": op.Title})
	}
	return line
}

func (f *Formatter) Move(report *chessdto.MoveReport) string {
	if report == nil {
		return ""
	}
	return f.cat.Text("move.report", map[string]any{
		"SAN":     report.SAN,
		"Loss":    report.Loss,
		"Quality": report.Quality,
		"Label":   report.Strength.Label,
		"Rating":  report.Strength.Rating,
	})
}

func (f *Formatter) BotMove(san string) string {
	return f.cat.Text("move.bot", map[string]any{"SAN": san})
}

// GameOver prints the result and the final measurement of the player.
func (f *Formatter) GameOver(state *chessdto.SessionState) string {
	if state == nil {
		return ""
	}
	var sb strings.Builder
	method := state.Method
	if method == "" {
		method = "agreement"
	}
	sb.WriteString(f.cat.Text("game.over", map[string]any{"Outcome": state.Outcome, "Method": method}))
	sb.WriteByte('\n')
	sb.WriteString(f.Summary(state))
	return sb.String()
}

func (f *Formatter) Summary(state *chessdto.SessionState) string {
	acpl := 0.0
	if n := len(state.AvgLosses); n > 0 {
		acpl = state.AvgLosses[n-1]
	}
	return f.cat.Text("game.summary", map[string]any{
		"Count":  len(state.CPLLosses),
		"ACPL":   acpl,
		"Rating": state.Strength.Rating,
		"Band":   strength.LevelBand(acpl),
		"Depth":  state.Depth,
	})
}

func (f *Formatter) Hint(hint *chessdto.Hint) string {
	if hint == nil {
		return ""
	}
	return f.cat.Text("hint.line", map[string]any{"SAN": hint.SAN, "UCI": hint.UCI})
}

func (f *Formatter) Legal(moves []string) string {
	if len(moves) == 0 {
		return f.cat.Text("legal.none", nil)
	}
	return f.cat.Text("legal.line", map[string]any{"Count": len(moves), "Moves": strings.Join(moves, " ")})
}

// AnalysisLine is one ranked engine line ready for display.
type AnalysisLine struct {
	UCI     string
	SAN     string
	ScoreCP int
	Mate    int
	PV      []string
}

func (f *Formatter) Analysis(fen string, depth int, lines []AnalysisLine) string {
	var sb strings.Builder
	sb.WriteString(f.cat.Text("analyze.header", map[string]any{"Depth": depth, "FEN": fen}))
	for i, line := range lines {
		data := map[string]any{
			"Rank": i + 1,
			"UCI":  line.UCI,
			"SAN":  line.SAN,
			"PV":   strings.Join(line.PV, " "),
		}
		sb.WriteByte('\n')
		if line.Mate != 0 {
			data["Mate"] = line.Mate
			sb.WriteString(f.cat.Text("analyze.line_mate", data))
			continue
		}
		data["Pawns"] = float64(line.ScoreCP) / 100
		sb.WriteString(f.cat.Text("analyze.line_cp", data))
	}
	return sb.String()
}

func (f *Formatter) Estimate(acpl float64) string {
	rating := strength.EstimateRating(acpl)
	return f.cat.Text("estimate.line", map[string]any{
		"ACPL":   acpl,
		"Rating": rating,
		"Depth":  strength.SelectDepth(rating),
		"Band":   strength.LevelBand(acpl),
	})
}

func (f *Formatter) History(games []*chessdto.Game) string {
	if len(games) == 0 {
		return f.cat.Text("history.empty", nil)
	}
	var sb strings.Builder
	sb.WriteString(f.cat.Text("history.header", nil))
	for _, g := range games {
		sb.WriteByte('\n')
		sb.WriteString(f.cat.Text("history.row", map[string]any{
			"ID":     g.ID,
			"Ended":  formatShortTime(g.EndedAt),
			"Result": g.Result,
			"Method": g.Method,
			"ACPL":   g.ACPL,
			"Rating": g.Rating,
			"Moves":  len(g.MovesSAN),
		}))
	}
	return sb.String()
}

// Error turns a service error into the same text the HTTP API reports.
func (f *Formatter) Error(err error) string {
	if err == nil {
		return ""
	}
	detail := map[string]any{"Detail": err.Error()}
	switch {
	case errors.Is(err, svc.ErrInvalidMoveFormat), errors.Is(err, svc.ErrIllegalMove):
		return f.cat.Text("error.invalid_move", detail)
	case errors.Is(err, svc.ErrGameOver):
		return f.cat.Text("error.game_over", nil)
	case errors.Is(err, svc.ErrNotBotTurn):
		return f.cat.Text("error.not_bot_turn", nil)
	case errors.Is(err, svc.ErrNotHumanTurn):
		return f.cat.Text("error.not_human_turn", nil)
	case errors.Is(err, svc.ErrEngineFailure):
		return f.cat.Text("error.engine", detail)
	default:
		return f.cat.Text("error.generic", detail)
	}
}

// Board draws the position of a FEN as text with white at the bottom.
func (f *Formatter) Board(fen string) string {
	placement, _, _ := strings.Cut(strings.TrimSpace(fen), " ")
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fen
	}
	var sb strings.Builder
	for i, rank := range ranks {
		sb.WriteByte(byte('8' - i))
		sb.WriteString(" ")
		for _, c := range rank {
			if c >= '1' && c <= '8' {
				sb.WriteString(strings.Repeat(" .", int(c-'0')))
				continue
			}
			sb.WriteByte(' ')
			sb.WriteRune(c)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("   a b c d e f g h")
	return sb.String()
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
