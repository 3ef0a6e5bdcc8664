// Package ucitest provides a scripted in-process UCI engine for tests.
package ucitest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/adaptive-chess-bot/internal/chess/uci"
)

// SearchFunc answers one "go" command. position is the last position
// command without the "position " prefix. Returning nil leaves the engine
// silent, which looks like a hung search to the caller.
type SearchFunc func(position, goCmd string) []string

// Engine records every command it receives.
type Engine struct {
	search SearchFunc

	mu       sync.Mutex
	commands []string
	position string
	searches int

	in   *io.PipeReader
	out  *io.PipeWriter
	cmdW *io.PipeWriter
	outR *io.PipeReader
	done chan struct{}
}

// Start launches a scripted engine and attaches a uci.Session to it.
func Start(ctx context.Context, search SearchFunc, opt uci.Options) (*uci.Session, *Engine, error) {
	e := New(search)
	w, r := e.Pipes()
	session, err := uci.Attach(ctx, w, r, opt)
	if err != nil {
		return nil, nil, err
	}
	return session, e, nil
}

// New creates an engine without attaching a session; use Pipes to connect.
func New(search SearchFunc) *Engine {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	e := &Engine{
		search: search,
		in:     inR,
		out:    outW,
		cmdW:   inW,
		outR:   outR,
		done:   make(chan struct{}),
	}
	go e.loop()
	return e
}

// Pipes returns the session side of the engine: commands go to w, output
// is read from r.
func (e *Engine) Pipes() (io.WriteCloser, io.Reader) {
	return e.cmdW, e.outR
}

func (e *Engine) loop() {
	defer close(e.done)
	defer e.out.Close()

	scanner := bufio.NewScanner(e.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e.mu.Lock()
		e.commands = append(e.commands, line)
		e.mu.Unlock()

		switch {
		case line == "uci":
			if !e.write("id name ucitest", "id author test", "uciok") {
				return
			}
		case line == "isready":
			if !e.write("readyok") {
				return
			}
		case line == "quit":
			return
		case strings.HasPrefix(line, "position "):
			e.mu.Lock()
			e.position = strings.TrimPrefix(line, "position ")
			e.mu.Unlock()
		case strings.HasPrefix(line, "go"):
			e.mu.Lock()
			position := e.position
			e.searches++
			e.mu.Unlock()
			var out []string
			if e.search != nil {
				out = e.search(position, line)
			} else {
				out = []string{"bestmove (none)"}
			}
			if len(out) > 0 && !e.write(out...) {
				return
			}
		}
	}
}

func (e *Engine) write(lines ...string) bool {
	payload := strings.Join(lines, "\n") + "\n"
	_, err := io.WriteString(e.out, payload)
	return err == nil
}

// Commands returns a copy of every received command in order.
func (e *Engine) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.commands...)
}

// Sent returns received commands that start with prefix.
func (e *Engine) Sent(prefix string) []string {
	var out []string
	for _, c := range e.Commands() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Searches counts received "go" commands.
func (e *Engine) Searches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searches
}

// Done is closed once the engine received "quit" or its input closed.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Script answers successive searches with the given outputs; once
// exhausted it reports no move.
func Script(outputs ...[]string) SearchFunc {
	var mu sync.Mutex
	idx := 0
	return func(string, string) []string {
		mu.Lock()
		defer mu.Unlock()
		if idx >= len(outputs) {
			return []string{"bestmove (none)"}
		}
		out := outputs[idx]
		idx++
		return out
	}
}

// Reply builds the output of a depth search that ends in bestmove with
// the given relative centipawn score.
func Reply(depth int, cp int, best string, pv ...string) []string {
	line := append([]string{best}, pv...)
	return []string{
		fmt.Sprintf("info depth %d seldepth %d multipv 1 score cp %d nodes 1024 nps 100000 pv %s", depth, depth+2, cp, strings.Join(line, " ")),
		"bestmove " + best,
	}
}

// FENOf extracts the FEN from a recorded position argument.
func FENOf(position string) string {
	rest := strings.TrimSpace(position)
	if strings.HasPrefix(rest, "startpos") {
		return "startpos"
	}
	rest = strings.TrimPrefix(rest, "fen ")
	if i := strings.Index(rest, " moves "); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

// FirstLegal answers every search with the first legal move of the
// position and a fixed score. Positions given as "startpos" with a move
// list are replayed.
func FirstLegal(cp int) SearchFunc {
	return func(position, _ string) []string {
		game, err := replay(position)
		if err != nil {
			return []string{"bestmove (none)"}
		}
		moves := game.ValidMoves()
		if len(moves) == 0 {
			return []string{"info depth 0 score mate 0", "bestmove (none)"}
		}
		return Reply(1, cp, moves[0].String())
	}
}

// Spawner returns a uci.SpawnFunc that attaches sessions to scripted
// engines, for pools under test.
func Spawner(search SearchFunc, opt uci.Options) uci.SpawnFunc {
	return func(ctx context.Context) (*uci.Session, error) {
		session, _, err := Start(ctx, search, opt)
		return session, err
	}
}

func replay(position string) (*nchess.Game, error) {
	rest := strings.TrimSpace(position)
	var game *nchess.Game
	if strings.HasPrefix(rest, "startpos") {
		game = nchess.NewGame()
		rest = strings.TrimPrefix(rest, "startpos")
	} else {
		opt, err := nchess.FEN(FENOf(position))
		if err != nil {
			return nil, err
		}
		game = nchess.NewGame(opt)
		if i := strings.Index(rest, " moves "); i >= 0 {
			rest = rest[i:]
		} else {
			rest = ""
		}
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "moves"))
	for _, mv := range strings.Fields(rest) {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, err
		}
	}
	return game, nil
}
