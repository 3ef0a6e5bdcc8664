package chess

import (
	"context"
	"errors"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	corechess "github.com/park285/adaptive-chess-bot/internal/chess"
)

// fakeEngine answers searches from scripts. Black positions take their
// best move from replies; everything else falls back to the first legal
// move. Evaluations are popped from evals and default to zero.
type fakeEngine struct {
	mu sync.Mutex

	replies  []string
	best     map[string]string
	evals    []int
	fail     error
	unhealth bool

	bestCalls int
	evalCalls int
	newGames  int
	depths    []int
	histories [][]string
}

func (f *fakeEngine) BestMove(ctx context.Context, q corechess.Query, depth int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fen := q.FEN
	f.bestCalls++
	f.histories = append(f.histories, q.Moves)
	f.depths = append(f.depths, depth)
	if f.fail != nil {
		return "", f.fail
	}
	if mv, ok := f.best[fen]; ok {
		return mv, nil
	}
	if strings.Contains(fen, " b ") && len(f.replies) > 0 {
		mv := f.replies[0]
		f.replies = f.replies[1:]
		return mv, nil
	}
	return firstLegal(fen)
}

func (f *fakeEngine) Evaluate(ctx context.Context, q corechess.Query, depth int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalCalls++
	f.histories = append(f.histories, q.Moves)
	f.depths = append(f.depths, depth)
	if f.fail != nil {
		return 0, f.fail
	}
	if len(f.evals) == 0 {
		return 0, nil
	}
	score := f.evals[0]
	f.evals = f.evals[1:]
	return score, nil
}

func (f *fakeEngine) NewGame(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newGames++
	return f.fail
}

func (f *fakeEngine) Healthy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.unhealth
}

func (f *fakeEngine) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeEngine) searches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bestCalls + f.evalCalls
}

func firstLegal(fen string) (string, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return "", err
	}
	moves := nchess.NewGame(opt).ValidMoves()
	if len(moves) == 0 {
		return "", errors.New("no legal move")
	}
	return moves[0].String(), nil
}

// fakeProvider hands out engines built by next and records releases.
type fakeProvider struct {
	mu sync.Mutex

	next       func() *fakeEngine
	acquireErr error
	acquired   []*fakeEngine
	released   []Engine
	failures   []error
}

func newFakeProvider(next func() *fakeEngine) *fakeProvider {
	if next == nil {
		next = func() *fakeEngine { return &fakeEngine{} }
	}
	return &fakeProvider{next: next}
}

func (p *fakeProvider) Acquire(ctx context.Context) (Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	eng := p.next()
	p.acquired = append(p.acquired, eng)
	return eng, nil
}

func (p *fakeProvider) Release(engine Engine, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, engine)
	p.failures = append(p.failures, err)
}

func (p *fakeProvider) counts() (acquired, released int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.acquired), len(p.released)
}
