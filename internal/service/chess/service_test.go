package chess

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/adaptive-chess-bot/internal/strength"
)

func newTestService(t *testing.T, provider *fakeProvider, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(provider, nil, repo, NewSVGBoardRenderer(), Config{EngineTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func TestStateCreatesDefaultSession(t *testing.T) {
	provider := newFakeProvider(nil)
	svc := newTestService(t, provider, nil)
	ctx := context.Background()

	snap, err := svc.State(ctx, "s1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if snap.FEN != nchess.NewGame().FEN() {
		t.Fatalf("fen = %q", snap.FEN)
	}
	if snap.Turn != "white" || snap.Status != "White to move" {
		t.Fatalf("turn=%q status=%q", snap.Turn, snap.Status)
	}
	if snap.Depth != 4 {
		t.Fatalf("depth = %d, want 4", snap.Depth)
	}
	if snap.Strength != strength.InitialEstimate() {
		t.Fatalf("strength = %+v", snap.Strength)
	}
	if len(snap.Moves) != 0 || len(snap.CPLLosses) != 0 || len(snap.AvgLosses) != 0 {
		t.Fatalf("new session has history: %+v", snap)
	}
	if acquired, _ := provider.counts(); acquired != 0 {
		t.Fatalf("reading state acquired %d engines", acquired)
	}

	again, err := svc.State(ctx, "s1")
	if err != nil {
		t.Fatalf("State again: %v", err)
	}
	if !reflect.DeepEqual(snap, again) {
		t.Fatalf("repeated read changed state:\n%+v\n%+v", snap, again)
	}
}

func TestStateRejectsEmptyID(t *testing.T) {
	svc := newTestService(t, newFakeProvider(nil), nil)
	if _, err := svc.State(context.Background(), "  "); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("err = %v, want ErrInvalidSessionID", err)
	}
}

func TestHumanMoveThenBotReply(t *testing.T) {
	eng := &fakeEngine{replies: []string{"e7e5"}}
	provider := newFakeProvider(func() *fakeEngine { return eng })
	svc := newTestService(t, provider, nil)
	ctx := context.Background()

	snap, report, err := svc.PlayHuman(ctx, "s1", "e2e4")
	if err != nil {
		t.Fatalf("PlayHuman: %v", err)
	}
	if snap.Turn != "black" || snap.Status != "Black to move" {
		t.Fatalf("turn=%q status=%q", snap.Turn, snap.Status)
	}
	if !reflect.DeepEqual(snap.Moves, []string{"e4"}) {
		t.Fatalf("moves = %v", snap.Moves)
	}
	if report.SAN != "e4" || report.Loss != 0 {
		t.Fatalf("report = %+v", report)
	}
	wantRating := strength.EstimateRating(0)
	wantDepth := strength.SelectDepth(wantRating)
	if snap.Depth != wantDepth || snap.Strength.Rating != wantRating {
		t.Fatalf("depth=%d rating=%d, want %d/%d", snap.Depth, snap.Strength.Rating, wantDepth, wantRating)
	}
	if snap.Strength.Label != strength.Summary(0, wantDepth) {
		t.Fatalf("label = %q", snap.Strength.Label)
	}
	for _, d := range eng.depths {
		if d != strength.ReferenceDepth {
			t.Fatalf("human move judged at depth %d, want %d", d, strength.ReferenceDepth)
		}
	}
	if eng.bestCalls != 1 || eng.evalCalls != 2 {
		t.Fatalf("best=%d eval=%d, want 1/2", eng.bestCalls, eng.evalCalls)
	}

	eng.depths = nil
	snap, reply, err := svc.PlayBot(ctx, "s1")
	if err != nil {
		t.Fatalf("PlayBot: %v", err)
	}
	if reply != "e5" || snap.Turn != "white" || len(snap.Moves) != 2 {
		t.Fatalf("reply=%q turn=%q moves=%v", reply, snap.Turn, snap.Moves)
	}
	if len(eng.depths) != 1 || eng.depths[0] != wantDepth {
		t.Fatalf("bot searched at %v, want session depth %d", eng.depths, wantDepth)
	}
	if len(snap.CPLLosses) != 1 {
		t.Fatalf("bot move changed loss history: %v", snap.CPLLosses)
	}
}

func TestEngineSeesMoveHistory(t *testing.T) {
	eng := &fakeEngine{replies: []string{"e7e5"}}
	svc := newTestService(t, newFakeProvider(func() *fakeEngine { return eng }), nil)
	ctx := context.Background()

	if _, err := svc.ApplyHumanMove(ctx, "h", "e2e4"); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}
	if _, err := svc.ApplyBotMove(ctx, "h"); err != nil {
		t.Fatalf("ApplyBotMove: %v", err)
	}
	if _, err := svc.ApplyHumanMove(ctx, "h", "d2d4"); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()
	// best, best successor and played successor per human move, one search per bot move
	if len(eng.histories) != 7 {
		t.Fatalf("searches = %d, want 7", len(eng.histories))
	}
	if len(eng.histories[0]) != 0 {
		t.Fatalf("first query history = %v", eng.histories[0])
	}
	if want := []string{"e2e4"}; !reflect.DeepEqual(eng.histories[3], want) {
		t.Fatalf("bot query history = %v, want %v", eng.histories[3], want)
	}
	if want := []string{"e2e4", "e7e5", "d2d4"}; !reflect.DeepEqual(eng.histories[6], want) {
		t.Fatalf("played successor history = %v, want %v", eng.histories[6], want)
	}
}

func TestRunningAverageAcrossMoves(t *testing.T) {
	eng := &fakeEngine{
		replies: []string{"e7e5", "d7d6", "g8f6"},
		// best, played per human move
		evals: []int{0, 20, 0, 40, -15, 15, 5, 15},
	}
	svc := newTestService(t, newFakeProvider(func() *fakeEngine { return eng }), nil)
	ctx := context.Background()

	var snap *Snapshot
	for i, mv := range []string{"e2e4", "d2d4", "g1f3", "b1c3"} {
		var err error
		if _, err = svc.ApplyHumanMove(ctx, "avg", mv); err != nil {
			t.Fatalf("move %d %s: %v", i, mv, err)
		}
		if i == 3 {
			if snap, err = svc.State(ctx, "avg"); err != nil {
				t.Fatalf("State: %v", err)
			}
			break
		}
		if _, err = svc.ApplyBotMove(ctx, "avg"); err != nil {
			t.Fatalf("bot %d: %v", i, err)
		}
	}

	if !reflect.DeepEqual(snap.CPLLosses, []int{20, 40, 30, 10}) {
		t.Fatalf("cpl_losses = %v", snap.CPLLosses)
	}
	if !reflect.DeepEqual(snap.AvgLosses, []float64{20, 30, 30, 25}) {
		t.Fatalf("avg_losses = %v", snap.AvgLosses)
	}
	wantRating := strength.EstimateRating(25)
	if snap.Strength.Rating != wantRating || snap.Depth != strength.SelectDepth(wantRating) {
		t.Fatalf("strength=%+v depth=%d", snap.Strength, snap.Depth)
	}
	if want := fmt.Sprintf("ACPL: 25.0, Bot depth: %d", snap.Depth); snap.Strength.Label != want {
		t.Fatalf("label = %q, want %q", snap.Strength.Label, want)
	}
}

func TestBetterThanBestMoveCountsAsZeroLoss(t *testing.T) {
	eng := &fakeEngine{evals: []int{50, -30}}
	svc := newTestService(t, newFakeProvider(func() *fakeEngine { return eng }), nil)

	_, report, err := svc.PlayHuman(context.Background(), "s", "e2e4")
	if err != nil {
		t.Fatalf("PlayHuman: %v", err)
	}
	if report.Loss != 0 {
		t.Fatalf("loss = %d, want 0", report.Loss)
	}
}

func TestBlunderHasPositiveLoss(t *testing.T) {
	eng := &fakeEngine{evals: []int{-30, 320}}
	svc := newTestService(t, newFakeProvider(func() *fakeEngine { return eng }), nil)

	_, report, err := svc.PlayHuman(context.Background(), "s", "f2f3")
	if err != nil {
		t.Fatalf("PlayHuman: %v", err)
	}
	if report.Loss != 350 || report.Quality != strength.QualityBlunder {
		t.Fatalf("report = %+v", report)
	}
}

func TestTurnErrors(t *testing.T) {
	svc := newTestService(t, newFakeProvider(nil), nil)
	ctx := context.Background()

	before, _ := svc.State(ctx, "s")
	if _, err := svc.ApplyBotMove(ctx, "s"); !errors.Is(err, ErrNotBotTurn) {
		t.Fatalf("bot on human turn: %v", err)
	}
	after, _ := svc.State(ctx, "s")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rejected bot move changed state")
	}

	if _, err := svc.ApplyHumanMove(ctx, "s", "e2e4"); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}
	if _, err := svc.ApplyHumanMove(ctx, "s", "e7e5"); !errors.Is(err, ErrNotHumanTurn) {
		t.Fatalf("human on bot turn: %v", err)
	}
}

func TestRejectedMovesLeaveStateAndEngineAlone(t *testing.T) {
	provider := newFakeProvider(nil)
	svc := newTestService(t, provider, nil)
	ctx := context.Background()
	before, _ := svc.State(ctx, "s")

	for _, mv := range []string{"", "hello", "e9e4", "E2E4", "e2e4x", "e2-e4"} {
		if _, err := svc.ApplyHumanMove(ctx, "s", mv); !errors.Is(err, ErrInvalidMoveFormat) {
			t.Fatalf("%q: err = %v, want ErrInvalidMoveFormat", mv, err)
		}
	}
	for _, mv := range []string{"e2e5", "e1e2", "a7a6"} {
		if _, err := svc.ApplyHumanMove(ctx, "s", mv); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("%q: err = %v, want ErrIllegalMove", mv, err)
		}
	}

	after, _ := svc.State(ctx, "s")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rejected moves changed state")
	}
	if acquired, _ := provider.counts(); acquired != 0 {
		t.Fatalf("rejected moves acquired %d engines", acquired)
	}
}

func TestEngineFailureIsAllOrNothing(t *testing.T) {
	broken := &fakeEngine{fail: errors.New("broken pipe")}
	healthy := &fakeEngine{evals: []int{0, 12}}
	engines := []*fakeEngine{broken, healthy}
	provider := newFakeProvider(func() *fakeEngine {
		eng := engines[0]
		engines = engines[1:]
		return eng
	})
	svc := newTestService(t, provider, nil)
	ctx := context.Background()
	before, _ := svc.State(ctx, "s")

	_, err := svc.ApplyHumanMove(ctx, "s", "e2e4")
	if !errors.Is(err, ErrEngineFailure) {
		t.Fatalf("err = %v, want ErrEngineFailure", err)
	}
	if !Retryable(err) {
		t.Fatalf("engine failure should be retryable")
	}
	after, _ := svc.State(ctx, "s")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("failed move changed state")
	}

	snap, err := svc.ApplyHumanMove(ctx, "s", "e2e4")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !reflect.DeepEqual(snap.CPLLosses, []int{12}) {
		t.Fatalf("cpl_losses = %v", snap.CPLLosses)
	}
	acquired, released := provider.counts()
	if acquired != 2 || released != 1 {
		t.Fatalf("acquired=%d released=%d, want 2/1", acquired, released)
	}
	if provider.released[0] != Engine(broken) || provider.failures[0] == nil {
		t.Fatalf("broken engine not released with its failure")
	}
}

func TestEngineDeadlineMapsToFailure(t *testing.T) {
	eng := &fakeEngine{fail: context.DeadlineExceeded}
	svc := newTestService(t, newFakeProvider(func() *fakeEngine { return eng }), nil)
	ctx := context.Background()
	if _, err := svc.ApplyHumanMove(ctx, "s", "e2e4"); !errors.Is(err, ErrEngineFailure) {
		t.Fatalf("err = %v, want ErrEngineFailure", err)
	}
}

func TestAcquireFailureMapsToEngineFailure(t *testing.T) {
	provider := newFakeProvider(nil)
	provider.acquireErr = errors.New("spawn failed")
	svc := newTestService(t, provider, nil)
	if _, err := svc.ApplyHumanMove(context.Background(), "s", "e2e4"); !errors.Is(err, ErrEngineFailure) {
		t.Fatalf("err = %v, want ErrEngineFailure", err)
	}
}

func TestResetKeepsEngineAndClearsHistory(t *testing.T) {
	eng := &fakeEngine{evals: []int{0, 80}}
	provider := newFakeProvider(func() *fakeEngine { return eng })
	svc := newTestService(t, provider, nil)
	ctx := context.Background()

	first, err := svc.ApplyHumanMove(ctx, "s", "e2e4")
	if err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}
	snap, err := svc.CreateOrReset(ctx, "s", 3)
	if err != nil {
		t.Fatalf("CreateOrReset: %v", err)
	}
	if snap.Depth != 3 || len(snap.Moves) != 0 || len(snap.CPLLosses) != 0 || len(snap.AvgLosses) != 0 {
		t.Fatalf("reset snapshot = %+v", snap)
	}
	if snap.Strength != strength.InitialEstimate() {
		t.Fatalf("strength = %+v", snap.Strength)
	}
	if snap.FEN != nchess.NewGame().FEN() || snap.GameUUID == first.GameUUID {
		t.Fatalf("reset did not start a new game")
	}
	if acquired, released := provider.counts(); acquired != 1 || released != 0 {
		t.Fatalf("acquired=%d released=%d, want 1/0", acquired, released)
	}
	if eng.newGames != 1 {
		t.Fatalf("new games = %d, want 1", eng.newGames)
	}
}

func TestCreateOrResetRejectsDepth(t *testing.T) {
	svc := newTestService(t, newFakeProvider(nil), nil)
	for _, depth := range []int{0, -1, 9} {
		if _, err := svc.CreateOrReset(context.Background(), "s", depth); !errors.Is(err, ErrInvalidDepth) {
			t.Fatalf("depth %d: err = %v", depth, err)
		}
	}
	if svc.Sessions() != 0 {
		t.Fatalf("invalid depth created a session")
	}
}

func TestDeleteReleasesEngine(t *testing.T) {
	provider := newFakeProvider(nil)
	svc := newTestService(t, provider, nil)
	ctx := context.Background()

	if err := svc.Delete(ctx, "missing"); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
	if _, err := svc.ApplyHumanMove(ctx, "s", "e2e4"); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}
	if err := svc.Delete(ctx, "s"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, released := provider.counts(); released != 1 {
		t.Fatalf("released = %d, want 1", released)
	}
	if err := svc.Delete(ctx, "s"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, released := provider.counts(); released != 1 {
		t.Fatalf("second delete released again: %d", released)
	}

	snap, err := svc.State(ctx, "s")
	if err != nil {
		t.Fatalf("State after delete: %v", err)
	}
	if len(snap.Moves) != 0 {
		t.Fatalf("deleted session came back with moves %v", snap.Moves)
	}
}

func TestDeleteUnknownClosesWatchers(t *testing.T) {
	svc := newTestService(t, newFakeProvider(nil), nil)

	ch, cancel, err := svc.Subscribe("ghost")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if err := svc.Delete(context.Background(), "ghost"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed stream")
		}
	case <-time.After(time.Second):
		t.Fatalf("stream of unknown session not closed")
	}
	if svc.Sessions() != 0 {
		t.Fatalf("delete created a session")
	}
}

func TestBotMateEndsAndRecordsGame(t *testing.T) {
	eng := &fakeEngine{replies: []string{"e7e5", "d8h4"}}
	repo := NewMemoryRepository()
	svc := newTestService(t, newFakeProvider(func() *fakeEngine { return eng }), repo)
	ctx := context.Background()

	for _, mv := range []string{"f2f3", "g2g4"} {
		if _, err := svc.ApplyHumanMove(ctx, "fool", mv); err != nil {
			t.Fatalf("%s: %v", mv, err)
		}
		if _, err := svc.ApplyBotMove(ctx, "fool"); err != nil {
			t.Fatalf("bot after %s: %v", mv, err)
		}
	}

	snap, err := svc.State(ctx, "fool")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if snap.Status != "Game over (0-1)" || snap.Phase != GameOver.String() || !snap.Finished() {
		t.Fatalf("status=%q phase=%q", snap.Status, snap.Phase)
	}
	if snap.Method != "checkmate" {
		t.Fatalf("method = %q", snap.Method)
	}
	if _, err := svc.ApplyHumanMove(ctx, "fool", "a2a3"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("human after mate: %v", err)
	}
	if _, err := svc.ApplyBotMove(ctx, "fool"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("bot after mate: %v", err)
	}

	games, err := svc.History(ctx, "fool", 10)
	if err != nil || len(games) != 1 {
		t.Fatalf("history = %v, %v", games, err)
	}
	game := games[0]
	if game.Result != "loss" || game.Method != "checkmate" || game.HumanMoves != 2 {
		t.Fatalf("game = %+v", game)
	}
	if game.MoveText != "1. f3 e5 2. g4 Qh4# 0-1" {
		t.Fatalf("movetext = %q", game.MoveText)
	}
	profile, err := svc.Profile(ctx, "fool")
	if err != nil || profile == nil {
		t.Fatalf("profile = %v, %v", profile, err)
	}
	if profile.GamesPlayed != 1 || profile.Losses != 1 {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestMatingMoveScoresWithoutEngine(t *testing.T) {
	eng := &fakeEngine{replies: []string{"e7e5", "b8c6", "g8f6"}}
	repo := NewMemoryRepository()
	svc := newTestService(t, newFakeProvider(func() *fakeEngine { return eng }), repo)
	ctx := context.Background()

	moves := []string{"e2e4", "d1h5", "f1c4"}
	for _, mv := range moves {
		if _, err := svc.ApplyHumanMove(ctx, "scholar", mv); err != nil {
			t.Fatalf("%s: %v", mv, err)
		}
		if _, err := svc.ApplyBotMove(ctx, "scholar"); err != nil {
			t.Fatalf("bot after %s: %v", mv, err)
		}
	}
	// keep the engine's own suggestion away from the mate
	game := nchess.NewGame()
	for _, mv := range []string{"e2e4", "e7e5", "d1h5", "b8c6", "f1c4", "g8f6"} {
		next, err := successor(game, mv)
		if err != nil {
			t.Fatalf("%s: %v", mv, err)
		}
		game = next
	}
	eng.mu.Lock()
	eng.best = map[string]string{game.FEN(): "a2a3"}
	evalsBefore := eng.evalCalls
	eng.mu.Unlock()
	snap, report, err := svc.PlayHuman(ctx, "scholar", "h5f7")
	if err != nil {
		t.Fatalf("mate: %v", err)
	}
	if report.Loss != 0 || report.SAN != "Qxf7#" {
		t.Fatalf("report = %+v", report)
	}
	// only the best move's successor needed the engine
	if eng.evalCalls-evalsBefore != 1 {
		t.Fatalf("evaluations = %d, want 1", eng.evalCalls-evalsBefore)
	}
	if snap.Status != "Game over (1-0)" {
		t.Fatalf("status = %q", snap.Status)
	}
	profile, _ := svc.Profile(ctx, "scholar")
	if profile == nil || profile.Wins != 1 {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestConcurrentBotMovesAreSerialised(t *testing.T) {
	svc := newTestService(t, newFakeProvider(nil), nil)
	ctx := context.Background()
	if _, err := svc.ApplyHumanMove(ctx, "s", "e2e4"); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyBotMove(ctx, "s")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrNotBotTurn):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || rejected != workers-1 {
		t.Fatalf("ok=%d rejected=%d", ok, rejected)
	}
	snap, _ := svc.State(ctx, "s")
	if len(snap.Moves) != 2 {
		t.Fatalf("moves = %v", snap.Moves)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	svc := newTestService(t, newFakeProvider(nil), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := svc.ApplyHumanMove(ctx, id, "d2d4"); err != nil {
				t.Errorf("%s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()
	if svc.Sessions() != 4 {
		t.Fatalf("sessions = %d", svc.Sessions())
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	svc := newTestService(t, newFakeProvider(nil), nil)
	ctx := context.Background()
	if _, err := svc.State(ctx, "s"); err != nil {
		t.Fatalf("State: %v", err)
	}

	ch, cancel, err := svc.Subscribe("s")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if _, err := svc.ApplyHumanMove(ctx, "s", "e2e4"); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}
	select {
	case snap := <-ch:
		if len(snap.Moves) != 1 {
			t.Fatalf("moves = %v", snap.Moves)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}

	if err := svc.Delete(ctx, "s"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, open := <-ch; open {
		t.Fatal("subscription still open after delete")
	}
}

func TestHintAndLegalMoves(t *testing.T) {
	eng := &fakeEngine{best: map[string]string{nchess.NewGame().FEN(): "g1f3"}}
	svc := newTestService(t, newFakeProvider(func() *fakeEngine { return eng }), nil)
	ctx := context.Background()

	moveUCI, san, err := svc.Hint(ctx, "s")
	if err != nil {
		t.Fatalf("Hint: %v", err)
	}
	if moveUCI != "g1f3" || san != "Nf3" {
		t.Fatalf("hint = %s %s", moveUCI, san)
	}
	legal, err := svc.LegalMoves(ctx, "s")
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if len(legal) != 20 {
		t.Fatalf("legal moves = %d, want 20", len(legal))
	}
	snap, _ := svc.State(ctx, "s")
	if len(snap.Moves) != 0 {
		t.Fatalf("hint changed the game")
	}
}

func TestStatusMarksCheck(t *testing.T) {
	game := nchess.NewGame()
	for _, mv := range []string{"e2e4", "f7f5", "d1h5"} {
		next, err := successor(game, mv)
		if err != nil {
			t.Fatalf("%s: %v", mv, err)
		}
		game = next
	}
	if got := statusText(game); got != "Black to move (check)" {
		t.Fatalf("status = %q", got)
	}
}

func TestMoveText(t *testing.T) {
	cases := []struct {
		moves  []string
		result string
		want   string
	}{
		{nil, "*", ""},
		{[]string{"e4"}, "*", "1. e4"},
		{[]string{"e4", "e5", "Nf3"}, "1/2-1/2", "1. e4 e5 2. Nf3 1/2-1/2"},
	}
	for _, tc := range cases {
		if got := moveText(tc.moves, tc.result); got != tc.want {
			t.Fatalf("moveText(%v) = %q, want %q", tc.moves, got, tc.want)
		}
	}
}

// stalledProvider never has an engine to hand out.
type stalledProvider struct{}

func (stalledProvider) Acquire(ctx context.Context) (Engine, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledProvider) Release(Engine, error) {}

func TestEngineAcquireBoundedByTimeout(t *testing.T) {
	svc, err := NewService(stalledProvider{}, nil, nil, nil, Config{EngineTimeout: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer svc.Close()

	done := make(chan error, 1)
	go func() {
		_, err := svc.ApplyHumanMove(context.Background(), "s", "e2e4")
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrEngineFailure) || !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("move blocked on engine acquisition")
	}

	// the session stays usable for reads
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := svc.State(ctx, "s")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if len(snap.Moves) != 0 {
		t.Fatalf("failed move was committed: %v", snap.Moves)
	}
}

func TestEngineErrorTextIsNotATimeout(t *testing.T) {
	err := mapEngineError("best move at depth 4", errors.New("info string NNUE timeout setting ignored"))
	if !errors.Is(err, ErrEngineFailure) {
		t.Fatalf("err = %v", err)
	}
	if strings.Contains(err.Error(), "timed out") {
		t.Fatalf("plain engine error labelled as timeout: %v", err)
	}

	err = mapEngineError("evaluate at depth 4", fmt.Errorf("search: %w", context.DeadlineExceeded))
	if !strings.Contains(err.Error(), "evaluate at depth 4 timed out") {
		t.Fatalf("deadline not labelled as timeout: %v", err)
	}
}
