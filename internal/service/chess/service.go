package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/adaptive-chess-bot/internal/domain"
	"github.com/park285/adaptive-chess-bot/internal/strength"
	"go.uber.org/zap"
)

const (
	defaultEngineTimeout = 10 * time.Second
	persistTimeout       = 5 * time.Second
	maxHistoryLimit      = 50
)

type Config struct {
	// DefaultDepth applies to sessions created implicitly by a read.
	DefaultDepth int
	// ReferenceDepth is the depth used to judge human moves.
	ReferenceDepth int
	// EngineTimeout is the minimum deadline of a single engine call.
	EngineTimeout time.Duration
}

// Service owns every live session. Operations on one session run one at a
// time; different sessions proceed in parallel.
type Service struct {
	engines  EngineProvider
	mirror   SnapshotMirror
	repo     Repository
	renderer BoardRenderer
	cfg      Config
	logger   *zap.Logger
	hub      *hub
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService wires the registry. mirror, repo and renderer are optional.
func NewService(engines EngineProvider, mirror SnapshotMirror, repo Repository, renderer BoardRenderer, cfg Config, logger *zap.Logger) (*Service, error) {
	if engines == nil {
		return nil, fmt.Errorf("chess engine provider is required")
	}
	if cfg.DefaultDepth == 0 {
		cfg.DefaultDepth = 4
	}
	if cfg.DefaultDepth < strength.MinDepth || cfg.DefaultDepth > strength.MaxDepth {
		return nil, fmt.Errorf("default depth %d: %w", cfg.DefaultDepth, ErrInvalidDepth)
	}
	if cfg.ReferenceDepth <= 0 {
		cfg.ReferenceDepth = strength.ReferenceDepth
	}
	if cfg.EngineTimeout <= 0 {
		cfg.EngineTimeout = defaultEngineTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		engines:  engines,
		mirror:   mirror,
		repo:     repo,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
		hub:      newHub(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}, nil
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidSessionID
	}
	return id, nil
}

// lookup returns the registered session, creating one at the default
// depth. The bool reports whether the session was created by this call.
func (s *Service) lookup(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, false
	}
	sess = newSession(id, s.cfg.DefaultDepth, s.now())
	s.sessions[id] = sess
	return sess, true
}

// withSession runs fn with the session locked. A session deleted while we
// waited for its lock is looked up again.
func (s *Service) withSession(ctx context.Context, rawID string, fn func(sess *Session, created bool) error) error {
	id, err := normalizeID(rawID)
	if err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		sess, created := s.lookup(id)
		sess.mu.Lock()
		if sess.closed {
			sess.mu.Unlock()
			continue
		}
		err = fn(sess, created)
		sess.mu.Unlock()
		return err
	}
}

// CreateOrReset starts a new game at depth, reusing the session and its
// engine when the id is already known.
func (s *Service) CreateOrReset(ctx context.Context, id string, depth int) (*Snapshot, error) {
	if depth < strength.MinDepth || depth > strength.MaxDepth {
		return nil, fmt.Errorf("depth %d: %w", depth, ErrInvalidDepth)
	}

	var snap *Snapshot
	err := s.withSession(ctx, id, func(sess *Session, created bool) error {
		sess.reset(depth, s.now())
		if !created {
			s.restartEngine(ctx, sess)
		}
		snap = sess.snapshot()
		s.publish(ctx, snap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("chess session started",
		zap.String("session_id", snap.SessionID),
		zap.String("game_uuid", snap.GameUUID),
		zap.Int("depth", depth),
	)
	return snap, nil
}

// restartEngine tells an already leased engine a new game began. A failure
// only marks the engine for replacement.
func (s *Service) restartEngine(ctx context.Context, sess *Session) {
	if sess.engine == nil || sess.engineErr != nil {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.EngineTimeout)
	defer cancel()
	if err := sess.engine.NewGame(callCtx); err != nil {
		sess.noteEngineResult(mapEngineError("new game", err))
		s.logger.Warn("engine new game failed", zap.String("session_id", sess.id), zap.Error(err))
	}
}

// State returns the session snapshot, creating the session at the default
// depth on first access.
func (s *Service) State(ctx context.Context, id string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.withSession(ctx, id, func(sess *Session, created bool) error {
		snap = sess.snapshot()
		if created {
			s.publish(ctx, snap)
		}
		return nil
	})
	return snap, err
}

// PlayHuman applies a white move given in UCI notation and reports how it
// was judged.
func (s *Service) PlayHuman(ctx context.Context, id, move string) (*Snapshot, *MoveReport, error) {
	var (
		snap   *Snapshot
		report MoveReport
	)
	err := s.withSession(ctx, id, func(sess *Session, _ bool) error {
		var err error
		report, err = sess.applyHumanMove(ctx, sess.calls(s.engines, s.cfg.EngineTimeout), s.cfg.ReferenceDepth, move)
		sess.noteEngineResult(err)
		if err != nil {
			return err
		}
		sess.updatedAt = s.now()
		snap = sess.snapshot()
		s.publish(ctx, snap)
		s.recordIfFinished(ctx, sess)
		return nil
	})
	if err != nil {
		s.logMoveError(id, "human", err)
		return nil, nil, err
	}
	s.logger.Debug("human move applied",
		zap.String("session_id", snap.SessionID),
		zap.String("san", report.SAN),
		zap.Int("loss", report.Loss),
		zap.Float64("acpl", report.Average),
		zap.Int("rating", report.Estimate.Rating),
		zap.Int("depth", report.Depth),
	)
	return snap, &report, nil
}

// ApplyHumanMove is PlayHuman without the move report.
func (s *Service) ApplyHumanMove(ctx context.Context, id, move string) (*Snapshot, error) {
	snap, _, err := s.PlayHuman(ctx, id, move)
	return snap, err
}

// PlayBot lets the engine answer at the session depth and returns the
// reply in SAN.
func (s *Service) PlayBot(ctx context.Context, id string) (*Snapshot, string, error) {
	var (
		snap *Snapshot
		san  string
	)
	err := s.withSession(ctx, id, func(sess *Session, _ bool) error {
		var err error
		san, err = sess.applyBotMove(ctx, sess.calls(s.engines, s.cfg.EngineTimeout))
		sess.noteEngineResult(err)
		if err != nil {
			return err
		}
		sess.updatedAt = s.now()
		snap = sess.snapshot()
		s.publish(ctx, snap)
		s.recordIfFinished(ctx, sess)
		return nil
	})
	if err != nil {
		s.logMoveError(id, "bot", err)
		return nil, "", err
	}
	return snap, san, nil
}

// ApplyBotMove is PlayBot without the reply.
func (s *Service) ApplyBotMove(ctx context.Context, id string) (*Snapshot, error) {
	snap, _, err := s.PlayBot(ctx, id)
	return snap, err
}

func (s *Service) logMoveError(id, side string, err error) {
	if errors.Is(err, ErrEngineFailure) {
		s.logger.Warn("engine call failed",
			zap.String("session_id", id),
			zap.String("side", side),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("move rejected", zap.String("session_id", id), zap.String("side", side), zap.Error(err))
}

// Hint returns the move the engine prefers for white, in UCI and SAN.
func (s *Service) Hint(ctx context.Context, id string) (string, string, error) {
	var moveUCI, san string
	err := s.withSession(ctx, id, func(sess *Session, _ bool) error {
		switch sess.phase() {
		case GameOver:
			return ErrGameOver
		case AwaitingBotMove:
			return ErrNotHumanTurn
		}
		var err error
		moveUCI, err = sess.calls(s.engines, s.cfg.EngineTimeout).bestMove(ctx, queryOf(sess.game), s.cfg.ReferenceDepth)
		sess.noteEngineResult(err)
		if err != nil {
			return err
		}
		pos := sess.game.Position()
		move, err := nchess.UCINotation{}.Decode(pos, moveUCI)
		if err != nil {
			err = fmt.Errorf("%w: engine proposed %q: %w", ErrEngineFailure, moveUCI, err)
			sess.noteEngineResult(err)
			return err
		}
		san = nchess.AlgebraicNotation{}.Encode(pos, move)
		return nil
	})
	return moveUCI, san, err
}

// LegalMoves lists the moves available to the side to move in UCI.
func (s *Service) LegalMoves(ctx context.Context, id string) ([]string, error) {
	var moves []string
	err := s.withSession(ctx, id, func(sess *Session, _ bool) error {
		if sess.phase() == GameOver {
			return nil
		}
		for _, mv := range sess.game.ValidMoves() {
			moves = append(moves, mv.String())
		}
		return nil
	})
	return moves, err
}

// RenderBoard draws the current position as PNG.
func (s *Service) RenderBoard(ctx context.Context, id string) ([]byte, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("board renderer is not configured")
	}
	var png []byte
	err := s.withSession(ctx, id, func(sess *Session, _ bool) error {
		opts := RenderOptions{
			Header: fmt.Sprintf("Depth %d", sess.depth),
			Badge:  fmt.Sprintf("%d %s", sess.estimate.Rating, sess.estimate.Label),
			Footer: statusText(sess.game),
		}
		if moves := sess.game.Moves(); len(moves) > 0 {
			last := moves[len(moves)-1]
			opts.LastMove = &MoveHighlight{From: last.S1(), To: last.S2()}
		}
		var err error
		png, err = s.renderer.RenderPNG(ctx, sess.game.Position().Board(), opts)
		return err
	})
	return png, err
}

// Subscribe streams every snapshot published for id until cancel is
// called or the session is deleted.
func (s *Service) Subscribe(id string) (<-chan *Snapshot, func(), error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.subscribe(id)
	return ch, cancel, nil
}

// Delete drops the session and hands its engine back. Deleting an unknown
// id succeeds.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := normalizeID(rawID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.mu.Lock()
		sess.release(s.engines)
		sess.mu.Unlock()
	}

	s.hub.closeSession(id)
	if s.mirror != nil {
		if err := s.mirror.DeleteSnapshot(ctx, id); err != nil {
			s.logger.Warn("failed to delete mirrored snapshot", zap.String("session_id", id), zap.Error(err))
		}
	}
	s.logger.Info("chess session deleted", zap.String("session_id", id), zap.Bool("existed", ok))
	return nil
}

// Close releases every session's engine.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for id, sess := range sessions {
		sess.mu.Lock()
		sess.release(s.engines)
		sess.mu.Unlock()
		s.hub.closeSession(id)
	}
}

// Sessions reports how many sessions are live.
func (s *Service) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// History lists finished games, newest first. An empty id lists all.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]*domain.FinishedGame, error) {
	if s.repo == nil {
		return nil, nil
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = 10
	}
	return s.repo.GetRecentGames(ctx, strings.TrimSpace(sessionID), limit)
}

// Profile returns the aggregate record for a session id, or nil.
func (s *Service) Profile(ctx context.Context, sessionID string) (*domain.PlayerProfile, error) {
	if s.repo == nil {
		return nil, nil
	}
	id, err := normalizeID(sessionID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetProfile(ctx, id)
}

// publish mirrors and broadcasts snap. Callers hold the session lock so
// subscribers see snapshots in order.
func (s *Service) publish(ctx context.Context, snap *Snapshot) {
	if s.mirror != nil {
		if err := s.mirror.SaveSnapshot(ctx, snap); err != nil {
			s.logger.Warn("failed to mirror chess snapshot", zap.String("session_id", snap.SessionID), zap.Error(err))
		}
	}
	s.hub.publish(snap)
}

// recordIfFinished stores a finished game once and folds it into the
// player's profile. Failures are logged; the game itself is unaffected.
func (s *Service) recordIfFinished(ctx context.Context, sess *Session) {
	if s.repo == nil || sess.recorded || sess.phase() != GameOver {
		return
	}
	sess.recorded = true

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	record := finishedGame(sess, s.now())
	id, err := s.repo.InsertGame(persistCtx, record)
	if err != nil {
		if errors.Is(err, ErrDuplicateGame) {
			return
		}
		s.logger.Error("failed to store finished chess game", zap.String("game_uuid", record.GameUUID), zap.Error(err))
		return
	}

	profile, err := s.repo.GetProfile(persistCtx, sess.id)
	if err != nil {
		s.logger.Error("failed to load chess profile", zap.String("session_id", sess.id), zap.Error(err))
		return
	}
	profile = applyGameResult(profile, record)
	if err := s.repo.UpsertProfile(persistCtx, profile); err != nil {
		s.logger.Error("failed to update chess profile", zap.String("session_id", sess.id), zap.Error(err))
		return
	}
	s.logger.Info("chess game finished",
		zap.Int64("game_id", id),
		zap.String("session_id", sess.id),
		zap.String("result", record.Result),
		zap.String("method", record.Method),
		zap.Float64("acpl", record.ACPL),
		zap.Int("rating", record.Rating),
	)
}

func finishedGame(sess *Session, endedAt time.Time) *domain.FinishedGame {
	outcome := sess.game.Outcome()
	return &domain.FinishedGame{
		GameUUID:   sess.gameUUID,
		SessionID:  sess.id,
		Result:     resultFromOutcome(outcome),
		Method:     methodFromOutcome(sess.game.Method()),
		MovesSAN:   append([]string(nil), sess.moves...),
		MoveText:   moveText(sess.moves, outcome.String()),
		ACPL:       sess.tracker.Average(),
		Rating:     sess.estimate.Rating,
		FinalDepth: sess.depth,
		HumanMoves: sess.tracker.Count(),
		StartedAt:  sess.startedAt,
		EndedAt:    endedAt,
		Duration:   endedAt.Sub(sess.startedAt),
	}
}

// moveText renders SAN moves as numbered movetext followed by the result.
func moveText(moves []string, result string) string {
	var b strings.Builder
	for i, san := range moves {
		if i%2 == 0 {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d. ", i/2+1)
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(san)
	}
	if result != "" && result != "*" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(result)
	}
	return b.String()
}

// resultFromOutcome is from the human's side; the human always plays white.
func resultFromOutcome(outcome nchess.Outcome) string {
	switch outcome {
	case nchess.WhiteWon:
		return "win"
	case nchess.BlackWon:
		return "loss"
	case nchess.Draw:
		return "draw"
	default:
		return "unknown"
	}
}

func methodFromOutcome(method nchess.Method) string {
	return strings.ToLower(method.String())
}

func applyGameResult(profile *domain.PlayerProfile, game *domain.FinishedGame) *domain.PlayerProfile {
	if profile == nil {
		profile = &domain.PlayerProfile{
			SessionID: game.SessionID,
			CreatedAt: game.EndedAt,
		}
	}

	profile.GamesPlayed++
	switch game.Result {
	case "win":
		profile.Wins++
	case "loss":
		profile.Losses++
	default:
		profile.Draws++
	}
	profile.LastRating = game.Rating
	if game.Rating > profile.BestRating {
		profile.BestRating = game.Rating
	}
	profile.LastACPL = game.ACPL
	profile.LastPlayed = game.EndedAt
	profile.UpdatedAt = game.EndedAt
	return profile
}
