package chess

import (
	"time"

	nchess "github.com/corentings/chess/v2"
	corechess "github.com/park285/adaptive-chess-bot/internal/chess"
	"github.com/park285/adaptive-chess-bot/internal/strength"
)

// Snapshot is a read-only copy of a session's observable state.
type Snapshot struct {
	SessionID string             `json:"session_id"`
	GameUUID  string             `json:"game_uuid"`
	FEN       string             `json:"fen"`
	Turn      string             `json:"turn"`
	Status    string             `json:"status"`
	Phase     string             `json:"phase"`
	Depth     int                `json:"depth"`
	Moves     []string           `json:"moves"`
	Strength  strength.Estimate  `json:"strength"`
	CPLLosses []int              `json:"cpl_losses"`
	AvgLosses []float64          `json:"avg_losses"`
	Outcome   string             `json:"outcome,omitempty"`
	Method    string             `json:"method,omitempty"`
	Opening   *corechess.Opening `json:"opening,omitempty"`
	StartedAt time.Time          `json:"started_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Finished reports whether the game has a result.
func (s *Snapshot) Finished() bool {
	return s != nil && s.Outcome != ""
}

// snapshot copies the session state. Callers hold s.mu.
func (s *Session) snapshot() *Snapshot {
	snap := &Snapshot{
		SessionID: s.id,
		GameUUID:  s.gameUUID,
		FEN:       s.game.FEN(),
		Turn:      turnText(s.game),
		Status:    statusText(s.game),
		Phase:     s.phase().String(),
		Depth:     s.depth,
		Moves:     append([]string{}, s.moves...),
		Strength:  s.estimate,
		CPLLosses: s.tracker.Losses(),
		AvgLosses: s.tracker.Averages(),
		StartedAt: s.startedAt,
		UpdatedAt: s.updatedAt,
	}
	if outcome := s.game.Outcome(); outcome != nchess.NoOutcome {
		snap.Outcome = outcome.String()
		snap.Method = methodFromOutcome(s.game.Method())
	}
	if op, ok := corechess.IdentifyOpening(s.game); ok {
		snap.Opening = &op
	}
	return snap
}
