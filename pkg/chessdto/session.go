package chessdto

import (
	"encoding/json"
	"fmt"
	"time"
)

// Strength is the player's estimated rating and its label. On the wire it
// is the two element array [rating, label].
type Strength struct {
	Rating int
	Label  string
}

func (s Strength) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{s.Rating, s.Label})
}

func (s *Strength) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("strength: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("strength: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &s.Rating); err != nil {
		return fmt.Errorf("strength rating: %w", err)
	}
	if err := json.Unmarshal(raw[1], &s.Label); err != nil {
		return fmt.Errorf("strength label: %w", err)
	}
	return nil
}

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// SessionState is the public view of one game.
type SessionState struct {
	SessionID string    `json:"session_id"`
	GameUUID  string    `json:"game_uuid,omitempty"`
	FEN       string    `json:"fen"`
	Turn      string    `json:"turn"`
	Status    string    `json:"status"`
	Phase     string    `json:"phase,omitempty"`
	Depth     int       `json:"depth"`
	Moves     []string  `json:"moves"`
	Strength  Strength  `json:"strength"`
	CPLLosses []int     `json:"cpl_losses"`
	AvgLosses []float64 `json:"avg_losses"`
	Outcome   string    `json:"outcome,omitempty"`
	Method    string    `json:"method,omitempty"`
	Opening   *Opening  `json:"opening,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	// LastMove is set on responses to a human move.
	LastMove *MoveReport `json:"last_move,omitempty"`
	// BotMove is set on responses to a bot move.
	BotMove string `json:"bot_move,omitempty"`
}

// Finished reports whether the game has a result.
func (s *SessionState) Finished() bool {
	return s != nil && s.Outcome != ""
}
