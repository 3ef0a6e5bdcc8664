package chessdto

import "time"

// Game is a finished game as listed by the history endpoint.
type Game struct {
	ID         int64     `json:"id"`
	GameUUID   string    `json:"game_uuid"`
	SessionID  string    `json:"session_id"`
	Result     string    `json:"result"`
	Method     string    `json:"method"`
	MovesSAN   []string  `json:"moves"`
	MoveText   string    `json:"move_text"`
	ACPL       float64   `json:"acpl"`
	Rating     int       `json:"rating"`
	FinalDepth int       `json:"final_depth"`
	HumanMoves int       `json:"human_moves"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS int64     `json:"duration_ms"`
}

type HistoryResponse struct {
	Games []*Game `json:"games"`
}
