package domain

import "time"

// FinishedGame is the stored record of one completed game.
type FinishedGame struct {
	ID         int64
	GameUUID   string
	SessionID  string
	Result     string
	Method     string
	MovesSAN   []string
	MoveText   string
	ACPL       float64
	Rating     int
	FinalDepth int
	HumanMoves int
	StartedAt  time.Time
	EndedAt    time.Time
	Duration   time.Duration
}

// PlayerProfile aggregates finished games of one session id.
type PlayerProfile struct {
	SessionID   string
	GamesPlayed int
	Wins        int
	Losses      int
	Draws       int
	LastRating  int
	BestRating  int
	LastACPL    float64
	LastPlayed  time.Time
	UpdatedAt   time.Time
	CreatedAt   time.Time
}
