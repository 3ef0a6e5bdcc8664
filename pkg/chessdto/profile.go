package chessdto

import "time"

type Profile struct {
	SessionID   string    `json:"session_id"`
	GamesPlayed int       `json:"games_played"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	LastRating  int       `json:"last_rating"`
	BestRating  int       `json:"best_rating"`
	LastACPL    float64   `json:"last_acpl"`
	LastPlayed  time.Time `json:"last_played"`
}
