package chessdto

// MoveReport describes how one human move was judged.
type MoveReport struct {
	SAN      string   `json:"san"`
	Loss     int      `json:"loss"`
	Quality  string   `json:"quality"`
	Average  float64  `json:"average"`
	Depth    int      `json:"depth"`
	Strength Strength `json:"strength"`
}

// Hint is the engine's preferred move for the human.
type Hint struct {
	UCI string `json:"uci"`
	SAN string `json:"san"`
}

type LegalMoves struct {
	Moves []string `json:"moves"`
}
