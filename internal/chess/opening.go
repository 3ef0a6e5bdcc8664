package chess

import (
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

// Opening names the ECO line a game is following.
type Opening struct {
	Code  string
	Title string
}

// the ECO book is parsed once, on first use
var bookECO = sync.OnceValue(opening.NewBookECO)

// IdentifyOpening returns the deepest ECO entry matching the game's moves.
func IdentifyOpening(game *nchess.Game) (Opening, bool) {
	if game == nil || len(game.Moves()) == 0 {
		return Opening{}, false
	}
	book := bookECO()
	if book == nil {
		return Opening{}, false
	}
	eco := book.Find(game.Moves())
	if eco == nil {
		return Opening{}, false
	}
	return Opening{Code: eco.Code(), Title: eco.Title()}, true
}
