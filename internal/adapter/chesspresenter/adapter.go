package chesspresenter

import (
	"github.com/park285/adaptive-chess-bot/internal/domain"
	svc "github.com/park285/adaptive-chess-bot/internal/service/chess"
	"github.com/park285/adaptive-chess-bot/internal/strength"
	"github.com/park285/adaptive-chess-bot/pkg/chessdto"
)

func toDTOStrength(e strength.Estimate) chessdto.Strength {
	return chessdto.Strength{Rating: e.Rating, Label: e.Label}
}

func ToDTOState(s *svc.Snapshot) *chessdto.SessionState {
	if s == nil {
		return nil
	}
	out := &chessdto.SessionState{
		SessionID: s.SessionID,
		GameUUID:  s.GameUUID,
		FEN:       s.FEN,
		Turn:      s.Turn,
		Status:    s.Status,
		Phase:     s.Phase,
		Depth:     s.Depth,
		Moves:     append([]string{}, s.Moves...),
		Strength:  toDTOStrength(s.Strength),
		CPLLosses: append([]int{}, s.CPLLosses...),
		AvgLosses: append([]float64{}, s.AvgLosses...),
		Outcome:   s.Outcome,
		Method:    s.Method,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Opening != nil {
		out.Opening = &chessdto.Opening{Code: s.Opening.Code, Title: s.Opening.Title}
	}
	return out
}

func ToDTOReport(r *svc.MoveReport) *chessdto.MoveReport {
	if r == nil {
		return nil
	}
	return &chessdto.MoveReport{
		SAN:      r.SAN,
		Loss:     r.Loss,
		Quality:  r.Quality,
		Average:  r.Average,
		Depth:    r.Depth,
		Strength: toDTOStrength(r.Estimate),
	}
}

func ToDTOGame(g *domain.FinishedGame) *chessdto.Game {
	if g == nil {
		return nil
	}
	return &chessdto.Game{
		ID:         g.ID,
		GameUUID:   g.GameUUID,
		SessionID:  g.SessionID,
		Result:     g.Result,
		Method:     g.Method,
		MovesSAN:   append([]string{}, g.MovesSAN...),
		MoveText:   g.MoveText,
		ACPL:       g.ACPL,
		Rating:     g.Rating,
		FinalDepth: g.FinalDepth,
		HumanMoves: g.HumanMoves,
		StartedAt:  g.StartedAt,
		EndedAt:    g.EndedAt,
		DurationMS: g.Duration.Milliseconds(),
	}
}

func ToDTOGames(list []*domain.FinishedGame) []*chessdto.Game {
	out := make([]*chessdto.Game, 0, len(list))
	for _, g := range list {
		if g == nil {
			continue
		}
		out = append(out, ToDTOGame(g))
	}
	return out
}

func ToDTOProfile(p *domain.PlayerProfile) *chessdto.Profile {
	if p == nil {
		return nil
	}
	return &chessdto.Profile{
		SessionID:   p.SessionID,
		GamesPlayed: p.GamesPlayed,
		Wins:        p.Wins,
		Losses:      p.Losses,
		Draws:       p.Draws,
		LastRating:  p.LastRating,
		BestRating:  p.BestRating,
		LastACPL:    p.LastACPL,
		LastPlayed:  p.LastPlayed,
	}
}
