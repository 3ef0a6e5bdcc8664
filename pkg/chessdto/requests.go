package chessdto

const DefaultDepth = 4

// CreateSessionRequest starts or restarts a game. Depth defaults to
// DefaultDepth when omitted.
type CreateSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Depth     *int   `json:"depth"`
}

// EffectiveDepth resolves the omitted depth.
func (r CreateSessionRequest) EffectiveDepth() int {
	if r.Depth == nil {
		return DefaultDepth
	}
	return *r.Depth
}

type MoveRequest struct {
	Move string `json:"move" binding:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
