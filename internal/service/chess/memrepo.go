package chess

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/adaptive-chess-bot/internal/domain"
)

// memrepo is a development-only in-memory repository implementation used when no store is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	gamesByID   map[int64]*domain.FinishedGame
	gamesByUUID map[string]*domain.FinishedGame

	profiles map[string]*domain.PlayerProfile // sessionID -> profile
}

func NewMemoryRepository() Repository {
	return &memrepo{
		gamesByID:   make(map[int64]*domain.FinishedGame),
		gamesByUUID: make(map[string]*domain.FinishedGame),
		profiles:    make(map[string]*domain.PlayerProfile),
	}
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.FinishedGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}

	key := strings.TrimSpace(game.GameUUID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gamesByUUID[key]; exists {
		return 0, ErrDuplicateGame
	}

	m.nextID++
	id := m.nextID
	stored := cloneGame(game)
	stored.ID = id

	m.gamesByID[id] = stored
	m.gamesByUUID[key] = stored

	return id, nil
}

func (m *memrepo) GetRecentGames(ctx context.Context, sessionID string, limit int) ([]*domain.FinishedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*domain.FinishedGame, 0, len(m.gamesByID))
	for _, g := range m.gamesByID {
		if sessionID != "" && g.SessionID != sessionID {
			continue
		}
		items = append(items, cloneGame(g))
	}
	// newest first, ID breaks ties
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GetGame(ctx context.Context, id int64) (*domain.FinishedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gamesByID[id]
	if !ok || g == nil {
		return nil, nil
	}
	return cloneGame(g), nil
}

func (m *memrepo) GetGameByUUID(ctx context.Context, gameUUID string) (*domain.FinishedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.gamesByUUID[strings.TrimSpace(gameUUID)]; ok && g != nil {
		return cloneGame(g), nil
	}
	return nil, nil
}

func (m *memrepo) GetProfile(ctx context.Context, sessionID string) (*domain.PlayerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[strings.TrimSpace(sessionID)]; ok && p != nil {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (m *memrepo) UpsertProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	if profile == nil {
		return nil
	}
	copied := *profile
	m.mu.Lock()
	m.profiles[strings.TrimSpace(profile.SessionID)] = &copied
	m.mu.Unlock()
	return nil
}

func cloneGame(g *domain.FinishedGame) *domain.FinishedGame {
	copied := *g
	copied.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &copied
}
