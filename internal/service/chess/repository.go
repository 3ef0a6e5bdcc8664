package chess

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/adaptive-chess-bot/internal/domain"
)

var ErrDuplicateGame = errors.New("chess game already exists")

// Repository stores finished games and per-session profiles. Lookups that
// find nothing return a nil record and a nil error.
type Repository interface {
	InsertGame(ctx context.Context, game *domain.FinishedGame) (int64, error)
	// GetRecentGames lists games newest first; an empty sessionID lists all.
	GetRecentGames(ctx context.Context, sessionID string, limit int) ([]*domain.FinishedGame, error)
	GetGame(ctx context.Context, id int64) (*domain.FinishedGame, error)
	GetGameByUUID(ctx context.Context, gameUUID string) (*domain.FinishedGame, error)
	GetProfile(ctx context.Context, sessionID string) (*domain.PlayerProfile, error)
	UpsertProfile(ctx context.Context, profile *domain.PlayerProfile) error
}

// Schema creates the tables used by the Postgres repository.
const Schema = `
CREATE TABLE IF NOT EXISTS chess_games (
	id           BIGSERIAL PRIMARY KEY,
	game_uuid    TEXT NOT NULL UNIQUE,
	session_id   TEXT NOT NULL,
	result       TEXT NOT NULL,
	method       TEXT NOT NULL,
	moves_san    JSONB NOT NULL,
	move_text    TEXT NOT NULL,
	acpl         DOUBLE PRECISION NOT NULL,
	rating       INTEGER NOT NULL,
	final_depth  INTEGER NOT NULL,
	human_moves  INTEGER NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL,
	duration_ms  BIGINT
);
CREATE INDEX IF NOT EXISTS chess_games_session_idx ON chess_games (session_id, ended_at DESC);
CREATE TABLE IF NOT EXISTS chess_profiles (
	session_id     TEXT PRIMARY KEY,
	games_played   INTEGER NOT NULL,
	wins           INTEGER NOT NULL,
	losses         INTEGER NOT NULL,
	draws          INTEGER NOT NULL,
	last_rating    INTEGER NOT NULL,
	best_rating    INTEGER NOT NULL,
	last_acpl      DOUBLE PRECISION NOT NULL,
	last_played_at TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema applies Schema; every statement is idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply chess schema: %w", err)
	}
	return nil
}

const gameColumns = `
			id,
			game_uuid,
			session_id,
			result,
			method,
			moves_san,
			move_text,
			acpl,
			rating,
			final_depth,
			human_moves,
			started_at,
			ended_at,
			duration_ms`

func (r *repository) InsertGame(ctx context.Context, game *domain.FinishedGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil chess game payload")
	}

	movesSAN, err := json.Marshal(game.MovesSAN)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO chess_games (
			game_uuid,
			session_id,
			result,
			method,
			moves_san,
			move_text,
			acpl,
			rating,
			final_depth,
			human_moves,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (game_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.GameUUID,
		game.SessionID,
		game.Result,
		game.Method,
		movesSAN,
		game.MoveText,
		game.ACPL,
		game.Rating,
		game.FinalDepth,
		game.HumanMoves,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert chess game: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) GetRecentGames(ctx context.Context, sessionID string, limit int) ([]*domain.FinishedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT` + gameColumns + `
		FROM chess_games
		WHERE ($1 = '' OR session_id = $1)
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("select chess games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.FinishedGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chess games: %w", err)
	}
	return games, nil
}

func (r *repository) GetGame(ctx context.Context, id int64) (*domain.FinishedGame, error) {
	query := `SELECT` + gameColumns + `
		FROM chess_games
		WHERE id = $1`
	game, err := scanGame(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

func (r *repository) GetGameByUUID(ctx context.Context, gameUUID string) (*domain.FinishedGame, error) {
	query := `SELECT` + gameColumns + `
		FROM chess_games
		WHERE game_uuid = $1
		LIMIT 1`
	game, err := scanGame(r.db.QueryRowContext(ctx, query, gameUUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.FinishedGame, error) {
	var (
		game         domain.FinishedGame
		movesSANJSON []byte
		durationMS   sql.NullInt64
	)
	err := row.Scan(
		&game.ID,
		&game.GameUUID,
		&game.SessionID,
		&game.Result,
		&game.Method,
		&movesSANJSON,
		&game.MoveText,
		&game.ACPL,
		&game.Rating,
		&game.FinalDepth,
		&game.HumanMoves,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan chess game: %w", err)
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &game, nil
}

func (r *repository) GetProfile(ctx context.Context, sessionID string) (*domain.PlayerProfile, error) {
	const query = `
		SELECT
			session_id,
			games_played,
			wins,
			losses,
			draws,
			last_rating,
			best_rating,
			last_acpl,
			last_played_at,
			updated_at,
			created_at
		FROM chess_profiles
		WHERE session_id = $1
		LIMIT 1`

	var profile domain.PlayerProfile
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&profile.SessionID,
		&profile.GamesPlayed,
		&profile.Wins,
		&profile.Losses,
		&profile.Draws,
		&profile.LastRating,
		&profile.BestRating,
		&profile.LastACPL,
		&profile.LastPlayed,
		&profile.UpdatedAt,
		&profile.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select chess profile: %w", err)
	}
	return &profile, nil
}

func (r *repository) UpsertProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	if profile == nil {
		return fmt.Errorf("nil chess profile payload")
	}
	const query = `
		INSERT INTO chess_profiles (
			session_id,
			games_played,
			wins,
			losses,
			draws,
			last_rating,
			best_rating,
			last_acpl,
			last_played_at,
			updated_at,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (session_id)
		DO UPDATE SET
			games_played = EXCLUDED.games_played,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			last_rating = EXCLUDED.last_rating,
			best_rating = EXCLUDED.best_rating,
			last_acpl = EXCLUDED.last_acpl,
			last_played_at = EXCLUDED.last_played_at,
			updated_at = NOW()`

	_, err := r.db.ExecContext(
		ctx,
		query,
		profile.SessionID,
		profile.GamesPlayed,
		profile.Wins,
		profile.Losses,
		profile.Draws,
		profile.LastRating,
		profile.BestRating,
		profile.LastACPL,
		profile.LastPlayed,
	)
	if err != nil {
		return fmt.Errorf("upsert chess profile: %w", err)
	}
	return nil
}
