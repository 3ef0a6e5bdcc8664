package chess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/park285/adaptive-chess-bot/internal/domain"
)

// Storage keys
const (
	badgerGamePrefix    = "game:"
	badgerUUIDPrefix    = "game_uuid:"
	badgerProfilePrefix = "profile:"
	badgerGameSequence  = "seq:games"
)

// BadgerRepository keeps finished games in an embedded badger store for
// single-binary use.
type BadgerRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

// OpenBadgerRepository opens or creates the store in dir. An empty dir
// keeps everything in memory.
func OpenBadgerRepository(dir string) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dir)
	if strings.TrimSpace(dir) == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	seq, err := db.GetSequence([]byte(badgerGameSequence), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open game sequence: %w", err)
	}
	return &BadgerRepository{db: db, seq: seq}, nil
}

var _ Repository = (*BadgerRepository)(nil)

func (r *BadgerRepository) Close() error {
	var errs []error
	if r.seq != nil {
		errs = append(errs, r.seq.Release())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	return errors.Join(errs...)
}

func gameKey(id int64) []byte {
	// zero padded so lexical order is id order
	return []byte(fmt.Sprintf("%s%020d", badgerGamePrefix, id))
}

func (r *BadgerRepository) InsertGame(ctx context.Context, game *domain.FinishedGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil chess game payload")
	}
	uuidKey := []byte(badgerUUIDPrefix + strings.TrimSpace(game.GameUUID))

	next, err := r.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next game id: %w", err)
	}
	id := int64(next) + 1

	stored := cloneGame(game)
	stored.ID = id
	data, err := json.Marshal(stored)
	if err != nil {
		return 0, fmt.Errorf("marshal chess game: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(uuidKey)
		if err == nil {
			return ErrDuplicateGame
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(gameKey(id), data); err != nil {
			return err
		}
		return txn.Set(uuidKey, []byte(fmt.Sprintf("%d", id)))
	})
	if errors.Is(err, ErrDuplicateGame) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert chess game: %w", err)
	}
	return id, nil
}

func (r *BadgerRepository) GetRecentGames(ctx context.Context, sessionID string, limit int) ([]*domain.FinishedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	games := make([]*domain.FinishedGame, 0, limit)
	prefix := []byte(badgerGamePrefix)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// newest id first
		seek := append(append([]byte(nil), prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var game domain.FinishedGame
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &game)
			}); err != nil {
				return err
			}
			if sessionID != "" && game.SessionID != sessionID {
				continue
			}
			games = append(games, &game)
			if len(games) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list chess games: %w", err)
	}
	return games, nil
}

func (r *BadgerRepository) GetGame(ctx context.Context, id int64) (*domain.FinishedGame, error) {
	var game *domain.FinishedGame
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		game, err = loadGame(txn, gameKey(id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("select chess game: %w", err)
	}
	return game, nil
}

func (r *BadgerRepository) GetGameByUUID(ctx context.Context, gameUUID string) (*domain.FinishedGame, error) {
	var game *domain.FinishedGame
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerUUIDPrefix + strings.TrimSpace(gameUUID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var id int64
		if err := item.Value(func(val []byte) error {
			_, scanErr := fmt.Sscanf(string(val), "%d", &id)
			return scanErr
		}); err != nil {
			return err
		}
		game, err = loadGame(txn, gameKey(id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("select chess game by uuid: %w", err)
	}
	return game, nil
}

func loadGame(txn *badger.Txn, key []byte) (*domain.FinishedGame, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var game domain.FinishedGame
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &game)
	}); err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *BadgerRepository) GetProfile(ctx context.Context, sessionID string) (*domain.PlayerProfile, error) {
	var profile *domain.PlayerProfile
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerProfilePrefix + strings.TrimSpace(sessionID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		profile = &domain.PlayerProfile{}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, profile)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("select chess profile: %w", err)
	}
	return profile, nil
}

func (r *BadgerRepository) UpsertProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	if profile == nil {
		return fmt.Errorf("nil chess profile payload")
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal chess profile: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerProfilePrefix+strings.TrimSpace(profile.SessionID)), data)
	})
}
