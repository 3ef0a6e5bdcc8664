package chess

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
)

const defaultEvalCacheEntries = 50_000

// SearchResult is what a fixed-depth search reports for one position.
type SearchResult struct {
	BestMove string
	Score    int
}

// EvalCache memoises fixed-depth search results by query. It is shared by
// every engine in the process. A query with a move history is keyed by that
// history, since repetitions can change the result.
type EvalCache struct {
	cache *ristretto.Cache[string, SearchResult]
}

func NewEvalCache(maxEntries int64) (*EvalCache, error) {
	if maxEntries <= 0 {
		maxEntries = defaultEvalCacheEntries
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, SearchResult]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init eval cache: %w", err)
	}
	return &EvalCache{cache: c}, nil
}

func evalKey(q Query, depth int) string {
	if len(q.Moves) == 0 {
		return fmt.Sprintf("%d|%s", depth, q.FEN)
	}
	return fmt.Sprintf("%d|%s|%s", depth, q.FEN, strings.Join(q.Moves, " "))
}

func (c *EvalCache) Get(q Query, depth int) (SearchResult, bool) {
	if c == nil {
		return SearchResult{}, false
	}
	return c.cache.Get(evalKey(q, depth))
}

func (c *EvalCache) Put(q Query, depth int, res SearchResult) {
	if c == nil {
		return
	}
	c.cache.Set(evalKey(q, depth), res, 1)
}

// Wait blocks until pending writes are visible to Get.
func (c *EvalCache) Wait() {
	if c == nil {
		return
	}
	c.cache.Wait()
}

func (c *EvalCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
