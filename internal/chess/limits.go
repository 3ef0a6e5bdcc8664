package chess

import "time"

const perDepthBudget = 300 * time.Millisecond

// SearchTimeout bounds one engine call at the given depth. The budget grows
// linearly with depth and never drops below floor.
func SearchTimeout(depth int, floor time.Duration) time.Duration {
	if depth < 1 {
		depth = 1
	}
	budget := time.Duration(depth) * perDepthBudget
	if budget < floor {
		return floor
	}
	return budget
}
