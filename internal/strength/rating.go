package strength

import "math"

const (
	MinRating = 400
	MaxRating = 2800

	MinDepth = 1
	MaxDepth = 8

	// ReferenceDepth is the search depth used to measure the player's moves.
	ReferenceDepth = 8

	ratingScale    = 323422.0
	ratingExponent = -1.2305
)

// depthThresholds[i] is the lowest rating that earns depth i+2.
var depthThresholds = [...]int{2000, 2200, 2350, 2500, 2650, 2750, 2900}

// EstimateRating maps an average centipawn loss to a rating using the
// fitted power law 323422 * acpl^-1.2305, clamped to [MinRating, MaxRating].
func EstimateRating(acpl float64) int {
	if math.IsNaN(acpl) || acpl <= 0 {
		return MaxRating
	}
	rating := ratingScale * math.Pow(acpl, ratingExponent)
	if rating > MaxRating {
		rating = MaxRating
	}
	if rating < MinRating {
		rating = MinRating
	}
	return int(rating)
}

// SelectDepth returns the bot search depth for a rating.
func SelectDepth(rating int) int {
	depth := MinDepth
	for _, threshold := range depthThresholds {
		if rating < threshold {
			break
		}
		depth++
	}
	return depth
}

// ClampDepth bounds a caller supplied depth to [MinDepth, MaxDepth].
func ClampDepth(depth int) int {
	if depth < MinDepth {
		return MinDepth
	}
	if depth > MaxDepth {
		return MaxDepth
	}
	return depth
}
