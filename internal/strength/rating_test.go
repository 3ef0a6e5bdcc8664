package strength

import (
	"math"
	"testing"
)

func TestEstimateRatingCeiling(t *testing.T) {
	for _, acpl := range []float64{0, -0.5, -10, -1000, math.NaN()} {
		if got := EstimateRating(acpl); got != MaxRating {
			t.Fatalf("EstimateRating(%v) = %d, want %d", acpl, got, MaxRating)
		}
	}
}

func TestEstimateRatingKnownValues(t *testing.T) {
	cases := []struct {
		acpl float64
		want int
	}{
		{25, 2800},
		{50, 2625},
		{75, 1594},
		{100, 1118},
		{150, 679},
		{200, 476},
		{500, 400},
		{1000, 400},
	}
	for _, tc := range cases {
		if got := EstimateRating(tc.acpl); got != tc.want {
			t.Fatalf("EstimateRating(%v) = %d, want %d", tc.acpl, got, tc.want)
		}
	}
}

func TestEstimateRatingMonotonic(t *testing.T) {
	prev := EstimateRating(0.01)
	for acpl := 0.5; acpl < 2000; acpl += 0.5 {
		got := EstimateRating(acpl)
		if got > prev {
			t.Fatalf("rating increased at acpl=%v: %d > %d", acpl, got, prev)
		}
		if got < MinRating || got > MaxRating {
			t.Fatalf("rating %d out of range at acpl=%v", got, acpl)
		}
		prev = got
	}
	if EstimateRating(25) <= EstimateRating(100) {
		t.Fatalf("expected acpl 25 to rate above acpl 100")
	}
	if !(EstimateRating(30) > EstimateRating(60) && EstimateRating(60) > EstimateRating(120)) {
		t.Fatalf("expected strictly decreasing ratings for 30, 60, 120")
	}
}

func TestEstimateRatingExtremeInputs(t *testing.T) {
	if got := EstimateRating(math.Inf(1)); got != MinRating {
		t.Fatalf("EstimateRating(+Inf) = %d, want %d", got, MinRating)
	}
	if got := EstimateRating(math.SmallestNonzeroFloat64); got != MaxRating {
		t.Fatalf("EstimateRating(tiny) = %d, want %d", got, MaxRating)
	}
}

func TestSelectDepthBoundaries(t *testing.T) {
	cases := []struct {
		rating int
		want   int
	}{
		{0, 1},
		{1000, 1},
		{1500, 1},
		{1999, 1},
		{2000, 2},
		{2199, 2},
		{2200, 3},
		{2300, 3},
		{2349, 3},
		{2350, 4},
		{2499, 4},
		{2500, 5},
		{2649, 5},
		{2650, 6},
		{2749, 6},
		{2750, 7},
		{2899, 7},
		{2900, 8},
		{3500, 8},
	}
	for _, tc := range cases {
		if got := SelectDepth(tc.rating); got != tc.want {
			t.Fatalf("SelectDepth(%d) = %d, want %d", tc.rating, got, tc.want)
		}
	}
}

func TestSelectDepthNonDecreasing(t *testing.T) {
	prev := SelectDepth(-100)
	for r := -100; r <= 3200; r++ {
		d := SelectDepth(r)
		if d < prev {
			t.Fatalf("depth decreased at rating %d: %d < %d", r, d, prev)
		}
		if d < MinDepth || d > MaxDepth {
			t.Fatalf("depth %d out of range at rating %d", d, r)
		}
		prev = d
	}
}

func TestClampDepth(t *testing.T) {
	if got := ClampDepth(0); got != 1 {
		t.Fatalf("ClampDepth(0) = %d", got)
	}
	if got := ClampDepth(9); got != 8 {
		t.Fatalf("ClampDepth(9) = %d", got)
	}
	if got := ClampDepth(5); got != 5 {
		t.Fatalf("ClampDepth(5) = %d", got)
	}
}

func TestClassifyLoss(t *testing.T) {
	cases := map[int]string{
		0:   QualityPerfect,
		1:   QualityGood,
		19:  QualityGood,
		20:  QualityInaccuracy,
		49:  QualityInaccuracy,
		50:  QualityMistake,
		99:  QualityMistake,
		100: QualityBlunder,
		900: QualityBlunder,
	}
	for loss, want := range cases {
		if got := ClassifyLoss(loss); got != want {
			t.Fatalf("ClassifyLoss(%d) = %q, want %q", loss, got, want)
		}
	}
}

func TestLevelBand(t *testing.T) {
	cases := map[float64]string{
		0:     "Super GM",
		24.9:  "Super GM",
		25:    "GM/IM",
		49.9:  "GM/IM",
		50:    "Club player",
		99.9:  "Club player",
		100:   "Beginner",
		350.5: "Beginner",
	}
	for acpl, want := range cases {
		if got := LevelBand(acpl); got != want {
			t.Fatalf("LevelBand(%v) = %q, want %q", acpl, got, want)
		}
	}
}
