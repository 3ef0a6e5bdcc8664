package chess

import (
	"testing"
	"time"
)

func TestSearchTimeout(t *testing.T) {
	cases := []struct {
		depth int
		floor time.Duration
		want  time.Duration
	}{
		{depth: 1, floor: 2 * time.Second, want: 2 * time.Second},
		{depth: 8, floor: time.Second, want: 2400 * time.Millisecond},
		{depth: 8, floor: 5 * time.Second, want: 5 * time.Second},
		{depth: 0, floor: 0, want: 300 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := SearchTimeout(tc.depth, tc.floor); got != tc.want {
			t.Fatalf("SearchTimeout(%d, %v) = %v, want %v", tc.depth, tc.floor, got, tc.want)
		}
	}
}
