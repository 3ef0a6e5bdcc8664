package strength

import "fmt"

const (
	InitialRating = 1200
	InitialLabel  = "Initial"
)

// Estimate is the (rating, label) pair shown to the player.
type Estimate struct {
	Rating int    `json:"rating"`
	Label  string `json:"label"`
}

// InitialEstimate is the strength reported before any move was measured.
func InitialEstimate() Estimate {
	return Estimate{Rating: InitialRating, Label: InitialLabel}
}

// Update is the outcome of recording one measured move.
type Update struct {
	Loss     int
	Average  float64
	Rating   int
	Depth    int
	Estimate Estimate
}

// Tracker keeps the running loss statistics of one player.
// It is not safe for concurrent use; callers serialise access.
type Tracker struct {
	total    int
	count    int
	losses   []int
	averages []float64
}

// Preview computes the update for a raw loss without applying it.
// Negative losses are clamped to zero.
func (t *Tracker) Preview(rawLoss int) Update {
	loss := rawLoss
	if loss < 0 {
		loss = 0
	}
	avg := float64(t.total+loss) / float64(t.count+1)
	rating := EstimateRating(avg)
	depth := SelectDepth(rating)
	return Update{
		Loss:    loss,
		Average: avg,
		Rating:  rating,
		Depth:   depth,
		Estimate: Estimate{
			Rating: rating,
			Label:  Summary(avg, depth),
		},
	}
}

// Apply commits an update produced by Preview.
func (t *Tracker) Apply(u Update) {
	t.total += u.Loss
	t.count++
	t.losses = append(t.losses, u.Loss)
	t.averages = append(t.averages, u.Average)
}

// Record is Preview followed by Apply.
func (t *Tracker) Record(rawLoss int) Update {
	u := t.Preview(rawLoss)
	t.Apply(u)
	return u
}

func (t *Tracker) Reset() {
	t.total = 0
	t.count = 0
	t.losses = nil
	t.averages = nil
}

func (t *Tracker) Count() int { return t.count }

func (t *Tracker) Total() int { return t.total }

// Average returns the current average loss, zero before the first move.
func (t *Tracker) Average() float64 {
	if t.count == 0 {
		return 0
	}
	return float64(t.total) / float64(t.count)
}

func (t *Tracker) Losses() []int {
	return append([]int{}, t.losses...)
}

func (t *Tracker) Averages() []float64 {
	return append([]float64{}, t.averages...)
}

// Summary renders the label attached to a strength estimate.
func Summary(avg float64, depth int) string {
	return fmt.Sprintf("ACPL: %.1f, Bot depth: %d", avg, depth)
}
