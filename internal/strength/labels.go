package strength

// Move quality buckets for a single centipawn loss.
const (
	QualityPerfect    = "Perfect"
	QualityGood       = "Good"
	QualityInaccuracy = "Inaccuracy"
	QualityMistake    = "Mistake"
	QualityBlunder    = "Blunder"
)

// ClassifyLoss buckets one move's centipawn loss.
func ClassifyLoss(loss int) string {
	switch {
	case loss <= 0:
		return QualityPerfect
	case loss < 20:
		return QualityGood
	case loss < 50:
		return QualityInaccuracy
	case loss < 100:
		return QualityMistake
	default:
		return QualityBlunder
	}
}

// LevelBand describes the playing level implied by an average loss.
func LevelBand(acpl float64) string {
	switch {
	case acpl < 25:
		return "Super GM"
	case acpl < 50:
		return "GM/IM"
	case acpl < 100:
		return "Club player"
	default:
		return "Beginner"
	}
}
