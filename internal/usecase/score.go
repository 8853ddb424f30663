package usecase

import (
	"math"

	"AlertRelay/internal/domain/models"
)

// AlertThreshold is the minimum final score that triggers delivery.
const AlertThreshold = 80

// timeframeWeights are in percent so integer sub-scores aggregate without drift.
var timeframeWeights = map[models.Timeframe]float64{
	models.TF1H: 20,
	models.TF4H: 30,
	models.TF1D: 30,
	models.TF1W: 20,
}

// Aggregate folds per-timeframe sub-scores into one final score in [0,100].
// Absent, null and unknown timeframes are left out of both the weighted sum and
// the weight total, so partial data is re-normalized rather than penalized.
func Aggregate(scores models.TimeframeScores) int {
	var sum, total float64
	for tf, v := range scores {
		w, ok := timeframeWeights[tf]
		if !ok || v == nil || math.IsNaN(*v) {
			continue
		}
		sum += clampScore(*v) * w
		total += w
	}
	if total == 0 {
		return 0
	}
	// round half up
	return int(math.Floor(sum/total + 0.5))
}

// StrengthFor labels a final score.
func StrengthFor(score int) models.Strength {
	switch {
	case score >= 90:
		return models.StrengthVeryStrong
	case score >= 80:
		return models.StrengthStrong
	case score >= 70:
		return models.StrengthModerate
	default:
		return models.StrengthWeak
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
