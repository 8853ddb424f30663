package usecase

import (
	"math"
	"testing"

	"AlertRelay/internal/domain/models"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		scores models.TimeframeScores
		want   int
	}{
		{"all timeframes", strongScores(), 95},
		{"all max", models.TimeframeScores{
			models.TF1H: models.Score(100), models.TF4H: models.Score(100),
			models.TF1D: models.Score(100), models.TF1W: models.Score(100),
		}, 100},
		{"all zero", models.TimeframeScores{
			models.TF1H: models.Score(0), models.TF4H: models.Score(0),
			models.TF1D: models.Score(0), models.TF1W: models.Score(0),
		}, 0},
		{"empty", models.TimeframeScores{}, 0},
		{"nil map", nil, 0},
		{"only nulls", models.TimeframeScores{models.TF1H: nil, models.TF1D: nil}, 0},
		{"single timeframe renormalized", models.TimeframeScores{models.TF4H: models.Score(83)}, 83},
		{"null ignored", models.TimeframeScores{models.TF1H: models.Score(80), models.TF1D: nil}, 80},
		{"unknown label ignored", models.TimeframeScores{"5M": models.Score(100), models.TF1H: models.Score(50)}, 50},
		{"half rounds up", models.TimeframeScores{models.TF1H: models.Score(81), models.TF1W: models.Score(80)}, 81},
		{"below half rounds down", models.TimeframeScores{models.TF1H: models.Score(80), models.TF4H: models.Score(80.4)}, 80},
		{"clamped high", models.TimeframeScores{models.TF1H: models.Score(150)}, 100},
		{"clamped low", models.TimeframeScores{models.TF1H: models.Score(-20), models.TF1W: models.Score(60)}, 30},
		{"nan ignored", models.TimeframeScores{models.TF1H: models.Score(math.NaN()), models.TF1D: models.Score(70)}, 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Aggregate(tt.scores); got != tt.want {
				t.Fatalf("Aggregate() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAggregateStaysInRange(t *testing.T) {
	values := []float64{-1e9, -1, 0, 0.5, 49.5, 79.5, 99.99, 100, 101, 1e9}
	for _, a := range values {
		for _, b := range values {
			got := Aggregate(models.TimeframeScores{models.TF1H: models.Score(a), models.TF1W: models.Score(b)})
			if got < 0 || got > 100 {
				t.Fatalf("Aggregate(%v, %v) = %d out of range", a, b, got)
			}
		}
	}
}

func TestStrengthFor(t *testing.T) {
	tests := []struct {
		score int
		want  models.Strength
	}{
		{100, models.StrengthVeryStrong},
		{90, models.StrengthVeryStrong},
		{89, models.StrengthStrong},
		{80, models.StrengthStrong},
		{79, models.StrengthModerate},
		{70, models.StrengthModerate},
		{69, models.StrengthWeak},
		{0, models.StrengthWeak},
	}
	for _, tt := range tests {
		if got := StrengthFor(tt.score); got != tt.want {
			t.Errorf("StrengthFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
