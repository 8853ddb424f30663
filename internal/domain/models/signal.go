package models

import "time"

// Timeframe is one analysis horizon contributing a sub-score.
type Timeframe string

const (
	TF1H Timeframe = "1H"
	TF4H Timeframe = "4H"
	TF1D Timeframe = "1D"
	TF1W Timeframe = "1W"
)

// Timeframes lists the supported horizons in weight-table order.
var Timeframes = []Timeframe{TF1H, TF4H, TF1D, TF1W}

// TimeframeScores maps a timeframe label to its sub-score. A nil value means
// the timeframe was sent as null and is treated as absent.
type TimeframeScores map[Timeframe]*float64

// SignalRecord is one trading opportunity as produced by the upstream engine.
// The pipeline only reads it.
type SignalRecord struct {
	ID          string          `json:"id" validate:"required"`
	Symbol      string          `json:"ticker" validate:"required"`
	EntryPrice  float64         `json:"entry_price" validate:"gt=0"`
	StopLoss    float64         `json:"stop_loss"`
	TakeProfit  float64         `json:"take_profit"`
	SignalType  string          `json:"signal_type"`
	Scores      TimeframeScores `json:"signals" validate:"required,min=1"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Score builds a TimeframeScores entry value.
func Score(v float64) *float64 { return &v }

// Strength is the human label derived from a final score.
type Strength string

const (
	StrengthVeryStrong Strength = "very_strong"
	StrengthStrong     Strength = "strong"
	StrengthModerate   Strength = "moderate"
	StrengthWeak       Strength = "weak"
)
