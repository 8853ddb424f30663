package models

import "time"

// ScoreRequest previews the final score of a set of sub-scores.
type ScoreRequest struct {
	Signals TimeframeScores `json:"signals" validate:"required,min=1"`
}

// ScoreResponse is the preview result.
type ScoreResponse struct {
	Score     int      `json:"score"`
	Strength  Strength `json:"strength"`
	Threshold int      `json:"threshold"`
	Alertable bool     `json:"alertable"`
}

// DeliveryCountRequest selects one subscriber's sends for today. At, when set,
// moves "today" to the day containing that instant (RFC3339 or unix seconds).
type DeliveryCountRequest struct {
	SubscriberID string `param:"id" validate:"required"`
	Channel      string `query:"channel" validate:"required,oneof=email chat"`
	At           string `query:"at"`
}

// DeliveryCountResponse reports today's sent count and the window it covers.
type DeliveryCountResponse struct {
	SubscriberID string    `json:"subscriberId"`
	Channel      Channel   `json:"channel"`
	SentToday    int       `json:"sentToday"`
	WindowStart  time.Time `json:"windowStart"`
	WindowEnd    time.Time `json:"windowEnd"`
}
