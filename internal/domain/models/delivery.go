package models

import "time"

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryLogEntry is one append-only ledger row.
type DeliveryLogEntry struct {
	ID           string         `json:"id"`
	SubscriberID string         `json:"subscriber_id"`
	SignalID     string         `json:"signal_id"`
	Channel      Channel        `json:"channel"`
	Status       DeliveryStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// DispatchPayload is the single batched request sent to the relay for one
// (signal, channel) pair.
type DispatchPayload struct {
	AlertType     string      `json:"alert_type"`
	Channel       Channel     `json:"channel"`
	SignalID      string      `json:"signal_id"`
	Symbol        string      `json:"symbol"`
	FinalScore    int         `json:"final_score"`
	Strength      Strength    `json:"strength"`
	EntryPrice    float64     `json:"entry_price"`
	StopLoss      float64     `json:"stop_loss"`
	TakeProfit    float64     `json:"take_profit"`
	SignalType    string      `json:"signal_type"`
	MarketSession string      `json:"market_session,omitempty"`
	Timestamp     string      `json:"timestamp"`
	Recipients    []Recipient `json:"recipients"`
}

// DispatchResult is what the dispatcher reports for one relay call.
type DispatchResult struct {
	Success        bool   `json:"success"`
	DeliveredCount int    `json:"delivered_count"`
	Error          string `json:"error,omitempty"`
}

// DeliveryEvent is published for downstream audit after each (signal, channel) run.
type DeliveryEvent struct {
	SignalID   string         `json:"signal_id"`
	Symbol     string         `json:"symbol"`
	Channel    Channel        `json:"channel"`
	FinalScore int            `json:"final_score"`
	Status     DeliveryStatus `json:"status"`
	Recipients int            `json:"recipients"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ChannelSummary counts ledger rows by status for one channel over a window.
type ChannelSummary struct {
	Channel Channel `json:"channel"`
	Sent    int     `json:"sent"`
	Failed  int     `json:"failed"`
}
