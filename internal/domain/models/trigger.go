package models

import "strings"

// Operation types accepted on the inbound trigger.
const (
	OperationInsert = "INSERT"
	OperationUpdate = "UPDATE"
)

// TriggerEvent is a change notification for one signal row. Both the
// database-webhook names (type, table, old_record) and the long names are accepted.
type TriggerEvent struct {
	OperationType  string        `json:"operationType"`
	Type           string        `json:"type"`
	EntityType     string        `json:"entityType"`
	Table          string        `json:"table"`
	Record         *SignalRecord `json:"record"`
	PreviousRecord *SignalRecord `json:"previousRecord,omitempty"`
	OldRecord      *SignalRecord `json:"old_record,omitempty"`
}

// Operation returns the normalized operation type.
func (e TriggerEvent) Operation() string {
	op := e.OperationType
	if op == "" {
		op = e.Type
	}
	return strings.ToUpper(strings.TrimSpace(op))
}

// Entity returns the target table name.
func (e TriggerEvent) Entity() string {
	if e.EntityType != "" {
		return e.EntityType
	}
	return e.Table
}

// ChannelOutcome is the per-channel detail of one pipeline run.
type ChannelOutcome struct {
	Channel   Channel `json:"channel"`
	Eligible  int     `json:"eligible"`
	Excluded  int     `json:"excluded"`
	Delivered int     `json:"delivered"`
	Sent      bool    `json:"sent"`
	Skipped   string  `json:"skipped,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// AlertResponse is the summary returned to the trigger caller.
type AlertResponse struct {
	Success   bool             `json:"success"`
	Processed bool             `json:"processed"`
	Score     int              `json:"score"`
	Strength  Strength         `json:"strength,omitempty"`
	UserCount int              `json:"userCount"`
	EmailSent bool             `json:"emailSent"`
	ChatSent  bool             `json:"chatSent"`
	Message   string           `json:"message,omitempty"`
	Error     string           `json:"error,omitempty"`
	Channels  []ChannelOutcome `json:"channels,omitempty"`
}
