package models

// Channel is a delivery medium handled by the relay.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// AlertSettings are one subscriber's preferences for one channel.
type AlertSettings struct {
	Channel        Channel
	Enabled        bool
	MinSignalScore int
	// MaxAlertsPerDay is nil when the subscriber never set a cap.
	MaxAlertsPerDay *int
}

// Subscriber is a candidate recipient joined with its settings for one channel.
type Subscriber struct {
	ID                 string
	EmailAddress       string
	ChatHandle         string
	SubscriptionTier   string
	SubscriptionStatus string
	Settings           AlertSettings
}

// Destination returns the address used for channel, or "" when unset.
func (s Subscriber) Destination(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return s.EmailAddress
	case ChannelChat:
		return s.ChatHandle
	default:
		return ""
	}
}

// Recipient is an eligible subscriber resolved for one channel.
type Recipient struct {
	SubscriberID string `json:"id"`
	Destination  string `json:"destination"`
	Tier         string `json:"tier"`
}

// SubscriberQuery filters the subscriber store.
type SubscriberQuery struct {
	Channel    Channel
	Statuses   []string
	FinalScore int
}
