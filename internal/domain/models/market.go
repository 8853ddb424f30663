package models

// MarketSession classifies a point in time relative to US equity trading hours.
type MarketSession string

const (
	SessionLive       MarketSession = "live"
	SessionPreMarket  MarketSession = "pre_market"
	SessionAfterHours MarketSession = "after_hours"
	SessionClosed     MarketSession = "closed"
	SessionWeekend    MarketSession = "weekend"
	SessionHoliday    MarketSession = "holiday"
)
