package market

import (
	"time"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
)

// Regular US equity session boundaries, in minutes after local midnight.
const (
	preMarketOpen  = 4 * 60
	regularOpen    = 9*60 + 30
	regularClose   = 16 * 60
	afterHoursDone = 20 * 60
)

// Clock classifies instants into US equity market sessions.
type Clock struct {
	loc *time.Location
}

// NewClock creates a clock for the exchange zone (normally America/New_York).
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// NewClockFor loads zone by name.
func NewClockFor(zone string) (*Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return NewClock(loc), nil
}

// Session returns the market session containing t.
func (c *Clock) Session(t time.Time) models.MarketSession {
	lt := t.In(c.loc)
	switch lt.Weekday() {
	case time.Saturday, time.Sunday:
		return models.SessionWeekend
	}
	if IsHoliday(lt) {
		return models.SessionHoliday
	}
	m := lt.Hour()*60 + lt.Minute()
	switch {
	case m >= preMarketOpen && m < regularOpen:
		return models.SessionPreMarket
	case m >= regularOpen && m < regularClose:
		return models.SessionLive
	case m >= regularClose && m < afterHoursDone:
		return models.SessionAfterHours
	default:
		return models.SessionClosed
	}
}

// IsHoliday reports whether the calendar date of t is a full-day NYSE holiday.
func IsHoliday(t time.Time) bool {
	y, m, d := t.Date()
	for _, h := range holidays(y) {
		if h.month == m && h.day == d {
			return true
		}
	}
	return false
}

type monthDay struct {
	month time.Month
	day   int
}

func holidays(year int) []monthDay {
	out := []monthDay{
		observed(year, time.January, 1, false),
		nthWeekday(year, time.January, time.Monday, 3),
		nthWeekday(year, time.February, time.Monday, 3),
		goodFriday(year),
		lastWeekday(year, time.May, time.Monday),
		observed(year, time.July, 4, true),
		nthWeekday(year, time.September, time.Monday, 1),
		nthWeekday(year, time.November, time.Thursday, 4),
		observed(year, time.December, 25, true),
	}
	if year >= 2022 {
		out = append(out, observed(year, time.June, 19, true))
	}
	return out
}

// observed shifts a Sunday holiday to Monday and, when shiftSaturday is set,
// a Saturday holiday to Friday. Otherwise a Saturday holiday is not observed.
func observed(year int, month time.Month, day int, shiftSaturday bool) monthDay {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	switch t.Weekday() {
	case time.Sunday:
		t = t.AddDate(0, 0, 1)
	case time.Saturday:
		if shiftSaturday {
			t = t.AddDate(0, 0, -1)
		} else {
			return monthDay{}
		}
	}
	return monthDay{t.Month(), t.Day()}
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) monthDay {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(t.Weekday()) + 7) % 7
	t = t.AddDate(0, 0, offset+7*(n-1))
	return monthDay{t.Month(), t.Day()}
}

func lastWeekday(year int, month time.Month, wd time.Weekday) monthDay {
	t := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) - int(wd) + 7) % 7
	t = t.AddDate(0, 0, -offset)
	return monthDay{t.Month(), t.Day()}
}

// goodFriday is two days before Easter Sunday (anonymous Gregorian algorithm).
func goodFriday(year int) monthDay {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -2)
	return monthDay{t.Month(), t.Day()}
}

var _ domrepo.MarketClock = (*Clock)(nil)
