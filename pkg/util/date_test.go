package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestDayBoundsIncludesLastSecond(t *testing.T) {
	at := time.Date(2024, 10, 10, 23, 59, 59, 500, time.UTC)
	from, to := DayBounds(at, time.UTC)
	if !from.Equal(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", from)
	}
	if !to.Equal(time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", to)
	}
	if at.Before(from) || !at.Before(to) {
		t.Fatalf("%v not inside [%v, %v)", at, from, to)
	}
}

func TestDayBoundsUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on the 11th is still the 10th at UTC-5.
	at := time.Date(2024, 10, 11, 2, 0, 0, 0, time.UTC)
	from, to := DayBounds(at, loc)
	if from.In(loc).Day() != 10 {
		t.Fatalf("expected day 10, got %v", from.In(loc))
	}
	if to.Sub(from) != 24*time.Hour {
		t.Fatalf("expected 24h window, got %v", to.Sub(from))
	}
}

func TestPreviousDay(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 5, 0, 0, time.UTC)
	from, to := PreviousDay(at, time.UTC)
	if !from.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", from)
	}
	if !to.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", to)
	}
}
