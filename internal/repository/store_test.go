package repository

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"AlertRelay/internal/domain/models"
	pkgdb "AlertRelay/pkg/database"
	applogger "AlertRelay/pkg/logger"
)

func newTestDB(t *testing.T) *pkgdb.Client {
	t.Helper()
	c, err := pkgdb.NewClient(pkgdb.WithDriver(pkgdb.DriverSQLite), pkgdb.WithPath(filepath.Join(t.TempDir(), "alerts.db")))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.InitSchema(context.Background(), SchemaFor(c.Driver())); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return c
}

func intPtr(n int) *int { return &n }

func TestFindCandidatesFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewSQLSubscriberStore(db, applogger.NewNop())

	seed := []struct {
		sub      models.Subscriber
		settings []models.AlertSettings
	}{
		{
			sub: models.Subscriber{ID: "u3", EmailAddress: "c@example.com", SubscriptionTier: "pro", SubscriptionStatus: "active"},
			settings: []models.AlertSettings{
				{Channel: models.ChannelEmail, Enabled: true, MinSignalScore: 80, MaxAlertsPerDay: intPtr(2)},
			},
		},
		{
			sub: models.Subscriber{ID: "u1", EmailAddress: "a@example.com", ChatHandle: "@a", SubscriptionTier: "basic", SubscriptionStatus: "trial"},
			settings: []models.AlertSettings{
				{Channel: models.ChannelEmail, Enabled: true, MinSignalScore: 70},
				{Channel: models.ChannelChat, Enabled: true, MinSignalScore: 70},
			},
		},
		// cancelled
		{
			sub:      models.Subscriber{ID: "u2", EmailAddress: "b@example.com", SubscriptionStatus: "cancelled"},
			settings: []models.AlertSettings{{Channel: models.ChannelEmail, Enabled: true}},
		},
		// threshold too high
		{
			sub:      models.Subscriber{ID: "u4", EmailAddress: "d@example.com", SubscriptionStatus: "active"},
			settings: []models.AlertSettings{{Channel: models.ChannelEmail, Enabled: true, MinSignalScore: 95}},
		},
		// disabled
		{
			sub:      models.Subscriber{ID: "u5", EmailAddress: "e@example.com", SubscriptionStatus: "active"},
			settings: []models.AlertSettings{{Channel: models.ChannelEmail, Enabled: false}},
		},
		// no email address
		{
			sub:      models.Subscriber{ID: "u6", ChatHandle: "@f", SubscriptionStatus: "active"},
			settings: []models.AlertSettings{{Channel: models.ChannelEmail, Enabled: true}},
		},
	}
	for _, s := range seed {
		if err := store.Save(ctx, s.sub, s.settings...); err != nil {
			t.Fatalf("save %s: %v", s.sub.ID, err)
		}
	}

	got, err := store.FindCandidates(ctx, models.SubscriberQuery{
		Channel:    models.ChannelEmail,
		Statuses:   []string{"active", "trial"},
		FinalScore: 90,
	})
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(got), got)
	}
	if got[0].ID != "u1" || got[1].ID != "u3" {
		t.Fatalf("order = [%s %s], want [u1 u3]", got[0].ID, got[1].ID)
	}
	if got[0].Settings.MaxAlertsPerDay != nil {
		t.Fatalf("u1 cap should be unset, got %d", *got[0].Settings.MaxAlertsPerDay)
	}
	if got[1].Settings.MaxAlertsPerDay == nil || *got[1].Settings.MaxAlertsPerDay != 2 {
		t.Fatalf("u3 cap = %v, want 2", got[1].Settings.MaxAlertsPerDay)
	}
	if got[1].Destination(models.ChannelEmail) != "c@example.com" || got[1].SubscriptionTier != "pro" {
		t.Fatalf("unexpected u3 row: %+v", got[1])
	}

	chat, err := store.FindCandidates(ctx, models.SubscriberQuery{
		Channel:    models.ChannelChat,
		Statuses:   []string{"active", "trial"},
		FinalScore: 90,
	})
	if err != nil {
		t.Fatalf("FindCandidates chat: %v", err)
	}
	if len(chat) != 1 || chat[0].ID != "u1" || chat[0].ChatHandle != "@a" {
		t.Fatalf("chat candidates = %+v, want only u1", chat)
	}
}

func TestFindCandidatesUnknownChannel(t *testing.T) {
	store := NewSQLSubscriberStore(newTestDB(t), applogger.NewNop())
	if _, err := store.FindCandidates(context.Background(), models.SubscriberQuery{Channel: "sms", Statuses: []string{"active"}}); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}

func TestCandidatesQueryReadsMergedRows(t *testing.T) {
	ch := candidatesQuery(pkgdb.DriverClickHouse, "email_address", 2)
	for _, want := range []string{"subscribers AS s FINAL", "alert_settings AS a FINAL", "IN (?,?)", "s.email_address"} {
		if !strings.Contains(ch, want) {
			t.Fatalf("clickhouse query missing %q:\n%s", want, ch)
		}
	}
	if q := candidatesQuery(pkgdb.DriverSQLite, "chat_handle", 1); strings.Contains(q, "FINAL") {
		t.Fatalf("sqlite query uses FINAL:\n%s", q)
	}
}

func TestLedgerCountSentUsesHalfOpenWindow(t *testing.T) {
	ctx := context.Background()
	store := NewSQLLedgerStore(newTestDB(t), applogger.NewNop())

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	next := day.Add(24 * time.Hour)
	entries := []models.DeliveryLogEntry{
		{ID: "1", SubscriberID: "u1", SignalID: "s1", Channel: models.ChannelEmail, Status: models.DeliverySent, Timestamp: day},
		{ID: "2", SubscriberID: "u1", SignalID: "s2", Channel: models.ChannelEmail, Status: models.DeliverySent, Timestamp: next.Add(-time.Second)},
		{ID: "3", SubscriberID: "u1", SignalID: "s3", Channel: models.ChannelEmail, Status: models.DeliverySent, Timestamp: next},
		{ID: "4", SubscriberID: "u1", SignalID: "s4", Channel: models.ChannelEmail, Status: models.DeliveryFailed, Error: "boom", Timestamp: day.Add(time.Hour)},
		{ID: "5", SubscriberID: "u1", SignalID: "s5", Channel: models.ChannelChat, Status: models.DeliverySent, Timestamp: day.Add(time.Hour)},
		{ID: "6", SubscriberID: "u2", SignalID: "s1", Channel: models.ChannelEmail, Status: models.DeliverySent, Timestamp: day.Add(time.Hour)},
	}
	if err := store.Append(ctx, entries); err != nil {
		t.Fatalf("Append: %v", err)
	}

	n, err := store.CountSent(ctx, "u1", models.ChannelEmail, day, next)
	if err != nil {
		t.Fatalf("CountSent: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	sum, err := store.Summarize(ctx, day, next)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := map[models.Channel]models.ChannelSummary{
		models.ChannelChat:  {Channel: models.ChannelChat, Sent: 1},
		models.ChannelEmail: {Channel: models.ChannelEmail, Sent: 3, Failed: 1},
	}
	if len(sum) != len(want) {
		t.Fatalf("summary = %+v", sum)
	}
	for _, s := range sum {
		if s != want[s.Channel] {
			t.Fatalf("summary[%s] = %+v, want %+v", s.Channel, s, want[s.Channel])
		}
	}

	if err := store.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestLedgerAppendChunks(t *testing.T) {
	ctx := context.Background()
	store := NewSQLLedgerStore(newTestDB(t), applogger.NewNop())
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	entries := make([]models.DeliveryLogEntry, 0, 1200)
	for i := 0; i < 1200; i++ {
		entries = append(entries, models.DeliveryLogEntry{
			ID: "e" + strconv.Itoa(i), SubscriberID: "u1", SignalID: "s1",
			Channel: models.ChannelEmail, Status: models.DeliverySent, Timestamp: at,
		})
	}
	if err := store.Append(ctx, entries); err != nil {
		t.Fatalf("Append: %v", err)
	}
	n, err := store.CountSent(ctx, "u1", models.ChannelEmail, at, at.Add(time.Minute))
	if err != nil {
		t.Fatalf("CountSent: %v", err)
	}
	if n != 1200 {
		t.Fatalf("count = %d, want 1200", n)
	}
}
