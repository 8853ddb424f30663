package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
	pkgdb "AlertRelay/pkg/database"
	applogger "AlertRelay/pkg/logger"
)

// destinationColumns maps a channel to the subscriber column holding its address.
var destinationColumns = map[models.Channel]string{
	models.ChannelEmail: "email_address",
	models.ChannelChat:  "chat_handle",
}

// SQLSubscriberStore reads subscribers joined with alert settings.
type SQLSubscriberStore struct {
	db     *sql.DB
	driver string
	l      *applogger.Logger
}

// NewSQLSubscriberStore creates a subscriber store on db.
func NewSQLSubscriberStore(db *pkgdb.Client, l *applogger.Logger) *SQLSubscriberStore {
	return &SQLSubscriberStore{db: db.DB(), driver: db.Driver(), l: l}
}

func (s *SQLSubscriberStore) FindCandidates(ctx context.Context, q models.SubscriberQuery) ([]models.Subscriber, error) {
	col, ok := destinationColumns[q.Channel]
	if !ok {
		return nil, fmt.Errorf("unknown channel %q", q.Channel)
	}
	if len(q.Statuses) == 0 {
		return nil, nil
	}

	query := candidatesQuery(s.driver, col, len(q.Statuses))

	args := make([]interface{}, 0, 2+len(q.Statuses))
	args = append(args, string(q.Channel), q.FinalScore)
	for _, st := range q.Statuses {
		args = append(args, st)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.l.Error("find candidates query error",
			applogger.String("channel", string(q.Channel)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	defer rows.Close()

	var out []models.Subscriber
	for rows.Next() {
		var (
			sub    models.Subscriber
			maxDay sql.NullInt64
		)
		if err := rows.Scan(&sub.ID, &sub.EmailAddress, &sub.ChatHandle,
			&sub.SubscriptionTier, &sub.SubscriptionStatus,
			&sub.Settings.MinSignalScore, &maxDay); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		sub.Settings.Channel = q.Channel
		sub.Settings.Enabled = true
		if maxDay.Valid {
			n := int(maxDay.Int64)
			sub.Settings.MaxAlertsPerDay = &n
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// candidatesQuery builds the candidate join for a channel's destination column.
// ClickHouse reads both ReplacingMergeTree tables with FINAL so upserted rows
// that are not merged yet come back once.
func candidatesQuery(driver, col string, statuses int) string {
	final := ""
	if driver == pkgdb.DriverClickHouse {
		final = " FINAL"
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", statuses), ",")
	return fmt.Sprintf(`
		SELECT s.id, COALESCE(s.email_address, ''), COALESCE(s.chat_handle, ''),
		       s.subscription_tier, s.subscription_status,
		       a.min_signal_score, a.max_alerts_per_day
		FROM subscribers AS s%[1]s
		INNER JOIN alert_settings AS a%[1]s ON a.subscriber_id = s.id
		WHERE a.channel = ?
		  AND a.enabled = 1
		  AND a.min_signal_score <= ?
		  AND s.subscription_status IN (%[2]s)
		  AND COALESCE(s.%[3]s, '') != ''
		ORDER BY s.id ASC`, final, placeholders, col)
}

// Save writes a subscriber and its per-channel settings. It is used for seeding
// local databases; production subscriber data is owned upstream.
func (s *SQLSubscriberStore) Save(ctx context.Context, sub models.Subscriber, settings ...models.AlertSettings) error {
	verb := "INSERT OR REPLACE INTO"
	if s.driver == pkgdb.DriverClickHouse {
		verb = "INSERT INTO"
	}
	if _, err := s.db.ExecContext(ctx,
		verb+` subscribers (id, email_address, chat_handle, subscription_tier, subscription_status) VALUES (?, ?, ?, ?, ?)`,
		sub.ID, nullString(sub.EmailAddress), nullString(sub.ChatHandle), sub.SubscriptionTier, sub.SubscriptionStatus,
	); err != nil {
		return fmt.Errorf("save subscriber: %w", err)
	}
	for _, a := range settings {
		var maxDay sql.NullInt64
		if a.MaxAlertsPerDay != nil {
			maxDay = sql.NullInt64{Int64: int64(*a.MaxAlertsPerDay), Valid: true}
		}
		enabled := 0
		if a.Enabled {
			enabled = 1
		}
		if _, err := s.db.ExecContext(ctx,
			verb+` alert_settings (subscriber_id, channel, enabled, min_signal_score, max_alerts_per_day) VALUES (?, ?, ?, ?, ?)`,
			sub.ID, string(a.Channel), enabled, a.MinSignalScore, maxDay,
		); err != nil {
			return fmt.Errorf("save alert settings: %w", err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ domrepo.SubscriberStore = (*SQLSubscriberStore)(nil)
