package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
	pkgdb "AlertRelay/pkg/database"
	applogger "AlertRelay/pkg/logger"
)

// SQLLedgerStore is the append-only delivery_log table.
type SQLLedgerStore struct {
	db *sql.DB
	l  *applogger.Logger
}

// NewSQLLedgerStore creates a ledger store on db.
func NewSQLLedgerStore(db *pkgdb.Client, l *applogger.Logger) *SQLLedgerStore {
	return &SQLLedgerStore{db: db.DB(), l: l}
}

// Append inserts entries using multi-row VALUES in chunks.
func (s *SQLLedgerStore) Append(ctx context.Context, entries []models.DeliveryLogEntry) error {
	const chunkSize = 500
	for start := 0; start < len(entries); start += chunkSize {
		end := start + chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, e := range entries[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, e.ID, e.SubscriberID, e.SignalID, string(e.Channel), string(e.Status), e.Error, e.Timestamp.UnixMilli())
		}
		q := "INSERT INTO delivery_log (id, subscriber_id, signal_id, channel, status, error, ts_ms) VALUES " + strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("append delivery log: %w", err)
		}
	}
	return nil
}

func (s *SQLLedgerStore) CountSent(ctx context.Context, subscriberID string, channel models.Channel, from, to time.Time) (int, error) {
	const q = `
		SELECT count(*)
		FROM delivery_log
		WHERE subscriber_id = ? AND channel = ? AND status = ?
		  AND ts_ms >= ? AND ts_ms < ?`
	var n int
	err := s.db.QueryRowContext(ctx, q, subscriberID, string(channel), string(models.DeliverySent), from.UnixMilli(), to.UnixMilli()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sent: %w", err)
	}
	return n, nil
}

func (s *SQLLedgerStore) Summarize(ctx context.Context, from, to time.Time) ([]models.ChannelSummary, error) {
	const q = `
		SELECT channel, status, count(*)
		FROM delivery_log
		WHERE ts_ms >= ? AND ts_ms < ?
		GROUP BY channel, status
		ORDER BY channel`
	rows, err := s.db.QueryContext(ctx, q, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		s.l.Error("summarize query error", applogger.Error(err))
		return nil, fmt.Errorf("summarize: %w", err)
	}
	defer rows.Close()

	var out []models.ChannelSummary
	idx := make(map[models.Channel]int)
	for rows.Next() {
		var (
			ch, status string
			n          int
		)
		if err := rows.Scan(&ch, &status, &n); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		i, ok := idx[models.Channel(ch)]
		if !ok {
			i = len(out)
			idx[models.Channel(ch)] = i
			out = append(out, models.ChannelSummary{Channel: models.Channel(ch)})
		}
		switch models.DeliveryStatus(status) {
		case models.DeliverySent:
			out[i].Sent += n
		case models.DeliveryFailed:
			out[i].Failed += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *SQLLedgerStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ domrepo.LedgerStore = (*SQLLedgerStore)(nil)
