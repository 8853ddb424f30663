package repository

import pkgdb "AlertRelay/pkg/database"

// Timestamps are stored as unix milliseconds so both dialects share the same queries.

var clickhouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS subscribers (
		id String,
		email_address Nullable(String),
		chat_handle Nullable(String),
		subscription_tier LowCardinality(String),
		subscription_status LowCardinality(String)
	) ENGINE = ReplacingMergeTree ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS alert_settings (
		subscriber_id String,
		channel LowCardinality(String),
		enabled UInt8,
		min_signal_score Int32,
		max_alerts_per_day Nullable(Int32)
	) ENGINE = ReplacingMergeTree ORDER BY (subscriber_id, channel)`,
	`CREATE TABLE IF NOT EXISTS delivery_log (
		id String,
		subscriber_id String,
		signal_id String,
		channel LowCardinality(String),
		status LowCardinality(String),
		error String,
		ts_ms Int64
	) ENGINE = MergeTree ORDER BY (subscriber_id, channel, ts_ms)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS subscribers (
		id TEXT PRIMARY KEY,
		email_address TEXT,
		chat_handle TEXT,
		subscription_tier TEXT NOT NULL DEFAULT '',
		subscription_status TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS alert_settings (
		subscriber_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 0,
		min_signal_score INTEGER NOT NULL DEFAULT 0,
		max_alerts_per_day INTEGER,
		PRIMARY KEY (subscriber_id, channel)
	)`,
	`CREATE TABLE IF NOT EXISTS delivery_log (
		id TEXT PRIMARY KEY,
		subscriber_id TEXT NOT NULL,
		signal_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		ts_ms INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_log_cap ON delivery_log (subscriber_id, channel, status, ts_ms)`,
}

// SchemaFor returns the DDL statements for driver.
func SchemaFor(driver string) []string {
	if driver == pkgdb.DriverClickHouse {
		return clickhouseSchema
	}
	return sqliteSchema
}
