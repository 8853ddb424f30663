package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("relay:\n  base_url: http://relay\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Server.Port != 8080 || c.Alerts.DefaultMaxPerDay != 10 || c.Alerts.DedupeTTL != 24*time.Hour {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if len(c.Alerts.Channels) != 2 || c.Alerts.Channels[0] != "email" || c.Alerts.Channels[1] != "chat" {
		t.Fatalf("channels = %v", c.Alerts.Channels)
	}
	if c.Relay.Endpoints["chat"] != "/send-chat-alert" {
		t.Fatalf("endpoints = %v", c.Relay.Endpoints)
	}
	if c.Scheduler.DigestCron != "0 5 0 * * *" {
		t.Fatalf("digest cron = %q", c.Scheduler.DigestCron)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
alerts:
  channels: [email]
  day_timezone: America/New_York
  default_max_per_day: 3
store:
  driver: clickhouse
  host: ch.internal
relay:
  base_url: https://relay.internal
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Environment != "production" || c.Store.Driver != "clickhouse" || c.Alerts.DefaultMaxPerDay != 3 {
		t.Fatalf("config = %+v", c)
	}
	if len(c.Alerts.Channels) != 1 {
		t.Fatalf("channels = %v", c.Alerts.Channels)
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("RELAY_BASE_URL", "http://relay.env")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if c.Relay.BaseURL != "http://relay.env" || c.Logging.Level != "debug" {
		t.Fatalf("config = %+v", c)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka = %+v", c.Kafka)
	}
	if !c.Redis.Enabled || c.Redis.Host != "cache" || c.Redis.Port != 6380 {
		t.Fatalf("redis = %+v", c.Redis)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing relay", func(c *Config) { c.Relay.BaseURL = "" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"clickhouse without host", func(c *Config) { c.Store.Driver = "clickhouse" }},
		{"no channels", func(c *Config) { c.Alerts.Channels = nil }},
		{"channel without endpoint", func(c *Config) { delete(c.Relay.Endpoints, "chat") }},
		{"unknown channel with endpoint", func(c *Config) {
			c.Relay.Endpoints["sms"] = "/send-sms-alert"
			c.Alerts.Channels = []string{"email", "sms"}
		}},
		{"duplicate channel", func(c *Config) { c.Alerts.Channels = []string{"email", "email"} }},
		{"bad timezone", func(c *Config) { c.Alerts.DayTimezone = "Mars/Olympus" }},
		{"zero cap", func(c *Config) { c.Alerts.DefaultMaxPerDay = 0 }},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Default()
			if err != nil {
				t.Fatalf("Default: %v", err)
			}
			c.Relay.BaseURL = "http://relay"
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
