package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		TriggerRPS      float64       `yaml:"trigger_rps" default:"20"`
		TriggerBurst    int           `yaml:"trigger_burst" default:"40"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Alerts struct {
		SignalsTable      string        `yaml:"signals_table" default:"trading_signals"`
		Channels          []string      `yaml:"channels" default:"[\"email\",\"chat\"]"`
		ActiveStatuses    []string      `yaml:"active_statuses" default:"[\"active\",\"trial\"]"`
		DefaultMaxPerDay  int           `yaml:"default_max_per_day" default:"10"`
		DayTimezone       string        `yaml:"day_timezone" default:"UTC"`
		LookupConcurrency int           `yaml:"lookup_concurrency" default:"8"`
		StoreTimeout      time.Duration `yaml:"store_timeout" default:"5s"`
		DedupeTTL         time.Duration `yaml:"dedupe_ttl" default:"24h"`
		MarketTimezone    string        `yaml:"market_timezone" default:"America/New_York"`
		AlertType         string        `yaml:"alert_type" default:"trading_signal"`
	} `yaml:"alerts"`
	Store struct {
		Driver           string        `yaml:"driver" default:"sqlite"` // clickhouse | sqlite
		Path             string        `yaml:"path" default:"data/alerts.db"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"alerts"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"store"`
	Relay struct {
		BaseURL   string            `yaml:"base_url"`
		Endpoints map[string]string `yaml:"endpoints" default:"{\"email\":\"/send-email-alert\",\"chat\":\"/send-chat-alert\"}"`
		Token     string            `yaml:"token"`
		Timeout   time.Duration     `yaml:"timeout" default:"10s"`
	} `yaml:"relay"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		TriggerTopic string   `yaml:"trigger_topic" default:"signals.changes"`
		EventsTopic  string   `yaml:"events_topic" default:"alerts.deliveries"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"alert-relay"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"signals.changes.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"alertrelay"`
	} `yaml:"redis"`
	Scheduler struct {
		DigestCron string `yaml:"digest_cron" default:"0 5 0 * * *"`
	} `yaml:"scheduler"`
}

// deliveryChannels are the channels subscribers have a destination column for.
var deliveryChannels = map[string]bool{"email": true, "chat": true}

// Default returns a Config populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML configuration file on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes YAML bytes on top of the defaults. It does not validate.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("RELAY_BASE_URL"); v != "" {
		c.Relay.BaseURL = v
	}
	if v := os.Getenv("RELAY_TOKEN"); v != "" {
		c.Relay.Token = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("STORE_PASSWORD"); v != "" {
		c.Store.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
		c.Redis.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	case "clickhouse":
		if c.Store.Host == "" {
			return fmt.Errorf("store.host is required for clickhouse")
		}
	default:
		return fmt.Errorf("store.driver must be 'clickhouse' or 'sqlite', got '%s'", c.Store.Driver)
	}
	if c.Relay.BaseURL == "" {
		return fmt.Errorf("relay.base_url is required")
	}
	if len(c.Alerts.Channels) == 0 {
		return fmt.Errorf("alerts.channels cannot be empty")
	}
	seen := make(map[string]bool, len(c.Alerts.Channels))
	for _, ch := range c.Alerts.Channels {
		if !deliveryChannels[ch] {
			return fmt.Errorf("alerts.channels: unknown channel '%s' (want email or chat)", ch)
		}
		if seen[ch] {
			return fmt.Errorf("alerts.channels: channel '%s' listed twice", ch)
		}
		seen[ch] = true
		if _, ok := c.Relay.Endpoints[ch]; !ok {
			return fmt.Errorf("relay.endpoints has no entry for channel '%s'", ch)
		}
	}
	if len(c.Alerts.ActiveStatuses) == 0 {
		return fmt.Errorf("alerts.active_statuses cannot be empty")
	}
	if c.Alerts.DefaultMaxPerDay <= 0 {
		return fmt.Errorf("alerts.default_max_per_day must be positive")
	}
	if _, err := time.LoadLocation(c.Alerts.DayTimezone); err != nil {
		return fmt.Errorf("alerts.day_timezone: %w", err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
