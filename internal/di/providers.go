package di

import (
	"context"
	"fmt"
	"time"

	"AlertRelay/internal/domain/models"
	"AlertRelay/internal/domain/repository"
	"AlertRelay/internal/handler/api"
	internalrepo "AlertRelay/internal/repository"
	"AlertRelay/internal/service/market"
	"AlertRelay/internal/service/ratelimit"
	"AlertRelay/internal/service/relay"
	"AlertRelay/internal/service/scheduler"
	"AlertRelay/internal/usecase"
	"AlertRelay/pkg/cache"
	"AlertRelay/pkg/config"
	pkgdb "AlertRelay/pkg/database"
	xhttp "AlertRelay/pkg/http"
	pkgkafka "AlertRelay/pkg/kafka"
	applogger "AlertRelay/pkg/logger"
	"AlertRelay/pkg/metrics"
	"AlertRelay/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideDatabase opens the configured SQL store and applies its schema.
func ProvideDatabase(cfg *config.Config) (*pkgdb.Client, error) {
	s := cfg.Store
	client, err := pkgdb.NewClient(
		pkgdb.WithDriver(s.Driver),
		pkgdb.WithPath(s.Path),
		pkgdb.WithHost(s.Host, s.Port),
		pkgdb.WithDatabase(s.Database),
		pkgdb.WithCredentials(s.User, s.Password),
		pkgdb.WithMaxConnections(10, 5),
		pkgdb.WithHTTP(s.UseHTTP),
		pkgdb.WithAsyncInsert(s.AsyncInsert, s.WaitForAsync),
		pkgdb.WithTimeouts(s.DialTimeout, s.ReadTimeout),
		pkgdb.WithMaxExecutionTime(s.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", s.Driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SchemaFor(client.Driver())); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s schema: %w", s.Driver, err)
	}
	return client, nil
}

// ProvideSubscriberStore creates the SQL subscriber store.
func ProvideSubscriberStore(db *pkgdb.Client, l *applogger.Logger) repository.SubscriberStore {
	return internalrepo.NewSQLSubscriberStore(db, l)
}

// ProvideLedgerStore creates the SQL delivery log store.
func ProvideLedgerStore(db *pkgdb.Client, l *applogger.Logger) repository.LedgerStore {
	return internalrepo.NewSQLLedgerStore(db, l)
}

// ProvideDayLocation resolves the zone that defines a delivery day.
func ProvideDayLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Alerts.DayTimezone)
	if err != nil {
		return nil, fmt.Errorf("day timezone: %w", err)
	}
	return loc, nil
}

// ProvideDeliveryLedger creates the ledger use case.
func ProvideDeliveryLedger(store repository.LedgerStore, m repository.Metrics, l *applogger.Logger, loc *time.Location, cfg *config.Config) *usecase.DeliveryLedger {
	return usecase.NewDeliveryLedger(store, m, l.With(applogger.String("component", "ledger")), loc, cfg.Alerts.StoreTimeout)
}

// ProvideEligibilityFilter creates the eligibility use case.
func ProvideEligibilityFilter(store repository.SubscriberStore, ledger *usecase.DeliveryLedger, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.EligibilityFilter {
	return usecase.NewEligibilityFilter(store, ledger, m, l.With(applogger.String("component", "eligibility")),
		usecase.WithActiveStatuses(cfg.Alerts.ActiveStatuses...),
		usecase.WithDefaultDailyCap(cfg.Alerts.DefaultMaxPerDay),
		usecase.WithLookupConcurrency(cfg.Alerts.LookupConcurrency),
		usecase.WithStoreTimeout(cfg.Alerts.StoreTimeout),
	)
}

// ProvideMarketClock creates the market session classifier.
func ProvideMarketClock(cfg *config.Config) (repository.MarketClock, error) {
	clock, err := market.NewClockFor(cfg.Alerts.MarketTimezone)
	if err != nil {
		return nil, fmt.Errorf("market clock: %w", err)
	}
	return clock, nil
}

// ProvideRelay creates the relay HTTP client.
func ProvideRelay(cfg *config.Config) repository.Relay {
	var opts []relay.Option
	if cfg.Relay.Token != "" {
		opts = append(opts, relay.WithToken(cfg.Relay.Token))
	}
	return relay.NewClient(cfg.Relay.BaseURL, cfg.Relay.Endpoints, cfg.Relay.Timeout, opts...)
}

// ProvideDispatcher creates the dispatch use case.
func ProvideDispatcher(r repository.Relay, clock repository.MarketClock, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.DeliveryDispatcher {
	return usecase.NewDeliveryDispatcher(r, clock, m, l.With(applogger.String("component", "dispatcher")), cfg.Alerts.AlertType)
}

// ProvideLocker returns a Redis locker when Redis is enabled, otherwise an
// in-process one.
func ProvideLocker(cfg *config.Config, l *applogger.Logger) (cache.Locker, error) {
	if !cfg.Redis.Enabled {
		l.Info("redis disabled, using in-memory dedupe locks")
		return cache.NewMemoryLocker(cache.WithMemoryCleanup(time.Minute)), nil
	}
	locker, err := cache.NewRedisLocker(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis locker: %w", err)
	}
	return locker, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes delivery events to Kafka when a producer exists.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
}

// ProvidePipeline creates the alert pipeline.
func ProvidePipeline(
	cfg *config.Config,
	filter *usecase.EligibilityFilter,
	dispatcher *usecase.DeliveryDispatcher,
	ledger *usecase.DeliveryLedger,
	m repository.Metrics,
	l *applogger.Logger,
	locker cache.Locker,
	events repository.EventPublisher,
) *usecase.AlertPipeline {
	channels := make([]models.Channel, 0, len(cfg.Alerts.Channels))
	for _, ch := range cfg.Alerts.Channels {
		channels = append(channels, models.Channel(ch))
	}
	return usecase.NewAlertPipeline(
		usecase.PipelineConfig{
			SignalsTable: cfg.Alerts.SignalsTable,
			Channels:     channels,
			DedupeTTL:    cfg.Alerts.DedupeTTL,
		},
		filter, dispatcher, ledger, m,
		l.With(applogger.String("component", "pipeline")),
		usecase.WithDedupe(locker),
		usecase.WithEventPublisher(events),
	)
}

// ProvideRateLimiter creates the per-client trigger limiter.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.TriggerRPS, cfg.Server.TriggerBurst)
}

// ProvideAlertsHandler creates the HTTP handler.
func ProvideAlertsHandler(l *applogger.Logger, p *usecase.AlertPipeline, ledger *usecase.DeliveryLedger, store repository.LedgerStore, limiter *ratelimit.Limiter) *api.AlertsEchoHandler {
	return api.NewAlertsEchoHandler(l, p, ledger, store, api.WithTriggerLimit(limiter.Middleware()))
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.AlertsEchoHandler) *xhttp.Server {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, []xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(path),
	)
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(l.With(applogger.String("component", "kafka_consumer")),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaTriggerHandler feeds the trigger topic into the pipeline.
func ProvideKafkaTriggerHandler(cfg *config.Config, p *usecase.AlertPipeline, m repository.Metrics, l *applogger.Logger) *usecase.KafkaTriggerHandler {
	return usecase.NewKafkaTriggerHandler(cfg.Kafka.TriggerTopic, p, m, l)
}

// ProvideDigest creates the daily digest job.
func ProvideDigest(ledger *usecase.DeliveryLedger, m repository.Metrics, l *applogger.Logger) *usecase.DailyDigest {
	return usecase.NewDailyDigest(ledger, m, l.With(applogger.String("component", "digest")))
}

// ProvideScheduler creates the cron scheduler with the digest job registered.
func ProvideScheduler(cfg *config.Config, digest *usecase.DailyDigest, loc *time.Location, l *applogger.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.New(digest, l.With(applogger.String("component", "scheduler")), loc)
	if err := s.Register(cfg.Scheduler.DigestCron); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTriggerHandler,
	sched *scheduler.Scheduler,
	db *pkgdb.Client,
	locker cache.Locker,
	events repository.EventPublisher,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, l, srv,
		server.WithConsumer(consumer, kh),
		server.WithScheduler(sched),
		server.WithLimiter(limiter),
		server.WithClosers(events, locker, db),
	)
}
