package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AlertRelay/internal/service/ratelimit"
	"AlertRelay/internal/service/scheduler"
	"AlertRelay/pkg/config"
	xhttp "AlertRelay/pkg/http"
	pkgkafka "AlertRelay/pkg/kafka"
	applogger "AlertRelay/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	scheduler  *scheduler.Scheduler
	limiter    *ratelimit.Limiter
	closers    []io.Closer
	stopPrune  chan struct{}
}

// Option configures App.
type Option func(*App)

// WithConsumer runs consumer with kh registered. A nil consumer is ignored.
func WithConsumer(consumer *pkgkafka.Consumer, kh pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if consumer != nil {
			a.consumer = consumer
			a.kh = kh
		}
	}
}

// WithScheduler runs periodic jobs.
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(a *App) { a.scheduler = s }
}

// WithLimiter prunes idle rate-limit buckets while the app runs.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(a *App) { a.limiter = l }
}

// WithClosers closes the given resources, in order, on shutdown.
func WithClosers(closers ...io.Closer) Option {
	return func(a *App) { a.closers = append(a.closers, closers...) }
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, opts ...Option) *App {
	a := &App{cfg: cfg, log: l, httpServer: srv, stopPrune: make(chan struct{})}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start launches the HTTP server, the consumer and the scheduler.
func (a *App) Start() error {
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	if a.limiter != nil {
		go a.pruneLimiter(time.Minute)
	}

	return a.httpServer.Start()
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		a.log.Error("app start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()
	return a.Shutdown(ctx)
}

// Shutdown stops intake first, then drains in-flight work and closes resources.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	close(a.stopPrune)

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Warn("scheduler stop error", applogger.Error(err))
		}
	}

	for _, c := range a.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

func (a *App) pruneLimiter(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-a.stopPrune:
			return
		case <-t.C:
			if n := a.limiter.Prune(); n > 0 {
				a.log.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
		}
	}
}
