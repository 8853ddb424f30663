package scheduler

import (
	"context"
	"fmt"
	"time"

	"AlertRelay/internal/domain/models"
	applogger "AlertRelay/pkg/logger"

	"github.com/robfig/cron/v3"
)

// DigestRunner produces the daily delivery digest.
type DigestRunner interface {
	Run(ctx context.Context) ([]models.ChannelSummary, error)
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron    *cron.Cron
	digest  DigestRunner
	log     *applogger.Logger
	timeout time.Duration
}

// New creates a scheduler whose cron specs include a seconds field, evaluated in loc.
func New(digest DigestRunner, log *applogger.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		digest:  digest,
		log:     log,
		timeout: time.Minute,
	}
}

// Register adds the digest job at digestSpec.
func (s *Scheduler) Register(digestSpec string) error {
	if digestSpec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(digestSpec, s.RunDigestNow); err != nil {
		return fmt.Errorf("register digest job: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", applogger.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunDigestNow runs the digest job synchronously.
func (s *Scheduler) RunDigestNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.digest.Run(ctx); err != nil {
		s.log.Warn("digest job failed", applogger.Error(err))
	}
}
