package usecase

import (
	"context"
	"time"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
	applogger "AlertRelay/pkg/logger"
	"AlertRelay/pkg/util"
)

// DailyDigest summarizes the previous calendar day of the ledger.
type DailyDigest struct {
	ledger  *DeliveryLedger
	metrics domrepo.Metrics
	log     *applogger.Logger
	now     func() time.Time
}

func NewDailyDigest(ledger *DeliveryLedger, metrics domrepo.Metrics, log *applogger.Logger) *DailyDigest {
	return &DailyDigest{ledger: ledger, metrics: metrics, log: log, now: time.Now}
}

// Run summarizes the day before now, exports it as metrics and logs it.
func (d *DailyDigest) Run(ctx context.Context) ([]models.ChannelSummary, error) {
	day, _ := util.PreviousDay(d.now(), d.ledger.Location())
	summary, err := d.ledger.SummarizeDay(ctx, day)
	if err != nil {
		d.metrics.RecordError("digest")
		d.log.Error("daily digest failed", applogger.Error(err))
		return nil, err
	}
	for _, s := range summary {
		d.metrics.RecordDigest(s)
		d.log.Info("daily delivery digest",
			applogger.String("day", day.Format("2006-01-02")),
			applogger.String("channel", string(s.Channel)),
			applogger.Int("sent", s.Sent),
			applogger.Int("failed", s.Failed),
		)
	}
	return summary, nil
}
