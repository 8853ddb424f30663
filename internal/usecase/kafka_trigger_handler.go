package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"AlertRelay/internal/domain/models"
	domrepo "AlertRelay/internal/domain/repository"
	pkgkafka "AlertRelay/pkg/kafka"
	applogger "AlertRelay/pkg/logger"
)

// KafkaTriggerHandler feeds signal change events from Kafka into the pipeline.
// Well-formed outcomes, including unprocessable records, are acknowledged.
// Malformed events and internal faults return an error so the consumer
// dead-letters them.
type KafkaTriggerHandler struct {
	topic    string
	pipeline *AlertPipeline
	metrics  domrepo.Metrics
	log      *applogger.Logger
}

func NewKafkaTriggerHandler(topic string, pipeline *AlertPipeline, metrics domrepo.Metrics, log *applogger.Logger) *KafkaTriggerHandler {
	return &KafkaTriggerHandler{topic: topic, pipeline: pipeline, metrics: metrics, log: log}
}

func (h *KafkaTriggerHandler) Topic() string { return h.topic }

func (h *KafkaTriggerHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.TriggerEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return &ClientInputError{Reason: fmt.Sprintf("decode event: %v", err)}
	}

	res, err := h.pipeline.Process(ctx, &ev)
	var shape *DataShapeError
	switch {
	case err == nil:
	case errors.As(err, &shape):
		return nil
	default:
		return err
	}

	h.log.Debug("trigger event handled",
		applogger.String("request_id", pkgkafka.RequestID(ctx)),
		applogger.String("state", string(res.State)),
		applogger.Bool("processed", res.Response.Processed),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTriggerHandler)(nil)
