package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"AlertRelay/internal/domain/models"
	"AlertRelay/internal/usecase"
	xhttp "AlertRelay/pkg/http"
	xlogger "AlertRelay/pkg/logger"
	"AlertRelay/pkg/util"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// AlertsEchoHandler exposes the alert pipeline over HTTP.
type AlertsEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.AlertPipeline
	ledger   *usecase.DeliveryLedger
	health   HealthChecker
	limit    echo.MiddlewareFunc
	now      func() time.Time
}

// HandlerOption configures AlertsEchoHandler.
type HandlerOption func(*AlertsEchoHandler)

// WithTriggerLimit guards the trigger route with mw.
func WithTriggerLimit(mw echo.MiddlewareFunc) HandlerOption {
	return func(h *AlertsEchoHandler) { h.limit = mw }
}

// WithHandlerClock overrides the time source used for "today".
func WithHandlerClock(now func() time.Time) HandlerOption {
	return func(h *AlertsEchoHandler) {
		if now != nil {
			h.now = now
		}
	}
}

func NewAlertsEchoHandler(logger *xlogger.Logger, pipeline *usecase.AlertPipeline, ledger *usecase.DeliveryLedger, health HealthChecker, opts ...HandlerOption) *AlertsEchoHandler {
	h := &AlertsEchoHandler{logger: logger, pipeline: pipeline, ledger: ledger, health: health, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AlertsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	var mws []echo.MiddlewareFunc
	if h.limit != nil {
		mws = append(mws, h.limit)
	}
	g.POST("/alerts/trigger", h.Trigger, mws...)
	g.POST("/score", h.Score)
	g.GET("/subscribers/:id/deliveries/today", h.DeliveriesToday)
}

// Trigger runs one signal change through the pipeline. The body is the raw
// pipeline summary so webhook callers can read it without unwrapping.
func (h *AlertsEchoHandler) Trigger(c echo.Context) error {
	var ev models.TriggerEvent
	if err := c.Bind(&ev); err != nil {
		return c.JSON(http.StatusBadRequest, models.AlertResponse{Success: false, Error: "invalid JSON body"})
	}

	res, err := h.pipeline.Process(c.Request().Context(), &ev)
	var (
		clientErr *usecase.ClientInputError
		fault     *usecase.InternalFault
	)
	switch {
	case errors.As(err, &clientErr):
		return c.JSON(http.StatusBadRequest, res.Response)
	case errors.As(err, &fault):
		h.logger.Error("trigger failed", xlogger.Error(err))
		return c.JSON(http.StatusInternalServerError, res.Response)
	}
	return c.JSON(http.StatusOK, res.Response)
}

// Score previews the final score for a set of sub-scores without dispatching.
func (h *AlertsEchoHandler) Score(c echo.Context) error {
	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	score := usecase.Aggregate(req.Signals)
	return xhttp.SuccessResponse(c, models.ScoreResponse{
		Score:     score,
		Strength:  usecase.StrengthFor(score),
		Threshold: usecase.AlertThreshold,
		Alertable: score >= usecase.AlertThreshold,
	})
}

// DeliveriesToday reports how many alerts a subscriber received today on a channel.
func (h *AlertsEchoHandler) DeliveriesToday(c echo.Context) error {
	req := &models.DeliveryCountRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	now := util.ParseTimeDefault(req.At, h.now())
	ch := models.Channel(req.Channel)
	n, err := h.ledger.CountSentToday(c.Request().Context(), req.SubscriberID, ch, now)
	if err != nil {
		h.logger.Error("delivery count failed",
			xlogger.String("subscriber_id", req.SubscriberID),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("delivery ledger unavailable").WithError(err))
	}
	from, to := util.DayBounds(now, h.ledger.Location())
	return xhttp.SuccessResponse(c, models.DeliveryCountResponse{
		SubscriberID: req.SubscriberID,
		Channel:      ch,
		SentToday:    n,
		WindowStart:  from,
		WindowEnd:    to,
	})
}

func (h *AlertsEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.health.Health(ctx); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("store unavailable"))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

var _ xhttp.Handler = (*AlertsEchoHandler)(nil)
