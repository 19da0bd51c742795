package usecase

import (
	"context"
	"encoding/json"
	"time"

	"MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	"MarketLens/internal/service/cache"
	pkgkafka "MarketLens/pkg/kafka"
	applogger "MarketLens/pkg/logger"
	pkgmetrics "MarketLens/pkg/metrics"
)

// RefreshHandler consumes refresh events from peers and drops the local
// cache entries derived from stored series.
type RefreshHandler struct {
	topic   string
	origin  string
	cache   *cache.ResponseCache
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewRefreshHandler(topic, origin string, rc *cache.ResponseCache, metrics domrepo.Metrics, logger *applogger.Logger) *RefreshHandler {
	if metrics == nil {
		metrics = pkgmetrics.Noop{}
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	return &RefreshHandler{topic: topic, origin: origin, cache: rc, metrics: metrics, logger: logger}
}

func (h *RefreshHandler) Topic() string { return h.topic }

func (h *RefreshHandler) Handle(ctx context.Context, b []byte) error {
	var m models.RefreshMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Type != models.EventSeriesRefreshed || (h.origin != "" && m.Origin == h.origin) {
		return nil
	}
	if !m.Event.At.IsZero() {
		h.metrics.RecordLatency("refresh_propagation", time.Since(m.Event.At).Seconds())
	}

	cleared := 0
	for _, op := range cache.SeriesDerived {
		cleared += h.cache.Clear(ctx, op)
	}
	h.logger.Debug("cache invalidated by refresh",
		applogger.Symbol(m.Event.Symbol),
		applogger.String("run_id", pkgkafka.TraceID(ctx)),
		applogger.Int("cleared", cleared))
	return nil
}

var _ pkgkafka.MessageHandler = (*RefreshHandler)(nil)
