package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	"MarketLens/internal/service/cache"
	"MarketLens/internal/service/metrics"
	"MarketLens/internal/service/ratelimit"
	"MarketLens/internal/usecase"
	xhttp "MarketLens/pkg/http"
	xlogger "MarketLens/pkg/logger"
	"MarketLens/pkg/queue"

	"github.com/labstack/echo/v4"
)

const ServiceName = "marketlens"

// AnalyticsHandler exposes the analytics and collect use cases over HTTP.
type AnalyticsHandler struct {
	logger    *xlogger.Logger
	analytics *usecase.AnalyticsUseCase
	collect   *usecase.CollectUseCase
	cache     *cache.ResponseCache
	store     domrepo.SeriesStore
	queue     queue.Publisher
	rl        *ratelimit.Limiter
}

func NewAnalyticsHandler(logger *xlogger.Logger, analytics *usecase.AnalyticsUseCase, collect *usecase.CollectUseCase, rc *cache.ResponseCache, store domrepo.SeriesStore) *AnalyticsHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &AnalyticsHandler{logger: logger, analytics: analytics, collect: collect, cache: rc, store: store}
}

// SetQueue makes POST /api/collect enqueue instead of running inline.
func (h *AnalyticsHandler) SetQueue(q queue.Publisher) { h.queue = q }

// SetLimiter rate limits the /api group.
func (h *AnalyticsHandler) SetLimiter(rl *ratelimit.Limiter) { h.rl = rl }

func (h *AnalyticsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api", RateLimit(h.rl))
	g.GET("/companies", h.ListCompanies, observe("companies"))
	g.GET("/companies/:symbol", h.GetCompany, observe("company"))
	g.GET("/data/compare", h.Compare, observe("compare"))
	g.GET("/data/summary/:symbol", h.GetSummary, observe("summary"))
	g.GET("/data/:symbol", h.GetSeries, observe("series"))
	g.GET("/insights", h.GetInsights, observe("insights"))
	g.GET("/insights/predict/:symbol", h.Predict, observe("predict"))
	g.POST("/collect", h.Collect, observe("collect"))
	g.GET("/collect/queue", h.QueueStats, observe("collect_queue"))
	g.DELETE("/cache", h.ClearCache, observe("cache_clear"))
}

func (h *AnalyticsHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	body := map[string]string{"status": "healthy", "service": ServiceName}
	if err := h.store.Health(ctx); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		body["status"] = "unhealthy"
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, body)
	}
	return xhttp.SuccessResponse(c, body)
}

func (h *AnalyticsHandler) ListCompanies(c echo.Context) error {
	req := &models.CompaniesRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analytics.ListCompanies(c.Request().Context(), req.Skip, req.Limit)
	if err != nil {
		return h.fail(c, "companies", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsHandler) GetCompany(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analytics.GetCompany(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "company", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsHandler) GetSeries(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analytics.GetSeries(c.Request().Context(), req.Symbol, req.Days)
	if err != nil {
		return h.fail(c, "series", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsHandler) GetSummary(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analytics.GetSummary(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "summary", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsHandler) Compare(c echo.Context) error {
	req := &models.CompareRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analytics.Compare(c.Request().Context(), req.Symbol1, req.Symbol2, req.Days)
	if err != nil {
		return h.fail(c, "compare", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsHandler) GetInsights(c echo.Context) error {
	req := &models.InsightsRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analytics.GetInsights(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "insights", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsHandler) Predict(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analytics.Predict(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "predict", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Collect enqueues a run when a queue is wired and otherwise runs it inline.
func (h *AnalyticsHandler) Collect(c echo.Context) error {
	req := &models.CollectRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	job := usecase.CollectRequest{Period: req.Period, AllowFallback: !req.NoMock}
	if req.Symbol != "" {
		job.Symbols = []string{req.Symbol}
	}

	if h.queue != nil {
		if err := h.queue.Enqueue(c.Request().Context(), usecase.JobTypeCollect, job); err != nil {
			return h.fail(c, "collect", xhttp.ServiceUnavailableError("Collect queue unavailable").WithError(err))
		}
		return xhttp.DataResponse(c, http.StatusAccepted, map[string]any{"queued": true, "request": job})
	}

	report, err := h.collect.CollectAndStore(c.Request().Context(), job.Symbols, job.Period, job.AllowFallback)
	if err != nil {
		return h.fail(c, "collect", err)
	}
	return xhttp.SuccessResponse(c, report)
}

// queueDepth is implemented by queues that report their backlog.
type queueDepth interface {
	Stats(ctx context.Context) (queue.Stats, error)
}

// QueueStats reports the collect queue backlog.
func (h *AnalyticsHandler) QueueStats(c echo.Context) error {
	q, ok := h.queue.(queueDepth)
	if !ok {
		return h.fail(c, "collect_queue", xhttp.NotFoundError("Collect queue disabled"))
	}
	stats, err := q.Stats(c.Request().Context())
	if err != nil {
		return h.fail(c, "collect_queue", xhttp.ServiceUnavailableError("Collect queue unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, stats)
}

func (h *AnalyticsHandler) ClearCache(c echo.Context) error {
	req := &models.CacheClearRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	n := h.cache.Clear(c.Request().Context(), req.Prefix)
	h.logger.Info("cache cleared", xlogger.String("prefix", req.Prefix), xlogger.Int("entries", n))
	return xhttp.SuccessResponse(c, map[string]any{"prefix": req.Prefix, "cleared": n})
}

func (h *AnalyticsHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(op, err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.String("path", c.Path()), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps domain errors onto HTTP statuses.
func toAppError(op string, err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError(notFoundMessage(op)).WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.InternalError("Failed to generate prediction").WithError(err)
	case errors.Is(err, models.ErrDataUnavailable):
		return xhttp.ServiceUnavailableError("Market data unavailable").WithError(err)
	case errors.Is(err, usecase.ErrCollectRunning):
		return xhttp.ConflictError("Collection already running").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("Request timed out").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

func notFoundMessage(op string) string {
	switch op {
	case "company":
		return "Company not found"
	case "summary":
		return "Summary not found"
	case "compare":
		return "Data not found for one or both symbols"
	default:
		return "No data found for symbol"
	}
}
