package api

import (
	"encoding/json"
	"time"

	models "TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	icache "TradePulse/internal/service/cache"
	"TradePulse/internal/service/metrics"
	"TradePulse/internal/service/ratelimit"
	"TradePulse/internal/usecase"
	xhttp "TradePulse/pkg/http"
	xlogger "TradePulse/pkg/logger"
	"TradePulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// EvaluationHandler exposes the evaluation engine over HTTP. Evaluate runs
// the full pipeline; the read endpoints serve stored signals and decisions
// with a short response cache.
type EvaluationHandler struct {
	logger   *xlogger.Logger
	evaluate *usecase.EvaluateUseCase
	signals  *usecase.SignalsUseCase
	store    domrepo.SignalStore
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
}

var _ xhttp.Handler = (*EvaluationHandler)(nil)

func NewEvaluationHandler(logger *xlogger.Logger, evaluate *usecase.EvaluateUseCase, signals *usecase.SignalsUseCase, store domrepo.SignalStore) *EvaluationHandler {
	metrics.Register()
	return &EvaluationHandler{
		logger:   logger,
		evaluate: evaluate,
		signals:  signals,
		store:    store,
		rl:       ratelimit.New(),
	}
}

// SetCache enables response caching for the read endpoints.
func (h *EvaluationHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *EvaluationHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/evaluate", h.Evaluate)
	g.GET("/evaluate", h.Evaluate)
	g.GET("/signals/pending", h.PendingSignals)
	g.GET("/decisions", h.Decisions)
	e.GET("/healthz", h.Healthz)
}

func (h *EvaluationHandler) Evaluate(c echo.Context) error {
	start := time.Now()
	endpoint := "evaluate"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":evaluate", 5, 2) {
		h.logger.Warn("evaluate rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("rate_limited", "", "too many requests", 429))
	}

	decision, err := h.evaluate.Evaluate(c.Request().Context(), usecase.EvaluateParams{
		Symbol:     req.Symbol,
		Direction:  models.Direction(req.Direction),
		Context:    models.EvalContext(req.Context),
		EntryPrice: req.EntryPrice,
		MarkPrice:  req.MarkPrice,
		Size:       req.Size,
		Leverage:   req.Leverage,
	})
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("evaluate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, decision)
}

func (h *EvaluationHandler) PendingSignals(c echo.Context) error {
	start := time.Now()
	endpoint := "pending_signals"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.PendingSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	signals, err := h.signals.GetPending(c.Request().Context(), req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("pending signals usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, signals, int64(len(signals)))
}

func (h *EvaluationHandler) Decisions(c echo.Context) error {
	start := time.Now()
	endpoint := "decisions"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.DecisionHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	since := util.ParseTimeDefault(req.Since, time.Time{})

	cacheKey := "decisions:" + req.Symbol + ":" + req.Since
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
			h.logger.Warn("decisions cache_get_error", xlogger.Error(err))
		} else if ok {
			var cached []*models.Decision
			if json.Unmarshal(b, &cached) == nil {
				return xhttp.ListResponse(c, cached, int64(len(cached)))
			}
		}
	}

	decisions, err := h.signals.DecisionHistory(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("decision history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if !since.IsZero() {
		kept := decisions[:0]
		for _, d := range decisions {
			if !d.Timestamp.Before(since) {
				kept = append(kept, d)
			}
		}
		decisions = kept
	}
	if h.cache != nil {
		if b, err := json.Marshal(decisions); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, 15*time.Second); err != nil {
				h.logger.Warn("decisions cache_set_error", xlogger.Error(err))
			}
		}
	}
	return xhttp.ListResponse(c, decisions, int64(len(decisions)))
}

func (h *EvaluationHandler) Healthz(c echo.Context) error {
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			h.logger.Warn("healthz store unhealthy", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("store unhealthy"))
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
