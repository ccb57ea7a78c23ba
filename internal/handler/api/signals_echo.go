package api

import (
	"context"
	"errors"
	"net/http"

	"SignalEngine/internal/domain/models"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/usecase"
	xhttp "SignalEngine/pkg/http"
	"SignalEngine/pkg/http/middleware"
	xlogger "SignalEngine/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalService is what the HTTP layer needs from the evaluator use case.
type SignalService interface {
	Evaluate(ctx context.Context, symbol, family string, raw models.RawSnapshot) (*models.SignalResult, error)
	EvaluateBatch(ctx context.Context, family string, items []models.BatchItem) ([]models.BatchResult, error)
	History(ctx context.Context, req models.HistoryRequest) ([]*models.SignalResult, error)
	Families() []models.FamilyConfig
}

// SignalsEchoHandler serves the /api/signals routes.
type SignalsEchoHandler struct {
	logger  *xlogger.Logger
	svc     SignalService
	limiter middleware.Allower
}

// NewSignalsEchoHandler wires the handler. A nil limiter disables rate
// limiting.
func NewSignalsEchoHandler(logger *xlogger.Logger, svc SignalService, limiter middleware.Allower) *SignalsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SignalsEchoHandler{logger: logger.Component("signals_api"), svc: svc, limiter: limiter}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/signals")
	if h.limiter != nil {
		g.Use(middleware.RateLimit(h.limiter, nil))
	}
	g.POST("/evaluate", h.Evaluate)
	g.POST("/batch", h.EvaluateBatch)
	g.GET("/families", h.Families)
	g.GET("/history", h.History)
}

func (h *SignalsEchoHandler) Evaluate(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.Evaluate(c.Request().Context(), req.Symbol, req.Family, req.Snapshot)
	if err != nil {
		return h.fail(c, "evaluate", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) EvaluateBatch(c echo.Context) error {
	req := &models.BatchEvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.EvaluateBatch(c.Request().Context(), req.Family, req.Items)
	if err != nil {
		return h.fail(c, "batch", err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *SignalsEchoHandler) Families(c echo.Context) error {
	fams := h.svc.Families()
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return xhttp.ListResponse(c, fams, int64(len(fams)))
}

func (h *SignalsEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.svc.History(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// fail maps use case errors onto the response envelope.
func (h *SignalsEchoHandler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, domsvc.ErrUnknownFamily):
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_UNKNOWN_FAMILY", "family", "unknown signal family", http.StatusBadRequest).WithError(err))
	case errors.Is(err, usecase.ErrHistoryUnavailable):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("signal history is not enabled").WithError(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op+" aborted", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("request aborted").WithError(err))
	}
	h.logger.Error(op+" usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
