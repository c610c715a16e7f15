package api

import (
	"context"
	"net/http"

	"StockPull/internal/domain/models"
	xhttp "StockPull/pkg/http"
	xlogger "StockPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Enricher is the use case surface served over HTTP.
type Enricher interface {
	FetchAll(ctx context.Context, tickers []string) []models.Quote
	Verify(candidates []models.Candidate) []models.Candidate
	Enrich(ctx context.Context, batch *models.CandidateBatch) *models.EnrichmentResult
}

// Health reports readiness facts for /healthz.
type Health struct {
	Configured bool              `json:"configured"`
	Components map[string]string `json:"components,omitempty"`
}

// EnrichEchoHandler exposes the quote pipeline over Echo.
type EnrichEchoHandler struct {
	logger   *xlogger.Logger
	enricher Enricher
	health   func() Health
}

func NewEnrichEchoHandler(logger *xlogger.Logger, enricher Enricher, health func() Health) *EnrichEchoHandler {
	return &EnrichEchoHandler{logger: logger.Named("api"), enricher: enricher, health: health}
}

func (h *EnrichEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api")
	g.POST("/quotes", h.Quotes)
	g.POST("/candidates/verify", h.VerifyCandidates)
	g.POST("/enrich", h.Enrich)
}

// Quotes returns one quote per requested ticker in request order.
func (h *EnrichEchoHandler) Quotes(c echo.Context) error {
	req := &models.QuotesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	quotes := h.enricher.FetchAll(c.Request().Context(), req.Tickers)
	return xhttp.SuccessResponse(c, quotes)
}

func (h *EnrichEchoHandler) VerifyCandidates(c echo.Context) error {
	req := &models.VerifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	return xhttp.SuccessResponse(c, h.enricher.Verify(models.CandidatesFromRaw(req.Candidates)))
}

func (h *EnrichEchoHandler) Enrich(c echo.Context) error {
	req := &models.EnrichRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.RequestID == "" {
		req.RequestID = c.Request().Header.Get(echo.HeaderXRequestID)
	}

	res := h.enricher.Enrich(c.Request().Context(), req.Batch())
	h.logger.Debug("enriched over http",
		xlogger.String("id", res.ID),
		xlogger.Int("candidates", len(res.Candidates)),
	)
	return xhttp.SuccessResponse(c, res)
}

func (h *EnrichEchoHandler) Healthz(c echo.Context) error {
	st := Health{Configured: true}
	if h.health != nil {
		st = h.health()
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, st)
}
