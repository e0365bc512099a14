package api

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	models "Warboard/internal/domain/models"
	domrepo "Warboard/internal/domain/repository"
	"Warboard/internal/fetch"
	"Warboard/internal/source"
	"Warboard/pkg/config"
	xhttp "Warboard/pkg/http"
	xlogger "Warboard/pkg/logger"
)

// DashboardHandler serves the aggregated widget endpoints. Every
// endpoint is best effort: a failing upstream yields the last good data
// or an empty payload, never a 5xx, with the status endpoint carrying
// the diagnostics.
type DashboardHandler struct {
	cfg     *config.Config
	logger  *xlogger.Logger
	sources *source.Set
	status  *fetch.Registry
	archive domrepo.QuoteArchive
}

// NewDashboardHandler creates the dashboard handler. archive may be nil
// when ClickHouse is disabled.
func NewDashboardHandler(cfg *config.Config, logger *xlogger.Logger, sources *source.Set, status *fetch.Registry, archive domrepo.QuoteArchive) *DashboardHandler {
	return &DashboardHandler{cfg: cfg, logger: logger, sources: sources, status: status, archive: archive}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/quotes", h.Quotes)
	g.GET("/quotes/history", h.QuoteHistory)
	g.GET("/crypto/markets", h.CryptoMarkets)
	g.GET("/crypto/global", h.CryptoGlobal)
	g.GET("/fng", h.FearGreed)
	g.GET("/markets", h.PredictionMarkets)
	g.GET("/news", h.News)
	g.GET("/conflicts", h.Conflicts)
	g.GET("/fires", h.Fires)
	g.GET("/vessels", h.Vessels)
	g.GET("/aircraft", h.Aircraft)
	g.GET("/cves", h.Cves)
	g.GET("/status", h.Status)
}

func (h *DashboardHandler) Quotes(c echo.Context) error {
	if !h.cfg.Sources.Yahoo.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("quotes source disabled"))
	}

	req := &models.QuotesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var symbols []string
	if req.Symbols != "" {
		symbols = strings.Split(req.Symbols, ",")
	}

	quotes, _ := h.sources.Yahoo.Quotes(c.Request().Context(), symbols)
	if quotes == nil {
		quotes = map[string]*models.Quote{}
	}
	return xhttp.SuccessResponse(c, quotes)
}

func (h *DashboardHandler) QuoteHistory(c echo.Context) error {
	if h.archive == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("quote history requires the archive backend"))
	}

	req := &models.QuoteHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	from := xhttp.ParseTimeDefault(req.From, to.Add(-24*time.Hour))

	points, err := h.archive.Query(c.Request().Context(), req.Symbol, from, to, req.N)
	if err != nil {
		h.logger.Error("quote history query", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("history query failed"))
	}
	return xhttp.ListResponse(c, points, int64(len(points)))
}

func (h *DashboardHandler) CryptoMarkets(c echo.Context) error {
	if !h.cfg.Sources.Coingecko.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("crypto source disabled"))
	}

	req := &models.CoinMarketsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	coins, _ := h.sources.CoinGecko.Markets(c.Request().Context(), req.Limit)
	return xhttp.ListResponse(c, emptySlice(coins), int64(len(coins)))
}

func (h *DashboardHandler) CryptoGlobal(c echo.Context) error {
	if !h.cfg.Sources.Coingecko.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("crypto source disabled"))
	}

	global, ok := h.sources.CoinGecko.Global(c.Request().Context())
	if !ok {
		return xhttp.SuccessResponse(c, struct{}{})
	}
	return xhttp.SuccessResponse(c, global)
}

func (h *DashboardHandler) FearGreed(c echo.Context) error {
	if !h.cfg.Sources.FearGreed.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("fear & greed source disabled"))
	}

	fng, ok := h.sources.FearGreed.Current(c.Request().Context())
	if !ok {
		return xhttp.SuccessResponse(c, struct{}{})
	}
	return xhttp.SuccessResponse(c, fng)
}

func (h *DashboardHandler) PredictionMarkets(c echo.Context) error {
	if !h.cfg.Sources.Polymarket.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("prediction markets source disabled"))
	}

	req := &models.MarketsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	markets, _ := h.sources.Polymarket.Markets(c.Request().Context(), req.Limit)
	return xhttp.ListResponse(c, emptySlice(markets), int64(len(markets)))
}

func (h *DashboardHandler) News(c echo.Context) error {
	if !h.cfg.Sources.RSS.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("news source disabled"))
	}

	items, _ := h.sources.RSS.Headlines(c.Request().Context())
	return xhttp.ListResponse(c, emptySlice(items), int64(len(items)))
}

func (h *DashboardHandler) Conflicts(c echo.Context) error {
	if !h.cfg.Sources.GDELT.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("conflict feed disabled"))
	}

	events, _ := h.sources.GDELT.Events(c.Request().Context())
	return xhttp.ListResponse(c, emptySlice(events), int64(len(events)))
}

func (h *DashboardHandler) Fires(c echo.Context) error {
	if !h.cfg.Sources.Firms.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("fire hotspot source disabled"))
	}

	area := c.QueryParam("area")
	if area == "" {
		area = "world"
	}

	hotspots, _ := h.sources.Firms.Hotspots(c.Request().Context(), area)
	return xhttp.ListResponse(c, emptySlice(hotspots), int64(len(hotspots)))
}

func (h *DashboardHandler) Vessels(c echo.Context) error {
	if !h.cfg.Sources.AIS.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("vessel source disabled"))
	}

	vessels, _ := h.sources.AIS.Vessels(c.Request().Context())
	return xhttp.ListResponse(c, emptySlice(vessels), int64(len(vessels)))
}

func (h *DashboardHandler) Aircraft(c echo.Context) error {
	if !h.cfg.Sources.OpenSky.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("aircraft source disabled"))
	}

	aircraft, _ := h.sources.OpenSky.Aircraft(c.Request().Context())
	return xhttp.ListResponse(c, emptySlice(aircraft), int64(len(aircraft)))
}

func (h *DashboardHandler) Cves(c echo.Context) error {
	if !h.cfg.Sources.Circl.Enabled {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("cve source disabled"))
	}

	req := &models.CvesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cves, _ := h.sources.Circl.Latest(c.Request().Context(), req.Limit)
	return xhttp.ListResponse(c, emptySlice(cves), int64(len(cves)))
}

func (h *DashboardHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.status.All())
}

// emptySlice replaces a nil slice so JSON renders [] instead of null.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
