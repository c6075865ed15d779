package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
	"github.com/couchcryptid/creek-quality-service/internal/nearest"
	"github.com/couchcryptid/creek-quality-service/internal/query"
)

// Queries is the read side served by the API. *query.Service implements it.
type Queries interface {
	Sites() ([]domain.CanonicalSite, error)
	Summary(site string) (query.SiteReport, error)
	Trend(site string, field domain.Field, windowCount int) (query.Trend, error)
	Compare(field domain.Field) (query.Comparison, error)
	Overview() (query.Overview, error)
	Measurement(field domain.Field) (query.MeasurementInfo, error)
}

// NearestFinder resolves the closest site to a free-text origin.
type NearestFinder interface {
	Nearest(ctx context.Context, origin string) (domain.NearestSiteResult, error)
}

const nearestTimeout = 30 * time.Second

type api struct {
	queries Queries
	nearest NearestFinder
	logger  *slog.Logger
}

// NewAPI builds the read-only JSON API. A nil finder disables /api/nearest.
func NewAPI(queries Queries, finder NearestFinder, logger *slog.Logger) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.UseRawPath = true
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	a := &api{queries: queries, nearest: finder, logger: logger}

	v := engine.Group("/api")
	{
		v.GET("/sites", a.handleSites)
		v.GET("/sites/:site/summary", a.handleSummary)
		v.GET("/sites/:site/trend", a.handleTrend)
		v.GET("/compare", a.handleCompare)
		v.GET("/overview", a.handleOverview)
		v.GET("/measurements/:field", a.handleMeasurement)
		v.GET("/nearest", a.handleNearest)
	}
	return engine
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// GET /api/sites
func (a *api) handleSites(c *gin.Context) {
	sites, err := a.queries.Sites()
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sites, "meta": gin.H{"count": len(sites)}})
}

// GET /api/sites/:site/summary
func (a *api) handleSummary(c *gin.Context) {
	report, err := a.queries.Summary(c.Param("site"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

// GET /api/sites/:site/trend?field=ecoli&weeks=8
func (a *api) handleTrend(c *gin.Context) {
	field, ok := a.field(c, c.DefaultQuery("field", string(domain.FieldEcoli)))
	if !ok {
		return
	}
	weeks := query.DefaultTrendWindows
	if raw := c.Query("weeks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weeks must be an integer of at least 2"})
			return
		}
		weeks = n
	}

	trend, err := a.queries.Trend(c.Param("site"), field, weeks)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trend})
}

// GET /api/compare?field=ecoli
func (a *api) handleCompare(c *gin.Context) {
	field, ok := a.field(c, c.DefaultQuery("field", string(domain.FieldEcoli)))
	if !ok {
		return
	}
	cmp, err := a.queries.Compare(field)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cmp})
}

// GET /api/overview
func (a *api) handleOverview(c *gin.Context) {
	ov, err := a.queries.Overview()
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ov})
}

// GET /api/measurements/:field
func (a *api) handleMeasurement(c *gin.Context) {
	field, ok := a.field(c, c.Param("field"))
	if !ok {
		return
	}
	info, err := a.queries.Measurement(field)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": info})
}

// GET /api/nearest?origin=...
func (a *api) handleNearest(c *gin.Context) {
	if a.nearest == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "routing is disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), nearestTimeout)
	defer cancel()

	res, err := a.nearest.Nearest(ctx, c.Query("origin"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (a *api) field(c *gin.Context, raw string) (domain.Field, bool) {
	f, err := domain.ParseField(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return f, true
}

// fail maps service errors onto status codes.
func (a *api) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("api request failed", "path", c.Request.URL.Path, "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, query.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, query.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, query.ErrUnknownField), errors.Is(err, nearest.ErrInvalidOrigin):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRoutingUnauthorized):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrRoutingUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
