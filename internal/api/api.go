package api

import (
	"context"
	"net/http"
	"strconv"

	"indian-airlines-ivr/internal/apierrors"
	authHandler "indian-airlines-ivr/internal/auth/handler"
	manifestHandler "indian-airlines-ivr/internal/manifest/handler"
	"indian-airlines-ivr/internal/ratelimit"
	"indian-airlines-ivr/internal/readiness"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessProbe is the part of the readiness manager the routes need.
type ReadinessProbe interface {
	Ready(ctx context.Context) readiness.Report
	Invalidate(ctx context.Context) error
}

type API struct {
	router          *gin.RouterGroup
	authHandler     authHandler.Handler
	manifestHandler manifestHandler.Handler
	readiness       ReadinessProbe
	validateLimiter *ratelimit.Service
}

func New(router *gin.RouterGroup, authHandler authHandler.Handler, manifestHandler manifestHandler.Handler, probe ReadinessProbe, validateLimiter *ratelimit.Service) API {
	return API{
		router:          router,
		authHandler:     authHandler,
		manifestHandler: manifestHandler,
		readiness:       probe,
		validateLimiter: validateLimiter,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	a.router.GET("/ready", a.HandleReady)
	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := a.router.Group("/api")
	{
		manifestGroup := apiGroup.Group("/manifest")
		manifestGroup.GET("", a.manifestHandler.HandleGetManifest)
		manifestGroup.GET("/report", a.manifestHandler.HandleGetReport)
		manifestGroup.POST("/validate", a.validateLimiter.Middleware(), a.manifestHandler.HandleValidate)
	}
	protectedGroup := apiGroup.Group("/protected", a.authHandler.HandleJWTMiddleware)
	{
		protectedGroup.POST("/ready/refresh", a.HandleRefreshReady)
		protectedGroup.POST("/manifest/report/refresh", a.manifestHandler.HandleRefreshReport)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}

// HandleReady answers 200 while no dependency is unhealthy and 503 otherwise.
// Per-dependency results are only included with ?verbose=true.
func (a *API) HandleReady(c *gin.Context) {
	report := a.readiness.Ready(c.Request.Context())

	status := http.StatusOK
	if !report.Ready {
		status = http.StatusServiceUnavailable
	}
	if verbose, _ := strconv.ParseBool(c.Query("verbose")); !verbose {
		report.Checks = nil
	}
	c.JSON(status, report)
}

// HandleRefreshReady drops the cached readiness report and returns a fresh one.
func (a *API) HandleRefreshReady(c *gin.Context) {
	ctx := c.Request.Context()
	if err := a.readiness.Invalidate(ctx); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.readiness.Ready(ctx))
}
