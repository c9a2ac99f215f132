package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jobfeed/feedengine/internal/cache"
	"github.com/jobfeed/feedengine/internal/db"
	"github.com/jobfeed/feedengine/internal/feed"
	"github.com/jobfeed/feedengine/pkg/logging"
	"github.com/jobfeed/feedengine/pkg/telemetry"
)

// Router sets up API routes
type Router struct {
	reader   *feed.Reader
	ingestor *feed.Ingestor
	db       *db.DB
	ranked   *cache.RankedSet
	logger   *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(reader *feed.Reader, ingestor *feed.Ingestor, database *db.DB, ranked *cache.RankedSet) *Router {
	return &Router{
		reader:   reader,
		ingestor: ingestor,
		db:       database,
		ranked:   ranked,
		logger:   logging.WithComponent("api-router"),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// Feed read API
	engine.GET("/feed", r.listFeedHandler)

	// Notification intake from collaborator domains
	events := engine.Group("/internal/events")
	events.POST("/job-created", r.jobCreatedHandler)
	events.POST("/company-created", r.companyCreatedHandler)
	events.POST("/promotion-changed", r.promotionChangedHandler)
}

// listFeedHandler handles GET /feed. Reads only fail hard when the record
// store itself is unreachable; cache trouble is absorbed by the reader.
func (r *Router) listFeedHandler(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "feed.list")
	defer span.End()

	var q struct {
		Limit  int    `form:"limit"`
		Cursor string `form:"cursor"`
		Types  string `form:"types"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	var kinds []string
	for _, t := range strings.Split(q.Types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			kinds = append(kinds, t)
		}
	}

	result, err := r.reader.List(ctx, feed.ListParams{
		Limit:  q.Limit,
		Cursor: q.Cursor,
		Kinds:  kinds,
	})
	if err != nil {
		r.logger.Error("feed read failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (r *Router) healthHandler(c *gin.Context) {
	status := gin.H{
		"status":  "OK",
		"service": "feedengine",
	}

	code := http.StatusOK
	if err := r.db.Health(c.Request.Context()); err != nil {
		status["status"] = "DEGRADED"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := r.ranked.Health(c.Request.Context()); err != nil {
		// degraded reads only; the store stays authoritative
		status["cache"] = err.Error()
	}

	c.JSON(code, status)
}
