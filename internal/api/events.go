package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jobfeed/feedengine/internal/feed"
	"github.com/jobfeed/feedengine/internal/models"
	"github.com/jobfeed/feedengine/pkg/telemetry"
)

// Notification intake. Collaborator domains deliver these at-least-once;
// a 502 tells the emitter the authoritative write failed and the
// notification should be retried. Duplicate delivery is harmless.

type jobCreatedRequest struct {
	TargetID int64      `json:"target_id" binding:"required"`
	ClosesAt *time.Time `json:"closes_at"`
}

type companyCreatedRequest struct {
	TargetID int64 `json:"target_id" binding:"required"`
	Active   bool  `json:"active"`
}

type promotionChangedRequest struct {
	TargetID       int64  `json:"target_id" binding:"required"`
	Placement      string `json:"placement" binding:"required"`
	Status         string `json:"status" binding:"required"`
	PriorityWeight int64  `json:"priority_weight"`
}

func (r *Router) jobCreatedHandler(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "events.job_created")
	defer span.End()

	var req jobCreatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := r.ingestor.HandleJobCreated(ctx, feed.JobCreated{
		Target:   models.TargetRef{Kind: models.TargetKindJob, ID: req.TargetID},
		ClosesAt: req.ClosesAt,
	})
	r.respondToEvent(c, "job-created", err)
}

func (r *Router) companyCreatedHandler(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "events.company_created")
	defer span.End()

	var req companyCreatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := r.ingestor.HandleCompanyCreated(ctx, feed.CompanyCreated{
		Target: models.TargetRef{Kind: models.TargetKindCompany, ID: req.TargetID},
		Active: req.Active,
	})
	r.respondToEvent(c, "company-created", err)
}

func (r *Router) promotionChangedHandler(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "events.promotion_changed")
	defer span.End()

	var req promotionChangedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := r.ingestor.HandlePromotionStateChanged(ctx, feed.PromotionStateChanged{
		Target:         models.TargetRef{Kind: models.TargetKindPromotion, ID: req.TargetID},
		Placement:      req.Placement,
		Status:         req.Status,
		PriorityWeight: req.PriorityWeight,
	})
	r.respondToEvent(c, "promotion-changed", err)
}

func (r *Router) respondToEvent(c *gin.Context, event string, err error) {
	if err != nil {
		// The event's effect on the feed is lost until the emitter retries
		// or a rebuild picks it up from source data.
		r.logger.Error("notification handling failed",
			zap.String("event", event), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "feed write failed, retry the notification"})
		return
	}
	c.Status(http.StatusNoContent)
}
