// Package admin exposes operational entry points for the projection.
package admin

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/kickback-hq/kickback/internal/core/errors"
	"github.com/kickback-hq/kickback/internal/projector"
	"github.com/kickback-hq/kickback/internal/ratelimit"
)

// Service exposes the on-demand projection trigger.
type Service struct {
	projector        *projector.Projector
	projectorEnabled bool
}

// NewService creates the admin service. projectorEnabled is the feature
// switch gating the trigger; when off, the endpoint answers 503.
func NewService(p *projector.Projector, projectorEnabled bool) *Service {
	if p == nil {
		panic("admin: projector must not be nil")
	}
	return &Service{projector: p, projectorEnabled: projectorEnabled}
}

// RegisterRoutes registers the admin routes behind the rate limiter.
func (s *Service) RegisterRoutes(r gin.IRouter, limiter *ratelimit.Limiter) {
	r.POST("/admin/projector/run-once", ratelimit.Middleware(limiter), s.RunOnceHandler)
}

// RunOnceHandler triggers a single projection batch on demand and reports
// how many signals it folded.
func (s *Service) RunOnceHandler(c *gin.Context) {
	if !s.projectorEnabled {
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpProjectorDisabled,
			Message:   "Projector disabled",
		})
		return
	}

	processed, err := s.projector.RunOnce(c.Request.Context())
	if err != nil {
		slog.Error("On-demand projection run failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Projection run failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"processed": processed})
}
