package search

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	httperr "github.com/kickback-hq/kickback/internal/core/errors"
	"github.com/kickback-hq/kickback/internal/ratelimit"
)

const (
	defaultWindow = "7d"
	defaultLimit  = 10
	maxLimit      = 100
)

// RegisterRoutes registers the query routes behind the rate limiter.
func (s *Service) RegisterRoutes(r gin.IRouter, limiter *ratelimit.Limiter) {
	limited := ratelimit.Middleware(limiter)
	r.GET("/v1/leaderboard", limited, s.LeaderboardHandler)
	r.GET("/v1/signals/daily", limited, s.DailyHandler)
}

// LeaderboardHandler serves GET /v1/leaderboard?window=7d&limit=10.
func (s *Service) LeaderboardHandler(c *gin.Context) {
	window := c.DefaultQuery("window", defaultWindow)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 || limit > maxLimit {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "limit must be an integer between 1 and 100",
		})
		return
	}

	entries, err := s.Leaderboard(c.Request.Context(), window, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidWindow) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidJsonError,
				Message:   err.Error(),
			})
			return
		}
		slog.Error("Leaderboard query failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Leaderboard query failed",
		})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// DailyHandler serves GET /v1/signals/daily?doc_id=N.
func (s *Service) DailyHandler(c *gin.Context) {
	docID, err := strconv.ParseInt(c.Query("doc_id"), 10, 64)
	if err != nil || docID < 1 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "doc_id must be a positive integer",
		})
		return
	}

	entries, err := s.Daily(c.Request.Context(), docID)
	if err != nil {
		slog.Error("Daily aggregate query failed", "error", err, "doc_id", docID)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Daily aggregate query failed",
		})
		return
	}

	c.JSON(http.StatusOK, entries)
}
