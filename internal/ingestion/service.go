package ingestion

import (
	"github.com/gin-gonic/gin"
	"github.com/kickback-hq/kickback/internal/core/storage"
	"github.com/kickback-hq/kickback/internal/idempotency"
	"github.com/kickback-hq/kickback/internal/ratelimit"
)

// Service handles signal submission: permission check, optional fast-path
// idempotency guard, then the durable append.
type Service struct {
	store            storage.SignalStore
	permissions      storage.PermissionStore
	guard            *idempotency.Guard
	guardEnabled     bool
	maxBodySizeBytes int
}

// NewService creates the ingestion service. guard may be nil when the
// idempotency fast path is disabled; the durable unique constraint on
// idem_key still applies either way.
func NewService(store storage.SignalStore, permissions storage.PermissionStore, guard *idempotency.Guard, guardEnabled bool, maxBodySizeMB int) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if permissions == nil {
		panic("ingestion: permission store must not be nil")
	}
	if guardEnabled && guard == nil {
		panic("ingestion: guard must not be nil when enabled")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            store,
		permissions:      permissions,
		guard:            guard,
		guardEnabled:     guardEnabled,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion routes behind the rate limiter.
func (s *Service) RegisterRoutes(r gin.IRouter, limiter *ratelimit.Limiter) {
	r.POST("/v1/signals", ratelimit.Middleware(limiter), s.IngestHandler)
}
