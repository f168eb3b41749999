package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	httperr "github.com/kickback-hq/kickback/internal/core/errors"
)

// ClientKeyHeader carries the opaque client identifier. Verifying the key
// against issued credentials is the auth layer's job; the limiter only
// needs a stable per-client key.
const ClientKeyHeader = "X-API-Key"

const clientKeyContextKey = "client_key"

// ClientKey returns the client identifier stamped on the request by
// Middleware, or "" if the request never passed through it.
func ClientKey(c *gin.Context) string {
	return c.GetString(clientKeyContextKey)
}

// Middleware enforces the token-bucket admission decision on every
// request before business logic runs. Requests without a client key are
// rejected; denied requests get a Retry-After hint.
func Middleware(limiter *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := c.GetHeader(ClientKeyHeader)
		if clientKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httperr.ErrorResponse{
				ErrorType: httperr.HttpMissingClientKeyError,
				Message:   "Missing client key",
			})
			return
		}

		result, err := limiter.Check(c.Request.Context(), clientKey)
		if err != nil {
			slog.Error("Rate limit check failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Rate limit check failed",
			})
			return
		}

		if !result.Allowed {
			slog.Info("Request rate limited", "remaining", result.Remaining)
			c.Header("Retry-After", strconv.Itoa(int(RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httperr.ErrorResponse{
				ErrorType: httperr.HttpRateLimitedError,
				Message:   "Rate limit exceeded",
			})
			return
		}

		c.Set(clientKeyContextKey, clientKey)
		c.Next()
	}
}
