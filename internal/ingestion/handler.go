package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	httperr "github.com/kickback-hq/kickback/internal/core/errors"
	"github.com/kickback-hq/kickback/internal/core/storage"
	"github.com/kickback-hq/kickback/internal/idempotency"

	v1 "github.com/kickback-hq/kickback/internal/api/v1"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed   = "Failed to read request body"
	msgInvalidJSON      = "Invalid JSON body"
	msgPersistFailed    = "Failed to persist signal"
	msgDuplicateSignal  = "Duplicate signal"
	msgPermissionDenied = "Permission denied"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler handles HTTP POST requests for signal submission.
func (s *Service) IngestHandler(c *gin.Context) {
	sig, payloadSize, err := s.parseSignal(c)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()

	if err := s.authorize(ctx, sig); err != nil {
		writeError(c, err)
		return
	}

	slog.Info("Received signal",
		"doc_id", sig.DocID,
		"user_id", sig.UserID,
		"kind", sig.Kind,
		"payload_size", payloadSize)

	if err := s.guardDuplicate(ctx, sig); err != nil {
		writeError(c, err)
		return
	}

	if err := s.persistSignal(ctx, sig); err != nil {
		writeError(c, err)
		return
	}

	// Signal persisted to the log. The projector folds it on its next run.
	c.JSON(http.StatusCreated, sig)
}

// parseSignal reads the raw request body and binds it into a Signal struct.
// Returns the parsed signal and the raw payload size (used for structured logging upstream).
func (s *Service) parseSignal(c *gin.Context) (*v1.Signal, int, *ingestionError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var sig v1.Signal
	if err := c.ShouldBindJSON(&sig); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	if err := sig.Validate(); err != nil {
		slog.Warn("Signal validation failed", "error", err)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    err.Error(),
		}
	}

	// Never trust a client-supplied ID; the database assigns it.
	sig.ID = 0

	return &sig, len(bodyBytes), nil
}

// authorize checks the submitting user's role on the document. Views are
// open to any role holder; create and update require editor or owner.
func (s *Service) authorize(ctx context.Context, sig *v1.Signal) *ingestionError {
	role, found, err := s.permissions.GetRole(ctx, sig.DocID, sig.UserID)
	if err != nil {
		slog.Error("Permission lookup failed", "error", err, "doc_id", sig.DocID, "user_id", sig.UserID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Permission lookup failed",
		}
	}

	if !found || !role.CanSubmit(sig.Kind) {
		slog.Info("Signal rejected: permission denied",
			"doc_id", sig.DocID,
			"user_id", sig.UserID,
			"kind", sig.Kind)
		return &ingestionError{
			statusCode: http.StatusForbidden,
			errorType:  httperr.HttpPermissionDenied,
			message:    msgPermissionDenied,
		}
	}

	return nil
}

// guardDuplicate runs the fast-path idempotency check. It only fires when
// the feature switch is on and the client supplied a token; otherwise the
// durable unique constraint alone handles deduplication.
func (s *Service) guardDuplicate(ctx context.Context, sig *v1.Signal) *ingestionError {
	if !s.guardEnabled || sig.IdemKey == "" {
		return nil
	}

	if err := s.guard.EnsureOnce(ctx, sig.IdemKey); err != nil {
		if errors.Is(err, idempotency.ErrConflict) {
			slog.Info("Duplicate signal suppressed by guard", "idem_key", sig.IdemKey)
			return &ingestionError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateSignalError,
				message:    msgDuplicateSignal,
			}
		}

		slog.Error("Idempotency guard failed", "error", err, "idem_key", sig.IdemKey)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Idempotency check failed",
		}
	}

	return nil
}

// persistSignal appends the signal to the durable log.
func (s *Service) persistSignal(ctx context.Context, sig *v1.Signal) *ingestionError {
	if err := s.store.SaveSignal(ctx, sig); err != nil {
		if errors.Is(err, storage.ErrDuplicateSignal) {
			slog.Info("Duplicate signal rejected", "idem_key", sig.IdemKey, "doc_id", sig.DocID)
			return &ingestionError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateSignalError,
				message:    msgDuplicateSignal,
			}
		}

		slog.Error("Failed to persist signal", "error", err, "doc_id", sig.DocID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	return nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
