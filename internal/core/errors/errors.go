package errors

const (
	HttpInternalError         = "internal_error"
	HttpInvalidJsonError      = "invalid_json"
	HttpMissingClientKeyError = "missing_client_key"
	HttpPermissionDenied      = "permission_denied"
	HttpDuplicateSignalError  = "duplicate_signal"
	HttpRateLimitedError      = "rate_limited"
	HttpProjectorDisabled     = "projector_disabled"
)

// ErrorResponse is the error response body for API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
