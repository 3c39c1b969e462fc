package apperror

const (
	// Client errors (4xx)
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeConfirmRequired = "CONFIRM_REQUIRED"
	CodeDuplicate       = "DUPLICATE"
	CodeStaleSession    = "STALE_SESSION"
	CodeRateLimited     = "RATE_LIMITED"

	// Server errors (5xx)
	CodeInternalError    = "INTERNAL_ERROR"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodePublishDisabled  = "PUBLISH_DISABLED"
	CodeUpstreamError    = "UPSTREAM_ERROR"
)
