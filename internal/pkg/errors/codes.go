package errors

import "net/http"

// Error code constants. Errors carry code + params; the calling UI owns
// message translation. Backend logs always in English.

// Recipient/group error codes.
const (
	CodeRecipientNotFound  = "RECIPIENT_NOT_FOUND"
	CodeGroupNotFound      = "GROUP_NOT_FOUND"
	CodeMembershipNotFound = "MEMBERSHIP_NOT_FOUND"
	CodeRecipientInactive  = "RECIPIENT_INACTIVE"
)

// Notification job error codes.
const (
	CodeJobInsertFailed  = "JOB_INSERT_FAILED"
	CodeJobNotFound      = "JOB_NOT_FOUND"
	CodeNoViableChannel  = "NO_VIABLE_CHANNEL"
	CodeAnalyticsFailed  = "ANALYTICS_QUERY_FAILED"
	CodeProcessingFailed = "BATCH_PROCESSING_FAILED"
)

// Preference token error codes.
const (
	CodePrefTokenInvalid = "PREFERENCE_TOKEN_INVALID"
	CodePrefTokenExpired = "PREFERENCE_TOKEN_EXPIRED"
	CodePrefTokenRevoked = "PREFERENCE_TOKEN_REVOKED"
)

// Auth error codes.
const (
	CodeAuthFailed   = "AUTH_FAILED"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)

// Validation error codes.
const (
	CodeInvalidRequestField = "INVALID_REQUEST_FIELD"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeInvalidChannel      = "INVALID_CHANNEL"
	CodeInvalidFrequency    = "INVALID_FREQUENCY"
)

// Convenience constructors using predefined codes.

// ErrRecipientNotFoundf creates a recipient not found error.
func ErrRecipientNotFoundf(recipientID string) *AppError {
	return (&AppError{
		Code:       CodeRecipientNotFound,
		Message:    "recipient not found",
		HTTPStatus: http.StatusNotFound,
	}).WithParams(map[string]interface{}{"recipient_id": recipientID})
}

// ErrGroupNotFoundf creates a group not found error.
func ErrGroupNotFoundf(groupID string) *AppError {
	return (&AppError{
		Code:       CodeGroupNotFound,
		Message:    "group not found",
		HTTPStatus: http.StatusNotFound,
	}).WithParams(map[string]interface{}{"group_id": groupID})
}

// ErrInvalidRequestFieldf creates a bad request error for an invalid field.
func ErrInvalidRequestFieldf(fieldName string) *AppError {
	return &AppError{
		Code:       CodeInvalidRequestField,
		Message:    "request contains invalid field: " + fieldName,
		HTTPStatus: http.StatusBadRequest,
	}
}
