/*
Package errs provides custom error types and application-level error code constants.

The codes identify specific business or system errors both internally and in
responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate exceeded the limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room and Message Errors
const (
	// ErrRoomNotFound indicates that the requested room does not exist.
	ErrRoomNotFound = 2001

	// ErrMessageContentTooLong indicates that message content exceeded the length limit.
	ErrMessageContentTooLong = 2002

	// ErrImagePayloadInvalid indicates that an image payload was not valid base64.
	ErrImagePayloadInvalid = 2003

	// ErrFileSizeTooLarge indicates that an uploaded file exceeded the size limit.
	ErrFileSizeTooLarge = 2004

	// ErrFileTypeInvalid indicates a file name or MIME type outside the allowed set.
	ErrFileTypeInvalid = 2005
)

// 3xxx: User and Authentication Errors
const (
	// ErrInvalidUsername indicates a username that fails format validation.
	ErrInvalidUsername = 3001

	// ErrInvalidPassword indicates a password outside the accepted length range.
	ErrInvalidPassword = 3002

	// ErrUserAlreadyExists indicates a signup attempt with a taken username.
	ErrUserAlreadyExists = 3003

	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = 3004

	// ErrUserNotFound indicates that the referenced account does not exist.
	ErrUserNotFound = 3005

	// ErrUnauthorized indicates a request without a valid identity token.
	ErrUnauthorized = 3006

	// ErrTokenInvalid indicates a token that failed verification.
	ErrTokenInvalid = 3007
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal server error.
	ErrUnknown = 5000

	// ErrStorageFailed indicates a rejected record store operation.
	ErrStorageFailed = 5001
)
