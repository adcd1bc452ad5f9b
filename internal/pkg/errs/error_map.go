/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template, standardizing HTTP
responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the CustomError corresponding to every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Message Errors
	ErrRoomNotFound:          {Code: ErrRoomNotFound, Message: "Chat room not found."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrImagePayloadInvalid:   {Code: ErrImagePayloadInvalid, Message: "Image data could not be decoded."},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is too large."},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Message: "File type is not allowed."},

	// 3xxx: User and Authentication Errors
	ErrInvalidUsername:    {Code: ErrInvalidUsername, Message: "Invalid username."},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Invalid password."},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username is already taken."},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect username or password."},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "Account not found."},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrTokenInvalid:       {Code: ErrTokenInvalid, Message: "Session is invalid or expired."},

	// 5xxx: Internal System Errors
	ErrUnknown:       {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStorageFailed: {Code: ErrStorageFailed, Message: "Could not save your data. Please try again."},
}
