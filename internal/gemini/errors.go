// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"errors"
	"fmt"
	"net/http"
)

// Error variables for common Gemini failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("gemini API key not configured")

	// ErrEmptyResponse indicates a well-formed response that carried no text.
	ErrEmptyResponse = errors.New("response contained no text")

	// ErrMalformedResponse indicates the body could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrResponseTooLarge indicates the body exceeded MaxResponseSize.
	ErrResponseTooLarge = errors.New("response too large")
)

// APIError is an error reported by the service, either as an explicit error
// object or as a non-2xx status.
type APIError struct {
	HTTPStatus int
	Code       int
	Status     string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini error [%s] (HTTP %d): %s", e.Status, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("gemini error (HTTP %d): %s", e.HTTPStatus, e.Message)
}

// Temporary reports whether the same request may succeed later
// (quota exhaustion or a server-side failure).
func (e *APIError) Temporary() bool {
	return e.HTTPStatus == http.StatusTooManyRequests || e.HTTPStatus >= 500
}

// IsAuth reports whether the key was rejected.
func (e *APIError) IsAuth() bool {
	return e.HTTPStatus == http.StatusUnauthorized || e.HTTPStatus == http.StatusForbidden ||
		e.Status == "UNAUTHENTICATED" || e.Status == "PERMISSION_DENIED"
}

// Reason returns a short classification of err for logs.
func Reason(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.As(err, &apiErr):
		if apiErr.Status != "" {
			return "api_error:" + apiErr.Status
		}
		return fmt.Sprintf("api_error:%d", apiErr.HTTPStatus)
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrResponseTooLarge):
		return "response_too_large"
	default:
		return "transport"
	}
}
