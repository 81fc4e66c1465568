// Package response provides the error envelope returned by HTTP handlers.
package response

import (
	"net/http"
	"time"

	"github.com/kart-io/legalens/pkg/errors"
)

// Response is the unified API envelope.
type Response struct {
	// Code is the business error code (0 = success).
	Code int `json:"code"`

	// HTTPCode mirrors the HTTP status for client convenience.
	HTTPCode int `json:"http_code,omitempty"`

	// Message is a human-readable message.
	Message string `json:"message"`

	// Data contains the response payload (nil for errors).
	Data any `json:"data,omitempty"`

	// RequestID is the request identifier for tracing.
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response timestamp in Unix milliseconds.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Err creates an error response from an Errno.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return &Response{Code: 0, HTTPCode: http.StatusOK, Message: "success"}
	}
	return &Response{
		Code:     e.Code,
		HTTPCode: e.HTTPStatus(),
		Message:  e.MessageEN,
	}
}

// WithRequestID adds request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

// Stamp sets the response timestamp to now.
func (r *Response) Stamp() *Response {
	r.Timestamp = time.Now().UnixMilli()
	return r
}

// HTTPStatus returns the HTTP status code for this response.
func (r *Response) HTTPStatus() int {
	if r.HTTPCode != 0 {
		return r.HTTPCode
	}
	if r.Code == 0 {
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}

	switch errors.GetCategory(r.Code) {
	case errors.CategoryRequest:
		return http.StatusBadRequest
	case errors.CategoryResource:
		return http.StatusNotFound
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
