// Package simerrors centralizes construction of the OpenAI-compatible error
// envelope so every handler and the streaming engine produce exactly the
// same JSON shape for a given error kind. It mirrors the teacher's inbound
// provider-error classification (internal/errors) but runs in the opposite
// direction: instead of parsing an upstream error body, it synthesizes one.
package simerrors

import "net/http"

// Kind enumerates the error categories named in the specification's error
// handling design.
type Kind string

const (
	KindInvalidRequest      Kind = "invalid_request_error"
	KindAuthentication      Kind = "authentication_error"
	KindRateLimit           Kind = "rate_limit_exceeded"
	KindContextLength       Kind = "context_length_exceeded"
	KindTimeout             Kind = "timeout_error"
	KindCancelled           Kind = "cancelled"
	KindServerError         Kind = "server_error"
	KindContentFilter       Kind = "content_filter_error"
)

// Error is the normalized representation of an API error, independent of
// which handler raised it.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	StatusCode int
	RetryAfterSeconds int
}

func (e *Error) Error() string { return e.Message }

// Envelope is the JSON wire shape OpenAI-compatible clients expect:
// {"error": {"message": "...", "type": "...", "code": "..."}}.
type Envelope struct {
	Error EnvelopeBody `json:"error"`
}

// EnvelopeBody is the body of Envelope.
type EnvelopeBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// New builds an Error for the given kind with a caller-supplied message.
func New(kind Kind, message string) *Error {
	e := &Error{Kind: kind, Message: message, StatusCode: statusFor(kind)}
	e.Code = string(kind)
	return e
}

// NewWithCode builds an Error with an explicit provider-style code distinct
// from its kind (e.g. kind=invalid_request_error, code=context_length_exceeded).
func NewWithCode(kind Kind, code, message string) *Error {
	e := New(kind, message)
	e.Code = code
	return e
}

// RateLimited builds a 429 rate_limit_exceeded error carrying a Retry-After.
func RateLimited(message string, retryAfterSeconds int) *Error {
	e := New(KindRateLimit, message)
	e.RetryAfterSeconds = retryAfterSeconds
	return e
}

func statusFor(kind Kind) int {
	switch kind {
	case KindInvalidRequest, KindContextLength:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindContentFilter:
		return http.StatusOK // surfaced in-stream, HTTP status stays 200
	case KindTimeout, KindCancelled, KindServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ToEnvelope converts an Error into its wire Envelope.
func (e *Error) ToEnvelope() Envelope {
	return Envelope{Error: EnvelopeBody{
		Message: e.Message,
		Type:    string(e.Kind),
		Code:    e.Code,
	}}
}

// StreamChunkError is the error object (message, type, code) written as
// {"error": ...} in an SSE data line when a stream fails mid-flight. It
// carries no finish_reason.
type StreamChunkError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// ToStreamChunkError converts an Error into the in-chunk error shape.
func (e *Error) ToStreamChunkError() StreamChunkError {
	return StreamChunkError{Message: e.Message, Type: string(e.Kind), Code: e.Code}
}
