// Package errs provides structured error types and helpers for the polyclob SDK.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies a stable error category.
type Code string

const (
	// CodeValidation indicates invalid input or local state provided by the caller.
	CodeValidation Code = "validation"
	// CodeAuth indicates authentication or credential errors.
	CodeAuth Code = "auth"
	// CodeSigning indicates an order-signing failure, local or remote.
	CodeSigning Code = "signing"
	// CodeChain indicates an unsupported chain or missing contract configuration.
	CodeChain Code = "unsupported_chain"
	// CodeExchange indicates the venue answered with a business rejection.
	CodeExchange Code = "exchange_rejected"
	// CodeNetwork indicates a transport failure before any venue answer.
	CodeNetwork Code = "network"
	// CodeDecode indicates a venue payload that could not be parsed.
	CodeDecode Code = "decode"
	// CodeWebSocket indicates a streaming connection failure.
	CodeWebSocket Code = "websocket"
	// CodeGeoblocked indicates access is blocked for the caller's region.
	CodeGeoblocked Code = "geoblocked"
	// CodeHeartbeat indicates a missed or rejected session keep-alive.
	CodeHeartbeat Code = "heartbeat"
	// CodeRateLimited indicates the request exceeded rate limits.
	CodeRateLimited Code = "rate_limited"
	// CodeInternal indicates a dependency or invariant failure inside the SDK.
	CodeInternal Code = "internal"
)

// E captures structured error information produced across the SDK.
type E struct {
	Op       string
	Code     Code
	HTTP     int
	Method   string
	Path     string
	Message  string
	VenueMsg string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the originating operation and code.
func New(op string, code Code, opts ...Option) *E {
	e := &E{
		Op:       strings.TrimSpace(op),
		Code:     code,
		HTTP:     0,
		Method:   "",
		Path:     "",
		Message:  "",
		VenueMsg: "",
		cause:    nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithMethodPath records the request identity that produced the error.
func WithMethodPath(method, path string) Option {
	return func(e *E) {
		e.Method = strings.TrimSpace(method)
		e.Path = strings.TrimSpace(path)
	}
}

// WithVenueMessage captures the raw venue error body.
func WithVenueMessage(msg string) Option {
	return func(e *E) {
		e.VenueMsg = msg
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// Validation constructs a caller-input validation error.
func Validation(op, message string) *E {
	return New(op, CodeValidation, WithMessage(message))
}

// Status constructs an error for a non-success venue response.
func Status(op, method, path string, httpStatus int, venueMsg string) *E {
	code := CodeExchange
	switch httpStatus {
	case 429:
		code = CodeRateLimited
	case 401, 403:
		code = CodeAuth
	}
	return New(op, code,
		WithHTTP(httpStatus),
		WithMethodPath(method, path),
		WithVenueMessage(venueMsg),
	)
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	op := strings.TrimSpace(e.Op)
	if op == "" {
		op = "unknown"
	}
	parts = append(parts, "op="+op)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Method != "" || e.Path != "" {
		parts = append(parts, "request="+strconv.Quote(strings.TrimSpace(e.Method+" "+e.Path)))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.VenueMsg != "" {
		parts = append(parts, "venue_msg="+strconv.Quote(e.VenueMsg))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf returns the error code carried by err, or CodeInternal when err is
// not an envelope.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e *E
	return errors.As(err, &e) && e != nil && e.Code == code
}
