package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so that transports and clients can react to
// the category without parsing message text.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation" // bad or missing arguments
	KindNotFound   ErrorKind = "not_found"  // unknown tool name
	KindHandler    ErrorKind = "handler"    // tool logic failure
	KindUpstream   ErrorKind = "upstream"   // external API failure
	KindIO         ErrorKind = "io"         // file write failure
	KindConnection ErrorKind = "connection" // transport unreachable or broken
	KindTimeout    ErrorKind = "timeout"    // bounded wait exceeded
	KindConfig     ErrorKind = "config"     // missing or invalid configuration
)

// Error is the structured failure value used throughout the server and the
// agent. Failures are always returned as values; a handler failure never
// crashes the process.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // underlying cause, optional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes two taxonomy errors match when their kinds match, so tests and
// callers can use errors.Is with a bare-kind probe.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// ValidationError reports bad or missing arguments.
func ValidationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, nil, format, args...)
}

// NotFoundError reports an unknown tool name.
func NotFoundError(name string) *Error {
	return newError(KindNotFound, nil, "tool %q not found", name)
}

// HandlerError wraps a failure raised inside a tool handler.
func HandlerError(err error, format string, args ...interface{}) *Error {
	return newError(KindHandler, err, format, args...)
}

// UpstreamError wraps an external API failure.
func UpstreamError(err error, format string, args ...interface{}) *Error {
	return newError(KindUpstream, err, format, args...)
}

// IOError wraps a file system failure.
func IOError(err error, format string, args ...interface{}) *Error {
	return newError(KindIO, err, format, args...)
}

// ConnectionError wraps an unreachable or broken transport.
func ConnectionError(err error, format string, args ...interface{}) *Error {
	return newError(KindConnection, err, format, args...)
}

// TimeoutError reports a bounded wait that expired.
func TimeoutError(format string, args ...interface{}) *Error {
	return newError(KindTimeout, nil, format, args...)
}

// ConfigError reports missing or invalid configuration, e.g. an absent
// API credential at startup.
func ConfigError(format string, args ...interface{}) *Error {
	return newError(KindConfig, nil, format, args...)
}

// KindOf classifies an arbitrary error. Taxonomy errors report their own
// kind, context deadline expiry maps to timeout, and anything else is
// treated as a handler failure.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindHandler
}
