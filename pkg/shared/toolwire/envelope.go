// Package toolwire defines the invocation result envelope carried over every
// transport binding. The same shape travels as MCP tool-result text content
// and as the admin HTTP response body, so server and client agree on it.
package toolwire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/i2y/papermcp/internal/domain"
)

// Envelope is the wire form of one tool invocation result.
// Exactly one of Result or Error is populated.
type Envelope struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// Error is the structured failure carried on the wire.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Success wraps a handler's return value.
func Success(result interface{}) Envelope {
	return Envelope{OK: true, Result: result}
}

// Failure builds an error envelope from a kind and message.
func Failure(kind domain.ErrorKind, message string) Envelope {
	return Envelope{OK: false, Error: &Error{Kind: string(kind), Message: message}}
}

// FromError converts any invocation error into its wire form using the
// domain taxonomy.
func FromError(err error) Envelope {
	var de *domain.Error
	if errors.As(err, &de) {
		return Failure(de.Kind, de.Message)
	}
	return Failure(domain.KindOf(err), err.Error())
}

// Encode renders the envelope as JSON. Marshalling an envelope can only fail
// on an unmarshalable result value, which is reported as a handler failure
// rather than propagated.
func (e Envelope) Encode() string {
	b, err := json.Marshal(e)
	if err != nil {
		fallback, _ := json.Marshal(Failure(domain.KindHandler, fmt.Sprintf("unencodable result: %v", err)))
		return string(fallback)
	}
	return string(b)
}

// Decode parses a wire envelope.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("malformed result envelope: %w", err)
	}
	return e, nil
}

// Err converts a failure envelope back into a taxonomy error. Returns nil
// for success envelopes.
func (e Envelope) Err() error {
	if e.OK || e.Error == nil {
		return nil
	}
	return &domain.Error{Kind: domain.ErrorKind(e.Error.Kind), Message: e.Error.Message}
}
