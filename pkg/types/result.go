// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind classifies why a stage failed.
type FailureKind string

const (
	// KindNone marks a successful result.
	KindNone FailureKind = ""

	// KindConfiguration covers missing or invalid credentials and settings.
	KindConfiguration FailureKind = "ConfigurationError"

	// KindTransport covers network failures, cancelled calls and unreadable
	// local documents.
	KindTransport FailureKind = "TransportError"

	// KindUpstream covers non-success responses from an external service.
	KindUpstream FailureKind = "UpstreamServiceError"

	// KindMalformedResponse covers response bodies that cannot be decoded or
	// lack the expected field.
	KindMalformedResponse FailureKind = "MalformedResponseError"

	// KindEmptyOutput covers refinement output that is empty or whitespace.
	KindEmptyOutput FailureKind = "EmptyOutputError"
)

// Sentinel errors matched by FailureError.Is.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrTransport         = errors.New("transport error")
	ErrUpstream          = errors.New("upstream service error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrEmptyOutput       = errors.New("empty output")
)

var kindSentinels = map[FailureKind]error{
	KindConfiguration:     ErrConfiguration,
	KindTransport:         ErrTransport,
	KindUpstream:          ErrUpstream,
	KindMalformedResponse: ErrMalformedResponse,
	KindEmptyOutput:       ErrEmptyOutput,
}

// Result is the outcome of extraction or conversion: either Success with
// Text, or Failure with Kind and Reason. It is used for both the extraction
// result and the final conversion result.
type Result struct {
	Text   string      `json:"text,omitempty" yaml:"text,omitempty"`
	Kind   FailureKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Reason string      `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Success returns a successful Result carrying text.
func Success(text string) Result {
	return Result{Text: text}
}

// Failure returns a failed Result. An empty kind is treated as upstream.
func Failure(kind FailureKind, reason string) Result {
	if kind == KindNone {
		kind = KindUpstream
	}
	return Result{Kind: kind, Reason: reason}
}

// Failuref is Failure with a formatted reason.
func Failuref(kind FailureKind, format string, args ...any) Result {
	return Failure(kind, fmt.Sprintf(format, args...))
}

// OK reports whether the result is a Success.
func (r Result) OK() bool {
	return r.Kind == KindNone
}

// Err returns nil for a Success and a *FailureError otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &FailureError{Kind: r.Kind, Reason: r.Reason}
}

// String returns the text of a Success or the reason of a Failure.
func (r Result) String() string {
	if r.OK() {
		return r.Text
	}
	return r.Reason
}

// FailureError exposes a failed Result as an error.
type FailureError struct {
	Kind   FailureKind
	Reason string
}

func (e *FailureError) Error() string {
	return e.Reason
}

// Is matches the sentinel for the failure kind.
func (e *FailureError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Blank reports whether s has no visible content.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
