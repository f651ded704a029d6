package sentiment

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies pipeline failures so callers can pick a response without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindMalformedResponse
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindMalformedResponse:
		return "malformed_response"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Source records which side produced a rejected payload.
type Source string

const (
	SourceClient Source = "client"
	SourceModel  Source = "model"
)

// Issue is a single schema violation.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Error is the error type returned by every pipeline step.
type Error struct {
	Kind   Kind
	Source Source
	Issues []Issue
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Source != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Source))
		b.WriteString(")")
	}
	if len(e.Issues) > 0 {
		parts := make([]string, 0, len(e.Issues))
		for _, issue := range e.Issues {
			parts = append(parts, issue.String())
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClientFault reports whether the caller, rather than the model or the upstream API, caused the failure.
func (e *Error) ClientFault() bool {
	return e.Kind == KindValidation && e.Source == SourceClient
}

// Retryable reports whether resubmitting the same input may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindMalformedResponse || e.Kind == KindUpstream
}

// NewValidationError reports schema violations in a payload produced by source.
func NewValidationError(source Source, issues ...Issue) *Error {
	return &Error{Kind: KindValidation, Source: source, Issues: issues}
}

// NewMalformedResponseError reports model output that could not be parsed as JSON.
func NewMalformedResponseError(err error) *Error {
	return &Error{Kind: KindMalformedResponse, Source: SourceModel, Err: err}
}

// NewUpstreamError reports a failure talking to the completion API.
func NewUpstreamError(err error) *Error {
	return &Error{Kind: KindUpstream, Err: err}
}

// Upstreamf formats an upstream failure.
func Upstreamf(format string, args ...any) *Error {
	return NewUpstreamError(fmt.Errorf(format, args...))
}

// AsError extracts the pipeline error from err's chain.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf classifies err. Errors outside the taxonomy are KindUnknown.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindUnknown
}
