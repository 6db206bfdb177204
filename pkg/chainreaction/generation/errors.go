package generation

import (
	"errors"
	"fmt"
)

// Kind classifies a generation failure.
type Kind int

const (
	// KindTransport indicates the backend could not be reached or its
	// response could not be read.
	KindTransport Kind = iota

	// KindConfiguration indicates a required credential or setting is absent.
	KindConfiguration

	// KindBackend indicates the backend answered with a request-level error.
	KindBackend

	// KindEmptyResult indicates the backend succeeded but returned no text.
	KindEmptyResult
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindConfiguration:
		return "configuration"
	case KindBackend:
		return "backend"
	case KindEmptyResult:
		return "empty_result"
	default:
		return "unknown"
	}
}

// emptyResultText is shown on a node whose generation returned nothing.
const emptyResultText = "⚠️ EMPTY RESPONSE: AI returned no text."

// Error is a generation failure. Its Error() text is what ends up as the
// failing node's output.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Detail is the human-readable description (backend message, missing
	// setting, transport failure).
	Detail string
	// StatusCode is the HTTP status for backend errors, 0 otherwise.
	StatusCode int
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindConfiguration:
		return "⚠️ ERROR: " + e.Detail
	case KindBackend:
		return "⚠️ API ERROR: " + e.Detail
	case KindEmptyResult:
		return emptyResultText
	default:
		return "CONNECTION FAILURE: " + e.Detail
	}
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigurationError reports a missing credential or setting.
func NewConfigurationError(detail string) *Error {
	return &Error{Kind: KindConfiguration, Detail: detail}
}

// NewTransportError wraps a failure reaching or reading from the backend.
func NewTransportError(err error) *Error {
	detail := "unknown transport error"
	if err != nil {
		detail = err.Error()
	}
	return &Error{Kind: KindTransport, Detail: detail, Err: err}
}

// NewBackendError reports an error the backend returned for the request.
func NewBackendError(statusCode int, detail string) *Error {
	return &Error{Kind: KindBackend, Detail: detail, StatusCode: statusCode}
}

// NewEmptyResultError reports a successful call without usable text.
func NewEmptyResultError() *Error {
	return &Error{Kind: KindEmptyResult}
}

// KindOf returns the Kind of err. Errors that are not *Error are treated as
// transport failures.
func KindOf(err error) Kind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindTransport
}

// Message renders err as the text recorded on a failing node.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Error()
	}
	return NewTransportError(err).Error()
}

// ErrPanic is wrapped by errors produced from a recovered port panic.
var ErrPanic = errors.New("generation panicked")

// NewPanicError reports a recovered panic from a Port as a transport failure.
func NewPanicError(value any) *Error {
	return NewTransportError(fmt.Errorf("%w: %v", ErrPanic, value))
}
