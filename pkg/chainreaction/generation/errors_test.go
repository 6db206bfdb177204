package generation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{"configuration", NewConfigurationError("GEMINI_API_KEY is missing from the environment."), "⚠️ ERROR: GEMINI_API_KEY is missing from the environment."},
		{"transport", NewTransportError(errors.New("dial tcp: connection refused")), "CONNECTION FAILURE: dial tcp: connection refused"},
		{"transport nil cause", NewTransportError(nil), "CONNECTION FAILURE: unknown transport error"},
		{"backend", NewBackendError(429, "Resource has been exhausted"), "⚠️ API ERROR: Resource has been exhausted"},
		{"empty", NewEmptyResultError(), "⚠️ EMPTY RESPONSE: AI returned no text."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.Equal(t, tt.expected, Message(tt.err))
		})
	}
}

func TestError_EmptyIsDistinctFromTransport(t *testing.T) {
	assert.NotEqual(t, Message(NewEmptyResultError()), Message(NewTransportError(errors.New(""))))
}

func TestMessage_PlainError(t *testing.T) {
	assert.Equal(t, "CONNECTION FAILURE: boom", Message(errors.New("boom")))
	assert.Equal(t, "", Message(nil))
}

func TestMessage_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("node 2: %w", NewBackendError(400, "bad request"))
	assert.Equal(t, "⚠️ API ERROR: bad request", Message(wrapped))
	assert.Equal(t, KindBackend, KindOf(wrapped))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConfiguration, KindOf(NewConfigurationError("x")))
	assert.Equal(t, KindEmptyResult, KindOf(NewEmptyResultError()))
	assert.Equal(t, KindTransport, KindOf(errors.New("plain")))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "transport", KindTransport.String())
	assert.Equal(t, "configuration", KindConfiguration.String())
	assert.Equal(t, "backend", KindBackend.String())
	assert.Equal(t, "empty_result", KindEmptyResult.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("reset by peer")
	err := NewTransportError(cause)
	assert.ErrorIs(t, err, cause)

	panicErr := NewPanicError("nil map")
	assert.ErrorIs(t, panicErr, ErrPanic)
	assert.Contains(t, panicErr.Error(), "nil map")
}
