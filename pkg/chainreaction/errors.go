package chainreaction

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/chainreaction/pkg/chainreaction/generation"
)

// Sentinel errors for orchestrator construction and chain edits.
var (
	// ErrUnknownPreset indicates a preset key is not in the registry.
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrNodeNotFound indicates a node id is not in the live chain.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidTransition indicates a node status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid node transition")

	// ErrNoPresets indicates New was given a nil or empty registry.
	ErrNoPresets = errors.New("registry has no presets")

	// ErrNilPort indicates New was given a nil generation port.
	ErrNilPort = errors.New("generation port cannot be nil")
)

// TransitionError reports a disallowed node status change.
type TransitionError struct {
	NodeID string
	From   NodeStatus
	To     NodeStatus
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("node %s: %s -> %s: %v", e.NodeID, e.From, e.To, ErrInvalidTransition)
}

// Unwrap returns ErrInvalidTransition for errors.Is support.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// PanicError captures a panic raised by the generation port while a node ran.
type PanicError struct {
	// NodeID is the node whose generation panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the goroutine stack at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in node %s: %v", e.NodeID, e.Value)
}

// Unwrap returns the panic as a transport generation.Error.
func (e *PanicError) Unwrap() error {
	return generation.NewPanicError(e.Value)
}
