// Package generation defines the text-generation boundary used by the chain
// orchestrator, its error taxonomy, and a Gemini REST implementation.
package generation

import "context"

// Port produces text for a resolved prompt under a role instruction.
//
// Implementations must bound their own latency: the orchestrator applies no
// timeout and waits for Generate to return. Any failure is returned as an
// error; use *Error to control the text shown on the failing node.
type Port interface {
	Generate(ctx context.Context, prompt, roleInstruction string) (string, error)
}

// PortFunc adapts an ordinary function to the Port interface.
type PortFunc func(ctx context.Context, prompt, roleInstruction string) (string, error)

// Generate implements Port.
func (f PortFunc) Generate(ctx context.Context, prompt, roleInstruction string) (string, error) {
	return f(ctx, prompt, roleInstruction)
}
