package generation

import (
	"context"
	"sync"
	"time"
)

// Call records one invocation of MockPort.
type Call struct {
	Prompt          string
	RoleInstruction string
}

// MockPort is a scripted Port for tests and examples.
// It is safe for concurrent use.
type MockPort struct {
	mu        sync.Mutex
	response  string
	responses []string
	err       error
	errOnCall map[int]error
	fn        func(prompt, roleInstruction string) (string, error)
	delay     time.Duration
	calls     []Call
}

// Compile-time interface check.
var _ Port = (*MockPort)(nil)

// NewMockPort returns a MockPort that always answers with response.
func NewMockPort(response string) *MockPort {
	return &MockPort{response: response, errOnCall: make(map[int]error)}
}

// WithResponses answers calls with responses in order, cycling when exhausted.
func (m *MockPort) WithResponses(responses ...string) *MockPort {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	return m
}

// WithError makes every call fail with err.
func (m *MockPort) WithError(err error) *MockPort {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithErrorOnCall makes the n-th call (1-based) fail with err.
func (m *MockPort) WithErrorOnCall(n int, err error) *MockPort {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errOnCall[n] = err
	return m
}

// WithFunc computes each answer from the prompt and role instruction.
// Scripted errors still take precedence.
func (m *MockPort) WithFunc(fn func(prompt, roleInstruction string) (string, error)) *MockPort {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	return m
}

// WithDelay makes every call wait d, or until ctx is done.
func (m *MockPort) WithDelay(d time.Duration) *MockPort {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Generate implements Port.
func (m *MockPort) Generate(ctx context.Context, prompt, roleInstruction string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Prompt: prompt, RoleInstruction: roleInstruction})
	n := len(m.calls)
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", NewTransportError(ctx.Err())
		}
	}

	m.mu.Lock()
	if err, ok := m.errOnCall[n]; ok {
		m.mu.Unlock()
		return "", err
	}
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return "", err
	}
	fn := m.fn
	response := m.response
	if len(m.responses) > 0 {
		response = m.responses[(n-1)%len(m.responses)]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(prompt, roleInstruction)
	}
	return response, nil
}

// Calls returns a copy of the recorded calls.
func (m *MockPort) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of calls made.
func (m *MockPort) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
