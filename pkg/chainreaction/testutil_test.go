package chainreaction

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/chainreaction/pkg/chainreaction/generation"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/preset"
	"github.com/stretchr/testify/require"
)

// Test presets and helpers shared across tests.

const testPresetKey = "STAGES"

// stagesPreset is the three-node preset from the reference scenario.
func stagesPreset() preset.Preset {
	return preset.Preset{
		Name: "Stages",
		Nodes: []preset.NodeDefinition{
			{ID: "a", Title: "First", Role: "ONE", PromptTemplate: "{{INPUT}} stage1"},
			{ID: "b", Title: "Second", Role: "TWO", PromptTemplate: "{{PREV_OUTPUT}} stage2"},
			{ID: "c", Title: "Third", Role: "THREE", PromptTemplate: "{{NODE_1}}|{{PREV_OUTPUT}} stage3"},
		},
	}
}

// pairPreset is a two-node preset used for switching.
func pairPreset() preset.Preset {
	return preset.Preset{
		Name: "Pair",
		Nodes: []preset.NodeDefinition{
			{ID: "p1", Title: "Opener", Role: "OPEN", PromptTemplate: "open {{INPUT}}"},
			{ID: "p2", Title: "Closer", Role: "CLOSE", PromptTemplate: "close {{PREV_OUTPUT}}"},
		},
	}
}

func testRegistry(t *testing.T) *preset.Registry {
	t.Helper()
	reg := preset.NewRegistry()
	require.NoError(t, reg.Register(testPresetKey, stagesPreset()))
	require.NoError(t, reg.Register("PAIR", pairPreset()))
	return reg
}

// echoPort answers every prompt with "<prompt>:OUT".
func echoPort() *generation.MockPort {
	return generation.NewMockPort("").WithFunc(func(prompt, _ string) (string, error) {
		return prompt + ":OUT", nil
	})
}

func newTestOrchestrator(t *testing.T, port generation.Port, opts ...Option) *Orchestrator {
	t.Helper()
	base := []Option{WithPacing(0), WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))}
	o, err := New(testRegistry(t), port, append(base, opts...)...)
	require.NoError(t, err)
	return o
}

// gatedPort answers "<prompt>:OUT". Calls whose 1-based number has a gate
// block until the gate is opened. Every call is announced on entered.
type gatedPort struct {
	mu      sync.Mutex
	calls   int
	gates   map[int]chan struct{}
	entered chan int
}

func newGatedPort(gated ...int) *gatedPort {
	p := &gatedPort{
		gates:   make(map[int]chan struct{}),
		entered: make(chan int, 32),
	}
	for _, n := range gated {
		p.gates[n] = make(chan struct{})
	}
	return p
}

func (p *gatedPort) Generate(ctx context.Context, prompt, _ string) (string, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	gate := p.gates[n]
	p.mu.Unlock()

	p.entered <- n
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", generation.NewTransportError(ctx.Err())
		}
	}
	return prompt + ":OUT", nil
}

func (p *gatedPort) open(n int) {
	close(p.gates[n])
}

func (p *gatedPort) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// waitEntered waits for the next call to reach the port and returns its number.
func waitEntered(t *testing.T, p *gatedPort) int {
	t.Helper()
	select {
	case n := <-p.entered:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("port was not called")
		return 0
	}
}

// runAsync starts RunChain on a goroutine and returns a channel closed when it returns.
func runAsync(o *Orchestrator, topic string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.RunChain(context.Background(), topic)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
}

// snapshotRecorder collects observer snapshots.
type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (r *snapshotRecorder) observe(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *snapshotRecorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

// fakeMetrics counts recorder calls.
type fakeMetrics struct {
	mu         sync.Mutex
	nodes      map[string]string
	runs       int
	runFailed  int
	skipped    []string
	staleNodes []string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{nodes: make(map[string]string)}
}

func (m *fakeMetrics) RecordNodeExecution(_ context.Context, nodeID string, _ time.Duration, errorKind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[nodeID] = errorKind
}

func (m *fakeMetrics) RecordChainRun(_ context.Context, _ string, failed int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.runFailed += failed
}

func (m *fakeMetrics) RecordSkippedRun(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped = append(m.skipped, reason)
}

func (m *fakeMetrics) RecordStaleResult(_ context.Context, nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleNodes = append(m.staleNodes, nodeID)
}

// testLogHandler captures log records as JSON lines.
type testLogHandler struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{buf: &bytes.Buffer{}}
}

func (h *testLogHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testLogHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h *testLogHandler) WithGroup(_ string) slog.Handler { return h }

func (h *testLogHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var msgs []string
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			msgs = append(msgs, m["msg"].(string))
		}
	}
	return msgs
}
