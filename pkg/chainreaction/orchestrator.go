package chainreaction

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/randalmurphal/chainreaction/pkg/chainreaction/generation"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/observability"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/preset"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/template"
	"go.opentelemetry.io/otel/trace"
)

// MinTopicLength is the shortest trimmed topic, in runes, that starts a run.
const MinTopicLength = 2

// Reasons passed to metrics and logs when RunChain does nothing.
const (
	skipShortTopic = "short_topic"
	skipBusy       = "busy"
)

// RunStatus reports whether a chain run is in progress.
type RunStatus int

const (
	// RunIdle means no run holds the guard.
	RunIdle RunStatus = iota
	// RunRunning means a run is in progress and RunChain calls are ignored.
	RunRunning
)

// String returns the run status name.
func (s RunStatus) String() string {
	switch s {
	case RunIdle:
		return "IDLE"
	case RunRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is a point-in-time copy of orchestrator state.
type Snapshot struct {
	Preset string
	Status RunStatus
	RunID  string
	Nodes  Chain
}

// Orchestrator drives a live chain of nodes through a generation port, one
// node at a time.
//
// All methods are safe for concurrent use. At most one run is active at a
// time; RunChain calls made while a run is active are ignored.
type Orchestrator struct {
	registry *preset.Registry
	port     generation.Port
	cfg      orchestratorConfig

	mu        sync.Mutex
	presetKey string
	chain     Chain
	status    RunStatus
	lastRunID string

	// epoch changes on every reset and preset switch. A run only writes
	// results while the epoch it started in is current.
	epoch uint64
	// runSeq numbers runs; activeRun is the run that holds the guard, 0 if none.
	runSeq    uint64
	activeRun uint64
}

// New creates an orchestrator whose live chain is seeded from the default
// preset: the one named by WithDefaultPreset, else the first key registered.
//
// Example:
//
//	o, err := chainreaction.New(preset.Builtin(), generation.NewGemini())
//	if err != nil {
//	    return err
//	}
//	o.RunChain(ctx, "Universal basic income")
func New(registry *preset.Registry, port generation.Port, opts ...Option) (*Orchestrator, error) {
	if port == nil {
		return nil, ErrNilPort
	}
	if registry == nil || registry.Len() == 0 {
		return nil, ErrNoPresets
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	key := cfg.defaultPreset
	if key == "" {
		key = registry.Keys()[0]
	}
	defs, ok := registry.Definitions(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, key)
	}

	o := &Orchestrator{
		registry:  registry,
		port:      port,
		cfg:       cfg,
		presetKey: key,
		chain:     NewChain(defs),
	}
	for _, k := range registry.Keys() {
		if p, ok := registry.Get(k); ok {
			o.checkReferences(k, p)
		}
	}
	return o, nil
}

// checkReferences warns about positional tokens in p that will never resolve.
// The preset is still accepted.
func (o *Orchestrator) checkReferences(key string, p preset.Preset) {
	for _, ref := range p.InertReferences() {
		observability.LogInertReference(o.cfg.logger, key, ref.NodeID, ref.Position)
	}
}

// RunChain runs every node of the live chain in order and returns when the
// last node has finished.
//
// The call does nothing when the trimmed topic is shorter than
// MinTopicLength or when another run is in progress. Otherwise every node is
// reset to Idle, then each node in turn moves to Thinking, has its template
// resolved, and is sent to the port. The result is recorded as Completed, or
// the failure text as Error, and becomes the next node's previous output.
// Failures never stop the run and are never returned.
//
// If the chain is reset or switched to another preset while the run is in
// flight, the pending result is dropped and the run stops.
func (o *Orchestrator) RunChain(ctx context.Context, topic string) {
	if utf8.RuneCountInString(strings.TrimSpace(topic)) < MinTopicLength {
		o.skip(ctx, skipShortTopic)
		return
	}

	o.mu.Lock()
	if o.status == RunRunning {
		o.mu.Unlock()
		o.skip(ctx, skipBusy)
		return
	}
	o.runSeq++
	seq := o.runSeq
	o.activeRun = seq
	o.status = RunRunning
	runID := o.cfg.newRunID()
	o.lastRunID = runID
	o.chain.Reset()
	epoch := o.epoch
	presetKey := o.presetKey
	order := o.chain.IDs()
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(snap)

	defer o.release(seq)

	elapsed := observability.TimedOperation()
	observability.LogRunStart(o.cfg.logger, runID, presetKey, len(order))

	runCtx := ctx
	var runSpan trace.Span
	if o.cfg.tracingEnabled {
		runCtx, runSpan = o.cfg.spans.StartRunSpan(ctx, presetKey, runID)
	}

	vars := template.Vars{
		Topic:    topic,
		Previous: topic,
		Outputs:  make(map[string]string, len(order)),
		Order:    order,
	}

	completed, failed := 0, 0
	abandoned := false
	for i := range order {
		output, nodeFailed, ok := o.runNode(runCtx, runID, epoch, i, vars)
		if !ok {
			observability.LogRunAbandoned(o.cfg.logger, runID, i+1)
			abandoned = true
			break
		}
		if nodeFailed {
			failed++
		} else {
			completed++
		}
		vars.Outputs[order[i]] = output
		vars.Previous = output

		o.pace(ctx)
	}

	duration := elapsed()
	o.cfg.metrics.RecordChainRun(ctx, presetKey, failed, duration)
	if o.cfg.tracingEnabled {
		var spanErr error
		if abandoned {
			spanErr = errors.New("run abandoned")
		}
		o.cfg.spans.EndSpanWithError(runSpan, spanErr)
	}
	if !abandoned {
		observability.LogRunComplete(o.cfg.logger, runID, float64(duration.Milliseconds()), completed, failed)
	}
}

// runNode executes the node at position i. It returns the recorded output,
// whether the node failed, and false if the chain changed under the run so
// nothing was recorded.
func (o *Orchestrator) runNode(ctx context.Context, runID string, epoch uint64, i int, vars template.Vars) (string, bool, bool) {
	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return "", false, false
	}
	node := &o.chain[i]
	if err := node.Begin(); err != nil {
		o.mu.Unlock()
		return "", false, false
	}
	nodeID := node.ID
	// Template is read when the node starts, not when the run starts.
	prompt := template.Resolve(node.PromptTemplate, vars)
	roleInstruction := template.RoleInstruction(node.Title, node.Role)
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(snap)

	observability.LogNodeStart(o.cfg.logger, nodeID, i+1)

	nodeCtx := ctx
	var nodeSpan trace.Span
	if o.cfg.tracingEnabled {
		nodeCtx, nodeSpan = o.cfg.spans.StartNodeSpan(ctx, nodeID, i+1)
	}

	nodeElapsed := observability.TimedOperation()
	text, genErr := o.generate(nodeCtx, nodeID, prompt, roleInstruction)
	nodeDuration := nodeElapsed()

	output := text
	errorKind := ""
	if genErr != nil {
		output = generation.Message(genErr)
		errorKind = generation.KindOf(genErr).String()
	}

	o.cfg.metrics.RecordNodeExecution(nodeCtx, nodeID, nodeDuration, errorKind)
	if o.cfg.tracingEnabled {
		o.cfg.spans.EndSpanWithError(nodeSpan, genErr)
	}

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		observability.LogStaleResult(o.cfg.logger, runID, nodeID)
		o.cfg.metrics.RecordStaleResult(ctx, nodeID)
		return "", false, false
	}
	node = &o.chain[i]
	var transErr error
	if genErr != nil {
		transErr = node.Fail(output)
	} else {
		transErr = node.Complete(output)
	}
	snap = o.snapshotLocked()
	o.mu.Unlock()
	if transErr != nil {
		return "", false, false
	}
	o.notify(snap)

	if genErr != nil {
		observability.LogNodeError(o.cfg.logger, nodeID, errorKind, genErr)
	} else {
		observability.LogNodeComplete(o.cfg.logger, nodeID, float64(nodeDuration.Milliseconds()), len(output))
	}

	return output, genErr != nil, true
}

// generate calls the port with panic recovery. Blank text is an empty result.
func (o *Orchestrator) generate(ctx context.Context, nodeID, prompt, roleInstruction string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	text, err = o.port.Generate(ctx, prompt, roleInstruction)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", generation.NewEmptyResultError()
	}
	return text, nil
}

// pace waits the configured interval or until ctx is done.
func (o *Orchestrator) pace(ctx context.Context) {
	if o.cfg.pacing <= 0 {
		return
	}
	timer := time.NewTimer(o.cfg.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// release clears the run guard if run seq still owns it.
func (o *Orchestrator) release(seq uint64) {
	o.mu.Lock()
	if o.activeRun != seq {
		o.mu.Unlock()
		return
	}
	o.activeRun = 0
	o.status = RunIdle
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(snap)
}

func (o *Orchestrator) skip(ctx context.Context, reason string) {
	observability.LogRunSkipped(o.cfg.logger, reason)
	o.cfg.metrics.RecordSkippedRun(ctx, reason)
}

// ResetChain clears the run guard and restores the live chain to the active
// preset's definitions, discarding outputs and template edits. It may be
// called at any time; an in-flight generation call is not interrupted but its
// result is dropped.
func (o *Orchestrator) ResetChain() {
	o.mu.Lock()
	wasRunning := o.status == RunRunning
	o.status = RunIdle
	o.activeRun = 0
	o.epoch++
	if defs, ok := o.registry.Definitions(o.presetKey); ok {
		o.chain = NewChain(defs)
	} else {
		o.chain.Reset()
	}
	presetKey := o.presetKey
	snap := o.snapshotLocked()
	o.mu.Unlock()

	observability.LogReset(o.cfg.logger, presetKey, wasRunning)
	o.notify(snap)
}

// SwitchPreset replaces the live chain with a fresh copy of the preset
// registered under key. The run guard is left as is; a run in flight stops
// at its next node.
func (o *Orchestrator) SwitchPreset(key string) error {
	defs, ok := o.registry.Definitions(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, key)
	}

	o.mu.Lock()
	from := o.presetKey
	o.presetKey = key
	o.chain = NewChain(defs)
	o.epoch++
	snap := o.snapshotLocked()
	o.mu.Unlock()

	observability.LogPresetSwitch(o.cfg.logger, from, key)
	o.notify(snap)
	return nil
}

// EditTemplate replaces the prompt template of the live node with nodeID.
// The new template is used the next time that node runs.
func (o *Orchestrator) EditTemplate(nodeID, tmpl string) error {
	o.mu.Lock()
	idx := o.chain.Index(nodeID)
	if idx < 0 {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	o.chain[idx].PromptTemplate = tmpl
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	return nil
}

// SavePreset persists p to the attached store, if any, then registers it
// under key. A failed store write leaves the registry unchanged.
func (o *Orchestrator) SavePreset(ctx context.Context, key string, p preset.Preset) error {
	if o.cfg.store != nil {
		if err := preset.Save(ctx, o.cfg.store, key, p); err != nil {
			return err
		}
	}
	if err := o.registry.Register(key, p); err != nil {
		return err
	}
	o.checkReferences(key, p)
	return nil
}

// Presets returns the registered preset keys in registration order.
func (o *Orchestrator) Presets() []string {
	return o.registry.Keys()
}

// Nodes returns a copy of the live chain.
func (o *Orchestrator) Nodes() Chain {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.chain.Clone()
}

// Status returns whether a run is in progress.
func (o *Orchestrator) Status() RunStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// ActivePreset returns the key of the preset loaded into the live chain.
func (o *Orchestrator) ActivePreset() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.presetKey
}

// LastRunID returns the id of the most recent run, or "" if none has started.
func (o *Orchestrator) LastRunID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastRunID
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Close closes the attached preset store, if any.
func (o *Orchestrator) Close() error {
	if o.cfg.store == nil {
		return nil
	}
	return o.cfg.store.Close()
}

// snapshotLocked copies state. Caller must hold o.mu.
func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		Preset: o.presetKey,
		Status: o.status,
		RunID:  o.lastRunID,
		Nodes:  o.chain.Clone(),
	}
}

func (o *Orchestrator) notify(s Snapshot) {
	if o.cfg.observer != nil {
		o.cfg.observer(s)
	}
}
