package chainreaction

import "github.com/randalmurphal/chainreaction/pkg/chainreaction/preset"

// NodeStatus is the lifecycle state of one chain node.
type NodeStatus int

const (
	// StatusIdle means the node has not run since the last reset.
	StatusIdle NodeStatus = iota
	// StatusThinking means the node's generation call is in flight.
	StatusThinking
	// StatusCompleted means the node produced output.
	StatusCompleted
	// StatusError means the node's generation failed; Output holds the failure text.
	StatusError
)

// String returns the status name.
func (s NodeStatus) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusThinking:
		return "THINKING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s is Completed or Error.
func (s NodeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Node is one stage of a live chain.
//
// Output is non-empty only when Status is Completed or Error.
type Node struct {
	ID             string
	Title          string
	Role           string
	PromptTemplate string
	Icon           string
	Output         string
	Status         NodeStatus
}

// NewNode creates an idle node from a preset definition.
func NewNode(def preset.NodeDefinition) Node {
	return Node{
		ID:             def.ID,
		Title:          def.Title,
		Role:           def.Role,
		PromptTemplate: def.PromptTemplate,
		Icon:           def.Icon,
	}
}

// Begin moves the node from Idle to Thinking.
func (n *Node) Begin() error {
	if n.Status != StatusIdle {
		return &TransitionError{NodeID: n.ID, From: n.Status, To: StatusThinking}
	}
	n.Status = StatusThinking
	return nil
}

// Complete records output and moves the node from Thinking to Completed.
func (n *Node) Complete(output string) error {
	if n.Status != StatusThinking {
		return &TransitionError{NodeID: n.ID, From: n.Status, To: StatusCompleted}
	}
	n.Output = output
	n.Status = StatusCompleted
	return nil
}

// Fail records a failure message and moves the node from Thinking to Error.
func (n *Node) Fail(message string) error {
	if n.Status != StatusThinking {
		return &TransitionError{NodeID: n.ID, From: n.Status, To: StatusError}
	}
	n.Output = message
	n.Status = StatusError
	return nil
}

// Reset returns the node to Idle with no output. Valid from any state.
func (n *Node) Reset() {
	n.Output = ""
	n.Status = StatusIdle
}

// Chain is an ordered sequence of nodes. Order defines both execution order
// and the positions NODE_k tokens refer to.
type Chain []Node

// NewChain creates an idle chain from preset definitions.
func NewChain(defs []preset.NodeDefinition) Chain {
	c := make(Chain, len(defs))
	for i, def := range defs {
		c[i] = NewNode(def)
	}
	return c
}

// Clone returns a copy of c.
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}
	out := make(Chain, len(c))
	copy(out, c)
	return out
}

// IDs returns node ids in chain order.
func (c Chain) IDs() []string {
	ids := make([]string, len(c))
	for i := range c {
		ids[i] = c[i].ID
	}
	return ids
}

// Index returns the position of the node with id, or -1.
func (c Chain) Index(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Thinking returns how many nodes are currently Thinking.
func (c Chain) Thinking() int {
	return c.count(StatusThinking)
}

// Completed returns how many nodes are Completed.
func (c Chain) Completed() int {
	return c.count(StatusCompleted)
}

// Failed returns how many nodes are in Error.
func (c Chain) Failed() int {
	return c.count(StatusError)
}

func (c Chain) count(s NodeStatus) int {
	n := 0
	for i := range c {
		if c[i].Status == s {
			n++
		}
	}
	return n
}

// Reset returns every node to Idle with no output.
func (c Chain) Reset() {
	for i := range c {
		c[i].Reset()
	}
}
