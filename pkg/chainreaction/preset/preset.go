// Package preset supplies named, ordered chain topologies.
package preset

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/chainreaction/pkg/chainreaction/template"
)

// NodeDefinition describes one stage of a preset.
type NodeDefinition struct {
	ID             string `json:"id" yaml:"id"`
	Title          string `json:"title" yaml:"title"`
	Role           string `json:"role" yaml:"role"`
	PromptTemplate string `json:"prompt_template" yaml:"prompt_template"`
	Icon           string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Preset is a named, ordered set of node definitions.
// Presets are templates: selecting one copies its definitions into the live chain.
type Preset struct {
	Name  string           `json:"name" yaml:"name"`
	Nodes []NodeDefinition `json:"nodes" yaml:"nodes"`
}

// Sentinel errors for preset registration.
var (
	// ErrEmptyKey indicates a preset was registered without a key.
	ErrEmptyKey = errors.New("preset key is empty")

	// ErrNoNodes indicates a preset has no node definitions.
	ErrNoNodes = errors.New("preset has no nodes")
)

// Clone returns a deep copy of p.
func (p Preset) Clone() Preset {
	nodes := make([]NodeDefinition, len(p.Nodes))
	copy(nodes, p.Nodes)
	return Preset{Name: p.Name, Nodes: nodes}
}

// Validate checks structural shape only: at least one node.
// Id uniqueness is left to the preset author.
func (p Preset) Validate() error {
	if len(p.Nodes) == 0 {
		return fmt.Errorf("preset %q: %w", p.Name, ErrNoNodes)
	}
	return nil
}

// InertReference is a {{NODE_k}} token whose position k is not before the
// node that holds it.
type InertReference struct {
	NodeID   string
	Position int
}

// InertReferences lists the positional tokens in p that can never resolve
// during a run, in node order.
func (p Preset) InertReferences() []InertReference {
	var refs []InertReference
	for i, n := range p.Nodes {
		for _, k := range template.References(n.PromptTemplate) {
			// Node i sits at position i+1; only earlier positions have output.
			if k > i {
				refs = append(refs, InertReference{NodeID: n.ID, Position: k})
			}
		}
	}
	return refs
}
