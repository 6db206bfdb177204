package template

import (
	"fmt"
	"regexp"
	"strconv"
)

// Placeholder tokens recognised in prompt templates.
const (
	TokenInput      = "{{INPUT}}"
	TokenPrevOutput = "{{PREV_OUTPUT}}"
)

// tokenPattern matches {{INPUT}}, {{PREV_OUTPUT}} and {{NODE_<k>}} with k >= 1
// and no leading zero. Anything else between braces is ordinary text.
var tokenPattern = regexp.MustCompile(`\{\{(INPUT|PREV_OUTPUT|NODE_([1-9][0-9]*))\}\}`)

// Vars is the context a template is resolved against.
type Vars struct {
	// Topic is the original input of the chain. It never changes during a run.
	Topic string

	// Previous is the output of the immediately preceding node, or the topic
	// for the first node.
	Previous string

	// Outputs maps node id to the output that node produced in this run.
	// Nodes that have not run yet are absent.
	Outputs map[string]string

	// Order lists node ids in chain order. NODE_k refers to Order[k-1].
	Order []string
}

// Resolve expands placeholder tokens in tmpl.
//
// {{INPUT}} and {{PREV_OUTPUT}} always resolve. {{NODE_k}} resolves to the
// output of the node at 1-based position k only if that node has already
// produced output; otherwise the token is left in place verbatim.
//
// Every occurrence is replaced. The template is scanned once, so text that
// was substituted in is never expanded again.
//
// Example:
//
//	out := template.Resolve("Attack: {{PREV_OUTPUT}}", template.Vars{Previous: "three pillars"})
//	// out: "Attack: three pillars"
func Resolve(tmpl string, vars Vars) string {
	if tmpl == "" {
		return ""
	}

	return tokenPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		switch match {
		case TokenInput:
			return vars.Topic
		case TokenPrevOutput:
			return vars.Previous
		}

		// NODE_k: strip "{{NODE_" and "}}".
		k, err := strconv.Atoi(match[len("{{NODE_") : len(match)-2])
		if err != nil || k > len(vars.Order) {
			return match
		}
		if out, ok := vars.Outputs[vars.Order[k-1]]; ok {
			return out
		}
		return match // Not produced yet; forward references stay inert.
	})
}

// References returns the positions referenced by {{NODE_k}} tokens in tmpl,
// in order of appearance. Duplicates are kept.
func References(tmpl string) []int {
	matches := tokenPattern.FindAllStringSubmatch(tmpl, -1)
	var refs []int
	for _, m := range matches {
		if m[2] == "" {
			continue
		}
		k, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		refs = append(refs, k)
	}
	return refs
}

// RoleInstruction builds the role descriptor sent alongside a node's prompt.
func RoleInstruction(title, role string) string {
	return fmt.Sprintf("You are %s. Role: %s", title, role)
}
