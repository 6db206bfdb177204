/*
Package template resolves placeholder tokens in node prompt templates.

# Tokens

Three fixed literal tokens are recognised:

  - {{INPUT}} - the original topic of the chain
  - {{PREV_OUTPUT}} - the output of the preceding node (the topic for the first node)
  - {{NODE_k}} - the output of the node at 1-based position k in the chain

Tokens are not a general interpolation language. There is no nesting and no
escaping, and substituted text is never re-scanned.

# Forward References

A {{NODE_k}} token whose node has not produced output yet is left in the
prompt unchanged:

	out := template.Resolve("{{NODE_3}} vs {{INPUT}}", template.Vars{Topic: "X"})
	// out: "{{NODE_3}} vs X"

# Thread Safety

Resolve is a pure function and safe for concurrent use.
*/
package template
