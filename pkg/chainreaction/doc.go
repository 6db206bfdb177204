/*
Package chainreaction runs a topic through an ordered chain of agent stages.

# Overview

Each stage (a Node) has a title, a role and a prompt template. Running a
chain resolves every template in turn against the topic and the outputs of
earlier stages, sends the prompt to a generation backend, and feeds the
result forward. Stages run strictly one after another.

Templates understand three tokens:
  - {{INPUT}}: the topic
  - {{PREV_OUTPUT}}: the previous stage's output, or the topic for the first stage
  - {{NODE_k}}: the output of the stage at 1-based position k, once it has run

# Basic Usage

	o, err := chainreaction.New(preset.Builtin(), generation.NewGemini())
	if err != nil {
	    log.Fatal(err)
	}

	o.RunChain(ctx, "Should cities ban cars?")
	for _, n := range o.Nodes() {
	    fmt.Printf("%s [%s]\n%s\n\n", n.Title, n.Status, n.Output)
	}

# Failures

A failed generation does not stop the chain. The failing node ends in
StatusError with a readable message as its output, and the next node sees
that message as {{PREV_OUTPUT}}. RunChain never returns an error.

# Observing Progress

WithObserver receives a Snapshot after every state change:

	o, _ := chainreaction.New(reg, port, chainreaction.WithObserver(func(s chainreaction.Snapshot) {
	    render(s.Nodes)
	}))

# Configuration

NewFromSettings builds a Gemini-backed orchestrator from config.Settings,
loading extra presets from a file and from a memory, SQLite or Redis
preset store.
*/
package chainreaction
