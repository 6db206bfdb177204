package preset

// Keys of the built-in presets.
const (
	KeyDebate = "DEBATE"
	KeyStory  = "STORY"
)

// Debate argues a topic: analysis, attack, verdict.
func Debate() Preset {
	return Preset{
		Name: "Critical Debate",
		Nodes: []NodeDefinition{
			{ID: "1", Title: "The Architect", Role: "LOGIC_CORE", Icon: "cpu",
				PromptTemplate: "Analyze '{{INPUT}}'. Break down 3 logical pillars. Focus on first principles."},
			{ID: "2", Title: "The Adversary", Role: "STRESS_TEST", Icon: "shield",
				PromptTemplate: "Attack these arguments: {{PREV_OUTPUT}}. Identify 3 critical points of failure."},
			{ID: "3", Title: "The Arbiter", Role: "FINAL_VERDICT", Icon: "book",
				PromptTemplate: "Synthesize {{NODE_1}} and {{PREV_OUTPUT}}. Render a final, unbiased judgment."},
		},
	}
}

// Story turns a topic into a short narrative arc.
func Story() Preset {
	return Preset{
		Name: "Creative Engine",
		Nodes: []NodeDefinition{
			{ID: "1", Title: "World Builder", Role: "NARRATIVE", Icon: "book",
				PromptTemplate: "Create a cyberpunk setting for: '{{INPUT}}'. Describe the atmosphere."},
			{ID: "2", Title: "Chaos Agent", Role: "CONFLICT", Icon: "cpu",
				PromptTemplate: "Introduce a catastrophic event to: {{PREV_OUTPUT}}."},
			{ID: "3", Title: "Resolution", Role: "CLIMAX", Icon: "feather",
				PromptTemplate: "Resolve the conflict in {{PREV_OUTPUT}} with a philosophical twist."},
		},
	}
}

// Builtin returns a registry holding DEBATE then STORY.
func Builtin() *Registry {
	r := NewRegistry()
	// Built-ins are well-formed; Register cannot fail here.
	_ = r.Register(KeyDebate, Debate())
	_ = r.Register(KeyStory, Story())
	return r
}
