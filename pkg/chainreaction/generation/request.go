package generation

// HarmCategory names a content-safety category understood by the backend.
type HarmCategory string

// Harm categories sent with every request.
const (
	HarmHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmSexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// BlockThreshold is a content-safety threshold.
type BlockThreshold string

// BlockNone is the most permissive threshold.
const BlockNone BlockThreshold = "BLOCK_NONE"

// SafetySetting pairs a category with its threshold.
type SafetySetting struct {
	Category  HarmCategory   `json:"category"`
	Threshold BlockThreshold `json:"threshold"`
}

// Defaults for generation requests.
const (
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 2000
)

// PermissiveSafety returns every harm category at BlockNone.
func PermissiveSafety() []SafetySetting {
	return []SafetySetting{
		{Category: HarmHarassment, Threshold: BlockNone},
		{Category: HarmHateSpeech, Threshold: BlockNone},
		{Category: HarmSexuallyExplicit, Threshold: BlockNone},
		{Category: HarmDangerousContent, Threshold: BlockNone},
	}
}

// Request is a single generation call as the backend sees it.
type Request struct {
	// Prompt is the resolved node prompt.
	Prompt string `json:"prompt"`

	// SystemInstruction combines the engine persona with the node's role.
	SystemInstruction string `json:"system_instruction,omitempty"`

	// Sampling configuration
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`

	Safety []SafetySetting `json:"safety,omitempty"`
}
