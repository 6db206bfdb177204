package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Gemini defaults.
const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-flash-latest"
	DefaultAPIKeyEnv     = "GEMINI_API_KEY"
	DefaultTimeout       = 60 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// DefaultSystemInstruction is the engine persona prepended to every role.
const DefaultSystemInstruction = `You are "ChainReaction", an advanced agentic workflow engine.
PROTOCOL:
1. Do NOT act like a simple chatbot.
2. If the user greets (e.g., "Hi"), analyze the greeting sociologically or technically. Do not just say "Hello".
3. Output must be structured, high-level, and technical.`

// Gemini implements Port against the Gemini generateContent REST endpoint.
type Gemini struct {
	baseURL           string
	model             string
	apiKey            string
	apiKeyEnv         string
	systemInstruction string
	temperature       float64
	maxOutputTokens   int
	timeout           time.Duration
	httpClient        *http.Client
	logger            *slog.Logger

	missingKeyOnce sync.Once
}

// GeminiOption configures Gemini.
type GeminiOption func(*Gemini)

// NewGemini creates a Gemini port.
// The API key is read from GEMINI_API_KEY at call time unless set with
// WithAPIKey or redirected with WithAPIKeyEnv.
func NewGemini(opts ...GeminiOption) *Gemini {
	g := &Gemini{
		baseURL:           DefaultGeminiBaseURL,
		model:             DefaultGeminiModel,
		apiKeyEnv:         DefaultAPIKeyEnv,
		systemInstruction: DefaultSystemInstruction,
		temperature:       DefaultTemperature,
		maxOutputTokens:   DefaultMaxOutputTokens,
		timeout:           DefaultTimeout,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: g.timeout}
	}
	return g
}

// WithBaseURL sets the API base URL (scheme and host, no trailing path).
func WithBaseURL(u string) GeminiOption {
	return func(g *Gemini) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithModel sets the model name.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithAPIKey sets the API key directly, bypassing the environment.
func WithAPIKey(key string) GeminiOption {
	return func(g *Gemini) { g.apiKey = key }
}

// WithAPIKeyEnv sets the environment variable the API key is read from.
func WithAPIKeyEnv(name string) GeminiOption {
	return func(g *Gemini) {
		if name != "" {
			g.apiKeyEnv = name
		}
	}
}

// WithSystemInstruction replaces the engine persona.
func WithSystemInstruction(s string) GeminiOption {
	return func(g *Gemini) { g.systemInstruction = s }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GeminiOption {
	return func(g *Gemini) { g.temperature = t }
}

// WithMaxOutputTokens sets the output token limit.
func WithMaxOutputTokens(n int) GeminiOption {
	return func(g *Gemini) {
		if n > 0 {
			g.maxOutputTokens = n
		}
	}
}

// WithTimeout bounds each call. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *Gemini) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client. The client should carry its own timeout.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) { g.httpClient = c }
}

// WithGeminiLogger sets the logger.
func WithGeminiLogger(logger *slog.Logger) GeminiOption {
	return func(g *Gemini) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// BuildRequest assembles the request sent for a prompt and role instruction.
func (g *Gemini) BuildRequest(prompt, roleInstruction string) Request {
	return Request{
		Prompt:            prompt,
		SystemInstruction: g.systemInstruction + "\n\nCURRENT AGENT ROLE: " + roleInstruction,
		Temperature:       g.temperature,
		MaxOutputTokens:   g.maxOutputTokens,
		Safety:            PermissiveSafety(),
	}
}

// Generate implements Port.
func (g *Gemini) Generate(ctx context.Context, prompt, roleInstruction string) (string, error) {
	key := g.apiKey
	if key == "" {
		key = os.Getenv(g.apiKeyEnv)
	}
	if key == "" {
		g.missingKeyOnce.Do(func() {
			g.logger.Error("generation api key missing", slog.String("env", g.apiKeyEnv))
		})
		return "", NewConfigurationError(fmt.Sprintf("%s is missing from the environment.", g.apiKeyEnv))
	}

	body, err := json.Marshal(toWire(g.BuildRequest(prompt, roleInstruction)))
	if err != nil {
		return "", NewTransportError(fmt.Errorf("encode request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", NewTransportError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", NewTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", NewTransportError(fmt.Errorf("read response: %w", err))
	}

	var parsed wireResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", NewTransportError(fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}

	g.logger.Debug("generation response",
		slog.String("model", g.model),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			detail = parsed.Error.Message
		}
		return "", NewBackendError(resp.StatusCode, detail)
	}

	text := parsed.text()
	if text == "" {
		return "", NewEmptyResultError()
	}
	return text, nil
}

// Wire types for the generateContent endpoint.

type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type wireRequest struct {
	Contents          []wireContent        `json:"contents"`
	SystemInstruction *wireContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  wireGenerationConfig `json:"generationConfig"`
	SafetySettings    []SafetySetting      `json:"safetySettings,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content wireContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// text returns the first part of the first candidate.
func (r *wireResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

func toWire(req Request) wireRequest {
	w := wireRequest{
		Contents: []wireContent{{Parts: []wirePart{{Text: req.Prompt}}}},
		GenerationConfig: wireGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		},
		SafetySettings: req.Safety,
	}
	if req.SystemInstruction != "" {
		w.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.SystemInstruction}}}
	}
	return w
}
