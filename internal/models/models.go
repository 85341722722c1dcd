package models

// Message is a single conversation turn in the OpenAI wire shape shared by
// all adapters and by the proxy endpoints.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Generation defaults applied when the caller leaves a knob unset.
const (
	DefaultTemperature     = 0.7
	DefaultTopP            = 0.9
	DefaultMaxOutputTokens = 2000
)

// ChatCompletionRequest is the OpenAI-compatible request body accepted by the
// passthrough endpoint and forwarded to OpenAI-compatible upstreams.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Usage carries normalized token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChoice is one completion candidate in the OpenAI envelope.
type ChatCompletionChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatCompletionResponse mirrors the OpenAI chat completion envelope.
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   Usage                  `json:"usage"`
}

// ChatCompletionStreamResponse is one SSE chunk of a streamed completion.
type ChatCompletionStreamResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// GenerationRequest is the provider-neutral request each adapter translates
// into its upstream's schema. Model is filled in by the router from the
// active chain entry; direct callers may set it themselves.
type GenerationRequest struct {
	Messages        []Message
	Model           string
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
	ImageData       string // base64 payload without the data: prefix
	ImageMIMEType   string
	EnableWebSearch bool
}

// EffectiveTemperature returns the request temperature or the default when unset.
func (r *GenerationRequest) EffectiveTemperature() float64 {
	if r.Temperature > 0 {
		return r.Temperature
	}
	return DefaultTemperature
}

// EffectiveTopP returns the request topP or the default when unset.
func (r *GenerationRequest) EffectiveTopP() float64 {
	if r.TopP > 0 {
		return r.TopP
	}
	return DefaultTopP
}

// EffectiveMaxTokens returns the output budget or the default when unset.
func (r *GenerationRequest) EffectiveMaxTokens() int {
	if r.MaxOutputTokens > 0 {
		return r.MaxOutputTokens
	}
	return DefaultMaxOutputTokens
}

// Source is one grounding citation attached to a generated answer.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Label returns the display label for the source: the title when present,
// otherwise the URI itself.
func (s Source) Label() string {
	if s.Title != "" {
		return s.Title
	}
	return s.URI
}

// UnifiedResponse is the single normalized shape every adapter produces.
// Sources is always non-nil; it is empty unless the serving provider performed
// web-grounded generation.
type UnifiedResponse struct {
	Text     string   `json:"text"`
	Sources  []Source `json:"sources"`
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	Usage    Usage    `json:"usage"`
}
