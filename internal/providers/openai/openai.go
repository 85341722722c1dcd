package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"culturegateway/internal/models"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Adapter speaks the OpenAI chat completions schema, including the multi-part
// vision content shape for image analysis.
type Adapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAdapter(apiKey, baseURL string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) Available() bool { return a.apiKey != "" }

// wireMessage carries either a plain string content or, for vision requests,
// a multi-part content array.
type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageURLPart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL string `json:"url"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
}

// mapMessages converts neutral messages to the wire shape. When an image is
// present, the last user message becomes a multi-part content array holding
// the text and a data: URI built from the base64 payload and MIME type.
func mapMessages(req *models.GenerationRequest) []wireMessage {
	out := make([]wireMessage, len(req.Messages))
	for i, m := range req.Messages {
		out[i] = wireMessage{Role: m.Role, Content: m.Content}
	}

	if req.ImageData == "" || req.ImageMIMEType == "" {
		return out
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", req.ImageMIMEType, req.ImageData)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role != models.RoleUser {
			continue
		}
		text, _ := out[i].Content.(string)
		out[i].Content = []any{
			textPart{Type: "text", Text: text},
			imageURLPart{Type: "image_url", ImageURL: imageURL{URL: dataURI}},
		}
		break
	}
	return out
}

// Generate performs a synchronous chat completion, using the vision content
// shape when the request carries an image.
func (a *Adapter) Generate(ctx context.Context, req *models.GenerationRequest) (*models.UnifiedResponse, error) {
	if !a.Available() {
		return nil, &models.ConfigError{Provider: a.Name(), Missing: "OPENAI_API_KEY"}
	}

	wreq := &wireRequest{
		Model:       req.Model,
		Messages:    mapMessages(req),
		Temperature: req.EffectiveTemperature(),
		TopP:        req.EffectiveTopP(),
		MaxTokens:   req.EffectiveMaxTokens(),
	}
	data, err := json.Marshal(wreq)
	if err != nil {
		return nil, err
	}

	hreq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(hreq)
	if err != nil {
		return nil, &models.ProviderError{Provider: a.Name(), Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &models.ProviderError{
			Provider:   a.Name(),
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var completion models.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, &models.ProviderError{Provider: a.Name(), Message: fmt.Sprintf("decoding response: %v", err), Err: err}
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, &models.ProviderError{Provider: a.Name(), Message: "response carried no choices"}
	}

	model := completion.Model
	if model == "" {
		model = req.Model
	}
	return &models.UnifiedResponse{
		Text:     completion.Choices[0].Message.Content,
		Sources:  []models.Source{},
		Provider: a.Name(),
		Model:    model,
		Usage:    completion.Usage,
	}, nil
}
