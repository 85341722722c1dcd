package ollama

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
	"culturegateway/pkg/httputil"
	"culturegateway/pkg/logger"
)

const defaultBaseURL = "https://api.ollama.cloud"

// Adapter speaks the OpenAI-compatible chat completions schema exposed by
// Ollama Cloud. It refuses to call the upstream without a credential.
type Adapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAdapter creates the Ollama Cloud adapter. An empty baseURL selects the
// hosted endpoint; an empty apiKey leaves the adapter unavailable.
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

func (a *Adapter) Name() string { return "ollama" }

func (a *Adapter) Available() bool { return a.apiKey != "" }

func (a *Adapter) postCompletions(ctx context.Context, reqBody any) (*http.Response, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := a.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		logger.Error("Ollama API network request failed", "error", err)
	}
	return resp, err
}

// Generate performs a synchronous completion and normalizes the reply.
func (a *Adapter) Generate(ctx context.Context, req *models.GenerationRequest) (*models.UnifiedResponse, error) {
	if !a.Available() {
		return nil, &models.ConfigError{Provider: a.Name(), Missing: "OLLAMA_API_KEY"}
	}

	wireReq := &models.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.EffectiveTemperature(),
		TopP:        req.EffectiveTopP(),
		MaxTokens:   req.EffectiveMaxTokens(),
		Stream:      false,
	}

	completion, err := a.chatCompletion(ctx, wireReq)
	if err != nil {
		return nil, err
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

// ChatCompletion forwards an OpenAI-shaped request verbatim and returns the
// upstream completion object unmodified. Used by the passthrough endpoint.
func (a *Adapter) ChatCompletion(ctx context.Context, req *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	if !a.Available() {
		return nil, &models.ConfigError{Provider: a.Name(), Missing: "OLLAMA_API_KEY"}
	}
	req.Stream = false
	return a.chatCompletion(ctx, req)
}

func (a *Adapter) chatCompletion(ctx context.Context, req *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	resp, err := a.postCompletions(ctx, req)
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
	return &completion, nil
}

// ChatCompletionStream performs a streaming request, returning fragments
// through streamChan. The channel is closed when the upstream stream ends.
func (a *Adapter) ChatCompletionStream(ctx context.Context, req *models.ChatCompletionRequest, streamChan chan<- *models.ChatCompletionStreamResponse) error {
	if !a.Available() {
		return &models.ConfigError{Provider: a.Name(), Missing: "OLLAMA_API_KEY"}
	}
	req.Stream = true

	resp, err := a.postCompletions(ctx, req)
	if err != nil {
		return &models.ProviderError{Provider: a.Name(), Message: err.Error(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return &models.ProviderError{
			Provider:   a.Name(),
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	go a.pipeStream(ctx, resp, streamChan)
	return nil
}

func (a *Adapter) pipeStream(ctx context.Context, resp *http.Response, streamChan chan<- *models.ChatCompletionStreamResponse) {
	defer resp.Body.Close()
	defer close(streamChan)

	err := httputil.ProcessSSEStream(resp.Body, func(data []byte) error {
		var chunk models.ChatCompletionStreamResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case streamChan <- &chunk:
			return nil
		}
	})

	if err != nil && err != context.Canceled {
		logger.Error("Ollama stream error", "error", err)
	}
}
