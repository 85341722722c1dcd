package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/"

// Adapter speaks the Gemini generateContent schema. It is the only adapter
// that supports web-grounded generation.
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
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *Adapter) Name() string { return "gemini" }

func (a *Adapter) Available() bool { return a.apiKey != "" }

// Gemini API structures
type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiTool struct {
	GoogleSearch struct{} `json:"googleSearch"`
}

type geminiRequest struct {
	Contents          []geminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig"`
	Tools             []geminiTool             `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason      string `json:"finishReason"`
		GroundingMetadata struct {
			GroundingChunks []struct {
				Web struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// mapRequest translates the neutral request into Gemini's two-role scheme.
// System messages are lifted out of the contents list into the top-level
// systemInstruction field; an inline image is attached to the last user turn.
func mapRequest(req *models.GenerationRequest) *geminiRequest {
	greq := &geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.EffectiveTemperature(),
			TopP:            req.EffectiveTopP(),
			MaxOutputTokens: req.EffectiveMaxTokens(),
		},
	}

	var systemParts []geminiPart
	for _, m := range req.Messages {
		role := strings.ToLower(m.Role)
		if role == models.RoleSystem {
			systemParts = append(systemParts, geminiPart{Text: m.Content})
			continue
		}
		// Gemini only supports "user" and "model"
		if role == models.RoleAssistant {
			role = "model"
		} else {
			role = "user"
		}
		greq.Contents = append(greq.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	if len(systemParts) > 0 {
		greq.SystemInstruction = &geminiSystemInstruction{Parts: systemParts}
	}

	if req.ImageData != "" && req.ImageMIMEType != "" {
		attachImage(greq, req)
	}

	if req.EnableWebSearch {
		greq.Tools = []geminiTool{{}}
	}

	return greq
}

// attachImage appends the inline image to the last user turn. When the
// conversation somehow holds no user turn, one is synthesized so the image is
// never silently dropped.
func attachImage(greq *geminiRequest, req *models.GenerationRequest) {
	inline := &geminiInlineData{MIMEType: req.ImageMIMEType, Data: req.ImageData}
	for i := len(greq.Contents) - 1; i >= 0; i-- {
		if greq.Contents[i].Role == "user" {
			greq.Contents[i].Parts = append(greq.Contents[i].Parts, geminiPart{InlineData: inline})
			return
		}
	}
	greq.Contents = append(greq.Contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{InlineData: inline}},
	})
}

// Generate performs a synchronous generateContent call. Absent grounding
// metadata yields an empty source list, never an error.
func (a *Adapter) Generate(ctx context.Context, req *models.GenerationRequest) (*models.UnifiedResponse, error) {
	if !a.Available() {
		return nil, &models.ConfigError{Provider: a.Name(), Missing: "GEMINI_API_KEY"}
	}

	greq := mapRequest(req)
	data, err := json.Marshal(greq)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s%s:generateContent?key=%s", a.baseURL, req.Model, a.apiKey)
	hreq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")

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

	var gresp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gresp); err != nil {
		return nil, &models.ProviderError{Provider: a.Name(), Message: fmt.Sprintf("decoding response: %v", err), Err: err}
	}

	if len(gresp.Candidates) == 0 {
		return nil, &models.ProviderError{Provider: a.Name(), Message: "response carried no candidates"}
	}

	var sb strings.Builder
	for _, part := range gresp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if text == "" {
		return nil, &models.ProviderError{Provider: a.Name(), Message: "response carried no text"}
	}

	sources := []models.Source{}
	for _, chunk := range gresp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web.URI == "" {
			continue
		}
		sources = append(sources, models.Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}

	return &models.UnifiedResponse{
		Text:     text,
		Sources:  sources,
		Provider: a.Name(),
		Model:    req.Model,
		Usage: models.Usage{
			PromptTokens:     gresp.UsageMetadata.PromptTokenCount,
			CompletionTokens: gresp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gresp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
