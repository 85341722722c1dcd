// Command mock serves fake upstream provider endpoints so the gateway can be
// exercised locally without credentials or quota. Point the ollama/openai
// base_url values and GEMINI base URL at this process.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"culturegateway/internal/models"
	"culturegateway/pkg/logger"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", ":8081", "listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	// Gemini paths look like /v1beta/models/{model}:generateContent
	mux.HandleFunc("POST /v1beta/models/", handleGenerateContent)

	fmt.Printf("[Mock] Starting mock upstream on %s\n", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("Mock upstream stopped: %v", err)
	}
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req models.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	time.Sleep(300 * time.Millisecond) // simulate network latency

	if req.Stream {
		streamChatCompletion(w, req.Model)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.ChatCompletionResponse{
		ID:      "chatcmpl-mock",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []models.ChatCompletionChoice{{
			Index: 0,
			Message: models.Message{
				Role:    models.RoleAssistant,
				Content: "Hello! This is a mock completion from the local upstream.",
			},
			FinishReason: "stop",
		}},
		Usage: models.Usage{PromptTokens: 12, CompletionTokens: 10, TotalTokens: 22},
	})
}

func streamChatCompletion(w http.ResponseWriter, model string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")

	words := []string{"Hello!", " I", " am", " a", " mock", " streaming", " assistant."}
	for i, word := range words {
		time.Sleep(100 * time.Millisecond)
		chunk := models.ChatCompletionStreamResponse{
			ID:      "chatcmpl-mock-stream",
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   model,
		}
		chunk.Choices = make([]struct {
			Index int `json:"index"`
			Delta struct {
				Role    string `json:"role,omitempty"`
				Content string `json:"content,omitempty"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		}, 1)
		chunk.Choices[0].Delta.Content = word
		if i == len(words)-1 {
			reason := "stop"
			chunk.Choices[0].FinishReason = &reason
		}
		data, _ := json.Marshal(&chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// handleGenerateContent fakes the Gemini generateContent reply, attaching
// grounding metadata when the request asked for the web search tool.
func handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tools []json.RawMessage `json:"tools"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	time.Sleep(300 * time.Millisecond)

	grounding := ""
	if len(req.Tools) > 0 {
		grounding = `,
        "groundingMetadata": {
          "groundingChunks": [
            {"web": {"uri": "https://example.com/agape", "title": "Agape Feasts"}},
            {"web": {"uri": "https://example.com/communion", "title": ""}}
          ]
        }`
	}

	body := fmt.Sprintf(`{
  "candidates": [
    {
      "content": {"parts": [{"text": "This is a mock Gemini answer."}]},
      "finishReason": "STOP"%s
    }
  ],
  "usageMetadata": {"promptTokenCount": 8, "candidatesTokenCount": 7, "totalTokenCount": 15}
}`, grounding)

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}
