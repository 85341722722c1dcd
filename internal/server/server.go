package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"culturegateway/internal/models"
	"culturegateway/internal/providers"
	"culturegateway/pkg/logger"
)

// Passthrough is the wire-level interface the /api/ollama endpoint needs from
// the Ollama adapter. An interface keeps the server package testable with
// stubs, like the rest of the handlers.
type Passthrough interface {
	Available() bool
	ChatCompletion(ctx context.Context, req *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error)
	ChatCompletionStream(ctx context.Context, req *models.ChatCompletionRequest, streamChan chan<- *models.ChatCompletionStreamResponse) error
}

// Server holds the proxy endpoints that keep provider credentials away from
// the browser.
type Server struct {
	passthrough Passthrough
	adapters    map[string]providers.Adapter
	probeModels map[string]string // provider name -> model used for live probes
}

// NewServer initialises the HTTP proxy. probeModels may be nil; live probing
// then degrades to a credential check.
func NewServer(pt Passthrough, adapters map[string]providers.Adapter, probeModels map[string]string) *Server {
	return &Server{
		passthrough: pt,
		adapters:    adapters,
		probeModels: probeModels,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ollama", s.handleOllama)
	mux.HandleFunc("/api/unified", s.handleUnified)
	mux.HandleFunc("/api/providers", s.handleProviders)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Start starts the standard library net/http server
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	logger.Printf("[Server] Starting AI proxy on %s", addr)
	return server.ListenAndServe()
}

// enableCORS is applied before any other processing on /api routes.
func enableCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// gatePost handles CORS preflight and method filtering shared by the POST
// endpoints. It reports whether the caller should continue.
func gatePost(w http.ResponseWriter, r *http.Request) bool {
	enableCORS(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// writeUpstreamError maps the error taxonomy onto HTTP statuses: missing
// credential is a server misconfiguration (500), an upstream non-2xx keeps its
// status with the upstream body text for debugging, everything else is 500.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var cfgErr *models.ConfigError
	if errors.As(err, &cfgErr) {
		writeError(w, http.StatusInternalServerError, cfgErr.Error())
		return
	}
	var provErr *models.ProviderError
	if errors.As(err, &provErr) && provErr.StatusCode > 0 {
		writeError(w, provErr.StatusCode, provErr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// handleOllama proxies an OpenAI-shaped request to Ollama Cloud and returns
// the upstream completion object verbatim. stream:true switches to SSE
// passthrough.
func (s *Server) handleOllama(w http.ResponseWriter, r *http.Request) {
	if !gatePost(w, r) {
		return
	}

	var req models.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request JSON")
		return
	}
	if req.Model == "" || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields: model and messages")
		return
	}
	if !s.passthrough.Available() {
		writeError(w, http.StatusInternalServerError, "OLLAMA_API_KEY not configured on server")
		return
	}

	if req.Stream {
		s.streamOllama(w, r, &req)
		return
	}

	resp, err := s.passthrough.ChatCompletion(r.Context(), &req)
	if err != nil {
		logger.Error("Ollama proxy upstream error", "error", err)
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) streamOllama(w http.ResponseWriter, r *http.Request, req *models.ChatCompletionRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	streamChan := make(chan *models.ChatCompletionStreamResponse)
	if err := s.passthrough.ChatCompletionStream(r.Context(), req, streamChan); err != nil {
		logger.Error("Ollama proxy stream init error", "error", err)
		writeUpstreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		case chunk, ok := <-streamChan:
			if !ok {
				w.Write([]byte("data: [DONE]\n\n"))
				flusher.Flush()
				return
			}
			data, _ := json.Marshal(chunk)
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

// unifiedRequest is the browser-facing body of /api/unified.
type unifiedRequest struct {
	Provider        string           `json:"provider"`
	Model           string           `json:"model"`
	Messages        []models.Message `json:"messages"`
	Temperature     float64          `json:"temperature,omitempty"`
	MaxTokens       int              `json:"max_tokens,omitempty"`
	TopP            float64          `json:"top_p,omitempty"`
	EnableWebSearch bool             `json:"enableWebSearch,omitempty"`
	Image           string           `json:"image,omitempty"`
	ImageMimeType   string           `json:"imageMimeType,omitempty"`
}

// unifiedEnvelope is both OpenAI-completions-shaped (choices[0].message.content)
// and flat (content), so callers written against either convention work
// unmodified.
type unifiedEnvelope struct {
	Choices []models.ChatCompletionChoice `json:"choices"`
	Content string                        `json:"content"`
	Sources []models.Source               `json:"sources"`
	Model   string                        `json:"model"`
	Usage   models.Usage                  `json:"usage"`
}

// handleUnified forwards a request to the explicitly named provider and
// normalizes the reply into the dual-shape envelope.
func (s *Server) handleUnified(w http.ResponseWriter, r *http.Request) {
	if !gatePost(w, r) {
		return
	}

	var req unifiedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request JSON")
		return
	}
	if req.Provider == "" || req.Model == "" || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields: provider, model, messages")
		return
	}

	adapter, ok := s.adapters[req.Provider]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unsupported provider: "+req.Provider)
		return
	}
	if !adapter.Available() {
		writeError(w, http.StatusInternalServerError, adapter.Name()+" API key not configured on server")
		return
	}

	resp, err := adapter.Generate(r.Context(), &models.GenerationRequest{
		Messages:        req.Messages,
		Model:           req.Model,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxTokens,
		ImageData:       req.Image,
		ImageMIMEType:   req.ImageMimeType,
		EnableWebSearch: req.EnableWebSearch,
	})
	if err != nil {
		logger.Error("Unified proxy upstream error", "provider", req.Provider, "error", err)
		writeUpstreamError(w, err)
		return
	}

	sources := resp.Sources
	if sources == nil {
		sources = []models.Source{}
	}
	writeJSON(w, http.StatusOK, unifiedEnvelope{
		Choices: []models.ChatCompletionChoice{{
			Index:        0,
			Message:      models.Message{Role: models.RoleAssistant, Content: resp.Text},
			FinishReason: "stop",
		}},
		Content: resp.Text,
		Sources: sources,
		Model:   resp.Model,
		Usage:   resp.Usage,
	})
}

// handleProviders reports per-provider availability. By default this is a
// credential check; ?live=true performs a short concurrent generation probe
// against every configured provider.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	enableCORS(w, "GET, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	live := r.URL.Query().Get("live") == "true"
	status := s.probe(r.Context(), live)
	writeJSON(w, http.StatusOK, status)
}

// probe checks every adapter concurrently. Unconfigured providers short
// circuit to false without any network attempt.
func (s *Server) probe(ctx context.Context, live bool) map[string]bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var g errgroup.Group
	results := make(map[string]bool, len(s.adapters))
	resultCh := make(chan struct {
		name string
		ok   bool
	}, len(s.adapters))

	for name, adapter := range s.adapters {
		name, adapter := name, adapter
		g.Go(func() error {
			ok := adapter.Available()
			model := s.probeModels[name]
			if ok && live && model != "" {
				_, err := adapter.Generate(ctx, &models.GenerationRequest{
					Messages:        []models.Message{{Role: models.RoleUser, Content: "ping"}},
					Model:           model,
					MaxOutputTokens: 10,
				})
				if err != nil {
					logger.Warn("provider probe failed", "provider", name, "error", err)
					ok = false
				}
			}
			resultCh <- struct {
				name string
				ok   bool
			}{name, ok}
			return nil
		})
	}

	_ = g.Wait()
	close(resultCh)
	for res := range resultCh {
		results[res.name] = res.ok
	}
	return results
}
