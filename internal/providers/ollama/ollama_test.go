package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"culturegateway/internal/models"
)

func newOKServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		var req models.ChatCompletionRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.ChatCompletionResponse{
			ID:    "cmpl-test",
			Model: req.Model,
			Choices: []models.ChatCompletionChoice{{
				Message: models.Message{Role: models.RoleAssistant, Content: "hi there"},
			}},
			Usage: models.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
		})
	}))
}

// --- availability ---

func TestGenerate_MissingKeyNeverCallsUpstream(t *testing.T) {
	calls := 0
	srv := newOKServer(t, &calls)
	defer srv.Close()

	a := NewAdapter("", srv.URL, time.Second)
	if a.Available() {
		t.Error("adapter without key should not be available")
	}

	_, err := a.Generate(context.Background(), &models.GenerationRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	})
	var cfgErr *models.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no upstream call, got %d", calls)
	}
}

// --- Generate ---

func TestGenerate_NormalizesResponse(t *testing.T) {
	srv := newOKServer(t, nil)
	defer srv.Close()

	a := NewAdapter("test-key", srv.URL, time.Second)
	resp, err := a.Generate(context.Background(), &models.GenerationRequest{
		Model:    "kimi-k2:1t-cloud",
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hi there" {
		t.Errorf("expected text 'hi there', got %q", resp.Text)
	}
	if resp.Provider != "ollama" {
		t.Errorf("expected provider ollama, got %q", resp.Provider)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("expected empty non-nil sources, got %v", resp.Sources)
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("expected usage total 5, got %d", resp.Usage.TotalTokens)
	}
}

func TestGenerate_UpstreamStatusBecomesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	a := NewAdapter("test-key", srv.URL, time.Second)
	_, err := a.Generate(context.Background(), &models.GenerationRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	})
	var provErr *models.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", provErr.StatusCode)
	}
	if provErr.Message != "rate limited" {
		t.Errorf("expected upstream body in message, got %q", provErr.Message)
	}
}

func TestGenerate_EmptyChoicesIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	a := NewAdapter("test-key", srv.URL, time.Second)
	_, err := a.Generate(context.Background(), &models.GenerationRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	})
	var provErr *models.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError for empty choices, got %v", err)
	}
	if provErr.StatusCode != 0 {
		t.Errorf("malformed response should carry no status, got %d", provErr.StatusCode)
	}
}

// --- ChatCompletion passthrough ---

func TestChatCompletion_ReturnsUpstreamVerbatim(t *testing.T) {
	srv := newOKServer(t, nil)
	defer srv.Close()

	a := NewAdapter("test-key", srv.URL, time.Second)
	resp, err := a.ChatCompletion(context.Background(), &models.ChatCompletionRequest{
		Model:    "kimi-k2:1t-cloud",
		Messages: []models.Message{{Role: models.RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ID != "cmpl-test" {
		t.Errorf("expected upstream id, got %q", resp.ID)
	}
	if resp.Model != "kimi-k2:1t-cloud" {
		t.Errorf("expected model echoed, got %q", resp.Model)
	}
}

func TestChatCompletion_MissingKey(t *testing.T) {
	a := NewAdapter("", "", time.Second)
	_, err := a.ChatCompletion(context.Background(), &models.ChatCompletionRequest{})
	var cfgErr *models.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
