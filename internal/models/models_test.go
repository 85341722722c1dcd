package models

import (
	"errors"
	"strings"
	"testing"
)

// --- Source.Label ---

func TestSourceLabel_PreferredTitle(t *testing.T) {
	s := Source{Title: "Agape Feasts", URI: "https://example.com/agape"}
	if got := s.Label(); got != "Agape Feasts" {
		t.Errorf("expected title as label, got %q", got)
	}
}

func TestSourceLabel_FallsBackToURI(t *testing.T) {
	s := Source{URI: "https://example.com/agape"}
	if got := s.Label(); got != "https://example.com/agape" {
		t.Errorf("expected uri as label, got %q", got)
	}
}

// --- GenerationRequest defaults ---

func TestGenerationRequestDefaults(t *testing.T) {
	req := &GenerationRequest{}
	if got := req.EffectiveTemperature(); got != DefaultTemperature {
		t.Errorf("expected default temperature %v, got %v", DefaultTemperature, got)
	}
	if got := req.EffectiveTopP(); got != DefaultTopP {
		t.Errorf("expected default topP %v, got %v", DefaultTopP, got)
	}
	if got := req.EffectiveMaxTokens(); got != DefaultMaxOutputTokens {
		t.Errorf("expected default max tokens %v, got %v", DefaultMaxOutputTokens, got)
	}
}

func TestGenerationRequestExplicitValues(t *testing.T) {
	req := &GenerationRequest{Temperature: 0.2, TopP: 0.5, MaxOutputTokens: 100}
	if got := req.EffectiveTemperature(); got != 0.2 {
		t.Errorf("expected 0.2, got %v", got)
	}
	if got := req.EffectiveTopP(); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := req.EffectiveMaxTokens(); got != 100 {
		t.Errorf("expected 100, got %v", got)
	}
}

// --- error taxonomy ---

func TestProviderError_MessageWithStatus(t *testing.T) {
	err := &ProviderError{Provider: "gemini", StatusCode: 429, Message: "quota exceeded"}
	msg := err.Error()
	if !strings.Contains(msg, "gemini") || !strings.Contains(msg, "429") || !strings.Contains(msg, "quota exceeded") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestProviderError_MessageWithoutStatus(t *testing.T) {
	err := &ProviderError{Provider: "ollama", Message: "connection refused"}
	if strings.Contains(err.Error(), "api error 0") {
		t.Errorf("status should be omitted when zero: %s", err.Error())
	}
}

func TestExhaustedError_CarriesLastFailure(t *testing.T) {
	last := &ProviderError{Provider: "openai", StatusCode: 500, Message: "boom"}
	err := &ExhaustedError{Operation: "chat", LastProvider: "openai", LastErr: last}
	if !strings.Contains(err.Error(), "openai") {
		t.Errorf("expected last provider in message: %s", err.Error())
	}

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Error("expected errors.As to unwrap the last provider error")
	}
}

func TestConfigError_Message(t *testing.T) {
	err := &ConfigError{Provider: "ollama", Missing: "OLLAMA_API_KEY"}
	if !strings.Contains(err.Error(), "not configured") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestErrEmptyInput_IsValidationError(t *testing.T) {
	var ve *ValidationError
	if !errors.As(ErrEmptyInput, &ve) {
		t.Error("ErrEmptyInput should be a ValidationError")
	}
}
