package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"culturegateway/internal/models"
	"culturegateway/internal/router"
	"culturegateway/pkg/logger"
)

// Dispatcher is the slice of the router a session needs.
type Dispatcher interface {
	Do(ctx context.Context, op router.Operation, req *models.GenerationRequest) (*models.UnifiedResponse, error)
}

// Options tune the generation parameters of a session.
type Options struct {
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
}

// Session holds one conversation. The history is owned exclusively by the
// session: the system instruction, when present, stays at index 0, and every
// user message is immediately followed by its assistant reply.
type Session struct {
	id string

	mu      sync.Mutex
	history []models.Message

	temperature     float64
	topP            float64
	maxOutputTokens int

	dispatcher Dispatcher
}

// NewSession creates a conversation, optionally seeded with a system
// instruction stored as the first history entry.
func NewSession(d Dispatcher, systemInstruction string, opts *Options) *Session {
	s := &Session{
		id:         uuid.NewString(),
		dispatcher: d,
	}
	if opts != nil {
		s.temperature = opts.Temperature
		s.topP = opts.TopP
		s.maxOutputTokens = opts.MaxOutputTokens
	}
	if systemInstruction != "" {
		s.history = append(s.history, models.Message{
			Role:    models.RoleSystem,
			Content: systemInstruction,
		})
	}
	logger.Debug("chat session created", "session", s.id)
	return s
}

// ID returns the session identifier used for log correlation.
func (s *Session) ID() string { return s.id }

// Send appends text as a user turn, routes the full history through the chat
// fallback chain and appends the assistant reply. When every provider fails
// the speculative user turn is rolled back so the history only ever records
// completed exchanges. Concurrent sends are serialized.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", models.ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, models.Message{Role: models.RoleUser, Content: text})

	req := &models.GenerationRequest{
		Messages:        append([]models.Message(nil), s.history...),
		Temperature:     s.temperature,
		TopP:            s.topP,
		MaxOutputTokens: s.maxOutputTokens,
	}

	resp, err := s.dispatcher.Do(ctx, router.OpChat, req)
	if err != nil {
		// Roll back the user turn so a retry does not duplicate it.
		s.history = s.history[:len(s.history)-1]
		logger.Warn("chat send failed", "session", s.id, "error", err)
		return "", err
	}

	s.history = append(s.history, models.Message{Role: models.RoleAssistant, Content: resp.Text})
	logger.Debug("chat exchange recorded", "session", s.id, "provider", resp.Provider, "turns", len(s.history))
	return resp.Text, nil
}

// History returns a copy of the conversation; mutating it does not affect the
// session.
func (s *Session) History() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.history...)
}

// ClearHistory resets the conversation to just the system instruction, or to
// empty when none was set.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) > 0 && s.history[0].Role == models.RoleSystem {
		s.history = s.history[:1]
		return
	}
	s.history = nil
}
