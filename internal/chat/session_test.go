package chat

import (
	"context"
	"errors"
	"testing"

	"culturegateway/internal/models"
	"culturegateway/internal/router"
)

// stubDispatcher scripts router outcomes and counts invocations.
type stubDispatcher struct {
	text  string
	err   error
	calls int
	seen  *models.GenerationRequest
}

func (s *stubDispatcher) Do(_ context.Context, _ router.Operation, req *models.GenerationRequest) (*models.UnifiedResponse, error) {
	s.calls++
	s.seen = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.UnifiedResponse{Text: s.text, Sources: []models.Source{}, Provider: "stub"}, nil
}

// --- construction ---

func TestNewSession_SystemInstructionFirst(t *testing.T) {
	s := NewSession(&stubDispatcher{}, "you are an expert", nil)
	h := s.History()
	if len(h) != 1 || h[0].Role != models.RoleSystem || h[0].Content != "you are an expert" {
		t.Errorf("unexpected seeded history: %+v", h)
	}
}

func TestNewSession_UniqueIDs(t *testing.T) {
	a := NewSession(&stubDispatcher{}, "", nil)
	b := NewSession(&stubDispatcher{}, "", nil)
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a.ID(), b.ID())
	}
}

// --- Send ---

func TestSend_AppendsUserAndAssistant(t *testing.T) {
	d := &stubDispatcher{text: "blessed are the peacemakers"}
	s := NewSession(d, "persona", nil)

	before := len(s.History())
	reply, err := s.Send(context.Background(), "what are the beatitudes?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "blessed are the peacemakers" {
		t.Errorf("unexpected reply: %q", reply)
	}

	h := s.History()
	if len(h) != before+2 {
		t.Fatalf("expected history to grow by 2, got %d -> %d", before, len(h))
	}
	if h[len(h)-2].Role != models.RoleUser || h[len(h)-2].Content != "what are the beatitudes?" {
		t.Errorf("unexpected penultimate entry: %+v", h[len(h)-2])
	}
	if h[len(h)-1].Role != models.RoleAssistant || h[len(h)-1].Content != reply {
		t.Errorf("unexpected last entry: %+v", h[len(h)-1])
	}
}

func TestSend_FullHistoryReachesRouter(t *testing.T) {
	d := &stubDispatcher{text: "ok"}
	s := NewSession(d, "persona", nil)

	s.Send(context.Background(), "first")
	s.Send(context.Background(), "second")

	// persona + first + reply + second
	if len(d.seen.Messages) != 4 {
		t.Errorf("expected 4 messages on second send, got %d", len(d.seen.Messages))
	}
	if d.seen.Messages[0].Role != models.RoleSystem {
		t.Error("system instruction should lead the routed history")
	}
}

func TestSend_FailureRollsBackUserMessage(t *testing.T) {
	d := &stubDispatcher{err: &models.ExhaustedError{Operation: "chat", LastProvider: "openai", LastErr: errors.New("boom")}}
	s := NewSession(d, "persona", nil)

	before := len(s.History())
	_, err := s.Send(context.Background(), "doomed message")
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
	if got := len(s.History()); got != before {
		t.Errorf("history must be unchanged after failed send: %d -> %d", before, got)
	}
}

func TestSend_EmptyInputNeverDispatches(t *testing.T) {
	d := &stubDispatcher{text: "never"}
	s := NewSession(d, "persona", nil)

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := s.Send(context.Background(), input)
		if !errors.Is(err, models.ErrEmptyInput) {
			t.Errorf("input %q: expected ErrEmptyInput, got %v", input, err)
		}
	}
	if d.calls != 0 {
		t.Errorf("empty input must not reach the router, got %d calls", d.calls)
	}
	if len(s.History()) != 1 {
		t.Errorf("history must be untouched, got %d entries", len(s.History()))
	}
}

// --- ClearHistory / History ---

func TestClearHistory_PreservesSystemMessage(t *testing.T) {
	d := &stubDispatcher{text: "reply"}
	s := NewSession(d, "persona", nil)
	s.Send(context.Background(), "hello")

	s.ClearHistory()
	h := s.History()
	if len(h) != 1 || h[0].Role != models.RoleSystem {
		t.Errorf("expected only the system message to survive, got %+v", h)
	}
}

func TestClearHistory_NoSystemMessage(t *testing.T) {
	d := &stubDispatcher{text: "reply"}
	s := NewSession(d, "", nil)
	s.Send(context.Background(), "hello")

	s.ClearHistory()
	if got := len(s.History()); got != 0 {
		t.Errorf("expected empty history, got %d entries", got)
	}
}

func TestHistory_ReturnsCopy(t *testing.T) {
	s := NewSession(&stubDispatcher{text: "reply"}, "persona", nil)
	h := s.History()
	h[0].Content = "mutated"
	if s.History()[0].Content != "persona" {
		t.Error("mutating the returned history must not affect the session")
	}
}
