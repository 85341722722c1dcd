package strategy

import (
	"testing"

	"culturegateway/internal/config"
)

func TestResolver_Rules(t *testing.T) {
	r := NewResolver([]config.RouteRule{
		{Condition: `operation == "chat" && has_image`, Chain: "vision"},
		{Condition: `web_search`, Chain: "search"},
		{Condition: `message_count > 20`, Chain: "long"},
	})

	tests := []struct {
		name     string
		env      map[string]any
		expected string
	}{
		{
			"image in a chat request reroutes to vision",
			map[string]any{"operation": "chat", "has_image": true, "web_search": false, "message_count": 2},
			"vision",
		},
		{
			"web search rule matches",
			map[string]any{"operation": "chat", "has_image": false, "web_search": true, "message_count": 2},
			"search",
		},
		{
			"long conversation rule matches",
			map[string]any{"operation": "chat", "has_image": false, "web_search": false, "message_count": 30},
			"long",
		},
		{
			"no rule matches yields empty",
			map[string]any{"operation": "chat", "has_image": false, "web_search": false, "message_count": 2},
			"",
		},
		{
			"missing variable fails that rule and falls through",
			map[string]any{"web_search": true},
			"search",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Resolve(tc.env); got != tc.expected {
				t.Errorf("expected %q, got %q for env %v", tc.expected, got, tc.env)
			}
		})
	}
}

func TestResolver_BadExpressionSkipped(t *testing.T) {
	r := NewResolver([]config.RouteRule{
		{Condition: `this is not (valid`, Chain: "broken"},
		{Condition: `true`, Chain: "ok"},
	})
	if got := r.Resolve(map[string]any{}); got != "ok" {
		t.Errorf("expected compile failure to be skipped, got %q", got)
	}
}

func TestResolver_NoRules(t *testing.T) {
	r := NewResolver(nil)
	if got := r.Resolve(map[string]any{"operation": "chat"}); got != "" {
		t.Errorf("expected empty result with no rules, got %q", got)
	}
}
