package router

import "culturegateway/internal/config"

// DefaultChains is the built-in fallback priority used when the config file
// does not define chains. Chat prefers the hosted Ollama models, vision the
// providers with strong multimodal support, and search the grounding-capable
// provider.
func DefaultChains() map[Operation][]ChainEntry {
	return map[Operation][]ChainEntry{
		OpChat: {
			{Provider: "ollama", Model: "kimi-k2:1t-cloud"},
			{Provider: "ollama", Model: "qwen-coder:480b-cloud"},
			{Provider: "gemini", Model: "gemini-2.0-flash-exp"},
			{Provider: "openai", Model: "gpt-4o"},
		},
		OpVision: {
			{Provider: "gemini", Model: "gemini-2.0-flash-exp"},
			{Provider: "openai", Model: "gpt-4o"},
			{Provider: "ollama", Model: "llava:34b"},
		},
		OpSearch: {
			{Provider: "gemini", Model: "gemini-2.0-flash-exp"},
			{Provider: "ollama", Model: "kimi-k2:1t-cloud"},
			{Provider: "openai", Model: "gpt-4o"},
		},
	}
}

// ChainsFromConfig converts the yaml chain table, falling back to the
// built-in defaults when the file defines none.
func ChainsFromConfig(cfg map[string][]config.ChainEntry) map[Operation][]ChainEntry {
	if len(cfg) == 0 {
		return DefaultChains()
	}
	chains := make(map[Operation][]ChainEntry, len(cfg))
	for name, entries := range cfg {
		chain := make([]ChainEntry, len(entries))
		for i, e := range entries {
			chain[i] = ChainEntry{Provider: e.Provider, Model: e.Model}
		}
		chains[Operation(name)] = chain
	}
	return chains
}
