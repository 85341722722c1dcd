package router

import (
	"context"

	"culturegateway/internal/models"
	"culturegateway/internal/providers"
	"culturegateway/pkg/logger"
)

// Operation is the logical request kind a caller asks for. Each operation has
// its own static provider priority; search puts the grounding-capable
// provider first.
type Operation string

const (
	OpChat   Operation = "chat"
	OpVision Operation = "vision"
	OpSearch Operation = "search"
)

// ChainEntry pairs an adapter with the model the chain wants from it. The
// same provider may appear more than once with different models.
type ChainEntry struct {
	Provider string
	Model    string
}

// ChainResolver optionally overrides which chain serves a request. An empty
// result yields to the operation's default chain. Order inside a chain is
// never reordered dynamically.
type ChainResolver interface {
	Resolve(env map[string]any) string
}

// Router tries a request across an ordered fallback chain until one provider
// succeeds. One attempt per entry, no retries, no caching.
type Router struct {
	adapters map[string]providers.Adapter
	chains   map[Operation][]ChainEntry
	resolver ChainResolver
}

// New builds a router over an explicit adapter set and chain table. resolver
// may be nil.
func New(adapters map[string]providers.Adapter, chains map[Operation][]ChainEntry, resolver ChainResolver) *Router {
	return &Router{
		adapters: adapters,
		chains:   chains,
		resolver: resolver,
	}
}

// Do resolves the chain for op and walks it in priority order. Unavailable
// adapters are skipped without a network attempt. The first success wins; when
// every entry fails the returned ExhaustedError carries the last failure.
//
// For OpSearch, grounding is best effort: only providers that support web
// search attach sources, the rest answer from model knowledge with an empty
// source list.
func (r *Router) Do(ctx context.Context, op Operation, req *models.GenerationRequest) (*models.UnifiedResponse, error) {
	chain := r.resolveChain(op, req)
	if len(chain) == 0 {
		return nil, &models.ConfigError{Provider: string(op), Missing: "provider chain"}
	}

	var lastErr error
	lastProvider := "none"

	for _, entry := range chain {
		adapter, ok := r.adapters[entry.Provider]
		if !ok {
			logger.Warn("chain references unknown provider, skipping", "operation", op, "provider", entry.Provider)
			lastErr = &models.ConfigError{Provider: entry.Provider, Missing: "adapter"}
			lastProvider = entry.Provider
			continue
		}
		if !adapter.Available() {
			logger.Debug("provider not configured, skipping", "operation", op, "provider", entry.Provider)
			lastErr = &models.ConfigError{Provider: entry.Provider, Missing: "credential"}
			lastProvider = entry.Provider
			continue
		}

		attempt := *req
		if entry.Model != "" {
			attempt.Model = entry.Model
		}

		resp, err := adapter.Generate(ctx, &attempt)
		if err != nil {
			logger.Warn("provider attempt failed, falling back",
				"operation", op, "provider", entry.Provider, "model", attempt.Model, "error", err)
			lastErr = err
			lastProvider = entry.Provider
			continue
		}

		resp.Provider = adapter.Name()
		if resp.Model == "" {
			resp.Model = attempt.Model
		}
		if resp.Sources == nil {
			resp.Sources = []models.Source{}
		}
		logger.Info("request served", "operation", op, "provider", resp.Provider, "model", resp.Model)
		return resp, nil
	}

	return nil, &models.ExhaustedError{
		Operation:    string(op),
		LastProvider: lastProvider,
		LastErr:      lastErr,
	}
}

func (r *Router) resolveChain(op Operation, req *models.GenerationRequest) []ChainEntry {
	if r.resolver != nil {
		env := map[string]any{
			"operation":     string(op),
			"message_count": len(req.Messages),
			"has_image":     req.ImageData != "",
			"web_search":    req.EnableWebSearch,
		}
		if name := r.resolver.Resolve(env); name != "" {
			if chain, ok := r.chains[Operation(name)]; ok {
				logger.Debug("routing rule selected chain", "operation", op, "chain", name)
				return chain
			}
			logger.Warn("routing rule selected unknown chain, using default", "chain", name)
		}
	}
	return r.chains[op]
}
