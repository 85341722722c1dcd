package main

import (
	"fmt"

	"github.com/joho/godotenv"

	"culturegateway/internal/config"
	"culturegateway/internal/providers"
	"culturegateway/internal/providers/gemini"
	"culturegateway/internal/providers/ollama"
	"culturegateway/internal/providers/openai"
	"culturegateway/internal/router"
	"culturegateway/internal/server"
	"culturegateway/pkg/logger"
)

func main() {
	// A missing .env is fine; credentials may come from the real environment
	// or the config file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Fatal parsing config: %v", err)
	}
	timeout := cfg.RequestTimeout()

	ollamaAdapter := ollama.NewAdapter(cfg.Providers["ollama"].APIKey, cfg.Providers["ollama"].BaseURL, timeout)
	adapters := map[string]providers.Adapter{
		"ollama": ollamaAdapter,
		"gemini": gemini.NewAdapter(cfg.Providers["gemini"].APIKey, cfg.Providers["gemini"].BaseURL, timeout),
		"openai": openai.NewAdapter(cfg.Providers["openai"].APIKey, cfg.Providers["openai"].BaseURL, timeout),
	}
	for name, a := range adapters {
		// An absent credential disables the provider, never the process.
		logger.Info("provider registered", "provider", name, "configured", a.Available())
	}

	// First chat-chain model per provider, used by the live availability probe.
	probeModels := make(map[string]string)
	for _, entry := range router.ChainsFromConfig(cfg.Chains)[router.OpChat] {
		if _, ok := probeModels[entry.Provider]; !ok {
			probeModels[entry.Provider] = entry.Model
		}
	}

	srv := server.NewServer(ollamaAdapter, adapters, probeModels)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := srv.Start(addr); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}
