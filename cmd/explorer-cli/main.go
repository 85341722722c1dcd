// Command explorer-cli drives the assist operations from the terminal against
// the configured providers: a single chat turn, text or image analysis, or a
// web-grounded search.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"culturegateway/internal/assist"
	"culturegateway/internal/config"
	"culturegateway/internal/providers"
	"culturegateway/internal/providers/gemini"
	"culturegateway/internal/providers/ollama"
	"culturegateway/internal/providers/openai"
	"culturegateway/internal/router"
	"culturegateway/internal/strategy"
	"culturegateway/pkg/logger"
)

func main() {
	var op string
	var text string
	var category string
	var words int
	var imagePath string
	var mimeType string

	flag.StringVar(&op, "op", "chat", "operation: chat, analyze, image or search")
	flag.StringVar(&text, "text", "", "prompt, question or text to analyze")
	flag.StringVar(&category, "category", "", "optional category context (e.g. \"sacred music\")")
	flag.IntVar(&words, "words", assist.DefaultWordLimit, "approximate response word budget")
	flag.StringVar(&imagePath, "image", "", "path to an image file (op=image)")
	flag.StringVar(&mimeType, "mime", "image/jpeg", "image MIME type (op=image)")
	flag.Parse()

	if text == "" && op != "image" {
		logger.Fatal("Please provide input with --text")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Fatal parsing config: %v", err)
	}
	timeout := cfg.RequestTimeout()

	adapters := map[string]providers.Adapter{
		"ollama": ollama.NewAdapter(cfg.Providers["ollama"].APIKey, cfg.Providers["ollama"].BaseURL, timeout),
		"gemini": gemini.NewAdapter(cfg.Providers["gemini"].APIKey, cfg.Providers["gemini"].BaseURL, timeout),
		"openai": openai.NewAdapter(cfg.Providers["openai"].APIKey, cfg.Providers["openai"].BaseURL, timeout),
	}

	resolver := strategy.NewResolver(cfg.Routing.Rules)
	rt := router.New(adapters, router.ChainsFromConfig(cfg.Chains), resolver)
	svc := assist.New(rt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	switch op {
	case "chat":
		session := svc.NewChatSession(words)
		reply, err := session.Send(ctx, text)
		if err != nil {
			logger.Fatalf("Chat failed: %v", err)
		}
		fmt.Println(reply)

	case "analyze":
		result, err := svc.AnalyzeText(ctx, text, category, words)
		if err != nil {
			logger.Fatalf("Analysis failed: %v", err)
		}
		fmt.Println(result)

	case "image":
		if imagePath == "" {
			logger.Fatal("Please provide an image with --image")
		}
		raw, err := os.ReadFile(imagePath)
		if err != nil {
			logger.Fatalf("Failed to read image %s: %v", imagePath, err)
		}
		result, err := svc.AnalyzeImage(ctx, base64.StdEncoding.EncodeToString(raw), mimeType, category, words)
		if err != nil {
			logger.Fatalf("Image analysis failed: %v", err)
		}
		fmt.Println(result)

	case "search":
		result, err := svc.Search(ctx, text, category, words)
		if err != nil {
			logger.Fatalf("Search failed: %v", err)
		}
		fmt.Println(result.Text)
		if len(result.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range result.Sources {
				fmt.Printf("  - %s (%s)\n", src.Label(), src.URI)
			}
		}

	default:
		logger.Fatalf("Unknown operation: %s", op)
	}

	fmt.Printf("\nTime taken: %s\n", time.Since(start))
}
