// Package assist is the operation surface the explorer UI consumes: chat
// sessions, text and image analysis and web-grounded search, each phrased as
// Cultural Explorer prompts with an approximate word budget.
package assist

import (
	"context"
	"fmt"

	"culturegateway/internal/chat"
	"culturegateway/internal/models"
	"culturegateway/internal/router"
)

// DefaultWordLimit is the approximate response length used when a caller
// passes a non-positive limit.
const DefaultWordLimit = 100

// tokensPerWord converts a word budget into a max output token budget.
const tokensPerWord = 10

// Service builds prompts and dispatches them through the fallback router.
type Service struct {
	dispatcher chat.Dispatcher
}

func New(d chat.Dispatcher) *Service {
	return &Service{dispatcher: d}
}

func systemInstruction(wordLimit int) string {
	return fmt.Sprintf(`You are a Cultural Explorer Assistant, an AI expert on Christian cultural traditions, history, and practices.

Your expertise covers:
- Christian food traditions, communion, agape feasts, and biblical meals
- Pilgrimage routes, holy sites, and biblical locations
- Sacred music, hymns, chants, and worship traditions
- Christian art, icons, architecture, and visual culture
- Biblical manuscripts, church fathers, and theological literature
- Christian meditation, contemplative prayer, and spiritual practices

You are knowledgeable, respectful, and culturally sensitive. Answer questions with historical accuracy, theological depth, and pastoral wisdom. Use markdown for formatting when appropriate. Always be helpful and encouraging in exploring the richness of Christian cultural heritage.

IMPORTANT: Limit each response to approximately %d words unless the user explicitly asks for more details or a longer explanation. Be concise and focused on the most essential information.

Respond primarily in Traditional Chinese (繁體中文) unless the user writes in English.`, wordLimit)
}

func normalizeWordLimit(wordLimit int) int {
	if wordLimit <= 0 {
		return DefaultWordLimit
	}
	return wordLimit
}

// NewChatSession creates a conversation seeded with the Cultural Explorer
// persona and the given word budget.
func (s *Service) NewChatSession(wordLimit int) *chat.Session {
	wordLimit = normalizeWordLimit(wordLimit)
	return chat.NewSession(s.dispatcher, systemInstruction(wordLimit), &chat.Options{
		Temperature:     models.DefaultTemperature,
		TopP:            models.DefaultTopP,
		MaxOutputTokens: wordLimit * tokensPerWord,
	})
}

// AnalyzeText explains a passage's cultural and historical context.
func (s *Service) AnalyzeText(ctx context.Context, text, categoryContext string, wordLimit int) (string, error) {
	if text == "" {
		return "", &models.ValidationError{Reason: "text to analyze is empty"}
	}
	wordLimit = normalizeWordLimit(wordLimit)

	contextPrompt := "Analyze the following text for its cultural and historical context in Christianity."
	if categoryContext != "" {
		contextPrompt = fmt.Sprintf("Analyze the following text in the context of %s.", categoryContext)
	}

	prompt := fmt.Sprintf(`%s

IMPORTANT: Limit your response to approximately %d words. Be concise and focused.

Briefly identify the most relevant:
- Biblical references and theological concepts
- Historical periods, events, or figures
- Cultural practices and traditions
- Symbolic meanings and spiritual significance

Explain their key importance and connections to Christian faith and practice. Present findings concisely using markdown.

Respond in Traditional Chinese (繁體中文) with English terms in parentheses where appropriate.

Text to analyze:
---
%s`, contextPrompt, wordLimit, text)

	resp, err := s.dispatcher.Do(ctx, router.OpChat, &models.GenerationRequest{
		Messages:        []models.Message{{Role: models.RoleUser, Content: prompt}},
		MaxOutputTokens: wordLimit * tokensPerWord,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// AnalyzeImage describes an uploaded image's rituals, symbols and history.
// imageBase64 is the raw base64 payload without a data: prefix.
func (s *Service) AnalyzeImage(ctx context.Context, imageBase64, mimeType, categoryContext string, wordLimit int) (string, error) {
	if imageBase64 == "" || mimeType == "" {
		return "", &models.ValidationError{Reason: "image payload and MIME type are required"}
	}
	wordLimit = normalizeWordLimit(wordLimit)

	contextPrompt := "Analyze this image for its cultural and historical context in Christianity."
	if categoryContext != "" {
		contextPrompt = fmt.Sprintf("Analyze this image in the context of %s.", categoryContext)
	}

	prompt := fmt.Sprintf(`%s

IMPORTANT: Limit your response to approximately %d words. Be concise and focused.

Briefly describe key rituals, symbols, art, architecture, or historical significance. Explain their theological meaning and cultural importance. Present your findings in a clear format using markdown. Respond in Traditional Chinese (繁體中文) with English terms in parentheses where appropriate.`, contextPrompt, wordLimit)

	resp, err := s.dispatcher.Do(ctx, router.OpVision, &models.GenerationRequest{
		Messages:        []models.Message{{Role: models.RoleUser, Content: prompt}},
		ImageData:       imageBase64,
		ImageMIMEType:   mimeType,
		MaxOutputTokens: wordLimit * tokensPerWord,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Search answers a question with a best-effort grounding hint: providers with
// web search attach citations, the rest answer from model knowledge and the
// result carries an empty source list. An empty list is a valid answer, not a
// failure.
func (s *Service) Search(ctx context.Context, query, categoryContext string, wordLimit int) (*models.UnifiedResponse, error) {
	if query == "" {
		return nil, &models.ValidationError{Reason: "search query is empty"}
	}
	wordLimit = normalizeWordLimit(wordLimit)

	contextPrompt := fmt.Sprintf("Regarding Christian cultural and historical context, answer the following question: %q.", query)
	if categoryContext != "" {
		contextPrompt = fmt.Sprintf("Regarding the cultural or historical context of %s, answer the following question: %q.", categoryContext, query)
	}

	prompt := fmt.Sprintf(`%s

IMPORTANT: Limit your response to approximately %d words. Be concise and focused on the most essential information.

Provide a brief answer with key historical details, theological significance, and cultural context. Use markdown for formatting. Respond in Traditional Chinese (繁體中文) with English terms in parentheses where appropriate.`, contextPrompt, wordLimit)

	return s.dispatcher.Do(ctx, router.OpSearch, &models.GenerationRequest{
		Messages:        []models.Message{{Role: models.RoleUser, Content: prompt}},
		EnableWebSearch: true,
		MaxOutputTokens: wordLimit * tokensPerWord,
	})
}
