package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const translatePrompt = "You translate e-commerce search queries into English. " +
	"Reply with the translated query only, without quotes or explanations. " +
	"If the query is already English, repeat it unchanged."

// Translator translates search queries to English with a chat completion model.
type Translator struct {
	client *openai.Client
	model  string
}

// TranslatorConfig holds the translation model settings.
type TranslatorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewTranslator creates a chat-completion based query translator.
func NewTranslator(cfg *TranslatorConfig) *Translator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Translator{client: openai.NewClientWithConfig(clientCfg), model: cfg.Model}
}

// Translate implements domain.Translator.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: 0,
		MaxTokens:   256,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translatePrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("translate query: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("translate query: empty response")
	}

	out := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"'`)
	if out == "" {
		return "", fmt.Errorf("translate query: empty translation")
	}
	return out, nil
}
