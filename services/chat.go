package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

var ErrEmptyCompletion = errors.New("chat completion returned no choices")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionProvider interface {
	// CreateChatCompletion returns the content of the first choice.
	CreateChatCompletion(ctx context.Context, messages []ChatMessage) (string, error)
}

type OpenAIChatService struct {
	client *openai.Client
	model  string
}

// NewOpenAIChatService talks to any OpenAI compatible endpoint rooted at baseURL.
// httpClient may be nil.
func NewOpenAIChatService(apiKey, baseURL, model string, httpClient *http.Client) (*OpenAIChatService, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is empty")
	}
	if model == "" {
		return nil, errors.New("chat model is empty")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIChatService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (s *OpenAIChatService) CreateChatCompletion(ctx context.Context, messages []ChatMessage) (string, error) {
	request := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: lo.Map(messages, func(m ChatMessage, _ int) openai.ChatCompletionMessage {
			return openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
		}),
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		if status, ok := StatusCode(err); ok {
			log.Warn().Int("status", status).Str("model", s.model).Msg("[Chat] completion request rejected")
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	log.Debug().
		Str("model", s.model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("[Chat] completion received")
	return resp.Choices[0].Message.Content, nil
}

// StatusCode extracts the HTTP status of a failed completion call, if the server answered at all.
func StatusCode(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
