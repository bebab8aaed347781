package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/egov_portal/backend/internal/models"
)

// OpenAIBackend talks to any OpenAI-compatible chat completions endpoint.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend returns a backend for apiKey and model. baseURL may be
// empty for api.openai.com.
func NewOpenAIBackend(apiKey, baseURL, model string) *OpenAIBackend {
	cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	return &OpenAIBackend{
		client: openai.NewClientWithConfig(cfg),
		model:  strings.TrimSpace(model),
	}
}

func (o *OpenAIBackend) Classify(ctx context.Context, prompt string) (string, error) {
	return o.complete(ctx, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
}

func (o *OpenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	return o.complete(ctx, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
}

func (o *OpenAIBackend) Converse(ctx context.Context, req ConverseRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, userMessage(req.Message, req.Attachment))
	return o.complete(ctx, openai.ChatCompletionRequest{Messages: messages})
}

// userMessage builds the final user turn. Images travel as data URIs; other
// attachment types are announced by name since the chat API has no generic
// binary part.
func userMessage(text string, att *models.Attachment) openai.ChatCompletionMessage {
	if att == nil {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	}
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: text}}
	if strings.HasPrefix(att.MimeType, "image/") {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", att.MimeType, att.Data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	} else {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: fmt.Sprintf("[مرفق: %s (%s)]", att.Name, att.MimeType),
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

func (o *OpenAIBackend) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if o == nil || o.client == nil || o.model == "" {
		return "", ErrNotConfigured
	}
	req.Model = o.model
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai-compat api")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from openai-compat api")
	}
	return text, nil
}
